// Package world holds the ground truth of a Wumpus World cave.
//
// The world package implements:
//   - 1-indexed grid cells and compass directions
//   - Percept generation (breeze, stench, glitter) for a single cell
//   - Cell contents used for terminal checks (death, grab)
//   - Fixed and randomized world generation
//
// Core Types:
//
// Cell is an immutable (x, y) coordinate. World stores pit, hazard and goal
// placement and answers Percept and Contents queries. CellSet is a small set
// type used by the planner and the knowledge base.
//
// Usage:
//
//	w, err := world.Generate(world.Layout{
//		Size:   4,
//		Pits:   []world.Cell{{X: 3, Y: 3}, {X: 4, Y: 4}},
//		Hazard: &world.Cell{X: 3, Y: 1},
//		Goal:   &world.Cell{X: 2, Y: 3},
//	}, rand.New(rand.NewSource(1)))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	p := w.Percept(world.Cell{X: 2, Y: 1})
//
// A World is never mutated by reasoning code. The only change after
// generation is TakeGoal, which the agent controller calls when the goal is
// grabbed so that glitter stops being reported.
package world
