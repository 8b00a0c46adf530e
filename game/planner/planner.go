// Package planner finds shortest routes through cells the agent has proven safe.
package planner

import (
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

var ErrUnreachable = errors.New("target unreachable through known-safe cells")

// Plan is an ordered route from the current cell to a target, both included.
type Plan []world.Cell

// Len returns the number of moves the plan needs.
func (p Plan) Len() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Steps returns the cells still to be entered.
func (p Plan) Steps() []world.Cell {
	if len(p) <= 1 {
		return nil
	}
	return p[1:]
}

// Next returns the first cell to move into.
func (p Plan) Next() (world.Cell, bool) {
	if len(p) < 2 {
		return world.Cell{}, false
	}
	return p[1], true
}

// Directions converts the plan into headings.
func (p Plan) Directions() []world.Direction {
	out := make([]world.Direction, 0, p.Len())
	for i := 1; i < len(p); i++ {
		d, ok := p[i-1].DirectionTo(p[i])
		if !ok {
			panic(fmt.Sprintf("planner: non-adjacent cells %s and %s in plan", p[i-1], p[i]))
		}
		out = append(out, d)
	}
	return out
}

// Target returns the last cell of the plan.
func (p Plan) Target() (world.Cell, bool) {
	if len(p) == 0 {
		return world.Cell{}, false
	}
	return p[len(p)-1], true
}

// FindPath runs a breadth-first search from start to goal. Only start and
// members of safe may appear on the route. Neighbors are expanded North,
// East, South, West, so ties between equally short routes are stable.
func FindPath(start, goal world.Cell, safe world.CellSet) (Plan, error) {
	if start == goal {
		return Plan{start}, nil
	}
	if !safe.Has(goal) {
		return nil, fmt.Errorf("%w: %s is not known safe", ErrUnreachable, goal)
	}

	parent := map[world.Cell]world.Cell{start: start}
	queue := []world.Cell{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range world.Directions {
			next := cur.Step(d)
			if _, seen := parent[next]; seen || !safe.Has(next) {
				continue
			}
			parent[next] = cur
			if next == goal {
				return unwind(parent, start, goal), nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("%w: %s from %s", ErrUnreachable, goal, start)
}

func unwind(parent map[world.Cell]world.Cell, start, goal world.Cell) Plan {
	var rev []world.Cell
	for c := goal; c != start; c = parent[c] {
		rev = append(rev, c)
	}
	rev = append(rev, start)
	plan := make(Plan, len(rev))
	for i, c := range rev {
		plan[len(rev)-1-i] = c
	}
	return plan
}

// Distances returns the BFS distance from start to every cell reachable
// through safe.
func Distances(start world.Cell, safe world.CellSet) map[world.Cell]int {
	dist := map[world.Cell]int{start: 0}
	queue := []world.Cell{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range world.Directions {
			next := cur.Step(d)
			if _, seen := dist[next]; seen || !safe.Has(next) {
				continue
			}
			dist[next] = dist[cur] + 1
			queue = append(queue, next)
		}
	}
	return dist
}

// Nearest picks the candidate with the smallest BFS distance from start,
// breaking ties in scan order, and returns the route to it.
func Nearest(start world.Cell, candidates []world.Cell, safe world.CellSet) (world.Cell, Plan, error) {
	dist := Distances(start, safe)

	best, bestDist, found := world.Cell{}, 0, false
	for _, c := range candidates {
		d, ok := dist[c]
		if !ok {
			continue
		}
		if !found || d < bestDist || (d == bestDist && c.Less(best)) {
			best, bestDist, found = c, d, true
		}
	}
	if !found {
		return world.Cell{}, nil, ErrUnreachable
	}

	plan, err := FindPath(start, best, safe)
	if err != nil {
		return world.Cell{}, nil, err
	}
	return best, plan, nil
}
