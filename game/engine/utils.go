package engine

import (
	"fmt"

	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/planner"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// KnowledgeCounts tallies the agent's beliefs over the whole grid
type KnowledgeCounts struct {
	Visited int `json:"visited"`
	Safe    int `json:"safe"`
	Pits    int `json:"pits"`
	Hazards int `json:"hazards"`
	Unknown int `json:"unknown"`
}

// CountKnown classifies every cell of the grid by what the agent knows
func CountKnown(kb knowledge.Reader) KnowledgeCounts {
	var counts KnowledgeCounts
	n := kb.Size()
	for x := 1; x <= n; x++ {
		for y := 1; y <= n; y++ {
			switch ViewCell(kb, world.Cell{X: x, Y: y}, world.Cell{}).Status {
			case StatusVisited:
				counts.Visited++
				counts.Safe++
			case StatusSafe:
				counts.Safe++
			case StatusPit:
				counts.Pits++
			case StatusHazard:
				counts.Hazards++
			default:
				counts.Unknown++
			}
		}
	}
	return counts
}

// ManhattanDistance calculates the Manhattan distance between two cells
func ManhattanDistance(from, to world.Cell) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// FindNearestFrontier finds the closest safe unvisited cell by BFS distance
// and returns its position and distance
func FindNearestFrontier(kb knowledge.Reader, from world.Cell) (world.Cell, int, bool) {
	target, plan, err := planner.Nearest(from, kb.UnvisitedSafeFrontier(), kb.SafeCells())
	if err != nil {
		return world.Cell{}, UnreachableDistance, false
	}
	return target, plan.Len(), true
}

// AnalyzeRisk assesses how much safe exploration the agent has left
func AnalyzeRisk(state *GameState, kb knowledge.Reader) string {
	if state.GameOver {
		return fmt.Sprintf("DONE: episode ended (%s)", state.Outcome)
	}
	if kb.Len() == 0 {
		return "SAFE: nothing sensed yet, the start cell is safe"
	}
	if state.Agent.HasGoal {
		return fmt.Sprintf("SAFE: holding the goal, %d moves from the exit", ManhattanDistance(state.Agent.Position, world.Start))
	}

	target, dist, found := FindNearestFrontier(kb, state.Agent.Position)
	if !found {
		counts := CountKnown(kb)
		return fmt.Sprintf("DANGER: no provably safe cell left, %d cells unknown", counts.Unknown)
	}
	if remaining := len(state.Frontier); remaining == 1 {
		return fmt.Sprintf("CAUTION: last safe cell %s is %d moves away", target, dist)
	}
	return fmt.Sprintf("SAFE: %d safe cells to explore, nearest %s", len(state.Frontier), target)
}
