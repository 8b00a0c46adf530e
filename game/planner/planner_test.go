package planner

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

func cell(x, y int) world.Cell {
	return world.Cell{X: x, Y: y}
}

func TestFindPath_Straight(t *testing.T) {
	safe := world.NewCellSet(cell(1, 1), cell(2, 1), cell(3, 1))
	plan, err := FindPath(cell(1, 1), cell(3, 1), safe)
	require.NoError(t, err)

	assert.Equal(t, Plan{cell(1, 1), cell(2, 1), cell(3, 1)}, plan)
	assert.Equal(t, 2, plan.Len())
	assert.Equal(t, []world.Direction{world.East, world.East}, plan.Directions())
	next, ok := plan.Next()
	assert.True(t, ok)
	assert.Equal(t, cell(2, 1), next)
}

func TestFindPath_SameCell(t *testing.T) {
	plan, err := FindPath(cell(2, 2), cell(2, 2), world.NewCellSet())
	require.NoError(t, err)
	assert.Equal(t, 0, plan.Len())
	assert.Empty(t, plan.Steps())
	_, ok := plan.Next()
	assert.False(t, ok)
}

func TestFindPath_StartNeedNotBeSafe(t *testing.T) {
	safe := world.NewCellSet(cell(1, 2))
	plan, err := FindPath(cell(1, 1), cell(1, 2), safe)
	require.NoError(t, err)
	assert.Equal(t, []world.Direction{world.North}, plan.Directions())
}

func TestFindPath_NorthFirstTieBreak(t *testing.T) {
	// both (1,2)->(2,2) and (2,1)->(2,2) are shortest; North is expanded first
	safe := world.NewCellSet(cell(1, 1), cell(1, 2), cell(2, 1), cell(2, 2))
	plan, err := FindPath(cell(1, 1), cell(2, 2), safe)
	require.NoError(t, err)
	assert.Equal(t, Plan{cell(1, 1), cell(1, 2), cell(2, 2)}, plan)
}

func TestFindPath_AvoidsUnsafe(t *testing.T) {
	// (2,1) is not safe, so the route detours through row 2
	safe := world.NewCellSet(cell(1, 1), cell(1, 2), cell(2, 2), cell(3, 2), cell(3, 1))
	plan, err := FindPath(cell(1, 1), cell(3, 1), safe)
	require.NoError(t, err)
	assert.Equal(t, 4, plan.Len())
	for _, c := range plan.Steps() {
		assert.True(t, safe.Has(c))
	}
}

func TestFindPath_Unreachable(t *testing.T) {
	safe := world.NewCellSet(cell(1, 1), cell(3, 3))
	_, err := FindPath(cell(1, 1), cell(3, 3), safe)
	assert.ErrorIs(t, err, ErrUnreachable)

	_, err = FindPath(cell(1, 1), cell(4, 4), safe)
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestNearest_ScanOrderTieBreak(t *testing.T) {
	safe := world.NewCellSet(cell(1, 1), cell(1, 2), cell(2, 1), cell(1, 3))
	target, plan, err := Nearest(cell(1, 1), []world.Cell{cell(2, 1), cell(1, 2), cell(1, 3)}, safe)
	require.NoError(t, err)
	assert.Equal(t, cell(1, 2), target)
	assert.Equal(t, 1, plan.Len())
}

func TestNearest_PrefersCloser(t *testing.T) {
	safe := world.NewCellSet(cell(1, 1), cell(1, 2), cell(1, 3), cell(2, 1), cell(3, 1), cell(4, 1))
	target, _, err := Nearest(cell(1, 3), []world.Cell{cell(4, 1), cell(1, 1)}, safe)
	require.NoError(t, err)
	assert.Equal(t, cell(1, 1), target)
}

func TestNearest_NoneReachable(t *testing.T) {
	_, _, err := Nearest(cell(1, 1), []world.Cell{cell(4, 4)}, world.NewCellSet(cell(4, 4)))
	assert.ErrorIs(t, err, ErrUnreachable)
}

// floydWarshall computes all-pairs shortest path lengths over the safe graph.
func floydWarshall(n int, safe world.CellSet) map[[2]world.Cell]int {
	const inf = 1 << 30
	cells := safe.Sorted()
	dist := make(map[[2]world.Cell]int, len(cells)*len(cells))
	for _, a := range cells {
		for _, b := range cells {
			switch {
			case a == b:
				dist[[2]world.Cell{a, b}] = 0
			case isNeighbor(a, b, n):
				dist[[2]world.Cell{a, b}] = 1
			default:
				dist[[2]world.Cell{a, b}] = inf
			}
		}
	}
	for _, k := range cells {
		for _, i := range cells {
			for _, j := range cells {
				if d := dist[[2]world.Cell{i, k}] + dist[[2]world.Cell{k, j}]; d < dist[[2]world.Cell{i, j}] {
					dist[[2]world.Cell{i, j}] = d
				}
			}
		}
	}
	for k, v := range dist {
		if v >= inf {
			delete(dist, k)
		}
	}
	return dist
}

func isNeighbor(a, b world.Cell, n int) bool {
	for _, c := range a.Neighbors(n) {
		if c == b {
			return true
		}
	}
	return false
}

func TestFindPath_OptimalAgainstFloydWarshall(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 6

	for trial := 0; trial < 30; trial++ {
		safe := world.NewCellSet()
		for x := 1; x <= n; x++ {
			for y := 1; y <= n; y++ {
				if rng.Float64() < 0.65 {
					safe.Add(cell(x, y))
				}
			}
		}
		ref := floydWarshall(n, safe)
		cells := safe.Sorted()

		for _, a := range cells {
			for _, b := range cells {
				want, reachable := ref[[2]world.Cell{a, b}]
				plan, err := FindPath(a, b, safe)
				if !reachable {
					assert.ErrorIs(t, err, ErrUnreachable, "trial %d %s->%s", trial, a, b)
					continue
				}
				require.NoError(t, err, "trial %d %s->%s", trial, a, b)
				assert.Equal(t, want, plan.Len(), "trial %d %s->%s", trial, a, b)
				assert.Len(t, plan.Directions(), want)
				for _, c := range plan {
					assert.True(t, safe.Has(c))
				}
			}

			dist := Distances(a, safe)
			for _, b := range cells {
				want, reachable := ref[[2]world.Cell{a, b}]
				got, ok := dist[b]
				assert.Equal(t, reachable, ok)
				if reachable {
					assert.Equal(t, want, got)
				}
			}
		}
	}
}
