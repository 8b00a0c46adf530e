package world

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	DefaultSize           = 4
	MinSize               = 2
	MaxSize               = 32
	DefaultPitProbability = 0.2
)

var ErrInvalidLayout = errors.New("invalid world layout")

// Start is the entry cell of every cave.
var Start = Cell{X: 1, Y: 1}

// Layout describes how a world is generated. Nil Hazard or Goal, or
// Randomize, asks Generate to place them with the supplied random source.
// PitProbability is used as given; zero places no random pits.
type Layout struct {
	Size           int
	PitProbability float64
	Randomize      bool
	Pits           []Cell
	Hazard         *Cell
	Goal           *Cell
}

// World is the ground truth of one episode.
type World struct {
	size      int
	pits      CellSet
	hazard    Cell
	goal      Cell
	goalTaken bool
}

// New builds a world from explicit placements.
func New(size int, pits []Cell, hazard, goal Cell) (*World, error) {
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("%w: size must be between %d and %d, got %d", ErrInvalidLayout, MinSize, MaxSize, size)
	}
	w := &World{
		size:   size,
		pits:   NewCellSet(),
		hazard: hazard,
		goal:   goal,
	}
	for _, p := range pits {
		if !p.InBounds(size) {
			return nil, fmt.Errorf("%w: pit %s out of bounds", ErrInvalidLayout, p)
		}
		if p == Start {
			return nil, fmt.Errorf("%w: pit on start cell", ErrInvalidLayout)
		}
		w.pits.Add(p)
	}
	if !hazard.InBounds(size) || hazard == Start {
		return nil, fmt.Errorf("%w: hazard %s must be in bounds and off the start cell", ErrInvalidLayout, hazard)
	}
	if !goal.InBounds(size) {
		return nil, fmt.Errorf("%w: goal %s out of bounds", ErrInvalidLayout, goal)
	}
	return w, nil
}

// Generate places pits, hazard and goal according to the layout.
func Generate(layout Layout, rng *rand.Rand) (*World, error) {
	size := layout.Size
	if size == 0 {
		size = DefaultSize
	}
	if !layout.Randomize && layout.Hazard != nil && layout.Goal != nil {
		return New(size, layout.Pits, *layout.Hazard, *layout.Goal)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: randomized layout needs a random source", ErrInvalidLayout)
	}

	// Placements that survive randomization are reserved before sampling
	var fixedHazard, fixedGoal *Cell
	if !layout.Randomize {
		fixedHazard, fixedGoal = layout.Hazard, layout.Goal
	}
	reserved := NewCellSet(Start)
	if fixedHazard != nil {
		reserved.Add(*fixedHazard)
	}
	if fixedGoal != nil {
		reserved.Add(*fixedGoal)
	}

	pits := layout.Pits
	if layout.Randomize || len(pits) == 0 {
		pits = nil
		for x := 1; x <= size; x++ {
			for y := 1; y <= size; y++ {
				c := Cell{X: x, Y: y}
				if reserved.Has(c) {
					continue
				}
				if rng.Float64() < layout.PitProbability {
					pits = append(pits, c)
				}
			}
		}
	}
	pitSet := NewCellSet(pits...)

	var free []Cell
	for x := 1; x <= size; x++ {
		for y := 1; y <= size; y++ {
			c := Cell{X: x, Y: y}
			if c != Start && !pitSet.Has(c) {
				free = append(free, c)
			}
		}
	}

	hazard, err := pick(rng, free, fixedHazard, fixedGoal)
	if err != nil {
		return nil, err
	}
	goal, err := pick(rng, free, fixedGoal, &hazard)
	if err != nil {
		return nil, err
	}

	return New(size, pits, hazard, goal)
}

// pick returns fixed when set, otherwise a random free cell other than
// avoid. avoid is only shared when it is the last free cell.
func pick(rng *rand.Rand, free []Cell, fixed, avoid *Cell) (Cell, error) {
	if fixed != nil {
		return *fixed, nil
	}
	if len(free) == 0 {
		return Cell{}, fmt.Errorf("%w: no free cell left for hazard and goal", ErrInvalidLayout)
	}
	choices := make([]Cell, 0, len(free))
	for _, c := range free {
		if avoid == nil || c != *avoid {
			choices = append(choices, c)
		}
	}
	if len(choices) == 0 {
		choices = free
	}
	return choices[rng.Intn(len(choices))], nil
}

// Size returns the grid dimension N.
func (w *World) Size() int {
	return w.size
}

// Start returns the entry cell.
func (w *World) Start() Cell {
	return Start
}

// Pits returns the pit cells in scan order.
func (w *World) Pits() []Cell {
	return w.pits.Sorted()
}

// Hazard returns the hazard cell.
func (w *World) Hazard() Cell {
	return w.hazard
}

// Goal returns the goal cell.
func (w *World) Goal() Cell {
	return w.goal
}

// GoalTaken reports whether TakeGoal has been called.
func (w *World) GoalTaken() bool {
	return w.goalTaken
}

// Percept returns the signals sensed at c. Bump is never set here; it
// belongs to the action that was just attempted, not to the cell.
func (w *World) Percept(c Cell) Percept {
	var p Percept
	for _, n := range c.Neighbors(w.size) {
		if w.pits.Has(n) {
			p.Breeze = true
		}
		if n == w.hazard {
			p.Stench = true
		}
	}
	p.Glitter = c == w.goal && !w.goalTaken
	return p
}

// Contents returns the ground truth of c.
func (w *World) Contents(c Cell) Contents {
	return Contents{
		HasPit:    w.pits.Has(c),
		HasHazard: c == w.hazard,
		HasGoal:   c == w.goal && !w.goalTaken,
	}
}

// TakeGoal removes the goal from the world.
func (w *World) TakeGoal() {
	w.goalTaken = true
}
