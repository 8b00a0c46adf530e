package world

import (
	"fmt"
	"sort"
	"strings"
)

// Cell is a 1-indexed grid coordinate.
type Cell struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// String renders the cell as "(x,y)".
func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// InBounds reports whether the cell lies inside an n×n grid.
func (c Cell) InBounds(n int) bool {
	return c.X >= 1 && c.X <= n && c.Y >= 1 && c.Y <= n
}

// Step returns the cell one step away in direction d. The result may be out of bounds.
func (c Cell) Step(d Direction) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// Neighbors returns the in-bounds orthogonal neighbors in North, East, South, West order.
func (c Cell) Neighbors(n int) []Cell {
	out := make([]Cell, 0, 4)
	for _, d := range Directions {
		next := c.Step(d)
		if next.InBounds(n) {
			out = append(out, next)
		}
	}
	return out
}

// DirectionTo returns the direction of an orthogonally adjacent cell.
func (c Cell) DirectionTo(other Cell) (Direction, bool) {
	for _, d := range Directions {
		if c.Step(d) == other {
			return d, true
		}
	}
	return 0, false
}

// Less orders cells in scan order: by column, then by row.
func (c Cell) Less(other Cell) bool {
	if c.X != other.X {
		return c.X < other.X
	}
	return c.Y < other.Y
}

// Direction is a compass heading.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// Directions is the fixed expansion order used everywhere neighbors are enumerated.
var Directions = []Direction{North, East, South, West}

// Delta returns the coordinate change for one step.
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return 0, 1
	case East:
		return 1, 0
	case South:
		return 0, -1
	case West:
		return -1, 0
	}
	return 0, 0
}

// Left returns the heading after a 90 degree counter-clockwise turn.
func (d Direction) Left() Direction {
	return (d + 3) % 4
}

// Right returns the heading after a 90 degree clockwise turn.
func (d Direction) Right() Direction {
	return (d + 1) % 4
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts compass names, their initials, and the screen aliases up/down/left/right.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "north", "n", "up":
		return North, nil
	case "east", "e", "right":
		return East, nil
	case "south", "s", "down":
		return South, nil
	case "west", "w", "left":
		return West, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Percept is the set of signals sensed in a single cell.
type Percept struct {
	Breeze  bool `json:"breeze"`
	Stench  bool `json:"stench"`
	Glitter bool `json:"glitter"`
	Bump    bool `json:"bump"`
	Scream  bool `json:"scream"`
}

// String lists the active signals, or "none".
func (p Percept) String() string {
	var parts []string
	if p.Breeze {
		parts = append(parts, "breeze")
	}
	if p.Stench {
		parts = append(parts, "stench")
	}
	if p.Glitter {
		parts = append(parts, "glitter")
	}
	if p.Bump {
		parts = append(parts, "bump")
	}
	if p.Scream {
		parts = append(parts, "scream")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// Contents is the ground truth of one cell.
type Contents struct {
	HasPit    bool `json:"has_pit"`
	HasHazard bool `json:"has_hazard"`
	HasGoal   bool `json:"has_goal"`
}

// Deadly reports whether entering the cell ends the episode.
func (c Contents) Deadly() bool {
	return c.HasPit || c.HasHazard
}

// CellSet is an unordered set of cells.
type CellSet map[Cell]struct{}

// NewCellSet builds a set from the given cells.
func NewCellSet(cells ...Cell) CellSet {
	s := make(CellSet, len(cells))
	for _, c := range cells {
		s[c] = struct{}{}
	}
	return s
}

// Add inserts c.
func (s CellSet) Add(c Cell) {
	s[c] = struct{}{}
}

// Has reports membership.
func (s CellSet) Has(c Cell) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the members in scan order.
func (s CellSet) Sorted() []Cell {
	out := make([]Cell, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	SortCells(out)
	return out
}

// SortCells sorts cells in scan order in place.
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool { return cells[i].Less(cells[j]) })
}
