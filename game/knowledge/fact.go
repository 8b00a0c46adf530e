package knowledge

import (
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// Predicate names the proposition a fact makes about a cell.
type Predicate int

const (
	Safe Predicate = iota
	Pit
	Hazard
	Visited
	Breeze
	Stench
	Goal
)

var predicateNames = map[Predicate]string{
	Safe:    "Safe",
	Pit:     "Pit",
	Hazard:  "Hazard",
	Visited: "Visited",
	Breeze:  "Breeze",
	Stench:  "Stench",
	Goal:    "Goal",
}

func (p Predicate) String() string {
	if name, ok := predicateNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Predicate(%d)", int(p))
}

// MarshalText encodes the predicate by name.
func (p Predicate) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a predicate name.
func (p *Predicate) UnmarshalText(text []byte) error {
	for pred, name := range predicateNames {
		if name == string(text) {
			*p = pred
			return nil
		}
	}
	return fmt.Errorf("unknown predicate %q", text)
}

// Fact is one proposition about one cell with a polarity.
type Fact struct {
	Cell      world.Cell `json:"cell"`
	Predicate Predicate  `json:"predicate"`
	Polarity  bool       `json:"polarity"`
}

// String renders "Pit(3,1)" or "¬Pit(3,1)".
func (f Fact) String() string {
	prefix := ""
	if !f.Polarity {
		prefix = "¬"
	}
	return fmt.Sprintf("%s%s%s", prefix, f.Predicate, f.Cell)
}

// Negated returns the fact with the opposite polarity.
func (f Fact) Negated() Fact {
	f.Polarity = !f.Polarity
	return f
}

type key struct {
	cell world.Cell
	pred Predicate
}

// Clause records disjunctive evidence: at least one Candidate holds Predicate.
type Clause struct {
	Origin     world.Cell   `json:"origin"`
	Predicate  Predicate    `json:"predicate"`
	Candidates []world.Cell `json:"candidates"`
	Resolved   bool         `json:"resolved"`
}

var ErrContradiction = errors.New("knowledge contradiction")

// ContradictionError reports two incompatible facts about one cell.
type ContradictionError struct {
	Cell     world.Cell `json:"cell"`
	Existing Fact       `json:"existing"`
	Derived  Fact       `json:"derived"`
}

func (e *ContradictionError) Error() string {
	return fmt.Sprintf("knowledge contradiction at %s: %s already known, derived %s", e.Cell, e.Existing, e.Derived)
}

// Is makes errors.Is(err, ErrContradiction) match.
func (e *ContradictionError) Is(target error) bool {
	return target == ErrContradiction
}
