package knowledge

import (
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// Reader is the read-only query surface of a knowledge base.
type Reader interface {
	Size() int
	IsSafe(c world.Cell) bool
	IsVisited(c world.Cell) bool
	IsKnownHazard(c world.Cell) bool
	Known(c world.Cell, p Predicate) (value bool, known bool)
	UnvisitedSafeFrontier() []world.Cell
	SafeCells() world.CellSet
	VisitedCells() world.CellSet
	Facts() []Fact
	Clauses() []Clause
	Len() int
}

// KnowledgeBase stores facts for one episode. It is not safe for concurrent
// mutation; the owning controller is its only writer.
type KnowledgeBase struct {
	size    int
	facts   map[key]bool
	log     []Fact
	clauses map[key]*Clause
	order   []*Clause
}

var _ Reader = (*KnowledgeBase)(nil)

// New returns an empty knowledge base for an n×n grid.
func New(size int) *KnowledgeBase {
	return &KnowledgeBase{
		size:    size,
		facts:   make(map[key]bool),
		clauses: make(map[key]*Clause),
	}
}

// Size returns the grid dimension.
func (kb *KnowledgeBase) Size() int {
	return kb.size
}

// Known returns the stored truth value of p at c, if any.
func (kb *KnowledgeBase) Known(c world.Cell, p Predicate) (bool, bool) {
	v, ok := kb.facts[key{c, p}]
	return v, ok
}

func (kb *KnowledgeBase) holds(c world.Cell, p Predicate, polarity bool) bool {
	v, ok := kb.facts[key{c, p}]
	return ok && v == polarity
}

// IsSafe reports whether c has been proven safe.
func (kb *KnowledgeBase) IsSafe(c world.Cell) bool {
	return kb.holds(c, Safe, true)
}

// IsVisited reports whether the agent has stood on c.
func (kb *KnowledgeBase) IsVisited(c world.Cell) bool {
	return kb.holds(c, Visited, true)
}

// IsKnownHazard reports whether c is proven to hold a pit or the hazard.
func (kb *KnowledgeBase) IsKnownHazard(c world.Cell) bool {
	return kb.holds(c, Pit, true) || kb.holds(c, Hazard, true)
}

// UnvisitedSafeFrontier returns the safe, unvisited cells in scan order.
func (kb *KnowledgeBase) UnvisitedSafeFrontier() []world.Cell {
	var out []world.Cell
	for k, v := range kb.facts {
		if k.pred == Safe && v && !kb.IsVisited(k.cell) {
			out = append(out, k.cell)
		}
	}
	world.SortCells(out)
	return out
}

// SafeCells returns every cell proven safe.
func (kb *KnowledgeBase) SafeCells() world.CellSet {
	return kb.collect(Safe)
}

// VisitedCells returns every visited cell.
func (kb *KnowledgeBase) VisitedCells() world.CellSet {
	return kb.collect(Visited)
}

func (kb *KnowledgeBase) collect(p Predicate) world.CellSet {
	out := world.NewCellSet()
	for k, v := range kb.facts {
		if k.pred == p && v {
			out.Add(k.cell)
		}
	}
	return out
}

// Facts returns the fact set in assertion order.
func (kb *KnowledgeBase) Facts() []Fact {
	out := make([]Fact, len(kb.log))
	copy(out, kb.log)
	return out
}

// Clauses returns the recorded disjunctive evidence.
func (kb *KnowledgeBase) Clauses() []Clause {
	out := make([]Clause, 0, len(kb.order))
	for _, c := range kb.order {
		cp := *c
		cp.Candidates = append([]world.Cell(nil), c.Candidates...)
		out = append(out, cp)
	}
	return out
}

// Len returns the number of stored facts.
func (kb *KnowledgeBase) Len() int {
	return len(kb.log)
}

// Integrate folds the percept sensed at c into the knowledge base and runs
// forward chaining to a fixpoint. It returns the facts added by this call.
// On contradiction the facts stored before the conflict are kept and the
// offending pair is returned as a *ContradictionError.
func (kb *KnowledgeBase) Integrate(c world.Cell, p world.Percept) ([]Fact, error) {
	start := len(kb.log)
	err := kb.integrate(c, p)
	added := make([]Fact, len(kb.log)-start)
	copy(added, kb.log[start:])
	return added, err
}

func (kb *KnowledgeBase) integrate(c world.Cell, p world.Percept) error {
	for _, f := range []Fact{
		{Cell: c, Predicate: Visited, Polarity: true},
		{Cell: c, Predicate: Pit, Polarity: false},
		{Cell: c, Predicate: Hazard, Polarity: false},
		{Cell: c, Predicate: Safe, Polarity: true},
		{Cell: c, Predicate: Breeze, Polarity: p.Breeze},
		{Cell: c, Predicate: Stench, Polarity: p.Stench},
	} {
		if _, err := kb.assert(f); err != nil {
			return err
		}
	}
	if p.Glitter {
		if _, err := kb.assert(Fact{Cell: c, Predicate: Goal, Polarity: true}); err != nil {
			return err
		}
	}

	neighbors := c.Neighbors(kb.size)
	for _, signal := range []struct {
		sensed bool
		pred   Predicate
	}{
		{p.Breeze, Pit},
		{p.Stench, Hazard},
	} {
		if signal.sensed {
			kb.addClause(c, signal.pred, neighbors)
			continue
		}
		for _, n := range neighbors {
			if _, err := kb.assert(Fact{Cell: n, Predicate: signal.pred, Polarity: false}); err != nil {
				return err
			}
		}
	}

	return kb.propagate()
}

// assert stores f. Re-asserting a stored fact is a no-op; asserting the
// negation of a stored fact fails without changing anything.
func (kb *KnowledgeBase) assert(f Fact) (bool, error) {
	if !f.Cell.InBounds(kb.size) {
		return false, nil
	}
	k := key{f.Cell, f.Predicate}
	if existing, ok := kb.facts[k]; ok {
		if existing == f.Polarity {
			return false, nil
		}
		return false, &ContradictionError{
			Cell:     f.Cell,
			Existing: Fact{Cell: f.Cell, Predicate: f.Predicate, Polarity: existing},
			Derived:  f,
		}
	}
	kb.facts[k] = f.Polarity
	kb.log = append(kb.log, f)
	return true, nil
}

func (kb *KnowledgeBase) addClause(origin world.Cell, pred Predicate, candidates []world.Cell) {
	k := key{origin, pred}
	if _, ok := kb.clauses[k]; ok {
		return
	}
	cl := &Clause{
		Origin:     origin,
		Predicate:  pred,
		Candidates: append([]world.Cell(nil), candidates...),
	}
	kb.clauses[k] = cl
	kb.order = append(kb.order, cl)
}

func (kb *KnowledgeBase) propagate() error {
	for {
		changed := false

		for _, cl := range kb.order {
			if cl.Resolved {
				continue
			}
			ok, err := kb.reduce(cl)
			if err != nil {
				return err
			}
			changed = changed || ok
		}

		for x := 1; x <= kb.size; x++ {
			for y := 1; y <= kb.size; y++ {
				ok, err := kb.deriveSafety(world.Cell{X: x, Y: y})
				if err != nil {
					return err
				}
				changed = changed || ok
			}
		}

		if !changed {
			return nil
		}
	}
}

// reduce drops candidates proven clear. A clause with a proven candidate is
// satisfied; a clause with one candidate left proves it.
func (kb *KnowledgeBase) reduce(cl *Clause) (bool, error) {
	remaining := cl.Candidates[:0:0]
	var lastCleared world.Cell
	for _, c := range cl.Candidates {
		if kb.holds(c, cl.Predicate, true) {
			cl.Resolved = true
			return true, nil
		}
		if kb.holds(c, cl.Predicate, false) {
			lastCleared = c
			continue
		}
		remaining = append(remaining, c)
	}

	changed := len(remaining) != len(cl.Candidates)
	cl.Candidates = remaining

	switch len(remaining) {
	case 0:
		return changed, &ContradictionError{
			Cell:     lastCleared,
			Existing: Fact{Cell: lastCleared, Predicate: cl.Predicate, Polarity: false},
			Derived:  Fact{Cell: lastCleared, Predicate: cl.Predicate, Polarity: true},
		}
	case 1:
		if _, err := kb.assert(Fact{Cell: remaining[0], Predicate: cl.Predicate, Polarity: true}); err != nil {
			return changed, err
		}
		cl.Resolved = true
		return true, nil
	}
	return changed, nil
}

// deriveSafety applies Safe ⇔ ¬Pit ∧ ¬Hazard in both directions.
func (kb *KnowledgeBase) deriveSafety(c world.Cell) (bool, error) {
	if kb.holds(c, Pit, false) && kb.holds(c, Hazard, false) {
		return kb.assert(Fact{Cell: c, Predicate: Safe, Polarity: true})
	}
	if kb.IsKnownHazard(c) {
		return kb.assert(Fact{Cell: c, Predicate: Safe, Polarity: false})
	}
	return false, nil
}
