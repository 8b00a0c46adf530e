package agent

import (
	"errors"
	"math/rand"

	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/planner"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// ErrNoDecision is returned by a strategy that has nothing to propose.
var ErrNoDecision = errors.New("strategy has no move to propose")

// Decision is a strategy's choice of where to go next.
type Decision struct {
	Target world.Cell
	Plan   planner.Plan
	// RiskAccepted marks a target that is not proven safe.
	RiskAccepted bool
}

// Strategy decides the agent's next destination from its knowledge alone.
type Strategy interface {
	Name() string
	Decide(pos world.Cell, kb knowledge.Reader) (Decision, error)
}

// ShortestSafePath heads for the nearest unvisited safe cell.
type ShortestSafePath struct{}

func (ShortestSafePath) Name() string { return "shortest-safe-path" }

// Decide picks the frontier cell with the shortest BFS route, ties broken in scan order.
func (ShortestSafePath) Decide(pos world.Cell, kb knowledge.Reader) (Decision, error) {
	frontier := kb.UnvisitedSafeFrontier()
	if len(frontier) == 0 {
		return Decision{}, ErrNoDecision
	}
	target, plan, err := planner.Nearest(pos, frontier, kb.SafeCells())
	if err != nil {
		if errors.Is(err, planner.ErrUnreachable) {
			return Decision{}, ErrNoDecision
		}
		return Decision{}, err
	}
	return Decision{Target: target, Plan: plan}, nil
}

// Chooser picks an index in [0, n).
type Chooser interface {
	Intn(n int) int
}

// RiskAcceptingFallback steps into an unproven cell when nothing safe is
// left. Candidates are unvisited cells not known to be dangerous that border
// a safe cell the agent can reach.
type RiskAcceptingFallback struct {
	chooser Chooser
}

// NewRiskAcceptingFallback returns a fallback drawing from a seeded source.
func NewRiskAcceptingFallback(seed int64) *RiskAcceptingFallback {
	return &RiskAcceptingFallback{chooser: rand.New(rand.NewSource(seed))}
}

// NewRiskAcceptingFallbackWithChooser lets tests script the choice.
func NewRiskAcceptingFallbackWithChooser(c Chooser) *RiskAcceptingFallback {
	return &RiskAcceptingFallback{chooser: c}
}

func (f *RiskAcceptingFallback) Name() string { return "risk-accepting-fallback" }

// Candidates lists the cells the fallback may choose from, in scan order.
func (f *RiskAcceptingFallback) Candidates(pos world.Cell, kb knowledge.Reader) []world.Cell {
	safe := kb.SafeCells()
	reach := planner.Distances(pos, safe)

	out := world.NewCellSet()
	for c := range reach {
		for _, n := range c.Neighbors(kb.Size()) {
			if kb.IsVisited(n) || kb.IsKnownHazard(n) || safe.Has(n) {
				continue
			}
			out.Add(n)
		}
	}
	return out.Sorted()
}

// Decide draws one candidate and routes to it through the nearest safe
// cell bordering it.
func (f *RiskAcceptingFallback) Decide(pos world.Cell, kb knowledge.Reader) (Decision, error) {
	candidates := f.Candidates(pos, kb)
	if len(candidates) == 0 {
		return Decision{}, ErrNoDecision
	}
	target := candidates[f.chooser.Intn(len(candidates))]

	safe := kb.SafeCells()
	var entries []world.Cell
	for _, n := range target.Neighbors(kb.Size()) {
		if n == pos || safe.Has(n) {
			entries = append(entries, n)
		}
	}
	_, plan, err := planner.Nearest(pos, entries, safe)
	if err != nil {
		return Decision{}, err
	}
	plan = append(plan, target)
	return Decision{Target: target, Plan: plan, RiskAccepted: true}, nil
}
