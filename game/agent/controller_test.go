package agent

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/planner"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

func cell(x, y int) world.Cell {
	return world.Cell{X: x, Y: y}
}

// scenarioWorld: hazard (3,1), goal (2,3), pits (3,3) and (4,4).
func scenarioWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(4, []world.Cell{cell(3, 3), cell(4, 4)}, cell(3, 1), cell(2, 3))
	require.NoError(t, err)
	return w
}

// stuckWorld: the start cell is breezy, so nothing is provably safe.
func stuckWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(4, []world.Cell{cell(2, 1)}, cell(4, 4), cell(1, 3))
	require.NoError(t, err)
	return w
}

type fixedChooser int

func (f fixedChooser) Intn(n int) int {
	return int(f) % n
}

func runToEnd(t *testing.T, c *Controller) []TurnResult {
	t.Helper()
	var results []TurnResult
	for i := 0; i < 1000 && !c.Done(); i++ {
		res, err := c.Step()
		require.NoError(t, err)
		results = append(results, res)
	}
	require.True(t, c.Done(), "episode did not finish")
	return results
}

func TestController_EndToEndScenario(t *testing.T) {
	c, err := New(scenarioWorld(t), WithFacing(world.East))
	require.NoError(t, err)

	var (
		results  []TurnResult
		grabTurn int
		homeDist int
	)
	for !c.Done() {
		res, err := c.Step()
		require.NoError(t, err)
		results = append(results, res)
		if res.Action.Kind == ActionGrab {
			grabTurn = res.Turn
			plan, err := planner.FindPath(res.State.Position, world.Start, c.Knowledge().SafeCells())
			require.NoError(t, err)
			homeDist = plan.Len()
		}
		require.Less(t, len(results), 100)
	}

	var actions []string
	for _, r := range results {
		actions = append(actions, r.Action.String())
		assert.False(t, r.RiskAccepted, "turn %d took a risk", r.Turn)
	}
	assert.Equal(t, []string{
		"move:north", "move:north", "move:north", "move:east", "move:south",
		"grab",
		"move:south", "move:south", "move:west",
		"climb",
	}, actions)

	last := results[len(results)-1]
	assert.Equal(t, Won, last.Phase)
	assert.Equal(t, OutcomeWon, last.Outcome)
	assert.Equal(t, world.Start, last.State.Position)
	assert.True(t, last.State.HasGoal)
	assert.True(t, last.State.Alive)
	assert.Equal(t, 10, last.State.Moves)

	require.Equal(t, 6, grabTurn)
	assert.Equal(t, cell(2, 3), results[grabTurn-1].State.Position)
	returnMoves := 0
	for _, r := range results[grabTurn:] {
		if r.Action.Kind == ActionMove {
			returnMoves++
		}
	}
	assert.Equal(t, homeDist, returnMoves, "return leg must be BFS-optimal")
	assert.Equal(t, 3, returnMoves)

	phases := []Phase{}
	for _, r := range results {
		phases = append(phases, r.Phase)
	}
	assert.Equal(t, []Phase{
		Exploring, Exploring, Exploring, Exploring, Exploring,
		Retrieving, Retrieving, Retrieving, Escaping, Won,
	}, phases)

	snap := c.Snapshot()
	assert.Equal(t, Won, snap.Phase)
	assert.Equal(t, Climb(), snap.LastAction)
	require.NotEmpty(t, snap.Transitions)
	assert.Equal(t, PhaseChange{Turn: 10, From: Escaping, To: Won, Event: EventClimb}, snap.Transitions[len(snap.Transitions)-1])

	_, err = c.Step()
	assert.ErrorIs(t, err, ErrEpisodeOver)
}

func TestController_FactsAreMonotonic(t *testing.T) {
	c, err := New(scenarioWorld(t))
	require.NoError(t, err)

	prev := []knowledge.Fact{}
	for !c.Done() {
		_, err := c.Step()
		require.NoError(t, err)
		facts := c.Knowledge().Facts()
		require.GreaterOrEqual(t, len(facts), len(prev))
		assert.Equal(t, prev, facts[:len(prev)])
		prev = facts
	}
}

func TestController_StuckScenarioAcceptsRisk(t *testing.T) {
	c, err := New(stuckWorld(t), WithFallback(NewRiskAcceptingFallbackWithChooser(fixedChooser(0))))
	require.NoError(t, err)

	first, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, Stuck, first.Phase)
	assert.True(t, first.RiskAccepted)
	assert.Equal(t, "risk-accepting-fallback", first.Strategy)
	assert.Equal(t, Move(world.North), first.Action)
	assert.Equal(t, cell(1, 2), first.State.Position)

	second, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, Exploring, second.Phase, "new safe cells resume exploration")
	assert.False(t, second.RiskAccepted)

	results := append([]TurnResult{first, second}, runToEnd(t, c)...)
	last := results[len(results)-1]
	assert.Equal(t, OutcomeWon, last.Outcome)
	assert.Equal(t, 6, last.State.Moves)

	risky := 0
	for _, r := range results {
		if r.RiskAccepted {
			risky++
		}
	}
	assert.Equal(t, 1, risky)
}

func TestController_FallbackIntoPitDies(t *testing.T) {
	c, err := New(stuckWorld(t), WithFallback(NewRiskAcceptingFallbackWithChooser(fixedChooser(1))))
	require.NoError(t, err)

	res, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, Move(world.East), res.Action)
	assert.True(t, res.RiskAccepted)
	assert.Equal(t, Dead, res.Phase)
	assert.Equal(t, OutcomeDead, res.Outcome)
	assert.False(t, res.State.Alive)
}

func TestController_NoFallbackAbandons(t *testing.T) {
	c, err := New(stuckWorld(t), WithFallback(nil))
	require.NoError(t, err)

	res, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, Climb(), res.Action)
	assert.Equal(t, Abandoned, res.Phase)
	assert.Equal(t, OutcomeAbandoned, res.Outcome)
	assert.False(t, res.State.HasGoal)

	snap := c.Snapshot()
	require.Len(t, snap.Transitions, 2)
	assert.Equal(t, EventStuck, snap.Transitions[0].Event)
	assert.Equal(t, EventAbandon, snap.Transitions[1].Event)
}

func TestController_Timeout(t *testing.T) {
	c, err := New(scenarioWorld(t), WithMaxTurns(3))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		res, err := c.Step()
		require.NoError(t, err)
		assert.Equal(t, OutcomeRunning, res.Outcome)
	}

	// The cycle that reaches the bound ends the episode
	res, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, TimedOut, res.Phase)
	assert.Equal(t, OutcomeTimeout, res.Outcome)
	assert.Equal(t, ActionMove, res.Action.Kind)
	assert.Equal(t, 3, res.State.Turn)
	assert.Contains(t, res.Message, "turn limit 3 reached")
	assert.True(t, c.Done())
	assert.Equal(t, TimedOut, c.Snapshot().Phase)

	_, err = c.Step()
	assert.ErrorIs(t, err, ErrEpisodeOver)
}

func TestController_WinOnLastTurnIsNotTimeout(t *testing.T) {
	// Grab at the start cell and climb on the final allowed turn
	w, err := world.New(4, nil, cell(4, 4), world.Start)
	require.NoError(t, err)
	c, err := New(w, WithMaxTurns(2))
	require.NoError(t, err)

	res, err := c.Step()
	require.NoError(t, err)
	require.Equal(t, ActionGrab, res.Action.Kind)

	res, err = c.Step()
	require.NoError(t, err)
	assert.Equal(t, ActionClimb, res.Action.Kind)
	assert.Equal(t, OutcomeWon, res.Outcome)
}

func TestController_TurnsAndForward(t *testing.T) {
	c, err := New(scenarioWorld(t), WithFacing(world.East))
	require.NoError(t, err)

	res, err := c.Apply(TurnLeft())
	require.NoError(t, err)
	assert.False(t, res.Illegal)
	assert.Equal(t, ActionTurnLeft, res.Action.Kind)
	assert.Equal(t, world.North, res.State.Facing)
	assert.Equal(t, world.Start, res.State.Position)
	assert.Equal(t, 1, res.State.Moves)

	res, err = c.Apply(Forward())
	require.NoError(t, err)
	assert.False(t, res.Illegal)
	assert.Equal(t, ActionForward, res.Action.Kind)
	assert.Equal(t, cell(1, 2), res.State.Position)
	assert.Equal(t, world.North, res.State.Facing)
	assert.Equal(t, 2, res.State.Moves)

	res, err = c.Apply(TurnRight())
	require.NoError(t, err)
	assert.Equal(t, world.East, res.State.Facing)

	res, err = c.Apply(TurnRight())
	require.NoError(t, err)
	assert.Equal(t, world.South, res.State.Facing)

	res, err = c.Apply(Forward())
	require.NoError(t, err)
	assert.Equal(t, world.Start, res.State.Position)
	assert.Equal(t, 5, res.State.Moves)
	assert.Equal(t, 5, res.State.Turn)
	assert.Equal(t, Exploring, res.Phase)
}

func TestController_ForwardOffGridBumps(t *testing.T) {
	c, err := New(scenarioWorld(t), WithFacing(world.South))
	require.NoError(t, err)

	res, err := c.Apply(Forward())
	require.NoError(t, err)
	assert.True(t, res.Illegal)
	assert.Equal(t, ActionForward, res.Action.Kind)
	assert.Equal(t, world.Start, res.State.Position)
	assert.Equal(t, 1, res.State.Moves)

	res, err = c.Apply(TurnLeft())
	require.NoError(t, err)
	assert.True(t, res.Percept.Bump)
	assert.Equal(t, world.East, res.State.Facing)

	res, err = c.Step()
	require.NoError(t, err)
	assert.False(t, res.Percept.Bump, "turning never bumps")
}

func TestController_ForwardIntoHazardDies(t *testing.T) {
	c, err := New(scenarioWorld(t), WithFacing(world.East))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = c.Apply(Forward())
		require.NoError(t, err)
	}
	assert.Equal(t, cell(3, 1), c.State().Position)
	assert.Equal(t, OutcomeDead, c.Outcome())
}

func TestController_IllegalMoveBumps(t *testing.T) {
	c, err := New(scenarioWorld(t))
	require.NoError(t, err)

	res, err := c.Apply(Move(world.West))
	require.NoError(t, err)
	assert.True(t, res.Illegal)
	assert.Equal(t, world.Start, res.State.Position)
	assert.Equal(t, 1, res.State.Moves)
	assert.Equal(t, Exploring, res.Phase)

	res, err = c.Step()
	require.NoError(t, err)
	assert.True(t, res.Percept.Bump)
	assert.False(t, res.Illegal)
	assert.Equal(t, 2, res.State.Moves)

	res, err = c.Step()
	require.NoError(t, err)
	assert.False(t, res.Percept.Bump, "bump belongs to the turn after the rejected move only")
}

func TestController_ApplyRejectsImpossibleActions(t *testing.T) {
	c, err := New(scenarioWorld(t))
	require.NoError(t, err)

	res, err := c.Apply(Grab())
	require.NoError(t, err)
	assert.True(t, res.Illegal)

	_, err = c.Apply(Move(world.North))
	require.NoError(t, err)

	res, err = c.Apply(Climb())
	require.NoError(t, err)
	assert.True(t, res.Illegal)
	assert.Equal(t, cell(1, 2), res.State.Position)

	res, err = c.Step()
	require.NoError(t, err)
	assert.False(t, res.Percept.Bump, "only rejected moves bump")
}

func TestController_ApplyClimbWithoutGoalAbandons(t *testing.T) {
	c, err := New(scenarioWorld(t))
	require.NoError(t, err)

	res, err := c.Apply(Climb())
	require.NoError(t, err)
	assert.False(t, res.Illegal)
	assert.Equal(t, OutcomeAbandoned, res.Outcome)
}

func TestController_ApplyIntoHazardDies(t *testing.T) {
	c, err := New(scenarioWorld(t))
	require.NoError(t, err)

	_, err = c.Apply(Move(world.East))
	require.NoError(t, err)
	res, err := c.Apply(Move(world.East))
	require.NoError(t, err)
	assert.Equal(t, cell(3, 1), res.State.Position)
	assert.Equal(t, OutcomeDead, res.Outcome)
}

// lyingEnv flips the breeze reading at the start cell after the first visit.
type lyingEnv struct {
	*world.World
	visits map[world.Cell]int
}

func (e *lyingEnv) Percept(c world.Cell) world.Percept {
	e.visits[c]++
	p := e.World.Percept(c)
	if c == world.Start && e.visits[c] > 1 {
		p.Breeze = !p.Breeze
	}
	return p
}

func TestController_ContradictionIsTerminal(t *testing.T) {
	env := &lyingEnv{World: scenarioWorld(t), visits: map[world.Cell]int{}}
	c, err := New(env)
	require.NoError(t, err)

	_, err = c.Apply(Move(world.North))
	require.NoError(t, err)
	_, err = c.Apply(Move(world.South))
	require.NoError(t, err)

	res, err := c.Step()
	require.NoError(t, err, "contradictions are outcomes, not errors")
	assert.Equal(t, Contradicted, res.Phase)
	assert.Equal(t, OutcomeContradiction, res.Outcome)
	require.NotNil(t, res.Contradiction)
	assert.Equal(t, world.Start, res.Contradiction.Cell)
	assert.Equal(t, knowledge.Breeze, res.Contradiction.Existing.Predicate)
	assert.False(t, res.Contradiction.Existing.Polarity)
	assert.True(t, res.Contradiction.Derived.Polarity)
	assert.Equal(t, ActionNone, res.Action.Kind)

	_, err = c.Step()
	assert.ErrorIs(t, err, ErrEpisodeOver)
}

func TestController_SafeMovesNeverKill(t *testing.T) {
	for seed := int64(1); seed <= 60; seed++ {
		rng := rand.New(rand.NewSource(seed))
		w, err := world.Generate(world.Layout{Size: 4, PitProbability: 0.2, Randomize: true}, rng)
		require.NoError(t, err)

		c, err := New(w, WithFallback(NewRiskAcceptingFallback(seed)), WithMaxTurns(500))
		require.NoError(t, err)

		for _, res := range runToEnd(t, c) {
			if res.Outcome == OutcomeDead {
				assert.True(t, res.RiskAccepted, "seed %d: died on a move the agent believed safe", seed)
			}
			assert.Nil(t, res.Contradiction, "seed %d: sound world produced a contradiction", seed)
			if !res.RiskAccepted && res.Action.Kind == ActionMove {
				assert.True(t, c.Knowledge().IsSafe(res.State.Position), "seed %d turn %d", seed, res.Turn)
			}
		}
		assert.NotEqual(t, OutcomeTimeout, c.Outcome(), "seed %d", seed)
	}
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{"grab", Grab()},
		{" Climb ", Climb()},
		{"move:north", Move(world.North)},
		{"move east", Move(world.East)},
		{"left", Move(world.West)},
		{"s", Move(world.South)},
		{"turn_left", TurnLeft()},
		{"Turn Right", TurnRight()},
		{"turn-left", TurnLeft()},
		{"forward", Forward()},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseAction("shoot")
	assert.ErrorIs(t, err, ErrIllegalAction)

	for _, a := range []Action{TurnLeft(), TurnRight(), Forward(), Grab(), Climb(), Move(world.West)} {
		got, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got, "round trip of %s", a)
	}
}
