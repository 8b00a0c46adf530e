package agent

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/planner"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

const DefaultMaxTurns = 100

// Controller runs the perceive, infer, decide, act loop for one episode. It
// owns the knowledge base and the agent state; a fresh Controller is needed
// per episode.
type Controller struct {
	env      Environment
	kb       *knowledge.KnowledgeBase
	machine  *fsm
	state    AgentState
	primary  Strategy
	fallback Strategy
	maxTurns int
	logger   *zap.Logger

	lastPlan    planner.Plan
	lastAction  Action
	committed   planner.Plan
	pendingBump bool
	retreating  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxTurns bounds the episode length.
func WithMaxTurns(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxTurns = n
		}
	}
}

// WithFacing sets the initial heading.
func WithFacing(d world.Direction) Option {
	return func(c *Controller) {
		c.state.Facing = d
	}
}

// WithStrategy replaces the primary exploration strategy.
func WithStrategy(s Strategy) Option {
	return func(c *Controller) {
		c.primary = s
	}
}

// WithFallback sets the strategy used when the agent is stuck. A nil
// fallback makes the agent walk home and climb out instead.
func WithFallback(s Strategy) Option {
	return func(c *Controller) {
		c.fallback = s
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New starts an episode in env with an empty knowledge base.
func New(env Environment, opts ...Option) (*Controller, error) {
	if env == nil {
		return nil, errors.New("agent: nil environment")
	}
	machine, err := newFSM()
	if err != nil {
		return nil, err
	}
	c := &Controller{
		env:      env,
		kb:       knowledge.New(env.Size()),
		machine:  machine,
		primary:  ShortestSafePath{},
		fallback: NewRiskAcceptingFallback(1),
		maxTurns: DefaultMaxTurns,
		logger:   zap.NewNop(),
		state: AgentState{
			Position: env.Start(),
			Facing:   world.East,
			Alive:    true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns a copy of the agent state.
func (c *Controller) State() AgentState {
	return c.state
}

// Phase returns the current statechart phase.
func (c *Controller) Phase() Phase {
	return c.machine.Phase()
}

// Outcome classifies the episode so far.
func (c *Controller) Outcome() Outcome {
	return OutcomeOf(c.machine.Phase())
}

// Done reports whether the episode reached a terminal phase.
func (c *Controller) Done() bool {
	return c.machine.Phase().Terminal()
}

// Knowledge exposes the read-only query surface of the knowledge base.
func (c *Controller) Knowledge() knowledge.Reader {
	return c.kb
}

// MaxTurns returns the configured turn bound.
func (c *Controller) MaxTurns() int {
	return c.maxTurns
}

// Snapshot returns the presentation view of the current episode.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:       c.state,
		Phase:       c.Phase(),
		Outcome:     c.Outcome(),
		Facts:       c.kb.Facts(),
		Clauses:     c.kb.Clauses(),
		Frontier:    c.kb.UnvisitedSafeFrontier(),
		SafeCells:   c.kb.SafeCells().Sorted(),
		LastPlan:    append(planner.Plan(nil), c.lastPlan...),
		LastAction:  c.lastAction,
		Transitions: c.machine.Changes(),
	}
}

// Step runs one full cycle: perceive, infer, decide and act. Terminal
// outcomes are reported in the result, not as errors; the only error is
// ErrEpisodeOver.
func (c *Controller) Step() (TurnResult, error) {
	res, ok, err := c.begin()
	if !ok {
		return res, err
	}

	pos := c.state.Position
	switch {
	case res.Percept.Glitter && !c.state.HasGoal:
		c.grab(&res)
	case c.state.HasGoal && pos == c.env.Start():
		c.climb(&res)
	case c.state.HasGoal:
		c.goHome(&res, "returning")
	default:
		c.explore(&res)
	}
	return c.finish(res), nil
}

// Apply runs one cycle with a driver-chosen action in place of the
// controller's own decision. Impossible actions are rejected as illegal:
// the turn still counts and the next percept reports a bump.
func (c *Controller) Apply(a Action) (TurnResult, error) {
	res, ok, err := c.begin()
	if !ok {
		return res, err
	}
	res.Strategy = "manual"

	switch a.Kind {
	case ActionMove:
		c.move(&res, a, a.Direction, false)
	case ActionForward:
		c.move(&res, a, c.state.Facing, false)
	case ActionTurnLeft:
		c.turn(&res, a, c.state.Facing.Left())
	case ActionTurnRight:
		c.turn(&res, a, c.state.Facing.Right())
	case ActionGrab:
		if !res.Percept.Glitter || c.state.HasGoal {
			c.illegal(&res, a, "nothing to grab here")
			break
		}
		c.grab(&res)
	case ActionClimb:
		if c.state.Position != c.env.Start() {
			c.illegal(&res, a, "can only climb out from the start cell")
			break
		}
		c.climb(&res)
	default:
		c.illegal(&res, a, "unknown action")
	}
	return c.finish(res), nil
}

// begin starts a turn: perceives and integrates. ok is false when the turn
// ended before a decision was needed.
func (c *Controller) begin() (TurnResult, bool, error) {
	if c.Done() {
		return c.result(), false, fmt.Errorf("%w: %s", ErrEpisodeOver, c.Outcome())
	}
	c.state.Turn++
	res := TurnResult{Turn: c.state.Turn}

	pos := c.state.Position
	res.Percept = c.env.Percept(pos)
	res.Percept.Bump = c.pendingBump
	c.pendingBump = false

	added, err := c.kb.Integrate(pos, res.Percept)
	res.NewFacts = added
	if err != nil {
		var ce *knowledge.ContradictionError
		if !errors.As(err, &ce) {
			return res, false, err
		}
		c.fire(EventContradict)
		res.Contradiction = ce
		res.Message = ce.Error()
		c.logger.Warn("knowledge contradiction",
			zap.Stringer("cell", ce.Cell),
			zap.Stringer("existing", ce.Existing),
			zap.Stringer("derived", ce.Derived))
		return c.finish(res), false, nil
	}
	return res, true, nil
}

func (c *Controller) grab(res *TurnResult) {
	c.env.TakeGoal()
	c.state.HasGoal = true
	c.state.Moves++
	c.committed = nil
	c.retreating = false
	res.Action = Grab()
	res.Message = fmt.Sprintf("grabbed the goal at %s", c.state.Position)
	c.fire(EventGoal)
	if c.state.Position == c.env.Start() {
		c.fire(EventArrive)
	}
	c.logger.Info("goal grabbed", zap.Stringer("cell", c.state.Position), zap.Int("turn", c.state.Turn))
}

func (c *Controller) climb(res *TurnResult) {
	c.state.Moves++
	res.Action = Climb()
	if c.state.HasGoal {
		if c.Phase() == Retrieving {
			c.fire(EventArrive)
		}
		c.fire(EventClimb)
		res.Message = "climbed out with the goal"
		return
	}
	c.fire(EventAbandon)
	res.Message = "climbed out without the goal"
}

func (c *Controller) explore(res *TurnResult) {
	decision, err := c.primary.Decide(c.state.Position, c.kb)
	if err == nil {
		if c.Phase() == Stuck {
			c.fire(EventResume)
		}
		c.committed = nil
		c.retreating = false
		res.Strategy = c.primary.Name()
		c.follow(res, decision.Plan, false)
		return
	}
	if !errors.Is(err, ErrNoDecision) {
		c.logger.Warn("primary strategy failed", zap.Error(err))
	}

	if c.Phase() == Exploring {
		c.fire(EventStuck)
		c.logger.Info("no safe unvisited cell left", zap.Stringer("cell", c.state.Position), zap.Int("turn", c.state.Turn))
	}

	if c.retreating {
		c.goHome(res, "abandoning")
		return
	}

	if target, ok := c.committed.Target(); ok && len(c.committed) > 1 &&
		c.committed[0] == c.state.Position && !c.kb.IsKnownHazard(target) {
		res.Strategy = c.fallback.Name()
		c.follow(res, c.committed, true)
		return
	}

	if c.fallback != nil {
		decision, err = c.fallback.Decide(c.state.Position, c.kb)
		if err == nil {
			c.committed = decision.Plan
			res.Strategy = c.fallback.Name()
			c.logger.Info("accepting risk",
				zap.Stringer("target", decision.Target),
				zap.Int("plan_len", decision.Plan.Len()))
			c.follow(res, c.committed, true)
			return
		}
		if !errors.Is(err, ErrNoDecision) {
			c.logger.Warn("fallback strategy failed", zap.Error(err))
		}
	}

	c.retreating = true
	c.goHome(res, "abandoning")
}

// goHome walks toward the start cell through safe cells and climbs once there.
func (c *Controller) goHome(res *TurnResult, reason string) {
	start := c.env.Start()
	if c.state.Position == start {
		c.climb(res)
		return
	}
	plan, err := planner.FindPath(c.state.Position, start, c.kb.SafeCells())
	if err != nil {
		// Every visited cell is safe, so the way back always exists.
		c.logger.Error("no way home", zap.Error(err), zap.Stringer("cell", c.state.Position))
		c.fire(EventAbandon)
		res.Message = "no safe way home"
		return
	}
	res.Strategy = reason
	c.follow(res, plan, false)
}

// follow executes the first step of plan. When committed is set the
// remaining steps are kept for the next turn.
func (c *Controller) follow(res *TurnResult, plan planner.Plan, committed bool) {
	res.Plan = append(planner.Plan(nil), plan...)
	c.lastPlan = res.Plan

	next, ok := plan.Next()
	if !ok {
		res.Message = "nothing to do"
		return
	}
	d, _ := c.state.Position.DirectionTo(next)
	risky := !c.kb.IsSafe(next)
	if committed {
		c.committed = plan[1:]
	}
	c.move(res, Move(d), d, risky)
}

// turn changes the heading without leaving the cell.
func (c *Controller) turn(res *TurnResult, a Action, facing world.Direction) {
	c.state.Facing = facing
	c.state.Moves++
	res.Action = a
	res.Message = fmt.Sprintf("turned to face %s", facing)
}

// move executes a stepping action a toward d. Leaving the grid is illegal.
func (c *Controller) move(res *TurnResult, a Action, d world.Direction, risky bool) {
	next := c.state.Position.Step(d)
	if !next.InBounds(c.env.Size()) {
		c.illegal(res, a, fmt.Sprintf("%s leads off the grid", d))
		return
	}

	from := c.state.Position
	c.state.Facing = d
	c.state.Position = next
	c.state.Moves++
	res.Action = a
	res.RiskAccepted = risky
	res.Message = fmt.Sprintf("moved %s to %s", d, next)

	if c.env.Contents(next).Deadly() {
		c.state.Alive = false
		c.committed = nil
		c.fire(EventDie)
		res.Message = fmt.Sprintf("entered %s and died", next)
		c.logger.Info("agent died", zap.Stringer("cell", next), zap.Bool("risk_accepted", risky))
		return
	}

	start := c.env.Start()
	switch {
	case c.state.HasGoal && next == start && c.Phase() == Retrieving:
		c.fire(EventArrive)
	case c.state.HasGoal && from == start && c.Phase() == Escaping:
		c.fire(EventDepart)
	}
}

func (c *Controller) illegal(res *TurnResult, a Action, why string) {
	c.state.Moves++
	c.pendingBump = a.Steps()
	res.Action = a
	res.Illegal = true
	res.Message = fmt.Sprintf("%s rejected: %s", a, why)
	c.logger.Debug("illegal action", zap.Stringer("action", a), zap.String("reason", why))
}

func (c *Controller) fire(e Event) {
	if !c.machine.Can(e) {
		return
	}
	if _, err := c.machine.Fire(e, c.state.Turn); err != nil {
		c.logger.Error("phase transition failed", zap.String("event", string(e)), zap.Error(err))
	}
}

func (c *Controller) result() TurnResult {
	return TurnResult{
		Turn:    c.state.Turn,
		Phase:   c.Phase(),
		Outcome: c.Outcome(),
		State:   c.state,
		Action:  Action{Kind: ActionNone},
	}
}

func (c *Controller) finish(res TurnResult) TurnResult {
	if res.Action.Kind == "" {
		res.Action = Action{Kind: ActionNone}
	}
	c.lastAction = res.Action
	if !c.Done() && c.state.Turn >= c.maxTurns {
		c.fire(EventTimeout)
		limit := fmt.Sprintf("turn limit %d reached", c.maxTurns)
		if res.Message == "" {
			res.Message = limit
		} else {
			res.Message += "; " + limit
		}
		c.logger.Info("episode timed out", zap.Int("turns", c.state.Turn), zap.Int("moves", c.state.Moves))
	}
	res.Phase = c.Phase()
	res.Outcome = c.Outcome()
	res.State = c.state
	if res.Phase.Terminal() {
		c.logger.Info("episode finished",
			zap.String("outcome", string(res.Outcome)),
			zap.Int("turns", c.state.Turn),
			zap.Int("moves", c.state.Moves))
	}
	return res
}
