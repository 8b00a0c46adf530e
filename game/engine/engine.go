package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/wumpusworld/game/agent"
	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// Engine provides the main interface for episode operations
type Engine interface {
	// Episode lifecycle
	GetState() *GameState
	Reset() (*GameState, error)
	ResetWithSeed(seed int64) (*GameState, error)
	IsOver() bool
	Outcome() agent.Outcome
	EpisodeID() string
	Seed() int64

	// Turns
	Step() (agent.TurnResult, error)
	Apply(action agent.Action) (agent.TurnResult, error)
	Run(ctx context.Context, limit int) ([]agent.TurnResult, error)

	// Configuration
	GetConfig() *WorldConfig
	SetConfig(config *WorldConfig) error

	// History
	GetHistory() []TurnRecord
	GetLastTurn() *TurnRecord

	// Knowledge
	Knowledge() knowledge.Reader
}

// GameEngine implements the Engine interface. It is not safe for concurrent
// use; sessions serialize access to it.
type GameEngine struct {
	config *WorldConfig
	logger *zap.Logger

	world     *world.World
	ctrl      *agent.Controller
	episodeID string
	episode   int
	seed      int64
	message   string
	last      *agent.TurnResult

	history []TurnRecord
	current []TurnRecord

	startSeed *int64
}

// Option configures a GameEngine
type Option func(*GameEngine)

// WithLogger attaches a logger to the engine and its controllers
func WithLogger(l *zap.Logger) Option {
	return func(e *GameEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSeed makes the first episode use seed instead of the config's
func WithSeed(seed int64) Option {
	return func(e *GameEngine) {
		e.startSeed = &seed
	}
}

// NewEngine creates a new engine with the provided configuration and starts
// the first episode
func NewEngine(config *WorldConfig, opts ...Option) (*GameEngine, error) {
	if err := ValidateWorldConfig(config); err != nil {
		return nil, err
	}

	e := &GameEngine{
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	var err error
	if e.startSeed != nil {
		_, err = e.ResetWithSeed(*e.startSeed)
	} else {
		_, err = e.Reset()
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NewEngineWithDefaults creates a new engine with the classic world
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultWorldConfig())
	if err != nil {
		panic(fmt.Sprintf("engine: default config is invalid: %v", err))
	}
	return e
}

// Reset starts a fresh episode: new world, knowledge base, controller and
// episode ID. Randomized configs without a fixed seed draw a new seed.
func (e *GameEngine) Reset() (*GameState, error) {
	seed := e.config.Seed
	if seed == 0 && !e.config.Fixed() {
		seed = time.Now().UnixNano()
	}
	return e.ResetWithSeed(seed)
}

// ResetWithSeed starts a fresh episode with an explicit seed, reproducing
// the exact world and fallback choices of an earlier episode
func (e *GameEngine) ResetWithSeed(seed int64) (*GameState, error) {
	rng := rand.New(rand.NewSource(seed))
	w, err := world.Generate(e.config.Layout(), rng)
	if err != nil {
		return nil, fmt.Errorf("generate world: %w", err)
	}

	ctrl, err := agent.New(w,
		agent.WithMaxTurns(e.config.TurnLimit()),
		agent.WithFacing(e.config.StartFacing()),
		agent.WithFallback(agent.NewRiskAcceptingFallback(seed)),
		agent.WithLogger(e.logger.With(zap.String("config", e.config.Name))),
	)
	if err != nil {
		return nil, err
	}

	e.world = w
	e.ctrl = ctrl
	e.seed = seed
	e.episode++
	e.episodeID = uuid.NewString()
	e.last = nil
	e.current = []TurnRecord{}
	e.message = e.messages().Welcome

	e.logger.Debug("episode started",
		zap.String("episode_id", e.episodeID),
		zap.Int64("seed", seed),
		zap.Int("size", w.Size()))

	return e.GetState(), nil
}

// Step runs one agent turn
func (e *GameEngine) Step() (agent.TurnResult, error) {
	from := e.ctrl.State().Position
	res, err := e.ctrl.Step()
	if err != nil {
		return res, err
	}
	e.record(from, res)
	return res, nil
}

// Apply runs one turn with a driver-chosen action
func (e *GameEngine) Apply(action agent.Action) (agent.TurnResult, error) {
	from := e.ctrl.State().Position
	res, err := e.ctrl.Apply(action)
	if err != nil {
		return res, err
	}
	e.record(from, res)
	return res, nil
}

// Run steps the agent until the episode ends, limit turns have run (limit
// <= 0 means no limit), or ctx is cancelled. Cancellation is checked between
// turns; a turn in progress always completes.
func (e *GameEngine) Run(ctx context.Context, limit int) ([]agent.TurnResult, error) {
	var results []agent.TurnResult
	for !e.IsOver() {
		if limit > 0 && len(results) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.Step()
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *GameEngine) record(from world.Cell, res agent.TurnResult) {
	entry := TurnRecord{
		Number:        len(e.history) + 1,
		EpisodeID:     e.episodeID,
		Turn:          res.Turn,
		Action:        res.Action.String(),
		From:          from,
		To:            res.State.Position,
		Percept:       res.Percept,
		Phase:         res.Phase,
		Outcome:       res.Outcome,
		Strategy:      res.Strategy,
		RiskAccepted:  res.RiskAccepted,
		Illegal:       res.Illegal,
		NewFacts:      len(res.NewFacts),
		Moves:         res.State.Moves,
		Message:       res.Message,
		Contradiction: res.Contradiction,
		Timestamp:     time.Now().Unix(),
	}
	// Append to cumulative history (never cleared by reset) and to the
	// current episode
	e.history = append(e.history, entry)
	e.current = append(e.current, entry)
	e.last = &res
	e.message = e.describe(res)
}

func (e *GameEngine) describe(res agent.TurnResult) string {
	m := e.messages()
	switch res.Outcome {
	case agent.OutcomeWon:
		return fmt.Sprintf(m.Victory, res.State.Moves)
	case agent.OutcomeDead:
		return fmt.Sprintf(m.Death, res.State.Position)
	case agent.OutcomeTimeout:
		return fmt.Sprintf(m.Timeout, e.config.TurnLimit())
	case agent.OutcomeAbandoned:
		return m.Abandoned
	case agent.OutcomeContradiction:
		return fmt.Sprintf("%s: %s", m.Contradiction, res.Contradiction)
	}
	return res.Message
}

func (e *GameEngine) messages() Messages {
	m := e.config.Messages
	if m.Welcome == "" {
		m.Welcome = "A new cave. Find the goal and climb out at (1,1)."
	}
	if m.Victory == "" {
		m.Victory = "Escaped with the goal in %d moves!"
	}
	if m.Death == "" {
		m.Death = "The agent died at %s."
	}
	if m.Timeout == "" {
		m.Timeout = "Turn limit of %d reached."
	}
	if m.Abandoned == "" {
		m.Abandoned = "Nothing safe left to explore; the agent climbed out empty-handed."
	}
	if m.Contradiction == "" {
		m.Contradiction = "Knowledge contradiction"
	}
	return m
}

// GetState returns a snapshot of the current episode
func (e *GameEngine) GetState() *GameState {
	snap := e.ctrl.Snapshot()
	kb := e.ctrl.Knowledge()

	state := &GameState{
		EpisodeID:   e.episodeID,
		Episode:     e.episode,
		ConfigName:  e.config.Name,
		Size:        e.world.Size(),
		Seed:        e.seed,
		MaxTurns:    e.ctrl.MaxTurns(),
		Agent:       snap.State,
		Phase:       snap.Phase,
		Outcome:     snap.Outcome,
		Message:     e.message,
		GameOver:    snap.Phase.Terminal(),
		Victory:     snap.Outcome == agent.OutcomeWon,
		Facts:       snap.Facts,
		Clauses:     snap.Clauses,
		Knowledge:   BuildKnowledgeGrid(kb, snap.State.Position),
		Frontier:    snap.Frontier,
		LastPlan:    snap.LastPlan,
		LastAction:  snap.LastAction,
		Transitions: snap.Transitions,
		TurnHistory: append([]TurnRecord{}, e.current...),
		TotalTurns:  len(e.history),
	}
	if e.last != nil {
		state.LastPercept = e.last.Percept
	}
	if state.GameOver {
		state.Revealed = &RevealedWorld{
			Pits:   e.world.Pits(),
			Hazard: e.world.Hazard(),
			Goal:   e.world.Goal(),
		}
	}
	state.Risk = AnalyzeRisk(state, kb)
	return state
}

// BuildKnowledgeGrid renders the agent's beliefs as rows, northmost row first
func BuildKnowledgeGrid(kb knowledge.Reader, agentPos world.Cell) [][]KnowledgeView {
	n := kb.Size()
	grid := make([][]KnowledgeView, 0, n)
	for y := n; y >= 1; y-- {
		row := make([]KnowledgeView, 0, n)
		for x := 1; x <= n; x++ {
			c := world.Cell{X: x, Y: y}
			row = append(row, ViewCell(kb, c, agentPos))
		}
		grid = append(grid, row)
	}
	return grid
}

// ViewCell summarizes what the agent knows about c
func ViewCell(kb knowledge.Reader, c, agentPos world.Cell) KnowledgeView {
	v := KnowledgeView{Cell: c, Status: StatusUnknown, Agent: c == agentPos}
	switch {
	case kb.IsVisited(c):
		v.Status = StatusVisited
	case kb.IsSafe(c):
		v.Status = StatusSafe
	}
	if pit, ok := kb.Known(c, knowledge.Pit); ok && pit {
		v.Status = StatusPit
	}
	if hz, ok := kb.Known(c, knowledge.Hazard); ok && hz {
		v.Status = StatusHazard
	}
	v.Breeze, _ = kb.Known(c, knowledge.Breeze)
	v.Stench, _ = kb.Known(c, knowledge.Stench)
	v.Glitter, _ = kb.Known(c, knowledge.Goal)
	return v
}

// IsOver returns whether the episode reached a terminal outcome
func (e *GameEngine) IsOver() bool {
	return e.ctrl.Done()
}

// Outcome returns the episode outcome so far
func (e *GameEngine) Outcome() agent.Outcome {
	return e.ctrl.Outcome()
}

// EpisodeID returns the UUID of the current episode
func (e *GameEngine) EpisodeID() string {
	return e.episodeID
}

// Seed returns the seed the current world was generated with
func (e *GameEngine) Seed() int64 {
	return e.seed
}

// Knowledge exposes the current episode's knowledge base
func (e *GameEngine) Knowledge() knowledge.Reader {
	return e.ctrl.Knowledge()
}

// GetConfig returns the current world configuration
func (e *GameEngine) GetConfig() *WorldConfig {
	return e.config
}

// SetConfig sets a new world configuration and starts a new episode
func (e *GameEngine) SetConfig(config *WorldConfig) error {
	if err := ValidateWorldConfig(config); err != nil {
		return err
	}
	prev := e.config
	e.config = config
	if _, err := e.Reset(); err != nil {
		e.config = prev
		return err
	}
	return nil
}

// GetHistory returns the turn history of every episode played
func (e *GameEngine) GetHistory() []TurnRecord {
	return e.history
}

// GetLastTurn returns the last turn played, or nil if none
func (e *GameEngine) GetLastTurn() *TurnRecord {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// BulkStep runs up to n turns, stopping early when the episode ends
func (e *GameEngine) BulkStep(n int) ([]agent.TurnResult, error) {
	if n > MaxBulkSteps {
		n = MaxBulkSteps
	}
	return e.Run(context.Background(), n)
}
