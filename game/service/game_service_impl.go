package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/wumpusworld/game/agent"
	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/planner"
	"github.com/wricardo/mcp-training/wumpusworld/game/record"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// DefaultHistoryLimit is the page size used when none is given
const DefaultHistoryLimit = 20

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	ledger   Ledger
	observer Observer
	logger   *zap.Logger
	mu       sync.RWMutex
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLedger records every finished episode in l
func WithLedger(l Ledger) Option {
	return func(s *gameServiceImpl) { s.ledger = l }
}

// WithObserver notifies o after every completed turn or reset
func WithObserver(o Observer) Option {
	return func(s *gameServiceImpl) { s.observer = o }
}

// WithLogger attaches a logger to the service
func WithLogger(l *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(sess *Session) string {
	if sess.ConfigID != "" {
		return sess.ConfigID
	}
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == sess.Config.Name {
				return cfg.ConfigID
			}
		}
	}
	if sess.Config.Name == "" {
		return "default"
	}
	return sess.Config.Name
}

func (s *gameServiceImpl) info(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(sess),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Load configuration
	var config *engine.WorldConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			// Provide helpful error message with available options
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a short ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.ConfigID = configName
	if sess.ConfigID == "" {
		sess.ConfigID = s.getConfigID(sess)
	}
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist session", zap.String("session", sess.ID), zap.Error(err))
	}

	s.logger.Info("session created",
		zap.String("session", sess.ID),
		zap.String("config", sess.ConfigID),
		zap.Int64("seed", sess.Seed))

	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.Touch(sessionID)

	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// session fetches a session for a mutating call and marks it accessed
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.Touch(sessionID)
	return sess, nil
}

// Step runs up to turns autonomous agent turns (1 when turns <= 0)
func (s *gameServiceImpl) Step(ctx context.Context, sessionID string, turns int) (*TurnsResult, error) {
	if turns <= 0 {
		turns = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	result := &TurnsResult{RequestedTurns: turns}
	if turns > engine.MaxBulkSteps {
		turns = engine.MaxBulkSteps
		result.Truncated = true
		result.Limit = engine.MaxBulkSteps
	}
	return s.advance(ctx, sess, turns, result)
}

// Run lets the agent play until the episode ends or ctx is cancelled
func (s *gameServiceImpl) Run(ctx context.Context, sessionID string) (*TurnsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	return s.advance(ctx, sess, 0, &TurnsResult{})
}

// advance plays turns one at a time so the observer sees every snapshot.
// limit <= 0 means until the episode ends.
func (s *gameServiceImpl) advance(ctx context.Context, sess *Session, limit int, result *TurnsResult) (*TurnsResult, error) {
	eng := sess.Engine
	result.StartPos = eng.GetState().Agent.Position
	if eng.IsOver() {
		return nil, fmt.Errorf("session %s: %w", sess.ID, agent.ErrEpisodeOver)
	}

	for !eng.IsOver() && (limit <= 0 || len(result.Turns) < limit) {
		turns, err := eng.Run(ctx, 1)
		if err != nil && !errors.Is(err, ctx.Err()) {
			return nil, err
		}
		if len(turns) == 0 {
			result.StoppedReason = "Run cancelled"
			result.StopReasonCode = "cancelled"
			break
		}
		res := turns[0]
		sess.Log(ReplayStep)
		result.Turns = append(result.Turns, res)
		events := s.turnEvents(res)
		result.Events = append(result.Events, events...)
		s.afterTurn(ctx, sess, "turn", events)
	}

	state := eng.GetState()
	result.TurnsExecuted = len(result.Turns)
	if result.RequestedTurns == 0 {
		result.RequestedTurns = result.TurnsExecuted
	}
	result.Success = result.TurnsExecuted > 0
	result.GameState = state
	result.EndPos = state.Agent.Position
	result.GameOver = state.GameOver
	result.Outcome = string(state.Outcome)
	result.Message = state.Message
	result.Risk = state.Risk
	for _, t := range result.Turns {
		if t.RiskAccepted {
			result.RiskMoves++
		}
	}
	if state.GameOver && result.StopReasonCode == "" {
		result.StopReasonCode = string(state.Outcome)
		result.StoppedReason = state.Message
	}

	s.save(sess)
	return result, nil
}

// Move applies a driver-chosen move
func (s *gameServiceImpl) Move(ctx context.Context, sessionID, direction string) (*MoveResult, error) {
	d, err := world.ParseDirection(direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrIllegalAction, err)
	}
	return s.apply(ctx, sessionID, agent.Move(d))
}

// Act applies a driver-chosen action such as "turn_left", "forward", "grab"
// or "move:north"
func (s *gameServiceImpl) Act(ctx context.Context, sessionID, action string) (*MoveResult, error) {
	a, err := agent.ParseAction(action)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, sessionID, a)
}

func (s *gameServiceImpl) apply(ctx context.Context, sessionID string, action agent.Action) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	res, err := sess.Engine.Apply(action)
	if err != nil {
		return nil, err
	}
	sess.Log(action.String())

	events := s.turnEvents(res)
	s.afterTurn(ctx, sess, "turn", events)
	s.save(sess)

	state := sess.Engine.GetState()
	return &MoveResult{
		Success:   !res.Illegal,
		GameState: state,
		Message:   state.Message,
		Events:    events,
		Turn:      &res,
	}, nil
}

// Reset starts a new episode in the session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	sess.Log(ResetEntry(sess.Engine.Seed()))

	if s.observer != nil {
		s.observer.Publish(sess.ID, "reset", state, GameEvent{
			Type:      "reset",
			Message:   state.Message,
			Timestamp: time.Now(),
		})
	}
	s.save(sess)
	return state, nil
}

// GetGameState returns the current episode snapshot
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.Touch(sessionID)

	return sess.Engine.GetState(), nil
}

// GetTurnHistory returns paginated turn history across every episode of the
// session
func (s *gameServiceImpl) GetTurnHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetHistory()
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = DefaultHistoryLimit
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	turns := []engine.TurnRecord{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				turns = append(turns, history[i])
			}
		} else {
			turns = append(turns, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Turns:       turns,
		TotalTurns:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// QueryCell reports what the agent believes about a cell and how it would
// get there through proven-safe cells
func (s *gameServiceImpl) QueryCell(ctx context.Context, sessionID string, cell world.Cell) (*CellReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	kb := sess.Engine.Knowledge()
	if !cell.InBounds(kb.Size()) {
		return nil, fmt.Errorf("cell %s is outside the %dx%d grid: %w", cell, kb.Size(), kb.Size(), agent.ErrIllegalAction)
	}

	pos := sess.Engine.GetState().Agent.Position
	report := &CellReport{
		Cell:        cell,
		View:        engine.ViewCell(kb, cell, pos),
		Facts:       []knowledge.Fact{},
		Safe:        kb.IsSafe(cell),
		Visited:     kb.IsVisited(cell),
		KnownHazard: kb.IsKnownHazard(cell),
		Distance:    engine.UnreachableDistance,
	}
	for _, f := range kb.Facts() {
		if f.Cell == cell {
			report.Facts = append(report.Facts, f)
		}
	}

	safe := kb.SafeCells()
	safe.Add(cell)
	if path, err := planner.FindPath(pos, cell, safe); err == nil {
		report.Reachable = true
		report.Distance = path.Len()
		report.Path = path
	}

	return report, nil
}

// ListConfigs returns available world configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific world configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.WorldConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a world configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.WorldConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// ListEpisodes returns the most recent finished episodes
func (s *gameServiceImpl) ListEpisodes(ctx context.Context, limit int) (*EpisodeList, error) {
	if s.ledger == nil {
		return &EpisodeList{Episodes: []record.Episode{}, Stats: record.Stats{Outcomes: map[string]int{}}}, nil
	}
	episodes, err := s.ledger.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &EpisodeList{Episodes: episodes, Stats: stats}, nil
}

// afterTurn records a finished episode once and notifies the observer
func (s *gameServiceImpl) afterTurn(ctx context.Context, sess *Session, event string, events []GameEvent) {
	state := sess.Engine.GetState()

	if state.GameOver && state.Episode > sess.Recorded {
		sess.Recorded = state.Episode
		if s.ledger != nil {
			ep, err := s.ledger.Record(context.WithoutCancel(ctx), episodeRecord(sess, state))
			if err != nil {
				s.logger.Warn("failed to record episode", zap.String("session", sess.ID), zap.Error(err))
			} else {
				s.logger.Info("episode recorded",
					zap.String("session", sess.ID),
					zap.String("episode", ep.ID),
					zap.String("outcome", ep.Outcome),
					zap.Int("moves", ep.Moves))
			}
		}
	}

	if s.observer != nil {
		s.observer.Publish(sess.ID, event, state, events)
	}
}

func (s *gameServiceImpl) save(sess *Session) {
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist session", zap.String("session", sess.ID), zap.Error(err))
	}
}

func episodeRecord(sess *Session, state *engine.GameState) record.Episode {
	risk := 0
	for _, t := range state.TurnHistory {
		if t.RiskAccepted {
			risk++
		}
	}
	return record.Episode{
		ID:        state.EpisodeID,
		SessionID: sess.ID,
		Config:    sess.ConfigID,
		Seed:      state.Seed,
		Outcome:   string(state.Outcome),
		Turns:     state.Agent.Turn,
		Moves:     state.Agent.Moves,
		HasGoal:   state.Agent.HasGoal,
		Facts:     len(state.Facts),
		RiskMoves: risk,
	}
}

// turnEvents describes a turn for clients
func (s *gameServiceImpl) turnEvents(res agent.TurnResult) []GameEvent {
	now := time.Now()
	pos := res.State.Position
	events := []GameEvent{{
		Type:      "turn",
		Message:   fmt.Sprintf("Turn %d: %s, now at %s", res.Turn, res.Action, pos),
		Timestamp: now,
		Turn:      res.Turn,
		Position:  &pos,
		Phase:     res.Phase,
	}}

	if res.Illegal {
		events = append(events, GameEvent{
			Type:      "illegal",
			Message:   fmt.Sprintf("Illegal action %s", res.Action),
			Timestamp: now,
			Turn:      res.Turn,
			Position:  &pos,
		})
	}
	if res.RiskAccepted {
		events = append(events, GameEvent{
			Type:      "risk",
			Message:   fmt.Sprintf("Entered %s without proof that it is safe", pos),
			Timestamp: now,
			Turn:      res.Turn,
			Position:  &pos,
		})
	}
	if res.Action.Kind == agent.ActionGrab && !res.Illegal {
		events = append(events, GameEvent{
			Type:      "grab",
			Message:   fmt.Sprintf("Grabbed the goal at %s", pos),
			Timestamp: now,
			Turn:      res.Turn,
			Position:  &pos,
		})
	}
	if res.Contradiction != nil {
		events = append(events, GameEvent{
			Type:      "contradiction",
			Message:   res.Contradiction.Error(),
			Timestamp: now,
			Turn:      res.Turn,
		})
	}

	switch res.Outcome {
	case agent.OutcomeRunning:
	case agent.OutcomeWon:
		events = append(events, GameEvent{
			Type:      "victory",
			Message:   res.Message,
			Timestamp: now,
			Turn:      res.Turn,
			Phase:     res.Phase,
		})
	default:
		events = append(events, GameEvent{
			Type:      "game_over",
			Message:   res.Message,
			Timestamp: now,
			Turn:      res.Turn,
			Phase:     res.Phase,
		})
	}

	return events
}
