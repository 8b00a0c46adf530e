package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/record"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// ErrConfigNotFound is returned by config managers for unknown config names
var ErrConfigNotFound = errors.New("configuration not found")

// GameService defines all episode-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Agent turns
	Step(ctx context.Context, sessionID string, turns int) (*TurnsResult, error)
	Run(ctx context.Context, sessionID string) (*TurnsResult, error)

	// Driver-chosen actions
	Move(ctx context.Context, sessionID, direction string) (*MoveResult, error)
	Act(ctx context.Context, sessionID, action string) (*MoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Episode State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetTurnHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	QueryCell(ctx context.Context, sessionID string, cell world.Cell) (*CellReport, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.WorldConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.WorldConfig) error

	// Ledger
	ListEpisodes(ctx context.Context, limit int) (*EpisodeList, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.WorldConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	Touch(id string) error
	Save(id string) error
}

// ConfigManager handles world configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.WorldConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.WorldConfig
	SaveConfig(name string, config *engine.WorldConfig) error
}

// Ledger stores finished episodes
type Ledger interface {
	Record(ctx context.Context, ep record.Episode) (record.Episode, error)
	List(ctx context.Context, limit int) ([]record.Episode, error)
	Stats(ctx context.Context) (record.Stats, error)
}

// Observer receives a snapshot after every completed turn or reset. It must
// not block.
type Observer interface {
	Publish(sessionID, event string, state *engine.GameState, data any)
}

// Replay log entries. A session's log replayed on a fresh engine seeded with
// the session seed reproduces its state exactly.
const (
	ReplayStep        = "step"
	ReplayResetPrefix = "reset:"
)

// ResetEntry is the replay log entry for a reset onto seed
func ResetEntry(seed int64) string {
	return ReplayResetPrefix + strconv.FormatInt(seed, 10)
}

// Session represents an active game session
type Session struct {
	ID             string
	ConfigID       string
	Engine         *engine.GameEngine
	Config         *engine.WorldConfig
	Seed           int64    // seed of the first episode
	Replay         []string // driver calls since creation
	Recorded       int      // last episode number written to the ledger
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

// Log appends a replay entry
func (s *Session) Log(entry string) {
	s.Replay = append(s.Replay, entry)
}
