package service

import (
	"time"

	"github.com/wricardo/mcp-training/wumpusworld/game/agent"
	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/record"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigName     string              `json:"config_name"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	GameState      *engine.GameState   `json:"game_state"`
	GameConfig     *engine.WorldConfig `json:"game_config"`
}

// MoveResult contains the result of a single driver-chosen action
type MoveResult struct {
	Success   bool              `json:"success"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
	Turn      *agent.TurnResult `json:"turn,omitempty"`
}

// TurnsResult contains the result of one or more autonomous agent turns
type TurnsResult struct {
	// Summary
	TurnsExecuted  int               `json:"turns_executed"`
	RequestedTurns int               `json:"requested_turns"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // won|dead|timeout|contradiction|abandoned|cancelled
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartPos world.Cell `json:"start_pos"`
	EndPos   world.Cell `json:"end_pos"`

	// Per-turn trace (only for this call)
	Turns []agent.TurnResult `json:"turns,omitempty"`

	// Final status aids
	GameOver  bool   `json:"game_over"`
	Outcome   string `json:"outcome"`
	Message   string `json:"message,omitempty"`
	RiskMoves int    `json:"risk_moves"`
	Risk      string `json:"risk,omitempty"`
}

// GameEvent represents an event that occurred during an episode
type GameEvent struct {
	Type      string      `json:"type"` // "turn", "risk", "grab", "phase", "illegal", "contradiction", "victory", "game_over", "reset"
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Turn      int         `json:"turn,omitempty"`
	Position  *world.Cell `json:"position,omitempty"`
	Phase     agent.Phase `json:"phase,omitempty"`
}

// HistoryOptions configures turn history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated turn history
type HistoryResponse struct {
	Turns       []engine.TurnRecord `json:"turns"`
	TotalTurns  int                 `json:"total_turns"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// CellReport is everything the agent believes about one cell
type CellReport struct {
	Cell        world.Cell           `json:"cell"`
	View        engine.KnowledgeView `json:"view"`
	Facts       []knowledge.Fact     `json:"facts"`
	Safe        bool                 `json:"safe"`
	Visited     bool                 `json:"visited"`
	KnownHazard bool                 `json:"known_hazard"`
	Reachable   bool                 `json:"reachable"`
	Distance    int                  `json:"distance"` // BFS steps over safe cells, engine.UnreachableDistance when unreachable
	Path        []world.Cell         `json:"path,omitempty"`
}

// ConfigInfo provides information about a world configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Size        int    `json:"size"`
	Randomize   bool   `json:"randomize"`
	Pits        int    `json:"pits"`
	MaxTurns    int    `json:"max_turns"`
}

// EpisodeList is a page of the episode ledger with its aggregate stats
type EpisodeList struct {
	Episodes []record.Episode `json:"episodes"`
	Stats    record.Stats     `json:"stats"`
}
