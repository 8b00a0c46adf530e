package session

import (
	"time"

	"github.com/wricardo/mcp-training/wumpusworld/game/service"
)

// SessionPersistence stores sessions outside the process. Load must return
// a session whose engine is in the same state as the one saved.
type SessionPersistence interface {
	Save(session *service.Session) error
	Load(id string) (*service.Session, error)
	Delete(id string) error
	ListAll() ([]string, error)
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted sessions.
// The replay log is authoritative; the game state is kept for inspection only.
type PersistedSessionData struct {
	ID             string    `json:"id"`
	ConfigName     string    `json:"config_name"`
	Seed           int64     `json:"seed"`
	Replay         []string  `json:"replay"`
	Recorded       int       `json:"recorded"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	GameState      any       `json:"game_state,omitempty"`
}
