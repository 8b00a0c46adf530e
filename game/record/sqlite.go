package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("record: store closed")

// Episode is one finished episode as kept in the ledger.
type Episode struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Config     string    `json:"config"`
	Seed       int64     `json:"seed"`
	Outcome    string    `json:"outcome"`
	Turns      int       `json:"turns"`
	Moves      int       `json:"moves"`
	HasGoal    bool      `json:"has_goal"`
	Facts      int       `json:"facts"`
	RiskMoves  int       `json:"risk_moves"`
	FinishedAt time.Time `json:"finished_at"`
}

// Stats summarizes the ledger.
type Stats struct {
	Episodes  int            `json:"episodes"`
	Outcomes  map[string]int `json:"outcomes"`
	WinRate   float64        `json:"win_rate"`
	AvgMoves  float64        `json:"avg_moves"`
	RiskMoves int            `json:"risk_moves"`
}

// SQLiteStore persists finished episodes in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the ledger at path. The special path
// ":memory:" keeps the ledger in memory.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS episodes (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			config TEXT NOT NULL,
			seed INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			turns INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			has_goal INTEGER NOT NULL,
			facts INTEGER NOT NULL,
			risk_moves INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS episodes_finished ON episodes(finished_at);`,
		`CREATE INDEX IF NOT EXISTS episodes_session ON episodes(session_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Record stores a finished episode. A missing ID is filled with a new UUID
// and a zero FinishedAt with the current time; the stored values are
// returned.
func (s *SQLiteStore) Record(ctx context.Context, ep Episode) (Episode, error) {
	if s.db == nil {
		return ep, ErrClosed
	}
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.FinishedAt.IsZero() {
		ep.FinishedAt = time.Now()
	}
	ep.FinishedAt = ep.FinishedAt.UTC().Truncate(time.Millisecond)

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO episodes(id,session_id,config,seed,outcome,turns,moves,has_goal,facts,risk_moves,finished_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		ep.ID, ep.SessionID, ep.Config, ep.Seed, ep.Outcome, ep.Turns, ep.Moves,
		boolInt(ep.HasGoal), ep.Facts, ep.RiskMoves, ep.FinishedAt.UnixMilli())
	if err != nil {
		return ep, fmt.Errorf("record episode %s: %w", ep.ID, err)
	}
	return ep, nil
}

// List returns the most recently finished episodes first. limit <= 0 means
// all of them.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Episode, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,session_id,config,seed,outcome,turns,moves,has_goal,facts,risk_moves,finished_at
		 FROM episodes ORDER BY finished_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	episodes := []Episode{}
	for rows.Next() {
		var (
			ep       Episode
			hasGoal  int
			finished int64
		)
		if err := rows.Scan(&ep.ID, &ep.SessionID, &ep.Config, &ep.Seed, &ep.Outcome,
			&ep.Turns, &ep.Moves, &hasGoal, &ep.Facts, &ep.RiskMoves, &finished); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		ep.HasGoal = hasGoal != 0
		ep.FinishedAt = time.UnixMilli(finished).UTC()
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

// Stats aggregates outcomes over every recorded episode.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Outcomes: map[string]int{}}
	if s.db == nil {
		return stats, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*), SUM(moves), SUM(risk_moves) FROM episodes GROUP BY outcome`)
	if err != nil {
		return stats, fmt.Errorf("episode stats: %w", err)
	}
	defer rows.Close()

	totalMoves := 0
	for rows.Next() {
		var (
			outcome     string
			count       int
			moves, risk int
		)
		if err := rows.Scan(&outcome, &count, &moves, &risk); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.Outcomes[outcome] = count
		stats.Episodes += count
		stats.RiskMoves += risk
		totalMoves += moves
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if stats.Episodes > 0 {
		stats.WinRate = float64(stats.Outcomes["won"]) / float64(stats.Episodes)
		stats.AvgMoves = float64(totalMoves) / float64(stats.Episodes)
	}
	return stats, nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
