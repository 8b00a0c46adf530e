package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// idLength is the number of hex characters in a generated session ID
const idLength = 4

// Manager owns the live sessions. Each session carries its own engine, so
// the manager only guards the index; engines are never shared.
//
// With persistence attached, every session is written through on Create and
// evicted sessions are flushed before they leave memory. A later Get reloads
// them by replay.
type Manager struct {
	mu          sync.RWMutex
	live        map[string]*service.Session
	persistence SessionPersistence
	engineOpts  []engine.Option
	logger      *zap.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger attaches a logger to the manager
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithEngineOptions are applied to every engine the manager creates
func WithEngineOptions(opts ...engine.Option) Option {
	return func(m *Manager) {
		m.engineOpts = append(m.engineOpts, opts...)
	}
}

// NewManager creates an in-memory session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		live:   make(map[string]*service.Session),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewManagerWithPersistence creates a session manager backed by persistence
func NewManagerWithPersistence(persistence SessionPersistence, opts ...Option) *Manager {
	m := NewManager(opts...)
	m.persistence = persistence
	return m
}

// key normalizes IDs; lookups are case-insensitive
func key(id string) string {
	return strings.ToLower(id)
}

// newID returns a short random hex ID
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}

// Create starts a session on config. An empty id asks for a generated one.
func (m *Manager) Create(id string, config *engine.WorldConfig) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		for id == "" || m.known(id) {
			id = newID()
		}
	} else if m.known(id) {
		return nil, ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(config, m.engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	now := time.Now()
	sess := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		Seed:           eng.Seed(),
		Replay:         []string{},
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	m.live[key(id)] = sess

	m.logger.Debug("session created",
		zap.String("session", id),
		zap.String("config", config.Name),
		zap.Int64("seed", sess.Seed))

	m.writeThrough(sess)
	return sess, nil
}

// known reports whether id is live or on disk. Callers hold mu.
func (m *Manager) known(id string) bool {
	if _, ok := m.live[key(id)]; ok {
		return true
	}
	return m.persistence != nil && m.persistence.Exists(id)
}

// writeThrough saves sess when persistence is attached. Failures are
// logged; the live session stays authoritative.
func (m *Manager) writeThrough(sess *service.Session) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(sess); err != nil {
		m.logger.Warn("failed to persist session", zap.String("session", sess.ID), zap.Error(err))
	}
}

// Get returns a live session, reloading it by replay if it was evicted
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	sess, ok := m.live[key(id)]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have reloaded it first
	if sess, ok := m.live[key(id)]; ok {
		return sess, nil
	}
	m.live[key(id)] = loaded
	m.logger.Debug("session reloaded", zap.String("session", id), zap.Int("replayed", len(loaded.Replay)))
	return loaded, nil
}

// List returns the live sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*service.Session, 0, len(m.live))
	for _, sess := range m.live {
		out = append(out, sess)
	}
	return out
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, live := m.live[key(id)]
	delete(m.live, key(id))

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}
	if !live {
		return ErrSessionNotFound
	}
	return nil
}

// Evict drops a session from memory only
func (m *Manager) Evict(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live[key(id)]; !ok {
		return ErrSessionNotFound
	}
	delete(m.live, key(id))
	return nil
}

// Touch marks a session as used now
func (m *Manager) Touch(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.live[key(id)]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastAccessedAt = time.Now()
	return nil
}

// Save writes one live session to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	sess, ok := m.live[key(id)]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}
	return m.persistence.Save(sess)
}

// EvictIdle removes sessions not touched within maxAge from memory. With
// persistence they are flushed first and stay reloadable.
func (m *Manager) EvictIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for k, sess := range m.live {
		if !sess.LastAccessedAt.Before(cutoff) {
			continue
		}
		m.writeThrough(sess)
		delete(m.live, k)
		evicted++
	}
	return evicted
}

// SyncWithPersistence drops live sessions whose files were deleted
func (m *Manager) SyncWithPersistence() int {
	if m.persistence == nil {
		return 0
	}

	pruned := 0
	for _, sess := range m.List() {
		if m.persistence.Exists(sess.ID) {
			continue
		}
		if err := m.Evict(sess.ID); err == nil {
			pruned++
			m.logger.Info("pruned session from memory (file deleted)", zap.String("session", sess.ID))
		}
	}
	return pruned
}

// Maintain evicts idle sessions every evictEvery and reconciles with the
// sessions directory every syncEvery until ctx is done
func (m *Manager) Maintain(ctx context.Context, maxAge, evictEvery, syncEvery time.Duration) {
	evictTick := time.NewTicker(evictEvery)
	defer evictTick.Stop()
	syncTick := time.NewTicker(syncEvery)
	defer syncTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-evictTick.C:
			if n := m.EvictIdle(maxAge); n > 0 {
				m.logger.Info("evicted idle sessions", zap.Int("evicted", n))
			}
		case <-syncTick.C:
			if n := m.SyncWithPersistence(); n > 0 {
				m.logger.Info("filesystem sync pruned orphaned sessions", zap.Int("pruned", n))
			}
		}
	}
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// LoadPersistedSessions replays every persisted session into memory.
// Sessions that no longer replay (config removed or changed) are skipped.
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, ok := m.live[key(id)]; ok {
			continue
		}
		sess, err := m.persistence.Load(id)
		if err != nil {
			m.logger.Warn("failed to load persisted session", zap.String("session", id), zap.Error(err))
			continue
		}
		m.live[key(id)] = sess
		loaded++
	}

	if loaded > 0 {
		m.logger.Info("loaded persisted sessions", zap.Int("count", loaded))
	}
	return nil
}

// SaveAllSessions flushes every live session
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	var errs []error
	for _, sess := range m.List() {
		if err := m.persistence.Save(sess); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sess.ID, err))
		}
	}
	return errors.Join(errs...)
}
