// Package session provides session management for Wumpus World episodes.
//
// The session package implements:
//   - A thread-safe index of live sessions
//   - Short session IDs
//   - File persistence through replay logs
//   - Eviction of idle sessions to disk
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns its own engine, so sessions never share
// knowledge or world state.
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. Generated IDs are
// retried until unique among live and persisted sessions; lookups are
// case-insensitive.
//
// Persistence:
//
// FilePersistence stores a session as its config ID, its first-episode seed
// and the log of driver calls made since creation ("step", "move:north",
// "turn_left", "forward", "grab", "climb", "reset:<seed>"). Load rebuilds an engine on the same
// seed and hands the log to Replay, which reproduces the agent's knowledge
// and phase exactly. A state snapshot is written alongside for inspection
// only.
//
// Idle sessions are flushed and dropped from memory by EvictIdle. Get
// reloads an evicted session transparently, so eviction only costs a replay.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence, session.WithLogger(logger))
//
//	sess, err := manager.Create("", config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Evict idle sessions and drop ones whose files were removed
//	go manager.Maintain(ctx, time.Hour, 5*time.Minute, 10*time.Second)
package session
