// Package service provides the business logic layer for Wumpus World sessions.
//
// The service package implements:
//   - Multi-session episode management
//   - Autonomous agent turns and driver-chosen actions
//   - Paginated turn history and per-cell knowledge queries
//   - Recording finished episodes in a ledger
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages world configuration loading and validation.
// Ledger stores finished episodes, and Observer receives a snapshot after
// every turn or reset.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the engine. Each session owns its own engine, so concurrent sessions never
// share knowledge. Every driver call is appended to the session's replay log
// before the session is saved; see package session for how the log restores
// a session.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	ledger, _ := record.OpenSQLite("episodes.db")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithLedger(ledger),
//		service.WithObserver(hub))
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Let the agent play the whole episode
//	result, err := gameService.Run(ctx, info.ID)
//
// Episodes:
//
// An episode is recorded once, on the turn that ends it. Reset starts the
// next episode in the same session; Step and Run on a finished episode
// return agent.ErrEpisodeOver.
package service
