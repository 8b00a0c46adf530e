// Package websocket streams live episode updates to browser clients.
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a read and a
// write goroutine; the hub goroutine owns registration and fan-out.
//
// Message Protocol:
//
// Clients only listen. Every outgoing frame is one JSON Message:
//
//	{"session_id": "ab12", "event": "turn", "game_state": {...}, "data": [...]}
//
// Events are "turn" after every agent or driver turn (data holds the turn's
// events), "reset" when a new episode starts, and "state_update" for plain
// snapshots.
//
// Session Integration:
//
// Clients choose a session with the ?session= query parameter. Updates are
// delivered only to clients watching the same session. Hub implements
// service.Observer, so the game service publishes to it directly.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	go hub.Run(ctx)
//
//	gameService := service.NewGameService(sessions, configs, service.WithObserver(hub))
//
// Publish never blocks the caller: when the broadcast queue is full the event
// is dropped, and a client that cannot keep up is disconnected.
package websocket
