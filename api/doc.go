// Package api provides the HTTP REST API for Wumpus World sessions.
//
// The api package implements:
//   - Session management endpoints
//   - Autonomous stepping and full episode runs
//   - Driver-chosen moves and actions
//   - Knowledge base queries for a single cell
//   - Configuration listing, loading and saving
//   - The finished-episode ledger
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "classic"})
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Episode Operations:
//   - GET /api/sessions/{id}/state - Current state and knowledge grid
//   - POST /api/sessions/{id}/step - Let the agent play N turns ({"turns": 5} or ?turns=5)
//   - POST /api/sessions/{id}/run - Let the agent play until the episode ends
//   - POST /api/sessions/{id}/move - Move one cell ({"direction": "north"})
//   - POST /api/sessions/{id}/act - Any action ({"action": "grab"}): turn_left, turn_right,
//     forward, grab, climb or move:<direction>
//   - POST /api/sessions/{id}/reset - Start a new episode
//   - GET /api/sessions/{id}/history - Turn history (?page=1&limit=20&order=desc)
//   - GET /api/sessions/{id}/knowledge/{x}/{y} - What the agent believes about a cell
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Load one configuration
//   - POST /api/configs - Save a configuration (the name becomes its config_id)
//
// Ledger:
//   - GET /api/episodes - Recently finished episodes with stats (?limit=N)
//
// Other:
//   - GET /health - Liveness probe
//   - GET /ws?session={id} - Live updates for a session
//
// Usage:
//
//	server := api.NewServer(gameService, hub, api.WithLogger(logger))
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown sessions and configs
// map to 404, a finished episode to 409, and illegal actions or invalid
// configs to 400.
package api
