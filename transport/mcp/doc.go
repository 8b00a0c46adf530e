// Package mcp exposes Wumpus World sessions to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// a running server (see package api) and the JSON response is rendered as
// plain text for the model.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - game_state: current episode with the knowledge grid
//   - step, run_episode: let the knowledge-based agent play
//   - move, act: drive the agent by hand
//   - reset_game: start a new episode
//   - turn_history: paginated turn log
//   - query_cell: facts, safety and the safe path for one cell
//   - list_configs: available world configurations
//   - list_episodes: finished-episode ledger with win rate
//   - game_instructions: rules and grid legend
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
