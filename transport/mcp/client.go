package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/service"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Wumpus World",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Wumpus World - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
A knowledge-based agent explores a dark cave, finds the gold, brings it back
to the entrance (1,1) and climbs out. It only learns through percepts:
a breeze next to a pit, a stench next to the wumpus, glitter on the gold.

AVAILABLE TOOLS:
- create_session: Create new session (optionally choose a config)
- list_sessions / get_session: Inspect sessions
- game_state: Current state with the agent's knowledge grid
- step: Let the agent play N turns on its own
- run_episode: Let the agent play until the episode ends
- move: Drive the agent one cell yourself - requires intent explanation
- act: Any action (turn_left, turn_right, forward, grab, climb, move:<dir>) - requires intent explanation
- reset_game: Start a new episode
- turn_history: View past turns
- query_cell: Everything the agent believes about one cell
- list_configs: List available world configurations
- list_episodes: Finished episodes and win rate
- game_instructions: Rules and the meaning of the knowledge grid

NOTE: The 'intent' parameter on move/act serves as rubber duck debugging - explain your reasoning!`),
	)

	// Register all tools
	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func intentProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Brief explanation of the intent behind this action (serves as a rubber duck to help explain your reasoning)",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use (optional, see list_configs)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Episode operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current episode state and the agent's knowledge grid",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Let the agent perceive, infer, decide and act for a number of turns",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"turns": map[string]interface{}{
					"type":        "integer",
					"description": fmt.Sprintf("Turns to play (default 1, max %d)", engine.MaxBulkSteps),
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_episode",
		Description: "Let the agent play until the episode ends",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move the agent one cell in a direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"north", "east", "south", "west"},
					"description": "Direction to move",
				},
				"intent": intentProperty(),
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "act",
		Description: "Perform an action: turn_left, turn_right, forward, grab, climb or move:<direction>",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"action": map[string]interface{}{
					"type": "string",
					"enum": []string{
						"turn_left", "turn_right", "forward", "grab", "climb",
						"move:north", "move:east", "move:south", "move:west",
					},
					"description": "turn_left and turn_right rotate in place, forward steps in the current heading, move:<dir> faces and steps",
				},
				"intent": intentProperty(),
			},
			Required: []string{"session_id", "action"},
		},
	}, c.handleAct)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a new episode in the session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "turn_history",
		Description: "Get the turn history of the current episode",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest (asc) or newest (desc) first",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTurnHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "query_cell",
		Description: "Everything the agent believes about one cell: facts, safety, reachability and the safe path to it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column, 1-based from the west edge",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row, 1-based from the south edge",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleQueryCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available world configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_episodes",
		Description: "List recently finished episodes with aggregate stats",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of episodes to return",
				},
			},
		},
	}, c.handleListEpisodes)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the rules and how to read the knowledge grid",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func sessionPath(args map[string]interface{}, suffix string) string {
	sessionID, _ := args["session_id"].(string)
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n", session.ID, session.ConfigName)
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "running"
		if s.GameState != nil {
			status = string(s.GameState.Outcome)
		}
		result += fmt.Sprintf("- %s (Config: %s, Created: %s, %s)\n",
			s.ID, s.ConfigName, s.CreatedAt.Format("15:04:05"), status)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(arguments(request), "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]int{}
	if turns, ok := args["turns"].(float64); ok && turns > 0 {
		body["turns"] = int(turns)
	}

	var result service.TurnsResult
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/step"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTurnsResult(&result)), nil
}

func (c *Client) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var result service.TurnsResult
	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/run"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTurnsResult(&result)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	direction, _ := args["direction"].(string)

	// Intent is for the caller's benefit only

	var result service.MoveResult
	body := map[string]string{"direction": direction}
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleAct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	action, _ := args["action"].(string)

	var result service.MoveResult
	body := map[string]string{"action": action}
	if err := c.apiCall(ctx, "POST", sessionPath(args, "/act"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(arguments(request), "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleTurnHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprint(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprint(int(limit)))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		params.Set("order", order)
	}

	path := sessionPath(args, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleQueryCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	x, okX := args["x"].(float64)
	y, okY := args["y"].(float64)
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required integers"), nil
	}

	var report service.CellReport
	path := sessionPath(args, fmt.Sprintf("/knowledge/%d/%d", int(x), int(y)))
	if err := c.apiCall(ctx, "GET", path, nil, &report); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCellReport(&report)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, config := range configs {
		layout := fmt.Sprintf("%d pits", config.Pits)
		if config.Randomize {
			layout = "random layout"
		}
		result += fmt.Sprintf("• %s (config_id: %s)\n  %s\n  Grid: %dx%d, %s, Turn limit: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Size, config.Size, layout, config.MaxTurns)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListEpisodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/episodes"
	if limit, ok := arguments(request)["limit"].(float64); ok && limit > 0 {
		path += fmt.Sprintf("?limit=%d", int(limit))
	}

	var list service.EpisodeList
	if err := c.apiCall(ctx, "GET", path, nil, &list); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatEpisodes(&list)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Wumpus World - Complete Instructions

OBJECTIVE:
Find the gold somewhere in the cave, carry it back to the entrance (1,1) and
climb out alive.

THE CAVE:
• An N×N grid of cells. (1,1) is the south-west corner; x grows east, y grows north.
• Some cells hold bottomless pits. One cell holds the wumpus. Entering either is fatal.
• Exactly one cell holds the gold. The entrance is always safe.

PERCEPTS (the only way to learn anything):
• Breeze: a pit is in an adjacent cell
• Stench: the wumpus is in an adjacent cell
• Glitter: the gold is in this cell
• Bump: the last action was not possible

ACTIONS:
• turn_left / turn_right - rotate 90 degrees in place
• forward - one cell in the direction you face, never off the grid
• move north|east|south|west - face that way and step forward
• grab - pick up the gold (only where it glitters)
• climb - leave the cave (only at the entrance)
Every action is a turn. Illegal actions still cost a turn and report a bump.

THE AGENT:
The agent keeps a knowledge base of facts it has proven. A cell without a
breeze proves its neighbors have no pit; a breeze with only one unproven
neighbor proves that neighbor is a pit. It explores the nearest safe unvisited
cell by the shortest safe path, grabs the gold, walks home and climbs.
When nothing safe remains it may take a calculated risk on an unproven cell.

KNOWLEDGE GRID LEGEND (north row first):
  A  agent
  V  visited
  .  proven safe, not yet visited
  ?  unknown
  P  proven pit
  W  proven wumpus
A trailing * marks a cell where glitter was perceived.

PHASES:
EXPLORING → RETRIEVING (gold in hand) → ESCAPING (at the entrance) → WON
STUCK when no safe cell is left. Episodes end as WON, DEAD, TIMEOUT,
CONTRADICTION or ABANDONED.

TOOLS:
• step / run_episode let the agent play on its own
• move / act let you drive it yourself
• query_cell shows what the agent has proven about a cell and the safe path to it
• turn_history lists every turn with percepts and phase

Good luck in the cave!`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast accessed: %s\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format(time.RFC3339), session.LastAccessedAt.Format(time.RFC3339))
	if session.GameState != nil {
		result += "\n" + formatGameState(session.GameState)
	}
	return result
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "State: unavailable"
	}

	var b strings.Builder
	ag := state.Agent
	fmt.Fprintf(&b, "Episode %d (%s)\n", state.Episode, state.ConfigName)
	fmt.Fprintf(&b, "Position: %s facing %s\n", ag.Position, ag.Facing)
	fmt.Fprintf(&b, "Phase: %s\n", state.Phase)
	fmt.Fprintf(&b, "Turn: %d/%d, Moves: %d\n", ag.Turn, state.MaxTurns, ag.Moves)
	fmt.Fprintf(&b, "Holding gold: %t\n", ag.HasGoal)
	fmt.Fprintf(&b, "Last percept: %s\n", state.LastPercept)
	if state.Risk != "" {
		fmt.Fprintf(&b, "Risk: %s\n", state.Risk)
	}
	if len(state.Frontier) > 0 {
		fmt.Fprintf(&b, "Safe frontier: %s\n", formatCells(state.Frontier))
	}

	if len(state.Knowledge) > 0 {
		b.WriteString("\nKnowledge:\n")
		b.WriteString(formatKnowledgeGrid(state.Knowledge))
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", state.Message)
	}

	if state.GameOver {
		if state.Victory {
			b.WriteString("\n🎉 VICTORY!\n")
		} else {
			fmt.Fprintf(&b, "\n💀 GAME OVER (%s)\n", state.Outcome)
		}
		if state.Revealed != nil {
			fmt.Fprintf(&b, "Pits: %s, Wumpus: %s, Gold: %s\n",
				formatCells(state.Revealed.Pits), state.Revealed.Hazard, state.Revealed.Goal)
		}
	}

	return b.String()
}

// formatKnowledgeGrid renders the belief grid, one row per line, north first
func formatKnowledgeGrid(grid [][]engine.KnowledgeView) string {
	var b strings.Builder
	for _, row := range grid {
		cells := make([]string, 0, len(row))
		for _, view := range row {
			cells = append(cells, viewChar(view))
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}
	return b.String()
}

func viewChar(view engine.KnowledgeView) string {
	var ch string
	switch {
	case view.Agent:
		ch = "A"
	case view.Status == engine.StatusVisited:
		ch = "V"
	case view.Status == engine.StatusSafe:
		ch = "."
	case view.Status == engine.StatusPit:
		ch = "P"
	case view.Status == engine.StatusHazard:
		ch = "W"
	default:
		ch = "?"
	}
	if view.Glitter {
		ch += "*"
	} else {
		ch += " "
	}
	return ch
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ Action successful\n")
	} else {
		b.WriteString("✗ Action failed\n")
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}
	if result.Turn != nil {
		fmt.Fprintf(&b, "Action: %s, Percept: %s\n", result.Turn.Action, result.Turn.Percept)
		if len(result.Turn.NewFacts) > 0 {
			fmt.Fprintf(&b, "Learned: %s\n", formatFacts(result.Turn.NewFacts))
		}
	}
	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatTurnsResult(result *service.TurnsResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Played %d/%d turns: %s → %s\n",
		result.TurnsExecuted, result.RequestedTurns, result.StartPos, result.EndPos)
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped: %s\n", result.StoppedReason)
	}
	if result.RiskMoves > 0 {
		fmt.Fprintf(&b, "Risky moves: %d\n", result.RiskMoves)
	}

	if len(result.Turns) > 0 {
		b.WriteString("\nTurns:\n")
		for _, turn := range result.Turns {
			line := fmt.Sprintf("%d. %s → %s [%s] percept: %s",
				turn.Turn, turn.Action, turn.State.Position, turn.Phase, turn.Percept)
			if turn.RiskAccepted {
				line += " (risk)"
			}
			if len(turn.NewFacts) > 0 {
				line += fmt.Sprintf(" learned: %d", len(turn.NewFacts))
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turn History (Page %d/%d) - Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalTurns)

	for _, turn := range history.Turns {
		status := "✓"
		if turn.Illegal {
			status = "✗"
		}
		line := fmt.Sprintf("%d. %s %s %s → %s [%s] percept: %s",
			turn.Turn, turn.Action, status, turn.From, turn.To, turn.Phase, turn.Percept)
		if turn.RiskAccepted {
			line += " (risk)"
		}
		b.WriteString(line + "\n")
	}

	if len(history.Turns) == 0 {
		b.WriteString("(no turns yet)\n")
	}
	return b.String()
}

func formatCellReport(report *service.CellReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell %s: %s\n", report.Cell, report.View.Status)
	fmt.Fprintf(&b, "Safe: %t, Visited: %t, Known hazard: %t\n", report.Safe, report.Visited, report.KnownHazard)
	if report.Reachable {
		fmt.Fprintf(&b, "Reachable in %d steps via %s\n", report.Distance, formatCells(report.Path))
	} else {
		b.WriteString("Not reachable over proven-safe cells\n")
	}

	if len(report.Facts) > 0 {
		fmt.Fprintf(&b, "Facts: %s\n", formatFacts(report.Facts))
	} else {
		b.WriteString("Facts: none\n")
	}
	return b.String()
}

func formatEpisodes(list *service.EpisodeList) string {
	var b strings.Builder
	stats := list.Stats
	fmt.Fprintf(&b, "Episodes: %d, Win rate: %.0f%%, Avg moves: %.1f, Risky moves: %d\n",
		stats.Episodes, stats.WinRate*100, stats.AvgMoves, stats.RiskMoves)
	for outcome, n := range stats.Outcomes {
		fmt.Fprintf(&b, "  %s: %d\n", outcome, n)
	}

	b.WriteString("\nRecent:\n")
	for _, ep := range list.Episodes {
		fmt.Fprintf(&b, "- %s %s (%s, seed %d): %s in %d turns\n",
			ep.FinishedAt.Format("2006-01-02 15:04"), ep.SessionID, ep.Config, ep.Seed, ep.Outcome, ep.Turns)
	}
	if len(list.Episodes) == 0 {
		b.WriteString("(none yet)\n")
	}
	return b.String()
}

func formatFacts(facts []knowledge.Fact) string {
	names := make([]string, 0, len(facts))
	for _, f := range facts {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}

func formatCells(cells []world.Cell) string {
	if len(cells) == 0 {
		return "none"
	}
	names := make([]string, 0, len(cells))
	for _, c := range cells {
		names = append(names, c.String())
	}
	return strings.Join(names, " ")
}
