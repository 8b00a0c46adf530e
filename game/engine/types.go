package engine

import (
	"github.com/wricardo/mcp-training/wumpusworld/game/agent"
	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/planner"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

const (
	// Validation constants
	MinGridSize         = world.MinSize
	MaxGridSize         = world.MaxSize
	DefaultGridSize     = world.DefaultSize
	DefaultMaxTurns     = agent.DefaultMaxTurns
	MaxTurnsLimit       = 10000
	MaxBulkSteps        = 50
	UnreachableDistance = 999999
	WebSocketBufferSize = 256
)

// CellStatus is what the agent believes about a cell.
type CellStatus string

const (
	StatusUnknown CellStatus = "unknown"
	StatusSafe    CellStatus = "safe"
	StatusVisited CellStatus = "visited"
	StatusPit     CellStatus = "pit"
	StatusHazard  CellStatus = "hazard"
)

// WorldConfig represents a world configuration loaded from JSON or YAML
type WorldConfig struct {
	Name           string       `json:"name" yaml:"name"`
	Description    string       `json:"description" yaml:"description"`
	Size           int          `json:"size" yaml:"size"`
	PitProbability *float64     `json:"pit_probability,omitempty" yaml:"pit_probability,omitempty"`
	Randomize      bool         `json:"randomize,omitempty" yaml:"randomize,omitempty"`
	Seed           int64        `json:"seed,omitempty" yaml:"seed,omitempty"`
	Pits           []world.Cell `json:"pits,omitempty" yaml:"pits,omitempty"`
	Hazard         *world.Cell  `json:"hazard,omitempty" yaml:"hazard,omitempty"`
	Goal           *world.Cell  `json:"goal,omitempty" yaml:"goal,omitempty"`
	MaxTurns       int          `json:"max_turns,omitempty" yaml:"max_turns,omitempty"`
	Facing         string       `json:"facing,omitempty" yaml:"facing,omitempty"`
	Messages       Messages     `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Messages are the texts shown for episode milestones. Empty entries fall
// back to built-in defaults.
type Messages struct {
	Welcome       string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Victory       string `json:"victory,omitempty" yaml:"victory,omitempty"`
	Death         string `json:"death,omitempty" yaml:"death,omitempty"`
	Timeout       string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Abandoned     string `json:"abandoned,omitempty" yaml:"abandoned,omitempty"`
	Contradiction string `json:"contradiction,omitempty" yaml:"contradiction,omitempty"`
}

// KnowledgeView is one cell of the agent's belief grid
type KnowledgeView struct {
	Cell    world.Cell `json:"cell"`
	Status  CellStatus `json:"status"`
	Breeze  bool       `json:"breeze,omitempty"`
	Stench  bool       `json:"stench,omitempty"`
	Glitter bool       `json:"glitter,omitempty"`
	Agent   bool       `json:"agent,omitempty"`
}

// RevealedWorld is the ground truth, exposed once the episode is over
type RevealedWorld struct {
	Pits   []world.Cell `json:"pits"`
	Hazard world.Cell   `json:"hazard"`
	Goal   world.Cell   `json:"goal"`
}

// GameState represents the complete observable state of an episode
type GameState struct {
	EpisodeID   string              `json:"episode_id"`
	Episode     int                 `json:"episode"`
	ConfigName  string              `json:"config_name"`
	Size        int                 `json:"size"`
	Seed        int64               `json:"seed"`
	MaxTurns    int                 `json:"max_turns"`
	Agent       agent.AgentState    `json:"agent"`
	Phase       agent.Phase         `json:"phase"`
	Outcome     agent.Outcome       `json:"outcome"`
	Message     string              `json:"message"`
	GameOver    bool                `json:"game_over"`
	Victory     bool                `json:"victory"`
	Facts       []knowledge.Fact    `json:"facts"`
	Clauses     []knowledge.Clause  `json:"clauses,omitempty"`
	Knowledge   [][]KnowledgeView   `json:"knowledge"`
	Frontier    []world.Cell        `json:"frontier"`
	LastPlan    planner.Plan        `json:"last_plan,omitempty"`
	LastAction  agent.Action        `json:"last_action"`
	LastPercept world.Percept       `json:"last_percept"`
	Transitions []agent.PhaseChange `json:"transitions,omitempty"`
	Revealed    *RevealedWorld      `json:"revealed,omitempty"`

	// TurnHistory holds the current episode only; TotalTurns counts every
	// turn since the engine was created.
	TurnHistory []TurnRecord `json:"turn_history"`
	TotalTurns  int          `json:"total_turns"`

	// Computed helper views (not required for core game logic)
	Risk string `json:"risk,omitempty"`
}

// TurnRecord represents a single turn in the engine history
type TurnRecord struct {
	Number        int                           `json:"number"`
	EpisodeID     string                        `json:"episode_id"`
	Turn          int                           `json:"turn"`
	Action        string                        `json:"action"`
	From          world.Cell                    `json:"from"`
	To            world.Cell                    `json:"to"`
	Percept       world.Percept                 `json:"percept"`
	Phase         agent.Phase                   `json:"phase"`
	Outcome       agent.Outcome                 `json:"outcome"`
	Strategy      string                        `json:"strategy,omitempty"`
	RiskAccepted  bool                          `json:"risk_accepted"`
	Illegal       bool                          `json:"illegal,omitempty"`
	NewFacts      int                           `json:"new_facts"`
	Moves         int                           `json:"moves"`
	Message       string                        `json:"message"`
	Contradiction *knowledge.ContradictionError `json:"contradiction,omitempty"`
	Timestamp     int64                         `json:"timestamp"`
}
