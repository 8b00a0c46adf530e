package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/planner"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

var (
	ErrEpisodeOver   = errors.New("episode is over")
	ErrIllegalAction = errors.New("illegal action")
)

// Phase is the controller's position in the decision statechart.
type Phase string

const (
	Exploring    Phase = "EXPLORING"
	Retrieving   Phase = "RETRIEVING"
	Escaping     Phase = "ESCAPING"
	Stuck        Phase = "STUCK"
	Dead         Phase = "DEAD"
	Won          Phase = "WON"
	TimedOut     Phase = "TIMEOUT"
	Contradicted Phase = "CONTRADICTION"
	Abandoned    Phase = "ABANDONED"
)

// Terminal reports whether the phase ends the episode.
func (p Phase) Terminal() bool {
	switch p {
	case Dead, Won, TimedOut, Contradicted, Abandoned:
		return true
	}
	return false
}

// Outcome is the driver-facing classification of an episode.
type Outcome string

const (
	OutcomeRunning       Outcome = "running"
	OutcomeWon           Outcome = "won"
	OutcomeDead          Outcome = "dead"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeContradiction Outcome = "contradiction"
	OutcomeAbandoned     Outcome = "abandoned"
)

// OutcomeOf maps a phase to its outcome.
func OutcomeOf(p Phase) Outcome {
	switch p {
	case Won:
		return OutcomeWon
	case Dead:
		return OutcomeDead
	case TimedOut:
		return OutcomeTimeout
	case Contradicted:
		return OutcomeContradiction
	case Abandoned:
		return OutcomeAbandoned
	}
	return OutcomeRunning
}

// ActionKind enumerates what the agent can do in one turn.
type ActionKind string

const (
	ActionNone      ActionKind = "none"
	ActionMove      ActionKind = "move"
	ActionTurnLeft  ActionKind = "turn_left"
	ActionTurnRight ActionKind = "turn_right"
	ActionForward   ActionKind = "forward"
	ActionGrab      ActionKind = "grab"
	ActionClimb     ActionKind = "climb"
)

// Action is a single executed or requested agent action.
type Action struct {
	Kind      ActionKind      `json:"kind"`
	Direction world.Direction `json:"direction"`
}

// Move faces d and steps one cell forward.
func Move(d world.Direction) Action {
	return Action{Kind: ActionMove, Direction: d}
}

// TurnLeft rotates the heading 90 degrees counter-clockwise in place.
func TurnLeft() Action {
	return Action{Kind: ActionTurnLeft}
}

// TurnRight rotates the heading 90 degrees clockwise in place.
func TurnRight() Action {
	return Action{Kind: ActionTurnRight}
}

// Forward steps one cell in the current heading.
func Forward() Action {
	return Action{Kind: ActionForward}
}

// Steps reports whether the action tries to leave the current cell.
func (a Action) Steps() bool {
	return a.Kind == ActionMove || a.Kind == ActionForward
}

// Grab picks up the goal in the current cell.
func Grab() Action {
	return Action{Kind: ActionGrab}
}

// Climb leaves the cave from the start cell.
func Climb() Action {
	return Action{Kind: ActionClimb}
}

func (a Action) String() string {
	switch a.Kind {
	case ActionMove:
		return "move:" + a.Direction.String()
	case "":
		return string(ActionNone)
	}
	return string(a.Kind)
}

// ParseAction accepts "grab", "climb", "turn_left", "turn_right",
// "forward", "move:<dir>", "move <dir>" or a bare direction name.
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch strings.NewReplacer("-", "_", " ", "_").Replace(s) {
	case "grab":
		return Grab(), nil
	case "climb":
		return Climb(), nil
	case "turn_left", "turnleft":
		return TurnLeft(), nil
	case "turn_right", "turnright":
		return TurnRight(), nil
	case "forward":
		return Forward(), nil
	}
	if rest, ok := strings.CutPrefix(s, "move"); ok {
		s = strings.TrimLeft(rest, ": ")
	}
	d, err := world.ParseDirection(s)
	if err != nil {
		return Action{}, fmt.Errorf("%w: %q", ErrIllegalAction, s)
	}
	return Move(d), nil
}

// AgentState is the agent's physical state. Only the controller mutates it.
type AgentState struct {
	Position world.Cell      `json:"position"`
	Facing   world.Direction `json:"facing"`
	HasGoal  bool            `json:"has_goal"`
	Alive    bool            `json:"alive"`
	Moves    int             `json:"moves"`
	Turn     int             `json:"turn"`
}

// Environment is what the controller needs from the world. Contents is used
// for terminal checks only, never for inference.
type Environment interface {
	Size() int
	Start() world.Cell
	Percept(c world.Cell) world.Percept
	Contents(c world.Cell) world.Contents
	TakeGoal()
}

var _ Environment = (*world.World)(nil)

// TurnResult reports one completed perceive, infer, decide, act cycle.
type TurnResult struct {
	Turn          int                           `json:"turn"`
	Phase         Phase                         `json:"phase"`
	Outcome       Outcome                       `json:"outcome"`
	State         AgentState                    `json:"state"`
	Action        Action                        `json:"action"`
	Percept       world.Percept                 `json:"percept"`
	Plan          planner.Plan                  `json:"plan,omitempty"`
	Strategy      string                        `json:"strategy,omitempty"`
	RiskAccepted  bool                          `json:"risk_accepted"`
	NewFacts      []knowledge.Fact              `json:"new_facts,omitempty"`
	Illegal       bool                          `json:"illegal,omitempty"`
	Contradiction *knowledge.ContradictionError `json:"contradiction,omitempty"`
	Message       string                        `json:"message"`
}

// Snapshot is the read-only view exposed to presentation after each turn.
type Snapshot struct {
	State       AgentState         `json:"state"`
	Phase       Phase              `json:"phase"`
	Outcome     Outcome            `json:"outcome"`
	Facts       []knowledge.Fact   `json:"facts"`
	Clauses     []knowledge.Clause `json:"clauses"`
	Frontier    []world.Cell       `json:"frontier"`
	SafeCells   []world.Cell       `json:"safe_cells"`
	LastPlan    planner.Plan       `json:"last_plan,omitempty"`
	LastAction  Action             `json:"last_action"`
	Transitions []PhaseChange      `json:"transitions"`
}
