package agent

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Event names a phase transition trigger.
type Event string

const (
	EventGoal       Event = "GOAL"
	EventArrive     Event = "ARRIVE"
	EventDepart     Event = "DEPART"
	EventClimb      Event = "CLIMB"
	EventStuck      Event = "STUCK"
	EventResume     Event = "RESUME"
	EventAbandon    Event = "ABANDON"
	EventDie        Event = "DIE"
	EventTimeout    Event = "TIMEOUT"
	EventContradict Event = "CONTRADICT"
)

// PhaseChange records one transition taken by the statechart.
type PhaseChange struct {
	Turn  int   `json:"turn"`
	From  Phase `json:"from"`
	To    Phase `json:"to"`
	Event Event `json:"event"`
}

// edge is one phase transition.
type edge struct {
	from  Phase
	event Event
	to    Phase
}

// statechart is the only declaration of the phase transitions. The statekit
// machine is built from it and Can/Fire read the built machine.
var statechart = []edge{
	{Exploring, EventGoal, Retrieving},
	{Exploring, EventStuck, Stuck},
	{Exploring, EventAbandon, Abandoned},
	{Exploring, EventDie, Dead},
	{Exploring, EventTimeout, TimedOut},
	{Exploring, EventContradict, Contradicted},

	{Stuck, EventResume, Exploring},
	{Stuck, EventGoal, Retrieving},
	{Stuck, EventAbandon, Abandoned},
	{Stuck, EventDie, Dead},
	{Stuck, EventTimeout, TimedOut},
	{Stuck, EventContradict, Contradicted},

	{Retrieving, EventArrive, Escaping},
	{Retrieving, EventDie, Dead},
	{Retrieving, EventTimeout, TimedOut},
	{Retrieving, EventContradict, Contradicted},

	{Escaping, EventClimb, Won},
	{Escaping, EventDepart, Retrieving},
	{Escaping, EventDie, Dead},
	{Escaping, EventTimeout, TimedOut},
	{Escaping, EventContradict, Contradicted},
}

var finalPhases = []Phase{Dead, Won, TimedOut, Contradicted, Abandoned}

type journal struct {
	current Phase
	turn    int
	changes []PhaseChange
}

type phasePayload struct {
	to Phase
}

func recordChange(j **journal, event statekit.Event) {
	if j == nil || *j == nil {
		return
	}
	p, ok := event.Payload.(phasePayload)
	if !ok {
		return
	}
	jr := *j
	jr.changes = append(jr.changes, PhaseChange{
		Turn:  jr.turn,
		From:  jr.current,
		To:    p.to,
		Event: Event(event.Type),
	})
	jr.current = p.to
}

func newMachine() (*statekit.MachineConfig[*journal], error) {
	b := statekit.NewMachine[*journal]("agent").
		WithInitial(statekit.StateID(Exploring)).
		WithContext(&journal{}).
		WithAction("record", recordChange)

	states := make(map[Phase]*statekit.StateBuilder[*journal])
	for _, e := range statechart {
		sb, ok := states[e.from]
		if !ok {
			sb = b.State(statekit.StateID(e.from))
			states[e.from] = sb
		}
		sb.On(statekit.EventType(e.event)).Target(statekit.StateID(e.to)).Do("record")
	}
	for _, p := range finalPhases {
		b.State(statekit.StateID(p)).Final()
	}
	return b.Build()
}

// fsm drives the statechart for one episode.
type fsm struct {
	config  *statekit.MachineConfig[*journal]
	interp  *statekit.Interpreter[*journal]
	journal *journal
}

func newFSM() (*fsm, error) {
	machine, err := newMachine()
	if err != nil {
		return nil, fmt.Errorf("build agent statechart: %w", err)
	}
	j := &journal{current: Exploring}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **journal) {
		*c = j
	})
	interp.Start()
	return &fsm{config: machine, interp: interp, journal: j}, nil
}

// Phase returns the active state.
func (m *fsm) Phase() Phase {
	return Phase(m.interp.State().Value)
}

// target looks up the transition for e out of the active state in the
// built machine.
func (m *fsm) target(e Event) (Phase, bool) {
	state, ok := m.config.States[statekit.StateID(m.Phase())]
	if !ok {
		return "", false
	}
	for _, t := range state.Transitions {
		if t.Event == statekit.EventType(e) {
			return Phase(t.Target), true
		}
	}
	return "", false
}

// Can reports whether e is defined for the active state.
func (m *fsm) Can(e Event) bool {
	_, ok := m.target(e)
	return ok
}

// Fire sends e and returns the new phase. Events undefined for the active
// state are rejected without reaching the interpreter.
func (m *fsm) Fire(e Event, turn int) (Phase, error) {
	from := m.Phase()
	to, ok := m.target(e)
	if !ok {
		return from, fmt.Errorf("no %s transition from %s", e, from)
	}
	m.journal.turn = turn
	m.interp.Send(statekit.Event{Type: statekit.EventType(e), Payload: phasePayload{to: to}})
	if got := m.Phase(); got != to {
		return got, fmt.Errorf("statechart moved to %s on %s, want %s", got, e, to)
	}
	return to, nil
}

// Changes returns the transitions taken so far.
func (m *fsm) Changes() []PhaseChange {
	return append([]PhaseChange(nil), m.journal.changes...)
}
