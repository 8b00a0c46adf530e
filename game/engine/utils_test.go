package engine

import (
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/wumpusworld/game/agent"
	"github.com/wricardo/mcp-training/wumpusworld/game/knowledge"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

func TestManhattanDistance(t *testing.T) {
	tests := []struct {
		from, to world.Cell
		expected int
	}{
		{world.Cell{X: 1, Y: 1}, world.Cell{X: 1, Y: 1}, 0},
		{world.Cell{X: 1, Y: 1}, world.Cell{X: 4, Y: 4}, 6},
		{world.Cell{X: 3, Y: 1}, world.Cell{X: 1, Y: 2}, 3},
	}

	for _, tt := range tests {
		if got := ManhattanDistance(tt.from, tt.to); got != tt.expected {
			t.Errorf("ManhattanDistance(%s, %s) = %d, expected %d", tt.from, tt.to, got, tt.expected)
		}
	}
}

func TestCountKnown(t *testing.T) {
	kb := knowledge.New(4)
	if _, err := kb.Integrate(world.Start, world.Percept{}); err != nil {
		t.Fatal(err)
	}

	counts := CountKnown(kb)
	if counts.Visited != 1 {
		t.Errorf("Expected 1 visited cell, got %d", counts.Visited)
	}
	// (1,1) plus both neighbours
	if counts.Safe != 3 {
		t.Errorf("Expected 3 safe cells, got %d", counts.Safe)
	}
	if counts.Unknown != 13 {
		t.Errorf("Expected 13 unknown cells, got %d", counts.Unknown)
	}
}

func TestFindNearestFrontier(t *testing.T) {
	kb := knowledge.New(4)
	if _, err := kb.Integrate(world.Start, world.Percept{}); err != nil {
		t.Fatal(err)
	}

	target, dist, found := FindNearestFrontier(kb, world.Start)
	if !found {
		t.Fatal("Expected a frontier cell")
	}
	if target != (world.Cell{X: 1, Y: 2}) || dist != 1 {
		t.Errorf("Expected (1,2) at distance 1, got %s at %d", target, dist)
	}

	boxed := knowledge.New(4)
	if _, err := boxed.Integrate(world.Start, world.Percept{Breeze: true}); err != nil {
		t.Fatal(err)
	}
	if _, dist, found := FindNearestFrontier(boxed, world.Start); found || dist != UnreachableDistance {
		t.Errorf("Expected no frontier, got found=%v dist=%d", found, dist)
	}
}

func TestViewCell(t *testing.T) {
	kb := knowledge.New(4)
	if _, err := kb.Integrate(world.Start, world.Percept{Stench: true}); err != nil {
		t.Fatal(err)
	}

	start := ViewCell(kb, world.Start, world.Start)
	if start.Status != StatusVisited || !start.Stench || start.Breeze || !start.Agent {
		t.Errorf("Unexpected view of start %+v", start)
	}

	// no breeze at (1,1): its neighbours are pit-free but may hold the hazard
	north := ViewCell(kb, world.Cell{X: 1, Y: 2}, world.Start)
	if north.Status != StatusUnknown || north.Agent {
		t.Errorf("Unexpected view of (1,2) %+v", north)
	}
}

func TestBuildKnowledgeGrid(t *testing.T) {
	kb := knowledge.New(3)
	grid := BuildKnowledgeGrid(kb, world.Cell{X: 2, Y: 3})
	if len(grid) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(grid))
	}
	if grid[0][0].Cell != (world.Cell{X: 1, Y: 3}) || grid[2][2].Cell != (world.Cell{X: 3, Y: 1}) {
		t.Errorf("Expected north row first, got corners %s and %s", grid[0][0].Cell, grid[2][2].Cell)
	}
	if !grid[0][1].Agent {
		t.Error("Expected the agent marker at (2,3)")
	}
}

func TestAnalyzeRisk(t *testing.T) {
	engine, err := NewEngine(createValidConfig())
	if err != nil {
		t.Fatal(err)
	}

	if risk := engine.GetState().Risk; !strings.HasPrefix(risk, "SAFE") {
		t.Errorf("Expected SAFE at the start, got %q", risk)
	}
	if _, err := engine.Step(); err != nil {
		t.Fatal(err)
	}
	if risk := engine.GetState().Risk; !strings.HasPrefix(risk, "SAFE") {
		t.Errorf("Expected SAFE after the first turn, got %q", risk)
	}

	state := engine.GetState()
	state.Agent.HasGoal = true
	if risk := AnalyzeRisk(state, engine.Knowledge()); !strings.Contains(risk, "holding the goal") {
		t.Errorf("Expected goal-holding assessment, got %q", risk)
	}

	state.GameOver = true
	state.Outcome = agent.OutcomeDead
	if risk := AnalyzeRisk(state, engine.Knowledge()); risk != "DONE: episode ended (dead)" {
		t.Errorf("Unexpected assessment %q", risk)
	}

	boxed := knowledge.New(4)
	if _, err := boxed.Integrate(world.Start, world.Percept{Breeze: true}); err != nil {
		t.Fatal(err)
	}
	idle := &GameState{Agent: agent.AgentState{Position: world.Start}}
	if risk := AnalyzeRisk(idle, boxed); !strings.HasPrefix(risk, "DANGER") {
		t.Errorf("Expected DANGER with no safe cells left, got %q", risk)
	}
}
