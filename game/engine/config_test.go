package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

func cellPtr(x, y int) *world.Cell {
	return &world.Cell{X: x, Y: y}
}

func probability(p float64) *float64 {
	return &p
}

func createValidConfig() *WorldConfig {
	return &WorldConfig{
		Name:        "Test Config",
		Description: "A valid test configuration",
		Size:        4,
		Pits:        []world.Cell{{X: 3, Y: 3}, {X: 4, Y: 4}},
		Hazard:      cellPtr(3, 1),
		Goal:        cellPtr(2, 3),
		MaxTurns:    50,
		Facing:      "east",
	}
}

func TestValidateWorldConfig_ValidConfig(t *testing.T) {
	if err := ValidateWorldConfig(createValidConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
	if err := ValidateWorldConfig(DefaultWorldConfig()); err != nil {
		t.Errorf("Expected default config to pass validation, got error: %v", err)
	}
}

func TestValidateWorldConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *WorldConfig)
		message string
	}{
		{"missing name", func(c *WorldConfig) { c.Name = "" }, "name is required"},
		{"missing description", func(c *WorldConfig) { c.Description = "" }, "description is required"},
		{"size too small", func(c *WorldConfig) { c.Size = 1 }, "size must be between"},
		{"size too large", func(c *WorldConfig) { c.Size = MaxGridSize + 1 }, "size must be between"},
		{"negative pit probability", func(c *WorldConfig) { c.PitProbability = probability(-0.1) }, "pit_probability"},
		{"certain pits", func(c *WorldConfig) { c.PitProbability = probability(1) }, "pit_probability"},
		{"turn limit", func(c *WorldConfig) { c.MaxTurns = MaxTurnsLimit + 1 }, "max_turns"},
		{"bad facing", func(c *WorldConfig) { c.Facing = "up-left" }, "facing"},
		{"pit out of bounds", func(c *WorldConfig) { c.Pits = append(c.Pits, world.Cell{X: 5, Y: 1}) }, "outside"},
		{"pit on start", func(c *WorldConfig) { c.Pits = append(c.Pits, world.Start) }, "start cell"},
		{"duplicate pit", func(c *WorldConfig) { c.Pits = append(c.Pits, world.Cell{X: 3, Y: 3}) }, "duplicate"},
		{"hazard on start", func(c *WorldConfig) { c.Hazard = cellPtr(1, 1) }, "hazard"},
		{"hazard in pit", func(c *WorldConfig) { c.Hazard = cellPtr(3, 3) }, "shares a cell"},
		{"goal in pit", func(c *WorldConfig) { c.Goal = cellPtr(4, 4) }, "sits on a pit"},
		{"goal on hazard", func(c *WorldConfig) { c.Goal = cellPtr(3, 1) }, "sits on a pit or the hazard"},
		{"goal walled off", func(c *WorldConfig) {
			c.Pits = []world.Cell{{X: 1, Y: 2}, {X: 2, Y: 1}}
			c.Hazard = cellPtr(4, 4)
		}, "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidConfig()
			tt.mutate(config)
			err := ValidateWorldConfig(config)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected error containing %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestValidateWorldConfig_RandomSkipsWinnability(t *testing.T) {
	config := &WorldConfig{
		Name:           "random",
		Description:    "random cave",
		Randomize:      true,
		PitProbability: probability(0.3),
	}
	if err := ValidateWorldConfig(config); err != nil {
		t.Errorf("Expected randomized config to pass validation, got error: %v", err)
	}
	if config.Fixed() {
		t.Error("Expected randomized config not to be fixed")
	}
}

func TestWorldConfig_Defaults(t *testing.T) {
	config := &WorldConfig{Name: "x", Description: "y"}
	if config.GridSize() != DefaultGridSize {
		t.Errorf("Expected default size %d, got %d", DefaultGridSize, config.GridSize())
	}
	if config.TurnLimit() != DefaultMaxTurns {
		t.Errorf("Expected default max turns %d, got %d", DefaultMaxTurns, config.TurnLimit())
	}
	if config.StartFacing() != world.East {
		t.Errorf("Expected default facing east, got %s", config.StartFacing())
	}

	config.Facing = "north"
	if config.StartFacing() != world.North {
		t.Errorf("Expected facing north, got %s", config.StartFacing())
	}
}

func TestWorldConfig_PitChance(t *testing.T) {
	config := &WorldConfig{Name: "x", Description: "y", Randomize: true}
	if got := config.Layout().PitProbability; got != world.DefaultPitProbability {
		t.Errorf("Expected unset pit probability to default to %g, got %g", world.DefaultPitProbability, got)
	}

	config.PitProbability = probability(0)
	if err := ValidateWorldConfig(config); err != nil {
		t.Fatalf("Expected zero pit probability to be valid, got %v", err)
	}
	if got := config.Layout().PitProbability; got != 0 {
		t.Errorf("Expected explicit zero pit probability to be kept, got %g", got)
	}

	for format, doc := range map[string]string{
		"json": `{"name": "x", "description": "y", "randomize": true, "pit_probability": 0}`,
		"yaml": "name: x\ndescription: y\nrandomize: true\npit_probability: 0\n",
	} {
		decoded, err := DecodeWorldConfig([]byte(doc), format)
		if err != nil {
			t.Fatalf("%s: decode failed: %v", format, err)
		}
		if decoded.PitProbability == nil || decoded.PitChance() != 0 {
			t.Errorf("%s: expected pit_probability 0 to survive decoding", format)
		}
	}
}

func TestEngine_ZeroPitProbabilityGeneratesNoPits(t *testing.T) {
	config := &WorldConfig{
		Name:           "open",
		Description:    "no pits",
		Size:           8,
		Randomize:      true,
		PitProbability: probability(0),
	}
	engine, err := NewEngine(config)
	if err != nil {
		t.Fatal(err)
	}
	for seed := int64(1); seed <= 10; seed++ {
		if _, err := engine.ResetWithSeed(seed); err != nil {
			t.Fatal(err)
		}
		if pits := engine.world.Pits(); len(pits) != 0 {
			t.Errorf("seed %d: expected no pits, got %v", seed, pits)
		}
	}
}

func TestDecodeWorldConfig_JSONAndYAML(t *testing.T) {
	jsonDoc := `{
		"name": "scenario",
		"description": "json cave",
		"size": 4,
		"pits": [{"x": 3, "y": 3}, {"x": 4, "y": 4}],
		"hazard": {"x": 3, "y": 1},
		"goal": {"x": 2, "y": 3},
		"max_turns": 60
	}`
	yamlDoc := `
name: scenario
description: yaml cave
size: 4
pits:
  - {x: 3, y: 3}
  - {x: 4, y: 4}
hazard: {x: 3, y: 1}
goal: {x: 2, y: 3}
max_turns: 60
`
	for format, doc := range map[string]string{"json": jsonDoc, ".yaml": yamlDoc, "yml": yamlDoc} {
		config, err := DecodeWorldConfig([]byte(doc), format)
		if err != nil {
			t.Fatalf("%s: decode failed: %v", format, err)
		}
		if config.Name != "scenario" || config.Size != 4 || config.MaxTurns != 60 {
			t.Errorf("%s: unexpected config %+v", format, config)
		}
		if len(config.Pits) != 2 || config.Pits[1] != (world.Cell{X: 4, Y: 4}) {
			t.Errorf("%s: unexpected pits %v", format, config.Pits)
		}
		if config.Hazard == nil || *config.Hazard != (world.Cell{X: 3, Y: 1}) {
			t.Errorf("%s: unexpected hazard %v", format, config.Hazard)
		}
		if err := ValidateWorldConfig(config); err != nil {
			t.Errorf("%s: decoded config invalid: %v", format, err)
		}
	}

	if _, err := DecodeWorldConfig([]byte(jsonDoc), "toml"); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestLoadWorldConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cave.yaml")
	content := "name: cave\ndescription: a cave\nrandomize: true\nseed: 7\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := LoadWorldConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.Seed != 7 || !config.Randomize {
		t.Errorf("Unexpected config %+v", config)
	}

	// CONFIG_DIR replaces the configs/ prefix
	t.Setenv("CONFIG_DIR", dir)
	if _, err := LoadWorldConfig("configs/cave.yaml"); err != nil {
		t.Errorf("Expected CONFIG_DIR lookup to succeed, got %v", err)
	}

	if _, err := LoadWorldConfig(filepath.Join(dir, "nonexistent.json")); err == nil {
		t.Error("Expected error for non-existent file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"name": "bad"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWorldConfig(bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
