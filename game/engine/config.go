package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/wumpusworld/game/planner"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

var ErrInvalidConfig = errors.New("invalid world config")

// ValidateWorldConfig validates a world configuration for correctness and playability
func ValidateWorldConfig(config *WorldConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if config.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidConfig)
	}

	size := config.Size
	if size == 0 {
		size = DefaultGridSize
	}
	if size < MinGridSize || size > MaxGridSize {
		return fmt.Errorf("%w: size must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.Size)
	}

	if p := config.PitProbability; p != nil && (*p < 0 || *p >= 1) {
		return fmt.Errorf("%w: pit_probability must be in [0, 1), got %g", ErrInvalidConfig, *p)
	}
	if config.MaxTurns < 0 || config.MaxTurns > MaxTurnsLimit {
		return fmt.Errorf("%w: max_turns must be between 1 and %d, got %d", ErrInvalidConfig, MaxTurnsLimit, config.MaxTurns)
	}
	if config.Facing != "" {
		if _, err := world.ParseDirection(config.Facing); err != nil {
			return fmt.Errorf("%w: facing: %v", ErrInvalidConfig, err)
		}
	}

	// Fixed placements must describe a legal world
	seen := world.NewCellSet()
	for _, p := range config.Pits {
		if !p.InBounds(size) {
			return fmt.Errorf("%w: pit %s is outside the %dx%d grid", ErrInvalidConfig, p, size, size)
		}
		if p == world.Start {
			return fmt.Errorf("%w: pit on the start cell %s", ErrInvalidConfig, world.Start)
		}
		if seen.Has(p) {
			return fmt.Errorf("%w: duplicate pit %s", ErrInvalidConfig, p)
		}
		seen.Add(p)
	}
	if h := config.Hazard; h != nil {
		if !h.InBounds(size) || *h == world.Start {
			return fmt.Errorf("%w: hazard %s must be inside the grid and off the start cell", ErrInvalidConfig, *h)
		}
		if seen.Has(*h) {
			return fmt.Errorf("%w: hazard %s shares a cell with a pit", ErrInvalidConfig, *h)
		}
	}
	if g := config.Goal; g != nil {
		if !g.InBounds(size) {
			return fmt.Errorf("%w: goal %s is outside the grid", ErrInvalidConfig, *g)
		}
		if seen.Has(*g) || (config.Hazard != nil && *g == *config.Hazard) {
			return fmt.Errorf("%w: goal %s sits on a pit or the hazard", ErrInvalidConfig, *g)
		}
	}

	if !config.Fixed() {
		return nil
	}

	// Validate winnability - the goal must be reachable from the start
	// without crossing a pit or the hazard
	open := world.NewCellSet()
	for x := 1; x <= size; x++ {
		for y := 1; y <= size; y++ {
			c := world.Cell{X: x, Y: y}
			if !seen.Has(c) && c != *config.Hazard {
				open.Add(c)
			}
		}
	}
	if _, err := planner.FindPath(world.Start, *config.Goal, open); err != nil {
		return fmt.Errorf("%w: goal %s is unreachable from %s", ErrInvalidConfig, *config.Goal, world.Start)
	}

	return nil
}

// Fixed reports whether the config describes a single, fully placed world.
func (c *WorldConfig) Fixed() bool {
	return !c.Randomize && c.Hazard != nil && c.Goal != nil
}

// Layout converts the config into a world generation request.
func (c *WorldConfig) Layout() world.Layout {
	return world.Layout{
		Size:           c.GridSize(),
		PitProbability: c.PitChance(),
		Randomize:      c.Randomize,
		Pits:           c.Pits,
		Hazard:         c.Hazard,
		Goal:           c.Goal,
	}
}

// PitChance returns the configured pit probability or the default. An
// explicit zero is kept.
func (c *WorldConfig) PitChance() float64 {
	if c.PitProbability == nil {
		return world.DefaultPitProbability
	}
	return *c.PitProbability
}

// GridSize returns the configured size or the default.
func (c *WorldConfig) GridSize() int {
	if c.Size == 0 {
		return DefaultGridSize
	}
	return c.Size
}

// TurnLimit returns the configured max turns or the default.
func (c *WorldConfig) TurnLimit() int {
	if c.MaxTurns == 0 {
		return DefaultMaxTurns
	}
	return c.MaxTurns
}

// StartFacing returns the initial heading, east unless configured.
func (c *WorldConfig) StartFacing() world.Direction {
	if d, err := world.ParseDirection(c.Facing); err == nil {
		return d
	}
	return world.East
}

// DecodeWorldConfig parses a config document. format is "json", "yaml" or "yml".
func DecodeWorldConfig(data []byte, format string) (*WorldConfig, error) {
	var config WorldConfig
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	return &config, nil
}

// LoadWorldConfig loads a world configuration from a JSON or YAML file
func LoadWorldConfig(filename string) (*WorldConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	config, err := DecodeWorldConfig(data, filepath.Ext(configPath))
	if err != nil {
		return nil, err
	}

	if err := ValidateWorldConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultWorldConfig returns the textbook 4x4 cave
func DefaultWorldConfig() *WorldConfig {
	hazard := world.Cell{X: 1, Y: 3}
	goal := world.Cell{X: 2, Y: 3}
	return &WorldConfig{
		Name:        "classic",
		Description: "The textbook 4x4 cave: pits at (3,1), (3,3), (4,4), hazard at (1,3), goal at (2,3)",
		Size:        4,
		Pits:        []world.Cell{{X: 3, Y: 1}, {X: 3, Y: 3}, {X: 4, Y: 4}},
		Hazard:      &hazard,
		Goal:        &goal,
		MaxTurns:    DefaultMaxTurns,
		Facing:      "east",
	}
}
