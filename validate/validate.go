// Package validate checks world configuration files and dry-runs the agent
// on them. It backs the "validate" command. A file is reported invalid when
// it fails the schema or the world rules (sizes, overlaps, goal reachable
// from the entrance). Valid files are then played: a fixed layout once, a
// randomized one over several seeds, and the outcomes are reported.
package validate

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/wumpusworld/game/agent"
	"github.com/wricardo/mcp-training/wumpusworld/game/config"
	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
)

// DefaultSeeds is how many worlds are played for a randomized config
const DefaultSeeds = 20

// ValidationResult captures the outcome of validating a single file.
type ValidationResult struct {
	File     string
	Valid    bool
	Errors   []string
	Info     []string
	Outcomes map[agent.Outcome]int
}

// Options tune a validation run
type Options struct {
	// Seeds is the number of worlds played for a randomized config
	Seeds  int
	Logger *zap.Logger
}

func (o Options) seeds() int {
	if o.Seeds <= 0 {
		return DefaultSeeds
	}
	return o.Seeds
}

// Dir validates every JSON and YAML config in dir, sorted by file name
func Dir(ctx context.Context, dir string, opts Options) ([]ValidationResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	manager, err := config.NewManager(dir, config.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("finding config files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, File(ctx, manager, filepath.Base(file), opts))
	}
	return results, nil
}

// File validates one config known to manager and plays it
func File(ctx context.Context, manager *config.Manager, name string, opts Options) ValidationResult {
	result := ValidationResult{
		File:     name,
		Valid:    true,
		Errors:   []string{},
		Outcomes: make(map[agent.Outcome]int),
	}

	cfg, err := manager.LoadConfig(name)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", cfg.Name),
		fmt.Sprintf("✓ Grid: %dx%d", cfg.GridSize(), cfg.GridSize()),
		fmt.Sprintf("✓ Turn limit: %d", cfg.TurnLimit()))
	if cfg.Fixed() {
		result.Info = append(result.Info,
			fmt.Sprintf("✓ Pits: %d, Hazard: %s, Goal: %s", len(cfg.Pits), *cfg.Hazard, *cfg.Goal))
	} else {
		result.Info = append(result.Info, fmt.Sprintf("✓ Randomized, pit probability %.2f", cfg.PitChance()))
	}

	seeds := 1
	if !cfg.Fixed() {
		seeds = opts.seeds()
	}

	turns := 0
	for seed := int64(1); seed <= int64(seeds); seed++ {
		outcome, played, err := playEpisode(ctx, cfg, seed)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("seed %d: %v", seed, err))
			return result
		}
		result.Outcomes[outcome]++
		turns += played
	}

	result.Info = append(result.Info, fmt.Sprintf("✓ Agent: %s over %d episode(s), %.1f turns on average",
		formatOutcomes(result.Outcomes), seeds, float64(turns)/float64(seeds)))
	return result
}

func playEpisode(ctx context.Context, cfg *engine.WorldConfig, seed int64) (agent.Outcome, int, error) {
	eng, err := engine.NewEngine(cfg, engine.WithSeed(seed))
	if err != nil {
		return "", 0, err
	}
	turns, err := eng.Run(ctx, 0)
	if err != nil {
		return "", len(turns), err
	}
	return eng.Outcome(), len(turns), nil
}

func formatOutcomes(outcomes map[agent.Outcome]int) string {
	keys := make([]string, 0, len(outcomes))
	for outcome := range outcomes {
		keys = append(keys, string(outcome))
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, outcomes[agent.Outcome(k)]))
	}
	return strings.Join(parts, ", ")
}

// Report prints results the way the command shows them and reports whether
// every file was valid
func Report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}
