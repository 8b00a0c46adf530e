// Command analyze prints quick, human-readable heuristics about the world
// configurations in a configs directory. It summarizes dimensions, pit
// density, how much of the cave gives off percepts, and whether the gold can
// be reached through cells a cautious agent can prove safe without guessing.
// Randomized configs are sampled with a fixed seed so runs are repeatable.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/wumpusworld/game/config"
	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

// WorldAnalysis summarizes a single generated cave.
type WorldAnalysis struct {
	Size        int
	Pits        int
	PitDensity  float64
	Hazard      world.Cell
	Goal        world.Cell
	Distance    int
	BreezyCells int
	SmellyCells int
	QuietRegion int
	GoalQuiet   bool
}

// ConfigReport aggregates the analyses of one configuration.
type ConfigReport struct {
	ID        string
	Name      string
	Fixed     bool
	Worlds    []WorldAnalysis
	QuietWins int
}

func main() {
	cmd := &cli.Command{
		Name:  "analyze",
		Usage: "Summarize world configurations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing world configurations"},
			&cli.IntFlag{Name: "samples", Value: 100, Usage: "Worlds sampled per randomized config"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "Seed for sampling randomized configs"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, err := config.NewManager(cmd.String("config-dir"), config.WithLogger(zap.NewNop()))
			if err != nil {
				return err
			}
			reports, err := analyzeAll(manager, cmd.Int("samples"), cmd.Int64("seed"))
			if err != nil {
				return err
			}
			for _, r := range reports {
				printReport(os.Stdout, r)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func analyzeAll(manager *config.Manager, samples int, seed int64) ([]ConfigReport, error) {
	infos, err := manager.ListConfigs()
	if err != nil {
		return nil, err
	}

	var reports []ConfigReport
	for _, info := range infos {
		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			fmt.Printf("Error loading %s: %v\n", info.Filename, err)
			continue
		}
		report, err := analyzeConfig(cfg, samples, seed)
		if err != nil {
			fmt.Printf("Error analyzing %s: %v\n", info.Filename, err)
			continue
		}
		report.ID = info.ConfigID
		reports = append(reports, report)
	}
	return reports, nil
}

// analyzeConfig analyzes the single world of a fixed config, or samples
// worlds from a randomized one.
func analyzeConfig(cfg *engine.WorldConfig, samples int, seed int64) (ConfigReport, error) {
	report := ConfigReport{Name: cfg.Name, Fixed: cfg.Fixed()}

	var rng *rand.Rand
	n := 1
	if !report.Fixed {
		rng = rand.New(rand.NewSource(seed))
		if samples > 1 {
			n = samples
		}
	}

	for i := 0; i < n; i++ {
		w, err := world.Generate(cfg.Layout(), rng)
		if err != nil {
			return report, err
		}
		a := analyzeWorld(w)
		if a.GoalQuiet {
			report.QuietWins++
		}
		report.Worlds = append(report.Worlds, a)
	}
	return report, nil
}

func analyzeWorld(w *world.World) WorldAnalysis {
	size := w.Size()
	a := WorldAnalysis{
		Size:     size,
		Pits:     len(w.Pits()),
		Hazard:   w.Hazard(),
		Goal:     w.Goal(),
		Distance: engine.ManhattanDistance(w.Start(), w.Goal()),
	}
	a.PitDensity = float64(a.Pits) / float64(size*size-1)

	for x := 1; x <= size; x++ {
		for y := 1; y <= size; y++ {
			p := w.Percept(world.Cell{X: x, Y: y})
			if p.Breeze {
				a.BreezyCells++
			}
			if p.Stench {
				a.SmellyCells++
			}
		}
	}

	quiet := quietRegion(w)
	a.QuietRegion = len(quiet)
	a.GoalQuiet = quiet.Has(w.Goal())
	return a
}

// quietRegion returns the cells reachable from the start by only expanding
// through cells without breeze or stench. Every cell in it is provably safe
// from percepts alone, so it is a lower bound on what the agent can explore
// without accepting risk.
func quietRegion(w *world.World) world.CellSet {
	region := world.NewCellSet(w.Start())
	queue := []world.Cell{w.Start()}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		p := w.Percept(c)
		if p.Breeze || p.Stench {
			continue
		}
		for _, n := range c.Neighbors(w.Size()) {
			if !region.Has(n) {
				region.Add(n)
				queue = append(queue, n)
			}
		}
	}
	return region
}

func printReport(out io.Writer, r ConfigReport) {
	fmt.Fprintf(out, "\n=== Analyzing %s ===\n", r.ID)
	fmt.Fprintf(out, "Name: %s\n", r.Name)

	if r.Fixed {
		a := r.Worlds[0]
		fmt.Fprintf(out, "Grid Size: %d x %d\n", a.Size, a.Size)
		fmt.Fprintf(out, "Pits: %d (%.0f%% of cells)\n", a.Pits, a.PitDensity*100)
		fmt.Fprintf(out, "Wumpus: %s, Gold: %s (%d steps from start)\n", a.Hazard, a.Goal, a.Distance)
		fmt.Fprintf(out, "Breezy cells: %d, Smelly cells: %d\n", a.BreezyCells, a.SmellyCells)
		fmt.Fprintf(out, "Quiet region: %d of %d cells\n", a.QuietRegion, a.Size*a.Size)
		if a.GoalQuiet {
			fmt.Fprintf(out, "✅ Gold is reachable without guessing\n")
		} else {
			fmt.Fprintf(out, "⚠️  WARNING: the agent must reason past percepts or accept risk to reach the gold\n")
		}
		return
	}

	var pits, quiet float64
	for _, a := range r.Worlds {
		pits += float64(a.Pits)
		quiet += float64(a.QuietRegion)
	}
	n := float64(len(r.Worlds))
	size := r.Worlds[0].Size
	fmt.Fprintf(out, "Grid Size: %d x %d (randomized, %d samples)\n", size, size, len(r.Worlds))
	fmt.Fprintf(out, "Average pits: %.1f\n", pits/n)
	fmt.Fprintf(out, "Average quiet region: %.1f of %d cells\n", quiet/n, size*size)
	fmt.Fprintf(out, "Gold reachable without guessing: %d/%d (%.0f%%)\n", r.QuietWins, len(r.Worlds), float64(r.QuietWins)/n*100)
}
