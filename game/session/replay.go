package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/mcp-training/wumpusworld/game/agent"
	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/service"
)

// Replay re-applies a session's driver calls to a fresh engine
func Replay(eng *engine.GameEngine, entries []string) error {
	for i, entry := range entries {
		var err error
		switch {
		case entry == service.ReplayStep:
			_, err = eng.Step()
		case strings.HasPrefix(entry, service.ReplayResetPrefix):
			var seed int64
			seed, err = strconv.ParseInt(strings.TrimPrefix(entry, service.ReplayResetPrefix), 10, 64)
			if err == nil {
				_, err = eng.ResetWithSeed(seed)
			}
		default:
			var action agent.Action
			action, err = agent.ParseAction(entry)
			if err == nil {
				_, err = eng.Apply(action)
			}
		}
		if err != nil {
			return fmt.Errorf("replay entry %d %q: %w", i+1, entry, err)
		}
	}
	return nil
}
