// Package agent implements the knowledge-based agent's decision loop.
//
// A Controller owns one episode: the agent state, a fresh knowledge base and
// the phase statechart (EXPLORING, RETRIEVING, ESCAPING, STUCK and the
// terminal DEAD, WON, TIMEOUT, CONTRADICTION, ABANDONED). Each call to Step
// runs exactly one cycle:
//
//  1. read the percept at the current cell and integrate it
//  2. grab the goal on glitter
//  3. climb out when holding the goal at the start cell
//  4. otherwise move one step toward the nearest safe unvisited cell
//  5. with nothing safe left, hand over to the fallback strategy and flag
//     the move as risk-accepted
//
// Terminal outcomes, including knowledge contradictions, are reported in the
// TurnResult. Apply runs the same cycle with an action chosen by the driver.
//
// Usage:
//
//	w, _ := world.New(4, pits, hazard, goal)
//	ctrl, err := agent.New(w, agent.WithMaxTurns(100))
//	if err != nil {
//		return err
//	}
//	for !ctrl.Done() {
//		res, err := ctrl.Step()
//		if err != nil {
//			return err
//		}
//		fmt.Println(res.Turn, res.Action, res.Phase)
//	}
package agent
