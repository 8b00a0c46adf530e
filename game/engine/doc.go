// Package engine runs Wumpus World episodes for the server.
//
// The engine package wires the world, knowledge base and agent controller
// into episodes:
//   - World configuration loading (JSON or YAML) and validation
//   - Episode lifecycle: a fresh world, knowledge base and controller per Reset
//   - Turn execution, either autonomous (Step, Run) or driver-chosen (Apply)
//   - Turn history that survives resets
//   - JSON snapshots of the agent's beliefs for presentation
//
// Core Types:
//
// The Engine interface defines the main contract for episode operations,
// implemented by GameEngine. GameState is the observable snapshot of an
// episode, while WorldConfig defines the cave layout and limits.
//
// Usage:
//
//	config, err := engine.LoadWorldConfig("configs/classic.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(config)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Let the agent play until a terminal outcome
//	results, err := gameEngine.Run(ctx, 0)
//	state := gameEngine.GetState()
//
// Rules:
//
// The agent starts at (1,1) in an N×N cave with pits and one hazard. It
// senses a breeze next to a pit, a stench next to the hazard and glitter on
// the goal. The episode is won by grabbing the goal and climbing out at
// (1,1); entering a pit or the hazard cell kills the agent.
package engine
