// Package config provides world configuration management for the Wumpus
// World server.
//
// The config package handles:
//   - Loading world configurations from JSON or YAML files
//   - Schema validation of JSON documents and rule validation of every config
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Configurations live in the configs directory as <id>.json, <id>.yaml or
// <id>.yml. Each one either fixes the cave (pits, hazard and goal) or asks for
// a randomized cave with a pit probability and an optional seed. Turn limits,
// starting facing and milestone messages are optional.
//
// Shipped Configurations:
//   - classic: the textbook 4x4 cave
//   - scenario: a 4x4 cave the agent clears without risk
//   - stuck: a cave where the agent must gamble on an unproven cell
//   - random: a freshly generated cave on every reset
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	worldConfig, err := manager.LoadConfig("stuck")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
package config
