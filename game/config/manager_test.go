package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

func createValidConfig() *engine.WorldConfig {
	hazard := world.Cell{X: 3, Y: 1}
	goal := world.Cell{X: 2, Y: 3}
	return &engine.WorldConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		Size:        4,
		Pits:        []world.Cell{{X: 3, Y: 3}, {X: 4, Y: 4}},
		Hazard:      &hazard,
		Goal:        &goal,
		MaxTurns:    60,
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.WorldConfig) {
	t.Helper()

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	var (
		data []byte
		err  error
	)
	if filepath.Ext(filename) == ".json" {
		data, err = json.MarshalIndent(config, "", "  ")
	} else {
		data, err = yaml.Marshal(config)
	}
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected classic to be the default, got %s", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to the built-in cave", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got error: %v", err)
		}
		defaultConfig := manager.GetDefault()
		if defaultConfig == nil || defaultConfig.Name != "classic" {
			t.Errorf("Expected built-in classic config, got %+v", defaultConfig)
		}
	})

	t.Run("first valid config becomes default", func(t *testing.T) {
		dir := t.TempDir()
		easy := createValidConfig()
		easy.Name = "Easy"
		writeConfigFile(t, dir, "easy.yaml", easy)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatal(err)
		}
		if manager.GetDefault().Name != "Easy" {
			t.Errorf("Expected Easy as default, got %s", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	easy := createValidConfig()
	easy.Name = "Easy"
	easy.MaxTurns = 20
	writeConfigFile(t, dir, "easy", easy)

	yamlConfig := createValidConfig()
	yamlConfig.Name = "Yaml"
	writeConfigFile(t, dir, "cave.yml", yamlConfig)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Easy" || config.MaxTurns != 20 {
			t.Errorf("Unexpected config %+v", config)
		}
	})

	t.Run("load with extension", func(t *testing.T) {
		config, err := manager.LoadConfig("easy.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Easy" {
			t.Errorf("Expected config name 'Easy', got '%s'", config.Name)
		}
	})

	t.Run("load yaml config", func(t *testing.T) {
		config, err := manager.LoadConfig("cave")
		if err != nil {
			t.Fatalf("Failed to load yaml config: %v", err)
		}
		if config.Name != "Yaml" || len(config.Pits) != 2 {
			t.Errorf("Unexpected config %+v", config)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("easy")
		config2, err := manager.LoadConfig("easy.json")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		if _, err := manager.LoadConfig("non-existent"); err != ErrConfigNotFound {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		invalid := createValidConfig()
		invalid.Goal = &world.Cell{X: 4, Y: 4}
		writeConfigFile(t, dir, "invalid", invalid)

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, engine.ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("schema rejects unknown keys", func(t *testing.T) {
		data := []byte(`{"name": "typo", "description": "misspelled key", "randomise": true}`)
		if err := os.WriteFile(filepath.Join(dir, "typo.json"), data, 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := manager.LoadConfig("typo"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected schema violation, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		data := []byte(`{"name": "Malformed", invalid json}`)
		if err := os.WriteFile(filepath.Join(dir, "malformed.json"), data, 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := manager.LoadConfig("malformed"); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	configs := []struct {
		filename string
		name     string
	}{
		{"classic", "Classic"},
		{"easy.yaml", "Easy"},
		{"medium.yml", "Medium"},
		{"hard", "Hard"},
	}
	for _, cfg := range configs {
		config := createValidConfig()
		config.Name = cfg.name
		writeConfigFile(t, dir, cfg.filename, config)
	}

	// Non-config files and broken configs are skipped
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{`), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configList) != 4 {
		t.Fatalf("Expected 4 configs, got %d", len(configList))
	}

	found := make(map[string]string)
	for _, info := range configList {
		found[info.ConfigID] = info.Name
		if info.Size != 4 || info.Pits != 2 || info.Randomize {
			t.Errorf("Unexpected info %+v", info)
		}
	}
	for id, name := range map[string]string{"classic": "Classic", "easy": "Easy", "medium": "Medium", "hard": "Hard"} {
		if found[id] != name {
			t.Errorf("Expected %s -> %s, got %q", id, name, found[id])
		}
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())
	other := createValidConfig()
	other.Name = "Other"
	writeConfigFile(t, dir, "other", other)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Other" {
		t.Errorf("Expected Other as default, got %s", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); err != ErrConfigNotFound {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_ReloadAndRefresh(t *testing.T) {
	dir := t.TempDir()

	config := createValidConfig()
	config.Name = "Changeable"
	writeConfigFile(t, dir, "classic", config)
	writeConfigFile(t, dir, "changeable", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	loaded, _ := manager.LoadConfig("changeable")
	if loaded.MaxTurns != 60 {
		t.Errorf("Expected initial max turns 60, got %d", loaded.MaxTurns)
	}

	config.MaxTurns = 80
	writeConfigFile(t, dir, "changeable", config)

	if err := manager.ReloadConfig("changeable"); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	reloaded, _ := manager.LoadConfig("changeable")
	if reloaded.MaxTurns != 80 {
		t.Errorf("Expected reloaded max turns 80, got %d", reloaded.MaxTurns)
	}

	config.Name = "Renamed"
	writeConfigFile(t, dir, "classic", config)
	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if manager.GetDefault().Name != "Renamed" {
		t.Errorf("Expected refreshed default, got %s", manager.GetDefault().Name)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	config := createValidConfig()
	config.Name = "Saved"
	if err := manager.SaveConfig("saved", config); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Errorf("Expected saved.json on disk: %v", err)
	}

	if err := manager.SaveConfig("saved-yaml.yaml", config); err != nil {
		t.Fatalf("SaveConfig yaml failed: %v", err)
	}

	// Fresh manager reads both back from disk
	fresh, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"saved", "saved-yaml"} {
		loaded, err := fresh.LoadConfig(id)
		if err != nil {
			t.Fatalf("%s: load failed: %v", id, err)
		}
		if loaded.Name != "Saved" || loaded.Hazard == nil || *loaded.Hazard != (world.Cell{X: 3, Y: 1}) {
			t.Errorf("%s: unexpected config %+v", id, loaded)
		}
	}

	invalid := createValidConfig()
	invalid.Name = ""
	if err := manager.SaveConfig("invalid", invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestManager_ShippedConfigs(t *testing.T) {
	manager, err := NewManager(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, id := range []string{"classic", "scenario", "stuck", "random"} {
		if _, err := manager.LoadConfig(id); err != nil {
			t.Errorf("%s: %v", id, err)
		}
	}
	if manager.GetDefault().Name != "classic" {
		t.Errorf("Expected classic default, got %s", manager.GetDefault().Name)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())
	for _, name := range []string{"a", "b", "c"} {
		writeConfigFile(t, dir, name, createValidConfig())
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := []string{"a", "b", "c"}[i%3]
			if _, err := manager.LoadConfig(name); err != nil {
				t.Errorf("LoadConfig(%s) failed: %v", name, err)
			}
			if i%5 == 0 {
				if err := manager.RefreshCache(); err != nil {
					t.Errorf("RefreshCache failed: %v", err)
				}
			}
			_ = manager.GetDefault()
		}(i)
	}
	wg.Wait()
}
