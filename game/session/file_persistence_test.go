package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/wumpusworld/game/agent"
	"github.com/wricardo/mcp-training/wumpusworld/game/config"
	"github.com/wricardo/mcp-training/wumpusworld/game/engine"
	"github.com/wricardo/mcp-training/wumpusworld/game/service"
	"github.com/wricardo/mcp-training/wumpusworld/game/world"
)

func newTestPersistence(t *testing.T) (*FilePersistence, *config.Manager) {
	t.Helper()

	configManager, err := config.NewManager("../../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}

	persistence, err := NewFilePersistence(t.TempDir(), configManager)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	return persistence, configManager
}

func newTestSession(t *testing.T, id string, configManager *config.Manager, configID string) *service.Session {
	t.Helper()

	worldConfig, err := configManager.LoadConfig(configID)
	if err != nil {
		t.Fatalf("Failed to load config %s: %v", configID, err)
	}
	eng, err := engine.NewEngine(worldConfig)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	return &service.Session{
		ID:             id,
		ConfigID:       configID,
		Engine:         eng,
		Config:         worldConfig,
		Seed:           eng.Seed(),
		Replay:         []string{},
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
}

// replayable strips the per-episode identifiers a replay cannot reproduce
func replayable(state *engine.GameState) *engine.GameState {
	cp := *state
	cp.EpisodeID = ""
	cp.TurnHistory = nil
	return &cp
}

func TestFilePersistence(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newTestSession(t, "test1", configManager, "scenario")

	t.Run("Save and Load Session", func(t *testing.T) {
		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if !persistence.Exists("test1") {
			t.Error("Session file should exist after save")
		}

		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loadedSession.ID != session.ID {
			t.Errorf("Expected ID %s, got %s", session.ID, loadedSession.ID)
		}
		if loadedSession.ConfigID != "scenario" {
			t.Errorf("Expected config ID scenario, got %s", loadedSession.ConfigID)
		}
		if loadedSession.Config.Name != session.Config.Name {
			t.Errorf("Expected config name %s, got %s", session.Config.Name, loadedSession.Config.Name)
		}
		if loadedSession.Engine.GetState().Agent != session.Engine.GetState().Agent {
			t.Error("Expected a fresh session to load at the start position")
		}
	})

	t.Run("Replay State Changes", func(t *testing.T) {
		if _, err := session.Engine.Step(); err != nil {
			t.Fatal(err)
		}
		session.Log(service.ReplayStep)
		if _, err := session.Engine.Apply(agent.Move(world.North)); err != nil {
			t.Fatal(err)
		}
		session.Log(agent.Move(world.North).String())
		if _, err := session.Engine.Step(); err != nil {
			t.Fatal(err)
		}
		session.Log(service.ReplayStep)

		if err := persistence.Save(session); err != nil {
			t.Fatalf("Failed to save updated session: %v", err)
		}

		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatalf("Failed to load updated session: %v", err)
		}

		want := session.Engine.GetState()
		got := loadedSession.Engine.GetState()
		if !reflect.DeepEqual(replayable(got), replayable(want)) {
			t.Errorf("Replayed state differs\n got: %+v\nwant: %+v", got.Agent, want.Agent)
		}
		if len(loadedSession.Engine.GetHistory()) != len(session.Engine.GetHistory()) {
			t.Errorf("Expected %d turns after replay, got %d", len(session.Engine.GetHistory()), len(loadedSession.Engine.GetHistory()))
		}
		if !reflect.DeepEqual(loadedSession.Replay, session.Replay) {
			t.Errorf("Expected replay log %v, got %v", session.Replay, loadedSession.Replay)
		}
	})

	t.Run("Replay Across Reset", func(t *testing.T) {
		state, err := session.Engine.Reset()
		if err != nil {
			t.Fatal(err)
		}
		session.Log(service.ResetEntry(state.Seed))
		if _, err := session.Engine.Step(); err != nil {
			t.Fatal(err)
		}
		session.Log(service.ReplayStep)
		session.Recorded = 1

		if err := persistence.Save(session); err != nil {
			t.Fatal(err)
		}
		loadedSession, err := persistence.Load("test1")
		if err != nil {
			t.Fatal(err)
		}

		got := loadedSession.Engine.GetState()
		if got.Episode != 2 {
			t.Errorf("Expected episode 2 after replaying a reset, got %d", got.Episode)
		}
		if !reflect.DeepEqual(replayable(got), replayable(session.Engine.GetState())) {
			t.Error("Replayed state differs after reset")
		}
		if loadedSession.Recorded != 1 {
			t.Errorf("Expected recorded episode 1, got %d", loadedSession.Recorded)
		}
	})

	t.Run("List All Sessions", func(t *testing.T) {
		session2 := newTestSession(t, "test2", configManager, "classic")
		if err := persistence.Save(session2); err != nil {
			t.Fatalf("Failed to save second session: %v", err)
		}

		sessionIDs, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}

		found := make(map[string]bool)
		for _, id := range sessionIDs {
			found[id] = true
		}
		if len(sessionIDs) != 2 || !found["test1"] || !found["test2"] {
			t.Errorf("Expected test1 and test2, got %v", sessionIDs)
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := persistence.Delete("test2"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if persistence.Exists("test2") {
			t.Error("Session should not exist after delete")
		}
		if _, err := persistence.Load("test2"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if err := persistence.Delete("test2"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
		}
	})
}

func TestFilePersistence_RandomWorld(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newTestSession(t, "rand", configManager, "random")

	for i := 0; i < 5 && !session.Engine.IsOver(); i++ {
		if _, err := session.Engine.Step(); err != nil {
			t.Fatal(err)
		}
		session.Log(service.ReplayStep)
	}

	if err := persistence.Save(session); err != nil {
		t.Fatal(err)
	}
	loadedSession, err := persistence.Load("rand")
	if err != nil {
		t.Fatal(err)
	}

	if loadedSession.Seed != session.Seed {
		t.Errorf("Expected seed %d, got %d", session.Seed, loadedSession.Seed)
	}
	if !reflect.DeepEqual(replayable(loadedSession.Engine.GetState()), replayable(session.Engine.GetState())) {
		t.Error("Expected the seeded random world to replay identically")
	}
}

func TestFilePersistence_UnknownConfig(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newTestSession(t, "lost", configManager, "classic")
	session.ConfigID = "vanished"

	if err := persistence.Save(session); err != nil {
		t.Fatal(err)
	}
	if _, err := persistence.Load("lost"); err == nil || !strings.Contains(err.Error(), "vanished") {
		t.Errorf("Expected an error naming the missing config, got %v", err)
	}
}

func TestFilePersistenceFileStructure(t *testing.T) {
	persistence, configManager := newTestPersistence(t)
	session := newTestSession(t, "struct-test", configManager, "classic")
	if _, err := session.Engine.Step(); err != nil {
		t.Fatal(err)
	}
	session.Log(service.ReplayStep)

	if err := persistence.Save(session); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	filePath := filepath.Join(persistence.sessionsDir, "struct-test.json")
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read session file: %v", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(fileData, &data); err != nil {
		t.Fatalf("Session file is not valid JSON: %v", err)
	}
	if data.ID != "struct-test" {
		t.Errorf("Expected ID struct-test, got %s", data.ID)
	}
	if data.ConfigName != "classic" {
		t.Errorf("Expected config classic, got %s", data.ConfigName)
	}
	if data.Seed != session.Seed {
		t.Errorf("Expected seed %d, got %d", session.Seed, data.Seed)
	}
	if len(data.Replay) != 1 || data.Replay[0] != service.ReplayStep {
		t.Errorf("Expected replay [step], got %v", data.Replay)
	}
	if data.GameState == nil {
		t.Error("Expected a state snapshot for inspection")
	}
	if _, err := os.Stat(filePath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected the temp file to be renamed away")
	}
}

func TestReplay(t *testing.T) {
	config := createTestConfig()

	original, err := engine.NewEngine(config)
	if err != nil {
		t.Fatal(err)
	}
	log := []string{}
	for !original.IsOver() {
		if _, err := original.Step(); err != nil {
			t.Fatal(err)
		}
		log = append(log, service.ReplayStep)
	}

	replayed, err := engine.NewEngine(config, engine.WithSeed(original.Seed()))
	if err != nil {
		t.Fatal(err)
	}
	if err := Replay(replayed, log); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if replayed.Outcome() != original.Outcome() {
		t.Errorf("Expected outcome %s, got %s", original.Outcome(), replayed.Outcome())
	}

	t.Run("bad entry", func(t *testing.T) {
		eng, _ := engine.NewEngine(config)
		if err := Replay(eng, []string{"dance"}); err == nil {
			t.Error("Expected an error for an unknown entry")
		}
	})

	t.Run("bad reset seed", func(t *testing.T) {
		eng, _ := engine.NewEngine(config)
		if err := Replay(eng, []string{service.ReplayResetPrefix + "abc"}); err == nil {
			t.Error("Expected an error for a malformed reset entry")
		}
	})
}
