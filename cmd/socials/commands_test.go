package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/toobased/socials-backend/internal/config"
	"github.com/toobased/socials-backend/internal/model"
)

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.json")
	fileCfg := config.Default()
	fileCfg.Addr = "127.0.0.1:9000"
	fileCfg.VKAPIVersion = "5.100"
	if err := config.Save(cfgPath, fileCfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	t.Setenv("SOCIALS_VK_API_VERSION", "5.199")

	_, cfg, err := loadConfig(&rootFlags{
		configPath: cfgPath,
		envFile:    filepath.Join(dir, "missing.env"),
		dbPath:     filepath.Join(dir, "flag.db"),
	})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("expected addr from file, got %q", cfg.Addr)
	}
	if cfg.VKAPIVersion != "5.199" {
		t.Fatalf("expected env to override file, got %q", cfg.VKAPIVersion)
	}
	if cfg.Storage != config.StorageSQLite || cfg.SQLitePath != filepath.Join(dir, "flag.db") {
		t.Fatalf("expected sqlite at flag path, got %+v", cfg)
	}
}

func TestLoadConfigRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	_, _, err := loadConfig(&rootFlags{
		configPath: filepath.Join(dir, "config.json"),
		envFile:    filepath.Join(dir, ".env"),
		mode:       "staging",
	})
	if err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
}

func TestTaskTypesCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"task-types"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var types []model.TaskType
	if err := json.Unmarshal(out.Bytes(), &types); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(types) != len(model.TaskTypeCatalog()) {
		t.Fatalf("expected %d task types, got %d", len(model.TaskTypeCatalog()), len(types))
	}
}

func TestOpenStoreSeedsSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.StorageSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "data", "socials.db")

	store, err := openStore(t.Context(), cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	types, err := store.TaskTypes.FindByID(t.Context(), "like")
	if err != nil || types == nil {
		t.Fatalf("expected seeded catalog, got %v, %v", types, err)
	}
	if _, err := os.Stat(cfg.SQLitePath); err != nil {
		t.Fatalf("expected db file to exist: %v", err)
	}
}
