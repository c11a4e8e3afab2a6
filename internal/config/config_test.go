package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

func TestParseModeFailsLoudly(t *testing.T) {
	mode, err := ParseMode(" PROD ")
	if err != nil || mode != ModeProd {
		t.Fatalf("expected prod, got %q, %v", mode, err)
	}
	if _, err := ParseMode("staging"); err == nil {
		t.Fatalf("expected unknown mode to be rejected")
	}
	if _, err := ParseMode(""); err == nil {
		t.Fatalf("expected empty mode to be rejected")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Mode = ModeProd
	cfg.MongoURI = "mongodb://localhost:27017"
	cfg.PlatformTimeout = Duration(5 * time.Second)

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, loaded)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"mode":"qa"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown mode in file to fail")
	}
}

func TestApplyEnvFromDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "SOCIALS_MODE=prod\nSOCIALS_MONGO_URI=mongodb://db:27017\nSOCIALS_PLATFORM_TIMEOUT=3s\nSOCIALS_ADDR=\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	env, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("read .env: %v", err)
	}

	cfg, err := ApplyEnv(Default(), func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Mode != ModeProd || cfg.MongoURI != "mongodb://db:27017" {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
	if time.Duration(cfg.PlatformTimeout) != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", time.Duration(cfg.PlatformTimeout))
	}
	if cfg.Addr != Default().Addr {
		t.Fatalf("expected blank value to keep default addr, got %q", cfg.Addr)
	}
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "SOCIALS_STORAGE" {
			return "redis", true
		}
		return "", false
	}
	if _, err := ApplyEnv(Default(), lookup); err == nil {
		t.Fatalf("expected unknown storage to be rejected")
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("expected missing .env to be ignored, got %v", err)
	}
}

func TestResolveStorageDefaultsByMode(t *testing.T) {
	dev, err := Default().Resolve("/data")
	if err != nil {
		t.Fatalf("resolve dev: %v", err)
	}
	if dev.Storage != StorageSQLite || dev.SQLitePath != filepath.Join("/data", "socials.db") {
		t.Fatalf("expected sqlite under base dir, got %+v", dev)
	}

	prod := Default()
	prod.Mode = ModeProd
	if _, err := prod.Resolve("/data"); err == nil {
		t.Fatalf("expected prod without mongo_uri to fail")
	}
	prod.MongoURI = "mongodb://localhost:27017"
	resolved, err := prod.Resolve("/data")
	if err != nil {
		t.Fatalf("resolve prod: %v", err)
	}
	if resolved.Storage != StorageMongo {
		t.Fatalf("expected mongo storage in prod, got %q", resolved.Storage)
	}

	pg := Default()
	pg.Storage = StoragePostgres
	if _, err := pg.Resolve("/data"); err == nil {
		t.Fatalf("expected postgres without url to fail")
	}
}
