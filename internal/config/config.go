package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

// ParseMode rejects anything but dev and prod.
func ParseMode(value string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(value))); mode {
	case ModeDev, ModeProd:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want dev or prod)", value)
	}
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

type Storage string

const (
	StorageSQLite   Storage = "sqlite"
	StorageMongo    Storage = "mongo"
	StoragePostgres Storage = "postgres"
)

func ParseStorage(value string) (Storage, error) {
	switch storage := Storage(strings.ToLower(strings.TrimSpace(value))); storage {
	case StorageSQLite, StorageMongo, StoragePostgres:
		return storage, nil
	default:
		return "", fmt.Errorf("unknown storage %q (want sqlite, mongo or postgres)", value)
	}
}

// Duration is a time.Duration written as "20s" in config files.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Mode                Mode     `json:"mode"`
	Addr                string   `json:"addr"`
	Storage             Storage  `json:"storage,omitempty"`
	SQLitePath          string   `json:"sqlite_path,omitempty"`
	MongoURI            string   `json:"mongo_uri,omitempty"`
	MongoDatabase       string   `json:"mongo_database"`
	PostgresURL         string   `json:"postgres_url,omitempty"`
	VKAPIURL            string   `json:"vk_api_url"`
	VKAPIVersion        string   `json:"vk_api_version"`
	VKServiceToken      string   `json:"vk_service_token,omitempty"`
	TelegramAPIEndpoint string   `json:"telegram_api_endpoint"`
	TelegramWebURL      string   `json:"telegram_web_url"`
	PlatformTimeout     Duration `json:"platform_timeout"`
}

func Default() Config {
	return Config{
		Mode:                ModeDev,
		Addr:                "0.0.0.0:8000",
		MongoDatabase:       "socials",
		VKAPIURL:            "https://api.vk.com",
		VKAPIVersion:        "5.131",
		TelegramAPIEndpoint: "https://api.telegram.org/bot%s/%s",
		TelegramWebURL:      "https://t.me",
		PlatformTimeout:     Duration(20 * time.Second),
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "socials", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadDotEnv exports the variables of a .env file into the process
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

var envKeys = map[string]func(*Config, string) error{
	"SOCIALS_MODE": func(c *Config, v string) error {
		mode, err := ParseMode(v)
		c.Mode = mode
		return err
	},
	"SOCIALS_ADDR": func(c *Config, v string) error { c.Addr = v; return nil },
	"SOCIALS_STORAGE": func(c *Config, v string) error {
		storage, err := ParseStorage(v)
		c.Storage = storage
		return err
	},
	"SOCIALS_SQLITE_PATH":           func(c *Config, v string) error { c.SQLitePath = v; return nil },
	"SOCIALS_MONGO_URI":             func(c *Config, v string) error { c.MongoURI = v; return nil },
	"SOCIALS_MONGO_DATABASE":        func(c *Config, v string) error { c.MongoDatabase = v; return nil },
	"SOCIALS_POSTGRES_URL":          func(c *Config, v string) error { c.PostgresURL = v; return nil },
	"SOCIALS_VK_API_URL":            func(c *Config, v string) error { c.VKAPIURL = v; return nil },
	"SOCIALS_VK_API_VERSION":        func(c *Config, v string) error { c.VKAPIVersion = v; return nil },
	"SOCIALS_VK_SERVICE_TOKEN":      func(c *Config, v string) error { c.VKServiceToken = v; return nil },
	"SOCIALS_TELEGRAM_API_ENDPOINT": func(c *Config, v string) error { c.TelegramAPIEndpoint = v; return nil },
	"SOCIALS_TELEGRAM_WEB_URL":      func(c *Config, v string) error { c.TelegramWebURL = v; return nil },
	"SOCIALS_PLATFORM_TIMEOUT": func(c *Config, v string) error {
		return c.PlatformTimeout.UnmarshalText([]byte(v))
	},
}

// ApplyEnv overlays non-empty SOCIALS_* values from lookup onto cfg.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	for key, apply := range envKeys {
		value, ok := lookup(key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := apply(&cfg, strings.TrimSpace(value)); err != nil {
			return Config{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return cfg, nil
}

// Resolve fills mode-dependent defaults and checks that the selected
// storage backend is configured.
func (c Config) Resolve(baseDir string) (Config, error) {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return Config{}, err
	}
	if c.Storage == "" {
		c.Storage = StorageSQLite
		if c.Mode == ModeProd {
			c.Storage = StorageMongo
		}
	}
	if _, err := ParseStorage(string(c.Storage)); err != nil {
		return Config{}, err
	}
	if c.Addr == "" {
		c.Addr = Default().Addr
	}
	if c.PlatformTimeout <= 0 {
		c.PlatformTimeout = Default().PlatformTimeout
	}

	switch c.Storage {
	case StorageSQLite:
		if c.SQLitePath == "" {
			c.SQLitePath = filepath.Join(baseDir, "socials.db")
		}
	case StorageMongo:
		if c.MongoURI == "" {
			return Config{}, fmt.Errorf("mongo storage requires mongo_uri")
		}
		if c.MongoDatabase == "" {
			c.MongoDatabase = Default().MongoDatabase
		}
	case StoragePostgres:
		if c.PostgresURL == "" {
			return Config{}, fmt.Errorf("postgres storage requires postgres_url")
		}
	}
	return c, nil
}
