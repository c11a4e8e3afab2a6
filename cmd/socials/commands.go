package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/toobased/socials-backend/internal/config"
	"github.com/toobased/socials-backend/internal/db"
	"github.com/toobased/socials-backend/internal/model"
	"github.com/toobased/socials-backend/internal/platform"
	"github.com/toobased/socials-backend/internal/service"
	"github.com/toobased/socials-backend/internal/web"
)

type rootFlags struct {
	configPath string
	envFile    string
	mode       string
	storage    string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "socials",
		Short:         "Bots, bot tasks and social sources API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file path")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load")
	root.PersistentFlags().StringVar(&flags.mode, "mode", "", "run mode (dev or prod)")
	root.PersistentFlags().StringVar(&flags.storage, "storage", "", "storage backend (sqlite, mongo or postgres)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite db path")

	root.AddCommand(newServeCmd(flags), newCheckTokenCmd(flags), newTaskTypesCmd())
	return root
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	var save bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if save {
				if err := config.Save(cfgPath, cfg); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := service.New(store, newRegistry(cfg))
			server := &http.Server{
				Addr:              cfg.Addr,
				Handler:           web.NewServer(svc).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Printf("Web server running at http://%s (mode %s, storage %s)", cfg.Addr, cfg.Mode, cfg.Storage)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				log.Printf("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().BoolVar(&save, "save-config", false, "write the resolved config back to the config file")
	return cmd
}

func newCheckTokenCmd(flags *rootFlags) *cobra.Command {
	var platformName, token string
	cmd := &cobra.Command{
		Use:   "check-token",
		Short: "Verify an access token against its platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			p, err := model.ParsePlatform(platformName)
			if err != nil {
				return err
			}
			profile, err := newRegistry(cfg).VerifyToken(cmd.Context(), p, token)
			if err != nil {
				return err
			}
			return printJSON(cmd, profile)
		},
	}
	cmd.Flags().StringVar(&platformName, "platform", "", "platform of the token (vk or telegram)")
	cmd.Flags().StringVar(&token, "token", "", "access token")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newTaskTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task-types",
		Short: "Print the task type catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd, model.TaskTypeCatalog())
		},
	}
}

// loadConfig applies defaults, the config file, the environment and flags,
// in that order.
func loadConfig(flags *rootFlags) (string, config.Config, error) {
	cfgPath, err := resolveConfigPath(flags.configPath)
	if err != nil {
		return "", config.Config{}, err
	}
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return "", config.Config{}, err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", config.Config{}, err
	}
	cfg, err = config.ApplyEnv(cfg, os.LookupEnv)
	if err != nil {
		return "", config.Config{}, err
	}

	if flags.mode != "" {
		if cfg.Mode, err = config.ParseMode(flags.mode); err != nil {
			return "", config.Config{}, err
		}
	}
	if flags.storage != "" {
		if cfg.Storage, err = config.ParseStorage(flags.storage); err != nil {
			return "", config.Config{}, err
		}
	}
	if flags.dbPath != "" {
		cfg.SQLitePath = flags.dbPath
	}

	cfg, err = cfg.Resolve(filepath.Dir(cfgPath))
	if err != nil {
		return "", config.Config{}, err
	}
	return cfgPath, cfg, nil
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(ctx context.Context, cfg config.Config) (*db.Store, error) {
	var store *db.Store
	switch cfg.Storage {
	case config.StorageSQLite:
		if err := config.EnsureDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		sqlDB, err := db.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = db.NewStore(sqlDB)
	case config.StorageMongo:
		client, err := db.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		store = db.NewMongoStore(client, cfg.MongoDatabase)
	case config.StoragePostgres:
		pool, err := db.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		store = db.NewPostgresStore(pool)
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}

	if err := store.SeedTaskTypes(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newRegistry(cfg config.Config) *platform.Registry {
	return platform.NewDefaultRegistry(platform.Options{
		VKBaseURL:           cfg.VKAPIURL,
		VKVersion:           cfg.VKAPIVersion,
		VKServiceToken:      cfg.VKServiceToken,
		TelegramAPIEndpoint: cfg.TelegramAPIEndpoint,
		TelegramWebURL:      cfg.TelegramWebURL,
		Timeout:             time.Duration(cfg.PlatformTimeout),
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
