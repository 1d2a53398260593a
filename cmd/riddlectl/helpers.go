package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/riddle-gift/internal/catalog"
	"github.com/gokatarajesh/riddle-gift/internal/config"
	"github.com/gokatarajesh/riddle-gift/internal/game"
	"github.com/gokatarajesh/riddle-gift/internal/logging"
	"github.com/gokatarajesh/riddle-gift/internal/progress"
)

func loadConfig(ctx context.Context) (*config.App, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if catalogPath != "" {
		cfg.Game.CatalogPath = catalogPath
	}
	return cfg, nil
}

// newLogger keeps stdout for the game itself.
func newLogger(cfg *config.App) zerolog.Logger {
	level := zerolog.WarnLevel
	if debugMode {
		level = zerolog.DebugLevel
	}
	return logging.NewWithWriter(os.Stderr, cfg.Name, cfg.Env).Level(level)
}

// openOffline builds a controller that can read and reset progress without
// reaching the completion service.
func openOffline(ctx context.Context, cfg *config.App, logger zerolog.Logger) (*game.Service, progress.Store, error) {
	cat, err := catalog.Load(cfg.Game.CatalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog %s: %w", cfg.Game.CatalogPath, err)
	}
	store, err := progress.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return game.NewService(cat, store, nil, nil, nil, logger), store, nil
}
