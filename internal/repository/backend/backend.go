// Package backend builds the repository Store selected by configuration.
package backend

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/config"
	"github.com/mamadbah2/nogal/internal/repository"
	"github.com/mamadbah2/nogal/internal/repository/remote"
	"github.com/mamadbah2/nogal/internal/repository/sqlite"
)

// Open returns the Store of the configured data mode.
func Open(cfg config.Config, logger *zap.Logger) (*repository.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store *repository.Store
		err   error
	)
	switch cfg.Data.Mode {
	case config.ModeRemote:
		store, err = remote.Open(cfg.RemoteAPI)
		if err == nil {
			logger.Info("using remote farm api", zap.String("base_url", cfg.RemoteAPI.BaseURL))
		}
	case config.ModeTrial:
		store, err = sqlite.Open(cfg.Trial.DBPath)
		if err == nil {
			logger.Info("using trial store", zap.String("path", cfg.Trial.DBPath))
		}
	default:
		return nil, fmt.Errorf("unknown data mode %q", cfg.Data.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Data.Mode, err)
	}

	if err := store.Validate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
