package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/config"
	"github.com/mamadbah2/nogal/internal/repository"
	"github.com/mamadbah2/nogal/internal/repository/backend"
	"github.com/mamadbah2/nogal/internal/repository/mongodb"
	"github.com/mamadbah2/nogal/internal/repository/sheets"
	"github.com/mamadbah2/nogal/internal/service/estimation"
	"github.com/mamadbah2/nogal/internal/service/mutation"
	"github.com/mamadbah2/nogal/internal/service/notify"
	"github.com/mamadbah2/nogal/internal/service/registration"
	reportingsvc "github.com/mamadbah2/nogal/internal/service/reporting"
	"github.com/mamadbah2/nogal/pkg/logger"
)

// app holds the services shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	store   *repository.Store
	archive *mongodb.SnapshotRepository
	queue   *mutation.Queue

	estimation   *estimation.Service
	reporting    *reportingsvc.Service
	registration *registration.Service
	notifier     notify.Notifier
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	baseLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(baseLogger)

	a := &app{cfg: cfg, logger: baseLogger}

	a.store, err = backend.Open(*cfg, baseLogger.Named("repo"))
	if err != nil {
		return nil, err
	}

	var (
		snapshots repository.SnapshotRepository
		exporter  reportingsvc.SnapshotExporter
	)
	if cfg.MongoDB.Enabled() {
		a.archive, err = mongodb.NewSnapshotRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("init mongodb repository: %w", err)
		}
		snapshots = a.archive
	} else {
		baseLogger.Warn("mongodb uri missing, snapshot archive disabled")
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("init sheets repository: %w", err)
		}
		exporter = sheetsRepo
	}

	a.queue = mutation.NewQueue(baseLogger.Named("mutation"))
	a.estimation = estimation.NewService(a.store, baseLogger.Named("svc.estimation"))
	a.reporting = reportingsvc.NewService(a.store, a.estimation, snapshots, exporter, baseLogger.Named("svc.reporting"))
	a.registration = registration.NewService(a.store, a.queue, baseLogger.Named("svc.registration"))
	a.notifier = notify.NewNotifier(cfg.WhatsApp, baseLogger.Named("svc.notify"))

	return a, nil
}

// close drains pending writes and releases connections.
func (a *app) close() {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.archive != nil {
		if err := a.archive.Close(context.Background()); err != nil {
			a.logger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("failed to close store", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
