package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/scheduler"
	"github.com/mamadbah2/nogal/internal/server/handlers"
	"github.com/mamadbah2/nogal/internal/server/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the weekly report scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	engine := router.New(router.Handlers{
		Farm:         handlers.NewFarmHandler(a.store, a.logger.Named("handlers.farm")),
		Estimation:   handlers.NewEstimationHandler(a.estimation, a.logger.Named("handlers.estimation")),
		Reporting:    handlers.NewReportingHandler(a.reporting, a.notifier, a.logger.Named("handlers.reporting")),
		Registration: handlers.NewRegistrationHandler(a.registration, a.logger.Named("handlers.registration")),
	}, a.logger.Named("router"))

	sched, err := scheduler.NewScheduler(a.cfg.Reporting, a.reporting, a.notifier, a.logger.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting",
			zap.String("port", a.cfg.Server.Port),
			zap.String("data_mode", string(a.cfg.Data.Mode)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			a.logger.Error("http server crashed", zap.Error(err))
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
