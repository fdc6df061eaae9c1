// Package main runs the Wise jobs widget: a small HTTP service that fetches
// the job feed once at startup, flags postings the viewer has not seen and
// serves the jobs button and panel.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/sync/errgroup"

	"wisejobs-widget/alert"
	"wisejobs-widget/config"
	"wisejobs-widget/feed"
	"wisejobs-widget/server"
	"wisejobs-widget/storage"
	"wisejobs-widget/widget"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Widget service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	alerter, err := newAlerter(ctx, &cfg, logger)
	if err != nil {
		return err
	}

	w, err := widget.New(ctx, &widget.Config{
		Store:   store,
		Fetcher: feed.New(&http.Client{Timeout: 30 * time.Second}, feed.DefaultURL, logger),
		Alerter: alerter,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create widget: %w", err)
	}

	srv := server.New(&server.Config{
		Widget: w,
		Logger: logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	task := w.Mount(gctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx, strconv.Itoa(cfg.Port))
	})
	g.Go(func() error {
		select {
		case <-task.Done():
			if err := task.Wait(); err != nil {
				logger.Warn("Job feed unavailable, widget stays empty", "error", err)
			}
		case <-gctx.Done():
		}
		<-gctx.Done()
		w.Unmount()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Widget service stopped")
	return nil
}

// openStore builds the configured key-value backend and a func releasing it.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		logger.Info("Using in-memory storage; viewed ids are lost on restart")
		return storage.NewMemory(), noop, nil

	case config.StorageSQLite:
		s, err := storage.OpenSQL(ctx, cfg.Storage.SQLite)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using SQLite storage", "path", cfg.Storage.SQLite)
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("Failed to close SQLite storage", "error", err)
			}
		}, nil

	case config.StorageGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		logger.Info("Using Cloud Storage", "bucket", cfg.Storage.Bucket, "prefix", cfg.Storage.Prefix)
		return storage.NewGCS(client, cfg.Storage.Bucket, cfg.Storage.Prefix, logger), func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}, nil

	default:
		s, err := storage.NewLocal(cfg.Storage.LocalPath, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using local storage", "storage_path", cfg.Storage.LocalPath)
		return s, noop, nil
	}
}

// newAlerter returns nil when alerts are disabled.
func newAlerter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (widget.Alerter, error) {
	var provider alert.Provider

	switch cfg.Alert.Provider {
	case config.AlertNone:
		return nil, nil
	case config.AlertMock:
		provider = alert.NewMockProvider(logger)
	case config.AlertBrevo:
		provider = alert.NewBrevoProvider(cfg.Alert.BrevoAPIKey, cfg.Alert.From, cfg.Alert.FromName, logger)
	case config.AlertGmail:
		gp, err := alert.NewGmailProvider(ctx, []byte(cfg.Alert.CredentialsJSON), logger)
		if err != nil {
			return nil, err
		}
		provider = gp
	default:
		return nil, fmt.Errorf("unknown alert provider %q", cfg.Alert.Provider)
	}

	logger.Info("New jobs alerts enabled", "provider", cfg.Alert.Provider, "to", cfg.Alert.To)
	return alert.New(provider, cfg.Alert.To, logger), nil
}
