package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/obras/internal/config"
	"github.com/vbonduro/obras/internal/db"
	"github.com/vbonduro/obras/internal/kvstore"
	badgerkv "github.com/vbonduro/obras/internal/kvstore/badger"
	"github.com/vbonduro/obras/internal/kvstore/memory"
	rediskv "github.com/vbonduro/obras/internal/kvstore/redis"
	sqlitekv "github.com/vbonduro/obras/internal/kvstore/sqlite"
	"github.com/vbonduro/obras/internal/metrics"
	"github.com/vbonduro/obras/internal/photostore/local"
	"github.com/vbonduro/obras/internal/recordstore"
	"github.com/vbonduro/obras/internal/report"
	"github.com/vbonduro/obras/internal/service"
	"github.com/vbonduro/obras/internal/store"
)

const redisKeyPrefix = "obras:"

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	photos  *local.LocalPhotoStore
	service *service.SiteService
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}

	kv, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	photos, err := local.NewLocalPhotoStore(cfg.PhotoPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize photo store: %w", err)
	}
	a.photos = photos

	rs := recordstore.New(kv, a.metrics, logger)
	a.service = service.NewSiteService(
		store.NewSiteStore(rs, logger),
		store.NewInspectionStore(rs),
		photos,
		report.NewClient(cfg.ReportURL, cfg.ReportTimeout),
		a.metrics,
		logger,
	)
	if cfg.ReportURL == "" {
		logger.Warn("REPORT_ENDPOINT not set; reports are disabled")
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) (kvstore.Store, error) {
	var kv kvstore.Store
	switch a.cfg.StoreBackend {
	case config.BackendSQLite:
		database, err := db.Open(a.cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		kv = sqlitekv.NewSQLiteStore(database)
	case config.BackendBadger:
		s, err := badgerkv.Open(a.cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		kv = s
	case config.BackendRedis:
		s, err := rediskv.Dial(ctx, a.cfg.RedisAddress, redisKeyPrefix, a.cfg.RedisLockTTL)
		if err != nil {
			return nil, err
		}
		kv = s
	case config.BackendMemory:
		a.logger.Warn("using in-memory store; records are lost on exit")
		kv = memory.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store backend %q", a.cfg.StoreBackend)
	}

	// Closers run in reverse, so the store closes before its database.
	a.closers = append(a.closers, kv.Close)
	a.logger.Info("store opened", "backend", a.cfg.StoreBackend)
	return kv, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", "error", err)
		}
	}
}
