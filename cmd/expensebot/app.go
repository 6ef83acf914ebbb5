package main

import (
	"context"
	"fmt"

	"github.com/velkoldin-dev/tratyallday/internal/backend"
	"github.com/velkoldin-dev/tratyallday/internal/cli"
	"github.com/velkoldin-dev/tratyallday/internal/config"
	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/services"
)

// app holds what every subcommand needs: config, logger, storage and the
// services built on top of it.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	clock   *core.Clock
	backend *backend.BackendResult
	records *services.RecordStore
	stats   *services.StatsAggregator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.Log)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	clock := core.NewClock(cfg.Bot.TimezoneOffset)
	return &app{
		cfg:     cfg,
		logger:  logger,
		clock:   clock,
		backend: res,
		records: services.NewRecordStore(res.Repository, res.Publisher, logger),
		stats:   services.NewStatsAggregator(res.Repository, clock, logger),
	}, nil
}

func (a *app) close() {
	if a.backend.Cleanup == nil {
		return
	}
	if err := a.backend.Cleanup(); err != nil {
		a.logger.Warn("Cleanup failed", log.FieldError, err)
	}
}
