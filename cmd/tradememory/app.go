package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trade-memory/internal/config"
	"trade-memory/internal/llm"
	"trade-memory/internal/observability"
	"trade-memory/internal/pipeline"
	"trade-memory/internal/reporting"
	chstore "trade-memory/internal/storage/clickhouse"
	"trade-memory/internal/storage/memory"
	"trade-memory/internal/storage/migrations"
	pgstore "trade-memory/internal/storage/postgres"
)

// app bundles everything a command needs.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	svc     *pipeline.Service
	stores  pipeline.Stores
	cleanup func()
}

func (a *app) Close() {
	if a.cleanup != nil {
		a.cleanup()
	}
	_ = a.logger.Sync()
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	if cmd.Flags().Changed("use-memory") {
		cfg.UseMemory = useMemory
	}
	if postgresDSN != "" {
		cfg.Postgres.DSN = postgresDSN
		if !cmd.Flags().Changed("use-memory") {
			cfg.UseMemory = false
		}
	}
	if clickhouseDSN != "" {
		cfg.Clickhouse.DSN = clickhouseDSN
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

// newApp wires config, logging, storage and the service for one command.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	m := observability.NewMetrics("")

	stores, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	var gen reporting.GeneratorFunc
	if cfg.GeneratorEnabled() {
		client, err := llm.NewClient(cfg.LLM, logger.Named("llm"), m)
		if err != nil {
			cleanup()
			return nil, err
		}
		gen = client.Generate
	} else {
		logger.Info("no generator configured, reports use the template")
	}

	opts := pipeline.DefaultOptions()
	opts.Metrics = cfg.Metrics
	opts.Reporting = cfg.Reporting
	opts.Patterns = cfg.Patterns
	opts.Adjustment = cfg.Adjustment
	opts.RiskLimits = cfg.Risk.Limits()
	opts.OutputDir = cfg.OutputDir

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		svc:     pipeline.NewService(stores, opts, gen, logger.Named("pipeline"), m),
		stores:  stores,
		cleanup: cleanup,
	}

	if loadDemo {
		weekStart := lastWeekStart(time.Now().UTC())
		n, err := pipeline.LoadFixtures(ctx, stores.Trades, weekStart)
		if err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("demo journal loaded", zap.Int("trades", n), zap.Time("week_start", weekStart))
	}
	return a, nil
}

// openStores connects the configured backends and applies migrations.
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (pipeline.Stores, func(), error) {
	if cfg.UseMemory {
		return pipeline.Stores{
			Trades:      memory.NewTradeRecordStore(),
			Patterns:    memory.NewPatternStore(),
			Adjustments: memory.NewAdjustmentStore(),
			Reports:     memory.NewReportStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, pgstore.PoolOptions{MaxConns: cfg.Postgres.MaxConns})
	if err != nil {
		return pipeline.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("postgres migrations applied", zap.Strings("files", applied))
	}

	stores := pipeline.Stores{
		Trades:      pgstore.NewTradeRecordStore(pool),
		Adjustments: pgstore.NewAdjustmentStore(pool),
		Reports:     pgstore.NewReportStore(pool),
	}
	cleanup := pool.Close

	if cfg.Clickhouse.DSN == "" {
		logger.Warn("no clickhouse dsn, discovered patterns are kept in memory for this process only")
		stores.Patterns = memory.NewPatternStore()
		return stores, cleanup, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Clickhouse.DSN)
	if err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	stores.Patterns = chstore.NewPatternStore(conn)
	cleanup = func() {
		conn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// lastWeekStart returns the Monday of the week before now.
func lastWeekStart(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // days since Monday
	return day.AddDate(0, 0, -offset-7)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
