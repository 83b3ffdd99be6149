// Package app wires a strategy instance from its configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"sundae-strategies/internal/api"
	"sundae-strategies/internal/config"
	"sundae-strategies/internal/custody"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/engine"
	"sundae-strategies/internal/execution"
	"sundae-strategies/internal/ingestion"
	"sundae-strategies/internal/logger"
	"sundae-strategies/internal/observability"
	"sundae-strategies/internal/relay"
	"sundae-strategies/internal/signing"
	"sundae-strategies/internal/storage"
	chstore "sundae-strategies/internal/storage/clickhouse"
	"sundae-strategies/internal/storage/memory"
	"sundae-strategies/internal/storage/migrations"
	pgstore "sundae-strategies/internal/storage/postgres"
	"sundae-strategies/internal/strategy"
)

// App is one running strategy instance.
type App struct {
	cfg       *config.Config
	rawConfig []byte
	log       *slog.Logger
	metrics   *observability.Metrics

	Signer     *signing.Keyring
	KV         storage.KVStore
	Executions storage.ExecutionStore
	Tracker    *custody.Tracker
	Executor   execution.Executor
	Handler    engine.Handler
	HTTP       *api.Server

	closers []func()
}

// Option customizes Build.
type Option func(*App)

// WithExecutor replaces the executor chosen from the configuration.
func WithExecutor(e execution.Executor) Option {
	return func(a *App) {
		a.Executor = e
	}
}

// WithMetrics overrides the metrics sink. Defaults to observability.DefaultMetrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// Build resolves keys, storage and the strategy handler. It does not start
// ingestion; see Run.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.LogLevel)
	logger.SetFormat(cfg.LogFormat)

	a := &App{cfg: cfg, metrics: observability.DefaultMetrics}
	for _, opt := range opts {
		opt(a)
	}

	if err := cfg.EnsureInstanceID(); err != nil {
		return nil, err
	}
	a.log = logger.L().With("instance", cfg.InstanceID, "strategy", cfg.Strategy.Kind)

	raw, err := cfg.StrategyJSON()
	if err != nil {
		return nil, err
	}
	a.rawConfig = raw

	keys, created, err := signing.LoadOrCreate(cfg.KeysDir(), cfg.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("loading keys: %w", err)
	}
	if created {
		a.log.Info("generated signing key", "path", signing.KeyPath(cfg.KeysDir(), cfg.InstanceID))
	}
	a.Signer = keys

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.Tracker = custody.NewTracker(a.KV, custody.WithLogger(a.log))

	if a.Executor == nil {
		a.Executor = a.newExecutor()
	}

	handler, err := strategy.New(cfg.Strategy.Kind, strategy.Deps{
		Tracker:  a.Tracker,
		Signer:   a.Signer,
		Executor: a.Executor,
		KV:       a.KV,
		Metrics:  a.metrics,
		Logger:   a.log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Handler = handler

	if cfg.HTTP.Addr != "" {
		srv, err := api.NewServer(api.ServerConfig{
			Addr:      cfg.HTTP.Addr,
			Handler:   a.Handler,
			RawConfig: a.rawConfig,
			Logger:    a.log,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.HTTP = srv
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		a.KV = pgstore.NewKVStore(pool, a.cfg.InstanceID)
	default:
		a.KV = memory.NewKVStore()
	}

	switch a.cfg.Executions.Driver {
	case "clickhouse":
		conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.Executions.ClickhouseDSN)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		a.Executions = chstore.NewExecutionStore(conn)
	case "memory":
		a.Executions = memory.NewExecutionStore()
	}
	return nil
}

func (a *App) newExecutor() execution.Executor {
	if a.cfg.DryRun {
		return execution.NewDryRun(a.Signer, a.log)
	}

	client := relay.NewClient(
		relay.WithTimeout(a.cfg.Relay.Timeout),
		relay.WithMaxRetries(a.cfg.Relay.MaxRetries),
		relay.WithLogger(a.log),
	)
	opts := []execution.SubmitterOption{
		execution.WithMetrics(a.metrics),
		execution.WithLogger(a.log),
	}
	for name, url := range a.cfg.Relay.URLs {
		// validated by config.Load
		if n, err := domain.ParseNetwork(name); err == nil {
			opts = append(opts, execution.WithRelayURL(n, url))
		}
	}
	if a.Executions != nil {
		opts = append(opts, execution.WithExecutionStore(a.Executions, a.cfg.InstanceID))
	}
	return execution.NewSubmitter(a.Signer, client, opts...)
}

// RawConfig is the strategy configuration passed with every event.
func (a *App) RawConfig() []byte {
	return a.rawConfig
}

// Source opens the configured transaction source.
func (a *App) Source(ctx context.Context) (ingestion.TxSource, error) {
	switch {
	case a.cfg.Chain.WSEndpoint != "":
		wsCfg := ingestion.DefaultWSConfig()
		wsCfg.FromSlot = a.cfg.Chain.FromSlot
		return ingestion.NewWSSource(ctx, a.cfg.Chain.WSEndpoint, &wsCfg,
			ingestion.WithWSLogger(a.log),
			ingestion.WithWSMetrics(a.metrics),
		)
	case a.cfg.Chain.EventsFile != "":
		return ingestion.OpenFileSource(a.cfg.Chain.EventsFile)
	default:
		return nil, errors.New("no chain source configured (chain.ws_endpoint or chain.events_file)")
	}
}

// Run serves the API and feeds the source into the handler until ctx is
// cancelled, the source ends, or either side fails.
func (a *App) Run(ctx context.Context) error {
	source, err := a.Source(ctx)
	if err != nil {
		return err
	}
	defer source.Close()

	a.log.Info("strategy instance starting",
		"config", string(a.rawConfig),
		"http", a.cfg.HTTP.Addr,
		"dry_run", a.cfg.DryRun,
	)

	group, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	if a.HTTP != nil {
		group.Go(func() error {
			if err := a.HTTP.Start(runCtx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}

	group.Go(func() error {
		// a finished file replay stops the API as well
		defer stop()
		runner := ingestion.NewRunner(source, a.Handler, a.rawConfig, ingestion.WithLogger(a.log))
		if err := runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		st := runner.Stats()
		a.log.Info("ingestion finished", "txs", st.Txs, "events", st.Events, "errors", st.Errors)
		return nil
	})

	return group.Wait()
}

// Close releases storage connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
