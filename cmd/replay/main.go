// replay feeds a JSON-lines transaction file through a strategy and reports
// what it would have submitted. Executions are only logged unless --live.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"sundae-strategies/internal/app"
	"sundae-strategies/internal/config"
	"sundae-strategies/internal/execution"
	"sundae-strategies/internal/ingestion"
	"sundae-strategies/internal/strategy"
)

type summary struct {
	InstanceID  string   `json:"instanceId"`
	Txs         int      `json:"txs"`
	Events      int      `json:"events"`
	Errors      int      `json:"errors"`
	Orders      int      `json:"ordersTracked"`
	Submissions []string `json:"submissions,omitempty"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		eventsFile  string
		kind        string
		configJSON  string
		configFile  string
		dataDir     string
		logLevel    string
		live        bool
		stopOnError bool
		relayURLs   map[string]string
	)

	flagSet := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flagSet.StringVarP(&eventsFile, "events", "e", "", "JSON-lines transaction file (required)")
	flagSet.StringVarP(&kind, "strategy", "s", "", fmt.Sprintf("strategy kind %v (required)", strategy.Kinds()))
	flagSet.StringVar(&configJSON, "strategy-config", "", "strategy configuration as inline JSON")
	flagSet.StringVar(&configFile, "strategy-config-file", "", "strategy configuration JSON file")
	flagSet.StringVar(&dataDir, "data-dir", "", "instance data dir (default: a temporary directory)")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level")
	flagSet.BoolVar(&live, "live", false, "post executions to the relay")
	flagSet.BoolVar(&stopOnError, "stop-on-error", false, "abort on the first failed event")
	flagSet.StringToStringVar(&relayURLs, "relay-url", nil, "relay url override per network, e.g. preview=http://...")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if eventsFile == "" || kind == "" {
		return fmt.Errorf("--events and --strategy are required")
	}
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("reading strategy config: %w", err)
		}
		configJSON = string(data)
	}
	if dataDir == "" {
		tmp, err := os.MkdirTemp("", "replay-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(tmp)
		dataDir = tmp
	}

	cfg := &config.Config{
		LogLevel:   logLevel,
		LogFormat:  "text",
		DataDir:    dataDir,
		DryRun:     !live,
		Strategy:   config.StrategyConfig{Kind: kind, ConfigJSON: configJSON},
		Storage:    config.StorageConfig{Driver: "memory"},
		Executions: config.ExecutionsConfig{Driver: "memory"},
		Chain:      config.ChainConfig{EventsFile: eventsFile},
		Relay:      config.RelayConfig{Timeout: 10 * time.Second, URLs: relayURLs},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	source, err := a.Source(ctx)
	if err != nil {
		return err
	}
	defer source.Close()

	runner := ingestion.NewRunner(source, a.Handler, a.RawConfig(), ingestion.WithStopOnError(stopOnError))
	runErr := runner.Run(ctx)

	orders, err := a.Tracker.List(ctx)
	if err != nil {
		return err
	}
	st := runner.Stats()
	out := summary{
		InstanceID: cfg.InstanceID,
		Txs:        st.Txs,
		Events:     st.Events,
		Errors:     st.Errors,
		Orders:     len(orders),
	}
	if dry, ok := a.Executor.(*execution.DryRun); ok {
		for _, sub := range dry.Submitted() {
			out.Submissions = append(out.Submissions, fmt.Sprintf("%s#%d %s", sub.TxHash, sub.TxIndex, shorten(sub.Data)))
		}
	} else if a.Executions != nil {
		recs, err := a.Executions.GetByInstance(ctx, cfg.InstanceID)
		if err != nil {
			return err
		}
		for _, r := range recs {
			out.Submissions = append(out.Submissions, fmt.Sprintf("%s#%d %s http=%d", r.TxHash, r.TxIndex, r.Status, r.HTTPStatus))
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	return runErr
}

func shorten(data string) string {
	if _, err := hex.DecodeString(data); err != nil || len(data) <= 32 {
		return data
	}
	return data[:32] + "..."
}
