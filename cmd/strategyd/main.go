// strategyd runs one strategy instance: it follows the chain, keeps the
// custody index of orders delegated to the instance key, and submits signed
// executions to the relay.
//
// Configuration comes from YAML files (--config, repeatable, later files
// win) and STRATEGYD_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"sundae-strategies/internal/app"
	"sundae-strategies/internal/config"
	"sundae-strategies/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configFiles []string
	var logLevel string
	var dryRun bool

	flagSet := pflag.NewFlagSet("strategyd", pflag.ContinueOnError)
	flagSet.StringArrayVarP(&configFiles, "config", "c", nil, "YAML config file (repeatable)")
	flagSet.StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
	flagSet.BoolVar(&dryRun, "dry-run", false, "sign executions but do not post them")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load(configFiles...)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if flagSet.Changed("dry-run") {
		cfg.DryRun = dryRun
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		return err
	}
	logger.L().Info("strategyd stopped", "instance", cfg.InstanceID)
	return nil
}
