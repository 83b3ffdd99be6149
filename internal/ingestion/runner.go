// Package ingestion feeds confirmed transactions from a chain source into the engine.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/engine"
	"sundae-strategies/internal/logger"
)

// Stats counts what a runner has processed.
type Stats struct {
	Txs    int
	Events int
	Errors int
}

// Runner pulls transactions from a source and dispatches their events.
type Runner struct {
	source      TxSource
	handler     engine.Handler
	rawConfig   []byte
	stopOnError bool
	log         *slog.Logger

	lastSlot uint64
	started  bool
	stats    Stats
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithStopOnError makes Run return on the first failed event instead of
// logging it and moving on.
func WithStopOnError(stop bool) RunnerOption {
	return func(r *Runner) {
		r.stopOnError = stop
	}
}

// WithLogger sets the runner logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = l
	}
}

// NewRunner creates a runner dispatching to handler with rawConfig.
func NewRunner(source TxSource, handler engine.Handler, rawConfig []byte, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:    source,
		handler:   handler,
		rawConfig: rawConfig,
		log:       logger.L(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes transactions until the source is exhausted or ctx is done.
// A slot regression always stops the run with ErrInvalidOrdering.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("ingestion runner started")

	for {
		tx, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			r.log.Info("source exhausted", "txs", r.stats.Txs, "events", r.stats.Events, "errors", r.stats.Errors)
			return nil
		}
		if err != nil {
			return err
		}

		if err := r.Process(ctx, *tx); err != nil {
			if errors.Is(err, ErrInvalidOrdering) || r.stopOnError {
				return err
			}
			r.log.Warn("transaction had failed events", "tx", tx.Hash.String(), "slot", tx.Slot, "err", err)
		}
	}
}

// Process dispatches every event of tx. All events are delivered even when
// an earlier one fails; the failures are joined into the returned error.
func (r *Runner) Process(ctx context.Context, tx domain.Tx) error {
	if r.started && tx.Slot < r.lastSlot {
		return fmt.Errorf("%w: slot %d after %d", ErrInvalidOrdering, tx.Slot, r.lastSlot)
	}
	r.started = true
	r.lastSlot = tx.Slot
	r.stats.Txs++

	var errs []error
	for _, ev := range Expand(tx) {
		r.stats.Events++
		if _, err := r.handler.Handle(ctx, r.rawConfig, ev); err != nil {
			r.stats.Errors++
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns the counters so far.
func (r *Runner) Stats() Stats {
	return r.stats
}
