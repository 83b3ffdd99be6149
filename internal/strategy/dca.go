package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"sundae-strategies/internal/custody"
	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/engine"
	"sundae-strategies/internal/execution"
	"sundae-strategies/internal/logger"
)

// DCAConfig configures dollar-cost averaging.
type DCAConfig struct {
	Common
	Interval         uint64 `json:"interval"` // slots between buys
	OfferToken       string `json:"offerToken"`
	OfferAmount      uint64 `json:"offerAmount"`
	ReceiveToken     string `json:"receiveToken"`
	ReceiveAmountMin uint64 `json:"receiveAmountMin"`

	offer   domain.AssetID
	receive domain.AssetID
}

// Validate implements the engine's config validation.
func (c *DCAConfig) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	var err error
	if c.offer, err = parseToken("offerToken", c.OfferToken); err != nil {
		return err
	}
	if c.receive, err = parseToken("receiveToken", c.ReceiveToken); err != nil {
		return err
	}
	return nil
}

// DCA buys a fixed amount for every tracked order once the order has been
// waiting longer than the configured interval.
type DCA struct {
	exec execution.Executor
	log  *slog.Logger
}

// Compile-time interface check.
var _ engine.TxHandler[DCAConfig] = (*DCA)(nil)

// NewDCA creates a DCA strategy.
func NewDCA(exec execution.Executor, l *slog.Logger) *DCA {
	if l == nil {
		l = logger.L()
	}
	return &DCA{exec: exec, log: l}
}

// OnEachTx submits a swap for every order older than the interval.
func (s *DCA) OnEachTx(ctx context.Context, cfg DCAConfig, tx domain.Tx, orders []custody.ManagedOrder) error {
	for _, o := range orders {
		var elapsed uint64
		if tx.Slot > o.Slot {
			elapsed = tx.Slot - o.Slot
		}
		if elapsed <= cfg.Interval {
			continue
		}

		s.log.Info("dca interval elapsed", "output", o.Output.String(), "elapsed", elapsed)
		details := datum.SwapOrder(
			datum.Value(cfg.offer, cfg.OfferAmount),
			datum.Value(cfg.receive, cfg.ReceiveAmountMin),
		)
		if _, err := s.exec.Submit(ctx, cfg.Net(), o.Output, cfg.Window(tx.Slot), details); err != nil {
			return fmt.Errorf("dca submit %s: %w", o.Output, err)
		}
	}
	return nil
}
