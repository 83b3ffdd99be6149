package strategy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"sundae-strategies/internal/custody"
	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/engine"
	"sundae-strategies/internal/execution"
	"sundae-strategies/internal/logger"
	"sundae-strategies/internal/storage"
)

// trailingBaseKey holds the highest price seen so far.
const trailingBaseKey = "base_price"

var hundred = decimal.NewFromInt(100)

// TrailingStopConfig configures the trailing stop loss.
type TrailingStopConfig struct {
	Common
	Pool         string          `json:"pool"` // pool identifier, hex
	Token        string          `json:"token"`
	Amount       uint64          `json:"amount"`
	BasePrice    decimal.Decimal `json:"basePrice"`
	TrailPercent decimal.Decimal `json:"trailPercent"`
	ReceiveToken string          `json:"receiveToken"`

	pool    []byte
	token   domain.AssetID
	receive domain.AssetID
}

// Validate implements the engine's config validation.
func (c *TrailingStopConfig) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	var err error
	if c.pool, err = parseHexField("pool", c.Pool); err != nil {
		return err
	}
	if len(c.pool) == 0 {
		return fmt.Errorf("pool: required")
	}
	if c.token, err = parseToken("token", c.Token); err != nil {
		return err
	}
	if c.receive, err = parseToken("receiveToken", c.ReceiveToken); err != nil {
		return err
	}
	if c.Amount == 0 {
		return fmt.Errorf("amount: must be positive")
	}
	if !c.BasePrice.IsPositive() {
		return fmt.Errorf("basePrice: must be positive")
	}
	if !c.TrailPercent.IsPositive() || c.TrailPercent.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("trailPercent: must be in (0, 100)")
	}
	return nil
}

// TrailingStop sells every tracked order once the pool price falls more than
// trailPercent below the highest price seen.
type TrailingStop struct {
	exec execution.Executor
	kv   storage.KVStore
	log  *slog.Logger
}

// Compile-time interface check.
var _ engine.TxHandler[TrailingStopConfig] = (*TrailingStop)(nil)

// NewTrailingStop creates a trailing stop strategy.
func NewTrailingStop(exec execution.Executor, kv storage.KVStore, l *slog.Logger) *TrailingStop {
	if l == nil {
		l = logger.L()
	}
	return &TrailingStop{exec: exec, kv: kv, log: l}
}

// OnEachTx looks for an update of the configured pool in tx.
func (s *TrailingStop) OnEachTx(ctx context.Context, cfg TrailingStopConfig, tx domain.Tx, orders []custody.ManagedOrder) error {
	price, found, err := poolPriceIn(tx, cfg.pool)
	if errors.Is(err, datum.ErrEmptyReserve) {
		s.log.Warn("skipping pool update", "pool", cfg.Pool, "err", err)
		return nil
	}
	if err != nil || !found {
		return err
	}

	base, ok, err := storage.GetJSON[decimal.Decimal](ctx, s.kv, trailingBaseKey)
	if err != nil {
		return err
	}
	if !ok {
		base = cfg.BasePrice
	}

	stop := base.Mul(decimal.NewFromInt(1).Sub(cfg.TrailPercent.Div(hundred)))
	switch {
	case price.LessThan(stop):
		s.log.Info("trailing stop triggered", "price", price.String(), "base", base.String(), "stop", stop.String())
		minReceive := price.Mul(decimal.NewFromUint64(cfg.Amount)).Floor()
		details := datum.SwapOrder(
			datum.Value(cfg.token, cfg.Amount),
			datum.Value(cfg.receive, saturatingUint64(minReceive)),
		)
		for _, o := range orders {
			if _, err := s.exec.Submit(ctx, cfg.Net(), o.Output, cfg.Window(tx.Slot), details); err != nil {
				return fmt.Errorf("trailing stop submit %s: %w", o.Output, err)
			}
		}
	case price.GreaterThan(base):
		s.log.Debug("raising trailing base", "from", base.String(), "to", price.String())
		return storage.SetJSON(ctx, s.kv, trailingBaseKey, price)
	}
	return nil
}

// saturatingUint64 converts a non-negative integral amount, clamping at the
// largest on-chain quantity.
func saturatingUint64(d decimal.Decimal) uint64 {
	if d.Sign() <= 0 {
		return 0
	}
	n := d.BigInt()
	if !n.IsUint64() {
		return math.MaxUint64
	}
	return n.Uint64()
}

// poolPriceIn returns the price of the pool identified by ident among tx's outputs.
func poolPriceIn(tx domain.Tx, ident []byte) (decimal.Decimal, bool, error) {
	for _, out := range tx.Outputs {
		if len(out.Datum) == 0 {
			continue
		}
		pool, ok := datum.TryParse[datum.PoolDatum](out.Datum)
		if !ok || !bytes.Equal(pool.Identifier, ident) {
			continue
		}
		price, err := pool.Price(out)
		if err != nil {
			return decimal.Zero, false, err
		}
		return price, true, nil
	}
	return decimal.Zero, false, nil
}
