package strategy

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"sundae-strategies/internal/custody"
	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/engine"
	"sundae-strategies/internal/execution"
	"sundae-strategies/internal/logger"
	"sundae-strategies/internal/storage"
)

// MeanReversionConfig configures the mean reversion trader.
type MeanReversionConfig struct {
	Common
	Pool    string          `json:"pool,omitempty"` // optional pool identifier filter, hex
	TokenA  string          `json:"tokenA"`
	TokenB  string          `json:"tokenB"`
	Percent decimal.Decimal `json:"percent"` // fraction, 0.05 = 5%

	pool   []byte
	tokenA domain.AssetID
	tokenB domain.AssetID
}

// Validate implements the engine's config validation.
func (c *MeanReversionConfig) Validate() error {
	if err := c.validate(); err != nil {
		return err
	}
	var err error
	if c.Pool != "" {
		if c.pool, err = parseHexField("pool", c.Pool); err != nil {
			return err
		}
	}
	if c.tokenA, err = parseToken("tokenA", c.TokenA); err != nil {
		return err
	}
	if c.tokenB, err = parseToken("tokenB", c.TokenB); err != nil {
		return err
	}
	if c.tokenA.Equal(c.tokenB) {
		return fmt.Errorf("tokenB: must differ from tokenA")
	}
	if !c.Percent.IsPositive() || c.Percent.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("percent: must be in (0, 1)")
	}
	return nil
}

// MeanReversion trades the order balances toward whichever side of the pair
// has moved more than percent away from the recorded base price.
type MeanReversion struct {
	exec execution.Executor
	kv   storage.KVStore
	log  *slog.Logger
}

// Compile-time interface check.
var _ engine.PoolStateHandler[MeanReversionConfig] = (*MeanReversion)(nil)

// NewMeanReversion creates a mean reversion strategy.
func NewMeanReversion(exec execution.Executor, kv storage.KVStore, l *slog.Logger) *MeanReversion {
	if l == nil {
		l = logger.L()
	}
	return &MeanReversion{exec: exec, kv: kv, log: l}
}

func meanReversionBaseKey(ident []byte) string {
	return "base_price:" + hex.EncodeToString(ident)
}

// OnNewPoolState compares the pool price with the recorded base.
func (s *MeanReversion) OnNewPoolState(ctx context.Context, cfg MeanReversionConfig, state engine.PoolState, orders []custody.ManagedOrder) error {
	if cfg.pool != nil && !bytes.Equal(cfg.pool, state.Pool.Identifier) {
		return nil
	}
	if !state.Pool.AssetA.Equal(cfg.tokenA) || !state.Pool.AssetB.Equal(cfg.tokenB) {
		return nil
	}

	price, err := state.Pool.Price(state.Utxo)
	if errors.Is(err, datum.ErrEmptyReserve) {
		s.log.Warn("skipping pool update", "pool", hex.EncodeToString(state.Pool.Identifier), "err", err)
		return nil
	}
	if err != nil {
		return err
	}

	key := meanReversionBaseKey(state.Pool.Identifier)
	base, found, err := storage.GetJSON[decimal.Decimal](ctx, s.kv, key)
	if err != nil {
		return err
	}
	if !found {
		s.log.Info("recording base price", "pool", hex.EncodeToString(state.Pool.Identifier), "price", price.String())
		return storage.SetJSON(ctx, s.kv, key, price)
	}

	one := decimal.NewFromInt(1)
	var offer, receive domain.AssetID
	switch {
	case price.LessThan(base.Mul(one.Sub(cfg.Percent))):
		offer, receive = cfg.tokenA, cfg.tokenB
	case price.GreaterThan(base.Mul(one.Add(cfg.Percent))):
		offer, receive = cfg.tokenB, cfg.tokenA
	default:
		return nil
	}

	submitted := 0
	for _, o := range orders {
		balance := o.Utxo.AmountOf(offer)
		if balance == 0 {
			continue
		}
		details := datum.SwapOrder(datum.Value(offer, balance), datum.Value(receive, 1))
		if _, err := s.exec.Submit(ctx, cfg.Net(), o.Output, cfg.Window(state.Slot), details); err != nil {
			return fmt.Errorf("mean reversion submit %s: %w", o.Output, err)
		}
		submitted++
	}
	if submitted == 0 {
		return nil
	}

	s.log.Info("mean reversion traded", "orders", submitted, "price", price.String(), "base", base.String())
	return storage.SetJSON(ctx, s.kv, key, price)
}
