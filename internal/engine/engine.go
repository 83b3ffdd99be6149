// Package engine dispatches chain events and inbound calls to a strategy.
package engine

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"sundae-strategies/internal/custody"
	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/logger"
	"sundae-strategies/internal/observability"
	"sundae-strategies/internal/signing"
)

// Built-in call methods.
const (
	MethodGetSignerKey = "get-signer-key"
	MethodListOrders   = "list-orders"
)

// validator is implemented by configs that check themselves after decoding.
type validator interface {
	Validate() error
}

// Engine runs one strategy instance with config type C.
// Events are processed one at a time.
type Engine[C any] struct {
	strategy any
	tracker  *custody.Tracker
	signer   signing.Signer
	metrics  *observability.Metrics
	log      *slog.Logger

	mu          sync.Mutex
	highestSlot uint64
}

// Compile-time interface check.
var _ Handler = (*Engine[struct{}])(nil)

// Option configures an Engine.
type Option func(*options)

type options struct {
	metrics *observability.Metrics
	log     *slog.Logger
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// New creates an engine. strategy may implement any of NewOrderHandler[C],
// PoolStateHandler[C] and TxHandler[C]; missing capabilities are no-ops.
func New[C any](strategy any, tracker *custody.Tracker, signer signing.Signer, opts ...Option) *Engine[C] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.L()
	}
	return &Engine[C]{
		strategy: strategy,
		tracker:  tracker,
		signer:   signer,
		metrics:  o.metrics,
		log:      o.log,
	}
}

// DecodeConfig parses rawConfig into C and validates it.
func DecodeConfig[C any](rawConfig []byte) (C, error) {
	var cfg C
	if len(rawConfig) == 0 {
		rawConfig = []byte("{}")
	}
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if v, ok := any(&cfg).(validator); ok {
		if err := v.Validate(); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return cfg, nil
}

// Handle processes a single event.
func (e *Engine[C]) Handle(ctx context.Context, rawConfig []byte, ev Event) (Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	resp, err := e.handle(ctx, rawConfig, ev)
	if e.metrics != nil {
		e.metrics.RecordEvent(string(ev.Kind), time.Since(start), err)
	}
	if err != nil {
		e.log.Error("event failed", "kind", ev.Kind, "err", err)
	}
	return resp, err
}

func (e *Engine[C]) handle(ctx context.Context, rawConfig []byte, ev Event) (Response, error) {
	cfg, err := DecodeConfig[C](rawConfig)
	if err != nil {
		return Response{}, err
	}

	switch ev.Kind {
	case EventUtxo:
		if ev.Utxo == nil {
			return Response{}, nil
		}
		e.observeSlot(ev.Utxo.Slot)
		return Response{}, e.onNewOutput(ctx, cfg, *ev.Utxo)
	case EventTx:
		if ev.Tx == nil {
			return Response{}, nil
		}
		e.observeSlot(ev.Tx.Slot)
		return Response{}, e.onTx(ctx, cfg, *ev.Tx)
	case EventCall:
		if ev.Call == nil {
			return Response{}, fmt.Errorf("%w: empty call", ErrUnknownMethod)
		}
		return e.onCall(ctx, *ev.Call)
	default:
		e.log.Debug("ignoring event", "kind", ev.Kind)
		return Response{}, nil
	}
}

func (e *Engine[C]) observeSlot(slot uint64) {
	if slot <= e.highestSlot {
		return
	}
	e.highestSlot = slot
	if e.metrics != nil {
		e.metrics.UpdateHighestSlot(slot)
	}
}

// onNewOutput runs the pool-state check and then the strategy-order check.
func (e *Engine[C]) onNewOutput(ctx context.Context, cfg C, u domain.Utxo) error {
	if len(u.Output.Datum) == 0 {
		return nil
	}

	if h, ok := e.strategy.(PoolStateHandler[C]); ok {
		if pool, ok := datum.TryParse[datum.PoolDatum](u.Output.Datum); ok {
			orders, err := e.tracker.List(ctx)
			if err != nil {
				return err
			}
			state := PoolState{Slot: u.Slot, Output: u.Ref, Utxo: u.Output, Pool: pool}
			if err := h.OnNewPoolState(ctx, cfg, state, orders); err != nil {
				return fmt.Errorf("on new pool state %s: %w", u.Ref, err)
			}
		}
	}

	order, ok := datum.TryParse[datum.OrderDatum](u.Output.Datum)
	if !ok || order.Details.Kind != datum.OrderStrategy {
		return nil
	}

	key, err := e.signer.PublicKey(signing.DefaultKey)
	if err != nil {
		return fmt.Errorf("signer key: %w", err)
	}

	managed, tracked, err := e.tracker.OnNewOutput(ctx, u.Slot, u.Ref, u.Output, &order, key)
	if err != nil {
		return err
	}
	if managed == nil {
		return nil
	}
	if e.metrics != nil {
		e.metrics.UpdateCustody(tracked, 1, 0)
	}

	if h, ok := e.strategy.(NewOrderHandler[C]); ok {
		if err := h.OnNewOrder(ctx, cfg, *managed); err != nil {
			return fmt.Errorf("on new order %s: %w", u.Ref, err)
		}
	}
	return nil
}

func (e *Engine[C]) onTx(ctx context.Context, cfg C, tx domain.Tx) error {
	remaining, removed, err := e.tracker.OnConfirmedTransaction(ctx, tx.Inputs)
	if err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.UpdateCustody(len(remaining), 0, removed)
	}

	if h, ok := e.strategy.(TxHandler[C]); ok {
		if err := h.OnEachTx(ctx, cfg, tx, remaining); err != nil {
			return fmt.Errorf("on tx %s: %w", tx.Hash, err)
		}
	}
	return nil
}

func (e *Engine[C]) onCall(ctx context.Context, call Call) (Response, error) {
	switch call.Method {
	case MethodGetSignerKey:
		key, err := e.signer.PublicKey(signing.DefaultKey)
		if err != nil {
			return Response{}, fmt.Errorf("signer key: %w", err)
		}
		return Response{Body: SignerKeyResponse{Signer: hex.EncodeToString(key)}}, nil
	case MethodListOrders:
		orders, err := e.tracker.List(ctx)
		if err != nil {
			return Response{}, err
		}
		return Response{Body: OrdersResponse{Orders: orders}}, nil
	default:
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownMethod, call.Method)
	}
}
