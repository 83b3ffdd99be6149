package strategy

import (
	"errors"
	"fmt"

	"sundae-strategies/internal/engine"
)

// Strategy kinds accepted by New.
const (
	KindDCA           = "dca"
	KindTrailingStop  = "trailing-stop"
	KindMeanReversion = "mean-reversion"
)

// Factory errors
var (
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrMissingDependency   = errors.New("missing strategy dependency")
)

// Kinds lists the supported strategy kinds.
func Kinds() []string {
	return []string{KindDCA, KindTrailingStop, KindMeanReversion}
}

// New builds the engine for a strategy kind.
func New(kind string, deps Deps) (engine.Handler, error) {
	if err := deps.check(); err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithMetrics(deps.Metrics)}
	if deps.Logger != nil {
		opts = append(opts, engine.WithLogger(deps.Logger))
	}

	switch kind {
	case KindDCA:
		return engine.New[DCAConfig](NewDCA(deps.Executor, deps.Logger), deps.Tracker, deps.Signer, opts...), nil
	case KindTrailingStop:
		return engine.New[TrailingStopConfig](NewTrailingStop(deps.Executor, deps.KV, deps.Logger), deps.Tracker, deps.Signer, opts...), nil
	case KindMeanReversion:
		return engine.New[MeanReversionConfig](NewMeanReversion(deps.Executor, deps.KV, deps.Logger), deps.Tracker, deps.Signer, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategyType, kind)
	}
}

func (d Deps) check() error {
	switch {
	case d.Tracker == nil:
		return fmt.Errorf("%w: tracker", ErrMissingDependency)
	case d.Signer == nil:
		return fmt.Errorf("%w: signer", ErrMissingDependency)
	case d.Executor == nil:
		return fmt.Errorf("%w: executor", ErrMissingDependency)
	case d.KV == nil:
		return fmt.Errorf("%w: kv", ErrMissingDependency)
	}
	return nil
}
