// Package strategy holds the concrete strategies run by strategyd.
package strategy

import (
	"log/slog"

	"sundae-strategies/internal/custody"
	"sundae-strategies/internal/execution"
	"sundae-strategies/internal/observability"
	"sundae-strategies/internal/signing"
	"sundae-strategies/internal/storage"
)

// Deps are the collaborators every strategy instance is built from.
type Deps struct {
	Tracker  *custody.Tracker
	Signer   signing.Signer
	Executor execution.Executor
	KV       storage.KVStore
	Metrics  *observability.Metrics // optional
	Logger   *slog.Logger           // optional
}
