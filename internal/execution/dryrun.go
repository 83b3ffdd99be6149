package execution

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"

	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/logger"
	"sundae-strategies/internal/relay"
	"sundae-strategies/internal/signing"
)

// DryRun signs executions but only logs them.
type DryRun struct {
	signer signing.Signer
	log    *slog.Logger

	mu        sync.Mutex
	submitted []relay.Submission
}

// NewDryRun creates a DryRun executor. A nil logger uses the default.
func NewDryRun(signer signing.Signer, l *slog.Logger) *DryRun {
	if l == nil {
		l = logger.L()
	}
	return &DryRun{signer: signer, log: l}
}

// Submit signs the execution and logs what would have been posted.
func (d *DryRun) Submit(
	_ context.Context,
	network domain.Network,
	ref domain.OutputReference,
	validity datum.Interval,
	details datum.Order,
) (*relay.Response, error) {
	payload, err := SignExecution(d.signer, datum.StrategyExecution{
		TxRef:         ref,
		ValidityRange: validity,
		Details:       details,
		Extensions:    []byte{},
	})
	if err != nil {
		return nil, err
	}

	sub := relay.Submission{
		TxHash:  ref.TransactionID.String(),
		TxIndex: ref.OutputIndex,
		Data:    hex.EncodeToString(payload),
	}
	d.mu.Lock()
	d.submitted = append(d.submitted, sub)
	d.mu.Unlock()

	d.log.Info("dry run execution",
		"network", network,
		"output", ref.String(),
		"valid_from", validity.Lower.Millis,
		"valid_to", validity.Upper.Millis,
		"data", sub.Data,
	)
	return &relay.Response{StatusCode: http.StatusOK}, nil
}

// Submitted returns the submissions seen so far.
func (d *DryRun) Submitted() []relay.Submission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]relay.Submission(nil), d.submitted...)
}
