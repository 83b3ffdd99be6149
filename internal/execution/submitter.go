// Package execution builds, signs and submits strategy executions.
package execution

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/idhash"
	"sundae-strategies/internal/logger"
	"sundae-strategies/internal/observability"
	"sundae-strategies/internal/relay"
	"sundae-strategies/internal/signing"
	"sundae-strategies/internal/storage"
)

// Executor hands an execution instruction for one tracked order to the protocol.
type Executor interface {
	Submit(
		ctx context.Context,
		network domain.Network,
		ref domain.OutputReference,
		validity datum.Interval,
		details datum.Order,
	) (*relay.Response, error)
}

// Publisher posts a submission to a relay url.
type Publisher interface {
	Publish(ctx context.Context, url string, sub relay.Submission) (*relay.Response, error)
}

// Compile-time interface checks.
var (
	_ Executor  = (*Submitter)(nil)
	_ Executor  = (*DryRun)(nil)
	_ Publisher = (*relay.Client)(nil)
)

// SignExecution encodes the execution, signs the encoding with the default
// key and returns the encoded signed envelope.
func SignExecution(signer signing.Signer, exec datum.StrategyExecution) ([]byte, error) {
	unsigned := datum.Serialize(exec)
	sig, err := signer.Sign(signing.DefaultKey, unsigned)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSign, err)
	}
	return datum.Serialize(datum.SignedStrategyExecution{Execution: exec, Signature: sig}), nil
}

// Submitter signs executions and posts them to the network's relay.
type Submitter struct {
	signer     signing.Signer
	publisher  Publisher
	urls       map[domain.Network]string
	store      storage.ExecutionStore
	instanceID string
	metrics    *observability.Metrics
	log        *slog.Logger
	now        func() time.Time
}

// SubmitterOption configures a Submitter.
type SubmitterOption func(*Submitter)

// WithRelayURL overrides the relay endpoint of a network.
func WithRelayURL(network domain.Network, url string) SubmitterOption {
	return func(s *Submitter) {
		s.urls[network] = url
	}
}

// WithExecutionStore records every attempt in store.
func WithExecutionStore(store storage.ExecutionStore, instanceID string) SubmitterOption {
	return func(s *Submitter) {
		s.store = store
		s.instanceID = instanceID
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) SubmitterOption {
	return func(s *Submitter) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SubmitterOption {
	return func(s *Submitter) {
		s.log = l
	}
}

// WithClock sets the clock used to stamp execution records.
func WithClock(now func() time.Time) SubmitterOption {
	return func(s *Submitter) {
		s.now = now
	}
}

// NewSubmitter creates a Submitter.
func NewSubmitter(signer signing.Signer, publisher Publisher, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		signer:    signer,
		publisher: publisher,
		urls: map[domain.Network]string{
			domain.NetworkPreview: domain.NetworkPreview.RelayURL(),
			domain.NetworkMainnet: domain.NetworkMainnet.RelayURL(),
		},
		log: logger.L(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit builds a StrategyExecution with empty extensions for the order at
// ref, signs it and posts it to the relay. Relay and signing errors are
// returned unchanged in meaning; a non-2xx answer returns the response too.
func (s *Submitter) Submit(
	ctx context.Context,
	network domain.Network,
	ref domain.OutputReference,
	validity datum.Interval,
	details datum.Order,
) (*relay.Response, error) {
	url, ok := s.urls[network]
	if !ok || url == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoRelayURL, network)
	}

	exec := datum.StrategyExecution{
		TxRef:         ref,
		ValidityRange: validity,
		Details:       details,
		Extensions:    []byte{},
	}
	payload, err := SignExecution(s.signer, exec)
	if err != nil {
		s.recordMetrics(network, "sign", 0)
		return nil, err
	}
	payloadHex := hex.EncodeToString(payload)

	sub := relay.Submission{
		TxHash:  ref.TransactionID.String(),
		TxIndex: ref.OutputIndex,
		Data:    payloadHex,
	}

	start := time.Now()
	resp, err := s.publisher.Publish(ctx, url, sub)
	elapsed := time.Since(start)

	if err != nil {
		s.log.Error("execution rejected", "output", ref.String(), "network", network, "err", err)
		s.recordMetrics(network, "relay", elapsed)
	} else {
		s.log.Info("execution submitted", "output", ref.String(), "network", network, "status", resp.StatusCode)
		s.recordMetrics(network, "", elapsed)
	}
	s.record(ctx, network, ref, validity, payloadHex, resp, err)

	return resp, err
}

func (s *Submitter) recordMetrics(network domain.Network, stage string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(string(network), stage, d)
	}
}

// record appends the attempt to the execution log. Failures are logged only.
func (s *Submitter) record(
	ctx context.Context,
	network domain.Network,
	ref domain.OutputReference,
	validity datum.Interval,
	payloadHex string,
	resp *relay.Response,
	submitErr error,
) {
	if s.store == nil {
		return
	}

	txHash := ref.TransactionID.String()
	r := &domain.ExecutionRecord{
		ExecutionID: idhash.ComputeExecutionID(s.instanceID, txHash, ref.OutputIndex, payloadHex),
		InstanceID:  s.instanceID,
		Network:     network,
		TxHash:      txHash,
		TxIndex:     ref.OutputIndex,
		ValidFrom:   validity.Lower.Millis,
		ValidTo:     validity.Upper.Millis,
		Payload:     payloadHex,
		Status:      domain.ExecutionSubmitted,
		SubmittedAt: s.now().UnixMilli(),
	}
	if resp != nil {
		r.HTTPStatus = resp.StatusCode
	}
	if submitErr != nil {
		r.Status = domain.ExecutionFailed
		r.Error = submitErr.Error()
	}

	if err := s.store.Insert(ctx, r); err != nil {
		s.log.Warn("failed to record execution", "execution_id", r.ExecutionID, "err", err)
	}
}
