package domain

// ExecutionStatus is the outcome of a relay submission.
type ExecutionStatus string

const (
	ExecutionSubmitted ExecutionStatus = "submitted"
	ExecutionFailed    ExecutionStatus = "failed"
)

// ExecutionRecord is one attempt to hand a signed execution to the relay.
// Corresponds to the executions table in ClickHouse.
type ExecutionRecord struct {
	ExecutionID string          // deterministic hash of instance, order and payload
	InstanceID  string          // strategy instance that produced it
	Network     Network         // preview | mainnet
	TxHash      string          // hex hash of the order output's transaction
	TxIndex     uint64          // order output index
	ValidFrom   uint64          // validity range lower bound (unix ms)
	ValidTo     uint64          // validity range upper bound (unix ms)
	Payload     string          // hex of the signed execution
	Status      ExecutionStatus // submitted | failed
	HTTPStatus  int             // relay response status, 0 if no response
	Error       string          // failure reason, empty on success
	SubmittedAt int64           // unix ms
}
