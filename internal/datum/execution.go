package datum

import (
	"fmt"

	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/plutus"
)

// OutputRef wraps a ledger output reference for encoding.
type OutputRef domain.OutputReference

func (r OutputRef) ToData() plutus.Data {
	txID := plutus.NewConstr(tagRecord, plutus.Bytes(nonNil(r.TransactionID)))
	return plutus.NewConstr(tagRecord, txID, plutus.NewUint(r.OutputIndex))
}

func (r *OutputRef) FromData(d plutus.Data) error {
	fields, err := plutus.ExpectConstr(d, tagRecord, 2)
	if err != nil {
		return fmt.Errorf("output reference: %w", err)
	}
	txFields, err := plutus.ExpectConstr(fields[0], tagRecord, 1)
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	txID, err := plutus.AsBytes(txFields[0])
	if err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	idx, err := plutus.AsUint64(fields[1])
	if err != nil {
		return fmt.Errorf("output index: %w", err)
	}
	*r = OutputRef{TransactionID: txID, OutputIndex: idx}
	return nil
}

// StrategyExecution instructs the protocol to execute a strategy order.
type StrategyExecution struct {
	TxRef         domain.OutputReference
	ValidityRange Interval
	Details       Order
	Extensions    []byte
}

func (e StrategyExecution) ToData() plutus.Data {
	return plutus.NewConstr(tagRecord,
		OutputRef(e.TxRef).ToData(),
		e.ValidityRange.ToData(),
		e.Details.ToData(),
		plutus.Bytes(nonNil(e.Extensions)),
	)
}

func (e *StrategyExecution) FromData(d plutus.Data) error {
	fields, err := plutus.ExpectConstr(d, tagRecord, 4)
	if err != nil {
		return fmt.Errorf("strategy execution: %w", err)
	}
	var out StrategyExecution
	var ref OutputRef
	if err := ref.FromData(fields[0]); err != nil {
		return err
	}
	out.TxRef = domain.OutputReference(ref)
	if err := out.ValidityRange.FromData(fields[1]); err != nil {
		return err
	}
	if err := out.Details.FromData(fields[2]); err != nil {
		return err
	}
	if out.Extensions, err = plutus.AsBytes(fields[3]); err != nil {
		return fmt.Errorf("strategy extensions: %w", err)
	}
	*e = out
	return nil
}

// SignedStrategyExecution pairs an execution with its signature.
type SignedStrategyExecution struct {
	Execution StrategyExecution
	Signature []byte // nil when unsigned
}

func (s SignedStrategyExecution) ToData() plutus.Data {
	return plutus.NewConstr(tagRecord, s.Execution.ToData(), bytesOption(s.Signature))
}

func (s *SignedStrategyExecution) FromData(d plutus.Data) error {
	fields, err := plutus.ExpectConstr(d, tagRecord, 2)
	if err != nil {
		return fmt.Errorf("signed execution: %w", err)
	}
	var out SignedStrategyExecution
	if err := out.Execution.FromData(fields[0]); err != nil {
		return err
	}
	if out.Signature, err = decodeBytesOption(fields[1]); err != nil {
		return fmt.Errorf("execution signature: %w", err)
	}
	*s = out
	return nil
}
