package datum

import (
	"fmt"
	"math/big"

	"sundae-strategies/internal/plutus"
)

// MultisigScript is the owner condition of an order.
// Only the fields relevant to Kind are set.
type MultisigScript struct {
	Kind       MultisigKind
	KeyHash    []byte           // Signature
	Scripts    []MultisigScript // AllOf, AnyOf, AtLeast
	Required   uint64           // AtLeast
	Time       *big.Int         // Before, After (posix millis)
	ScriptHash []byte           // Script
}

// SignedBy returns a single-signature condition.
func SignedBy(keyHash []byte) MultisigScript {
	return MultisigScript{Kind: MultisigSignature, KeyHash: keyHash}
}

func (m MultisigScript) ToData() plutus.Data {
	tag := uint64(m.Kind)
	switch m.Kind {
	case MultisigSignature:
		return plutus.NewConstr(tag, plutus.Bytes(m.KeyHash))
	case MultisigAllOf, MultisigAnyOf:
		return plutus.NewConstr(tag, scriptList(m.Scripts))
	case MultisigAtLeast:
		return plutus.NewConstr(tag, plutus.NewUint(m.Required), scriptList(m.Scripts))
	case MultisigBefore, MultisigAfter:
		return plutus.NewConstr(tag, plutus.NewBigInt(m.Time))
	default:
		return plutus.NewConstr(uint64(MultisigScriptHash), plutus.Bytes(m.ScriptHash))
	}
}

func (m *MultisigScript) FromData(d plutus.Data) error {
	c, err := plutus.AsConstr(d)
	if err != nil {
		return fmt.Errorf("multisig: %w", err)
	}
	out := MultisigScript{Kind: MultisigKind(c.Tag)}
	switch out.Kind {
	case MultisigSignature, MultisigScriptHash:
		fields, err := plutus.ExpectConstr(d, c.Tag, 1)
		if err != nil {
			return fmt.Errorf("multisig: %w", err)
		}
		b, err := plutus.AsBytes(fields[0])
		if err != nil {
			return fmt.Errorf("multisig: %w", err)
		}
		if out.Kind == MultisigSignature {
			out.KeyHash = b
		} else {
			out.ScriptHash = b
		}
	case MultisigAllOf, MultisigAnyOf:
		fields, err := plutus.ExpectConstr(d, c.Tag, 1)
		if err != nil {
			return fmt.Errorf("multisig: %w", err)
		}
		if out.Scripts, err = decodeScripts(fields[0]); err != nil {
			return err
		}
	case MultisigAtLeast:
		fields, err := plutus.ExpectConstr(d, c.Tag, 2)
		if err != nil {
			return fmt.Errorf("multisig: %w", err)
		}
		if out.Required, err = plutus.AsUint64(fields[0]); err != nil {
			return fmt.Errorf("multisig required: %w", err)
		}
		if out.Scripts, err = decodeScripts(fields[1]); err != nil {
			return err
		}
	case MultisigBefore, MultisigAfter:
		fields, err := plutus.ExpectConstr(d, c.Tag, 1)
		if err != nil {
			return fmt.Errorf("multisig: %w", err)
		}
		if out.Time, err = plutus.AsBigInt(fields[0]); err != nil {
			return fmt.Errorf("multisig time: %w", err)
		}
	default:
		return fmt.Errorf("multisig: unknown constructor %d", c.Tag)
	}
	*m = out
	return nil
}

func scriptList(scripts []MultisigScript) plutus.List {
	l := make(plutus.List, 0, len(scripts))
	for _, s := range scripts {
		l = append(l, s.ToData())
	}
	return l
}

func decodeScripts(d plutus.Data) ([]MultisigScript, error) {
	items, err := plutus.AsList(d, -1)
	if err != nil {
		return nil, fmt.Errorf("multisig scripts: %w", err)
	}
	out := make([]MultisigScript, len(items))
	for i, item := range items {
		if err := out[i].FromData(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}
