// datum decodes a hex-encoded plutus datum, prints its CBOR diagnostic
// notation and, when it is a known protocol datum, a typed summary.
//
// Usage:
//
//	datum [--verify-key HEX] DATUM_HEX
//	echo DATUM_HEX | datum
package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/plutus"
	"sundae-strategies/internal/signing"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, out io.Writer) error {
	var verifyKey string

	flagSet := pflag.NewFlagSet("datum", pflag.ContinueOnError)
	flagSet.StringVar(&verifyKey, "verify-key", "", "hex ed25519 public key to check a signed execution against")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	input := strings.Join(flagSet.Args(), "")
	if input == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		input = line
	}
	raw, err := hex.DecodeString(strings.TrimSpace(input))
	if err != nil {
		return fmt.Errorf("datum is not hex: %w", err)
	}

	var key []byte
	if verifyKey != "" {
		if key, err = hex.DecodeString(verifyKey); err != nil {
			return fmt.Errorf("--verify-key is not hex: %w", err)
		}
		if err := signing.ValidatePublicKey(key); err != nil {
			return err
		}
	}

	diag, err := plutus.Diagnose(raw)
	if err != nil {
		return fmt.Errorf("not CBOR: %w", err)
	}
	fmt.Fprintln(out, diag)

	summary, err := describe(raw, key)
	if err != nil {
		return err
	}
	fmt.Fprint(out, summary)
	return nil
}

// describe recognizes the datum and renders its fields. Unknown shapes only
// get their diagnostic notation.
func describe(raw, verifyKey []byte) (string, error) {
	if _, err := plutus.Unmarshal(raw); err != nil {
		return "", fmt.Errorf("not plutus data: %w", err)
	}

	var b strings.Builder
	if o, ok := datum.TryParse[datum.OrderDatum](raw); ok {
		b.WriteString("order datum\n")
		writeField(&b, "pool", optionalHex(o.PoolIdent))
		writeField(&b, "owner", describeMultisig(o.Owner))
		writeField(&b, "maxProtocolFee", o.MaxProtocolFee.String())
		writeField(&b, "destination", describeDestination(o.Destination))
		writeField(&b, "details", describeOrder(o.Details))
		return b.String(), nil
	}
	if p, ok := datum.TryParse[datum.PoolDatum](raw); ok {
		b.WriteString("pool datum\n")
		writeField(&b, "ident", hex.EncodeToString(p.Identifier))
		writeField(&b, "assetA", p.AssetA.String())
		writeField(&b, "assetB", p.AssetB.String())
		writeField(&b, "circulatingLP", p.CirculatingLP.String())
		writeField(&b, "fees", fmt.Sprintf("bid=%s ask=%s (per 10000)", p.BidFeesPer10Thousand, p.AskFeesPer10Thousand))
		writeField(&b, "marketOpen", p.MarketOpen.String())
		writeField(&b, "protocolFees", p.ProtocolFees.String())
		return b.String(), nil
	}
	if s, ok := datum.TryParse[datum.SignedStrategyExecution](raw); ok {
		b.WriteString("signed strategy execution\n")
		writeExecution(&b, s.Execution)
		writeField(&b, "signature", optionalHex(s.Signature))
		if verifyKey != nil {
			valid := s.Signature != nil && signing.Verify(verifyKey, datum.Serialize(s.Execution), s.Signature)
			writeField(&b, "signatureValid", fmt.Sprint(valid))
		}
		return b.String(), nil
	}
	if e, ok := datum.TryParse[datum.StrategyExecution](raw); ok {
		b.WriteString("strategy execution\n")
		writeExecution(&b, e)
		return b.String(), nil
	}
	return "unrecognized datum\n", nil
}

func writeExecution(b *strings.Builder, e datum.StrategyExecution) {
	writeField(b, "txRef", e.TxRef.String())
	writeField(b, "validity", describeInterval(e.ValidityRange))
	writeField(b, "details", describeOrder(e.Details))
	writeField(b, "extensions", hex.EncodeToString(e.Extensions))
}

func writeField(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %-15s %s\n", name+":", value)
}

func optionalHex(v []byte) string {
	if v == nil {
		return "none"
	}
	return hex.EncodeToString(v)
}

func describeOrder(o datum.Order) string {
	switch o.Kind {
	case datum.OrderStrategy:
		return "strategy signer=" + hex.EncodeToString(o.Auth.Signer)
	case datum.OrderSwap:
		return fmt.Sprintf("swap offer=%s min=%s", describeValue(o.Offer), describeValue(o.MinReceived))
	default:
		return fmt.Sprintf("order(%d)", o.Kind)
	}
}

func describeValue(v datum.SingletonValue) string {
	if len(v.PolicyID) == 0 {
		return fmt.Sprintf("%d lovelace", v.Amount)
	}
	return fmt.Sprintf("%d %s.%s", v.Amount, hex.EncodeToString(v.PolicyID), hex.EncodeToString(v.AssetName))
}

func describeDestination(d datum.Destination) string {
	if d.Kind == datum.DestinationSelf {
		return "self"
	}
	addr, err := plutus.Marshal(d.Address)
	if err != nil {
		return "fixed"
	}
	return "fixed address=" + hex.EncodeToString(addr)
}

func describeMultisig(m datum.MultisigScript) string {
	switch m.Kind {
	case datum.MultisigSignature:
		return "signature " + hex.EncodeToString(m.KeyHash)
	case datum.MultisigScriptHash:
		return "script " + hex.EncodeToString(m.ScriptHash)
	case datum.MultisigAtLeast:
		return fmt.Sprintf("at least %d of %d", m.Required, len(m.Scripts))
	case datum.MultisigAllOf:
		return fmt.Sprintf("all of %d", len(m.Scripts))
	case datum.MultisigAnyOf:
		return fmt.Sprintf("any of %d", len(m.Scripts))
	case datum.MultisigBefore:
		return "before " + m.Time.String()
	case datum.MultisigAfter:
		return "after " + m.Time.String()
	default:
		return fmt.Sprintf("multisig(%d)", m.Kind)
	}
}

func describeInterval(i datum.Interval) string {
	return describeBound(i.Lower, true) + ", " + describeBound(i.Upper, false)
}

func describeBound(b datum.IntervalBound, lower bool) string {
	var v string
	switch b.Type {
	case datum.BoundNegativeInfinity:
		v = "-inf"
	case datum.BoundPositiveInfinity:
		v = "+inf"
	default:
		v = fmt.Sprint(b.Millis)
	}
	switch {
	case lower && b.Inclusive:
		return "[" + v
	case lower:
		return "(" + v
	case b.Inclusive:
		return v + "]"
	default:
		return v + ")"
	}
}
