package main

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sundae-strategies/internal/datum"
	"sundae-strategies/internal/domain"
	"sundae-strategies/internal/execution"
	"sundae-strategies/internal/signing"
)

func strategyOrder(signer []byte) datum.OrderDatum {
	return datum.OrderDatum{
		Owner:          datum.SignedBy(bytes.Repeat([]byte{0xaa}, 28)),
		MaxProtocolFee: big.NewInt(1_000_000),
		Destination:    datum.Destination{Kind: datum.DestinationSelf},
		Details:        datum.StrategyOrder(signer),
		Extra:          []byte{},
	}
}

func TestRun_OrderDatum(t *testing.T) {
	signer := bytes.Repeat([]byte{0x11}, 32)
	raw := hex.EncodeToString(datum.Serialize(strategyOrder(signer)))

	var out bytes.Buffer
	require.NoError(t, run([]string{raw}, strings.NewReader(""), &out))

	got := out.String()
	assert.Contains(t, got, "121(")
	assert.Contains(t, got, "order datum")
	assert.Contains(t, got, "pool:")
	assert.Contains(t, got, "none")
	assert.Contains(t, got, "self")
	assert.Contains(t, got, "strategy signer="+hex.EncodeToString(signer))
}

func TestRun_ReadsStdin(t *testing.T) {
	raw := hex.EncodeToString(datum.Serialize(strategyOrder(make([]byte, 32))))

	var out bytes.Buffer
	require.NoError(t, run(nil, strings.NewReader(raw+"\n"), &out))
	assert.Contains(t, out.String(), "order datum")
}

func TestRun_SignedExecutionVerify(t *testing.T) {
	keys, err := signing.NewEphemeral()
	require.NoError(t, err)
	pub, err := keys.PublicKey(signing.DefaultKey)
	require.NoError(t, err)

	exec := datum.StrategyExecution{
		TxRef:         domain.OutputReference{TransactionID: bytes.Repeat([]byte{0x01}, 32), OutputIndex: 2},
		ValidityRange: datum.InclusiveRange(1_000, 2_000),
		Details: datum.SwapOrder(
			datum.Value(domain.AssetID{}, 5_000_000),
			datum.Value(domain.AssetID{PolicyID: []byte{0xab}, Name: []byte{0xcd}}, 1),
		),
		Extensions: []byte{},
	}
	signed, err := execution.SignExecution(keys, exec)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run([]string{"--verify-key", hex.EncodeToString(pub), hex.EncodeToString(signed)}, nil, &out))
	got := out.String()
	assert.Contains(t, got, "signed strategy execution")
	assert.Contains(t, got, "[1000, 2000]")
	assert.Contains(t, got, "swap offer=5000000 lovelace min=1 ab.cd")
	assert.Contains(t, got, "signatureValid: true")

	other, err := signing.NewEphemeral()
	require.NoError(t, err)
	otherPub, err := other.PublicKey(signing.DefaultKey)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, run([]string{"--verify-key", hex.EncodeToString(otherPub), hex.EncodeToString(signed)}, nil, &out))
	assert.Contains(t, out.String(), "signatureValid: false")
}

func TestRun_Unrecognized(t *testing.T) {
	var out bytes.Buffer
	// 121([]) has no known shape
	require.NoError(t, run([]string{"d87980"}, nil, &out))
	assert.Contains(t, out.String(), "unrecognized datum")
}

func TestRun_BadInput(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"zz"}, nil, &out))
	assert.Error(t, run([]string{"ff"}, nil, &out))
	assert.Error(t, run([]string{"--verify-key", "00", "d87980"}, nil, &out))
	// 32 bytes, but not a point on the curve
	offCurve := "efffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff7f"
	assert.Error(t, run([]string{"--verify-key", offCurve, "d87980"}, nil, &out))
}
