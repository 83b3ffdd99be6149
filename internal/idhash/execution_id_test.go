package idhash

import (
	"testing"
)

func TestComputeExecutionID(t *testing.T) {
	tests := []struct {
		name       string
		instanceID string
		txHash     string
		txIndex    uint64
		payload    string
		wantLen    int // hash length should be 64
	}{
		{
			name:       "first output",
			instanceID: "9f3c6a2e-7d51-4c1b-a0f2-2b9e8d7c6f01",
			txHash:     "da432ef1b1b8e6e0c07ba4ef5d6eae7e0f2a3d9c4b1e8f7a6d5c4b3a2f1e0d9c",
			txIndex:    0,
			payload:    "d8799fd8799f40ff40ff",
			wantLen:    64,
		},
		{
			name:       "empty payload",
			instanceID: "dca-1",
			txHash:     "00",
			txIndex:    7,
			payload:    "",
			wantLen:    64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeExecutionID(tt.instanceID, tt.txHash, tt.txIndex, tt.payload)

			if len(got) != tt.wantLen {
				t.Errorf("ComputeExecutionID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := ComputeExecutionID(tt.instanceID, tt.txHash, tt.txIndex, tt.payload)
			if got != got2 {
				t.Errorf("ComputeExecutionID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeExecutionID_Uniqueness(t *testing.T) {
	base := ComputeExecutionID("inst", "aa", 0, "bb")

	variants := []string{
		ComputeExecutionID("inst2", "aa", 0, "bb"),
		ComputeExecutionID("inst", "ab", 0, "bb"),
		ComputeExecutionID("inst", "aa", 1, "bb"),
		ComputeExecutionID("inst", "aa", 0, "bc"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with base id", i)
		}
	}
}
