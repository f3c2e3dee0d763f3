package bench

import "testing"

func TestDefaultVectors(t *testing.T) {
	vectors := DefaultVectors(3)

	if len(vectors) != 6 {
		t.Fatalf("len = %d, want 6", len(vectors))
	}

	for i, v := range vectors {
		var wantSel uint8
		var wantLen int
		if i < 3 {
			wantSel, wantLen = SelectorPoseidon1, 32
		} else {
			wantSel, wantLen = SelectorPoseidon2, 64
		}
		if v.Selector != wantSel {
			t.Errorf("vectors[%d].Selector = %d, want %d", i, v.Selector, wantSel)
		}
		if len(v.Payload) != wantLen {
			t.Errorf("vectors[%d] payload = %dB, want %dB", i, len(v.Payload), wantLen)
		}
		if v.Name == "" {
			t.Errorf("vectors[%d] has no name", i)
		}
	}
}

func TestDefaultVectorsSingleIteration(t *testing.T) {
	vectors := DefaultVectors(1)

	if len(vectors) != 2 {
		t.Fatalf("len = %d, want 2", len(vectors))
	}
	if vectors[0].Name != "poseidon1-32B" || vectors[1].Name != "poseidon2-64B" {
		t.Errorf("names = %q, %q", vectors[0].Name, vectors[1].Name)
	}
}

func TestDefaultVectorsNamesUnique(t *testing.T) {
	vectors := DefaultVectors(5)

	seen := make(map[string]bool)
	for _, v := range vectors {
		if seen[v.Name] {
			t.Errorf("duplicate vector name %q", v.Name)
		}
		seen[v.Name] = true
	}
}

func TestDefaultVectorsClampIterations(t *testing.T) {
	if got := len(DefaultVectors(0)); got != 2 {
		t.Errorf("DefaultVectors(0) = %d vectors, want 2", got)
	}
}

func TestFieldPayloadUnderModulus(t *testing.T) {
	// Every 32-byte chunk must lead with a zero byte so the encoded value
	// stays below the BN254 field modulus.
	payload := fieldPayload(2, 0xff)
	if len(payload) != 64 {
		t.Fatalf("len = %d, want 64", len(payload))
	}
	if payload[0] != 0 || payload[32] != 0 {
		t.Error("chunk leading bytes are not zero")
	}
}

func TestFieldPayloadVariesWithSeed(t *testing.T) {
	a := fieldPayload(1, 1)
	b := fieldPayload(1, 2)

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical payloads")
	}
}
