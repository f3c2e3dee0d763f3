package bench

import (
	"fmt"

	"github.com/gateway-fm/cubench/pkg/types"
)

// Instruction selectors understood by the poseidon benchmark program.
const (
	SelectorPoseidon1 uint8 = 0 // one 32-byte field input
	SelectorPoseidon2 uint8 = 1 // two 32-byte field inputs
)

// DefaultVectors returns the standard vector set: the 1-input and
// 2-input poseidon variants, each repeated iterations times with
// deterministic payloads so runs are reproducible.
func DefaultVectors(iterations int) []types.TestVector {
	if iterations < 1 {
		iterations = 1
	}

	vectors := make([]types.TestVector, 0, 2*iterations)
	for i := 0; i < iterations; i++ {
		vectors = append(vectors, types.TestVector{
			Name:     vectorName("poseidon1-32B", i, iterations),
			Selector: SelectorPoseidon1,
			Payload:  fieldPayload(1, byte(i)),
		})
	}
	for i := 0; i < iterations; i++ {
		vectors = append(vectors, types.TestVector{
			Name:     vectorName("poseidon2-64B", i, iterations),
			Selector: SelectorPoseidon2,
			Payload:  fieldPayload(2, byte(i)),
		})
	}
	return vectors
}

// fieldPayload builds count 32-byte inputs. The leading byte is zero so
// every input stays below the BN254 field modulus regardless of seed.
func fieldPayload(count int, seed byte) []byte {
	payload := make([]byte, 32*count)
	for i := 0; i < count; i++ {
		chunk := payload[i*32 : (i+1)*32]
		for j := 1; j < len(chunk); j++ {
			chunk[j] = seed + byte(i) + byte(j)
		}
	}
	return payload
}

// vectorName keeps names sortable in report output when a vector is
// repeated.
func vectorName(base string, i, iterations int) string {
	if iterations == 1 {
		return base
	}
	return fmt.Sprintf("%s-%02d", base, i+1)
}
