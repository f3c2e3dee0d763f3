package sandbox

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
)

// poseidonHash hashes a sequence of 32-byte chunks over the BN254 scalar
// field using the Poseidon2 sponge. Each chunk is interpreted big-endian
// and reduced modulo the field, so arbitrary 32-byte payloads are valid
// input; the canonical reduced form is what gets absorbed.
func poseidonHash(data []byte) ([32]byte, error) {
	var out [32]byte
	if len(data) == 0 || len(data)%32 != 0 {
		return out, fmt.Errorf("poseidon input must be a non-empty multiple of 32 bytes, got %d", len(data))
	}

	h := poseidon2.NewMerkleDamgardHasher()
	for i := 0; i < len(data); i += 32 {
		var e fr.Element
		e.SetBytes(data[i : i+32])
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return out, fmt.Errorf("absorbing poseidon input: %w", err)
		}
	}

	copy(out[:], h.Sum(nil))
	return out, nil
}
