// Package sandbox provides an in-process, deterministic execution
// environment for benchmark submissions: an owned ledger, anchor issuance,
// program loading and metered instruction execution. It never touches the
// network; all state lives for one run and is discarded at process exit.
package sandbox

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of a public key.
const PubkeyLen = 32

// Pubkey identifies an account or a loaded program.
type Pubkey [PubkeyLen]byte

// String renders the key base58, the conventional display form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether the key is the all-zero key.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// PubkeyFromBase58 parses a base58-encoded public key.
func PubkeyFromBase58(s string) (Pubkey, error) {
	var p Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return p, fmt.Errorf("decoding pubkey: %w", err)
	}
	if len(raw) != PubkeyLen {
		return p, fmt.Errorf("pubkey must be %d bytes, got %d", PubkeyLen, len(raw))
	}
	copy(p[:], raw)
	return p, nil
}

// DerivePubkey returns a deterministic key for a label. Used for fixed
// program identifiers that must be stable across runs.
func DerivePubkey(label string) Pubkey {
	return Pubkey(sha256.Sum256([]byte(label)))
}

// Keypair is a signing identity. The private key never leaves the process.
type Keypair struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewKeypair generates a fresh random keypair.
func NewKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating keypair: %w", err)
	}
	return &Keypair{pub: pub, priv: priv}, nil
}

// Pubkey returns the public half of the keypair.
func (k *Keypair) Pubkey() Pubkey {
	var p Pubkey
	copy(p[:], k.pub)
	return p
}

// Sign signs a message with the private key.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}

// verifySignature checks an ed25519 signature against a public key.
func verifySignature(p Pubkey, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p[:]), msg, sig)
}
