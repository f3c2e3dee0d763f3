package sandbox

import (
	"crypto/sha256"
	"encoding/binary"
)

// Anchor is the freshness token every transaction must reference. The
// bank issues a new anchor per slot and only accepts transactions
// anchored within the recent ring.
type Anchor [32]byte

// String renders the anchor base58.
func (a Anchor) String() string {
	return Pubkey(a).String()
}

// IsZero reports whether the anchor is unset.
func (a Anchor) IsZero() bool {
	return a == Anchor{}
}

// Instruction targets one program with opaque data and zero or more
// account references. The data framing is a private convention between
// harness and program; the bank does not interpret it.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []Pubkey
	Data      []byte
}

// Message is the signed portion of a transaction.
type Message struct {
	Anchor       Anchor
	Payer        Pubkey
	Instructions []Instruction
}

// Serialize produces the canonical byte form the signature covers.
// Layout: anchor, payer, u16 instruction count, then per instruction:
// program id, u16 account count, accounts, u32 data length, data.
func (m *Message) Serialize() []byte {
	size := len(m.Anchor) + len(m.Payer) + 2
	for _, ins := range m.Instructions {
		size += PubkeyLen + 2 + len(ins.Accounts)*PubkeyLen + 4 + len(ins.Data)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, m.Anchor[:]...)
	buf = append(buf, m.Payer[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(m.Instructions)))
	for _, ins := range m.Instructions {
		buf = append(buf, ins.ProgramID[:]...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(ins.Accounts)))
		for _, acc := range ins.Accounts {
			buf = append(buf, acc[:]...)
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(ins.Data)))
		buf = append(buf, ins.Data...)
	}
	return buf
}

// Transaction is a signed, anchor-stamped message ready for submission.
type Transaction struct {
	Message   Message
	Signature []byte
}

// ID returns a content hash usable as a transaction identifier.
func (t *Transaction) ID() [32]byte {
	h := sha256.New()
	h.Write(t.Message.Serialize())
	h.Write(t.Signature)
	var id [32]byte
	copy(id[:], h.Sum(nil))
	return id
}

// Verify checks the signature against the payer key.
func (t *Transaction) Verify() bool {
	return verifySignature(t.Message.Payer, t.Message.Serialize(), t.Signature)
}
