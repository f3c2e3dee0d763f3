// Package txbuilder assembles signed, anchor-stamped transactions from
// encoded instructions.
package txbuilder

import (
	"errors"

	"github.com/gateway-fm/cubench/internal/sandbox"
)

// ErrNoAnchor is returned when building against an uninitialized context.
var ErrNoAnchor = errors.New("no anchor available: context not initialized")

// AnchorSource yields the current freshness token. *sandbox.Bank
// satisfies this.
type AnchorSource interface {
	LatestAnchor() (sandbox.Anchor, error)
}

// Build wraps an encoded instruction into a transaction anchored to the
// source's current anchor, fee-paid and signed by payer. The target
// program in the observed usage takes no account inputs, but any number
// of account references is accepted.
func Build(src AnchorSource, payer *sandbox.Keypair, programID sandbox.Pubkey, data []byte, accounts ...sandbox.Pubkey) (*sandbox.Transaction, error) {
	anchor, err := src.LatestAnchor()
	if err != nil {
		return nil, ErrNoAnchor
	}

	msg := sandbox.Message{
		Anchor: anchor,
		Payer:  payer.Pubkey(),
		Instructions: []sandbox.Instruction{{
			ProgramID: programID,
			Accounts:  accounts,
			Data:      data,
		}},
	}

	return &sandbox.Transaction{
		Message:   msg,
		Signature: payer.Sign(msg.Serialize()),
	}, nil
}
