package sandbox

import (
	"errors"
	"fmt"
)

// Submission-time errors. These are returned from Submit before any
// instruction executes: the transaction never reaches the ledger and no
// result value exists for it.
var (
	ErrNoAnchor          = errors.New("no anchor available: sandbox not initialized")
	ErrStaleAnchor       = errors.New("transaction anchor expired or unknown")
	ErrBadSignature      = errors.New("transaction signature verification failed")
	ErrUnknownPayer      = errors.New("fee payer account does not exist")
	ErrInsufficientFunds = errors.New("fee payer balance below transaction fee")
	ErrUnknownProgram    = errors.New("program not loaded")
	ErrComputeExceeded   = errors.New("compute budget exceeded")
)

// Guest error codes. Programs report failure by returning a non-zero code
// from their entrypoint; codes below 100 map onto well-known runtime
// errors, everything else is a program-defined custom error.
const (
	CodeInvalidInstructionData uint64 = 1
	CodeInvalidAccountData     uint64 = 2
	CodeArithmeticOverflow     uint64 = 3
)

// ProgramError is a non-zero return from a program entrypoint.
type ProgramError struct {
	Code uint64
}

func (e *ProgramError) Error() string {
	switch e.Code {
	case CodeInvalidInstructionData:
		return "invalid instruction data"
	case CodeInvalidAccountData:
		return "invalid account data"
	case CodeArithmeticOverflow:
		return "arithmetic overflow"
	default:
		return fmt.Sprintf("custom program error: %#x", e.Code)
	}
}

// TxError is the structured failure carried inside a value-returning
// result. It identifies the failed instruction and the inner error.
type TxError struct {
	InstructionIndex int    `json:"instructionIndex"`
	Detail           string `json:"detail"`
}

func (e *TxError) Error() string {
	return fmt.Sprintf("instruction %d failed: %s", e.InstructionIndex, e.Detail)
}
