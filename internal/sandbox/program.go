package sandbox

import (
	"context"
	"fmt"
)

// Compute pricing. The poseidon syscall grows quadratically with the
// input count, which is what makes 1-input vs 2-input hashing worth
// benchmarking in the first place.
const (
	// DefaultComputeBudget is the per-transaction budget when the caller
	// does not override it.
	DefaultComputeBudget = 200_000

	invokeBaseCost    = 1_000
	logBaseCost       = 100
	logByteCost       = 1
	poseidonBaseCost  = 542
	poseidonInputCost = 61
)

// poseidonCost prices a poseidon syscall over n field inputs.
func poseidonCost(n int) uint64 {
	return poseidonBaseCost + poseidonInputCost*uint64(n)*uint64(n)
}

// Program executes one instruction against a call frame.
type Program interface {
	Execute(ctx context.Context, call *Call) error
}

// Call is the frame handed to a program for a single instruction. It
// carries the shared per-transaction meter and collects the program's
// diagnostic log lines.
type Call struct {
	ProgramID Pubkey
	Data      []byte
	Accounts  []Pubkey
	Meter     *ComputeMeter

	logs          []string
	meterExceeded bool
}

// Log records a program diagnostic line, charging the log syscall cost.
func (c *Call) Log(msg string) error {
	if err := c.Meter.Consume(logBaseCost + logByteCost*uint64(len(msg))); err != nil {
		c.meterExceeded = true
		return err
	}
	c.logs = append(c.logs, "Program log: "+msg)
	return nil
}

// Logf records a formatted program diagnostic line.
func (c *Call) Logf(format string, args ...any) error {
	return c.Log(fmt.Sprintf(format, args...))
}

// Logs returns the lines recorded so far, in order.
func (c *Call) Logs() []string {
	return c.logs
}

// Poseidon runs the poseidon syscall: data must be a sequence of 32-byte
// field encodings. The cost is charged before hashing.
func (c *Call) Poseidon(data []byte) ([32]byte, error) {
	var zero [32]byte
	if len(data) == 0 || len(data)%32 != 0 {
		return zero, &ProgramError{Code: CodeInvalidInstructionData}
	}
	n := len(data) / 32
	if err := c.Meter.Consume(poseidonCost(n)); err != nil {
		c.meterExceeded = true
		return zero, err
	}
	return poseidonHash(data)
}
