package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/tetratelabs/wazero"
)

// maxRecentAnchors is the size of the recent-anchor ring. Transactions
// referencing anything older are rejected as stale.
const maxRecentAnchors = 32

// DefaultFeePerSignature is the flat fee debited from the payer per
// submitted transaction.
const DefaultFeePerSignature = 5_000

// Config configures a Bank.
type Config struct {
	ComputeBudget   uint64 // per-transaction budget; DefaultComputeBudget when 0
	FeePerSignature uint64 // DefaultFeePerSignature when 0
	Logger          *slog.Logger
}

// Bank is the sandboxed execution context: an owned in-process ledger
// with anchor issuance, account balances and loaded programs. It is the
// single shared mutable resource of a run; submissions mutate it and must
// stay strictly sequential.
type Bank struct {
	logger          *slog.Logger
	computeBudget   uint64
	feePerSignature uint64

	accounts map[Pubkey]uint64
	programs map[Pubkey]Program
	anchors  []Anchor
	slot     uint64

	runtime wazero.Runtime // created on first LoadProgram
}

// NewBank creates a fresh sandbox with a genesis anchor already issued.
func NewBank(cfg Config) *Bank {
	if cfg.ComputeBudget == 0 {
		cfg.ComputeBudget = DefaultComputeBudget
	}
	if cfg.FeePerSignature == 0 {
		cfg.FeePerSignature = DefaultFeePerSignature
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	b := &Bank{
		logger:          cfg.Logger,
		computeBudget:   cfg.ComputeBudget,
		feePerSignature: cfg.FeePerSignature,
		accounts:        make(map[Pubkey]uint64),
		programs:        make(map[Pubkey]Program),
	}
	b.Tick()
	return b
}

// Fund credits an account, creating it if needed.
func (b *Bank) Fund(p Pubkey, lamports uint64) {
	b.accounts[p] += lamports
	b.logger.Debug("funded account", "pubkey", p.String(), "lamports", lamports)
}

// Balance returns an account balance and whether the account exists.
func (b *Bank) Balance(p Pubkey) (uint64, bool) {
	bal, ok := b.accounts[p]
	return bal, ok
}

// LatestAnchor returns the most recently issued anchor.
func (b *Bank) LatestAnchor() (Anchor, error) {
	if len(b.anchors) == 0 {
		return Anchor{}, ErrNoAnchor
	}
	return b.anchors[len(b.anchors)-1], nil
}

// Tick advances the slot and issues a new anchor derived from the
// previous one, evicting the oldest entry once the ring is full.
func (b *Bank) Tick() {
	h := sha256.New()
	if len(b.anchors) > 0 {
		prev := b.anchors[len(b.anchors)-1]
		h.Write(prev[:])
	} else {
		h.Write([]byte("cubench-genesis"))
	}
	var slotBytes [8]byte
	binary.BigEndian.PutUint64(slotBytes[:], b.slot)
	h.Write(slotBytes[:])

	var a Anchor
	copy(a[:], h.Sum(nil))
	b.anchors = append(b.anchors, a)
	if len(b.anchors) > maxRecentAnchors {
		b.anchors = b.anchors[1:]
	}
	b.slot++
}

// Deploy registers a program under an identifier. LoadProgram goes
// through here; tests can deploy native Go programs directly.
func (b *Bank) Deploy(id Pubkey, prog Program) {
	b.programs[id] = prog
}

// LoadProgram reads a compiled program artifact and registers it under
// the given identifier. The artifact must already exist: there is no
// build fallback here, a missing file is a fatal bootstrap condition for
// the caller.
func (b *Bank) LoadProgram(ctx context.Context, artifactPath string, id Pubkey) error {
	artifact, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("program artifact %s not found (build it first): %w", artifactPath, err)
	}

	if b.runtime == nil {
		runtime, err := newWasmRuntime(ctx)
		if err != nil {
			return err
		}
		b.runtime = runtime
	}

	prog, err := newWasmProgram(ctx, b.runtime, artifact)
	if err != nil {
		return err
	}
	b.Deploy(id, prog)
	b.logger.Info("program loaded",
		"programId", id.String(),
		"artifact", artifactPath,
		"size", len(artifact))
	return nil
}

// Submit validates and executes a transaction.
//
// Validation failures (stale anchor, bad signature, unknown payer,
// unfunded payer, unknown program) are reported as an error return: the
// transaction never reached the ledger and there is no result for it.
// Once execution starts, the outcome is always a value-returning Result;
// program failures are carried inside it as a structured TxError, not as
// an error.
func (b *Bank) Submit(ctx context.Context, tx *Transaction) (*Result, error) {
	anchored := false
	for _, a := range b.anchors {
		if a == tx.Message.Anchor {
			anchored = true
			break
		}
	}
	if !anchored {
		return nil, ErrStaleAnchor
	}
	if !tx.Verify() {
		return nil, ErrBadSignature
	}
	if len(tx.Message.Instructions) == 0 {
		return nil, errors.New("transaction has no instructions")
	}

	payer := tx.Message.Payer
	balance, ok := b.accounts[payer]
	if !ok {
		return nil, ErrUnknownPayer
	}
	fee := b.feePerSignature
	if balance < fee {
		return nil, ErrInsufficientFunds
	}
	for _, ins := range tx.Message.Instructions {
		if _, ok := b.programs[ins.ProgramID]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, ins.ProgramID)
		}
	}
	b.accounts[payer] = balance - fee

	meter := NewComputeMeter(b.computeBudget)
	var logs []string
	var txErr *TxError

	for i, ins := range tx.Message.Instructions {
		before := meter.Consumed()
		logs = append(logs, fmt.Sprintf("Program %s invoke [1]", ins.ProgramID))

		call := &Call{
			ProgramID: ins.ProgramID,
			Data:      ins.Data,
			Accounts:  ins.Accounts,
			Meter:     meter,
		}

		execErr := meter.Consume(invokeBaseCost)
		if execErr == nil {
			execErr = b.programs[ins.ProgramID].Execute(ctx, call)
		}
		logs = append(logs, call.Logs()...)

		available := b.computeBudget - before
		logs = append(logs, fmt.Sprintf("Program %s consumed %d of %d compute units",
			ins.ProgramID, meter.Consumed()-before, available))

		if execErr != nil {
			logs = append(logs, fmt.Sprintf("Program %s failed: %s", ins.ProgramID, execErr))
			txErr = &TxError{InstructionIndex: i, Detail: execErr.Error()}
			break
		}
		logs = append(logs, fmt.Sprintf("Program %s success", ins.ProgramID))
	}

	b.Tick()

	if txErr != nil {
		// Failed transactions report logs top-level; structured compute
		// units are not populated on this path.
		b.logger.Debug("transaction failed", "error", txErr.Error())
		return &Result{Err: txErr, Logs: logs}, nil
	}

	consumed := meter.Consumed()
	b.logger.Debug("transaction executed", "computeUnits", consumed, "fee", fee)
	return &Result{
		Meta: &ResultMeta{
			ComputeUnitsConsumed: &consumed,
			LogMessages:          logs,
			Fee:                  fee,
		},
	}, nil
}

// Close releases the wasm runtime, if one was created.
func (b *Bank) Close(ctx context.Context) error {
	if b.runtime == nil {
		return nil
	}
	return b.runtime.Close(ctx)
}
