package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// hashProgram mirrors the benchmark guest: selector byte picks the input
// width, the payload is fed to the poseidon syscall.
type hashProgram struct{}

func (hashProgram) Execute(ctx context.Context, call *Call) error {
	if len(call.Data) == 0 {
		return &ProgramError{Code: CodeInvalidInstructionData}
	}
	selector, payload := call.Data[0], call.Data[1:]

	var want int
	switch selector {
	case 0:
		want = 32
	case 1:
		want = 64
	default:
		return &ProgramError{Code: CodeInvalidInstructionData}
	}
	if len(payload) != want {
		return &ProgramError{Code: CodeInvalidInstructionData}
	}
	_, err := call.Poseidon(payload)
	return err
}

func newTestBank(t *testing.T, cfg Config) (*Bank, *Keypair, Pubkey) {
	t.Helper()
	bank := NewBank(cfg)
	t.Cleanup(func() { bank.Close(context.Background()) })

	payer, err := NewKeypair()
	if err != nil {
		t.Fatalf("NewKeypair() error = %v", err)
	}
	bank.Fund(payer.Pubkey(), 1_000_000)

	progID := DerivePubkey("test/hash-program")
	bank.Deploy(progID, hashProgram{})
	return bank, payer, progID
}

func signedTx(t *testing.T, bank *Bank, payer *Keypair, progID Pubkey, data []byte) *Transaction {
	t.Helper()
	anchor, err := bank.LatestAnchor()
	if err != nil {
		t.Fatalf("LatestAnchor() error = %v", err)
	}
	msg := Message{
		Anchor:       anchor,
		Payer:        payer.Pubkey(),
		Instructions: []Instruction{{ProgramID: progID, Data: data}},
	}
	return &Transaction{Message: msg, Signature: payer.Sign(msg.Serialize())}
}

func TestSubmitSuccess(t *testing.T) {
	bank, payer, progID := newTestBank(t, Config{})
	data := append([]byte{0}, make([]byte, 32)...)

	result, err := bank.Submit(context.Background(), signedTx(t, bank, payer, progID, data))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Err != nil {
		t.Fatalf("result.Err = %v, want nil", result.Err)
	}
	if result.Meta == nil {
		t.Fatal("successful result must carry metadata")
	}

	wantUnits := uint64(invokeBaseCost) + poseidonCost(1)
	if result.Meta.ComputeUnitsConsumed == nil || *result.Meta.ComputeUnitsConsumed != wantUnits {
		t.Errorf("ComputeUnitsConsumed = %v, want %d", result.Meta.ComputeUnitsConsumed, wantUnits)
	}
	if result.Meta.Fee != DefaultFeePerSignature {
		t.Errorf("Fee = %d, want %d", result.Meta.Fee, DefaultFeePerSignature)
	}

	balance, _ := bank.Balance(payer.Pubkey())
	if balance != 1_000_000-DefaultFeePerSignature {
		t.Errorf("payer balance = %d, want fee deducted", balance)
	}

	// Success-path logs live under metadata; the top-level slice stays empty.
	if len(result.Logs) != 0 {
		t.Errorf("top-level Logs = %v, want empty on success", result.Logs)
	}
	assertLogLine(t, result.Meta.LogMessages, "invoke [1]")
	assertLogLine(t, result.Meta.LogMessages, "compute units")
	assertLogLine(t, result.Meta.LogMessages, "success")
}

func TestSubmitTwoInputVariantCostsMore(t *testing.T) {
	bank, payer, progID := newTestBank(t, Config{})

	one, err := bank.Submit(context.Background(), signedTx(t, bank, payer, progID, append([]byte{0}, make([]byte, 32)...)))
	if err != nil {
		t.Fatalf("Submit(1 input) error = %v", err)
	}
	two, err := bank.Submit(context.Background(), signedTx(t, bank, payer, progID, append([]byte{1}, make([]byte, 64)...)))
	if err != nil {
		t.Fatalf("Submit(2 inputs) error = %v", err)
	}

	if *two.Meta.ComputeUnitsConsumed <= *one.Meta.ComputeUnitsConsumed {
		t.Errorf("2-input cost %d not above 1-input cost %d",
			*two.Meta.ComputeUnitsConsumed, *one.Meta.ComputeUnitsConsumed)
	}
}

func TestSubmitProgramFailure(t *testing.T) {
	bank, payer, progID := newTestBank(t, Config{})
	data := []byte{9} // unknown selector

	result, err := bank.Submit(context.Background(), signedTx(t, bank, payer, progID, data))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Err == nil {
		t.Fatal("expected structured transaction error")
	}
	if result.Err.InstructionIndex != 0 {
		t.Errorf("InstructionIndex = %d, want 0", result.Err.InstructionIndex)
	}
	if !strings.Contains(result.Err.Detail, "invalid instruction data") {
		t.Errorf("Detail = %q", result.Err.Detail)
	}

	// Failure-path results carry logs top-level and no metadata.
	if result.Meta != nil {
		t.Error("failed result must not carry metadata")
	}
	assertLogLine(t, result.Logs, "failed")
	assertLogLine(t, result.Logs, "compute units")

	// The fee is still charged for a failed execution.
	balance, _ := bank.Balance(payer.Pubkey())
	if balance != 1_000_000-DefaultFeePerSignature {
		t.Errorf("payer balance = %d, want fee deducted on failure too", balance)
	}
}

func TestSubmitComputeBudgetExceeded(t *testing.T) {
	// Budget covers the invoke charge but not the poseidon syscall.
	bank, payer, progID := newTestBank(t, Config{ComputeBudget: invokeBaseCost + 100})
	data := append([]byte{0}, make([]byte, 32)...)

	result, err := bank.Submit(context.Background(), signedTx(t, bank, payer, progID, data))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Err == nil {
		t.Fatal("expected budget exhaustion to fail the transaction")
	}
	if !strings.Contains(result.Err.Detail, "compute budget exceeded") {
		t.Errorf("Detail = %q", result.Err.Detail)
	}
}

func TestSubmitValidationErrors(t *testing.T) {
	bank, payer, progID := newTestBank(t, Config{})
	good := append([]byte{0}, make([]byte, 32)...)

	t.Run("stale anchor", func(t *testing.T) {
		tx := signedTx(t, bank, payer, progID, good)
		tx.Message.Anchor = Anchor{0xde, 0xad}
		tx.Signature = payer.Sign(tx.Message.Serialize())
		if _, err := bank.Submit(context.Background(), tx); !errors.Is(err, ErrStaleAnchor) {
			t.Errorf("Submit() error = %v, want ErrStaleAnchor", err)
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		tx := signedTx(t, bank, payer, progID, good)
		tx.Signature[0] ^= 0xff
		if _, err := bank.Submit(context.Background(), tx); !errors.Is(err, ErrBadSignature) {
			t.Errorf("Submit() error = %v, want ErrBadSignature", err)
		}
	})

	t.Run("unknown payer", func(t *testing.T) {
		stranger, _ := NewKeypair()
		tx := signedTx(t, bank, stranger, progID, good)
		if _, err := bank.Submit(context.Background(), tx); !errors.Is(err, ErrUnknownPayer) {
			t.Errorf("Submit() error = %v, want ErrUnknownPayer", err)
		}
	})

	t.Run("insufficient funds", func(t *testing.T) {
		poor, _ := NewKeypair()
		bank.Fund(poor.Pubkey(), 10)
		tx := signedTx(t, bank, poor, progID, good)
		if _, err := bank.Submit(context.Background(), tx); !errors.Is(err, ErrInsufficientFunds) {
			t.Errorf("Submit() error = %v, want ErrInsufficientFunds", err)
		}
	})

	t.Run("unknown program", func(t *testing.T) {
		tx := signedTx(t, bank, payer, DerivePubkey("nowhere"), good)
		if _, err := bank.Submit(context.Background(), tx); !errors.Is(err, ErrUnknownProgram) {
			t.Errorf("Submit() error = %v, want ErrUnknownProgram", err)
		}
	})

	t.Run("no instructions", func(t *testing.T) {
		anchor, _ := bank.LatestAnchor()
		msg := Message{Anchor: anchor, Payer: payer.Pubkey()}
		tx := &Transaction{Message: msg, Signature: payer.Sign(msg.Serialize())}
		if _, err := bank.Submit(context.Background(), tx); err == nil {
			t.Error("Submit() with no instructions succeeded, want error")
		}
	})
}

func TestAnchorRingEvictsOldAnchors(t *testing.T) {
	bank, payer, progID := newTestBank(t, Config{})
	tx := signedTx(t, bank, payer, progID, append([]byte{0}, make([]byte, 32)...))

	for i := 0; i < maxRecentAnchors+1; i++ {
		bank.Tick()
	}

	if _, err := bank.Submit(context.Background(), tx); !errors.Is(err, ErrStaleAnchor) {
		t.Errorf("Submit() after ring rollover error = %v, want ErrStaleAnchor", err)
	}
}

func TestTickAdvancesAnchor(t *testing.T) {
	bank := NewBank(Config{})
	defer bank.Close(context.Background())

	a1, err := bank.LatestAnchor()
	if err != nil {
		t.Fatalf("LatestAnchor() error = %v", err)
	}
	bank.Tick()
	a2, _ := bank.LatestAnchor()

	if a1 == a2 {
		t.Error("Tick() did not issue a new anchor")
	}
	if a2.IsZero() {
		t.Error("issued anchor is zero")
	}
}

func TestLoadProgramMissingArtifact(t *testing.T) {
	bank := NewBank(Config{})
	defer bank.Close(context.Background())

	err := bank.LoadProgram(context.Background(), "/nonexistent/program.wasm", DerivePubkey("p"))
	if err == nil {
		t.Fatal("LoadProgram() with missing artifact succeeded, want error")
	}
	if !strings.Contains(err.Error(), "build it first") {
		t.Errorf("error %q does not tell the user to build the artifact", err)
	}
}

func assertLogLine(t *testing.T, logs []string, fragment string) {
	t.Helper()
	for _, line := range logs {
		if strings.Contains(line, fragment) {
			return
		}
	}
	t.Errorf("no log line containing %q in %v", fragment, logs)
}
