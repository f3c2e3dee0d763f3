// Package bench orchestrates a benchmark run: sandbox bootstrap, the
// strictly sequential submission loop, and final aggregation.
package bench

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gateway-fm/cubench/internal/extractor"
	"github.com/gateway-fm/cubench/internal/instruction"
	"github.com/gateway-fm/cubench/internal/metrics"
	"github.com/gateway-fm/cubench/internal/sandbox"
	"github.com/gateway-fm/cubench/internal/txbuilder"
	"github.com/gateway-fm/cubench/pkg/types"
)

// DefaultFunding is credited to the payer at bootstrap. Generous enough
// for any realistic vector count at the default fee.
const DefaultFunding = 10_000_000

// Options configures a run.
type Options struct {
	ArtifactPath    string
	ProgramID       sandbox.Pubkey
	FundingLamports uint64        // DefaultFunding when 0
	ComputeBudget   uint64        // sandbox.DefaultComputeBudget when 0
	Delay           time.Duration // optional pause between submissions

	// ZeroFillAverages selects the legacy averaging semantics, see
	// metrics.AggregateOptions.
	ZeroFillAverages bool

	Logger *slog.Logger
	Prom   *metrics.PrometheusMetrics

	// OnOutcome is invoked after each outcome is recorded, in
	// submission order. Used for live progress broadcasting.
	OnOutcome func(index int, outcome types.ExecutionOutcome)
}

// Runner owns the sandbox and payer for one run.
type Runner struct {
	opts   Options
	logger *slog.Logger
	bank   *sandbox.Bank
	payer  *sandbox.Keypair
}

// Initialize provisions a fresh sandbox, funds a newly generated payer
// and loads the program artifact under the fixed program identifier.
// A missing artifact is fatal for the run; there is no build fallback.
func Initialize(ctx context.Context, opts Options) (*Runner, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.FundingLamports == 0 {
		opts.FundingLamports = DefaultFunding
	}

	bank := sandbox.NewBank(sandbox.Config{
		ComputeBudget: opts.ComputeBudget,
		Logger:        opts.Logger,
	})

	payer, err := sandbox.NewKeypair()
	if err != nil {
		bank.Close(ctx)
		return nil, err
	}
	bank.Fund(payer.Pubkey(), opts.FundingLamports)

	if err := bank.LoadProgram(ctx, opts.ArtifactPath, opts.ProgramID); err != nil {
		bank.Close(ctx)
		return nil, err
	}

	opts.Logger.Info("sandbox initialized",
		"payer", payer.Pubkey().String(),
		"funding", opts.FundingLamports,
		"programId", opts.ProgramID.String())

	return &Runner{opts: opts, logger: opts.Logger, bank: bank, payer: payer}, nil
}

// Run processes the vectors one at a time in order. The next submission
// only begins after the previous outcome has been fully extracted and
// recorded; the sandbox's ledger state is shared mutable state and must
// never see concurrent submissions. Per-vector failures are contained
// and the run continues.
func (r *Runner) Run(ctx context.Context, vectors []types.TestVector) (*types.RunReport, error) {
	outcomes := make([]types.ExecutionOutcome, 0, len(vectors))

	for i, v := range vectors {
		outcome := r.runOne(ctx, v)
		outcomes = append(outcomes, outcome)

		if r.opts.Prom != nil {
			r.opts.Prom.RecordOutcome(outcome)
		}
		if r.opts.OnOutcome != nil {
			r.opts.OnOutcome(i, outcome)
		}
		r.logger.Info("vector processed",
			"test", v.Name,
			"selector", v.Selector,
			"success", outcome.Success,
			"computeUnits", formatUnits(outcome.ComputeUnits))

		if r.opts.Delay > 0 && i < len(vectors)-1 {
			time.Sleep(r.opts.Delay)
		}
	}

	return metrics.AggregateWithOptions(outcomes, metrics.AggregateOptions{
		ZeroFillAverages: r.opts.ZeroFillAverages,
	}), nil
}

// runOne builds and submits a single vector. Build failures are folded
// into a failed outcome like submission failures: they terminate this
// vector only.
func (r *Runner) runOne(ctx context.Context, v types.TestVector) types.ExecutionOutcome {
	prov := extractor.Provenance{
		TestName:    v.Name,
		Selector:    v.Selector,
		PayloadSize: len(v.Payload),
	}

	data := instruction.Encode(v.Selector, v.Payload)
	tx, err := txbuilder.Build(r.bank, r.payer, r.opts.ProgramID, data)
	if err != nil {
		return types.ExecutionOutcome{
			TestName:    prov.TestName,
			Selector:    prov.Selector,
			PayloadSize: prov.PayloadSize,
			Success:     false,
			ErrorDetail: fmt.Sprintf("building transaction: %s", err),
			Logs:        []string{},
		}
	}

	return extractor.Execute(ctx, r.bank, tx, prov)
}

// Close releases the sandbox.
func (r *Runner) Close(ctx context.Context) error {
	return r.bank.Close(ctx)
}

func formatUnits(units *uint64) any {
	if units == nil {
		return "unknown"
	}
	return *units
}
