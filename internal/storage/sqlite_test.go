package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gateway-fm/cubench/pkg/types"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "cubench.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func uptr(v uint64) *uint64 { return &v }

func sampleRun(id string) *types.BenchRun {
	return &types.BenchRun{
		ID:           id,
		StartedAt:    time.Now().UTC().Truncate(time.Second),
		ArtifactPath: "./artifacts/poseidon_bench.wasm",
		ProgramID:    "9zXc",
		Status:       types.StatusRunning,
	}
}

func TestCreateAndGetBenchRun(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	run := sampleRun("run-1")
	if err := s.CreateBenchRun(ctx, run); err != nil {
		t.Fatalf("CreateBenchRun() error = %v", err)
	}

	got, err := s.GetBenchRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetBenchRun() error = %v", err)
	}
	if got.ID != run.ID || got.ArtifactPath != run.ArtifactPath || got.ProgramID != run.ProgramID {
		t.Errorf("GetBenchRun() = %+v, want fields of %+v", got, run)
	}
	if got.Status != types.StatusRunning {
		t.Errorf("Status = %s, want running", got.Status)
	}
	if got.CompletedAt != nil {
		t.Error("CompletedAt set on a fresh run")
	}
}

func TestGetBenchRunNotFound(t *testing.T) {
	s := newTestStorage(t)

	if _, err := s.GetBenchRun(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBenchRun() error = %v, want ErrNotFound", err)
	}
}

func TestCompleteBenchRun(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	run := sampleRun("run-2")
	if err := s.CreateBenchRun(ctx, run); err != nil {
		t.Fatalf("CreateBenchRun() error = %v", err)
	}

	run.Status = types.StatusCompleted
	run.Submitted = 10
	run.Succeeded = 9
	run.Failed = 1
	run.Report = &types.RunReport{
		Variants: []types.VariantStats{{Selector: 0, Total: 5, Measured: 5, AvgComputeUnits: 1603}},
		Ratios:   []types.CostRatio{{Selector: 1, Baseline: 0, Ratio: 1.11}},
	}
	if err := s.CompleteBenchRun(ctx, run); err != nil {
		t.Fatalf("CompleteBenchRun() error = %v", err)
	}

	got, err := s.GetBenchRun(ctx, "run-2")
	if err != nil {
		t.Fatalf("GetBenchRun() error = %v", err)
	}
	if got.Status != types.StatusCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if got.Submitted != 10 || got.Succeeded != 9 || got.Failed != 1 {
		t.Errorf("counts = %d/%d/%d", got.Submitted, got.Succeeded, got.Failed)
	}
	if got.Report == nil {
		t.Fatal("Report not persisted")
	}
	if len(got.Report.Variants) != 1 || got.Report.Variants[0].AvgComputeUnits != 1603 {
		t.Errorf("Report.Variants = %+v", got.Report.Variants)
	}
	if len(got.Report.Ratios) != 1 || got.Report.Ratios[0].Ratio != 1.11 {
		t.Errorf("Report.Ratios = %+v", got.Report.Ratios)
	}
}

func TestCompleteBenchRunNotFound(t *testing.T) {
	s := newTestStorage(t)

	if err := s.CompleteBenchRun(context.Background(), sampleRun("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("CompleteBenchRun() error = %v, want ErrNotFound", err)
	}
}

func TestListBenchRunsPagination(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		run := sampleRun("run-" + string(rune('a'+i)))
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateBenchRun(ctx, run); err != nil {
			t.Fatalf("CreateBenchRun() error = %v", err)
		}
	}

	page, err := s.ListBenchRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListBenchRuns() error = %v", err)
	}
	if page.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Total)
	}
	if len(page.Runs) != 2 {
		t.Fatalf("Runs = %d, want 2", len(page.Runs))
	}
	// Newest first.
	if page.Runs[0].ID != "run-e" || page.Runs[1].ID != "run-d" {
		t.Errorf("order = %s, %s, want run-e, run-d", page.Runs[0].ID, page.Runs[1].ID)
	}

	page2, err := s.ListBenchRuns(ctx, 2, 4)
	if err != nil {
		t.Fatalf("ListBenchRuns(offset) error = %v", err)
	}
	if len(page2.Runs) != 1 || page2.Runs[0].ID != "run-a" {
		t.Errorf("last page = %+v, want only run-a", page2.Runs)
	}
}

func TestDeleteBenchRun(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.CreateBenchRun(ctx, sampleRun("run-del")); err != nil {
		t.Fatalf("CreateBenchRun() error = %v", err)
	}
	if err := s.DeleteBenchRun(ctx, "run-del"); err != nil {
		t.Fatalf("DeleteBenchRun() error = %v", err)
	}
	if _, err := s.GetBenchRun(ctx, "run-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBenchRun() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteBenchRun(ctx, "run-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteBenchRun() twice error = %v, want ErrNotFound", err)
	}
}

func TestBulkInsertAndGetOutcomes(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.CreateBenchRun(ctx, sampleRun("run-o")); err != nil {
		t.Fatalf("CreateBenchRun() error = %v", err)
	}

	outcomes := []types.ExecutionOutcome{
		{
			TestName:     "poseidon1-32B",
			Selector:     0,
			PayloadSize:  32,
			Success:      true,
			ComputeUnits: uptr(1603),
			Logs:         []string{"Program log: ok"},
			Duration:     12 * time.Millisecond,
		},
		{
			TestName:    "poseidon2-64B",
			Selector:    1,
			PayloadSize: 64,
			Success:     false,
			ErrorDetail: "instruction 0 failed: invalid instruction data",
			Logs:        []string{},
		},
	}
	if err := s.BulkInsertOutcomes(ctx, "run-o", outcomes); err != nil {
		t.Fatalf("BulkInsertOutcomes() error = %v", err)
	}

	got, err := s.GetOutcomes(ctx, "run-o")
	if err != nil {
		t.Fatalf("GetOutcomes() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetOutcomes() = %d outcomes, want 2", len(got))
	}

	first := got[0]
	if first.TestName != "poseidon1-32B" || !first.Success {
		t.Errorf("first outcome = %+v", first)
	}
	if first.ComputeUnits == nil || *first.ComputeUnits != 1603 {
		t.Errorf("ComputeUnits = %v, want 1603", first.ComputeUnits)
	}
	if first.Duration != 12*time.Millisecond {
		t.Errorf("Duration = %v, want 12ms", first.Duration)
	}
	if len(first.Logs) != 1 {
		t.Errorf("Logs = %v", first.Logs)
	}

	second := got[1]
	if second.Success {
		t.Error("second outcome should be failed")
	}
	// A missing compute-unit value must round-trip as nil, not zero.
	if second.ComputeUnits != nil {
		t.Errorf("ComputeUnits = %v, want nil", second.ComputeUnits)
	}
	if second.ErrorDetail == "" {
		t.Error("ErrorDetail lost")
	}
}

func TestBulkInsertOutcomesEmpty(t *testing.T) {
	s := newTestStorage(t)

	if err := s.BulkInsertOutcomes(context.Background(), "whatever", nil); err != nil {
		t.Errorf("BulkInsertOutcomes(empty) error = %v", err)
	}
}

func TestDeleteCascadesToOutcomes(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.CreateBenchRun(ctx, sampleRun("run-c")); err != nil {
		t.Fatalf("CreateBenchRun() error = %v", err)
	}
	outcomes := []types.ExecutionOutcome{{TestName: "t", Success: true, Logs: []string{}}}
	if err := s.BulkInsertOutcomes(ctx, "run-c", outcomes); err != nil {
		t.Fatalf("BulkInsertOutcomes() error = %v", err)
	}

	if err := s.DeleteBenchRun(ctx, "run-c"); err != nil {
		t.Fatalf("DeleteBenchRun() error = %v", err)
	}
	got, err := s.GetOutcomes(ctx, "run-c")
	if err != nil {
		t.Fatalf("GetOutcomes() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("outcomes survived run deletion: %+v", got)
	}
}
