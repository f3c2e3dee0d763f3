// Package types contains public API types for the benchmark harness.
// These types form the external interface and must remain backwards-compatible.
package types

import "time"

// RunStatus represents the state of a benchmark run.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusBooting   RunStatus = "booting" // sandbox is being provisioned
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusError     RunStatus = "error"
)

// TestVector is a named input fixture. Vectors are defined before a run
// and are read-only afterwards.
type TestVector struct {
	Name     string `json:"name"`
	Selector uint8  `json:"selector"`
	Payload  []byte `json:"payload"`
}

// ExecutionOutcome is the normalized result of one submission.
//
// Exactly one of {Success == true, ErrorDetail != ""} describes the terminal
// state. ComputeUnits is nil when no cost signal could be located; that is an
// expected, reportable state rather than an error.
type ExecutionOutcome struct {
	TestName     string        `json:"testName"`
	Selector     uint8         `json:"selector"`
	PayloadSize  int           `json:"payloadSize"`
	Success      bool          `json:"success"`
	ComputeUnits *uint64       `json:"computeUnits,omitempty"`
	Logs         []string      `json:"logs,omitempty"`
	ErrorDetail  string        `json:"errorDetail,omitempty"`
	Duration     time.Duration `json:"durationNs"`
}

// Measured reports whether the outcome carries a usable cost sample:
// a successful submission with a located compute-unit count.
func (o *ExecutionOutcome) Measured() bool {
	return o.Success && o.ComputeUnits != nil
}

// VariantStats aggregates outcomes for one instruction selector.
type VariantStats struct {
	Selector  uint8   `json:"selector"`
	Total     int     `json:"total"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	// Measured counts successful outcomes with a present compute-unit
	// value; AvgComputeUnits is the mean over exactly those outcomes.
	Measured        int     `json:"measured"`
	AvgComputeUnits float64 `json:"avgComputeUnits"`
	MinComputeUnits uint64  `json:"minComputeUnits"`
	MaxComputeUnits uint64  `json:"maxComputeUnits"`
	AvgDurationMs   float64 `json:"avgDurationMs"`
}

// Defined reports whether the variant has a usable non-zero average.
func (v *VariantStats) Defined() bool {
	return v.Measured > 0 && v.AvgComputeUnits > 0
}

// CostRatio compares the average cost of one selector against a baseline
// selector. Ratio is Selector's average divided by Baseline's average.
type CostRatio struct {
	Selector uint8   `json:"selector"`
	Baseline uint8   `json:"baseline"`
	Ratio    float64 `json:"ratio"`
}

// RunReport is the aggregated view over one run's measurement set.
type RunReport struct {
	Outcomes []ExecutionOutcome `json:"outcomes"`
	Variants []VariantStats     `json:"variants"`
	Ratios   []CostRatio        `json:"ratios"`
}

// BenchRun is the persisted record of one benchmark run.
type BenchRun struct {
	ID           string     `json:"id"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	ArtifactPath string     `json:"artifactPath"`
	ProgramID    string     `json:"programId"`
	Status       RunStatus  `json:"status"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	Submitted    int        `json:"submitted"`
	Succeeded    int        `json:"succeeded"`
	Failed       int        `json:"failed"`
	Report       *RunReport `json:"report,omitempty"`
}

// PaginatedBenchRuns is a page of run history.
type PaginatedBenchRuns struct {
	Runs   []BenchRun `json:"runs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// OutcomeEvent is broadcast over the WebSocket while a run is in progress.
type OutcomeEvent struct {
	RunID   string           `json:"runId"`
	Index   int              `json:"index"`
	Outcome ExecutionOutcome `json:"outcome"`
}
