// Package storage persists benchmark runs and their outcomes.
package storage

import (
	"context"
	"errors"

	"github.com/gateway-fm/cubench/pkg/types"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("bench run not found")

// Storage defines the persistence interface for benchmark data.
type Storage interface {
	// Run lifecycle
	CreateBenchRun(ctx context.Context, run *types.BenchRun) error
	CompleteBenchRun(ctx context.Context, run *types.BenchRun) error
	GetBenchRun(ctx context.Context, id string) (*types.BenchRun, error)

	// History queries
	ListBenchRuns(ctx context.Context, limit, offset int) (*types.PaginatedBenchRuns, error)
	DeleteBenchRun(ctx context.Context, id string) error

	// Outcome bulk operations (called after the run completes)
	BulkInsertOutcomes(ctx context.Context, runID string, outcomes []types.ExecutionOutcome) error
	GetOutcomes(ctx context.Context, runID string) ([]types.ExecutionOutcome, error)

	// Lifecycle
	Close() error
}
