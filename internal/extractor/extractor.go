// Package extractor submits transactions and normalizes the
// heterogeneous submission results into ExecutionOutcome records.
//
// The execution context does not guarantee one stable result schema
// across its success and failure paths: compute units may be exposed
// top-level, under a metadata sub-object, or only inside free-text log
// lines; logs likewise appear in two places. The extractor probes every
// representation and treats a missing cost signal as a valid, reportable
// state rather than an error.
package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gateway-fm/cubench/internal/sandbox"
	"github.com/gateway-fm/cubench/pkg/types"
)

// computeUnitsPattern is the documented contract with the runtime's
// diagnostic format. It is the last-resort cost source and deliberately
// isolated here so a format change touches exactly one function.
var computeUnitsPattern = regexp.MustCompile(`consumed (\d+) of`)

// Submitter is the single operation the extractor needs from the
// execution context. *sandbox.Bank satisfies this.
type Submitter interface {
	Submit(ctx context.Context, tx *sandbox.Transaction) (*sandbox.Result, error)
}

// Provenance carries the test-vector fields copied onto each outcome.
type Provenance struct {
	TestName    string
	Selector    uint8
	PayloadSize int
}

// Execute submits one transaction and classifies whatever comes back.
//
// Two failure modes are distinguished: an error from Submit itself
// (transport-style failure, no result value exists) and a value-returning
// result carrying a structured transaction error. Both are recorded as
// failed outcomes; neither aborts the caller's run.
func Execute(ctx context.Context, env Submitter, tx *sandbox.Transaction, prov Provenance) types.ExecutionOutcome {
	outcome := types.ExecutionOutcome{
		TestName:    prov.TestName,
		Selector:    prov.Selector,
		PayloadSize: prov.PayloadSize,
	}

	start := time.Now()
	result, err := env.Submit(ctx, tx)
	outcome.Duration = time.Since(start)

	if err != nil {
		outcome.Success = false
		outcome.ErrorDetail = err.Error()
		outcome.Logs = []string{}
		return outcome
	}

	outcome.Logs = normalizeLogs(result)
	outcome.ComputeUnits = extractComputeUnits(result, outcome.Logs)

	if result.Err != nil {
		outcome.Success = false
		outcome.ErrorDetail = result.Err.Error()
	} else {
		outcome.Success = true
	}
	return outcome
}

// normalizeLogs flattens the result's two log shapes into one ordered
// slice, defaulting to empty when neither is populated.
func normalizeLogs(result *sandbox.Result) []string {
	if len(result.Logs) > 0 {
		return result.Logs
	}
	if result.Meta != nil && len(result.Meta.LogMessages) > 0 {
		return result.Meta.LogMessages
	}
	return []string{}
}

// extractComputeUnits tries each cost representation in order: the
// top-level structured field, the metadata sub-object, then text-pattern
// extraction from the logs. Returns nil when no signal could be located.
func extractComputeUnits(result *sandbox.Result, logs []string) *uint64 {
	if result.UnitsConsumed != nil {
		return result.UnitsConsumed
	}
	if result.Meta != nil && result.Meta.ComputeUnitsConsumed != nil {
		return result.Meta.ComputeUnitsConsumed
	}
	if units, ok := ParseComputeUnits(logs); ok {
		return &units
	}
	return nil
}

// ParseComputeUnits scans diagnostic lines for the runtime's consumption
// message and returns the first captured count.
func ParseComputeUnits(logs []string) (uint64, bool) {
	for _, line := range logs {
		if !strings.Contains(line, "consumed") || !strings.Contains(line, "compute units") {
			continue
		}
		m := computeUnitsPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		units, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		return units, true
	}
	return 0, false
}
