// Package metrics aggregates execution outcomes into comparative
// per-variant statistics and exposes Prometheus instrumentation.
package metrics

import (
	"sort"

	"github.com/gateway-fm/cubench/pkg/types"
)

// AggregateOptions tunes the aggregation semantics.
type AggregateOptions struct {
	// ZeroFillAverages replicates the legacy averaging that summed
	// missing compute-unit values as zero and divided by the full group
	// size, skewing averages downward when costs were occasionally
	// unavailable. Off by default: missing costs are excluded from the
	// mean. The toggle exists only for comparing against historical
	// numbers produced under the old semantics.
	ZeroFillAverages bool
}

// Aggregate groups outcomes by instruction selector and computes
// per-variant averages and cross-variant cost ratios. Pure function of
// the measurement sequence; the input is not mutated.
func Aggregate(outcomes []types.ExecutionOutcome) *types.RunReport {
	return AggregateWithOptions(outcomes, AggregateOptions{})
}

// AggregateWithOptions is Aggregate with explicit semantics.
func AggregateWithOptions(outcomes []types.ExecutionOutcome, opts AggregateOptions) *types.RunReport {
	report := &types.RunReport{Outcomes: outcomes}
	if len(outcomes) == 0 {
		return report
	}

	groups := make(map[uint8][]types.ExecutionOutcome)
	var selectors []uint8
	for _, o := range outcomes {
		if _, seen := groups[o.Selector]; !seen {
			selectors = append(selectors, o.Selector)
		}
		groups[o.Selector] = append(groups[o.Selector], o)
	}
	sort.Slice(selectors, func(i, j int) bool { return selectors[i] < selectors[j] })

	for _, sel := range selectors {
		report.Variants = append(report.Variants, variantStats(sel, groups[sel], opts))
	}

	// One directional ratio per variant pair, cheaper group as baseline.
	for i := 0; i < len(report.Variants); i++ {
		for j := i + 1; j < len(report.Variants); j++ {
			a, b := &report.Variants[i], &report.Variants[j]
			if !a.Defined() || !b.Defined() {
				continue
			}
			if b.AvgComputeUnits >= a.AvgComputeUnits {
				report.Ratios = append(report.Ratios, types.CostRatio{
					Selector: b.Selector,
					Baseline: a.Selector,
					Ratio:    b.AvgComputeUnits / a.AvgComputeUnits,
				})
			} else {
				report.Ratios = append(report.Ratios, types.CostRatio{
					Selector: a.Selector,
					Baseline: b.Selector,
					Ratio:    a.AvgComputeUnits / b.AvgComputeUnits,
				})
			}
		}
	}

	return report
}

func variantStats(sel uint8, group []types.ExecutionOutcome, opts AggregateOptions) types.VariantStats {
	stats := types.VariantStats{Selector: sel, Total: len(group)}

	var costSum, durationSum float64
	for _, o := range group {
		durationSum += float64(o.Duration.Milliseconds())
		if o.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		if o.Measured() {
			units := *o.ComputeUnits
			if stats.Measured == 0 || units < stats.MinComputeUnits {
				stats.MinComputeUnits = units
			}
			if units > stats.MaxComputeUnits {
				stats.MaxComputeUnits = units
			}
			stats.Measured++
			costSum += float64(units)
		}
	}

	if opts.ZeroFillAverages {
		// Legacy semantics: absent costs count as zero and the divisor
		// is the full group size.
		stats.AvgComputeUnits = costSum / float64(stats.Total)
	} else if stats.Measured > 0 {
		stats.AvgComputeUnits = costSum / float64(stats.Measured)
	}
	if stats.Total > 0 {
		stats.AvgDurationMs = durationSum / float64(stats.Total)
	}
	return stats
}
