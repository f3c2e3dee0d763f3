// Package report renders aggregated benchmark results as human-readable
// summary text.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gateway-fm/cubench/pkg/types"
)

// Render writes the report deterministically: per-test lines in
// submission order, per-variant averages, then cost ratios. Missing
// compute-unit values print as "unknown", never as zero.
func Render(w io.Writer, r *types.RunReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "TEST\tSELECTOR\tPAYLOAD\tCOMPUTE UNITS\tRESULT")
	for _, o := range r.Outcomes {
		fmt.Fprintf(tw, "%s\t%d\t%dB\t%s\t%s\n",
			o.TestName, o.Selector, o.PayloadSize, formatUnits(o.ComputeUnits), formatResult(&o))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Variants) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Per-variant averages:")
		for _, v := range r.Variants {
			if v.Measured == 0 {
				fmt.Fprintf(w, "  selector %d: no measured outcomes (%d/%d succeeded)\n",
					v.Selector, v.Succeeded, v.Total)
				continue
			}
			fmt.Fprintf(w, "  selector %d: avg %.1f CU (min %d, max %d) over %d measured, %d/%d succeeded\n",
				v.Selector, v.AvgComputeUnits, v.MinComputeUnits, v.MaxComputeUnits,
				v.Measured, v.Succeeded, v.Total)
		}
	}

	if len(r.Ratios) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Cost ratios:")
		for _, ratio := range r.Ratios {
			fmt.Fprintf(w, "  selector %d is %.2fx more expensive than selector %d\n",
				ratio.Selector, ratio.Ratio, ratio.Baseline)
		}
	}

	return nil
}

// RenderString is Render into a string, for transports that need the
// text form (MCP, tests).
func RenderString(r *types.RunReport) string {
	var sb strings.Builder
	_ = Render(&sb, r)
	return sb.String()
}

func formatUnits(units *uint64) string {
	if units == nil {
		return "unknown"
	}
	return fmt.Sprintf("%d", *units)
}

func formatResult(o *types.ExecutionOutcome) string {
	if o.Success {
		return "ok"
	}
	return "failed: " + o.ErrorDetail
}
