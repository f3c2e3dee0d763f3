package mcp

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "small int", input: 42, want: "42"},
		{name: "thousands", input: 12345, want: "12,345"},
		{name: "millions", input: int64(1234567), want: "1,234,567"},
		{name: "whole float", input: float64(200000), want: "200,000"},
		{name: "fractional float", input: 2.25, want: "2.2"},
		{name: "uint64", input: uint64(1603), want: "1,603"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatNumber(tt.input); got != tt.want {
				t.Errorf("formatNumber(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatRunDetail(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "run-1",
		"status": "completed",
		"programId": "9zXc",
		"artifactPath": "./artifacts/poseidon_bench.wasm",
		"submitted": 10,
		"succeeded": 10,
		"failed": 0,
		"report": {
			"variants": [
				{"selector": 0, "measured": 5, "avgComputeUnits": 1603, "minComputeUnits": 1603, "maxComputeUnits": 1603},
				{"selector": 1, "measured": 5, "avgComputeUnits": 1786, "minComputeUnits": 1786, "maxComputeUnits": 1786}
			],
			"ratios": [
				{"selector": 1, "baseline": 0, "ratio": 1.11}
			]
		}
	}`)

	out := formatRunDetail(raw)

	for _, want := range []string{
		"run-1",
		"completed",
		"selector 0: avg 1603.0 CU",
		"selector 1 is 1.11x more expensive than selector 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRunDetailUnmeasuredVariant(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "run-2",
		"status": "completed",
		"report": {"variants": [{"selector": 0, "measured": 0}]}
	}`)

	out := formatRunDetail(raw)

	if !strings.Contains(out, "no measured outcomes") {
		t.Errorf("unmeasured variant not called out:\n%s", out)
	}
}

func TestFormatHistoryEmpty(t *testing.T) {
	out := formatHistory(json.RawMessage(`{"runs": [], "total": 0}`))

	if !strings.Contains(out, "No benchmark runs found") {
		t.Errorf("empty history not handled:\n%s", out)
	}
}

func TestFormatOutcomes(t *testing.T) {
	raw := json.RawMessage(`{
		"runId": "run-1",
		"outcomes": [
			{"testName": "poseidon1-32B", "success": true, "computeUnits": 1603},
			{"testName": "poseidon2-64B", "success": false, "errorDetail": "boom"}
		]
	}`)

	out := formatOutcomes(raw)

	if !strings.Contains(out, "1,603 CU") {
		t.Errorf("compute units missing:\n%s", out)
	}
	if !strings.Contains(out, "unknown") {
		t.Errorf("missing cost not rendered as unknown:\n%s", out)
	}
	if !strings.Contains(out, "FAILED: boom") {
		t.Errorf("failure not rendered:\n%s", out)
	}
}
