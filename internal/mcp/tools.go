package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gomcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all benchmark harness tools on the MCP server.
func RegisterTools(s *server.MCPServer, client *Client) {
	registerHealth(s, client)
	registerHistory(s, client)
	registerRunDetail(s, client)
	registerRunOutcomes(s, client)
	registerDeleteRun(s, client)
}

func registerHealth(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("cubench_health",
		gomcp.WithDescription("Quick health check for the benchmark harness API."),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		_, err := client.Get("/health")
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Harness unreachable: %v\n\nIs it running with -serve?", err)), nil
		}
		return gomcp.NewToolResultText(section("Harness Health: OK")), nil
	})
}

func registerHistory(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("cubench_history",
		gomcp.WithDescription("List completed benchmark runs with summary counts (paginated)."),
		gomcp.WithNumber("limit",
			gomcp.Description("Max results to return (default: 10, max: 100)"),
		),
		gomcp.WithNumber("offset",
			gomcp.Description("Results offset for pagination (default: 0)"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		offset := req.GetInt("offset", 0)
		path := fmt.Sprintf("/v1/runs?limit=%d&offset=%d", limit, offset)

		raw, err := client.Get(path)
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("History failed: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatHistory(raw)), nil
	})
}

func registerRunDetail(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("cubench_run_detail",
		gomcp.WithDescription("Get detailed results for a benchmark run: per-variant compute-unit averages and cost ratios."),
		gomcp.WithString("id",
			gomcp.Required(),
			gomcp.Description("Benchmark run ID"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return gomcp.NewToolResultError("id is required"), nil
		}
		raw, err := client.Get("/v1/runs/" + id)
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Run detail failed: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatRunDetail(raw)), nil
	})
}

func registerRunOutcomes(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("cubench_run_outcomes",
		gomcp.WithDescription("Get per-submission outcomes for a benchmark run, in submission order."),
		gomcp.WithString("id",
			gomcp.Required(),
			gomcp.Description("Benchmark run ID"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return gomcp.NewToolResultError("id is required"), nil
		}
		raw, err := client.Get("/v1/runs/" + id + "/outcomes")
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Run outcomes failed: %v", err)), nil
		}
		return gomcp.NewToolResultText(formatOutcomes(raw)), nil
	})
}

func registerDeleteRun(s *server.MCPServer, client *Client) {
	tool := gomcp.NewTool("cubench_delete_run",
		gomcp.WithDescription("Delete a benchmark run and its outcomes. This is a MUTATING operation."),
		gomcp.WithString("id",
			gomcp.Required(),
			gomcp.Description("Benchmark run ID to delete"),
		),
	)
	s.AddTool(tool, func(ctx context.Context, req gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return gomcp.NewToolResultError("id is required"), nil
		}
		_, err = client.Delete("/v1/runs/" + id)
		if err != nil {
			return gomcp.NewToolResultError(fmt.Sprintf("Delete failed: %v", err)), nil
		}
		return gomcp.NewToolResultText(joinLines(
			section("Run Deleted"),
			kv("ID", id),
		)), nil
	})
}

// Response formatting functions

func formatHistory(raw json.RawMessage) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Sprintf("Error parsing history: %v", err)
	}

	total := getNum(m, "total")
	lines := joinLines(
		section("Benchmark History"),
		kv("Total Runs", formatNumber(total)),
		"",
	)

	runs, ok := m["runs"].([]any)
	if !ok || len(runs) == 0 {
		lines += "No benchmark runs found."
		return lines
	}

	for _, r := range runs {
		run, ok := r.(map[string]any)
		if !ok {
			continue
		}
		id := getStr(run, "id")
		status := getStr(run, "status")
		submitted := getNum(run, "submitted")
		succeeded := getNum(run, "succeeded")
		failed := getNum(run, "failed")
		startedAt := getStr(run, "startedAt")

		t, err := time.Parse(time.RFC3339Nano, startedAt)
		started := startedAt
		if err == nil {
			started = t.Format("2006-01-02 15:04:05")
		}

		lines += fmt.Sprintf("### %s\n", id)
		lines += joinLines(
			kv("Status", status),
			kv("Submitted", formatNumber(submitted)),
			kv("Succeeded", formatNumber(succeeded)),
			kv("Failed", formatNumber(failed)),
			kv("Started", started),
		)
		lines += "\n\n"
	}

	return lines
}

func formatRunDetail(raw json.RawMessage) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Sprintf("Error parsing run detail: %v", err)
	}

	id := getStr(m, "id")
	lines := joinLines(
		section("Benchmark Run: "+id),
		kv("Status", getStr(m, "status")),
		kv("Program ID", getStr(m, "programId")),
		kv("Artifact", getStr(m, "artifactPath")),
		kv("Submitted", formatNumber(getNum(m, "submitted"))),
		kv("Succeeded", formatNumber(getNum(m, "succeeded"))),
		kv("Failed", formatNumber(getNum(m, "failed"))),
	)
	if errMsg := getStr(m, "errorMessage"); errMsg != "" {
		lines += "\n" + kv("Error", errMsg)
	}

	report, ok := m["report"].(map[string]any)
	if !ok {
		return lines
	}

	if variants, ok := report["variants"].([]any); ok && len(variants) > 0 {
		lines += "\n\n" + section("Variants")
		for _, v := range variants {
			variant, ok := v.(map[string]any)
			if !ok {
				continue
			}
			selector := int64(getNum(variant, "selector"))
			measured := int64(getNum(variant, "measured"))
			avg := getNum(variant, "avgComputeUnits")
			if measured == 0 {
				lines += fmt.Sprintf("\n  selector %d: no measured outcomes", selector)
				continue
			}
			lines += fmt.Sprintf("\n  selector %d: avg %.1f CU over %d measured (min %s, max %s)",
				selector, avg, measured,
				formatNumber(getNum(variant, "minComputeUnits")),
				formatNumber(getNum(variant, "maxComputeUnits")))
		}
	}

	if ratios, ok := report["ratios"].([]any); ok && len(ratios) > 0 {
		lines += "\n\n" + section("Cost Ratios")
		for _, r := range ratios {
			ratio, ok := r.(map[string]any)
			if !ok {
				continue
			}
			lines += fmt.Sprintf("\n  selector %d is %.2fx more expensive than selector %d",
				int64(getNum(ratio, "selector")),
				getNum(ratio, "ratio"),
				int64(getNum(ratio, "baseline")))
		}
	}

	return lines
}

func formatOutcomes(raw json.RawMessage) string {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Sprintf("Error parsing outcomes: %v", err)
	}

	outcomes, ok := m["outcomes"].([]any)
	if !ok || len(outcomes) == 0 {
		return "No outcomes found."
	}

	lines := joinLines(
		section("Outcomes: "+getStr(m, "runId")),
		kv("Total", formatNumber(len(outcomes))),
		"",
	)

	for i, o := range outcomes {
		if i >= 50 {
			lines += fmt.Sprintf("\n... and %d more", len(outcomes)-50)
			break
		}
		outcome, ok := o.(map[string]any)
		if !ok {
			continue
		}
		name := getStr(outcome, "testName")
		result := "ok"
		if success, _ := outcome["success"].(bool); !success {
			result = "FAILED: " + getStr(outcome, "errorDetail")
		}
		units := "unknown"
		if u, ok := outcome["computeUnits"].(float64); ok {
			units = formatNumber(u) + " CU"
		}
		lines += fmt.Sprintf("  [%d] %-20s %-12s %s\n", i, name, units, result)
	}

	return lines
}

// Helper functions
func getStr(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getNum(m map[string]any, key string) float64 {
	if v, ok := m[key]; ok {
		if n, ok := v.(float64); ok {
			return n
		}
	}
	return 0
}
