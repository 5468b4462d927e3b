package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/breathemate/breathemate/internal/coach"
	"github.com/breathemate/breathemate/internal/journal"
	"github.com/breathemate/breathemate/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *storage.Store
	Journal *journal.Store
}

// NewMCPServer creates an MCP server with the journal and coaching tools
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"breathemate",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("BreatheMate — local breathing-health journal: symptom logging, breath analyses, and coaching."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("log_symptoms",
			mcp.WithDescription("Record a symptom observation in the health journal."),
			mcp.WithArray("symptoms", mcp.Description("Symptom tags, e.g. wheezing, coughing"), mcp.Required()),
			mcp.WithString("severity", mcp.Description("mild, moderate, or severe"), mcp.Required()),
			mcp.WithString("triggers", mcp.Description("Suspected triggers")),
			mcp.WithString("notes", mcp.Description("Free-form notes")),
		),
		mcpLogSymptoms(deps),
	)

	s.AddTool(
		mcp.NewTool("add_journal_note",
			mcp.WithDescription("Add a free-form note entry to the health journal."),
			mcp.WithString("notes", mcp.Description("The note text"), mcp.Required()),
			mcp.WithString("triggers", mcp.Description("Suspected triggers")),
		),
		mcpAddJournalNote(deps),
	)

	s.AddTool(
		mcp.NewTool("journal_stats",
			mcp.WithDescription("Summarize the journal: entry count, average risk, current streak, and high-risk count."),
		),
		mcpJournalStats(deps),
	)

	s.AddTool(
		mcp.NewTool("start_breath_analysis",
			mcp.WithDescription("Queue a breath analysis for a recorded breathing sample."),
			mcp.WithNumber("duration_seconds", mcp.Description("Length of the recording in seconds"), mcp.Required()),
		),
		mcpStartBreathAnalysis(deps),
	)

	s.AddTool(
		mcp.NewTool("breathing_exercise",
			mcp.WithDescription("Recommend a breathing exercise based on the recent journal and time of day."),
		),
		mcpBreathingExercise(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"journal://recent",
			"Recent Journal Entries",
			mcp.WithResourceDescription("Last 10 journal entries as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"journal://stats",
			"Journal Statistics",
			mcp.WithResourceDescription("Aggregate journal statistics as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

func mcpLogSymptoms(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		symptoms := req.GetStringSlice("symptoms", nil)
		if len(symptoms) == 0 {
			return mcpError("symptoms is required"), nil
		}
		severity, err := req.RequireString("severity")
		if err != nil {
			return mcpError("severity is required"), nil
		}

		entry := journal.NewSymptomEntry(
			nowUTC(),
			symptoms,
			journal.Severity(severity),
			req.GetString("triggers", ""),
			req.GetString("notes", ""),
		)
		if err := deps.Journal.Insert(entry); err != nil {
			return mcpError(fmt.Sprintf("failed to save entry: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Logged %d symptom(s) as entry %s (stage %s)", len(symptoms), entry.ID, *entry.Stage)), nil
	}
}

func mcpAddJournalNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		notes, err := req.RequireString("notes")
		if err != nil {
			return mcpError("notes is required"), nil
		}

		entry := journal.NewManualEntry(nowUTC(), req.GetString("triggers", ""), notes)
		if err := deps.Journal.Insert(entry); err != nil {
			return mcpError(fmt.Sprintf("failed to save entry: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Added journal note %s", entry.ID)), nil
	}
}

func mcpJournalStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats := journal.Compute(deps.Journal.All(), nowUTC())
		b, err := json.Marshal(stats)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal stats: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpStartBreathAnalysis(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		duration := req.GetFloat("duration_seconds", 0)
		if duration <= 0 {
			return mcpError("duration_seconds must be positive"), nil
		}

		a := storage.Analysis{
			ID:              newID(),
			Status:          storage.AnalysisPending,
			Source:          "mcp",
			DurationSeconds: duration,
		}
		if err := deps.Store.CreateAnalysis(a); err != nil {
			return mcpError(fmt.Sprintf("failed to queue analysis: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Queued breath analysis %s", a.ID)), nil
	}
}

func mcpBreathingExercise(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rec := coach.Recommend(nowUTC(), deps.Journal.All())
		b, err := json.Marshal(rec)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal recommendation: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		entries := deps.Journal.All()
		if len(entries) > 10 {
			entries = entries[:10]
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal entries: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats := journal.Compute(deps.Journal.All(), nowUTC())

		b, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
