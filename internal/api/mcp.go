package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/scribe/internal/pipeline"
	"github.com/kalambet/scribe/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Processor *pipeline.Processor
	Store     *storage.Store
}

// NewMCPServer creates an MCP server with all scribe tools and resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"scribe",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("scribe — routes chat utterances into calendar events or personal memories and recalls them on demand."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("analyze_input",
			mcp.WithDescription("Analyze an utterance: route it to calendar or memory, extract events, and persist what is worth keeping."),
			mcp.WithString("text", mcp.Description("The utterance to analyze"), mcp.Required()),
		),
		mcpAnalyzeInput(deps),
	)

	s.AddTool(
		mcp.NewTool("reconcile_reply",
			mcp.WithDescription("Repair an assistant reply so its calendar directives match what the utterance actually contains."),
			mcp.WithString("reply", mcp.Description("The assistant reply to repair"), mcp.Required()),
			mcp.WithString("utterance", mcp.Description("The user utterance the reply responds to"), mcp.Required()),
		),
		mcpReconcileReply(deps),
	)

	s.AddTool(
		mcp.NewTool("recall_memories",
			mcp.WithDescription("List stored memories, optionally filtered by category."),
			mcp.WithString("category", mcp.Description("Category to filter by (e.g. Family)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpRecallMemories(deps),
	)

	s.AddTool(
		mcp.NewTool("upcoming_events",
			mcp.WithDescription("List upcoming calendar events, soonest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpUpcomingEvents(deps),
	)

	s.AddTool(
		mcp.NewTool("forget_memory",
			mcp.WithDescription("Deactivate a stored memory by its identifier."),
			mcp.WithString("id", mcp.Description("Memory identifier"), mcp.Required()),
		),
		mcpForgetMemory(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"memory://categories",
			"Memory Categories",
			mcp.WithResourceDescription("Active memory categories with record counts"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCategories(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"calendar://upcoming",
			"Upcoming Events",
			mcp.WithResourceDescription("Next 10 upcoming calendar events"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceUpcoming(deps),
	)

	return s
}

func mcpAnalyzeInput(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		res, err := deps.Processor.Analyze(ctx, text)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		out := AnalyzeResponse{
			Destination: string(res.Decision.Destination),
			Confidence:  res.Decision.Confidence,
			Reasoning:   res.Decision.Reasoning,
			Events:      []EventResponse{},
			DuplicateOf: res.Meta.DuplicateOf,
			Assisted:    res.Meta.AssistedUsed,
			DurationMs:  res.Meta.DurationMs,
		}
		for _, e := range res.Events {
			out.Events = append(out.Events, eventResponse(e))
		}
		if res.Memory != nil {
			m := memoryResponse(*res.Memory)
			out.Memory = &m
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpReconcileReply(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reply, err := req.RequireString("reply")
		if err != nil {
			return mcpError("reply is required"), nil
		}
		utterance, err := req.RequireString("utterance")
		if err != nil {
			return mcpError("utterance is required"), nil
		}

		return mcpText(deps.Processor.Reconcile(reply, utterance)), nil
	}
}

func mcpRecallMemories(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		category := req.GetString("category", "")

		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 200 {
			limit = 200
		}

		memories, err := deps.Store.ListMemories(category, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("recall failed: %v", err)), nil
		}

		if len(memories) == 0 {
			return mcpText("[]"), nil
		}

		results := make([]MemoryResponse, len(memories))
		for i, m := range memories {
			results[i] = memoryResponse(m)
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpUpcomingEvents(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 200 {
			limit = 200
		}

		today := time.Now().UTC().Truncate(24 * time.Hour)
		events, err := deps.Store.ListUpcomingEvents(today, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list events: %v", err)), nil
		}

		if len(events) == 0 {
			return mcpText("[]"), nil
		}

		results := make([]EventResponse, len(events))
		for i, e := range events {
			results[i] = eventResponse(e)
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpForgetMemory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		if err := deps.Store.DeleteMemory(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return mcpError(fmt.Sprintf("memory %s not found", id)), nil
			}
			return mcpError(fmt.Sprintf("failed to forget memory: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Forgot memory %s", id)), nil
	}
}

func mcpResourceCategories(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		cats, err := deps.Store.Categories()
		if err != nil {
			return nil, fmt.Errorf("failed to list categories: %w", err)
		}

		out := make([]CategoryResponse, len(cats))
		for i, c := range cats {
			out[i] = CategoryResponse{Category: c.Category, Count: c.Count}
		}

		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal categories: %w", err)
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

func mcpResourceUpcoming(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		events, err := deps.Store.ListUpcomingEvents(today, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}

		out := make([]EventResponse, len(events))
		for i, e := range events {
			out[i] = eventResponse(e)
		}

		b, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal events: %w", err)
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
