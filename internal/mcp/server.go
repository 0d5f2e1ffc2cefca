// Package mcp provides the stdio MCP server exposing the POI dashboard to agents.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/go-ports/poimap/internal/buildinfo"
	"github.com/go-ports/poimap/internal/markdown"
	"github.com/go-ports/poimap/internal/models"
	"github.com/go-ports/poimap/internal/session"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

const optionsDescription = `List the choices for each dashboard control. Options cascade: states are drawn from the chosen category, cities from the chosen category and state. Call this before poi_select when you do not know the exact category, state or city spelling.`

const selectDescription = `Select POIs by category, then state, then city, and return the selection count, the first rows of the matching records, the map center and the dataset-wide distributions. Values not present among the current options are reset (category to the first option, state and city to "All") and reported in "reset".` //nolint:lll

const countsDescription = `Return dataset-wide POI counts grouped by category, state or city, in descending order. Counts ignore any selection.`

// NewServer creates an MCP server with the POI tools registered against sess.
func NewServer(sess *session.Session) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("poimap", buildinfo.Version)
	registerTools(s, sess)
	return s
}

// Serve runs the stdio MCP server over sess, blocking until stdin closes.
func Serve(_ context.Context, sess *session.Session) error {
	if err := mcpserver.ServeStdio(NewServer(sess)); err != nil {
		return fmt.Errorf("mcp.Serve: %w", err)
	}
	return nil
}

func selectionParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("category",
			mcp.Description("Main category. Defaults to the first category in sorted order."),
		),
		mcp.WithString("state",
			mcp.Description(`State code, or "All" (default).`),
		),
		mcp.WithString("city",
			mcp.Description(`City name, or "All" (default).`),
		),
	}
}

func registerTools(s *mcpserver.MCPServer, sess *session.Session) {
	opts := append([]mcp.ToolOption{mcp.WithDescription(optionsDescription)}, selectionParams()...)
	s.AddTool(mcp.NewTool("poi_options", opts...),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleOptions(sess, req)
		})

	opts = append([]mcp.ToolOption{mcp.WithDescription(selectDescription)}, selectionParams()...)
	opts = append(opts,
		mcp.WithNumber("rows",
			mcp.Description("Number of records to include (default 10). Clamped to the selection size."),
		),
		mcp.WithString("format",
			mcp.Description("json (default) or markdown."),
			mcp.Enum(formatJSON, formatMarkdown),
		),
	)
	s.AddTool(mcp.NewTool("poi_select", opts...),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSelect(sess, req)
		})

	s.AddTool(mcp.NewTool("poi_counts",
		mcp.WithDescription(countsDescription),
		mcp.WithString("attribute",
			mcp.Description("Attribute to group by."),
			mcp.Required(),
			mcp.Enum(string(models.AttrCategory), string(models.AttrState), string(models.AttrCity)),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max groups to return (default all)."),
		),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleCounts(sess, req)
	})
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func selectionFromRequest(req mcp.CallToolRequest) models.FilterSelection {
	return models.FilterSelection{
		Category: req.GetString("category", ""),
		State:    req.GetString("state", ""),
		City:     req.GetString("city", ""),
		Rows:     req.GetInt("rows", 0),
	}
}

func handleOptions(sess *session.Session, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v := sess.Select(selectionFromRequest(req))
	return jsonResult(map[string]any{
		"selection":  v.Selection,
		"reset":      attributeNames(v.Reset),
		"categories": v.Options.Categories,
		"states":     v.Options.States,
		"cities":     v.Options.Cities,
	})
}

func handleSelect(sess *session.Session, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", formatJSON)
	if format != formatJSON && format != formatMarkdown {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q", format)), nil
	}

	v := sess.Select(selectionFromRequest(req))
	if format == formatMarkdown {
		return mcp.NewToolResultText(markdown.RenderReport(v)), nil
	}
	return jsonResult(map[string]any{
		"selection":       v.Selection,
		"reset":           attributeNames(v.Reset),
		"count":           v.Count,
		"rows":            v.Table.Rows,
		"center":          v.Map.Center,
		"center_source":   v.Map.CenterSource,
		"category_counts": v.CategoryCounts,
		"state_counts":    v.StateCounts,
	})
}

func handleCounts(sess *session.Session, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("attribute", "")
	attr, ok := models.ParseAttribute(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown attribute %q", name)), nil
	}
	counts := sess.Counts(attr)
	return jsonResult(map[string]any{
		"attribute": attr,
		"total":     counts.Total(),
		"groups":    len(counts),
		"counts":    topN(counts, req.GetInt("limit", 0)),
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// topN returns the first limit entries of counts; a non-positive limit keeps all.
func topN(counts models.AggregateCount, limit int) models.AggregateCount {
	if counts == nil {
		return models.AggregateCount{}
	}
	if limit <= 0 || limit >= len(counts) {
		return counts
	}
	return counts[:limit]
}

func attributeNames(attrs []models.Attribute) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = string(a)
	}
	return out
}
