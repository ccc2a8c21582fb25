// Package mcp exposes the interpreter as an MCP tool server.
package mcp

import (
	"context"
	"strings"

	"github.com/m-mizutani/cultra/pkg/metrics"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ToolName = "interpret_phrase"

// Interpreter answers one query
type Interpreter interface {
	HandleQuery(ctx context.Context, rawText, culture string, tone float64) (*model.FinalResponse, error)
}

type interpretParams struct {
	Query   string   `json:"query" jsonschema:"The phrase, idiom, joke, or gesture to interpret"`
	Culture string   `json:"culture,omitempty" jsonschema:"Target culture such as Japan or Brazil. Empty or All means no filter"`
	Tone    *float64 `json:"tone,omitempty" jsonschema:"Answer tone from 0 (casual) to 1 (formal). Default 0.3"`
}

type interpretResult struct {
	Insight        string `json:"insight"`
	Source         string `json:"source"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	RequestID      string `json:"request_id"`
}

// NewServer creates an MCP server with the interpret_phrase tool
func NewServer(interpreter Interpreter, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cultra",
		Version: version,
	}, nil)

	h := &handler{interpreter: interpreter}
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: "Explain how a phrase, idiom, joke, or gesture is interpreted in a culture. Uses a curated knowledge base first and web search when it has no good answer.",
	}, h.interpret)

	return server
}

// Serve runs the server over stdio until the client disconnects or ctx is done
func Serve(ctx context.Context, interpreter Interpreter, version string) error {
	if err := NewServer(interpreter, version).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

type handler struct {
	interpreter Interpreter
}

func (h *handler) interpret(ctx context.Context, req *mcp.CallToolRequest, params *interpretParams) (*mcp.CallToolResult, *interpretResult, error) {
	tone := model.DefaultTone
	if params.Tone != nil {
		tone = *params.Tone
	}

	resp, err := h.interpreter.HandleQuery(ctx, params.Query, strings.TrimSpace(params.Culture), tone)
	metrics.Default().IncToolTotal(ToolName, err == nil)
	if err != nil {
		logging.From(ctx).Error("interpret_phrase failed", "error", err)
		return nil, nil, err
	}

	result := &interpretResult{
		Insight:        resp.Text,
		Source:         resp.Provenance.Label(),
		FallbackReason: resp.FallbackDetail,
		RequestID:      resp.RequestID,
	}

	text := resp.Text + "\n\nSource: " + result.Source
	if result.FallbackReason != "" {
		text += "\nFallback reason: " + result.FallbackReason
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, result, nil
}
