package mcp_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/service/mcp"
	"github.com/m-mizutani/gt"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type mockInterpreter struct {
	rawText string
	culture string
	tone    float64
}

func (m *mockInterpreter) HandleQuery(ctx context.Context, rawText, culture string, tone float64) (*model.FinalResponse, error) {
	m.rawText, m.culture, m.tone = rawText, culture, tone
	if rawText == "" {
		return nil, model.ErrEmptyQuery
	}
	return &model.FinalResponse{
		RequestID:      "req-1",
		Text:           "A thumbs up is rude in parts of the Middle East.",
		Provenance:     model.ProvenanceWebSearch,
		FallbackReason: model.ReasonEmpty,
		FallbackDetail: "Local DB returned nothing.",
	}, nil
}

func connect(t *testing.T, interpreter mcp.Interpreter) *mcpsdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := mcp.NewServer(interpreter, "test")
	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	return cs
}

func TestInterpretPhrase(t *testing.T) {
	ctx := context.Background()
	interpreter := &mockInterpreter{}
	cs := connect(t, interpreter)

	tools, err := cs.ListTools(ctx, nil)
	gt.NoError(t, err)
	gt.A(t, tools.Tools).Length(1)
	gt.Equal(t, tools.Tools[0].Name, "interpret_phrase")

	result, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "interpret_phrase",
		Arguments: map[string]any{"query": "thumbs up", "culture": "Iran"},
	})
	gt.NoError(t, err)
	gt.False(t, result.IsError)
	gt.A(t, result.Content).Length(1)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	gt.True(t, ok)
	gt.S(t, text.Text).Contains("rude in parts of the Middle East")
	gt.S(t, text.Text).Contains("Source: Web Search")
	gt.S(t, text.Text).Contains("Fallback reason: Local DB returned nothing.")

	gt.Equal(t, interpreter.rawText, "thumbs up")
	gt.Equal(t, interpreter.culture, "Iran")
	gt.Equal(t, interpreter.tone, model.DefaultTone)
}

func TestInterpretPhraseTone(t *testing.T) {
	interpreter := &mockInterpreter{}
	cs := connect(t, interpreter)

	_, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "interpret_phrase",
		Arguments: map[string]any{"query": "break a leg", "tone": 0.9},
	})
	gt.NoError(t, err)
	gt.Equal(t, interpreter.tone, 0.9)
	gt.Equal(t, interpreter.culture, "")
}

func TestInterpretPhraseError(t *testing.T) {
	cs := connect(t, &mockInterpreter{})

	result, err := cs.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      "interpret_phrase",
		Arguments: map[string]any{"query": ""},
	})
	gt.NoError(t, err)
	gt.True(t, result.IsError)
}
