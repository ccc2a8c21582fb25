// Package fallback implements the web research agent used when the local
// knowledge base cannot answer a query.
package fallback

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/cultra/pkg/adapter"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/tool"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

//go:embed prompt/system.md
var systemPromptRaw string

var systemPromptTmpl = template.Must(template.New("system").Parse(systemPromptRaw))

const (
	DefaultMaxIterations = 8

	// unspecifiedCulture fills the task when no culture filter is set
	unspecifiedCulture = "unspecified"

	// Apology is returned when research fails or runs out of iterations
	Apology = "Sorry, I could not find a reliable explanation of how this is interpreted. Please try rephrasing the question."
)

// Agent runs a Gemini function calling loop with the web_search tool
type Agent struct {
	gemini        adapter.Gemini
	registry      *tool.Registry
	maxIterations int
}

// Option is a functional option for Agent
type Option func(*Agent)

// WithMaxIterations bounds the number of model turns per Resolve
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		a.maxIterations = n
	}
}

// New creates an agent whose only tool is search
func New(gemini adapter.Gemini, search tool.Tool, opts ...Option) *Agent {
	a := &Agent{
		gemini:        gemini,
		registry:      tool.New(search),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxIterations <= 0 {
		a.maxIterations = DefaultMaxIterations
	}
	return a
}

// Task builds the instruction given to the agent
func Task(rawQuery, culture string) string {
	if culture == "" {
		culture = unspecifiedCulture
	}
	return "How is this interpreted in " + culture + ": " + rawQuery
}

// Resolve researches rawQuery on the web and returns an answer. Failures of
// the model or the tool are absorbed into an apologetic answer; only
// unrecoverable failures are returned as errors.
func (a *Agent) Resolve(ctx context.Context, rawQuery, culture string) (string, error) {
	logger := logging.From(ctx)

	systemPrompt, err := a.buildSystemPrompt(ctx, culture)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromText(Task(rawQuery, culture), genai.RoleUser),
	}

	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, ""),
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
		Tools: a.registry.Specs(),
	}

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.gemini.GenerateContent(ctx, contents, config)
		if err != nil {
			if adapter.IsUnrecoverable(ctx, err) {
				return "", goerr.Wrap(model.ErrUnrecoverable, "fallback generation failed",
					goerr.V("cause", err.Error()))
			}
			logger.Warn("fallback generation failed", "error", err, "iteration", i)
			return Apology, nil
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			logger.Warn("empty response from Gemini", "iteration", i)
			return Apology, nil
		}

		candidate := resp.Candidates[0]
		contents = append(contents, candidate.Content)

		var functionResponses []*genai.Part
		for _, part := range candidate.Content.Parts {
			if part.FunctionCall == nil {
				continue
			}

			funcResp, err := a.execute(ctx, *part.FunctionCall)
			if err != nil {
				return "", err
			}
			functionResponses = append(functionResponses, &genai.Part{FunctionResponse: funcResp})
		}

		if len(functionResponses) == 0 {
			answer := strings.TrimSpace(adapter.ResponseText(resp))
			if answer == "" {
				logger.Warn("fallback agent returned no text", "iteration", i)
				return Apology, nil
			}
			logger.Debug("fallback agent answered", "iterations", i+1)
			return answer, nil
		}

		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: functionResponses,
		})
	}

	logger.Warn("fallback agent exhausted iterations", "max_iterations", a.maxIterations)
	return Apology, nil
}

// execute runs a function call. Tool failures go back to the model as an error response.
func (a *Agent) execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	resp, err := a.registry.Execute(ctx, fc)
	if err == nil {
		return resp, nil
	}

	if adapter.IsUnrecoverable(ctx, err) {
		return nil, goerr.Wrap(model.ErrUnrecoverable, "tool execution aborted",
			goerr.V("tool", fc.Name),
			goerr.V("cause", err.Error()))
	}

	logging.From(ctx).Warn("tool execution failed", "tool", fc.Name, "error", err)
	return &genai.FunctionResponse{
		ID:       fc.ID,
		Name:     fc.Name,
		Response: map[string]any{"error": err.Error()},
	}, nil
}

func (a *Agent) buildSystemPrompt(ctx context.Context, culture string) (string, error) {
	if culture == "" {
		culture = "the culture the question is about"
	}

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, struct {
		ToolPrompts string
		Culture     string
	}{
		ToolPrompts: a.registry.Prompts(ctx),
		Culture:     culture,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render system prompt")
	}
	return buf.String(), nil
}
