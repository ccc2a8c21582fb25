package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Gemini is the subset of the Gemini API used by the agents
type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClient struct {
	client              *genai.Client
	generativeModel     string
	embeddingModel      string
	embeddingDimensions int32
	apiKey              string
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

func WithEmbeddingDimensions(dims int32) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingDimensions = dims
	}
}

// WithAPIKey switches from Vertex AI to the Gemini Developer API
func WithAPIKey(apiKey string) GeminiOption {
	return func(g *GeminiClient) {
		g.apiKey = apiKey
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	g := &GeminiClient{
		generativeModel:     "gemini-2.5-flash",
		embeddingModel:      "gemini-embedding-001",
		embeddingDimensions: 768,
	}

	for _, opt := range opts {
		opt(g)
	}

	cfg := &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	}
	if g.apiKey != "" {
		cfg = &genai.ClientConfig{
			APIKey:  g.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}
	g.client = client

	return g, nil
}

func (g *GeminiClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content")
	}
	return resp, nil
}

// Complete runs a single prompt and returns the concatenated text parts
func (g *GeminiClient) Complete(ctx context.Context, prompt string, temperature float64, maxTokens int32) (string, error) {
	temp := float32(temperature)
	thinkingBudget := int32(0)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: maxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  &thinkingBudget,
		},
	}

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", err
	}

	return ResponseText(resp), nil
}

// Embed returns the embedding vector of text
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	dims := g.embeddingDimensions
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.V("model", g.embeddingModel))
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, goerr.New("no embedding returned", goerr.V("model", g.embeddingModel))
	}

	return resp.Embeddings[0].Values, nil
}

// Name identifies the embedding function, e.g. "gemini-embedding-001/768"
func (g *GeminiClient) Name() string {
	return fmt.Sprintf("%s/%d", g.embeddingModel, g.embeddingDimensions)
}

// ResponseText joins the text parts of the first candidate. Thought parts are skipped.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "")
}
