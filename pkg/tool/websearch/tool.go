package websearch

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/cultra/pkg/tool"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

//go:embed prompt/tool.md
var toolPrompt string

const (
	FunctionName = "web_search"

	BackendAuto       = "auto"
	BackendSerpAPI    = "serpapi"
	BackendDuckDuckGo = "duckduckgo"

	defaultMaxResults = 5
	maxResultsCap     = 20
)

// ErrUnknownBackend is returned for an unsupported --search-backend value
var ErrUnknownBackend = goerr.New("unknown search backend")

type searchInput struct {
	Query      string `json:"query" jsonschema:"Search keywords. Include the culture or country name when it matters."`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum number of results to return"`
}

var searchSchema = func() *genai.Schema {
	s, err := tool.SchemaFor[searchInput]()
	if err != nil {
		panic(err)
	}
	return s
}()

// Tool exposes a Backend as the web_search function
type Tool struct {
	backendName string
	serpAPIKey  string
	maxResults  int64
	backend     Backend
}

type Option func(*Tool)

// WithBackend fixes the backend and skips flag based selection
func WithBackend(b Backend) Option {
	return func(x *Tool) {
		x.backend = b
	}
}

// WithMaxResults sets the default number of results per search
func WithMaxResults(n int64) Option {
	return func(x *Tool) {
		x.maxResults = n
	}
}

// New creates a web_search tool. Without WithBackend the backend is chosen
// from flags by Configure.
func New(opts ...Option) *Tool {
	x := &Tool{
		backendName: BackendAuto,
		maxResults:  defaultMaxResults,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Flags returns CLI flags for this tool
func (x *Tool) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "search-backend",
			Sources:     cli.EnvVars("CULTRA_SEARCH_BACKEND"),
			Usage:       "Web search backend (auto, serpapi, duckduckgo). auto uses SerpAPI when an API key is set",
			Value:       BackendAuto,
			Destination: &x.backendName,
		},
		&cli.StringFlag{
			Name:        "serpapi-api-key",
			Sources:     cli.EnvVars("CULTRA_SERPAPI_API_KEY", "SERPAPI_API_KEY"),
			Usage:       "SerpAPI API key",
			Destination: &x.serpAPIKey,
		},
		&cli.IntFlag{
			Name:        "search-max-results",
			Sources:     cli.EnvVars("CULTRA_SEARCH_MAX_RESULTS"),
			Usage:       "Default number of web search results given to the agent",
			Value:       defaultMaxResults,
			Destination: &x.maxResults,
		},
	}
}

// Configure selects the backend from flag values. It is a no-op when a backend was given with WithBackend.
func (x *Tool) Configure() error {
	if x.backend != nil {
		return nil
	}

	switch x.backendName {
	case BackendAuto, "":
		if x.serpAPIKey != "" {
			x.backend = NewSerpAPI(x.serpAPIKey)
		} else {
			x.backend = NewDuckDuckGo()
		}
	case BackendSerpAPI:
		if x.serpAPIKey == "" {
			return goerr.New("SerpAPI backend requires --serpapi-api-key")
		}
		x.backend = NewSerpAPI(x.serpAPIKey)
	case BackendDuckDuckGo:
		x.backend = NewDuckDuckGo()
	default:
		return goerr.Wrap(ErrUnknownBackend, "invalid --search-backend", goerr.V("backend", x.backendName))
	}

	return nil
}

// BackendName returns the selected backend, or empty before Configure
func (x *Tool) BackendName() string {
	if x.backend == nil {
		return ""
	}
	return x.backend.Name()
}

// Prompt returns additional information to be added to the system prompt
func (x *Tool) Prompt(ctx context.Context) string {
	return toolPrompt
}

// Spec returns the tool specification for Gemini function calling
func (x *Tool) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        FunctionName,
				Description: "Search the web and return titles, URLs and snippets of matching pages",
				Parameters:  searchSchema,
			},
		},
	}
}

// Execute runs the tool with the given function call
func (x *Tool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	paramsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal function arguments")
	}

	var input searchInput
	if err := json.Unmarshal(paramsJSON, &input); err != nil {
		return nil, goerr.Wrap(err, "failed to parse input parameters")
	}

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, goerr.New("query is required")
	}

	if err := x.Configure(); err != nil {
		return nil, err
	}

	limit := int(x.maxResults)
	if input.MaxResults > 0 {
		limit = input.MaxResults
	}
	if limit <= 0 {
		limit = defaultMaxResults
	}
	if limit > maxResultsCap {
		limit = maxResultsCap
	}

	results, err := x.backend.Search(ctx, query, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "web search failed",
			goerr.V("backend", x.backend.Name()),
			goerr.V("query", query))
	}

	logging.From(ctx).Debug("web search done",
		"backend", x.backend.Name(),
		"query", query,
		"results", len(results))

	return &genai.FunctionResponse{
		Name: fc.Name,
		Response: map[string]any{
			"result": formatResults(query, results),
		},
	}, nil
}

func formatResults(query string, results []Result) string {
	if len(results) == 0 {
		return "No results found for: " + query
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Search results for: %s\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&sb, "## %d. %s\n", i+1, r.Title)
		fmt.Fprintf(&sb, "URL: %s\n", r.URL)
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "\n%s\n", r.Snippet)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
