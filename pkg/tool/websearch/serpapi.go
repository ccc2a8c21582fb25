package websearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
)

const serpAPIBaseURL = "https://serpapi.com/search.json"

type serpAPIResponse struct {
	Error     string `json:"error"`
	AnswerBox *struct {
		Title   string `json:"title"`
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"answer_box"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// SerpAPI searches Google through serpapi.com
type SerpAPI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type SerpAPIOption func(*SerpAPI)

// WithSerpAPIBaseURL overrides the endpoint
func WithSerpAPIBaseURL(u string) SerpAPIOption {
	return func(s *SerpAPI) {
		s.baseURL = u
	}
}

// WithSerpAPIHTTPClient sets the HTTP client
func WithSerpAPIHTTPClient(c *http.Client) SerpAPIOption {
	return func(s *SerpAPI) {
		s.httpClient = c
	}
}

func NewSerpAPI(apiKey string, opts ...SerpAPIOption) *SerpAPI {
	s := &SerpAPI{
		apiKey:     apiKey,
		baseURL:    serpAPIBaseURL,
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SerpAPI) Name() string { return "serpapi" }

// Search returns the answer box, if any, followed by organic results
func (s *SerpAPI) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, goerr.New("SerpAPI returned error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)))
	}

	var data serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, goerr.Wrap(err, "failed to decode response")
	}
	if data.Error != "" {
		return nil, goerr.New("SerpAPI search failed", goerr.V("error", data.Error))
	}

	var results []Result
	if ab := data.AnswerBox; ab != nil {
		snippet := ab.Answer
		if snippet == "" {
			snippet = ab.Snippet
		}
		if snippet != "" {
			results = append(results, Result{Title: ab.Title, URL: ab.Link, Snippet: snippet})
		}
	}

	for _, r := range data.OrganicResults {
		if len(results) >= limit {
			break
		}
		if r.Link == "" {
			continue
		}
		results = append(results, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}

	return results, nil
}
