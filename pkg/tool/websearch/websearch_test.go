package websearch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/m-mizutani/cultra/pkg/tool/websearch"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

const duckDuckGoHTML = `<!DOCTYPE html>
<html><body>
<div id="links">
  <div class="result results_links results_links_deep web-result">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fthumbs-up&amp;rut=abc">Thumbs up   gesture <b>meaning</b></a>
    </h2>
    <a class="result__snippet" href="#">In parts of the Middle East the thumbs up is considered rude.</a>
  </div>
  <div class="result results_links results_links_deep web-result">
    <a class="result__a" href="https://example.org/gestures">Gestures around the world</a>
  </div>
  <div class="result results_links web-result">
    <a class="result__snippet" href="#">Result without a title link is skipped</a>
  </div>
  <div class="result results_links web-result">
    <a class="result__a" href="https://example.net/third">Third</a>
  </div>
</div>
</body></html>`

func TestDuckDuckGo(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(duckDuckGoHTML))
	}))
	defer srv.Close()

	ddg := websearch.NewDuckDuckGo(websearch.WithDuckDuckGoBaseURL(srv.URL))
	gt.Equal(t, ddg.Name(), "duckduckgo")

	results, err := ddg.Search(context.Background(), "thumbs up in Iran", 2)
	gt.NoError(t, err)
	gt.Equal(t, gotQuery, "thumbs up in Iran")
	gt.A(t, results).Length(2)

	gt.Equal(t, results[0].Title, "Thumbs up gesture meaning")
	gt.Equal(t, results[0].URL, "https://example.com/thumbs-up")
	gt.Equal(t, results[0].Snippet, "In parts of the Middle East the thumbs up is considered rude.")
	gt.Equal(t, results[1].URL, "https://example.org/gestures")
	gt.Equal(t, results[1].Snippet, "")

	all, err := ddg.Search(context.Background(), "gestures", 10)
	gt.NoError(t, err)
	gt.A(t, all).Length(3)
}

func TestDuckDuckGoHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := websearch.NewDuckDuckGo(websearch.WithDuckDuckGoBaseURL(srv.URL)).Search(context.Background(), "q", 5)
	gt.Error(t, err)
}

func TestSerpAPI(t *testing.T) {
	var engine, num string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid API key."}`))
			return
		}
		engine, num = q.Get("engine"), q.Get("num")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"answer_box": {"title": "Break a leg", "snippet": "An idiom used to wish performers good luck.", "link": "https://example.com/idiom"},
			"organic_results": [
				{"title": "Break a leg - meaning", "link": "https://example.com/a", "snippet": "Said before a show."},
				{"title": "No link", "snippet": "skipped"},
				{"title": "Theatre superstitions", "link": "https://example.com/b", "snippet": "Saying good luck is bad luck."},
				{"title": "Over the limit", "link": "https://example.com/c"}
			]
		}`))
	}))
	defer srv.Close()

	ctx := context.Background()

	s := websearch.NewSerpAPI("test-key", websearch.WithSerpAPIBaseURL(srv.URL))
	results, err := s.Search(ctx, "break a leg in Germany", 3)
	gt.NoError(t, err)
	gt.Equal(t, engine, "google")
	gt.Equal(t, num, "3")
	gt.A(t, results).Length(3)
	gt.Equal(t, results[0].Snippet, "An idiom used to wish performers good luck.")
	gt.Equal(t, results[1].URL, "https://example.com/a")
	gt.Equal(t, results[2].URL, "https://example.com/b")

	_, err = websearch.NewSerpAPI("wrong", websearch.WithSerpAPIBaseURL(srv.URL)).Search(ctx, "q", 3)
	gt.Error(t, err)
}

func TestSerpAPIErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Your account has run out of searches."}`))
	}))
	defer srv.Close()

	_, err := websearch.NewSerpAPI("k", websearch.WithSerpAPIBaseURL(srv.URL)).Search(context.Background(), "q", 3)
	gt.Error(t, err)
}

func TestSerpAPILive(t *testing.T) {
	apiKey, ok := os.LookupEnv("TEST_SERPAPI_API_KEY")
	if !ok {
		t.Skip("TEST_SERPAPI_API_KEY is not set")
	}

	results, err := websearch.NewSerpAPI(apiKey).Search(context.Background(), "meaning of thumbs up gesture in Iran", 3)
	gt.NoError(t, err)
	gt.True(t, len(results) > 0)
}

type mockBackend struct {
	searchFunc func(ctx context.Context, query string, limit int) ([]websearch.Result, error)
}

func (m *mockBackend) Search(ctx context.Context, query string, limit int) ([]websearch.Result, error) {
	return m.searchFunc(ctx, query, limit)
}

func (m *mockBackend) Name() string { return "mock" }

func TestToolSpec(t *testing.T) {
	spec := websearch.New().Spec()
	gt.A(t, spec.FunctionDeclarations).Length(1)

	fd := spec.FunctionDeclarations[0]
	gt.Equal(t, fd.Name, "web_search")
	gt.Equal(t, fd.Parameters.Type, genai.TypeObject)
	gt.Map(t, fd.Parameters.Properties).HasKey("query")
	gt.Equal(t, fd.Parameters.Required, []string{"query"})
}

func TestToolExecute(t *testing.T) {
	ctx := context.Background()
	var gotLimit int
	backend := &mockBackend{
		searchFunc: func(ctx context.Context, query string, limit int) ([]websearch.Result, error) {
			gotLimit = limit
			if query == "nothing" {
				return nil, nil
			}
			return []websearch.Result{
				{Title: "Bowing in Japan", URL: "https://example.com/bow", Snippet: "Bowing expresses respect."},
			}, nil
		},
	}
	x := websearch.New(websearch.WithBackend(backend), websearch.WithMaxResults(4))

	resp, err := x.Execute(ctx, genai.FunctionCall{
		Name: "web_search",
		Args: map[string]any{"query": "bowing Japan"},
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Name, "web_search")
	gt.Equal(t, gotLimit, 4)

	text, ok := resp.Response["result"].(string)
	gt.True(t, ok)
	gt.S(t, text).Contains("Bowing in Japan")
	gt.S(t, text).Contains("https://example.com/bow")

	resp, err = x.Execute(ctx, genai.FunctionCall{
		Name: "web_search",
		Args: map[string]any{"query": "nothing", "max_results": 100},
	})
	gt.NoError(t, err)
	gt.Equal(t, gotLimit, 20)
	gt.S(t, resp.Response["result"].(string)).Contains("No results found")

	_, err = x.Execute(ctx, genai.FunctionCall{Name: "web_search", Args: map[string]any{"query": "  "}})
	gt.Error(t, err)
}

func TestToolExecuteBackendError(t *testing.T) {
	backend := &mockBackend{
		searchFunc: func(ctx context.Context, query string, limit int) ([]websearch.Result, error) {
			return nil, errors.New("connection reset")
		},
	}
	_, err := websearch.New(websearch.WithBackend(backend)).Execute(context.Background(), genai.FunctionCall{
		Name: "web_search",
		Args: map[string]any{"query": "q"},
	})
	gt.Error(t, err)
}

func TestToolConfigure(t *testing.T) {
	x := websearch.New()
	gt.NoError(t, x.Configure())
	gt.Equal(t, x.BackendName(), "duckduckgo")

	fixed := websearch.New(websearch.WithBackend(&mockBackend{}))
	gt.NoError(t, fixed.Configure())
	gt.Equal(t, fixed.BackendName(), "mock")
}
