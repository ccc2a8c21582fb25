// Package websearch provides the web_search tool the fallback agent uses to
// look up cultural interpretations on the open web.
package websearch

import (
	"context"
	"net/http"
	"time"
)

// Result is one search hit
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Backend runs a web search
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Name() string
}

const defaultTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultTimeout,
	}
}
