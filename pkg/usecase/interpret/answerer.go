package interpret

import (
	"bytes"
	"context"
	_ "embed"
	"text/template"

	"github.com/m-mizutani/cultra/pkg/adapter"
	"github.com/m-mizutani/cultra/pkg/interfaces"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/local.md
var localPromptRaw string

var localPromptTmpl = template.Must(template.New("local").Parse(localPromptRaw))

// LocalAnswerer answers a query from retrieved chunks only
type LocalAnswerer struct {
	completer interfaces.Completer
	maxTokens int32
}

func NewLocalAnswerer(completer interfaces.Completer, maxTokens int32) *LocalAnswerer {
	return &LocalAnswerer{completer: completer, maxTokens: maxTokens}
}

// Answer returns the model answer grounded on chunks. With no chunks it
// returns "" without calling the model. A failed completion also yields ""
// unless the failure is unrecoverable.
func (a *LocalAnswerer) Answer(ctx context.Context, query string, chunks []*model.Chunk, tone float64) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	prompt, err := buildLocalPrompt(query, chunks)
	if err != nil {
		return "", err
	}

	text, err := a.completer.Complete(ctx, prompt, tone, a.maxTokens)
	if err != nil {
		if adapter.IsUnrecoverable(ctx, err) {
			return "", goerr.Wrap(model.ErrUnrecoverable, "local completion failed",
				goerr.V("cause", err.Error()))
		}
		logging.From(ctx).Warn("local completion failed", "error", err)
		return "", nil
	}

	return text, nil
}

func buildLocalPrompt(query string, chunks []*model.Chunk) (string, error) {
	var buf bytes.Buffer
	if err := localPromptTmpl.Execute(&buf, struct {
		Query  string
		Chunks []*model.Chunk
	}{
		Query:  query,
		Chunks: chunks,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to render local prompt")
	}
	return buf.String(), nil
}
