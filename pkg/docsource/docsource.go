// Package docsource reads the knowledge document from a local file or Cloud Storage.
package docsource

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/m-mizutani/cultra/pkg/adapter"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// maxSourceSize bounds how much of an object is read into memory
const maxSourceSize = 64 << 20

type Loader struct {
	storage adapter.Storage
}

type Option func(*Loader)

// WithStorage enables gs://bucket/object sources
func WithStorage(storage adapter.Storage) Option {
	return func(l *Loader) {
		l.storage = storage
	}
}

func New(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads and parses the document at uri. Supported formats are .docx, .txt and .md.
// Every failure is wrapped with model.ErrSourceUnavailable.
func (l *Loader) Load(ctx context.Context, uri string) (*model.Document, error) {
	data, err := l.read(ctx, uri)
	if err != nil {
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to read source",
			goerr.V("uri", uri),
			goerr.V("cause", err.Error()))
	}

	var paragraphs []string
	switch strings.ToLower(path.Ext(uri)) {
	case ".docx":
		paragraphs, err = ParseDocx(data)
		if err != nil {
			return nil, goerr.Wrap(model.ErrSourceUnavailable, "failed to parse docx",
				goerr.V("uri", uri),
				goerr.V("cause", err.Error()))
		}
	case ".txt", ".md", ".markdown":
		paragraphs = ParseText(string(data))
	default:
		return nil, goerr.Wrap(model.ErrSourceUnavailable, "unsupported source format", goerr.V("uri", uri))
	}

	return &model.Document{
		Name:       path.Base(uri),
		Paragraphs: paragraphs,
	}, nil
}

func (l *Loader) read(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, ok := parseGCSURI(uri)
	if !ok {
		data, err := os.ReadFile(uri)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read file", goerr.V("path", uri))
		}
		return data, nil
	}

	if l.storage == nil {
		return nil, goerr.New("cloud storage is not configured", goerr.V("uri", uri))
	}

	r, err := l.storage.Get(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = r.Close()
	}()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxSourceSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download object",
			goerr.V("bucket", bucket),
			goerr.V("object", object))
	}
	if n > maxSourceSize {
		return nil, goerr.New("source object too large",
			goerr.V("bucket", bucket),
			goerr.V("object", object),
			goerr.V("limit", maxSourceSize))
	}

	return buf.Bytes(), nil
}

// parseGCSURI splits gs://bucket/object
func parseGCSURI(uri string) (bucket, object string, ok bool) {
	rest, found := strings.CutPrefix(uri, "gs://")
	if !found {
		return "", "", false
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", false
	}
	return bucket, object, true
}

// ParseText splits plain text into paragraphs at blank lines
func ParseText(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if p := strings.TrimSpace(strings.Join(current, "\n")); p != "" {
			paragraphs = append(paragraphs, p)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return paragraphs
}
