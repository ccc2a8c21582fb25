package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrSourceUnavailable means the knowledge document could not be read or parsed
	ErrSourceUnavailable = goerr.New("source document unavailable")

	// ErrEmptyCorpus means splitting the source yielded no chunks
	ErrEmptyCorpus = goerr.New("chunk store is empty")

	// ErrEmbeddingMismatch means a persisted index was built with another embedding model
	ErrEmbeddingMismatch = goerr.New("embedding model mismatch")

	// ErrEmptyQuery means the raw query is empty or whitespace only
	ErrEmptyQuery = goerr.New("query is empty")

	// ErrInvalidTone means tone is outside [0, 1]
	ErrInvalidTone = goerr.New("tone must be between 0 and 1")

	// ErrUnrecoverable marks a failure that must be surfaced to the caller instead of a response
	ErrUnrecoverable = goerr.New("unrecoverable failure")
)
