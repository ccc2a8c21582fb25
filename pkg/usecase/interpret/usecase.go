// Package interpret answers cultural interpretation queries, preferring the
// local knowledge base and falling back to web research when the local
// answer is judged inadequate.
package interpret

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/m-mizutani/cultra/pkg/adapter"
	"github.com/m-mizutani/cultra/pkg/chunkstore"
	"github.com/m-mizutani/cultra/pkg/interfaces"
	"github.com/m-mizutani/cultra/pkg/judge"
	"github.com/m-mizutani/cultra/pkg/metrics"
	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Resolver answers a query from outside the local knowledge base
type Resolver interface {
	Resolve(ctx context.Context, rawQuery, culture string) (string, error)
}

// UseCase runs the query pipeline. It is safe for concurrent use as long as
// its dependencies are.
type UseCase struct {
	retriever *Retriever
	answerer  *LocalAnswerer
	fallback  Resolver
	newID     func() string
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithRequestID replaces the request ID generator
func WithRequestID(f func() string) Option {
	return func(uc *UseCase) {
		uc.newID = f
	}
}

// New creates the pipeline over a built chunk store. A nil cfg means DefaultConfig.
func New(store *chunkstore.Store, completer interfaces.Completer, fallback Resolver, cfg *Config, opts ...Option) *UseCase {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	uc := &UseCase{
		retriever: NewRetriever(store, cfg.TopK),
		answerer:  NewLocalAnswerer(completer, cfg.MaxOutputTokens),
		fallback:  fallback,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// HandleQuery answers one query. The returned error is either
// model.ErrEmptyQuery, model.ErrInvalidTone or model.ErrUnrecoverable;
// degraded answers are returned as responses.
func (u *UseCase) HandleQuery(ctx context.Context, rawText, culture string, tone float64) (*model.FinalResponse, error) {
	q, err := model.NewQuery(rawText, culture, tone)
	if err != nil {
		return nil, err
	}

	reqID := u.newID()
	ctx, logger := logging.WithAttrs(ctx, "request_id", reqID)
	m := newMachine(logger)

	effective := q.Effective()
	logger.Debug("query accepted", "effective_query", effective, "tone", q.Tone)

	local, err := u.attemptLocal(ctx, effective, q.Tone)
	if err != nil {
		return nil, err
	}
	if err := m.to(stateLocalAttempted); err != nil {
		return nil, err
	}

	verdict := judge.Judge(local)
	if verdict.Adequate {
		if err := m.to(stateDoneLocal); err != nil {
			return nil, err
		}
		metrics.Default().IncQueryTotal(string(model.ProvenanceLocalKB), "")

		return &model.FinalResponse{
			RequestID:  reqID,
			Text:       local,
			Provenance: model.ProvenanceLocalKB,
		}, nil
	}

	logger.Info("falling back to web search", "reason", verdict.Reason, "detail", verdict.Detail())
	if err := m.to(stateFallbackAttempted); err != nil {
		return nil, err
	}

	done := metrics.TimeStage(metrics.StageFallback)
	text, err := u.fallback.Resolve(ctx, q.RawText, q.CultureFilter)
	done(err == nil)
	if err != nil {
		if !errors.Is(err, model.ErrUnrecoverable) {
			err = goerr.Wrap(model.ErrUnrecoverable, "fallback failed", goerr.V("cause", err.Error()))
		}
		return nil, goerr.Wrap(err, "fallback aborted", goerr.V("request_id", reqID))
	}

	if err := m.to(stateDone); err != nil {
		return nil, err
	}
	metrics.Default().IncQueryTotal(string(model.ProvenanceWebSearch), string(verdict.Reason))

	return &model.FinalResponse{
		RequestID:      reqID,
		Text:           text,
		Provenance:     model.ProvenanceWebSearch,
		FallbackReason: verdict.Reason,
		FallbackDetail: verdict.Detail(),
	}, nil
}

// attemptLocal retrieves context and asks the local answerer. Recoverable
// retrieval failures leave the context empty.
func (u *UseCase) attemptLocal(ctx context.Context, effective string, tone float64) (string, error) {
	logger := logging.From(ctx)

	done := metrics.TimeStage(metrics.StageRetrieve)
	chunks, err := u.retriever.Retrieve(ctx, effective)
	done(err == nil)
	if err != nil {
		if adapter.IsUnrecoverable(ctx, err) {
			return "", goerr.Wrap(model.ErrUnrecoverable, "retrieval failed",
				goerr.V("cause", err.Error()))
		}
		logger.Warn("retrieval failed, continuing without context", "error", err)
		chunks = nil
	}
	logger.Debug("retrieved chunks", "count", len(chunks))

	done = metrics.TimeStage(metrics.StageAnswer)
	text, err := u.answerer.Answer(ctx, effective, chunks, tone)
	done(err == nil)
	if err != nil {
		return "", err
	}

	return text, nil
}
