// Package judge decides whether a locally synthesized answer is good enough to
// be returned, or whether the query has to be escalated to web search.
//
// The gate is three fixed checks evaluated in order, and the first failing
// check determines the reason. Reordering or merging them changes the reported
// fallback reasons.
package judge

import (
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/cultra/pkg/model"
)

const (
	// MinLength is the minimum trimmed answer length in characters
	MinLength = 50

	uncertainPhrase = "i don't know"
)

// Judge classifies an answer text as adequate or not
func Judge(answerText string) model.Verdict {
	trimmed := strings.TrimSpace(answerText)

	if trimmed == "" {
		return model.Verdict{Reason: model.ReasonEmpty}
	}

	if strings.Contains(strings.ToLower(answerText), uncertainPhrase) {
		return model.Verdict{Reason: model.ReasonUncertainPhrasing}
	}

	if n := utf8.RuneCountInString(trimmed); n < MinLength {
		return model.Verdict{Reason: model.ReasonTooShort, Length: n}
	}

	return model.Verdict{Adequate: true}
}
