package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/cultra/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestNewQuery(t *testing.T) {
	t.Run("trims raw text", func(t *testing.T) {
		q, err := model.NewQuery("  bowing  ", "Japan", 0.3)
		gt.NoError(t, err)
		gt.Equal(t, q.RawText, "bowing")
		gt.Equal(t, q.CultureFilter, "Japan")
		gt.True(t, q.HasCulture())
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := model.NewQuery(" \t\n", "Japan", 0.3)
		gt.True(t, errors.Is(err, model.ErrEmptyQuery))
	})

	t.Run("tone out of range", func(t *testing.T) {
		_, err := model.NewQuery("bowing", "", 1.5)
		gt.True(t, errors.Is(err, model.ErrInvalidTone))

		_, err = model.NewQuery("bowing", "", -0.1)
		gt.True(t, errors.Is(err, model.ErrInvalidTone))
	})

	t.Run("tone bounds are accepted", func(t *testing.T) {
		_, err := model.NewQuery("bowing", "", 0)
		gt.NoError(t, err)
		_, err = model.NewQuery("bowing", "", 1)
		gt.NoError(t, err)
	})
}

func TestQueryEffective(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		culture  string
		expected string
	}{
		{"with culture", "thumbs up", "Brazil", "thumbs up in Brazil"},
		{"no culture", "a niche idiom", "", "a niche idiom"},
		// "All" is a no-filter sentinel, not a literal culture name
		{"All is not appended", "ok gesture", "All", "ok gesture"},
		{"blank culture", "ok gesture", "   ", "ok gesture"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := model.NewQuery(tc.raw, tc.culture, model.DefaultTone)
			gt.NoError(t, err)
			gt.Equal(t, q.Effective(), tc.expected)
		})
	}
}

func TestVerdictDetail(t *testing.T) {
	gt.Equal(t, model.Verdict{Reason: model.ReasonEmpty}.Detail(), "Local DB returned nothing.")
	gt.Equal(t, model.Verdict{Reason: model.ReasonUncertainPhrasing}.Detail(), "LLM responded with 'I don't know'.")
	gt.Equal(t, model.Verdict{Reason: model.ReasonTooShort, Length: 12}.Detail(), "Local answer too short: 12 characters.")
	gt.Equal(t, model.Verdict{Adequate: true}.Detail(), "")
}

func TestDocumentText(t *testing.T) {
	doc := &model.Document{Paragraphs: []string{"first", "second"}}
	gt.Equal(t, doc.Text(), "first\n\nsecond")
}
