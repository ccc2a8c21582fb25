package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/m-mizutani/cultra/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
		isErr    bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"Warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			lv, err := logging.ParseLevel(tc.input)
			gt.Equal(t, lv, tc.expected)
			if tc.isErr {
				gt.True(t, errors.Is(err, logging.ErrInvalidLevel))
			} else {
				gt.NoError(t, err)
			}
		})
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("warn", buf)

	logger.Info("info message")
	logger.Warn("warn message")

	gt.S(t, buf.String()).NotContains("info message")
	gt.S(t, buf.String()).Contains("warn message")
}

func TestNewWithInvalidLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("loud", buf)
	logger.Info("still logging")

	gt.S(t, buf.String()).Contains("invalid log level")
	gt.S(t, buf.String()).Contains("still logging")
}

func TestGoerrValuesAreRendered(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", buf)

	err := goerr.New("search failed", goerr.V("backend", "serpapi"))
	logger.Error("fallback error", "error", err)

	gt.S(t, buf.String()).Contains("search failed")
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf)

	ctx := logging.With(context.Background(), logger)
	gt.Equal(t, logging.From(ctx), logger)
}

func TestFromUsesDefault(t *testing.T) {
	original := logging.Default()
	defer logging.SetDefault(original)

	buf := &bytes.Buffer{}
	custom := logging.New("info", buf)
	logging.SetDefault(custom)

	logging.From(context.Background()).Info("from default")
	gt.S(t, buf.String()).Contains("from default")
}

func TestWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logging.With(context.Background(), logging.New("info", buf))

	ctx, logger := logging.WithAttrs(ctx, "request_id", "req-123")
	gt.Equal(t, logging.From(ctx), logger)

	logging.From(ctx).Info("handled")
	gt.S(t, buf.String()).Contains("handled")
	gt.S(t, buf.String()).Contains("req-123")
}
