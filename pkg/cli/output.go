package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/cultra/pkg/model"
)

func printResponse(w io.Writer, resp *model.FinalResponse) {
	fmt.Fprintf(w, "\n%s\n\n", strings.TrimSpace(resp.Text))
	fmt.Fprintf(w, "Source: %s\n", resp.Provenance.Label())
	if resp.FallbackDetail != "" {
		fmt.Fprintf(w, "Fallback reason: %s\n", resp.FallbackDetail)
	}
}

// describeError renders a query error for the terminal
func describeError(err error) string {
	switch {
	case errors.Is(err, model.ErrEmptyQuery):
		return "Please enter a phrase, idiom, joke, or gesture."
	case errors.Is(err, model.ErrInvalidTone):
		return "Tone must be between 0 (casual) and 1 (formal)."
	case errors.Is(err, model.ErrUnrecoverable):
		return "Unrecoverable error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
