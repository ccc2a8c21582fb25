package adapter

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"
)

// IsUnrecoverable reports whether err means further calls in this session cannot
// succeed: rejected credentials, or ctx itself is done. A timeout inside a
// client while ctx is still live is recoverable.
func IsUnrecoverable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if ctx.Err() != nil {
		return true
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isAuthFailure(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return isAuthFailure(apiErrPtr.Code)
	}

	return false
}

func isAuthFailure(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}
