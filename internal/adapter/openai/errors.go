package openai

import (
	"context"
	"errors"
	"net/http"

	"ragchat-api/internal/domain/entity"
	"ragchat-api/pkg/retry"

	openai "github.com/sashabaranov/go-openai"
)

// classify wraps an API failure for the retry policy: permanent failures
// (bad credentials, exhausted quota, malformed request) short-circuit, while
// timeouts, rate limits and server errors stay retryable.
func classify(capability string, err error) error {
	if err == nil {
		return nil
	}

	permanent := false

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			permanent = true
		case http.StatusTooManyRequests:
			permanent = apiErr.Type == "insufficient_quota"
		}
	}
	if errors.Is(err, context.Canceled) {
		permanent = true
	}

	ext := &entity.ExternalError{Capability: capability, Permanent: permanent, Err: err}
	if permanent {
		return &retry.Permanent{Err: ext}
	}
	return ext
}
