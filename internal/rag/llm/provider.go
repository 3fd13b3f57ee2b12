package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a model answers with no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

type Provider interface {
	Generate(ctx context.Context, errorMessage string, matches []string, messageHistory []string) (string, error)
}
