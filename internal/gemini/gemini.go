// Package gemini wraps the Google Gemini API for text generation and
// embeddings. It owns the model configuration, safety settings, timeouts,
// and the mapping of transport failures onto the package's sentinel errors.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Sentinel errors for generation and embedding failures. Callers decide
// fallback behavior with errors.Is; the wrapped error keeps the API detail.
var (
	// ErrUnavailable covers transport failures, rate limiting, and server
	// errors. The request may succeed on retry.
	ErrUnavailable = errors.New("gemini unavailable")

	// ErrRejected covers requests the model refused: safety blocks, empty
	// candidates, invalid arguments. Retrying the same request will fail
	// the same way.
	ErrRejected = errors.New("gemini rejected request")

	// ErrTimeout indicates the configured deadline elapsed before a
	// response arrived.
	ErrTimeout = errors.New("gemini request timed out")
)

// NewClient dials the Gemini API backend with the given key.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return client, nil
}

// classify maps an API error onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		case apiErr.Code >= 400:
			return fmt.Errorf("%w: %v", ErrRejected, err)
		}
	}
	// Anything else is a transport-level failure.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
