package app

import (
	"context"
	"strings"
)

// extractiveGenerator answers from retrieved context without a model call.
// It backs the keyword provider so the agent can run keyless: the answer is
// the first context paragraph, verbatim.
type extractiveGenerator struct{}

const noContextAnswer = "I don't have information about that in my knowledge base."

func (extractiveGenerator) Generate(_ context.Context, prompt string) (string, error) {
	body, ok := strings.CutPrefix(prompt, "Context: ")
	if !ok {
		return noContextAnswer, nil
	}
	first := body
	if i := strings.Index(body, "\n\n"); i >= 0 {
		first = body[:i]
	}
	return strings.TrimSpace(first), nil
}
