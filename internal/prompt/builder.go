// Package prompt assembles generation prompts from retrieved context,
// conversation history, and the current query.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nesrien2002/livekit-voice-agent/internal/rag"
	"github.com/nesrien2002/livekit-voice-agent/internal/session"
)

// ErrPromptTooLarge indicates the query alone, with no context and no
// history, does not fit the character budget. Overflow from context or
// history is handled by trimming, never by erroring.
var ErrPromptTooLarge = errors.New("query exceeds prompt character budget")

// maxContextChars caps each retrieved document's contribution to the
// context block.
const maxContextChars = 400

// Builder renders prompts deterministically: the same inputs always produce
// the same string. Safe for concurrent use.
type Builder struct {
	charBudget int
	turnBudget int
}

// NewBuilder configures prompt assembly. charBudget is the hard cap on
// prompt length in characters; turnBudget is how many recent history turns
// are considered (0 disables history).
func NewBuilder(charBudget, turnBudget int) *Builder {
	return &Builder{charBudget: charBudget, turnBudget: turnBudget}
}

// Build renders the prompt for a query. Retrieved documents appear in rank
// order, each clamped to maxContextChars; history contributes at most the
// configured number of most recent turns, rendered chronologically; the
// query appears verbatim.
//
// When the assembled prompt exceeds the budget, the lowest-ranked context
// document is dropped first, then the oldest history turn, until it fits.
// ErrPromptTooLarge is returned only when the bare query does not fit.
func (b *Builder) Build(query string, results []rag.Result, history []session.Turn) (string, error) {
	if len(render(query, nil, nil)) > b.charBudget {
		return "", fmt.Errorf("%w: budget %d", ErrPromptTooLarge, b.charBudget)
	}

	contexts := make([]string, len(results))
	for i, res := range results {
		contexts[i] = clamp(res.Document.Text, maxContextChars)
	}

	turns := history
	if b.turnBudget <= 0 {
		turns = nil
	} else if len(turns) > b.turnBudget {
		turns = turns[len(turns)-b.turnBudget:]
	}

	p := render(query, contexts, turns)
	for len(p) > b.charBudget {
		switch {
		case len(contexts) > 0:
			contexts = contexts[:len(contexts)-1]
		case len(turns) > 0:
			turns = turns[1:]
		}
		p = render(query, contexts, turns)
	}
	return p, nil
}

// render composes the final prompt text. With context the shape is
//
//	Context: <docs joined by blank lines>
//
//	<history>
//	Question: <query>
//
//	Answer briefly:
//
// and without context it collapses to "Answer briefly: <query>" so the
// model is not shown an empty context block.
func render(query string, contexts []string, turns []session.Turn) string {
	var sb strings.Builder

	if len(contexts) > 0 {
		sb.WriteString("Context: ")
		sb.WriteString(strings.Join(contexts, "\n\n"))
		sb.WriteString("\n\n")
	}

	if len(turns) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, t := range turns {
			sb.WriteString(t.Role)
			sb.WriteString(": ")
			sb.WriteString(t.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(contexts) > 0 {
		sb.WriteString("Question: ")
		sb.WriteString(query)
		sb.WriteString("\n\nAnswer briefly:")
	} else {
		sb.WriteString("Answer briefly: ")
		sb.WriteString(query)
	}
	return sb.String()
}

// clamp truncates text to at most n runes.
func clamp(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
