package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"

	"github.com/nesrien2002/livekit-voice-agent/internal/corpus"
	"github.com/nesrien2002/livekit-voice-agent/internal/log"
	"github.com/nesrien2002/livekit-voice-agent/internal/prompt"
	"github.com/nesrien2002/livekit-voice-agent/internal/rag"
	"github.com/nesrien2002/livekit-voice-agent/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testFallback = "I apologize, I encountered an error. Could you please repeat that?"

type stubRetriever struct {
	results []rag.Result
	err     error
	calls   atomic.Int64
}

func (s *stubRetriever) Retrieve(context.Context, string, int) ([]rag.Result, error) {
	s.calls.Add(1)
	return s.results, s.err
}

type stubGenerator struct {
	fn    func(ctx context.Context, prompt string) (string, error)
	calls atomic.Int64
}

func (s *stubGenerator) Generate(ctx context.Context, p string) (string, error) {
	s.calls.Add(1)
	if s.fn != nil {
		return s.fn(ctx, p)
	}
	return "stub answer", nil
}

func newTestAgent(r Retriever, g Generator) *Agent {
	return New(r, g, prompt.NewBuilder(4000, 6), testFallback, log.NewNop())
}

func TestProcessQuery_EmptyQuery(t *testing.T) {
	r := &stubRetriever{}
	a := newTestAgent(r, &stubGenerator{})

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := a.ProcessQuery(context.Background(), q); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("ProcessQuery(%q) = %v, want ErrEmptyQuery", q, err)
		}
	}
	if r.calls.Load() != 0 {
		t.Error("retriever was called for an empty query")
	}
	if a.History().Len() != 0 {
		t.Error("empty query mutated the conversation")
	}
}

func TestProcessQuery_Success(t *testing.T) {
	r := &stubRetriever{results: []rag.Result{
		{Document: corpus.Document{Text: "Support hours: Mon-Fri 9am-6pm EST."}},
	}}
	g := &stubGenerator{fn: func(_ context.Context, p string) (string, error) {
		if !strings.Contains(p, "Support hours") {
			t.Errorf("prompt missing retrieved context: %q", p)
		}
		if !strings.Contains(p, "Question: When are you open?") {
			t.Errorf("prompt missing question: %q", p)
		}
		return "We are open Mon-Fri, 9am to 6pm EST.", nil
	}}
	a := newTestAgent(r, g)

	got, err := a.ProcessQuery(context.Background(), "When are you open?")
	if err != nil {
		t.Fatalf("ProcessQuery() = %v", err)
	}
	if got != "We are open Mon-Fri, 9am to 6pm EST." {
		t.Errorf("answer = %q", got)
	}
	if g.calls.Load() != 1 {
		t.Errorf("generator called %d times, want exactly 1", g.calls.Load())
	}
	if a.State() != StateComplete {
		t.Errorf("state = %v, want complete", a.State())
	}

	turns := a.History().Recent(0)
	if len(turns) != 2 {
		t.Fatalf("history has %d turns, want 2", len(turns))
	}
	if turns[0].Role != session.RoleUser || turns[1].Role != session.RoleAgent {
		t.Errorf("turn roles = %q, %q", turns[0].Role, turns[1].Role)
	}
}

func TestProcessQuery_RetrievalFailureFallsBack(t *testing.T) {
	r := &stubRetriever{err: errors.New("index unavailable")}
	g := &stubGenerator{}
	a := newTestAgent(r, g)

	got, err := a.ProcessQuery(context.Background(), "anything")
	if err != nil {
		t.Fatalf("ProcessQuery() = %v", err)
	}
	if got != testFallback {
		t.Errorf("answer = %q, want fallback", got)
	}
	if g.calls.Load() != 0 {
		t.Error("generator was called after retrieval failed")
	}
	if a.State() != StateFailed {
		t.Errorf("state = %v, want failed", a.State())
	}

	turns := a.History().Recent(0)
	if len(turns) != 1 || turns[0].Role != session.RoleUser {
		t.Errorf("history = %+v, want only the user turn", turns)
	}
}

func TestProcessQuery_GenerationFailureFallsBack(t *testing.T) {
	r := &stubRetriever{}
	g := &stubGenerator{fn: func(context.Context, string) (string, error) {
		return "", errors.New("model overloaded")
	}}
	a := newTestAgent(r, g)

	got, err := a.ProcessQuery(context.Background(), "anything")
	if err != nil {
		t.Fatalf("ProcessQuery() = %v", err)
	}
	if got != testFallback {
		t.Errorf("answer = %q, want fallback", got)
	}

	turns := a.History().Recent(0)
	if len(turns) != 1 || turns[0].Role != session.RoleUser {
		t.Errorf("history = %+v, want only the user turn", turns)
	}
}

func TestProcessQuery_CancellationSurfaces(t *testing.T) {
	r := &stubRetriever{}
	g := &stubGenerator{fn: func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	}}
	a := newTestAgent(r, g)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.ProcessQuery(ctx, "anything"); !errors.Is(err, context.Canceled) {
		t.Errorf("ProcessQuery() = %v, want context.Canceled", err)
	}
	if a.History().Len() != 0 {
		t.Error("canceled query mutated the conversation")
	}
}

func TestProcessQuery_HistoryFlowsIntoPrompt(t *testing.T) {
	r := &stubRetriever{}
	var prompts []string
	g := &stubGenerator{fn: func(_ context.Context, p string) (string, error) {
		prompts = append(prompts, p)
		return "answer", nil
	}}
	a := newTestAgent(r, g)

	if _, err := a.ProcessQuery(context.Background(), "first question"); err != nil {
		t.Fatalf("ProcessQuery() = %v", err)
	}
	if _, err := a.ProcessQuery(context.Background(), "second question"); err != nil {
		t.Fatalf("ProcessQuery() = %v", err)
	}

	if len(prompts) != 2 {
		t.Fatalf("got %d prompts", len(prompts))
	}
	if strings.Contains(prompts[0], "first question\n") && strings.Contains(prompts[0], "user:") {
		t.Errorf("first prompt already contains history: %q", prompts[0])
	}
	if !strings.Contains(prompts[1], "user: first question") {
		t.Errorf("second prompt missing prior user turn: %q", prompts[1])
	}
	if !strings.Contains(prompts[1], "agent: answer") {
		t.Errorf("second prompt missing prior agent turn: %q", prompts[1])
	}
}

// End-to-end over the real retriever: the support-hours document must reach
// the prompt for a business-hours question.
func TestProcessQuery_RetrievesRelevantContext(t *testing.T) {
	texts := []string{
		"Support hours: Mon-Fri 9am-6pm EST.",
		"Pricing: Starter $99/mo.",
	}
	emb := rag.NewKeywordEmbedder(texts)
	docs := make([]corpus.Document, len(texts))
	for i, text := range texts {
		docs[i] = corpus.Document{ID: fmt.Sprintf("kb.txt:%d", i), Source: "kb.txt", Text: text, Chunk: i}
	}
	idx, err := rag.Build(context.Background(), emb, docs)
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	retriever, err := rag.NewRetriever(emb, idx, 3, log.NewNop())
	if err != nil {
		t.Fatalf("NewRetriever() = %v", err)
	}

	var captured string
	g := &stubGenerator{fn: func(_ context.Context, p string) (string, error) {
		captured = p
		return "Mon-Fri, 9am to 6pm EST.", nil
	}}
	a := newTestAgent(retriever, g)

	if _, err := a.ProcessQuery(context.Background(), "What are your business hours?"); err != nil {
		t.Fatalf("ProcessQuery() = %v", err)
	}
	if !strings.HasPrefix(captured, "Context: Support hours: Mon-Fri 9am-6pm EST.") {
		t.Errorf("support-hours document not ranked first in prompt: %q", captured)
	}
}

// Concurrent queries on one agent must keep each exchange's turns adjacent
// and in user-then-agent order.
func TestProcessQuery_ConcurrentTurnsStayPaired(t *testing.T) {
	r := &stubRetriever{}
	g := &stubGenerator{fn: func(_ context.Context, p string) (string, error) {
		return "echo " + p, nil
	}}
	a := newTestAgent(r, g)

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := a.ProcessQuery(context.Background(), fmt.Sprintf("query-%d", i)); err != nil {
				t.Errorf("ProcessQuery() = %v", err)
			}
		}(i)
	}
	wg.Wait()

	turns := a.History().Recent(0)
	if len(turns) != 2*n {
		t.Fatalf("history has %d turns, want %d", len(turns), 2*n)
	}
	for i := 0; i < len(turns); i += 2 {
		if turns[i].Role != session.RoleUser || turns[i+1].Role != session.RoleAgent {
			t.Fatalf("turns %d,%d = %q,%q; exchanges interleaved",
				i, i+1, turns[i].Role, turns[i+1].Role)
		}
		if !strings.Contains(turns[i+1].Text, turns[i].Text) {
			t.Errorf("agent turn %q does not answer user turn %q", turns[i+1].Text, turns[i].Text)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(func() *Agent {
		return newTestAgent(&stubRetriever{}, &stubGenerator{})
	})

	a := reg.Get("session-1")
	if reg.Get("session-1") != a {
		t.Error("same session ID returned a different agent")
	}
	if reg.Get("session-2") == a {
		t.Error("different session IDs share an agent")
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}

	reg.Drop("session-1")
	if reg.Len() != 1 {
		t.Errorf("Len() = %d after Drop, want 1", reg.Len())
	}
	if reg.Get("session-1") == a {
		t.Error("dropped session kept its old agent")
	}
}
