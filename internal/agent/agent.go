// Package agent orchestrates a single conversation: retrieve context for a
// query, build a prompt, generate a response, and record the exchange.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nesrien2002/livekit-voice-agent/internal/log"
	"github.com/nesrien2002/livekit-voice-agent/internal/prompt"
	"github.com/nesrien2002/livekit-voice-agent/internal/rag"
	"github.com/nesrien2002/livekit-voice-agent/internal/session"
)

// ErrEmptyQuery is returned for queries that are blank after trimming.
// Empty queries never reach retrieval and never touch the conversation.
var ErrEmptyQuery = errors.New("query is empty")

// State is the most recent processing phase of an agent.
type State int32

const (
	StateIdle State = iota
	StateRetrieving
	StateGenerating
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRetrieving:
		return "retrieving"
	case StateGenerating:
		return "generating"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Retriever finds documents relevant to a query. k <= 0 means the
// implementation's default.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]rag.Result, error)
}

// Generator produces a model response for a fully rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Agent runs the query pipeline for one conversation. Safe for concurrent
// use: concurrent queries retrieve and generate in parallel, and their turns
// commit to the history in arrival order.
type Agent struct {
	retriever Retriever
	generator Generator
	builder   *prompt.Builder
	history   *session.History
	fallback  string
	state     atomic.Int32
	logger    log.Logger
}

// New wires an agent over a fresh conversation history. fallback is the
// response spoken when retrieval or generation fails.
func New(retriever Retriever, generator Generator, builder *prompt.Builder,
	fallback string, logger log.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		retriever: retriever,
		generator: generator,
		builder:   builder,
		history:   session.NewHistory(),
		fallback:  fallback,
		logger:    logger,
	}
}

// State reports the phase most recently reached by any query.
func (a *Agent) State() State { return State(a.state.Load()) }

// History exposes the conversation transcript.
func (a *Agent) History() *session.History { return a.history }

// ProcessQuery answers one user query. On retrieval or generation failure
// the configured fallback text is returned and only the user's turn is
// recorded; on success both turns are recorded. Context cancellation is
// surfaced as an error with nothing recorded.
func (a *Agent) ProcessQuery(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	// Reserve the history slot before any slow work so turns land in the
	// order queries arrived.
	slot := a.history.Reserve()
	defer slot.Abort()

	past := a.history.Recent(0)
	start := time.Now()

	a.state.Store(int32(StateRetrieving))
	results, err := a.retriever.Retrieve(ctx, query, 0)
	if err != nil {
		return a.recover(ctx, slot, query, fmt.Errorf("retrieval: %w", err))
	}

	p, err := a.builder.Build(query, results, past)
	if err != nil {
		return a.recover(ctx, slot, query, fmt.Errorf("building prompt: %w", err))
	}

	a.state.Store(int32(StateGenerating))
	answer, err := a.generator.Generate(ctx, p)
	if err != nil {
		return a.recover(ctx, slot, query, fmt.Errorf("generation: %w", err))
	}

	slot.Commit(
		session.NewTurn(session.RoleUser, query),
		session.NewTurn(session.RoleAgent, answer),
	)
	a.state.Store(int32(StateComplete))

	a.logger.Info("query answered",
		"contexts", len(results),
		"duration", time.Since(start),
	)
	return answer, nil
}

// recover converts a pipeline failure into the fallback response. The
// user's turn is still recorded so the transcript reflects what was asked;
// the fallback itself is not, keeping canned text out of future prompts.
func (a *Agent) recover(ctx context.Context, slot *session.Reservation, query string, err error) (string, error) {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return "", err
	}

	a.logger.Warn("query failed, returning fallback", "error", err)
	slot.Commit(session.NewTurn(session.RoleUser, query))
	a.state.Store(int32(StateFailed))
	return a.fallback, nil
}
