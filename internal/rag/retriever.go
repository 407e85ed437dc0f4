package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nesrien2002/livekit-voice-agent/internal/log"
)

// ErrEmbedderMismatch indicates a Retriever was paired with a different
// embedding function than the one that built its index. Retrieval with a
// mismatched embedder would compare vectors from unrelated spaces, so this
// fails fast instead of returning garbage rankings.
var ErrEmbedderMismatch = errors.New("embedder does not match index")

// Retriever answers free-text queries against a built Index.
// Safe for concurrent use: the index is immutable and the retriever holds no
// per-query state.
type Retriever struct {
	embedder Embedder
	index    *Index
	topK     int
	logger   log.Logger
}

// NewRetriever pairs an embedder with a built index. The embedder must be
// the same embedding function used at build time; a name mismatch fails
// immediately with ErrEmbedderMismatch. topK is the default result count
// used when Retrieve is called with k <= 0.
func NewRetriever(embedder Embedder, index *Index, topK int, logger log.Logger) (*Retriever, error) {
	if index == nil {
		return nil, ErrEmptyIndex
	}
	if embedder.Name() != index.EmbedderName() {
		return nil, fmt.Errorf("%w: retriever has %q, index built with %q",
			ErrEmbedderMismatch, embedder.Name(), index.EmbedderName())
	}
	if topK < 1 {
		topK = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		logger:   logger,
	}, nil
}

// Retrieve embeds queryText and returns the k closest documents with their
// distance scores. k <= 0 uses the configured default.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, k int) ([]Result, error) {
	if k <= 0 {
		k = r.topK
	}

	vec, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	// A same-named embedder producing a different dimensionality is still a
	// mismatched embedding function.
	if len(vec) != r.index.Dimension() {
		return nil, fmt.Errorf("%w: query vector has dimension %d, index has %d",
			ErrEmbedderMismatch, len(vec), r.index.Dimension())
	}

	results, err := r.index.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	for _, res := range results {
		r.logger.Debug("retrieved document",
			"id", res.Document.ID,
			"source", res.Document.Source,
			"distance", res.Distance,
		)
	}
	return results, nil
}

// TopK returns the default result count.
func (r *Retriever) TopK() int { return r.topK }
