package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nesrien2002/livekit-voice-agent/internal/corpus"
)

// Sentinel errors, checkable with errors.Is.
var (
	// ErrEmptyCorpus indicates Build was called without any documents.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrDimensionMismatch indicates the embedder returned vectors of
	// inconsistent length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyIndex indicates Search was called on an unbuilt index.
	ErrEmptyIndex = errors.New("index not built")

	// ErrInvalidTopK indicates a top-k value below 1.
	ErrInvalidTopK = errors.New("top-k must be at least 1")
)

// Result is one retrieval hit: a document and its squared-L2 distance to the
// query vector. Lower distance means more similar.
type Result struct {
	Document corpus.Document
	Distance float64
}

// entry pairs a document with its embedding. Entries are owned exclusively
// by the Index, created at build time and never mutated.
type entry struct {
	doc corpus.Document
	vec []float32
}

// Index is an in-memory nearest-neighbor index over the knowledge corpus.
// It is immutable after Build: concurrent Search calls need no locking, and
// a corpus change requires a full rebuild.
type Index struct {
	embedderName string
	dimension    int
	entries      []entry
}

// Build embeds every document once and constructs the index.
//
// Build fails with ErrEmptyCorpus when docs is empty and with
// ErrDimensionMismatch when the embedder returns vectors of inconsistent
// length. Any failure leaves no partially built index behind.
func Build(ctx context.Context, embedder Embedder, docs []corpus.Document) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}

	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding corpus: %w", err)
	}
	if len(vecs) != len(docs) {
		return nil, fmt.Errorf("%w: got %d vectors for %d documents",
			ErrDimensionMismatch, len(vecs), len(docs))
	}

	dimension := len(vecs[0])
	if dimension == 0 {
		return nil, fmt.Errorf("%w: embedder %q returned an empty vector",
			ErrDimensionMismatch, embedder.Name())
	}

	entries := make([]entry, len(docs))
	for i, doc := range docs {
		if len(vecs[i]) != dimension {
			return nil, fmt.Errorf("%w: document %q has dimension %d, want %d",
				ErrDimensionMismatch, doc.ID, len(vecs[i]), dimension)
		}
		entries[i] = entry{doc: doc, vec: vecs[i]}
	}

	return &Index{
		embedderName: embedder.Name(),
		dimension:    dimension,
		entries:      entries,
	}, nil
}

// EmbedderName returns the name of the embedder the index was built with.
func (idx *Index) EmbedderName() string { return idx.embedderName }

// Dimension returns the vector dimensionality shared by all entries.
func (idx *Index) Dimension() int { return idx.dimension }

// Len returns the number of indexed documents.
func (idx *Index) Len() int { return len(idx.entries) }

// Search returns the k entries closest to vec under squared-L2 distance,
// ordered by ascending distance. Equal distances keep insertion order
// (first-inserted wins). k larger than the corpus returns all entries;
// k below 1 is rejected with ErrInvalidTopK.
func (idx *Index) Search(vec []float32, k int) ([]Result, error) {
	if idx == nil || len(idx.entries) == 0 {
		return nil, ErrEmptyIndex
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}
	if len(vec) != idx.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			ErrDimensionMismatch, len(vec), idx.dimension)
	}
	if k > len(idx.entries) {
		k = len(idx.entries)
	}

	order := make([]int, len(idx.entries))
	distances := make([]float64, len(idx.entries))
	for i := range idx.entries {
		order[i] = i
		distances[i] = squaredL2(vec, idx.entries[i].vec)
	}

	// Stable sort on distance alone preserves insertion order for ties.
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	results := make([]Result, k)
	for i := 0; i < k; i++ {
		j := order[i]
		results[i] = Result{Document: idx.entries[j].doc, Distance: distances[j]}
	}
	return results, nil
}

// squaredL2 computes the squared Euclidean distance between two vectors of
// equal length. Accumulates in float64 to limit rounding drift.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
