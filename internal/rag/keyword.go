package rag

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"
)

// KeywordEmbedder is an offline bag-of-words embedder. Each dimension counts
// one vocabulary token; vectors are L2-normalized. It captures lexical
// overlap only, which is enough for small keyword-heavy knowledge bases,
// keyless development runs, and deterministic tests.
//
// Two KeywordEmbedders built from different corpora share a name but differ
// in dimensionality; the Retriever's dimension check still rejects the pair.
type KeywordEmbedder struct {
	vocab map[string]int
}

// NewKeywordEmbedder derives a vocabulary from the given texts. The
// vocabulary is the sorted set of unique tokens, so the same corpus always
// produces the same embedding space.
func NewKeywordEmbedder(texts []string) *KeywordEmbedder {
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range tokenize(text) {
			seen[tok] = struct{}{}
		}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)

	vocab := make(map[string]int, len(words))
	for i, w := range words {
		vocab[w] = i
	}
	return &KeywordEmbedder{vocab: vocab}
}

// Name implements Embedder.
func (e *KeywordEmbedder) Name() string { return "keyword" }

// Dimension returns the vocabulary size.
func (e *KeywordEmbedder) Dimension() int { return len(e.vocab) }

// Embed implements Embedder. Tokens outside the vocabulary are ignored; text
// with no vocabulary overlap embeds to the zero vector.
func (e *KeywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(e.vocab))
	for _, tok := range tokenize(text) {
		if i, ok := e.vocab[tok]; ok {
			vec[i]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// EmbedBatch implements Embedder.
func (e *KeywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

// tokenize lowercases text and splits on any non-letter, non-digit run.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
