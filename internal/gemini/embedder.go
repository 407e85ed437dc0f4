package gemini

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

// embedBatchLimit caps concurrent embedding requests during index builds.
const embedBatchLimit = 4

// embedFunc matches the Models.EmbedContent method of the genai client.
type embedFunc func(ctx context.Context, model string, contents []*genai.Content,
	config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)

// Embedder produces fixed-dimension embeddings from the Gemini embedding
// models. Safe for concurrent use.
type Embedder struct {
	embed     embedFunc
	model     string
	dimension int32
}

// NewEmbedder builds an Embedder for the given model and output
// dimensionality.
func NewEmbedder(client *genai.Client, model string, dimension int32) *Embedder {
	return &Embedder{embed: client.Models.EmbedContent, model: model, dimension: dimension}
}

// Name identifies the embedding function by provider and model, so an index
// built with one model is never searched with another.
func (e *Embedder) Name() string { return "gemini:" + e.model }

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.embed(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(e.dimension),
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrRejected)
	}
	return resp.Embeddings[0].Values, nil
}

// EmbedBatch embeds texts with bounded concurrency. Results keep input
// order; the first failure cancels the remaining requests.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedBatchLimit)
	for i, text := range texts {
		g.Go(func() error {
			vec, err := e.Embed(ctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			vecs[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}
