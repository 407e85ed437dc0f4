// Package app provides application initialization and dependency wiring.
//
// Setup loads the knowledge base, builds the in-memory vector index, and
// wires the retriever, generator, and per-session agent registry. Index
// build failures are fatal: the process must not start without a searchable
// knowledge base.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/nesrien2002/livekit-voice-agent/internal/agent"
	"github.com/nesrien2002/livekit-voice-agent/internal/config"
	"github.com/nesrien2002/livekit-voice-agent/internal/corpus"
	"github.com/nesrien2002/livekit-voice-agent/internal/gemini"
	"github.com/nesrien2002/livekit-voice-agent/internal/log"
	"github.com/nesrien2002/livekit-voice-agent/internal/prompt"
	"github.com/nesrien2002/livekit-voice-agent/internal/rag"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Documents []corpus.Document
	Index     *rag.Index
	Retriever *rag.Retriever
	Registry  *agent.Registry
}

// Setup creates and initializes the application. The generator is built per
// embedder provider: the gemini provider dials the API, the keyword
// provider needs no network and no key.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	docs, err := corpus.Load(cfg.KnowledgeDir)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	a.Documents = docs
	logger.Info("knowledge base loaded",
		"dir", cfg.KnowledgeDir,
		"documents", len(docs),
	)

	embedder, generator, err := provideModels(ctx, cfg, docs, logger)
	if err != nil {
		return nil, err
	}

	index, err := rag.Build(ctx, embedder, docs)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	a.Index = index
	logger.Info("index built",
		"embedder", index.EmbedderName(),
		"dimension", index.Dimension(),
		"entries", index.Len(),
	)

	retriever, err := rag.NewRetriever(embedder, index, cfg.TopK,
		logger.With("component", "retriever"))
	if err != nil {
		return nil, fmt.Errorf("creating retriever: %w", err)
	}
	a.Retriever = retriever

	builder := prompt.NewBuilder(cfg.PromptCharBudget, cfg.ConversationTurnBudget)
	agentLogger := logger.With("component", "agent")
	a.Registry = agent.NewRegistry(func() *agent.Agent {
		return agent.New(retriever, generator, builder, cfg.FallbackResponseText, agentLogger)
	})

	return a, nil
}

// provideModels returns the embedder and generator for the configured
// provider.
func provideModels(ctx context.Context, cfg *config.Config, docs []corpus.Document,
	logger log.Logger) (rag.Embedder, agent.Generator, error) {
	switch cfg.EmbedderProvider {
	case config.EmbedderGemini:
		client, err := gemini.NewClient(ctx, os.Getenv("GEMINI_API_KEY"))
		if err != nil {
			return nil, nil, err
		}
		embedder := gemini.NewEmbedder(client, cfg.EmbedderModel, cfg.EmbedderDimension)
		generator := gemini.NewGenerator(client, gemini.GeneratorConfig{
			Model:           cfg.ModelName,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			SafetyThreshold: cfg.SafetyThreshold,
			Timeout:         cfg.GenerationTimeout(),
		}, logger.With("component", "generator"))
		return embedder, generator, nil

	case config.EmbedderKeyword:
		texts := make([]string, len(docs))
		for i, d := range docs {
			texts[i] = d.Text
		}
		embedder := rag.NewKeywordEmbedder(texts)
		generator := &extractiveGenerator{}
		return embedder, generator, nil

	default:
		return nil, nil, fmt.Errorf("unknown embedder provider %q", cfg.EmbedderProvider)
	}
}
