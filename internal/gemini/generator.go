package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/nesrien2002/livekit-voice-agent/internal/log"
)

// generateFunc matches the Models.GenerateContent method of the genai
// client. Tests substitute a stub; production wiring passes the real method.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content,
	config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeneratorConfig carries the per-request model parameters.
type GeneratorConfig struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	SafetyThreshold string
	Timeout         time.Duration
}

// Generator produces one model response per prompt. Safe for concurrent use.
type Generator struct {
	generate generateFunc
	model    string
	config   *genai.GenerateContentConfig
	timeout  time.Duration
	logger   log.Logger
}

// NewGenerator builds a Generator on top of a dialed client.
func NewGenerator(client *genai.Client, cfg GeneratorConfig, logger log.Logger) *Generator {
	return newGenerator(client.Models.GenerateContent, cfg, logger)
}

func newGenerator(generate generateFunc, cfg GeneratorConfig, logger log.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		generate: generate,
		model:    cfg.Model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(cfg.Temperature),
			MaxOutputTokens: cfg.MaxOutputTokens,
			SafetySettings:  safetySettings(cfg.SafetyThreshold),
		},
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Generate sends exactly one generation request for the prompt and returns
// the model's text. The configured timeout bounds the call; errors map onto
// ErrTimeout, ErrUnavailable, or ErrRejected.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.generate(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrRejected)
	}

	g.logger.Debug("generation complete",
		"model", g.model,
		"prompt_chars", len(prompt),
		"response_chars", len(text),
		"duration", time.Since(start),
	)
	return text, nil
}

// safetySettings applies one block threshold across all four harm
// categories, matching how the API console configures them.
func safetySettings(threshold string) []*genai.SafetySetting {
	t := genai.HarmBlockThreshold(threshold)
	if threshold == "" {
		t = genai.HarmBlockThresholdBlockNone
	}
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, len(categories))
	for i, c := range categories {
		settings[i] = &genai.SafetySetting{Category: c, Threshold: t}
	}
	return settings
}
