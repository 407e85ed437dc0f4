package config

import (
	"fmt"
	"os"
	"slices"
)

// validSafetyThresholds lists the Gemini harm-block thresholds accepted for
// safety_threshold. Applied uniformly to all four harm categories.
var validSafetyThresholds = []string{
	"BLOCK_NONE",
	"BLOCK_ONLY_HIGH",
	"BLOCK_MEDIUM_AND_ABOVE",
	"BLOCK_LOW_AND_ABOVE",
}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.KnowledgeDir == "" {
		return fmt.Errorf("%w: knowledge_dir cannot be empty", ErrInvalidKnowledgeDir)
	}

	// Generation settings.
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxOutputTokens < 1 || c.MaxOutputTokens > 65536 {
		return fmt.Errorf("%w: must be between 1 and 65,536, got %d", ErrInvalidMaxOutputTokens, c.MaxOutputTokens)
	}

	if !slices.Contains(validSafetyThresholds, c.SafetyThreshold) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidSafetyThreshold, c.SafetyThreshold, validSafetyThresholds)
	}

	// 100ms floor: anything shorter times out before the first token.
	if c.GenerationTimeoutMs < 100 || c.GenerationTimeoutMs > 300000 {
		return fmt.Errorf("%w: must be between 100 and 300,000 ms, got %d",
			ErrInvalidGenerationTimeout, c.GenerationTimeoutMs)
	}

	if c.FallbackResponseText == "" {
		return fmt.Errorf("%w: fallback_response_text cannot be empty", ErrMissingFallbackText)
	}

	// Embedder settings.
	switch c.EmbedderProvider {
	case EmbedderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for the gemini embedder\n"+
				"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
				ErrMissingAPIKey)
		}
		if c.EmbedderModel == "" {
			return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedder)
		}
		if c.EmbedderDimension < 1 || c.EmbedderDimension > 3072 {
			return fmt.Errorf("%w: embedder_dimension must be between 1 and 3072, got %d",
				ErrInvalidEmbedder, c.EmbedderDimension)
		}
	case EmbedderKeyword:
		// Offline provider; no key or model required.
	default:
		return fmt.Errorf("%w: unknown provider %q, must be %q or %q",
			ErrInvalidEmbedder, c.EmbedderProvider, EmbedderGemini, EmbedderKeyword)
	}

	// Retrieval and prompt settings.
	if c.TopK < 1 || c.TopK > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidTopK, c.TopK)
	}

	// Floor leaves room for the query plus the answer scaffolding.
	if c.PromptCharBudget < 256 {
		return fmt.Errorf("%w: must be at least 256, got %d", ErrInvalidPromptBudget, c.PromptCharBudget)
	}

	if c.ConversationTurnBudget < 0 || c.ConversationTurnBudget > 100 {
		return fmt.Errorf("%w: must be between 0 and 100, got %d", ErrInvalidTurnBudget, c.ConversationTurnBudget)
	}

	return nil
}

// ValidateToken validates the LiveKit credentials needed by the token
// endpoint. Called only when the endpoint is requested; serve mode without
// LiveKit simply disables the route.
func (c *Config) ValidateToken() error {
	if c == nil {
		return ErrConfigNil
	}
	if c.LiveKitAPIKey == "" || c.LiveKitAPISecret == "" {
		return fmt.Errorf("%w: both LIVEKIT_API_KEY and LIVEKIT_API_SECRET must be set",
			ErrMissingLiveKitCredentials)
	}
	if len(c.LiveKitAPISecret) < 16 {
		return fmt.Errorf("%w: LIVEKIT_API_SECRET must be at least 16 characters",
			ErrMissingLiveKitCredentials)
	}
	return nil
}
