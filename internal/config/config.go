// Package config provides application configuration with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.voice-agent/config.yaml or ./config.yaml)
//  3. Default values
//
// Configuration is validated eagerly at Load time: unknown keys and
// out-of-range values fail fast so the agent never serves queries with a
// half-valid setup. Sensitive fields (LiveKit API secret) are masked when the
// config is marshalled or printed.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Sentinel errors returned by Validate, checkable with errors.Is.
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates GEMINI_API_KEY is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the generation model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxOutputTokens indicates the output token limit is out of range.
	ErrInvalidMaxOutputTokens = errors.New("invalid max output tokens")

	// ErrInvalidEmbedder indicates the embedder provider or model is invalid.
	ErrInvalidEmbedder = errors.New("invalid embedder")

	// ErrInvalidTopK indicates the retrieval top-k is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidPromptBudget indicates the prompt character budget is too small.
	ErrInvalidPromptBudget = errors.New("invalid prompt char budget")

	// ErrInvalidTurnBudget indicates the conversation turn budget is out of range.
	ErrInvalidTurnBudget = errors.New("invalid conversation turn budget")

	// ErrInvalidGenerationTimeout indicates the generation timeout is out of range.
	ErrInvalidGenerationTimeout = errors.New("invalid generation timeout")

	// ErrMissingFallbackText indicates the fallback response text is empty.
	ErrMissingFallbackText = errors.New("missing fallback response text")

	// ErrInvalidSafetyThreshold indicates the safety threshold is not recognized.
	ErrInvalidSafetyThreshold = errors.New("invalid safety threshold")

	// ErrInvalidKnowledgeDir indicates the knowledge base directory is empty.
	ErrInvalidKnowledgeDir = errors.New("invalid knowledge dir")

	// ErrMissingLiveKitCredentials indicates the token endpoint is enabled
	// without a LiveKit API key/secret pair.
	ErrMissingLiveKitCredentials = errors.New("missing LiveKit credentials")
)

// Embedder provider identifiers used in Config.EmbedderProvider.
const (
	// EmbedderGemini embeds via the Gemini embedding API (requires GEMINI_API_KEY).
	EmbedderGemini = "gemini"

	// EmbedderKeyword is the offline bag-of-words embedder. No API key needed;
	// intended for tests and keyless development runs.
	EmbedderKeyword = "keyword"
)

// Default values for the recognized options.
const (
	DefaultModelName       = "gemini-2.5-flash"
	DefaultEmbedderModel   = "gemini-embedding-001"
	DefaultTopK            = 3
	DefaultPromptBudget    = 4000
	DefaultTurnBudget      = 6
	DefaultTimeoutMs       = 10000
	DefaultFallbackText    = "I apologize, I encountered an error. Could you please repeat that?"
	DefaultKnowledgeDir    = "knowledge_base"
	DefaultSafetyThreshold = "BLOCK_NONE"

	// DefaultEmbedderDimension truncates gemini-embedding-001 output via
	// OutputDimensionality (Matryoshka representation); 768 keeps the
	// brute-force index small without a measurable recall hit.
	DefaultEmbedderDimension int32 = 768
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON.
type Config struct {
	// Knowledge corpus
	KnowledgeDir string `mapstructure:"knowledge_dir" json:"knowledge_dir"`

	// Generation
	ModelName            string  `mapstructure:"model_name" json:"model_name"`
	Temperature          float32 `mapstructure:"temperature" json:"temperature"`
	MaxOutputTokens      int32   `mapstructure:"max_output_tokens" json:"max_output_tokens"`
	SafetyThreshold      string  `mapstructure:"safety_threshold" json:"safety_threshold"`
	GenerationTimeoutMs  int     `mapstructure:"generation_timeout_ms" json:"generation_timeout_ms"`
	FallbackResponseText string  `mapstructure:"fallback_response_text" json:"fallback_response_text"`

	// Embedding
	EmbedderProvider  string `mapstructure:"embedder_provider" json:"embedder_provider"`
	EmbedderModel     string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension int32  `mapstructure:"embedder_dimension" json:"embedder_dimension"`

	// Retrieval and prompt assembly
	TopK                   int `mapstructure:"top_k" json:"top_k"`
	PromptCharBudget       int `mapstructure:"prompt_char_budget" json:"prompt_char_budget"`
	ConversationTurnBudget int `mapstructure:"conversation_turn_budget" json:"conversation_turn_budget"`

	// Serve mode
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"`
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`

	// LiveKit token endpoint (optional: endpoint is disabled when the
	// key/secret pair is absent)
	LiveKitURL       string `mapstructure:"livekit_url" json:"livekit_url"`
	LiveKitAPIKey    string `mapstructure:"livekit_api_key" json:"livekit_api_key"`
	LiveKitAPISecret string `mapstructure:"livekit_api_secret" json:"livekit_api_secret"` // SENSITIVE: masked in MarshalJSON
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".voice-agent")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// UnmarshalExact rejects unknown keys (fail fast on typos).
	var cfg Config
	if err := viper.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("knowledge_dir", DefaultKnowledgeDir)

	// Generation defaults match the original deployment: short spoken answers.
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_output_tokens", 150)
	viper.SetDefault("safety_threshold", DefaultSafetyThreshold)
	viper.SetDefault("generation_timeout_ms", DefaultTimeoutMs)
	viper.SetDefault("fallback_response_text", DefaultFallbackText)

	viper.SetDefault("embedder_provider", EmbedderGemini)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedder_dimension", DefaultEmbedderDimension)

	viper.SetDefault("top_k", DefaultTopK)
	viper.SetDefault("prompt_char_budget", DefaultPromptBudget)
	viper.SetDefault("conversation_turn_budget", DefaultTurnBudget)

	viper.SetDefault("listen_addr", "127.0.0.1:8080")
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 0)

	viper.SetDefault("livekit_url", "")
	viper.SetDefault("livekit_api_key", "")
	viper.SetDefault("livekit_api_secret", "")
}

// bindEnvVariables binds environment variables explicitly.
// GEMINI_API_KEY is read directly by the Gemini client, not via Viper;
// Validate checks its presence when the gemini embedder is selected.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("livekit_url", "LIVEKIT_URL")
	mustBind("livekit_api_key", "LIVEKIT_API_KEY")
	mustBind("livekit_api_secret", "LIVEKIT_API_SECRET")

	mustBind("knowledge_dir", "AGENT_KNOWLEDGE_DIR")
	mustBind("model_name", "AGENT_MODEL_NAME")
	mustBind("embedder_provider", "AGENT_EMBEDDER_PROVIDER")
	mustBind("listen_addr", "AGENT_LISTEN_ADDR")
	mustBind("cors_origins", "AGENT_CORS_ORIGINS")
	mustBind("trust_proxy", "AGENT_TRUST_PROXY")
	mustBind("rate_burst", "AGENT_RATE_BURST")
}

// GenerationTimeout returns the generation deadline as a duration.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.GenerationTimeoutMs) * time.Millisecond
}

// TokenEndpointEnabled reports whether the LiveKit token endpoint can be
// served with the current credentials.
func (c *Config) TokenEndpointEnabled() bool {
	return c.LiveKitAPIKey != "" && c.LiveKitAPISecret != ""
}

// maskedValue replaces secret content in serialized output.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully
// masked; longer ones keep the first and last two characters for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.LiveKitAPISecret = maskSecret(a.LiveKitAPISecret)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
