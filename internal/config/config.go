// Package config provides configuration management for guestradar.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/goccy/go-json"
)

const (
	// DefaultTriggerInterval is how many MAYBE labels accumulate before a
	// generation cycle fires.
	DefaultTriggerInterval = 10

	// DefaultSimilarityThreshold is the minimum aggregated cosine similarity
	// for a candidate to be suggested. The boundary is inclusive.
	DefaultSimilarityThreshold = 0.65

	// DefaultTopK caps the number of suggestions per generation cycle.
	DefaultTopK = 8
)

// DefaultEmbeddingModel is the embedding model version used when none is
// configured.
const DefaultEmbeddingModel = "bge-v1.5"

// Config holds the application configuration.
type Config struct {
	// Data files
	DataDir         string `json:"data_dir"`
	VectorCachePath string `json:"vector_cache_path"`

	// Suggestion engine settings
	TriggerInterval     int     `json:"trigger_interval"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	TopK                int     `json:"top_k"`

	// Embedding settings
	EmbeddingModel string `json:"embedding_model"` // e.g. "bge-v1.5", "openai"
	ModelDir       string `json:"model_dir"`       // directory with model.onnx + tokenizer.json
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// DataDir returns the data directory path (~/.guestradar).
func DataDir() string {
	if dir := os.Getenv("GUESTRADAR_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".guestradar")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// ExamplesPath returns the uncertain-example history file path.
func ExamplesPath() string {
	return filepath.Join(DataDir(), "maybe_examples.json")
}

// CandidatesPath returns the candidate pool file path.
func CandidatesPath() string {
	return filepath.Join(DataDir(), "filtered_candidates.json")
}

// SuggestionsPath returns the suggestion feed file path.
func SuggestionsPath() string {
	return filepath.Join(DataDir(), "feedback_candidates.json")
}

// LabelsPath returns the recorded-labels file path.
func LabelsPath() string {
	return filepath.Join(DataDir(), "feedback.json")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// Default returns a Config with default values.
func Default() *Config {
	dir := DataDir()
	return &Config{
		DataDir:             dir,
		VectorCachePath:     filepath.Join(dir, "vectors.db"),
		TriggerInterval:     DefaultTriggerInterval,
		SimilarityThreshold: DefaultSimilarityThreshold,
		TopK:                DefaultTopK,
		EmbeddingModel:      DefaultEmbeddingModel,
		ModelDir:            filepath.Join(dir, "model"),
	}
}

// Load loads configuration from the settings file, merging with defaults.
// A missing or malformed settings file yields defaults, not an error: the
// tool must stay usable on a fresh machine.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	var settings map[string]interface{}
	if err := json.Unmarshal(data, &settings); err != nil {
		return cfg, nil
	}

	if v, ok := settings["GUESTRADAR_TRIGGER_INTERVAL"].(float64); ok && v > 0 {
		cfg.TriggerInterval = int(v)
	}
	if v, ok := settings["GUESTRADAR_SIMILARITY_THRESHOLD"].(float64); ok && v >= -1 && v <= 1 {
		cfg.SimilarityThreshold = v
	}
	if v, ok := settings["GUESTRADAR_TOP_K"].(float64); ok && v > 0 {
		cfg.TopK = int(v)
	}
	if v, ok := settings["GUESTRADAR_EMBEDDING_MODEL"].(string); ok && v != "" {
		cfg.EmbeddingModel = v
	}
	if v, ok := settings["GUESTRADAR_MODEL_DIR"].(string); ok && v != "" {
		cfg.ModelDir = v
	}
	if v, ok := settings["GUESTRADAR_VECTOR_CACHE_PATH"].(string); ok && v != "" {
		cfg.VectorCachePath = v
	}

	return cfg, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})
	return globalConfig
}

// GetEmbeddingAPIKey returns the API key for the OpenAI-compatible provider.
func GetEmbeddingAPIKey() string {
	return os.Getenv("EMBEDDING_API_KEY")
}

// GetEmbeddingBaseURL returns the base URL for the OpenAI-compatible provider.
func GetEmbeddingBaseURL() string {
	return os.Getenv("EMBEDDING_BASE_URL")
}

// GetEmbeddingModelName returns the provider-side model name.
func GetEmbeddingModelName() string {
	return os.Getenv("EMBEDDING_MODEL_NAME")
}

// GetEmbeddingDimensions returns the configured embedding dimension, or 0 if
// unset or invalid.
func GetEmbeddingDimensions() int {
	v := os.Getenv("EMBEDDING_DIMENSIONS")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
