package embedding

import (
	"fmt"
	"strings"
)

// Service wraps an embedding model and enforces the engine's input contract:
// texts empty after trimming fail with ErrEmptyInput so callers can skip the
// item instead of feeding the model a degenerate input.
type Service struct {
	model Model
}

// NewService creates an embedding service for the given model version. An
// empty version selects the registry default.
func NewService(version string) (*Service, error) {
	if version == "" {
		version = DefaultRegistry.Default()
	}

	model, err := GetModel(version)
	if err != nil {
		return nil, fmt.Errorf("get model %s: %w", version, err)
	}

	return &Service{model: model}, nil
}

// NewServiceWith wraps an already-constructed model. Used by tests and by
// callers that manage the model lifecycle themselves.
func NewServiceWith(model Model) *Service {
	return &Service{model: model}
}

// Name returns the human-readable model name.
func (s *Service) Name() string { return s.model.Name() }

// Version returns the short version string for storage.
func (s *Service) Version() string { return s.model.Version() }

// Dimensions returns the embedding vector size.
func (s *Service) Dimensions() int { return s.model.Dimensions() }

// Embed generates an embedding for a single text. Fails with ErrEmptyInput
// for texts that are empty after trimming.
func (s *Service) Embed(text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	return s.model.Embed(text)
}

// EmbedBatch generates embeddings for multiple texts. The whole batch fails
// with ErrEmptyInput if any text is empty after trimming; callers filter
// first (the Cache does this).
func (s *Service) EmbedBatch(texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyInput
		}
	}
	return s.model.EmbedBatch(texts)
}

// Close releases model resources.
func (s *Service) Close() error { return s.model.Close() }
