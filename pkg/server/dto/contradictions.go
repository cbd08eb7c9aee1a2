package dto

import (
	"errors"
	"strings"

	"github.com/soundprediction/contradict/pkg/types"
)

// ContradictionsRequest is the body of POST /api/v1/contradictions. Omitted fields use
// the server's configured defaults.
type ContradictionsRequest struct {
	Text                string   `json:"text"`
	Mode                string   `json:"mode,omitempty"`
	Threshold           *float64 `json:"threshold,omitempty"`
	UseEmbeddingsFilter *bool    `json:"use_embeddings_filter,omitempty"`
	EmbeddingModelName  string   `json:"embedding_model_name,omitempty"`
	TopK                int      `json:"top_k,omitempty"`
	SimMin              *float64 `json:"sim_min,omitempty"`
	SimMax              *float64 `json:"sim_max,omitempty"`
	BatchSize           int      `json:"batch_size,omitempty"`
	MaxLength           int      `json:"max_length,omitempty"`
	Boost               *float64 `json:"boost,omitempty"`
}

// Validate checks the request shape. Setting values are validated by the engine.
func (r *ContradictionsRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return errors.New("text cannot be empty")
	}
	if len(r.Text) > MaxContentLength {
		return ErrContentTooLong
	}
	if r.TopK < 0 || r.BatchSize < 0 || r.MaxLength < 0 {
		return errors.New("top_k, batch_size and max_length cannot be negative")
	}
	return nil
}

// Options converts the request into per-call analysis options.
func (r *ContradictionsRequest) Options() *types.Options {
	return &types.Options{
		Mode:                types.Mode(r.Mode),
		Threshold:           r.Threshold,
		UseEmbeddingsFilter: r.UseEmbeddingsFilter,
		EmbeddingModelName:  r.EmbeddingModelName,
		TopK:                r.TopK,
		SimMin:              r.SimMin,
		SimMax:              r.SimMax,
		BatchSize:           r.BatchSize,
		MaxLength:           r.MaxLength,
		Boost:               r.Boost,
	}
}
