package types

import (
	"fmt"
	"math"
	"time"
)

// Mode selects which NLI checkpoint is used.
type Mode string

const (
	// ModeBase uses the base multilingual NLI checkpoint.
	ModeBase Mode = "base"
	// ModeFinetuned uses the locally fine-tuned checkpoint, falling back to base when absent.
	ModeFinetuned Mode = "finetuned"
)

// FallbackSuffix is appended to the reported mode when the requested checkpoint is unavailable.
const FallbackSuffix = " (fallback)"

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	return m == ModeBase || m == ModeFinetuned
}

// Fallback returns the reported mode string when m was substituted for the requested one.
func (m Mode) Fallback() string {
	return string(m) + FallbackSuffix
}

// Default analysis settings.
const (
	DefaultMode               = ModeFinetuned
	DefaultThreshold          = 0.75
	DefaultEmbeddingModelName = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
	DefaultTopK               = 50
	DefaultSimMin             = 0.30
	DefaultSimMax             = 0.98
	DefaultBatchSize          = 8
	DefaultMaxLength          = 128
	DefaultBoost              = 0.05
	DefaultTimeout            = 120 * time.Second
)

// Options holds per-call analysis settings. Pointer fields distinguish "unset" from zero.
type Options struct {
	Mode                Mode          `json:"mode,omitempty" yaml:"mode,omitempty"`
	Threshold           *float64      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	UseEmbeddingsFilter *bool         `json:"use_embeddings_filter,omitempty" yaml:"use_embeddings_filter,omitempty"`
	EmbeddingModelName  string        `json:"embedding_model_name,omitempty" yaml:"embedding_model_name,omitempty"`
	TopK                int           `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	SimMin              *float64      `json:"sim_min,omitempty" yaml:"sim_min,omitempty"`
	SimMax              *float64      `json:"sim_max,omitempty" yaml:"sim_max,omitempty"`
	BatchSize           int           `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	MaxLength           int           `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Boost               *float64      `json:"boost,omitempty" yaml:"boost,omitempty"`
	Timeout             time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// Settings is the fully resolved form of Options.
type Settings struct {
	Mode                Mode
	Threshold           float64
	UseEmbeddingsFilter bool
	EmbeddingModelName  string
	TopK                int
	SimMin              float64
	SimMax              float64
	BatchSize           int
	MaxLength           int
	Boost               float64
	Timeout             time.Duration
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Mode:                DefaultMode,
		Threshold:           DefaultThreshold,
		UseEmbeddingsFilter: true,
		EmbeddingModelName:  DefaultEmbeddingModelName,
		TopK:                DefaultTopK,
		SimMin:              DefaultSimMin,
		SimMax:              DefaultSimMax,
		BatchSize:           DefaultBatchSize,
		MaxLength:           DefaultMaxLength,
		Boost:               DefaultBoost,
		Timeout:             DefaultTimeout,
	}
}

// Resolve overlays the set fields of o onto base. A nil receiver returns base unchanged.
func (o *Options) Resolve(base Settings) Settings {
	if o == nil {
		return base
	}
	s := base
	if o.Mode != "" {
		s.Mode = o.Mode
	}
	if o.Threshold != nil {
		s.Threshold = *o.Threshold
	}
	if o.UseEmbeddingsFilter != nil {
		s.UseEmbeddingsFilter = *o.UseEmbeddingsFilter
	}
	if o.EmbeddingModelName != "" {
		s.EmbeddingModelName = o.EmbeddingModelName
	}
	if o.TopK > 0 {
		s.TopK = o.TopK
	}
	if o.SimMin != nil {
		s.SimMin = *o.SimMin
	}
	if o.SimMax != nil {
		s.SimMax = *o.SimMax
	}
	if o.BatchSize > 0 {
		s.BatchSize = o.BatchSize
	}
	if o.MaxLength > 0 {
		s.MaxLength = o.MaxLength
	}
	if o.Boost != nil {
		s.Boost = *o.Boost
	}
	if o.Timeout > 0 {
		s.Timeout = o.Timeout
	}
	return s
}

// Validate checks the resolved settings. Mode problems are reported as ConfigError.
func (s Settings) Validate() error {
	if !s.Mode.Valid() {
		return NewConfigError(fmt.Sprintf("invalid mode %q: only %q or %q are accepted", s.Mode, ModeBase, ModeFinetuned), ErrInvalidMode)
	}
	if !inUnitInterval(s.Threshold) {
		return NewConfigError(fmt.Sprintf("threshold %.4f must be within [0, 1]", s.Threshold), nil)
	}
	if !inUnitInterval(s.SimMin) || !inUnitInterval(s.SimMax) || s.SimMin > s.SimMax {
		return NewConfigError(fmt.Sprintf("similarity band [%.2f, %.2f] is invalid", s.SimMin, s.SimMax), nil)
	}
	if s.TopK <= 0 || s.BatchSize <= 0 || s.MaxLength <= 0 {
		return NewConfigError("top_k, batch_size and max_length must be positive", nil)
	}
	if !inUnitInterval(s.Boost) {
		return NewConfigError(fmt.Sprintf("boost %.4f must be within [0, 1]", s.Boost), nil)
	}
	if s.Timeout <= 0 {
		return NewConfigError("timeout must be positive", nil)
	}
	return nil
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Float64 returns a pointer to v, for building Options literals.
func Float64(v float64) *float64 { return &v }

// Bool returns a pointer to v, for building Options literals.
func Bool(v bool) *bool { return &v }
