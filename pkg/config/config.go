package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/soundprediction/contradict/pkg/types"
)

// Default model locations.
const (
	BaseModel          = "MoritzLaurer/mDeBERTa-v3-base-xnli-multilingual-nli-2mil7"
	DefaultModelsDir   = "models"
	DefaultFinetunedID = "finetuned-contradiction"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Analysis defaults applied when a request leaves a field unset
	Analysis AnalysisConfig `mapstructure:"analysis"`

	// Models configures the NLI classifier backend and checkpoints
	Models ModelsConfig `mapstructure:"models"`

	// Embedding configures the sentence encoder
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Cache configures the model and embedding caches
	Cache CacheConfig `mapstructure:"cache"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// CircuitBreaker guards the remote classifier backend
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json, color
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// AnalysisConfig holds the default analysis settings
type AnalysisConfig struct {
	Mode                string        `mapstructure:"mode"`
	Threshold           float64       `mapstructure:"threshold"`
	UseEmbeddingsFilter bool          `mapstructure:"use_embeddings_filter"`
	TopK                int           `mapstructure:"top_k"`
	SimMin              float64       `mapstructure:"sim_min"`
	SimMax              float64       `mapstructure:"sim_max"`
	BatchSize           int           `mapstructure:"batch_size"`
	MaxLength           int           `mapstructure:"max_length"`
	Boost               float64       `mapstructure:"boost"`
	Timeout             time.Duration `mapstructure:"timeout"`
}

// ModelsConfig holds NLI model configuration
type ModelsConfig struct {
	Backend                 string        `mapstructure:"backend"` // onnx, http, mock
	BasePath                string        `mapstructure:"base_path"`
	FinetunedPath           string        `mapstructure:"finetuned_path"`
	Device                  string        `mapstructure:"device"` // cpu, cuda, cuda:N
	ORTLibrary              string        `mapstructure:"ort_library"`
	IntraOpThreads          int           `mapstructure:"intra_op_threads"`
	Endpoint                string        `mapstructure:"endpoint"`
	APIKey                  string        `mapstructure:"api_key"`
	RequestTimeout          time.Duration `mapstructure:"request_timeout"`
	MixedPrecisionBlocklist []string      `mapstructure:"mixed_precision_blocklist"`
}

// EmbeddingConfig holds embedding configuration
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // embedeverything, mock
	Model     string `mapstructure:"model"`
	BatchSize int    `mapstructure:"batch_size"`
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	HighWaterMark     float64 `mapstructure:"high_water_mark"`
	EmbeddingDir      string  `mapstructure:"embedding_dir"`
	EmbeddingInMemory bool    `mapstructure:"embedding_in_memory"`
	EmbeddingEnabled  bool    `mapstructure:"embedding_enabled"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes configuration from v after applying defaults and env overrides.
func LoadFrom(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the built-in configuration without reading files or environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	config := &Config{}
	_ = v.Unmarshal(config)
	return config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := types.DefaultSettings()

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "color")

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	// Analysis defaults
	v.SetDefault("analysis.mode", string(d.Mode))
	v.SetDefault("analysis.threshold", d.Threshold)
	v.SetDefault("analysis.use_embeddings_filter", d.UseEmbeddingsFilter)
	v.SetDefault("analysis.top_k", d.TopK)
	v.SetDefault("analysis.sim_min", d.SimMin)
	v.SetDefault("analysis.sim_max", d.SimMax)
	v.SetDefault("analysis.batch_size", d.BatchSize)
	v.SetDefault("analysis.max_length", d.MaxLength)
	v.SetDefault("analysis.boost", d.Boost)
	v.SetDefault("analysis.timeout", d.Timeout)

	// Model defaults
	v.SetDefault("models.backend", "onnx")
	v.SetDefault("models.base_path", filepath.Join(DefaultModelsDir, "mdeberta-v3-base-xnli"))
	v.SetDefault("models.finetuned_path", filepath.Join(DefaultModelsDir, DefaultFinetunedID))
	v.SetDefault("models.device", "cpu")
	v.SetDefault("models.request_timeout", 30*time.Second)
	v.SetDefault("models.mixed_precision_blocklist", []string{"mdeberta"})

	// Embedding defaults
	v.SetDefault("embedding.provider", "embedeverything")
	v.SetDefault("embedding.model", d.EmbeddingModelName)
	v.SetDefault("embedding.batch_size", 64)

	// Cache defaults
	v.SetDefault("cache.high_water_mark", 0.80)
	v.SetDefault("cache.embedding_enabled", true)
	v.SetDefault("cache.embedding_in_memory", false)

	// Circuit breaker defaults
	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", 60)
	v.SetDefault("circuit_breaker.timeout", 30)
	v.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	home, err := os.UserHomeDir()
	if err == nil {
		v.SetDefault("cache.embedding_dir", filepath.Join(home, ".contradict", "embeddings"))
		v.SetDefault("telemetry.parquet_path", filepath.Join(home, ".contradict", "telemetry"))
	}
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	// Model locations
	if path := os.Getenv("CONTRADICTION_BASE_MODEL_PATH"); path != "" {
		config.Models.BasePath = path
	}
	if path := os.Getenv("CONTRADICTION_MODEL_PATH"); path != "" {
		config.Models.FinetunedPath = path
	}
	if device := os.Getenv("CONTRADICTION_DEVICE"); device != "" {
		config.Models.Device = device
	}
	if lib := os.Getenv("ONNXRUNTIME_LIB"); lib != "" {
		config.Models.ORTLibrary = lib
	}
	if endpoint := os.Getenv("NLI_ENDPOINT"); endpoint != "" {
		config.Models.Endpoint = endpoint
	}
	if apiKey := os.Getenv("NLI_API_KEY"); apiKey != "" {
		config.Models.APIKey = apiKey
	}

	// Server settings
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Telemetry settings
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}

// Settings converts the analysis section into engine defaults.
func (c *Config) Settings() types.Settings {
	a := c.Analysis
	return types.Settings{
		Mode:                types.Mode(a.Mode),
		Threshold:           a.Threshold,
		UseEmbeddingsFilter: a.UseEmbeddingsFilter,
		EmbeddingModelName:  c.Embedding.Model,
		TopK:                a.TopK,
		SimMin:              a.SimMin,
		SimMax:              a.SimMax,
		BatchSize:           a.BatchSize,
		MaxLength:           a.MaxLength,
		Boost:               a.Boost,
		Timeout:             a.Timeout,
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Settings().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Models.Backend {
	case "onnx", "http", "mock":
	default:
		errs = append(errs, fmt.Errorf("models.backend %q must be onnx, http or mock", c.Models.Backend))
	}
	if c.Models.Backend == "http" && c.Models.Endpoint == "" {
		errs = append(errs, errors.New("models.endpoint is required for the http backend"))
	}
	if _, err := types.ParseDevice(c.Models.Device); err != nil {
		errs = append(errs, fmt.Errorf("models.device: %w", err))
	}
	switch c.Embedding.Provider {
	case "embedeverything", "mock":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q must be embedeverything or mock", c.Embedding.Provider))
	}
	if c.Cache.HighWaterMark <= 0 || c.Cache.HighWaterMark > 1 {
		errs = append(errs, fmt.Errorf("cache.high_water_mark %.2f must be within (0, 1]", c.Cache.HighWaterMark))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}
