package contradict

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundprediction/contradict/pkg/config"
	"github.com/soundprediction/contradict/pkg/logger"
	"github.com/soundprediction/contradict/pkg/telemetry"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "contradict",
		Short: "Contradict: find contradictory sentences in text",
		Long: `Contradict analyses a document for sentences that assert incompatible facts.

Candidate sentence pairs are chosen by embedding similarity, scored in both
directions by an NLI classifier, boosted when both sentences carry numbers or
dates, and reported in descending confidence.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.contradict.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "color", "log format (color, text, json)")

	// Model flags
	flags.String("backend", "onnx", "NLI backend (onnx, http, mock)")
	flags.String("device", "cpu", "device for models (cpu, cuda, cuda:N)")
	flags.String("base-model", "", "base NLI model directory or id")
	flags.String("finetuned-model", "", "finetuned NLI model directory or id")
	flags.String("endpoint", "", "inference server URL for the http backend")
	flags.String("ort-library", "", "path to the onnxruntime shared library")
	flags.String("embedding-provider", "embedeverything", "embedding provider (embedeverything, mock)")
	flags.String("telemetry-parquet-path", "", "directory for error telemetry")

	// Bind flags to viper
	bind := map[string]string{
		"log.level":              "log-level",
		"log.format":             "log-format",
		"models.backend":         "backend",
		"models.device":          "device",
		"models.base_path":       "base-model",
		"models.finetuned_path":  "finetuned-model",
		"models.endpoint":        "endpoint",
		"models.ort_library":     "ort-library",
		"embedding.provider":     "embedding-provider",
		"telemetry.parquet_path": "telemetry-parquet-path",
	}
	for key, flag := range bind {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".contradict")
	}

	viper.SetEnvPrefix("CONTRADICT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger. When telemetry is configured, error records
// are also persisted; the returned func flushes them.
func newLogger(cfg *config.Config) (*slog.Logger, func() error) {
	base := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if cfg.Telemetry.ParquetPath == "" {
		return base, func() error { return nil }
	}

	h, err := telemetry.NewParquetHandler(base.Handler(), cfg.Telemetry.ParquetPath)
	if err != nil {
		base.Warn("error telemetry disabled", "error", err)
		return base, func() error { return nil }
	}
	base.Debug("error telemetry enabled", "path", cfg.Telemetry.ParquetPath)
	return slog.New(h), h.Close
}
