package contradict

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/contradict"
	"github.com/soundprediction/contradict/pkg/config"
	"github.com/soundprediction/contradict/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Analyse a document for contradictions",
	Long: `Analyse a document for contradictory sentence pairs and print the result.

The text is read from the given file, or from stdin when the argument is "-" or
omitted. Flags override the analysis defaults from the configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addAnalyzeFlags(analyzeCmd)
}

func addAnalyzeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("mode", "", "model mode (base, finetuned)")
	f.Float64("threshold", types.DefaultThreshold, "minimum confidence to report")
	f.Bool("embeddings-filter", true, "prune candidate pairs by embedding similarity")
	f.String("embedding-model", "", "sentence embedding model")
	f.Int("top-k", types.DefaultTopK, "maximum partners kept per sentence")
	f.Float64("sim-min", types.DefaultSimMin, "lower similarity bound for candidates")
	f.Float64("sim-max", types.DefaultSimMax, "upper similarity bound for candidates")
	f.Int("batch-size", types.DefaultBatchSize, "pairs per classifier batch")
	f.Int("max-length", types.DefaultMaxLength, "maximum tokens per pair")
	f.Float64("boost", types.DefaultBoost, "boost for shared numeric or date tokens")
	f.Duration("timeout", types.DefaultTimeout, "timeout for the whole analysis")
	f.Bool("sentences", false, "treat each input line as one sentence")
	f.StringP("output", "o", "json", "output format (json, yaml)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	format, _ := cmd.Flags().GetString("output")
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported output format: %s", format)
	}

	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	log, flush := newLogger(cfg)
	defer func() { _ = flush() }()

	client, err := contradict.NewFromConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize analyzer: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "cli")
	defer func() { _ = client.Close(context.Background()) }()

	opts := optionsFromFlags(cmd)
	var result *types.AnalysisResult
	if asSentences, _ := cmd.Flags().GetBool("sentences"); asSentences {
		result = client.AnalyzeSentences(ctx, splitLines(text), opts)
	} else {
		result = client.Analyze(ctx, text, opts)
	}

	if err := writeResult(cmd.OutOrStdout(), result, format); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("analysis failed: %s", deref(result.Metadata.Error))
	}
	return nil
}

// optionsFromFlags returns options for the flags the user set; the rest inherit
// configured defaults.
func optionsFromFlags(cmd *cobra.Command) *types.Options {
	f := cmd.Flags()
	opts := &types.Options{}
	if f.Changed("mode") {
		mode, _ := f.GetString("mode")
		opts.Mode = types.Mode(mode)
	}
	if f.Changed("threshold") {
		v, _ := f.GetFloat64("threshold")
		opts.Threshold = types.Float64(v)
	}
	if f.Changed("embeddings-filter") {
		v, _ := f.GetBool("embeddings-filter")
		opts.UseEmbeddingsFilter = types.Bool(v)
	}
	if f.Changed("embedding-model") {
		opts.EmbeddingModelName, _ = f.GetString("embedding-model")
	}
	if f.Changed("top-k") {
		opts.TopK, _ = f.GetInt("top-k")
	}
	if f.Changed("sim-min") {
		v, _ := f.GetFloat64("sim-min")
		opts.SimMin = types.Float64(v)
	}
	if f.Changed("sim-max") {
		v, _ := f.GetFloat64("sim-max")
		opts.SimMax = types.Float64(v)
	}
	if f.Changed("batch-size") {
		opts.BatchSize, _ = f.GetInt("batch-size")
	}
	if f.Changed("max-length") {
		opts.MaxLength, _ = f.GetInt("max-length")
	}
	if f.Changed("boost") {
		v, _ := f.GetFloat64("boost")
		opts.Boost = types.Float64(v)
	}
	if f.Changed("timeout") {
		opts.Timeout, _ = f.GetDuration("timeout")
	}
	return opts
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}

func splitLines(text string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func writeResult(w io.Writer, result *types.AnalysisResult, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
