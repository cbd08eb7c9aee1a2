package contradict

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/contradict/pkg/types"
)

func newAnalyzeFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "analyze"}
	addAnalyzeFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestOptionsFromFlags_OnlyChanged(t *testing.T) {
	opts := optionsFromFlags(newAnalyzeFlags(t))
	assert.Equal(t, &types.Options{}, opts)
}

func TestOptionsFromFlags(t *testing.T) {
	opts := optionsFromFlags(newAnalyzeFlags(t,
		"--mode", "base",
		"--threshold", "0.6",
		"--embeddings-filter=false",
		"--top-k", "7",
		"--sim-max", "0.9",
		"--timeout", "5s",
	))

	assert.Equal(t, types.ModeBase, opts.Mode)
	require.NotNil(t, opts.Threshold)
	assert.Equal(t, 0.6, *opts.Threshold)
	require.NotNil(t, opts.UseEmbeddingsFilter)
	assert.False(t, *opts.UseEmbeddingsFilter)
	assert.Equal(t, 7, opts.TopK)
	assert.Nil(t, opts.SimMin)
	assert.Equal(t, 0.9, *opts.SimMax)
	assert.Equal(t, 5*time.Second, opts.Timeout)
}

func TestReadInputAndSplitLines(t *testing.T) {
	text, err := readInput(strings.NewReader("first line\n\n  second line \n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first line", "second line"}, splitLines(text))

	_, err = readInput(nil, []string{"/does/not/exist.txt"})
	assert.Error(t, err)
}

func TestWriteResult(t *testing.T) {
	result := types.NewAnalysisResult("base", 0.75, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	result.Success = true
	result.Sentences = []string{"a b c", "d e f"}
	result.Contradictions = []types.Contradiction{{ID: 1, Sentence1Index: 0, Sentence2Index: 1, Sentence1: "a b c", Sentence2: "d e f", Confidence: 0.8}}
	result.TotalContradictions = 1

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, result, "json"))
	assert.Contains(t, buf.String(), `"total_contradictions": 1`)
	assert.Contains(t, buf.String(), `"error": null`)

	buf.Reset()
	require.NoError(t, writeResult(&buf, result, "yaml"))
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "base", decoded["mode"])
	assert.Equal(t, 1, decoded["total_contradictions"])
}
