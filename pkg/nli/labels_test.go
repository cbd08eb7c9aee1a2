package nli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLabels(t *testing.T) {
	tests := []struct {
		name              string
		id2label          map[int]string
		wantContradiction int
		wantEntailment    int
		wantNeutral       int
	}{
		{
			name:              "xnli order",
			id2label:          map[int]string{0: "entailment", 1: "neutral", 2: "contradiction"},
			wantContradiction: 2, wantEntailment: 0, wantNeutral: 1,
		},
		{
			name:              "mnli order upper case",
			id2label:          map[int]string{0: "CONTRADICTION", 1: "NEUTRAL", 2: "ENTAILMENT"},
			wantContradiction: 0, wantEntailment: 2, wantNeutral: 1,
		},
		{
			name:              "no contradiction label defaults to zero",
			id2label:          map[int]string{0: "LABEL_0", 1: "LABEL_1"},
			wantContradiction: 0, wantEntailment: -1, wantNeutral: -1,
		},
		{
			name:              "not_entailment is not entailment",
			id2label:          map[int]string{0: "not_entailment", 1: "entailment"},
			wantContradiction: 0, wantEntailment: 1, wantNeutral: -1,
		},
		{
			name:              "empty",
			id2label:          map[int]string{},
			wantContradiction: 0, wantEntailment: -1, wantNeutral: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := ResolveLabels(tt.id2label)
			assert.Equal(t, tt.wantContradiction, m.Contradiction)
			assert.Equal(t, tt.wantEntailment, m.Entailment)
			assert.Equal(t, tt.wantNeutral, m.Neutral)
		})
	}
}

func TestCanonical(t *testing.T) {
	m := ResolveLabels(map[int]string{0: "contradiction", 1: "neutral", 2: "entailment"})
	d, err := m.Canonical(Probabilities{0.7, 0.2, 0.1})
	require.NoError(t, err)
	assert.Equal(t, Distribution{Entailment: 0.1, Neutral: 0.2, Contradiction: 0.7}, d)
	assert.Equal(t, 0.7, d.Prob(Contradiction))

	_, err = m.Canonical(Probabilities{0.5, 0.5})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	binary := ResolveLabels(map[int]string{0: "LABEL_0", 1: "LABEL_1"})
	d, err = binary.Canonical(Probabilities{0.4, 0.6})
	require.NoError(t, err)
	assert.Equal(t, Distribution{Contradiction: 0.4}, d)
}

func TestReadModelConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(`{
		"_name_or_path": "MoritzLaurer/mDeBERTa-v3-base-xnli-multilingual-nli-2mil7",
		"id2label": {"0": "entailment", "1": "neutral", "2": "contradiction"},
		"pad_token_id": 0
	}`), 0o644))

	cfg, err := readModelConfig(path)
	require.NoError(t, err)
	labels, err := cfg.labels()
	require.NoError(t, err)
	assert.Equal(t, 2, labels.Contradiction)
	require.NotNil(t, cfg.PadTokenID)
	assert.Equal(t, 0, *cfg.PadTokenID)

	bad := modelConfig{ID2Label: map[string]string{"x": "contradiction"}}
	_, err = bad.labels()
	assert.Error(t, err)

	empty := modelConfig{}
	labels, err = empty.labels()
	require.NoError(t, err)
	assert.Equal(t, DefaultLabels, labels)
}
