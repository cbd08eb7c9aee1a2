package nli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// LabelMap maps a model's output indices onto the canonical labels. Indices are -1
// when the label is absent, except Contradiction which falls back to 0.
type LabelMap struct {
	Names         []string `json:"names"`
	Entailment    int      `json:"entailment"`
	Neutral       int      `json:"neutral"`
	Contradiction int      `json:"contradiction"`
}

// DefaultLabels is the XNLI ordering used by the multilingual mDeBERTa checkpoints.
var DefaultLabels = ResolveLabels(map[int]string{0: "entailment", 1: "neutral", 2: "contradiction"})

// ResolveLabels builds a LabelMap from an id2label mapping. The contradiction index
// is the first id whose label contains "contradiction"; without one it is 0.
func ResolveLabels(id2label map[int]string) LabelMap {
	ids := make([]int, 0, len(id2label))
	for id := range id2label {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	size := 0
	if len(ids) > 0 && ids[len(ids)-1] >= 0 {
		size = ids[len(ids)-1] + 1
	}
	m := LabelMap{Names: make([]string, size), Entailment: -1, Neutral: -1, Contradiction: -1}
	for _, id := range ids {
		if id < 0 {
			continue
		}
		name := id2label[id]
		m.Names[id] = name
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "contradiction") && m.Contradiction < 0:
			m.Contradiction = id
		case strings.Contains(lower, "entail") && !strings.Contains(lower, "not") && m.Entailment < 0:
			m.Entailment = id
		case strings.Contains(lower, "neutral") && m.Neutral < 0:
			m.Neutral = id
		}
	}
	if m.Contradiction < 0 {
		m.Contradiction = 0
	}
	return m
}

// Size is the number of output classes.
func (m LabelMap) Size() int {
	return len(m.Names)
}

// Canonical reorders a model-order distribution into canonical label order.
func (m LabelMap) Canonical(p Probabilities) (Distribution, error) {
	var d Distribution
	if len(p) != m.Size() || m.Contradiction >= len(p) {
		return d, fmt.Errorf("%w: %d scores for %d labels", ErrShapeMismatch, len(p), m.Size())
	}
	d[Contradiction] = p[m.Contradiction]
	if m.Entailment >= 0 {
		d[Entailment] = p[m.Entailment]
	}
	if m.Neutral >= 0 {
		d[Neutral] = p[m.Neutral]
	}
	return d, nil
}

// canonicalAll converts a batch of model-order distributions.
func (m LabelMap) canonicalAll(ps []Probabilities) ([]Distribution, error) {
	out := make([]Distribution, len(ps))
	for i, p := range ps {
		d, err := m.Canonical(p)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// modelConfig is the subset of a HuggingFace config.json the classifier reads.
type modelConfig struct {
	NameOrPath string            `json:"_name_or_path"`
	ModelType  string            `json:"model_type"`
	ID2Label   map[string]string `json:"id2label"`
	PadTokenID *int              `json:"pad_token_id"`
}

func readModelConfig(path string) (*modelConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg modelConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// labels converts the string-keyed id2label into a LabelMap. A config without
// id2label yields the default XNLI ordering.
func (c *modelConfig) labels() (LabelMap, error) {
	if len(c.ID2Label) == 0 {
		return DefaultLabels, nil
	}
	id2label := make(map[int]string, len(c.ID2Label))
	for k, v := range c.ID2Label {
		id, err := strconv.Atoi(k)
		if err != nil {
			return LabelMap{}, fmt.Errorf("invalid id2label key %q: %w", k, err)
		}
		id2label[id] = v
	}
	return ResolveLabels(id2label), nil
}
