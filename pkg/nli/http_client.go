package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soundprediction/contradict/pkg/types"
)

// HTTPConfig configures a classifier served by a remote inference server.
type HTTPConfig struct {
	Endpoint string        `json:"endpoint"`
	APIKey   string        `json:"api_key"`
	Model    string        `json:"model"`
	Device   string        `json:"device"`
	Timeout  time.Duration `json:"timeout"`
	// MixedPrecisionBlocklist is forwarded so the server can disable fp16 for matching models.
	MixedPrecisionBlocklist []string `json:"mixed_precision_blocklist"`
}

// HTTPClassifier calls POST {endpoint}/classify.
type HTTPClassifier struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	labels     LabelMap
	caps       Capabilities
}

type classifyRequest struct {
	Model          string `json:"model"`
	Pairs          []Pair `json:"pairs"`
	MaxLength      int    `json:"max_length"`
	MixedPrecision bool   `json:"mixed_precision"`
}

type classifyResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

type modelInfoResponse struct {
	ID2Label map[string]string `json:"id2label"`
}

// NewHTTPClassifier connects to the server and resolves the model's labels.
func NewHTTPClassifier(ctx context.Context, config HTTPConfig) (*HTTPClassifier, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint URL is required")
	}
	device, err := types.ParseDevice(config.Device)
	if err != nil {
		return nil, err
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	blocklist := config.MixedPrecisionBlocklist
	if blocklist == nil {
		blocklist = DefaultMixedPrecisionBlocklist
	}

	c := &HTTPClassifier{
		baseURL:    strings.TrimRight(config.Endpoint, "/"),
		apiKey:     config.APIKey,
		model:      config.Model,
		httpClient: &http.Client{Timeout: timeout},
		caps: Capabilities{
			Backend:        BackendHTTP,
			Model:          config.Model,
			Device:         device.String(),
			MixedPrecision: SupportsMixedPrecision(config.Model, device, blocklist),
		},
	}

	var info modelInfoResponse
	if err := c.makeRequest(ctx, http.MethodGet, "/models/info?model="+url.QueryEscape(config.Model), nil, &info); err != nil {
		return nil, fmt.Errorf("failed to fetch model info: %w", err)
	}
	mcfg := modelConfig{ID2Label: info.ID2Label}
	c.labels, err = mcfg.labels()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Health checks that the inference server is reachable.
func (c *HTTPClassifier) Health(ctx context.Context) error {
	return c.makeRequest(ctx, http.MethodGet, "/health", nil, nil)
}

// Classify sends the batch in a single request.
func (c *HTTPClassifier) Classify(ctx context.Context, pairs []Pair, maxLength int) ([]Distribution, error) {
	if len(pairs) == 0 {
		return []Distribution{}, nil
	}
	if c.httpClient == nil {
		return nil, ErrClassifierClosed
	}

	request := classifyRequest{
		Model:          c.model,
		Pairs:          pairs,
		MaxLength:      maxLength,
		MixedPrecision: c.caps.MixedPrecision,
	}
	var result classifyResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/classify", request, &result); err != nil {
		return nil, NewInferenceError(string(BackendHTTP), len(pairs), err)
	}
	if len(result.Probabilities) != len(pairs) {
		return nil, fmt.Errorf("%w: %d results for %d pairs", ErrShapeMismatch, len(result.Probabilities), len(pairs))
	}

	probs := make([]Probabilities, len(pairs))
	for i, p := range result.Probabilities {
		probs[i] = Probabilities(p)
	}
	return c.labels.canonicalAll(probs)
}

// Labels returns the label vocabulary reported by the server.
func (c *HTTPClassifier) Labels() LabelMap {
	return c.labels
}

// Capabilities returns the load-time capability flags.
func (c *HTTPClassifier) Capabilities() Capabilities {
	return c.caps
}

// Close releases idle connections.
func (c *HTTPClassifier) Close() error {
	if c.httpClient != nil {
		c.httpClient.CloseIdleConnections()
		c.httpClient = nil
	}
	return nil
}

func (c *HTTPClassifier) makeRequest(ctx context.Context, method, path string, request, result interface{}) error {
	var body io.Reader
	if request != nil {
		reqBody, err := json.Marshal(request)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if request != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiError struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(raw, &apiError)
		if apiError.Detail == "" {
			apiError.Detail = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiError.Detail)
	}

	if result == nil {
		return nil
	}
	return json.Unmarshal(raw, result)
}
