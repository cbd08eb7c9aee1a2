package nli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/soundprediction/contradict/pkg/types"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Files expected in an ONNX model directory.
const (
	ModelFile     = "model.onnx"
	ModelFP16File = "model_fp16.onnx"
	TokenizerFile = "tokenizer.json"
	ConfigFile    = "config.json"
)

var ortMu sync.Mutex

// initRuntime initialises the process-wide ONNX Runtime environment once.
func initRuntime(library string) error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if library != "" {
		ort.SetSharedLibraryPath(library)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialise onnxruntime: %w", err)
	}
	return nil
}

// ShutdownRuntime destroys the ONNX Runtime environment. Call after every ONNX
// classifier has been closed.
func ShutdownRuntime() error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// ONNXConfig configures a local ONNX classifier.
type ONNXConfig struct {
	// Dir holds model.onnx, tokenizer.json and config.json.
	Dir string
	// Device is "cpu" or "cuda[:N]".
	Device string
	// Library is the path to the onnxruntime shared library. Empty uses the default lookup.
	Library string
	// MixedPrecisionBlocklist disables the fp16 graph for matching model names.
	MixedPrecisionBlocklist []string
	// IntraOpThreads bounds CPU parallelism inside a forward pass. 0 keeps the runtime default.
	IntraOpThreads int
	Logger         *slog.Logger
}

// ONNXClassifier runs a sequence-classification model through ONNX Runtime.
type ONNXClassifier struct {
	// sessionMu guards the session lifetime. Run is safe for concurrent use.
	sessionMu sync.RWMutex
	// tkMu guards the tokenizer, whose truncation settings are mutable.
	tkMu       sync.Mutex
	session    *ort.DynamicAdvancedSession
	tk         *tokenizer.Tokenizer
	inputNames []string
	outputName string
	labels     LabelMap
	caps       Capabilities
	padID      int64
	truncation int
	logger     *slog.Logger
}

// NewONNXClassifier loads the model in cfg.Dir.
func NewONNXClassifier(cfg ONNXConfig) (*ONNXClassifier, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	device, err := types.ParseDevice(cfg.Device)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(cfg.Dir, ModelFile)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.Dir)
	}

	mcfg, err := readModelConfig(filepath.Join(cfg.Dir, ConfigFile))
	if err != nil {
		return nil, err
	}
	labels, err := mcfg.labels()
	if err != nil {
		return nil, err
	}
	padID := int64(0)
	if mcfg.PadTokenID != nil {
		padID = int64(*mcfg.PadTokenID)
	}

	blocklist := cfg.MixedPrecisionBlocklist
	if blocklist == nil {
		blocklist = DefaultMixedPrecisionBlocklist
	}
	name := cfg.Dir
	if mcfg.NameOrPath != "" {
		name = mcfg.NameOrPath + " " + cfg.Dir
	}
	caps := Capabilities{
		Backend:        BackendONNX,
		Model:          cfg.Dir,
		Device:         device.String(),
		MixedPrecision: SupportsMixedPrecision(name, device, blocklist),
	}

	graph := filepath.Join(cfg.Dir, ModelFile)
	if caps.MixedPrecision {
		if _, err := os.Stat(filepath.Join(cfg.Dir, ModelFP16File)); err == nil {
			graph = filepath.Join(cfg.Dir, ModelFP16File)
		} else {
			caps.MixedPrecision = false
		}
	}

	tk, err := pretrained.FromFile(filepath.Join(cfg.Dir, TokenizerFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	if err := initRuntime(cfg.Library); err != nil {
		return nil, err
	}

	inputNames, output, err := inspectGraph(graph)
	if err != nil {
		return nil, err
	}
	if output.DataType != ort.TensorElementDataTypeFloat {
		if !caps.MixedPrecision {
			return nil, fmt.Errorf("%w: output %q of %s is not float32", ErrShapeMismatch, output.Name, graph)
		}
		logger.Warn("fp16 graph has non-float32 outputs, using the full precision graph",
			"model", cfg.Dir, "output", output.Name)
		caps.MixedPrecision = false
		graph = filepath.Join(cfg.Dir, ModelFile)
		if inputNames, output, err = inspectGraph(graph); err != nil {
			return nil, err
		}
		if output.DataType != ort.TensorElementDataTypeFloat {
			return nil, fmt.Errorf("%w: output %q of %s is not float32", ErrShapeMismatch, output.Name, graph)
		}
	}
	outputName := output.Name

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if cfg.IntraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}
	if device.IsAccelerator() {
		if err := appendCUDA(opts, device); err != nil {
			return nil, err
		}
	}

	session, err := ort.NewDynamicAdvancedSession(graph, inputNames, []string{outputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create onnx session for %s: %w", graph, err)
	}

	logger.Info("NLI model loaded",
		"model", cfg.Dir,
		"graph", filepath.Base(graph),
		"device", caps.Device,
		"mixed_precision", caps.MixedPrecision,
		"contradiction_index", labels.Contradiction)

	return &ONNXClassifier{
		session:    session,
		tk:         tk,
		inputNames: inputNames,
		outputName: outputName,
		labels:     labels,
		caps:       caps,
		padID:      padID,
		logger:     logger,
	}, nil
}

// inspectGraph returns the supported input names and the logits output of graph.
func inspectGraph(graph string) ([]string, ort.InputOutputInfo, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(graph)
	if err != nil {
		return nil, ort.InputOutputInfo{}, fmt.Errorf("failed to inspect %s: %w", graph, err)
	}
	inputNames, err := modelInputs(inputs)
	if err != nil {
		return nil, ort.InputOutputInfo{}, fmt.Errorf("model %s: %w", graph, err)
	}
	output, err := logitsOutput(outputs)
	if err != nil {
		return nil, ort.InputOutputInfo{}, fmt.Errorf("model %s: %w", graph, err)
	}
	return inputNames, output, nil
}

func modelInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	names := make([]string, 0, len(inputs))
	for _, in := range inputs {
		switch in.Name {
		case "input_ids", "attention_mask", "token_type_ids":
			names = append(names, in.Name)
		default:
			return nil, fmt.Errorf("unsupported model input %q", in.Name)
		}
	}
	if !slices.Contains(names, "input_ids") {
		return nil, errors.New("no input_ids input")
	}
	return names, nil
}

// logitsOutput prefers an output named "logits" and otherwise takes the first.
func logitsOutput(outputs []ort.InputOutputInfo) (ort.InputOutputInfo, error) {
	if len(outputs) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("%w: no outputs declared", ErrShapeMismatch)
	}
	for _, out := range outputs {
		if out.Name == "logits" {
			return out, nil
		}
	}
	return outputs[0], nil
}

func appendCUDA(opts *ort.SessionOptions, device types.Device) error {
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("failed to create CUDA provider options: %w", err)
	}
	defer cudaOpts.Destroy()
	if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(device.Index)}); err != nil {
		return fmt.Errorf("failed to configure CUDA provider: %w", err)
	}
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		return fmt.Errorf("failed to enable CUDA provider: %w", err)
	}
	return nil
}

// Classify tokenises the pairs, runs one forward pass and applies softmax to the logits.
func (c *ONNXClassifier) Classify(ctx context.Context, pairs []Pair, maxLength int) ([]Distribution, error) {
	if len(pairs) == 0 {
		return []Distribution{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	if c.session == nil {
		return nil, ErrClassifierClosed
	}

	batch, err := c.encode(pairs, maxLength)
	if err != nil {
		return nil, NewInferenceError(string(BackendONNX), len(pairs), err)
	}

	logits, err := c.run(batch)
	if err != nil {
		return nil, NewInferenceError(string(BackendONNX), len(pairs), err)
	}

	numLabels := c.labels.Size()
	if len(logits) != len(pairs)*numLabels {
		return nil, fmt.Errorf("%w: got %d logits for %d pairs x %d labels", ErrShapeMismatch, len(logits), len(pairs), numLabels)
	}
	probs := make([]Probabilities, len(pairs))
	for i := range probs {
		probs[i] = Softmax(logits[i*numLabels : (i+1)*numLabels])
	}
	return c.labels.canonicalAll(probs)
}

// encodedBatch holds row-major [rows, seqLen] model inputs.
type encodedBatch struct {
	rows    int
	seqLen  int
	ids     []int64
	mask    []int64
	typeIDs []int64
}

func (c *ONNXClassifier) encode(pairs []Pair, maxLength int) (*encodedBatch, error) {
	if maxLength <= 0 {
		maxLength = types.DefaultMaxLength
	}
	c.tkMu.Lock()
	defer c.tkMu.Unlock()
	if c.truncation != maxLength {
		c.tk.WithTruncation(&tokenizer.TruncationParams{
			MaxLength: maxLength,
			Strategy:  tokenizer.LongestFirst,
			Stride:    0,
		})
		c.truncation = maxLength
	}

	encodings := make([]*tokenizer.Encoding, len(pairs))
	seqLen := 0
	for i, p := range pairs {
		enc, err := c.tk.EncodePair(p.Premise, p.Hypothesis, true)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenise pair %d: %w", i, err)
		}
		encodings[i] = enc
		seqLen = max(seqLen, min(len(enc.Ids), maxLength))
	}
	if seqLen == 0 {
		return nil, errors.New("all pairs tokenised to empty sequences")
	}

	b := &encodedBatch{
		rows:    len(pairs),
		seqLen:  seqLen,
		ids:     make([]int64, len(pairs)*seqLen),
		mask:    make([]int64, len(pairs)*seqLen),
		typeIDs: make([]int64, len(pairs)*seqLen),
	}
	for r, enc := range encodings {
		base := r * seqLen
		for t := 0; t < seqLen; t++ {
			if t >= len(enc.Ids) {
				b.ids[base+t] = c.padID
				continue
			}
			b.ids[base+t] = int64(enc.Ids[t])
			b.mask[base+t] = 1
			if t < len(enc.TypeIds) {
				b.typeIDs[base+t] = int64(enc.TypeIds[t])
			}
		}
	}
	return b, nil
}

func (c *ONNXClassifier) run(b *encodedBatch) ([]float32, error) {
	shape := ort.NewShape(int64(b.rows), int64(b.seqLen))
	inputs := make([]ort.Value, 0, len(c.inputNames))
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	for _, name := range c.inputNames {
		var data []int64
		switch name {
		case "input_ids":
			data = b.ids
		case "attention_mask":
			data = b.mask
		case "token_type_ids":
			data = b.typeIDs
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s tensor: %w", name, err)
		}
		inputs = append(inputs, t)
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(b.rows), int64(c.labels.Size())))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate output tensor: %w", err)
	}
	defer output.Destroy()

	if err := c.session.Run(inputs, []ort.Value{output}); err != nil {
		return nil, err
	}
	return slices.Clone(output.GetData()), nil
}

// Labels returns the label vocabulary read from config.json.
func (c *ONNXClassifier) Labels() LabelMap {
	return c.labels
}

// Capabilities returns the load-time capability flags.
func (c *ONNXClassifier) Capabilities() Capabilities {
	return c.caps
}

// Close destroys the session. It is safe to call more than once.
func (c *ONNXClassifier) Close() error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Destroy()
	c.session = nil
	c.logger.Info("NLI model unloaded", "model", c.caps.Model, "device", c.caps.Device)
	return err
}
