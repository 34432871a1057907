//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/doctopics/pkg/utils"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	onnxInputNames  = []string{"input_ids", "attention_mask", "token_type_ids"}
	onnxOutputNames = []string{"output"}
)

// onnxTensors are the session's bound buffers. Run reads the inputs and
// overwrites output in place.
type onnxTensors struct {
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

func newONNXTensors(maxTokens, dimensions int) (*onnxTensors, error) {
	t := &onnxTensors{}
	inputShape := ort.NewShape(1, int64(maxTokens))
	var err error
	if t.inputIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	if t.attentionMask, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		t.destroy()
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	if t.tokenTypeIDs, err = ort.NewEmptyTensor[int64](inputShape); err != nil {
		t.destroy()
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	if t.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions))); err != nil {
		t.destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	return t, nil
}

func (t *onnxTensors) inputs() []ort.ArbitraryTensor {
	return []ort.ArbitraryTensor{t.inputIDs, t.attentionMask, t.tokenTypeIDs}
}

func (t *onnxTensors) load(ids, mask, types []int64) {
	copy(t.inputIDs.GetData(), ids)
	copy(t.attentionMask.GetData(), mask)
	copy(t.tokenTypeIDs.GetData(), types)
}

func (t *onnxTensors) destroy() {
	if t.inputIDs != nil {
		_ = t.inputIDs.Destroy()
	}
	if t.attentionMask != nil {
		_ = t.attentionMask.Destroy()
	}
	if t.tokenTypeIDs != nil {
		_ = t.tokenTypeIDs.Destroy()
	}
	if t.output != nil {
		_ = t.output.Destroy()
	}
	*t = onnxTensors{}
}

// ONNXEmbedder embeds vocabulary tokens with a sentence-embedding model run
// through ONNX Runtime. Needs CGO and the onnxruntime shared library.
// The model takes BERT-style inputs and emits a [1, dimensions] "output" tensor.
type ONNXEmbedder struct {
	mu         sync.Mutex // guards tensors and session during Run
	session    *ort.AdvancedSession
	tensors    *onnxTensors
	tokenizer  Tokenizer
	dimensions int
	maxTokens  int
	cache      *Cache[string, []float32]
}

// NewONNXEmbedder loads the model at modelPath. Errors wrap ErrONNXUnavailable
// when the runtime itself cannot be initialized.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) (*ONNXEmbedder, error) {
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrONNXUnavailable, err)
		}
	}
	maxTokens = max(maxTokens, 2)
	tensors, err := newONNXTensors(maxTokens, dimensions)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewAdvancedSession(modelPath, onnxInputNames, onnxOutputNames,
		tensors.inputs(), []ort.ArbitraryTensor{tensors.output}, nil)
	if err != nil {
		tensors.destroy()
		return nil, fmt.Errorf("load onnx model %s: %w", modelPath, err)
	}
	return &ONNXEmbedder{
		session:    session,
		tensors:    tensors,
		tokenizer:  &SimpleTokenizer{},
		dimensions: dimensions,
		maxTokens:  maxTokens,
		cache:      NewCache[string, []float32](cacheSize),
	}, nil
}

// Embed returns the unit-length embedding for text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := e.cache.Get(text); ok {
		return v, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder closed")
	}
	e.tensors.load(e.tokenizer.Tokenize(text, e.maxTokens))
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx inference for %q: %w", text, err)
	}
	v := append([]float32(nil), e.tensors.output.GetData()[:e.dimensions]...)
	utils.NormalizeL2(v)
	e.cache.Set(text, v)
	return v, nil
}

func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases the session and its tensors. Safe to call twice.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.tensors != nil {
		e.tensors.destroy()
		e.tensors = nil
	}
	return err
}
