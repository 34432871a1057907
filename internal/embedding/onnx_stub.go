//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"fmt"
)

// ONNXEmbedder is unavailable without CGO; see onnx.go.
type ONNXEmbedder struct{}

// NewONNXEmbedder always fails with ErrONNXUnavailable when built without CGO.
func NewONNXEmbedder(_ string, _, _, _ int) (*ONNXEmbedder, error) {
	return nil, fmt.Errorf("%w: build with CGO_ENABLED=1 and onnxruntime", ErrONNXUnavailable)
}

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, ErrONNXUnavailable
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
