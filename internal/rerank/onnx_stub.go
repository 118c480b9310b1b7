//go:build !cgo
// +build !cgo

package rerank

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX cross-encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXConfig configures a local cross-encoder.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	MaxTokens   int
	OutputName  string
}

// ONNXScorer stub type when built without CGO (see onnx.go for real implementation).
type ONNXScorer struct{}

// NewONNXScorer returns an error when built without CGO.
func NewONNXScorer(ONNXConfig) (*ONNXScorer, error) {
	return nil, errNoCGO
}

func (s *ONNXScorer) Score(context.Context, string, []string) ([]float64, error) {
	return nil, errNoCGO
}

func (s *ONNXScorer) Close() error { return nil }
