//go:build cgo
// +build cgo

package rerank

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/kensaku/internal/embedding"
)

// ONNXConfig configures a local cross-encoder such as ms-marco-MiniLM-L-6-v2.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	MaxTokens   int
	// OutputName is the single-logit output of the graph (default "logits").
	OutputName string
}

// ONNXScorer runs a cross-encoder over each (query, text) pair and squashes the logit with a sigmoid.
type ONNXScorer struct {
	session   *ort.AdvancedSession
	maxTokens int
	tokenizer embedding.Tokenizer

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	logits        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewONNXScorer loads the cross-encoder at cfg.ModelPath.
func NewONNXScorer(cfg ONNXConfig) (*ONNXScorer, error) {
	if err := embedding.InitONNXRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "logits"
	}
	s := &ONNXScorer{maxTokens: cfg.MaxTokens, tokenizer: &embedding.SimpleTokenizer{}}
	shape := ort.NewShape(1, int64(cfg.MaxTokens))

	var err error
	if s.inputIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if s.attentionMask, err = ort.NewEmptyTensor[int64](shape); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if s.tokenTypeIDs, err = ort.NewEmptyTensor[int64](shape); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if s.logits, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 1)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create logits tensor: %w", err)
	}
	s.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{s.inputIDs, s.attentionMask, s.tokenTypeIDs},
		[]ort.ArbitraryTensor{s.logits},
		nil,
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return s, nil
}

// Score runs one inference per candidate while holding the session lock for the whole set.
func (s *ONNXScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, mask, types := s.tokenizer.TokenizePair(query, text, s.maxTokens)
		copy(s.inputIDs.GetData(), ids)
		copy(s.attentionMask.GetData(), mask)
		copy(s.tokenTypeIDs.GetData(), types)
		if err := s.session.Run(); err != nil {
			return nil, fmt.Errorf("inference failed: %w", err)
		}
		scores[i] = sigmoid(float64(s.logits.GetData()[0]))
	}
	return scores, nil
}

// Close destroys the session and tensors.
func (s *ONNXScorer) Close() error {
	var err error
	if s.session != nil {
		err = s.session.Destroy()
		s.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{s.inputIDs, s.attentionMask, s.tokenTypeIDs} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if s.logits != nil {
		_ = s.logits.Destroy()
	}
	s.inputIDs, s.attentionMask, s.tokenTypeIDs, s.logits = nil, nil, nil, nil
	return err
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
