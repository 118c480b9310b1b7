package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for Cohere-compatible rerank endpoints.
const (
	DefaultCohereBaseURL = "https://api.cohere.ai/v1"
	DefaultCohereModel   = "rerank-english-v3.0"
	DefaultCohereTimeout = 30 * time.Second
	// cohereMaxDocuments is the per-request document cap of the rerank API.
	cohereMaxDocuments = 1000
)

// CohereConfig configures a Cohere-compatible /rerank client.
type CohereConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RequestsPerSecond throttles outgoing requests when positive.
	RequestsPerSecond float64
	Burst             int
}

// CohereScorer scores candidates with a hosted cross-encoder behind a Cohere-compatible rerank API.
type CohereScorer struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	limiter *rate.Limiter
}

type cohereRerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopN      int      `json:"top_n"`
}

type cohereRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// NewCohereScorer creates a rerank client for cfg.
func NewCohereScorer(cfg CohereConfig) (*CohereScorer, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCohereBaseURL
	}
	if cfg.BaseURL == DefaultCohereBaseURL && cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere scorer: API key is required for %s", DefaultCohereBaseURL)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCohereModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultCohereTimeout
	}
	s := &CohereScorer{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s, nil
}

// Score sends the whole candidate set in one rerank request and maps results back to input order.
func (s *CohereScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return []float64{}, nil
	}
	if len(texts) > cohereMaxDocuments {
		return nil, fmt.Errorf("cohere scorer: %d candidates exceeds the limit of %d", len(texts), cohereMaxDocuments)
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("cohere scorer: rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(cohereRerankRequest{Query: query, Documents: texts, Model: s.model, TopN: len(texts)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cohere scorer: API returned status %d: %s", resp.StatusCode, string(raw))
	}

	var out cohereRerankResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, r := range out.Results {
		if r.Index < 0 || r.Index >= len(texts) || seen[r.Index] {
			return nil, fmt.Errorf("cohere scorer: unexpected result index %d", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("cohere scorer: no score for candidate %d", i)
		}
	}
	return scores, nil
}

// Close releases idle connections.
func (s *CohereScorer) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
