package rerank

import (
	"context"
	"math"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// Weights of the lexical score components. They sum to 1 so scores stay in [0, 1].
const (
	coverageWeight   = 0.6
	saturationWeight = 0.3
	phraseWeight     = 0.1
	// bm25K1 controls term frequency saturation.
	bm25K1 = 1.2
	// fuzzyWeight scales a term matched only within the typo tolerance.
	fuzzyWeight = 0.5
)

// LexicalScorer ranks candidates by term overlap with the query. It needs no model and is
// the default when no cross-encoder is configured. Text is analyzed with bleve's standard
// analyzer (unicode tokenization, lowercasing, English stop words).
//
// Each query term is weighted by its BM25 inverse document frequency over the candidate
// set, so terms that appear in every candidate count for less.
type LexicalScorer struct {
	analyze  func([]byte) analysis.TokenStream
	maxEdits int
}

// LexicalOption configures a LexicalScorer.
type LexicalOption func(*LexicalScorer)

// WithTypoTolerance lets query terms of five or more characters match a candidate term
// within maxEdits edits. Such matches count at half weight and never toward the phrase bonus.
func WithTypoTolerance(maxEdits int) LexicalOption {
	return func(s *LexicalScorer) {
		if maxEdits > 0 {
			s.maxEdits = maxEdits
		}
	}
}

// NewLexicalScorer returns a scorer using bleve's standard analyzer.
func NewLexicalScorer(opts ...LexicalOption) *LexicalScorer {
	im := bleve.NewIndexMapping()
	s := &LexicalScorer{analyze: im.AnalyzerNamed(standard.Name).Analyze}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Terms returns the analyzed terms of text in order.
func (s *LexicalScorer) Terms(text string) []string {
	tokens := s.analyze([]byte(text))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// Score returns a value in [0, 1] for each text.
func (s *LexicalScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make([]float64, len(texts))
	queryTerms := unique(s.Terms(query))
	if len(queryTerms) == 0 || len(texts) == 0 {
		return scores, nil
	}

	docs := make([][]string, len(texts))
	freqs := make([]map[string]int, len(texts))
	df := make(map[string]int, len(queryTerms))
	for i, t := range texts {
		docs[i] = s.Terms(t)
		freqs[i] = termFreqs(docs[i])
		for _, q := range queryTerms {
			if freqs[i][q] > 0 {
				df[q]++
			}
		}
	}

	n := float64(len(texts))
	idf := make(map[string]float64, len(queryTerms))
	var idfSum float64
	for _, q := range queryTerms {
		d := float64(df[q])
		idf[q] = math.Log(1 + (n-d+0.5)/(d+0.5))
		idfSum += idf[q]
	}

	phrase := s.Terms(query)
	for i := range texts {
		var covered, saturated float64
		for _, q := range queryTerms {
			tf := float64(freqs[i][q])
			if tf == 0 {
				if nearestWithin(q, freqs[i], s.maxEdits) {
					covered += fuzzyWeight * idf[q]
					saturated += fuzzyWeight * idf[q] / (1 + bm25K1)
				}
				continue
			}
			covered += idf[q]
			saturated += idf[q] * tf / (tf + bm25K1)
		}
		score := coverageWeight*covered/idfSum + saturationWeight*saturated/idfSum
		if len(phrase) > 1 && containsSequence(docs[i], phrase) {
			score += phraseWeight
		}
		scores[i] = score
	}
	return scores, nil
}

// Close is a no-op for LexicalScorer.
func (s *LexicalScorer) Close() error {
	return nil
}

func unique(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func termFreqs(terms []string) map[string]int {
	m := make(map[string]int, len(terms))
	for _, t := range terms {
		m[t]++
	}
	return m
}

func containsSequence(haystack, needle []string) bool {
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}
