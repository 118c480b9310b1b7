package embedding

import "strings"

const (
	tokenCLS = 101
	tokenSEP = 102
	vocab    = 30000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
	// TokenizePair encodes "[CLS] a [SEP] b [SEP]" with segment IDs 0 and 1, as cross-encoders expect.
	TokenizePair(a, b string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs, attentionMask, tokenTypeIDs = make([]int64, maxTokens), make([]int64, maxTokens), make([]int64, maxTokens)
	pos := put(inputIDs, attentionMask, 0, tokenCLS)
	for _, word := range SplitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		pos = put(inputIDs, attentionMask, pos, wordID(word))
	}
	put(inputIDs, attentionMask, pos, tokenSEP)
	return inputIDs, attentionMask, tokenTypeIDs
}

// TokenizePair truncates a and b to share maxTokens, giving b whatever a leaves unused.
func (t *SimpleTokenizer) TokenizePair(a, b string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	inputIDs, attentionMask, tokenTypeIDs = make([]int64, maxTokens), make([]int64, maxTokens), make([]int64, maxTokens)
	wordsA, wordsB := SplitWords(a), SplitWords(b)
	budget := maxTokens - 3
	if budget < 0 {
		budget = 0
	}
	if len(wordsA)+len(wordsB) > budget {
		maxA := budget / 2
		if len(wordsB) < budget-maxA {
			maxA = budget - len(wordsB)
		}
		if len(wordsA) > maxA {
			wordsA = wordsA[:maxA]
		}
		if len(wordsA)+len(wordsB) > budget {
			wordsB = wordsB[:budget-len(wordsA)]
		}
	}

	pos := put(inputIDs, attentionMask, 0, tokenCLS)
	for _, w := range wordsA {
		pos = put(inputIDs, attentionMask, pos, wordID(w))
	}
	pos = put(inputIDs, attentionMask, pos, tokenSEP)
	segB := pos
	for _, w := range wordsB {
		pos = put(inputIDs, attentionMask, pos, wordID(w))
	}
	end := put(inputIDs, attentionMask, pos, tokenSEP)
	for i := segB; i < end && i < maxTokens; i++ {
		tokenTypeIDs[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

func put(ids, mask []int64, pos int, id int64) int {
	if pos >= len(ids) {
		return pos
	}
	ids[pos] = id
	mask[pos] = 1
	return pos + 1
}

func wordID(word string) int64 {
	return int64(HashString(strings.ToLower(word))%(vocab-1000)) + 1000
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		h = 0
	}
	return h
}
