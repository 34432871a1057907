package embedding

import (
	"hash/fnv"
	"strings"
)

const (
	clsTokenID = 101
	sepTokenID = 102
	vocabSize  = 30000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer maps whitespace-separated words to hashed IDs between [CLS] and [SEP].
type SimpleTokenizer struct{}

// Tokenize produces padded token IDs up to maxTokens (at least 2).
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens < 2 {
		maxTokens = 2
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1

	pos := 1
	for _, word := range strings.Fields(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(strings.ToLower(word)) % vocabSize)
		attentionMask[pos] = 1
		pos++
	}
	inputIDs[pos] = sepTokenID
	attentionMask[pos] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32())
}
