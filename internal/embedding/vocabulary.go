// Package embedding provides word-embedding vocabularies: training (skip-gram
// with negative sampling), word2vec text and binary persistence, and
// vocabularies built from a model-backed Embedder.
package embedding

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDimensionMismatch is returned when vectors of different lengths are combined.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrEmptyCorpus is returned when no token survives the min-count filter.
	ErrEmptyCorpus = errors.New("no tokens meet the minimum count")
	// ErrEmptyVocabulary is returned when a vocabulary would hold no tokens.
	ErrEmptyVocabulary = errors.New("vocabulary is empty")
)

// Lookup maps a token to its vector. A miss is reported with ok == false.
type Lookup interface {
	Lookup(token string) (vec mat.Vector, ok bool)
	Dimension() int
}

// Vocabulary is an immutable token to vector mapping with a fixed dimension.
// It is safe for concurrent readers.
type Vocabulary struct {
	tokens  []string
	counts  []int
	index   map[string]int
	vectors *mat.Dense
}

// NewVocabulary copies tokens and vectors into a new Vocabulary. Every vector must
// have the same non-zero length and tokens must be unique.
func NewVocabulary(tokens []string, vectors [][]float64) (*Vocabulary, error) {
	return newVocabulary(tokens, nil, vectors)
}

func newVocabulary(tokens []string, counts []int, vectors [][]float64) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if len(tokens) != len(vectors) {
		return nil, fmt.Errorf("tokens and vectors length mismatch: %d vs %d", len(tokens), len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-length vector for %q", ErrDimensionMismatch, tokens[0])
	}
	data := make([]float64, 0, len(tokens)*dim)
	index := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("%w: %q has %d, expected %d", ErrDimensionMismatch, tok, len(vectors[i]), dim)
		}
		if _, dup := index[tok]; dup {
			return nil, fmt.Errorf("duplicate token %q", tok)
		}
		index[tok] = i
		data = append(data, vectors[i]...)
	}
	v := &Vocabulary{
		tokens:  append([]string(nil), tokens...),
		index:   index,
		vectors: mat.NewDense(len(tokens), dim, data),
	}
	if counts != nil {
		v.counts = append([]int(nil), counts...)
	}
	return v, nil
}

// Lookup returns a read-only view of the token's vector.
func (v *Vocabulary) Lookup(token string) (mat.Vector, bool) {
	i, ok := v.index[token]
	if !ok {
		return nil, false
	}
	return v.vectors.RowView(i), true
}

// Vector returns a copy of the token's vector, or nil when absent.
func (v *Vocabulary) Vector(token string) []float64 {
	i, ok := v.index[token]
	if !ok {
		return nil
	}
	return mat.Row(nil, i, v.vectors)
}

// Contains reports whether token is in the vocabulary.
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.index[token]
	return ok
}

// Count returns the training frequency of token, or 0 when unknown.
func (v *Vocabulary) Count(token string) int {
	i, ok := v.index[token]
	if !ok || v.counts == nil {
		return 0
	}
	return v.counts[i]
}

// Dimension returns the vector length.
func (v *Vocabulary) Dimension() int {
	_, c := v.vectors.Dims()
	return c
}

// Len returns the number of tokens.
func (v *Vocabulary) Len() int {
	return len(v.tokens)
}

// Tokens returns the tokens in vocabulary order.
func (v *Vocabulary) Tokens() []string {
	return append([]string(nil), v.tokens...)
}

// Matrix returns a read-only view of the token × dimension matrix.
func (v *Vocabulary) Matrix() mat.Matrix {
	return v.vectors
}
