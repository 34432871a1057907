// Package vectorize reduces tokenized documents to fixed-length vectors by
// averaging the embeddings of their in-vocabulary tokens.
package vectorize

import (
	"context"

	"github.com/hyperjump/doctopics/internal/embedding"
	"gonum.org/v1/gonum/mat"
)

// Vectorizer turns token sequences into document vectors using an immutable lookup.
type Vectorizer struct {
	lookup embedding.Lookup
}

// New returns a vectorizer over lookup.
func New(lookup embedding.Lookup) *Vectorizer {
	return &Vectorizer{lookup: lookup}
}

// Dimension returns the length of every vector produced.
func (v *Vectorizer) Dimension() int {
	return v.lookup.Dimension()
}

// Vector returns the element-wise mean of the embeddings of the tokens found in
// the vocabulary. Repeated tokens count once per occurrence. A document with no
// known token yields the zero vector.
func (v *Vectorizer) Vector(tokens []string) []float64 {
	vec, _ := v.vector(tokens)
	return vec
}

func (v *Vectorizer) vector(tokens []string) ([]float64, int) {
	sum := mat.NewVecDense(v.lookup.Dimension(), nil)
	var n int
	for _, tok := range tokens {
		emb, ok := v.lookup.Lookup(tok)
		if !ok {
			continue
		}
		sum.AddVec(sum, emb)
		n++
	}
	if n > 0 {
		sum.ScaleVec(1/float64(n), sum)
	}
	return sum.RawVector().Data, n
}

// Stats counts vocabulary hits over a batch of documents.
type Stats struct {
	Documents      int `json:"documents"`
	EmptyDocuments int `json:"empty_documents"`
	Tokens         int `json:"tokens"`
	MatchedTokens  int `json:"matched_tokens"`
}

// Coverage returns the fraction of tokens found in the vocabulary.
func (s Stats) Coverage() float64 {
	if s.Tokens == 0 {
		return 0
	}
	return float64(s.MatchedTokens) / float64(s.Tokens)
}

// Vectors returns one vector per document, in input order.
func (v *Vectorizer) Vectors(ctx context.Context, docs [][]string) ([][]float64, Stats, error) {
	out := make([][]float64, len(docs))
	stats := Stats{Documents: len(docs)}
	for i, tokens := range docs {
		if err := ctx.Err(); err != nil {
			return nil, Stats{}, err
		}
		vec, n := v.vector(tokens)
		out[i] = vec
		stats.Tokens += len(tokens)
		stats.MatchedTokens += n
		if n == 0 {
			stats.EmptyDocuments++
		}
	}
	return out, stats, nil
}
