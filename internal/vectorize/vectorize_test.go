package vectorize

import (
	"context"
	"testing"

	"github.com/hyperjump/doctopics/internal/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func petVocabulary(t *testing.T) *embedding.Vocabulary {
	t.Helper()
	v, err := embedding.NewVocabulary([]string{"cat", "dog"}, [][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)
	return v
}

func TestVector(t *testing.T) {
	vz := New(petVocabulary(t))
	tests := []struct {
		name   string
		tokens []string
		want   []float64
	}{
		{"mean of known tokens", []string{"cat", "dog"}, []float64{0.5, 0.5}},
		{"unknown token only", []string{"fish"}, []float64{0, 0}},
		{"empty document", nil, []float64{0, 0}},
		{"unknown tokens skipped", []string{"fish", "cat", "bird"}, []float64{1, 0}},
		{"duplicates weighted", []string{"cat", "cat", "cat", "dog"}, []float64{0.75, 0.25}},
		{"case sensitive", []string{"Cat"}, []float64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vz.Vector(tt.tokens)
			require.Len(t, got, 2)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestVector_doesNotMutateVocabulary(t *testing.T) {
	vocab := petVocabulary(t)
	vz := New(vocab)
	vec := vz.Vector([]string{"cat"})
	vec[0] = 42
	assert.Equal(t, []float64{1, 0}, vocab.Vector("cat"))
	assert.Equal(t, []float64{1, 0}, vz.Vector([]string{"cat"}))
}

func TestVectors(t *testing.T) {
	vz := New(petVocabulary(t))
	docs := [][]string{{"cat", "dog"}, {"fish"}, {"dog", "fish"}}
	vecs, stats, err := vz.Vectors(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float64{0, 0}, vecs[1])
	assert.Equal(t, []float64{0, 1}, vecs[2])
	assert.Equal(t, Stats{Documents: 3, EmptyDocuments: 1, Tokens: 5, MatchedTokens: 3}, stats)
	assert.InDelta(t, 0.6, stats.Coverage(), 1e-12)
	assert.Equal(t, 2, vz.Dimension())
}

func TestVectors_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New(petVocabulary(t)).Vectors(ctx, [][]string{{"cat"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStats_CoverageEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Stats{}.Coverage())
}
