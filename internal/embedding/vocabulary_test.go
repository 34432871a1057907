package embedding

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVocabulary(t *testing.T) {
	v, err := NewVocabulary([]string{"cat", "dog"}, [][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Dimension())
	assert.Equal(t, 2, v.Len())
	assert.True(t, v.Contains("cat"))
	assert.False(t, v.Contains("fish"))
	assert.Equal(t, []float64{0, 1}, v.Vector("dog"))
	assert.Nil(t, v.Vector("fish"))

	vec, ok := v.Lookup("cat")
	require.True(t, ok)
	assert.Equal(t, 2, vec.Len())
	assert.Equal(t, 1.0, vec.AtVec(0))

	_, ok = v.Lookup("fish")
	assert.False(t, ok)
}

func TestNewVocabulary_copiesInput(t *testing.T) {
	tokens := []string{"a"}
	vectors := [][]float64{{1, 2}}
	v, err := NewVocabulary(tokens, vectors)
	require.NoError(t, err)
	tokens[0] = "z"
	vectors[0][0] = 9
	assert.True(t, v.Contains("a"))
	assert.Equal(t, []float64{1, 2}, v.Vector("a"))

	out := v.Vector("a")
	out[0] = 5
	assert.Equal(t, []float64{1, 2}, v.Vector("a"))
}

func TestNewVocabulary_errors(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		vectors [][]float64
		target  error
	}{
		{"empty", nil, nil, ErrEmptyVocabulary},
		{"ragged", []string{"a", "b"}, [][]float64{{1, 2}, {1}}, ErrDimensionMismatch},
		{"zero dimension", []string{"a"}, [][]float64{{}}, ErrDimensionMismatch},
		{"length mismatch", []string{"a", "b"}, [][]float64{{1}}, nil},
		{"duplicate", []string{"a", "a"}, [][]float64{{1}, {2}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVocabulary(tt.tokens, tt.vectors)
			require.Error(t, err)
			if tt.target != nil {
				assert.True(t, errors.Is(err, tt.target), "got %v", err)
			}
		})
	}
}

func TestCountTokens(t *testing.T) {
	docs := [][]string{{"a", "b", "a"}, {"b", "c", "a"}}
	got := CountTokens(docs, 2)
	assert.Equal(t, []TokenCount{{"a", 3}, {"b", 2}}, got)
	assert.Len(t, CountTokens(docs, 1), 3)
	assert.Empty(t, CountTokens(nil, 1))
}
