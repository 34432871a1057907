package bow

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	texts := []string{"The cat sat on the mat", "The dog sat", "cat cat"}
	m, err := NewBuilder(EnglishStopWords(), 1).Build(texts)
	require.NoError(t, err)

	terms, docs := m.Dims()
	assert.Equal(t, 3, docs)
	assert.Equal(t, 4, terms)
	assert.ElementsMatch(t, []string{"cat", "sat", "mat", "dog"}, m.Terms())
	assert.Equal(t, 3, m.TermCount("cat"))
	assert.Equal(t, 2, m.DocumentFrequency("cat"))
	assert.Equal(t, 2, m.Count("cat", 2))
	assert.Equal(t, 0, m.Count("dog", 0))
	assert.Equal(t, 0, m.TermCount("the"), "stop words are dropped")
	assert.Equal(t, 0, m.TermCount("unicorn"))
}

func TestBuild_minDF(t *testing.T) {
	texts := []string{"cat sat mat", "dog sat", "sat cat"}
	m, err := NewBuilder(nil, 2).Build(texts)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "sat"}, m.Terms())
	assert.Equal(t, 3, m.TermCount("sat"))
	assert.Equal(t, 1, m.Count("cat", 2))
	assert.Equal(t, "sat", m.Term(1))
}

func TestBuild_empty(t *testing.T) {
	_, err := NewBuilder(nil, 1).Build(nil)
	assert.True(t, errors.Is(err, ErrEmptyVocabulary))

	_, err = NewBuilder(EnglishStopWords(), 1).Build([]string{"the and of", "It is"})
	assert.True(t, errors.Is(err, ErrEmptyVocabulary))

	_, err = NewBuilder(nil, 3).Build([]string{"cat", "dog"})
	assert.True(t, errors.Is(err, ErrEmptyVocabulary))
}

func TestLoadStopWords(t *testing.T) {
	english, err := LoadStopWords(English)
	require.NoError(t, err)
	assert.Contains(t, english, "the")
	assert.Contains(t, english, "and")

	none, err := LoadStopWords(None)
	require.NoError(t, err)
	assert.Empty(t, none)

	path := filepath.Join(t.TempDir(), "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("| custom list\nfoo\nbar\n"), 0600))
	custom, err := LoadStopWords(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar", "foo"}, custom)

	_, err = LoadStopWords(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
