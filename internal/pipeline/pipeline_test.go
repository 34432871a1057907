package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/doctopics/internal/cluster"
	"github.com/hyperjump/doctopics/internal/config"
	"github.com/hyperjump/doctopics/internal/embedding"
	"github.com/hyperjump/doctopics/internal/fileid"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDoc(path, category, text string) *models.Document {
	return &models.Document{
		ID:       fileid.DocID(path),
		Path:     path,
		Category: category,
		Content:  text,
		Tokens:   strings.Fields(text),
	}
}

func corpusDocs() []*models.Document {
	return []*models.Document{
		newDoc("/c/sci.space/1", "sci.space", "rocket launch orbit nasa rocket shuttle orbit launch"),
		newDoc("/c/sci.space/2", "sci.space", "nasa shuttle orbit rocket launch moon orbit"),
		newDoc("/c/sci.space/3", "sci.space", "moon orbit rocket nasa launch shuttle"),
		newDoc("/c/sci.med/1", "sci.med", "doctor patient disease treatment clinic doctor"),
		newDoc("/c/sci.med/2", "sci.med", "patient treatment disease doctor medicine clinic"),
		newDoc("/c/sci.med/3", "sci.med", "medicine disease patient doctor treatment"),
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.Embedding.Dimension = 8
	cfg.Embedding.Epochs = 3
	cfg.Embedding.MinCount = 1
	cfg.Topics.NumTopics = 2
	cfg.Topics.Passes = 5
	cfg.Cluster.K = 2
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	docs := corpusDocs()
	p := New(testConfig(t), WithLogger(zap.NewNop()))

	res, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.True(t, fileid.ValidRunID(res.RunID))
	assert.NotEmpty(t, res.Config)
	require.Len(t, res.Vectors, len(docs))
	require.Equal(t, len(docs), res.Similarity.N())
	require.Len(t, res.Assignment.Labels, len(docs))
	assert.Equal(t, 0, res.Assignment.Labels[0])
	assert.Equal(t, res.Assignment.Labels, cluster.Canonical(res.Assignment.Labels))

	for i := range docs {
		assert.Equal(t, 1.0, res.Similarity.At(i, i))
		assert.Equal(t, res.Similarity.At(i, 0), res.Scatter[i].X)
		assert.Equal(t, res.Similarity.At(i, 1), res.Scatter[i].Y)
		assert.Equal(t, res.Assignment.Labels[i], res.Scatter[i].Label)
		assert.Len(t, res.Vectors[i], 8)
	}

	sizes := res.ClusterSizes()
	require.Len(t, sizes, 2)
	assert.Equal(t, len(docs), sizes[0]+sizes[1])

	total := 0
	for _, hist := range res.ClusterTopics() {
		require.Len(t, hist, 2)
		for _, n := range hist {
			total += n
		}
	}
	assert.Equal(t, len(docs), total)

	assert.Equal(t, 1.0, res.Coverage.Coverage())
	assert.Len(t, res.Topics.Topics(), 2)
	for _, stage := range []string{"topics", "embedding", "vectorize", "similarity", "cluster"} {
		assert.Contains(t, res.Timings, stage)
	}

	run := res.Run()
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, len(docs), run.NumDocuments)
	assert.Equal(t, 2, run.K)
	assert.Equal(t, 8, run.EmbeddingDim)

	assignments := res.Assignments()
	require.Len(t, assignments, len(docs))
	for i, a := range assignments {
		assert.Equal(t, i, a.Index)
		assert.Equal(t, docs[i].ID, a.ID)
		assert.Equal(t, res.RunID, a.RunID)
		assert.Equal(t, len(docs[i].Tokens), a.NumTokens)
	}
}

func TestRun_Deterministic(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg).Run(context.Background(), corpusDocs())
	require.NoError(t, err)
	b, err := New(cfg).Run(context.Background(), corpusDocs())
	require.NoError(t, err)

	assert.Equal(t, a.Assignment.Labels, b.Assignment.Labels)
	assert.Equal(t, a.Vectors, b.Vectors)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRun_WithVocabulary(t *testing.T) {
	vocab, err := embedding.NewVocabulary([]string{"cat", "dog"}, [][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)

	docs := []*models.Document{
		newDoc("/c/a", "pets", "cat cat"),
		newDoc("/c/b", "pets", "dog"),
		newDoc("/c/c", "birds", "bird"),
	}
	res, err := New(testConfig(t), WithVocabulary(vocab)).Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{1, 0}, {0, 1}, {0, 0}}, res.Vectors)
	assert.Equal(t, 1, res.Coverage.EmptyDocuments)
	assert.Equal(t, 0.0, res.Similarity.At(0, 1))
	assert.Equal(t, 0.0, res.Similarity.At(2, 2))
	assert.Equal(t, 0.0, res.Similarity.At(0, 2))
}

func TestRun_WithEmbedder(t *testing.T) {
	res, err := New(testConfig(t), WithEmbedder(embedding.NewHashEmbedder(16))).Run(context.Background(), corpusDocs())
	require.NoError(t, err)
	assert.Equal(t, 16, res.Vocabulary.Dimension())
	assert.Len(t, res.Vectors[0], 16)
}

func TestRun_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		docs []*models.Document
		k    int
	}{
		{"no documents", nil, 2},
		{"k larger than corpus", corpusDocs()[:2], 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Cluster.K = tt.k
			_, err := New(cfg).Run(context.Background(), tt.docs)
			if !errors.Is(err, cluster.ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(t)).Run(ctx, corpusDocs())
	require.Error(t, err)
}
