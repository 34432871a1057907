package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/doctopics/pkg/utils"
)

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// HashEmbedder derives a deterministic unit vector from the text hash. It stands in
// for a model when none is configured; equal texts always get equal vectors.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a hash embedder of the given dimension (default 100).
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 100
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the embedding for text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h)*float64(i+1))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashEmbedder) Close() error {
	return nil
}

// CachedEmbedder memoizes another Embedder in an LRU cache.
type CachedEmbedder struct {
	Embedder
	cache *Cache[string, []float32]
}

// NewCachedEmbedder wraps e with a cache holding up to size embeddings.
func NewCachedEmbedder(e Embedder, size int) *CachedEmbedder {
	return &CachedEmbedder{Embedder: e, cache: NewCache[string, []float32](size)}
}

// Embed returns the cached embedding for text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v)
	return v, nil
}

// EmbedBatch calls Embed for each text.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, c, texts)
}

func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// BuildFromEmbedder embeds every token with e and returns the resulting vocabulary.
// Duplicate tokens are embedded once.
func BuildFromEmbedder(ctx context.Context, e Embedder, tokens []string) (*Vocabulary, error) {
	seen := make(map[string]struct{}, len(tokens))
	uniq := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		uniq = append(uniq, tok)
	}
	if len(uniq) == 0 {
		return nil, ErrEmptyCorpus
	}
	embs, err := e.EmbedBatch(ctx, uniq)
	if err != nil {
		return nil, fmt.Errorf("embed tokens: %w", err)
	}
	vectors := make([][]float64, len(embs))
	for i, emb := range embs {
		if len(emb) != e.Dimensions() {
			return nil, fmt.Errorf("%w: %q has %d, expected %d", ErrDimensionMismatch, uniq[i], len(emb), e.Dimensions())
		}
		vectors[i] = make([]float64, len(emb))
		for d, x := range emb {
			vectors[i][d] = float64(x)
		}
	}
	return NewVocabulary(uniq, vectors)
}

// ErrONNXUnavailable is returned when the ONNX runtime cannot be used.
var ErrONNXUnavailable = errors.New("onnx runtime unavailable")
