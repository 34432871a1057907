// Package similarity computes pairwise cosine similarity between document vectors.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when vectors of different lengths are compared.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Cosine returns the cosine similarity of a and b clamped to [-1, 1].
// Similarity involving a zero vector is 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	return cosine(a, b, floats.Norm(a, 2), floats.Norm(b, 2)), nil
}

func cosine(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	s := floats.Dot(a, b) / (na * nb)
	switch {
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

// Matrix is a symmetric N×N cosine similarity matrix.
type Matrix struct {
	n    int
	data *mat.SymDense
}

// N returns the number of documents.
func (m *Matrix) N() int {
	return m.n
}

// At returns the similarity between documents i and j.
func (m *Matrix) At(i, j int) float64 {
	return m.data.At(i, j)
}

// Row returns a copy of row i, the similarity profile of document i.
func (m *Matrix) Row(i int) []float64 {
	return mat.Row(nil, i, m.data)
}

// Rows returns a copy of every row.
func (m *Matrix) Rows() [][]float64 {
	rows := make([][]float64, m.n)
	for i := range rows {
		rows[i] = m.Row(i)
	}
	return rows
}

// Symmetric returns a read-only view of the underlying matrix, or nil when empty.
func (m *Matrix) Symmetric() mat.Symmetric {
	if m.n == 0 {
		return nil
	}
	return m.data
}

// Neighbor is a document and its similarity to a reference document.
type Neighbor struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Neighbors returns the k documents most similar to document i, excluding i,
// ordered by descending score then index.
func (m *Matrix) Neighbors(i, k int) []Neighbor {
	if k <= 0 || m.n <= 1 {
		return nil
	}
	out := make([]Neighbor, 0, m.n-1)
	for j := 0; j < m.n; j++ {
		if j != i {
			out = append(out, Neighbor{Index: j, Score: m.data.At(i, j)})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if k < len(out) {
		out = out[:k]
	}
	return out
}

// Engine computes similarity matrices, optionally across several goroutines.
type Engine struct {
	workers int
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of rows computed concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an engine; by default it runs on one goroutine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{workers: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute returns the cosine similarity matrix of vectors. The diagonal is 1
// for non-zero vectors and 0 for zero vectors. Every vector must have the same length.
func (e *Engine) Compute(ctx context.Context, vectors [][]float64) (*Matrix, error) {
	n := len(vectors)
	if n == 0 {
		return &Matrix{}, nil
	}
	dim := len(vectors[0])
	norms := make([]float64, n)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		norms[i] = floats.Norm(v, 2)
	}

	data := mat.NewSymDense(n, nil)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Row i owns cells (i, j) for j >= i.
			if norms[i] != 0 {
				data.SetSym(i, i, 1)
			}
			for j := i + 1; j < n; j++ {
				data.SetSym(i, j, cosine(vectors[i], vectors[j], norms[i], norms[j]))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Debug("similarity matrix computed", zap.Int("documents", n), zap.Int("dimension", dim))
	return &Matrix{n: n, data: data}, nil
}
