// Package bow builds term-by-document count matrices from raw document text.
package bow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/james-bowman/nlp"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyVocabulary is returned when no term survives tokenization and filtering.
var ErrEmptyVocabulary = errors.New("bag of words has no terms")

// Builder turns texts into a count matrix. Terms are lower-cased letter runs;
// stop words are dropped.
type Builder struct {
	stopWords []string
	minDF     int
}

// NewBuilder returns a builder that drops stopWords and any term found in
// fewer than minDF documents.
func NewBuilder(stopWords []string, minDF int) *Builder {
	if minDF < 1 {
		minDF = 1
	}
	return &Builder{stopWords: stopWords, minDF: minDF}
}

// Build vectorizes texts. Returns ErrEmptyVocabulary when no term is left.
func (b *Builder) Build(texts []string) (*Matrix, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyVocabulary
	}
	vectoriser := nlp.NewCountVectoriser(b.stopWords...)
	counts, err := vectoriser.FitTransform(texts...)
	if err != nil {
		return nil, fmt.Errorf("count terms: %w", err)
	}
	if len(vectoriser.Vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}

	if b.minDF > 1 {
		df := make([]int, len(vectoriser.Vocabulary))
		eachNonZero(counts, func(term, _ int, _ float64) { df[term]++ })
		kept := make([]string, 0, len(df))
		for term, row := range vectoriser.Vocabulary {
			if df[row] >= b.minDF {
				kept = append(kept, term)
			}
		}
		if len(kept) == 0 {
			return nil, ErrEmptyVocabulary
		}
		sort.Strings(kept)
		vocab := make(map[string]int, len(kept))
		for i, term := range kept {
			vocab[term] = i
		}
		vectoriser.Vocabulary = vocab
		if counts, err = vectoriser.Transform(texts...); err != nil {
			return nil, fmt.Errorf("count terms: %w", err)
		}
	}
	return newMatrix(counts, vectoriser.Vocabulary), nil
}

// Matrix is a term × document count matrix and its vocabulary.
type Matrix struct {
	counts mat.Matrix
	terms  []string
	index  map[string]int
	totals []float64
	df     []int
}

func newMatrix(counts mat.Matrix, vocab map[string]int) *Matrix {
	m := &Matrix{
		counts: counts,
		terms:  make([]string, len(vocab)),
		index:  make(map[string]int, len(vocab)),
		totals: make([]float64, len(vocab)),
		df:     make([]int, len(vocab)),
	}
	for term, row := range vocab {
		m.terms[row] = term
		m.index[term] = row
	}
	eachNonZero(counts, func(term, _ int, v float64) {
		m.totals[term] += v
		m.df[term]++
	})
	return m
}

// Counts returns the term × document matrix.
func (m *Matrix) Counts() mat.Matrix {
	return m.counts
}

// Dims returns the number of terms and documents.
func (m *Matrix) Dims() (terms, docs int) {
	return m.counts.Dims()
}

// Terms returns the terms in row order.
func (m *Matrix) Terms() []string {
	return append([]string(nil), m.terms...)
}

// Term returns the term at row i.
func (m *Matrix) Term(i int) string {
	return m.terms[i]
}

// TermCount returns how often term occurs across the corpus.
func (m *Matrix) TermCount(term string) int {
	i, ok := m.index[term]
	if !ok {
		return 0
	}
	return int(m.totals[i])
}

// DocumentFrequency returns the number of documents containing term.
func (m *Matrix) DocumentFrequency(term string) int {
	i, ok := m.index[term]
	if !ok {
		return 0
	}
	return m.df[i]
}

// Count returns the occurrences of term in document doc.
func (m *Matrix) Count(term string, doc int) int {
	i, ok := m.index[term]
	if !ok {
		return 0
	}
	return int(m.counts.At(i, doc))
}

type nonZeroDoer interface {
	DoNonZero(fn func(i, j int, v float64))
}

func eachNonZero(m mat.Matrix, fn func(i, j int, v float64)) {
	if nz, ok := m.(nonZeroDoer); ok {
		nz.DoNonZero(fn)
		return
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := m.At(i, j); v != 0 {
				fn(i, j, v)
			}
		}
	}
}
