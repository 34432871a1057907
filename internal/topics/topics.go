// Package topics fits an LDA topic model over a bag-of-words matrix.
package topics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/doctopics/internal/bow"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/james-bowman/nlp"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidTopics is returned when the topic count is not positive or there is nothing to model.
var ErrInvalidTopics = errors.New("invalid topic model configuration")

// inferencePasses bounds the per-document passes when transforming documents.
const inferencePasses = 50

// Config holds LDA settings.
type Config struct {
	NumTopics int
	Passes    int
	Seed      int64
	TopTerms  int
	Workers   int
}

// Modeler fits LDA models.
type Modeler struct {
	cfg    Config
	logger *zap.Logger
}

// Option configures a Modeler.
type Option func(*Modeler)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Modeler) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewModeler returns a modeler. Passes, TopTerms and Workers default to 10, 10 and 1.
func NewModeler(cfg Config, opts ...Option) *Modeler {
	if cfg.Passes <= 0 {
		cfg.Passes = 10
	}
	if cfg.TopTerms <= 0 {
		cfg.TopTerms = 10
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	m := &Modeler{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fit runs LDA over counts. With one worker a fixed seed reproduces the model.
func (m *Modeler) Fit(ctx context.Context, counts *bow.Matrix) (*Model, error) {
	if m.cfg.NumTopics <= 0 {
		return nil, fmt.Errorf("%w: num_topics must be positive, got %d", ErrInvalidTopics, m.cfg.NumTopics)
	}
	if counts == nil {
		return nil, fmt.Errorf("%w: no documents", ErrInvalidTopics)
	}
	terms, docs := counts.Dims()
	if terms == 0 || docs == 0 {
		return nil, fmt.Errorf("%w: empty count matrix", ErrInvalidTopics)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lda := nlp.NewLatentDirichletAllocation(m.cfg.NumTopics)
	lda.Iterations = m.cfg.Passes
	lda.TransformationPasses = inferencePasses
	lda.Processes = m.cfg.Workers
	lda.Rnd = rand.New(rand.NewSource(uint64(m.cfg.Seed)))

	start := time.Now()
	docsOverTopics, err := lda.FitTransform(counts.Counts())
	if err != nil {
		return nil, fmt.Errorf("fit lda: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := &Model{
		docTopics: mat.DenseCopyOf(docsOverTopics.T()),
		topics:    topTerms(lda.Components(), counts, m.cfg.TopTerms),
	}
	model.dominant = make([]int, docs)
	for d := range model.dominant {
		model.dominant[d] = floats.MaxIdx(model.docTopics.RawRowView(d))
	}
	m.logger.Info("topic model fitted",
		zap.Int("topics", m.cfg.NumTopics),
		zap.Int("terms", terms),
		zap.Int("documents", docs),
		zap.Duration("elapsed", time.Since(start)),
	)
	return model, nil
}

// topTerms returns, per topic, the n terms with the highest normalized weight.
func topTerms(topicsOverWords mat.Matrix, counts *bow.Matrix, n int) []models.Topic {
	k, w := topicsOverWords.Dims()
	out := make([]models.Topic, k)
	row := make([]float64, w)
	for t := 0; t < k; t++ {
		mat.Row(row, t, topicsOverWords)
		if sum := floats.Sum(row); sum > 0 {
			floats.Scale(1/sum, row)
		}
		terms := make([]models.TopicTerm, w)
		for i, v := range row {
			terms[i] = models.TopicTerm{Term: counts.Term(i), Weight: v}
		}
		sort.Slice(terms, func(a, b int) bool {
			if terms[a].Weight != terms[b].Weight {
				return terms[a].Weight > terms[b].Weight
			}
			return terms[a].Term < terms[b].Term
		})
		if n < len(terms) {
			terms = terms[:n]
		}
		out[t] = models.Topic{Index: t, Terms: terms}
	}
	return out
}

// Model is a fitted topic model.
type Model struct {
	docTopics *mat.Dense // documents × topics
	topics    []models.Topic
	dominant  []int
}

// NumTopics returns the number of topics.
func (m *Model) NumTopics() int {
	return len(m.topics)
}

// Topics returns every topic with its top terms.
func (m *Model) Topics() []models.Topic {
	return m.topics
}

// DocumentTopics returns the topic distribution of document d.
func (m *Model) DocumentTopics(d int) []float64 {
	return mat.Row(nil, d, m.docTopics)
}

// DominantTopic returns the highest weighted topic of document d.
func (m *Model) DominantTopic(d int) int {
	return m.dominant[d]
}

// DominantTopics returns the dominant topic of every document.
func (m *Model) DominantTopics() []int {
	return append([]int(nil), m.dominant...)
}

// Format renders one line per topic, numbered from 1:
//
//	Topic 1: 0.012*"space" + 0.010*"nasa"
func (m *Model) Format() []string {
	return FormatTopics(m.topics)
}

// FormatTopics renders topics the way Model.Format does.
func FormatTopics(topics []models.Topic) []string {
	lines := make([]string, len(topics))
	for i, t := range topics {
		parts := make([]string, len(t.Terms))
		for j, term := range t.Terms {
			parts[j] = fmt.Sprintf("%.3f*%q", term.Weight, term.Term)
		}
		lines[i] = fmt.Sprintf("Topic %d: %s", t.Index+1, strings.Join(parts, " + "))
	}
	return lines
}
