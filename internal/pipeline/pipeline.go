// Package pipeline chains corpus documents through topic modeling, word
// embeddings, document vectors, similarity and clustering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/doctopics/internal/bow"
	"github.com/hyperjump/doctopics/internal/cluster"
	"github.com/hyperjump/doctopics/internal/config"
	"github.com/hyperjump/doctopics/internal/embedding"
	"github.com/hyperjump/doctopics/internal/fileid"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/similarity"
	"github.com/hyperjump/doctopics/internal/topics"
	"github.com/hyperjump/doctopics/internal/vectorize"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Pipeline runs the full analysis over a set of documents.
type Pipeline struct {
	cfg        *config.Config
	logger     *zap.Logger
	embedder   embedding.Embedder
	vocabulary *embedding.Vocabulary
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for stage progress.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithEmbedder builds the vocabulary from e instead of the configured source.
func WithEmbedder(e embedding.Embedder) Option {
	return func(p *Pipeline) { p.embedder = e }
}

// WithVocabulary uses v and skips the embedding stage.
func WithVocabulary(v *embedding.Vocabulary) Option {
	return func(p *Pipeline) { p.vocabulary = v }
}

// New returns a pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run analyses docs. It fails with cluster.ErrInvalidConfiguration before any
// work when there are no documents or more clusters than documents.
func (p *Pipeline) Run(ctx context.Context, docs []*models.Document) (*Result, error) {
	n, k := len(docs), p.cfg.Cluster.K
	if n == 0 || k <= 0 || k > n {
		return nil, fmt.Errorf("%w: k=%d with %d documents", cluster.ErrInvalidConfiguration, k, n)
	}

	res := &Result{
		RunID:     fileid.RunID(),
		CreatedAt: time.Now().UTC(),
		Documents: docs,
		Timings:   make(map[string]time.Duration),
	}
	if raw, err := yaml.Marshal(p.cfg); err == nil {
		res.Config = string(raw)
	}
	p.logger.Info("analysis started", zap.String("run_id", res.RunID), zap.Int("documents", n), zap.Int("k", k))

	tokens := make([][]string, n)
	texts := make([]string, n)
	for i, d := range docs {
		tokens[i] = d.Tokens
		texts[i] = d.Content
	}

	if err := p.stage(res, "topics", func() error {
		m, err := p.fitTopics(ctx, texts)
		res.Topics = m
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(res, "embedding", func() error {
		v, err := p.buildVocabulary(ctx, tokens)
		res.Vocabulary = v
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(res, "vectorize", func() error {
		vecs, stats, err := vectorize.New(res.Vocabulary).Vectors(ctx, tokens)
		res.Vectors, res.Coverage = vecs, stats
		return err
	}); err != nil {
		return nil, err
	}
	if res.Coverage.EmptyDocuments > 0 {
		p.logger.Warn("documents without known tokens use the zero vector",
			zap.Int("documents", res.Coverage.EmptyDocuments))
	}

	if err := p.stage(res, "similarity", func() error {
		engine := similarity.NewEngine(similarity.WithWorkers(p.cfg.Similarity.Workers), similarity.WithLogger(p.logger))
		m, err := engine.Compute(ctx, res.Vectors)
		res.Similarity = m
		return err
	}); err != nil {
		return nil, err
	}

	if err := p.stage(res, "cluster", func() error {
		km := cluster.New(cluster.Config{
			K:             k,
			Seed:          p.cfg.Cluster.Seed,
			MaxIterations: p.cfg.Cluster.MaxIterations,
			Tolerance:     p.cfg.Cluster.Tolerance,
			Restarts:      p.cfg.Cluster.Restarts,
		}, cluster.WithLogger(p.logger))
		a, err := km.Fit(ctx, res.Similarity.Rows())
		res.Assignment = a
		return err
	}); err != nil {
		return nil, err
	}

	res.Scatter = scatter(res)
	p.logger.Info("analysis finished",
		zap.String("run_id", res.RunID),
		zap.Ints("cluster_sizes", res.ClusterSizes()),
		zap.Float64("inertia", res.Assignment.Inertia),
		zap.Float64("coverage", res.Coverage.Coverage()),
	)
	return res, nil
}

func (p *Pipeline) stage(res *Result, name string, fn func() error) error {
	start := time.Now()
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	res.Timings[name] = time.Since(start)
	p.logger.Info("stage done", zap.String("stage", name), zap.Duration("elapsed", res.Timings[name]))
	return nil
}

func (p *Pipeline) fitTopics(ctx context.Context, texts []string) (*topics.Model, error) {
	stop, err := bow.LoadStopWords(p.cfg.BOW.StopWords)
	if err != nil {
		return nil, err
	}
	counts, err := bow.NewBuilder(stop, p.cfg.BOW.MinDF).Build(texts)
	if err != nil {
		return nil, err
	}
	modeler := topics.NewModeler(topics.Config{
		NumTopics: p.cfg.Topics.NumTopics,
		Passes:    p.cfg.Topics.Passes,
		Seed:      p.cfg.Topics.Seed,
		TopTerms:  p.cfg.Topics.TopTerms,
		Workers:   p.cfg.Topics.Workers,
	}, topics.WithLogger(p.logger))
	return modeler.Fit(ctx, counts)
}

func (p *Pipeline) buildVocabulary(ctx context.Context, tokens [][]string) (*embedding.Vocabulary, error) {
	if p.vocabulary != nil {
		return p.vocabulary, nil
	}
	ec := p.cfg.Embedding
	if p.embedder != nil {
		return p.embedTokens(ctx, p.embedder, tokens)
	}
	switch ec.Source {
	case config.SourceText:
		return embedding.LoadTextFile(ec.VectorsPath)
	case config.SourceONNX:
		onnx, err := embedding.NewONNXEmbedder(ec.ModelPath, ec.Dimension, ec.MaxTokens, ec.CacheSize)
		if errors.Is(err, embedding.ErrONNXUnavailable) {
			p.logger.Warn("onnx runtime unavailable, falling back to hash embeddings", zap.Error(err))
			hash := embedding.NewCachedEmbedder(embedding.NewHashEmbedder(ec.Dimension), ec.CacheSize)
			return p.embedTokens(ctx, hash, tokens)
		}
		if err != nil {
			return nil, err
		}
		defer onnx.Close()
		return p.embedTokens(ctx, onnx, tokens)
	default:
		trainer := embedding.NewTrainer(embedding.TrainerConfig{
			Dimension:    ec.Dimension,
			Window:       ec.Window,
			MinCount:     ec.MinCount,
			Epochs:       ec.Epochs,
			Negative:     ec.Negative,
			LearningRate: ec.LearningRate,
			Seed:         ec.Seed,
		}, embedding.WithTrainerLogger(p.logger))
		return trainer.Train(ctx, tokens)
	}
}

func (p *Pipeline) embedTokens(ctx context.Context, e embedding.Embedder, tokens [][]string) (*embedding.Vocabulary, error) {
	counts := embedding.CountTokens(tokens, p.cfg.Embedding.MinCount)
	list := make([]string, len(counts))
	for i, tc := range counts {
		list[i] = tc.Token
	}
	return embedding.BuildFromEmbedder(ctx, e, list)
}

// scatter projects each document onto the first two similarity coordinates.
func scatter(res *Result) []models.ScatterPoint {
	points := make([]models.ScatterPoint, len(res.Documents))
	for i, d := range res.Documents {
		pt := models.ScatterPoint{
			Index:    i,
			ID:       d.ID,
			Category: d.Category,
			Label:    res.Assignment.Labels[i],
			X:        res.Similarity.At(i, 0),
		}
		if res.Similarity.N() > 1 {
			pt.Y = res.Similarity.At(i, 1)
		}
		points[i] = pt
	}
	return points
}
