// Package indexer runs analyses over the corpus and records each run in
// storage, the keyword index and the saved vocabulary.
package indexer

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/doctopics/internal/config"
	"github.com/hyperjump/doctopics/internal/corpus"
	"github.com/hyperjump/doctopics/internal/extract"
	"github.com/hyperjump/doctopics/internal/keyword"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/pipeline"
	"github.com/hyperjump/doctopics/internal/storage"
	"go.uber.org/zap"
)

// Indexer analyses the corpus and persists each run.
type Indexer struct {
	storage      storage.Storage
	keywordIndex keyword.Index
	config       *config.Config
	extractor    *extract.Extractor
	logger       *zap.Logger

	// mu serializes analyses; each one reads the whole corpus.
	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for run progress.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// NewIndexer creates an indexer. keywordIndex may be nil to skip keyword indexing.
func NewIndexer(
	storage storage.Storage,
	keywordIndex keyword.Index,
	cfg *config.Config,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		keywordIndex: keywordIndex,
		config:       cfg,
		extractor:    extractor,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Analyze loads the corpus, runs the pipeline and stores the result.
// Request fields override the configured directories, k and topic count.
func (idx *Indexer) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*pipeline.Result, error) {
	if req == nil {
		req = &models.AnalyzeRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	cfg := idx.runConfig(req)

	loader := corpus.NewLoader(idx.extractor,
		corpus.WithLogger(idx.logger),
		corpus.WithExtensions(cfg.Corpus.Extensions),
		corpus.WithCategories(cfg.Corpus.Categories),
		corpus.WithRecursive(cfg.Corpus.RecursiveOrDefault()),
		corpus.WithMaxDocuments(cfg.Corpus.MaxDocuments),
	)
	docs, err := loader.Load(ctx, cfg.Corpus.Directories)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	res, err := pipeline.New(&cfg, pipeline.WithLogger(idx.logger)).Run(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := idx.Record(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Record stores a finished run: summary, assignments and topics in storage,
// documents in the keyword index, and the vocabulary on disk.
func (idx *Indexer) Record(ctx context.Context, res *pipeline.Result) error {
	assignments := res.Assignments()
	if err := idx.storage.SaveRun(ctx, res.Run(), assignments, res.Topics.Topics()); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.IndexRun(ctx, res.Documents, assignments); err != nil {
			return fmt.Errorf("failed to index run: %w", err)
		}
	}
	if path := idx.config.Storage.VocabularyPath; path != "" {
		if err := res.Vocabulary.Save(path); err != nil {
			return fmt.Errorf("failed to save vocabulary: %w", err)
		}
	}
	idx.logger.Info("run recorded",
		zap.String("run_id", res.RunID),
		zap.Int("documents", len(res.Documents)),
	)
	return nil
}

// DeleteRun removes a run from storage and the keyword index.
func (idx *Indexer) DeleteRun(ctx context.Context, id string) error {
	idx.logger.Debug("deleting run", zap.String("run_id", id))
	if err := idx.storage.DeleteRun(ctx, id); err != nil {
		return err
	}
	if idx.keywordIndex != nil {
		if err := idx.keywordIndex.DeleteRun(ctx, id); err != nil {
			return fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	return nil
}

func (idx *Indexer) runConfig(req *models.AnalyzeRequest) config.Config {
	cfg := *idx.config
	if len(req.Directories) > 0 {
		cfg.Corpus.Directories = req.Directories
	}
	if req.K > 0 {
		cfg.Cluster.K = req.K
	}
	if req.NumTopics > 0 {
		cfg.Topics.NumTopics = req.NumTopics
	}
	return cfg
}
