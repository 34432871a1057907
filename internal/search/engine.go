// Package search answers keyword queries over recorded runs.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/doctopics/internal/keyword"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/storage"
)

// Engine runs keyword search scoped to one run.
type Engine struct {
	storage      storage.Storage
	keywordIndex keyword.Index
	fuzziness    int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFuzziness enables typo tolerant matching within d edits.
func WithFuzziness(d int) EngineOption {
	return func(e *Engine) { e.fuzziness = d }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(storage storage.Storage, keywordIndex keyword.Index, opts ...EngineOption) *Engine {
	e := &Engine{storage: storage, keywordIndex: keywordIndex}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search validates query and runs it against query.RunID, or the latest run
// when no run is given. Returns storage.ErrNotFound when there is no such run.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	runID := query.RunID
	if runID == "" {
		run, err := e.storage.LatestRun(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("no runs recorded: %w", err)
			}
			return nil, err
		}
		runID = run.ID
	} else if _, err := e.storage.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	hits, err := e.keywordIndex.Search(ctx, query.Query, query.Limit, keyword.Filter{
		RunID:     runID,
		Cluster:   query.Cluster,
		Fuzziness: e.fuzziness,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	if hits == nil {
		hits = []*models.SearchHit{}
	}

	return &models.SearchResponse{
		Hits:      hits,
		Total:     len(hits),
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
	}, nil
}
