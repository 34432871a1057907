// Package keyword indexes analysed documents for keyword search, tagged with
// the run, cluster and dominant topic they were assigned.
package keyword

import (
	"context"

	"github.com/hyperjump/doctopics/internal/models"
)

// Filter restricts a search. Zero values match everything.
type Filter struct {
	RunID   string
	Cluster *int
	// Fuzziness enables typo tolerant matching with the given edit distance (1 or 2).
	Fuzziness int
}

// Index defines keyword indexing and search over analysed runs.
type Index interface {
	IndexRun(ctx context.Context, docs []*models.Document, assignments []*models.DocumentAssignment) error
	Search(ctx context.Context, query string, limit int, filter Filter) ([]*models.SearchHit, error)
	DeleteRun(ctx context.Context, runID string) error
	DocCount() (uint64, error)
	Close() error
}
