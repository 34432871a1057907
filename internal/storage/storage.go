// Package storage persists analysis runs: the run summary, per-document
// assignments and the fitted topics.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/doctopics/internal/models"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Storage defines run persistence operations.
type Storage interface {
	SaveRun(ctx context.Context, run *models.Run, docs []*models.DocumentAssignment, topics []models.Topic) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	LatestRun(ctx context.Context) (*models.Run, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error)
	GetAssignments(ctx context.Context, runID string) ([]*models.DocumentAssignment, error)
	GetTopics(ctx context.Context, runID string) ([]models.Topic, error)
	DeleteRun(ctx context.Context, id string) error
	CountRuns(ctx context.Context) (int64, error)

	Close() error
}
