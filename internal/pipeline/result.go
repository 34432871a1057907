package pipeline

import (
	"time"

	"github.com/hyperjump/doctopics/internal/cluster"
	"github.com/hyperjump/doctopics/internal/embedding"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/similarity"
	"github.com/hyperjump/doctopics/internal/topics"
	"github.com/hyperjump/doctopics/internal/vectorize"
)

// Result holds every artifact of one run.
type Result struct {
	RunID      string
	CreatedAt  time.Time
	Config     string
	Documents  []*models.Document
	Topics     *topics.Model
	Vocabulary *embedding.Vocabulary
	Vectors    [][]float64
	Similarity *similarity.Matrix
	Assignment *cluster.Assignment
	Scatter    []models.ScatterPoint
	Coverage   vectorize.Stats
	Timings    map[string]time.Duration
}

// ClusterSizes returns the number of documents per cluster.
func (r *Result) ClusterSizes() []int {
	return r.Assignment.Sizes()
}

// ClusterTopics returns, for each cluster, how many of its documents have each
// topic as their dominant topic.
func (r *Result) ClusterTopics() [][]int {
	out := make([][]int, r.Assignment.K)
	for c := range out {
		out[c] = make([]int, r.Topics.NumTopics())
	}
	for i, label := range r.Assignment.Labels {
		out[label][r.Topics.DominantTopic(i)]++
	}
	return out
}

// ClusterCategories returns, for each cluster, the count of documents per category.
func (r *Result) ClusterCategories() []map[string]int {
	out := make([]map[string]int, r.Assignment.K)
	for c := range out {
		out[c] = make(map[string]int)
	}
	for i, label := range r.Assignment.Labels {
		out[label][r.Documents[i].Category]++
	}
	return out
}

// Run returns the run summary for persistence.
func (r *Result) Run() *models.Run {
	return &models.Run{
		ID:           r.RunID,
		CreatedAt:    r.CreatedAt,
		NumDocuments: len(r.Documents),
		K:            r.Assignment.K,
		NumTopics:    r.Topics.NumTopics(),
		EmbeddingDim: r.Vocabulary.Dimension(),
		Inertia:      r.Assignment.Inertia,
		Config:       r.Config,
	}
}

// Assignments returns the per-document outcome for persistence.
func (r *Result) Assignments() []*models.DocumentAssignment {
	out := make([]*models.DocumentAssignment, len(r.Documents))
	for i, d := range r.Documents {
		out[i] = &models.DocumentAssignment{
			RunID:         r.RunID,
			Index:         i,
			ID:            d.ID,
			Path:          d.Path,
			Category:      d.Category,
			NumTokens:     len(d.Tokens),
			Cluster:       r.Assignment.Labels[i],
			DominantTopic: r.Topics.DominantTopic(i),
			X:             r.Scatter[i].X,
			Y:             r.Scatter[i].Y,
		}
	}
	return out
}
