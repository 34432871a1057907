// Package cli formats runs, assignments and search results for the command line.
package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/pipeline"
	"github.com/hyperjump/doctopics/internal/topics"
	"github.com/hyperjump/doctopics/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCSV writes scatter points, one document per row.
	OutputCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, json or csv)", s)
	}
}

var scatterHeader = []string{"index", "id", "category", "label", "x", "y"}

// ClusterSummary describes one cluster of a run.
type ClusterSummary struct {
	Label      int            `json:"label"`
	Size       int            `json:"size"`
	Categories map[string]int `json:"categories"`
	Topics     []int          `json:"dominant_topics"`
}

// RunSummary is the JSON form of a finished analysis.
type RunSummary struct {
	Run      *models.Run      `json:"run"`
	Topics   []models.Topic   `json:"topics"`
	Clusters []ClusterSummary `json:"clusters"`
	Coverage float64          `json:"coverage"`
	Empty    int              `json:"empty_documents"`
}

// Summarize builds the summary of res.
func Summarize(res *pipeline.Result) *RunSummary {
	sizes := res.ClusterSizes()
	categories := res.ClusterCategories()
	clusterTopics := res.ClusterTopics()
	clusters := make([]ClusterSummary, len(sizes))
	for c := range sizes {
		clusters[c] = ClusterSummary{
			Label:      c,
			Size:       sizes[c],
			Categories: categories[c],
			Topics:     clusterTopics[c],
		}
	}
	return &RunSummary{
		Run:      res.Run(),
		Topics:   res.Topics.Topics(),
		Clusters: clusters,
		Coverage: res.Coverage.Coverage(),
		Empty:    res.Coverage.EmptyDocuments,
	}
}

// WriteRunSummary writes the outcome of an analysis: topics, then clusters with
// their category mix. CSV writes the scatter points.
func WriteRunSummary(w io.Writer, res *pipeline.Result, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, Summarize(res))
	case OutputCSV:
		return writeScatterCSV(w, res.Scatter)
	}

	s := Summarize(res)
	fmt.Fprintf(w, "Run %s\n", s.Run.ID)
	fmt.Fprintf(w, "Documents: %d  Clusters: %d  Topics: %d  Embedding: %d dims\n",
		s.Run.NumDocuments, s.Run.K, s.Run.NumTopics, s.Run.EmbeddingDim)
	fmt.Fprintf(w, "Vocabulary coverage: %.1f%%", 100*s.Coverage)
	if s.Empty > 0 {
		fmt.Fprintf(w, " (%d documents without known tokens)", s.Empty)
	}
	fmt.Fprintf(w, "\nInertia: %.4f\n\n", s.Run.Inertia)

	WriteTopics(w, s.Topics)
	fmt.Fprintln(w)
	for _, c := range s.Clusters {
		fmt.Fprintf(w, "Cluster %d: %d documents\n", c.Label, c.Size)
		for _, name := range sortedKeys(c.Categories) {
			fmt.Fprintf(w, "  %-30s %d\n", name, c.Categories[name])
		}
		if t, n := argmax(c.Topics); n > 0 {
			fmt.Fprintf(w, "  dominant topic: %d (%d documents)\n", t+1, n)
		}
	}
	return nil
}

// WriteTopics writes topics in the "Topic 1: 0.012*"space" + ..." form.
func WriteTopics(w io.Writer, ts []models.Topic) {
	for _, line := range topics.FormatTopics(ts) {
		fmt.Fprintln(w, line)
	}
}

// WriteRuns writes stored runs, newest first.
func WriteRuns(w io.Writer, runs []*models.Run, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if runs == nil {
			runs = []*models.Run{}
		}
		return writeJSON(w, runs)
	case OutputCSV:
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"id", "created_at", "documents", "k", "topics", "embedding_dim", "inertia"})
		for _, r := range runs {
			_ = cw.Write([]string{
				r.ID,
				r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				strconv.Itoa(r.NumDocuments),
				strconv.Itoa(r.K),
				strconv.Itoa(r.NumTopics),
				strconv.Itoa(r.EmbeddingDim),
				formatFloat(r.Inertia),
			})
		}
		cw.Flush()
		return cw.Error()
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-20s  %6s  %3s  %6s  %10s\n", "ID", "CREATED", "DOCS", "K", "TOPICS", "INERTIA")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-20s  %6d  %3d  %6d  %10.4f\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.NumDocuments, r.K, r.NumTopics, r.Inertia)
	}
	return nil
}

// WriteAssignments writes the per-document outcome of a run. CSV writes the
// scatter points index,id,category,label,x,y.
func WriteAssignments(w io.Writer, docs []*models.DocumentAssignment, format OutputFormat) error {
	switch format {
	case OutputJSON:
		if docs == nil {
			docs = []*models.DocumentAssignment{}
		}
		return writeJSON(w, docs)
	case OutputCSV:
		points := make([]models.ScatterPoint, len(docs))
		for i, d := range docs {
			points[i] = models.ScatterPoint{Index: d.Index, ID: d.ID, Category: d.Category, Label: d.Cluster, X: d.X, Y: d.Y}
		}
		return writeScatterCSV(w, points)
	}

	fmt.Fprintf(w, "%5s  %7s  %5s  %-20s  %s\n", "INDEX", "CLUSTER", "TOPIC", "CATEGORY", "PATH")
	for _, d := range docs {
		fmt.Fprintf(w, "%5d  %7d  %5d  %-20s  %s\n",
			d.Index, d.Cluster, d.DominantTopic+1, utils.Truncate(d.Category, 20), d.Path)
	}
	return nil
}

// WriteSearchResults writes keyword search hits.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for i, hit := range response.Hits {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. %s\n", i+1, hit.Path)
		fmt.Fprintf(w, "Score: %.4f | Cluster: %d | Topic: %d | Category: %s\n",
			hit.Score, hit.Cluster, hit.Topic+1, hit.Category)
		for _, fragment := range hit.Highlights["content"] {
			fmt.Fprintf(w, "  %s\n", utils.Truncate(fragment, 200))
		}
		fmt.Fprintln(w)
	}
	return nil
}

func writeScatterCSV(w io.Writer, points []models.ScatterPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scatterHeader); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{
			strconv.Itoa(p.Index),
			p.ID,
			p.Category,
			strconv.Itoa(p.Label),
			formatFloat(p.X),
			formatFloat(p.Y),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func argmax(counts []int) (idx, n int) {
	for i, c := range counts {
		if c > n {
			idx, n = i, c
		}
	}
	return idx, n
}
