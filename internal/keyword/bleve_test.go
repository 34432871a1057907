package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/doctopics/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func indexSampleRun(t *testing.T, idx *BleveIndex, runID string) {
	t.Helper()
	docs := []*models.Document{
		{ID: "doc:1", Path: "/c/sci.space/1", Category: "sci.space", Content: "The shuttle launch was delayed by NASA."},
		{ID: "doc:2", Path: "/c/sci.space/2", Category: "sci.space", Content: "Orbit insertion after launch."},
		{ID: "doc:3", Path: "/c/sci.med/1", Category: "sci.med", Content: "The patient received treatment after the launch party."},
	}
	assignments := []*models.DocumentAssignment{
		{RunID: runID, Index: 0, ID: "doc:1", Path: docs[0].Path, Category: "sci.space", Cluster: 0, DominantTopic: 1},
		{RunID: runID, Index: 1, ID: "doc:2", Path: docs[1].Path, Category: "sci.space", Cluster: 0, DominantTopic: 1},
		{RunID: runID, Index: 2, ID: "doc:3", Path: docs[2].Path, Category: "sci.med", Cluster: 1, DominantTopic: 0},
	}
	if err := idx.IndexRun(context.Background(), docs, assignments); err != nil {
		t.Fatalf("IndexRun: %v", err)
	}
}

func TestBleveIndex_SearchFindsContent(t *testing.T) {
	idx := newTestIndex(t)
	indexSampleRun(t, idx, "run-a")

	hits, err := idx.Search(context.Background(), "shuttle", 10, Filter{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.DocumentID != "doc:1" || h.RunID != "run-a" || h.Category != "sci.space" || h.Topic != 1 {
		t.Errorf("unexpected hit %+v", h)
	}
	if h.Score <= 0 {
		t.Errorf("expected positive score, got %f", h.Score)
	}
	if len(h.Highlights["content"]) == 0 {
		t.Error("expected content highlights")
	}
}

func TestBleveIndex_ClusterFilter(t *testing.T) {
	idx := newTestIndex(t)
	indexSampleRun(t, idx, "run-a")
	ctx := context.Background()

	all, err := idx.Search(ctx, "launch", 10, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(all))
	}

	one := 1
	filtered, err := idx.Search(ctx, "launch", 10, Filter{Cluster: &one})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].DocumentID != "doc:3" || filtered[0].Cluster != 1 {
		t.Errorf("unexpected filtered hits %+v", filtered)
	}
}

func TestBleveIndex_RunFilterAndDelete(t *testing.T) {
	idx := newTestIndex(t)
	indexSampleRun(t, idx, "run-a")
	indexSampleRun(t, idx, "run-b")
	ctx := context.Background()

	n, err := idx.DocCount()
	if err != nil || n != 6 {
		t.Fatalf("DocCount: %v, %d", err, n)
	}

	hits, err := idx.Search(ctx, "orbit", 10, Filter{RunID: "run-b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].RunID != "run-b" {
		t.Errorf("unexpected hits %+v", hits)
	}

	if err := idx.DeleteRun(ctx, "run-a"); err != nil {
		t.Fatal(err)
	}
	n, _ = idx.DocCount()
	if n != 3 {
		t.Errorf("expected 3 documents after delete, got %d", n)
	}
	hits, _ = idx.Search(ctx, "orbit", 10, Filter{RunID: "run-a"})
	if len(hits) != 0 {
		t.Errorf("expected no hits for deleted run, got %d", len(hits))
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	indexSampleRun(t, idx, "run-a")

	hits, err := idx.Search(context.Background(), "patiant", 10, Filter{Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].DocumentID != "doc:3" {
		t.Errorf("expected fuzzy match on doc:3, got %+v", hits)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	indexSampleRun(t, idx, "run-a")
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	n, err := reopened.DocCount()
	if err != nil || n != 3 {
		t.Errorf("DocCount after reopen: %v, %d", err, n)
	}
}

func TestBleveIndex_MismatchedRun(t *testing.T) {
	idx := newTestIndex(t)
	err := idx.IndexRun(context.Background(), []*models.Document{{ID: "doc:1"}}, nil)
	if err == nil {
		t.Fatal("expected error for mismatched documents and assignments")
	}
}
