package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/doctopics/internal/config"
	"github.com/hyperjump/doctopics/internal/extract"
	"github.com/hyperjump/doctopics/internal/indexer"
	"github.com/hyperjump/doctopics/internal/keyword"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/search"
	"github.com/hyperjump/doctopics/internal/storage"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"sci.space/1.txt": "rocket launch orbit nasa rocket shuttle orbit launch",
		"sci.space/2.txt": "nasa shuttle orbit rocket launch moon orbit",
		"sci.space/3.txt": "moon orbit rocket nasa launch shuttle",
		"sci.med/1.txt":   "doctor patient disease treatment clinic doctor",
		"sci.med/2.txt":   "patient treatment disease doctor medicine clinic",
		"sci.med/3.txt":   "medicine disease patient doctor treatment",
	}
	for name, text := range files {
		path := filepath.Join(dir, "corpus", name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default(dir)
	cfg.Embedding.Dimension = 8
	cfg.Embedding.Epochs = 2
	cfg.Embedding.MinCount = 1
	cfg.Topics.NumTopics = 2
	cfg.Topics.Passes = 5
	cfg.Cluster.K = 2

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	kwIdx, err := keyword.NewBleveIndex(cfg.Storage.IndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIdx.Close() })

	logger := zap.NewNop()
	idx := indexer.NewIndexer(store, kwIdx, cfg, extract.NewExtractor(), indexer.WithLogger(logger))
	engine := search.NewEngine(store, kwIdx)
	return NewServer(engine, idx, store, cfg, logger)
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func analyze(t *testing.T, srv *Server) string {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/api/v1/analyze", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("analyze status: got %d body %s", w.Code, w.Body.String())
	}
	var out struct {
		Run          models.Run `json:"run"`
		ClusterSizes []int      `json:"cluster_sizes"`
	}
	decode(t, w, &out)
	if len(out.ClusterSizes) != 2 || out.ClusterSizes[0]+out.ClusterSizes[1] != 6 {
		t.Errorf("cluster sizes: got %v", out.ClusterSizes)
	}
	return out.Run.ID
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	w := do(t, srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body: %s", w.Body.String())
	}
}

func TestRunLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := analyze(t, srv)

	w := do(t, srv, http.MethodGet, "/api/v1/runs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list runs status: got %d", w.Code)
	}
	var list struct {
		Runs []models.Run `json:"runs"`
	}
	decode(t, w, &list)
	if len(list.Runs) != 1 || list.Runs[0].ID != id {
		t.Errorf("runs: got %+v", list.Runs)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/runs/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get run status: got %d", w.Code)
	}
	var run models.Run
	decode(t, w, &run)
	if run.NumDocuments != 6 || run.K != 2 {
		t.Errorf("run: got %+v", run)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/runs/"+id+"/documents", "")
	var docs struct {
		Documents []models.DocumentAssignment `json:"documents"`
	}
	decode(t, w, &docs)
	if len(docs.Documents) != 6 {
		t.Fatalf("documents: got %d", len(docs.Documents))
	}

	w = do(t, srv, http.MethodGet, "/api/v1/runs/"+id+"/documents?cluster=0", "")
	var filtered struct {
		Documents []models.DocumentAssignment `json:"documents"`
	}
	decode(t, w, &filtered)
	if len(filtered.Documents) == 0 || len(filtered.Documents) >= 6 {
		t.Errorf("cluster 0 documents: got %d", len(filtered.Documents))
	}
	for _, d := range filtered.Documents {
		if d.Cluster != 0 {
			t.Errorf("document %s in cluster %d", d.ID, d.Cluster)
		}
	}

	w = do(t, srv, http.MethodGet, "/api/v1/runs/"+id+"/topics", "")
	var ts struct {
		Topics    []models.Topic `json:"topics"`
		Formatted []string       `json:"formatted"`
	}
	decode(t, w, &ts)
	if len(ts.Topics) != 2 || len(ts.Formatted) != 2 || !strings.HasPrefix(ts.Formatted[0], "Topic 1: ") {
		t.Errorf("topics: got %+v", ts)
	}

	w = do(t, srv, http.MethodGet, "/api/v1/runs/"+id+"/scatter", "")
	var scatter struct {
		Points []models.ScatterPoint `json:"points"`
	}
	decode(t, w, &scatter)
	if len(scatter.Points) != 6 || scatter.Points[0].X != 1 {
		t.Errorf("scatter: got %+v", scatter.Points)
	}

	w = do(t, srv, http.MethodPost, "/api/v1/search", `{"query":"orbit"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("search status: got %d body %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if resp.Total != 3 {
		t.Errorf("search hits: got %d", resp.Total)
	}

	w = do(t, srv, http.MethodDelete, "/api/v1/runs/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", w.Code)
	}
	w = do(t, srv, http.MethodGet, "/api/v1/runs/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted run status: got %d", w.Code)
	}
}

func TestHandleAnalyze_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid body", "{", http.StatusBadRequest},
		{"negative k", `{"k":-1}`, http.StatusBadRequest},
		{"k larger than corpus", `{"k":10}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/api/v1/analyze", tt.body)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHandleSearch_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid body", "not json", http.StatusBadRequest},
		{"empty query", `{"query":""}`, http.StatusBadRequest},
		{"negative cluster", `{"query":"orbit","cluster":-1}`, http.StatusBadRequest},
		{"no runs", `{"query":"orbit"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/api/v1/search", tt.body)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
			var out map[string]string
			decode(t, w, &out)
			if out["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestHandleRun_NotFound(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/api/v1/runs/missing", "/api/v1/runs/missing/documents", "/api/v1/runs/missing/topics", "/api/v1/runs/missing/scatter"} {
		w := do(t, srv, http.MethodGet, path, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", path, w.Code)
		}
	}
	w := do(t, srv, http.MethodDelete, "/api/v1/runs/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("delete missing: got %d, want 404", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t)
	analyze(t, srv)

	w := do(t, srv, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]interface{}
	decode(t, w, &out)
	if out["runs"] != float64(1) {
		t.Errorf("runs: got %v", out["runs"])
	}
	if _, ok := out["disk_usage_bytes"]; !ok {
		t.Error("expected disk_usage_bytes")
	}
}
