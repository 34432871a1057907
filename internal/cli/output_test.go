package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/doctopics/internal/config"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/pipeline"
)

func testResult(t *testing.T) *pipeline.Result {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.Embedding.Dimension = 8
	cfg.Embedding.Epochs = 2
	cfg.Embedding.MinCount = 1
	cfg.Topics.NumTopics = 2
	cfg.Topics.Passes = 5
	cfg.Cluster.K = 2

	texts := map[string][]string{
		"sci.space": {"rocket launch orbit nasa", "nasa shuttle orbit moon", "moon orbit rocket launch"},
		"sci.med":   {"doctor patient disease clinic", "patient treatment disease medicine"},
	}
	var docs []*models.Document
	for _, category := range []string{"sci.med", "sci.space"} {
		for i, text := range texts[category] {
			docs = append(docs, &models.Document{
				ID:       category + string(rune('a'+i)),
				Path:     "/c/" + category + "/" + string(rune('a'+i)),
				Category: category,
				Content:  text,
				Tokens:   strings.Fields(text),
			})
		}
	}
	res, err := pipeline.New(cfg).Run(context.Background(), docs)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return res
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"csv", OutputCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteRunSummary_Text(t *testing.T) {
	res := testResult(t)
	var buf bytes.Buffer
	if err := WriteRunSummary(&buf, res, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Run " + res.RunID, "Documents: 5", "Topic 1: ", "Topic 2: ", "Cluster 0: ", "Cluster 1: ", "Vocabulary coverage: 100.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteRunSummary_JSON(t *testing.T) {
	res := testResult(t)
	var buf bytes.Buffer
	if err := WriteRunSummary(&buf, res, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded RunSummary
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Run.ID != res.RunID || len(decoded.Clusters) != 2 || len(decoded.Topics) != 2 {
		t.Errorf("unexpected summary %+v", decoded)
	}
	total := 0
	for _, c := range decoded.Clusters {
		total += c.Size
		n := 0
		for _, v := range c.Categories {
			n += v
		}
		if n != c.Size {
			t.Errorf("cluster %d categories sum to %d, size %d", c.Label, n, c.Size)
		}
	}
	if total != 5 {
		t.Errorf("cluster sizes sum to %d", total)
	}
}

func TestWriteRunSummary_CSV(t *testing.T) {
	res := testResult(t)
	var buf bytes.Buffer
	if err := WriteRunSummary(&buf, res, OutputCSV); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 6 {
		t.Fatalf("expected header and 5 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "index,id,category,label,x,y" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][4] != "1" {
		t.Errorf("first document x should be its self-similarity, got %s", records[1][4])
	}
}

func TestWriteRuns(t *testing.T) {
	runs := []*models.Run{
		{ID: "run-b", CreatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), NumDocuments: 10, K: 4, NumTopics: 4, Inertia: 1.5},
		{ID: "run-a", CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), NumDocuments: 8, K: 2, NumTopics: 2},
	}

	var text bytes.Buffer
	if err := WriteRuns(&text, runs, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text.String(), "run-b") || !strings.Contains(text.String(), "2024-03-01 00:00:00") {
		t.Errorf("text output:\n%s", text.String())
	}

	var empty bytes.Buffer
	_ = WriteRuns(&empty, nil, OutputText)
	if !strings.Contains(empty.String(), "No runs") {
		t.Errorf("empty output: %q", empty.String())
	}

	var js bytes.Buffer
	if err := WriteRuns(&js, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(js.String()) != "[]" {
		t.Errorf("empty JSON = %q", js.String())
	}

	var c bytes.Buffer
	if err := WriteRuns(&c, runs, OutputCSV); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&c).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || records[1][0] != "run-b" || records[1][6] != "1.5" {
		t.Errorf("csv records = %v", records)
	}
}

func TestWriteAssignments(t *testing.T) {
	docs := []*models.DocumentAssignment{
		{RunID: "r", Index: 0, ID: "doc:a", Path: "/c/sci.space/1", Category: "sci.space", Cluster: 1, DominantTopic: 0, X: 1, Y: 0.25},
		{RunID: "r", Index: 1, ID: "doc:b", Path: "/c/sci.med/1", Category: "sci.med", Cluster: 0, DominantTopic: 1, X: 0.25, Y: 1},
	}

	var c bytes.Buffer
	if err := WriteAssignments(&c, docs, OutputCSV); err != nil {
		t.Fatal(err)
	}
	want := "index,id,category,label,x,y\n0,doc:a,sci.space,1,1,0.25\n1,doc:b,sci.med,0,0.25,1\n"
	if c.String() != want {
		t.Errorf("csv = %q, want %q", c.String(), want)
	}

	var text bytes.Buffer
	if err := WriteAssignments(&text, docs, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text.String(), "/c/sci.med/1") {
		t.Errorf("text output:\n%s", text.String())
	}

	var js bytes.Buffer
	if err := WriteAssignments(&js, docs, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded []models.DocumentAssignment
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil || len(decoded) != 2 || decoded[1].Cluster != 0 {
		t.Errorf("json decode: %v %+v", err, decoded)
	}
}

func TestWriteSearchResults(t *testing.T) {
	resp := &models.SearchResponse{
		Query:     "orbit",
		QueryTime: 3,
		Total:     1,
		Hits: []*models.SearchHit{{
			DocumentID: "doc:a", RunID: "r", Path: "/c/sci.space/1", Category: "sci.space",
			Cluster: 1, Topic: 0, Score: 0.5,
			Highlights: map[string][]string{"content": {"the <mark>orbit</mark>"}},
		}},
	}

	var text bytes.Buffer
	if err := WriteSearchResults(&text, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Found 1 results in 3ms", "/c/sci.space/1", "Cluster: 1", "<mark>orbit</mark>"} {
		if !strings.Contains(text.String(), want) {
			t.Errorf("text output missing %q:\n%s", want, text.String())
		}
	}

	var js bytes.Buffer
	if err := WriteSearchResults(&js, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil || decoded.Hits[0].DocumentID != "doc:a" {
		t.Errorf("json decode: %v %+v", err, decoded)
	}
}
