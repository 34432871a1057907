package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/doctopics/internal/cluster"
	"github.com/hyperjump/doctopics/internal/models"
	"github.com/hyperjump/doctopics/internal/storage"
	"github.com/hyperjump/doctopics/internal/topics"
	"go.uber.org/zap"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.storage.CountRuns(r.Context())
	if err != nil {
		s.logger.Error("status: count runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"runs": runs,
		"config": map[string]interface{}{
			"directories":     s.config.Corpus.Directories,
			"k":               s.config.Cluster.K,
			"num_topics":      s.config.Topics.NumTopics,
			"embedding":       s.config.Embedding.Source,
			"embedding_dim":   s.config.Embedding.Dimension,
			"database_path":   s.config.Storage.DatabasePath,
			"index_path":      s.config.Storage.IndexPath,
			"vocabulary_path": s.config.Storage.VocabularyPath,
		},
	}
	diskBytes, err := storage.Footprint(
		s.config.Storage.DatabasePath,
		s.config.Storage.IndexPath,
		s.config.Storage.VocabularyPath,
	)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Debug("analyze request", zap.Strings("directories", req.Directories), zap.Int("k", req.K))
	res, err := s.indexer.Analyze(r.Context(), &req)
	if err != nil {
		if errors.Is(err, cluster.ErrInvalidConfiguration) || errors.Is(err, topics.ErrInvalidTopics) {
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("analysis failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"run":           res.Run(),
		"cluster_sizes": res.ClusterSizes(),
		"topics":        res.Topics.Topics(),
		"coverage":      res.Coverage.Coverage(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r)
	runs, err := s.storage.ListRuns(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "offset": offset, "limit": limit})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.storage.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete run request", zap.String("id", id))
	if err := s.indexer.DeleteRun(r.Context(), id); err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleRunDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.storage.GetAssignments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	if c := r.URL.Query().Get("cluster"); c != "" {
		label, convErr := strconv.Atoi(c)
		if convErr != nil || label < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid cluster")
			return
		}
		filtered := docs[:0]
		for _, d := range docs {
			if d.Cluster == label {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}
	if docs == nil {
		docs = []*models.DocumentAssignment{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleRunTopics(w http.ResponseWriter, r *http.Request) {
	ts, err := s.storage.GetTopics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	if ts == nil {
		ts = []models.Topic{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"topics":    ts,
		"formatted": topics.FormatTopics(ts),
	})
}

func (s *Server) handleRunScatter(w http.ResponseWriter, r *http.Request) {
	docs, err := s.storage.GetAssignments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	points := make([]models.ScatterPoint, len(docs))
	for i, d := range docs {
		points[i] = models.ScatterPoint{
			Index:    d.Index,
			ID:       d.ID,
			Category: d.Category,
			Label:    d.Cluster,
			X:        d.X,
			Y:        d.Y,
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"points": points})
}

func pageParams(r *http.Request) (offset, limit int) {
	limit = defaultRunsLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return offset, limit
}

func (s *Server) respondStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("storage request failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
