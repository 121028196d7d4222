package server

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/solrdex/internal/indexerr"
	"github.com/hyperjump/solrdex/internal/record"
)

const maxBodyBytes = 16 << 20

func (s *Server) handleIndexDocuments(w http.ResponseWriter, r *http.Request) {
	records, ok := s.decodeRecords(w, r)
	if !ok {
		return
	}
	commit, ok := s.commitParam(w, r, s.config.CommitAfterRequest())
	if !ok {
		return
	}
	instances := make([]any, len(records))
	ids := make([]string, len(records))
	for i, rec := range records {
		instances[i] = rec
		ids[i] = rec.String()
	}
	s.logger.Debug("index documents request", zap.Int("count", len(records)), zap.Bool("commit", commit))

	index := s.session.Index
	if commit {
		index = s.session.IndexAndCommit
	}
	if err := index(r.Context(), instances...); err != nil {
		s.respondFailure(w, "indexing failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"ids": ids, "status": "indexed", "committed": commit})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	rec := &record.Record{Type: chi.URLParam(r, "type"), ID: chi.URLParam(r, "id")}
	commit, ok := s.commitParam(w, r, s.config.CommitAfterDeleteRequest())
	if !ok {
		return
	}
	s.logger.Debug("delete document request", zap.Stringer("document", rec), zap.Bool("commit", commit))

	remove := s.session.Remove
	if commit {
		remove = s.session.RemoveAndCommit
	}
	if err := remove(r.Context(), rec); err != nil {
		s.respondFailure(w, "deletion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": rec.String(), "status": "deleted", "committed": commit})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	s.removeAll(w, r, "")
}

func (s *Server) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	s.removeAll(w, r, chi.URLParam(r, "type"))
}

func (s *Server) removeAll(w http.ResponseWriter, r *http.Request, typeName string) {
	commit, ok := s.commitParam(w, r, s.config.CommitAfterDeleteRequest())
	if !ok {
		return
	}
	s.logger.Debug("delete all request", zap.String("type", typeName), zap.Bool("commit", commit))

	removeAll := s.session.RemoveAll
	if commit {
		removeAll = s.session.RemoveAllAndCommit
	}
	if err := removeAll(r.Context(), typeName); err != nil {
		s.respondFailure(w, "deletion failed", err)
		return
	}
	resp := map[string]any{"status": "deleted", "committed": commit}
	if typeName != "" {
		resp["type"] = typeName
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Commit(r.Context()); err != nil {
		s.respondFailure(w, "commit failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "committed"})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	records, ok := s.decodeRecords(w, r)
	if !ok {
		return
	}
	instances := make([]any, len(records))
	for i, rec := range records {
		instances[i] = rec
	}
	docs, err := s.session.Preview(instances...)
	if err != nil {
		s.respondFailure(w, "preview failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{"types": s.catalog.Types()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "backend": s.config.Backend})
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// decodeRecords reads a record or an array of records from the body.
func (s *Server) decodeRecords(w http.ResponseWriter, r *http.Request) ([]*record.Record, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	records, err := record.ParseJSON(data)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return records, true
}

// commitParam reads the optional commit query parameter.
func (s *Server) commitParam(w http.ResponseWriter, r *http.Request, def bool) (bool, bool) {
	raw := r.URL.Query().Get("commit")
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "commit must be true or false")
		return false, false
	}
	return v, true
}

// respondFailure maps indexing errors to 422 and everything else, which can only come
// from the backend connection, to 502.
func (s *Server) respondFailure(w http.ResponseWriter, msg string, err error) {
	status := http.StatusBadGateway
	resp := map[string]string{"error": err.Error()}
	if kind := indexerr.Kind(err); kind != nil {
		status = http.StatusUnprocessableEntity
		resp["kind"] = kind.Error()
	}
	s.logger.Error(msg, zap.Int("status", status), zap.Error(err))
	s.respondJSON(w, status, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
