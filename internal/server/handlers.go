package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/oncovec/internal/models"
)

const messageDocumentAdded = "Document added successfully"

type addDocumentResponse struct {
	Message     string   `json:"message"`
	DocumentID  string   `json:"document_id,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

func (s *Server) handleAddDocuments(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	raw = bytes.TrimSpace(raw)

	var (
		inputs []models.DocumentInput
		batch  bool
	)
	if len(raw) > 0 && raw[0] == '[' {
		batch = true
		err = json.Unmarshal(raw, &inputs)
	} else {
		var input models.DocumentInput
		err = json.Unmarshal(raw, &input)
		inputs = []models.DocumentInput{input}
	}
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(inputs) == 0 {
		s.respondError(w, http.StatusBadRequest, "no documents in request")
		return
	}

	s.logger.Debug("add documents request", zap.Int("count", len(inputs)))
	ids, err := s.indexer.IngestMany(r.Context(), inputs)
	if err != nil {
		s.fail(w, "ingestion failed", err)
		return
	}
	resp := addDocumentResponse{Message: messageDocumentAdded}
	if batch {
		resp.DocumentIDs = ids
	} else {
		resp.DocumentID = ids[0]
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int("bytes", len(content)))
	ids, err := s.indexer.IngestUpload(r.Context(), content, header.Filename, r.FormValue("title"))
	if err != nil {
		s.fail(w, "upload ingestion failed", err)
		return
	}
	resp := addDocumentResponse{Message: messageDocumentAdded, DocumentID: ids[0]}
	if len(ids) > 1 {
		resp.DocumentIDs = ids
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))
	resp, err := s.engine.Query(r.Context(), &req)
	if err != nil {
		s.fail(w, "query failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := BuildStatus(r.Context(), s.store, s.storage, s.blobs, s.filter, s.config)
	if err != nil {
		s.fail(w, "status failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrEmptyQuery), errors.Is(err, models.ErrEmptyDocument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrExtractionFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrStoreNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		s.logger.Error(msg, zap.Error(err))
	case http.StatusServiceUnavailable:
		message = models.ErrStoreNotReady.Error()
		s.logger.Warn(msg, zap.Error(err))
	case http.StatusNotFound:
		message = "document not found"
	default:
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, message)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
