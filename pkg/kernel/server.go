// Package kernel exposes the job pipeline over HTTP: uploads, status and
// result polling, SDK download and the per-job event stream.
package kernel

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/conexa/sdkforge/internal/adapters/archive"
	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/conexa/sdkforge/internal/core/services"
)

const defaultMaxUploadBytes = 10 * 1024 * 1024

var urlPattern = regexp.MustCompile(`(?i)^https?://.+`)

type Server struct {
	logger         *slog.Logger
	orchestrator   *services.Orchestrator
	broadcaster    *services.Broadcaster
	maxUploadBytes int64
}

func NewServer(logger *slog.Logger, orchestrator *services.Orchestrator, broadcaster *services.Broadcaster, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{
		logger:         logger,
		orchestrator:   orchestrator,
		broadcaster:    broadcaster,
		maxUploadBytes: maxUploadBytes,
	}
}

// Handler mounts every route on a fresh mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/upload/document", s.handleUploadDocument)
	mux.HandleFunc("POST /api/upload/url", s.handleUploadURL)
	mux.HandleFunc("GET /api/analysis/{id}", s.handleStatus)
	mux.HandleFunc("GET /api/analysis/{id}/result", s.handleResult)
	mux.HandleFunc("GET /api/download/{id}", s.handleDownload)
	mux.HandleFunc("GET /api/jobs/{id}/events", s.handleJobEvents)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "FILE_TOO_LARGE", "File exceeds the upload size limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "NO_FILE", "No file uploaded")
		return
	}
	defer file.Close()

	if !isPDFUpload(header) {
		s.writeError(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only PDF files are allowed")
		return
	}

	provider := strings.TrimSpace(r.FormValue("providerName"))
	if provider == "" {
		s.writeError(w, http.StatusBadRequest, "MISSING_PROVIDER_NAME", "Provider name is required")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "UNREADABLE_FILE", "Could not read uploaded file")
		return
	}

	id, err := s.orchestrator.Submit(services.SubmitInput{
		Kind:     domain.JobKindDocument,
		Provider: provider,
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "SUBMIT_FAILED", "Could not schedule job")
		return
	}

	s.logger.Info("document upload accepted", "job_id", id, "provider", provider, "filename", header.Filename)

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"jobId":   id,
		"message": "File uploaded successfully, processing started",
		"status":  domain.JobStatusPending,
	})
}

func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL          string `json:"url"`
		ProviderName string `json:"providerName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON")
		return
	}

	body.URL = strings.TrimSpace(body.URL)
	body.ProviderName = strings.TrimSpace(body.ProviderName)
	if body.URL == "" || body.ProviderName == "" {
		s.writeError(w, http.StatusBadRequest, "MISSING_REQUIRED_FIELDS", "URL and provider name are required")
		return
	}
	if !urlPattern.MatchString(body.URL) {
		s.writeError(w, http.StatusBadRequest, "INVALID_URL", "Invalid URL format")
		return
	}

	id, err := s.orchestrator.Submit(services.SubmitInput{
		Kind:     domain.JobKindRemoteSpec,
		Provider: body.ProviderName,
		URL:      body.URL,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "SUBMIT_FAILED", "Could not schedule job")
		return
	}

	s.logger.Info("url submission accepted", "job_id", id, "provider", body.ProviderName, "url", body.URL)

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"success": true,
		"jobId":   id,
		"message": "URL submitted successfully, processing started",
		"status":  domain.JobStatusPending,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := domain.JobID(r.PathValue("id"))

	progress, ok := s.orchestrator.Status(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
		return
	}

	resp := map[string]any{
		"success":  true,
		"jobId":    progress.JobID,
		"status":   progress.Status,
		"progress": progress.Progress,
		"message":  progress.Message,
	}
	if progress.Error != "" {
		resp["error"] = progress.Error
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := domain.JobID(r.PathValue("id"))

	job, ok := s.orchestrator.Result(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
		return
	}
	if job.Status != domain.JobStatusCompleted {
		s.writeError(w, http.StatusBadRequest, "JOB_NOT_COMPLETED", "Job not completed yet")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"jobId":        job.ID,
		"analysis":     job.Analysis,
		"generatedSDK": job.SDK,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := domain.JobID(r.PathValue("id"))

	job, ok := s.orchestrator.Result(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
		return
	}
	if job.Status != domain.JobStatusCompleted || job.SDK == nil {
		s.writeError(w, http.StatusBadRequest, "SDK_NOT_READY", "SDK not available for download")
		return
	}

	zipBytes, err := archive.BuildZip(job.SDK)
	if err != nil {
		s.logger.Error("zip packaging failed", "job_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "ZIP_FAILED", "Could not package SDK")
		return
	}

	filename := strings.ReplaceAll(strings.ToLower(job.SDK.ProviderName), " ", "-") + "-sdk.zip"

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(zipBytes)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(zipBytes); err != nil {
		s.logger.Error("zip download write failed", "job_id", id, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"subscribers": s.broadcaster.SubscriberCount(),
	})
}

func isPDFUpload(header *multipart.FileHeader) bool {
	if strings.EqualFold(header.Header.Get("Content-Type"), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(header.Filename), ".pdf")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("response encoding failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]any{
		"success": false,
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	})
}
