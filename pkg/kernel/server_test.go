package kernel

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/conexa/sdkforge/internal/adapters/pdftext"
	"github.com/conexa/sdkforge/internal/adapters/swagger"
	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/conexa/sdkforge/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	broadcaster := services.NewBroadcaster(logger)
	engine := services.NewEngine(logger, nil, services.EngineConfig{
		MaxRetries: 1, RetryDelay: time.Millisecond, CallTimeout: time.Second,
	})
	orchestrator := services.NewOrchestrator(
		logger,
		pdftext.NewAnalyzer(logger),
		swagger.NewAnalyzer(logger),
		swagger.NewFetcher(logger),
		engine,
		services.NewGenerator(logger),
		broadcaster,
		services.OrchestratorConfig{MaxConcurrentJobs: 2},
	)
	return NewServer(logger, orchestrator, broadcaster, 0).Handler()
}

// viablePDF carries enough endpoint, auth and example signals for the
// heuristic scorer to approve SDK generation.
func viablePDF() []byte {
	return []byte("%PDF-1.4\nstream\n" +
		"(POST /api/payments creates a payment transaction) " +
		"(Authorization: Bearer token required for checkout) " +
		"(Example request: currency and amount fields)\n" +
		"endstream\n%%EOF")
}

func multipartUpload(t *testing.T, filename, provider string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	require.NoError(t, w.WriteField("providerName", provider))
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func postDocument(t *testing.T, handler http.Handler, filename, provider string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, provider, data)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/document", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func waitForStatus(t *testing.T, handler http.Handler, jobID, want string) map[string]any {
	t.Helper()
	var last map[string]any
	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/api/analysis/"+jobID, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = decodeJSON(t, rec)
		return last["status"] == want
	}, 5*time.Second, 20*time.Millisecond, "job never reached status %s, last: %v", want, last)
	return last
}

func TestUploadDocument_FullPipeline(t *testing.T) {
	handler := newTestHandler(t)

	rec := postDocument(t, handler, "acme.pdf", "Acme Pay", viablePDF())
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeJSON(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "pending", body["status"])
	jobID, ok := body["jobId"].(string)
	require.True(t, ok)

	status := waitForStatus(t, handler, jobID, "completed")
	assert.Equal(t, float64(100), status["progress"])

	// Result payload
	req := httptest.NewRequest(http.MethodGet, "/api/analysis/"+jobID+"/result", nil)
	resultRec := httptest.NewRecorder()
	handler.ServeHTTP(resultRec, req)
	require.Equal(t, http.StatusOK, resultRec.Code)

	result := decodeJSON(t, resultRec)
	require.NotNil(t, result["analysis"])
	require.NotNil(t, result["generatedSDK"])

	// Download the packaged SDK
	req = httptest.NewRequest(http.MethodGet, "/api/download/"+jobID, nil)
	dlRec := httptest.NewRecorder()
	handler.ServeHTTP(dlRec, req)
	require.Equal(t, http.StatusOK, dlRec.Code)
	assert.Equal(t, "application/zip", dlRec.Header().Get("Content-Type"))
	assert.Contains(t, dlRec.Header().Get("Content-Disposition"), "acme-pay-sdk.zip")

	zr, err := zip.NewReader(bytes.NewReader(dlRec.Body.Bytes()), int64(dlRec.Body.Len()))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "src/index.ts")
	assert.Contains(t, names, "package.json")
	assert.Contains(t, names, "README.md")
}

func TestUploadDocument_Validation(t *testing.T) {
	handler := newTestHandler(t)

	t.Run("rejects non-pdf file", func(t *testing.T) {
		rec := postDocument(t, handler, "notes.txt", "acme", []byte("plain text"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing provider name", func(t *testing.T) {
		rec := postDocument(t, handler, "acme.pdf", "   ", viablePDF())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("providerName", "acme"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/upload/document", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUploadURL_Validation(t *testing.T) {
	handler := newTestHandler(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing fields", `{"url": ""}`, http.StatusBadRequest},
		{"bad url format", `{"url": "not-a-url", "providerName": "acme"}`, http.StatusBadRequest},
		{"not json", `hello`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/upload/url", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestUploadURL_Accepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"openapi": "3.0.0", "info": {"title": "Pay", "version": "1"}, "paths": {"/payments": {"post": {"responses": {"201": {"description": "ok"}}}}}}`)
	}))
	defer srv.Close()

	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload/url",
		strings.NewReader(`{"url": "`+srv.URL+`", "providerName": "acme"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeJSON(t, rec)
	jobID := body["jobId"].(string)

	waitForStatus(t, handler, jobID, "completed")
}

func TestJobEndpoints_UnknownJob(t *testing.T) {
	handler := newTestHandler(t)

	for _, path := range []string{
		"/api/analysis/missing",
		"/api/analysis/missing/result",
		"/api/download/missing",
		"/api/jobs/missing/events",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, "path %s", path)
	}
}

func TestResult_NotCompletedYet(t *testing.T) {
	handler := newTestHandler(t)

	// A failed job exists but has no result to serve.
	rec := postDocument(t, handler, "bad.pdf", "acme", []byte("%PDF-1.4\n%%EOF"))
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeJSON(t, rec)["jobId"].(string)

	waitForStatus(t, handler, jobID, "failed")

	req := httptest.NewRequest(http.MethodGet, "/api/analysis/"+jobID+"/result", nil)
	resultRec := httptest.NewRecorder()
	handler.ServeHTTP(resultRec, req)
	assert.Equal(t, http.StatusBadRequest, resultRec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/download/"+jobID, nil)
	dlRec := httptest.NewRecorder()
	handler.ServeHTTP(dlRec, req)
	assert.Equal(t, http.StatusBadRequest, dlRec.Code)
}

func TestJobEvents_TerminalJobGetsSnapshotAndCloses(t *testing.T) {
	handler := newTestHandler(t)

	rec := postDocument(t, handler, "acme.pdf", "acme", viablePDF())
	require.Equal(t, http.StatusAccepted, rec.Code)
	jobID := decodeJSON(t, rec)["jobId"].(string)

	waitForStatus(t, handler, jobID, "completed")

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID+"/events", nil)
	sseRec := httptest.NewRecorder()
	handler.ServeHTTP(sseRec, req)

	assert.Equal(t, "text/event-stream", sseRec.Header().Get("Content-Type"))
	assert.Contains(t, sseRec.Body.String(), "event: progress")
	assert.Contains(t, sseRec.Body.String(), `"completed"`)
}

// gatedNormalizer parks the pipeline until released, so a test can attach an
// event stream while the job is still in flight.
type gatedNormalizer struct {
	release chan struct{}
}

func (g *gatedNormalizer) Normalize(_ []byte, provider string) (domain.NormalizedDocument, error) {
	<-g.release
	return domain.NormalizedDocument{
		Source:            domain.DocumentSourceText,
		Provider:          provider,
		Text:              "POST /api/payments with bearer token, example payment request",
		HasEndpoints:      true,
		HasAuthentication: true,
		HasExamples:       true,
		ProviderHint:      domain.ProviderTypePayment,
	}, nil
}

func TestJobEvents_StreamEndsWhenJobTerminatesAfterAttach(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	broadcaster := services.NewBroadcaster(logger)
	engine := services.NewEngine(logger, nil, services.EngineConfig{
		MaxRetries: 1, RetryDelay: time.Millisecond, CallTimeout: time.Second,
	})
	gate := &gatedNormalizer{release: make(chan struct{})}
	orchestrator := services.NewOrchestrator(
		logger,
		gate,
		swagger.NewAnalyzer(logger),
		swagger.NewFetcher(logger),
		engine,
		services.NewGenerator(logger),
		broadcaster,
		services.OrchestratorConfig{MaxConcurrentJobs: 2},
	)
	handler := NewServer(logger, orchestrator, broadcaster, 0).Handler()

	id, err := orchestrator.Submit(services.SubmitInput{
		Kind: domain.JobKindDocument, Provider: "acme", Data: []byte("%PDF-1.4"),
	})
	require.NoError(t, err)

	// Job is parked inside normalization, so the stream attaches while it
	// is still non-terminal.
	require.Eventually(t, func() bool {
		progress, ok := orchestrator.Status(id)
		return ok && progress.Status == domain.JobStatusAnalyzing
	}, 5*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+string(id)+"/events", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	// Let the job finish while the stream is open; the handler must see the
	// terminal event and return on its own.
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(gate.release)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not close after the job terminated")
	}

	body := rec.Body.String()
	assert.Contains(t, body, "event: progress")
	assert.Contains(t, body, `"completed"`)
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeJSON(t, rec)["status"])
}
