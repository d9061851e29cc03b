package kernel

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/conexa/sdkforge/internal/core/domain"
)

// handleJobEvents streams progress events for one job over SSE. The
// broadcaster carries every job's events on a single stream, so this handler
// filters by job ID. The stream ends when the job reaches a terminal state
// or the client disconnects.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := domain.JobID(r.PathValue("id"))

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before reading the snapshot: a terminal transition landing
	// between the two arrives on the channel, so it can be duplicated but
	// never missed.
	ch, unsub := s.broadcaster.Subscribe()
	defer unsub()

	progress, ok := s.orchestrator.Status(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Initial snapshot so late subscribers see the current state immediately.
	s.writeSSE(w, domain.ProgressEvent{
		JobID:    progress.JobID,
		Status:   progress.Status,
		Progress: progress.Progress,
		Message:  progress.Message,
		Error:    progress.Error,
	})
	flusher.Flush()

	if progress.Status.Terminal() {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if evt.JobID != id {
				continue
			}
			s.writeSSE(w, evt)
			flusher.Flush()
			if evt.Status.Terminal() {
				return
			}
		}
	}
}

func (s *Server) writeSSE(w http.ResponseWriter, evt domain.ProgressEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error("event encoding failed", "job_id", evt.JobID, "error", err)
		return
	}
	fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
}
