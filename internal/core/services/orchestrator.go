package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/conexa/sdkforge/internal/core/domain"
	"github.com/conexa/sdkforge/internal/core/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// OrchestratorConfig bounds pipeline concurrency and job retention.
type OrchestratorConfig struct {
	MaxConcurrentJobs int64
	// RetentionTTL controls how long terminal jobs stay in the table before
	// the sweeper evicts them; zero disables eviction entirely.
	RetentionTTL  time.Duration
	SweepInterval time.Duration
}

// SubmitInput is what the transport layer hands over. Request validation
// happened before this point; the orchestrator only dispatches.
type SubmitInput struct {
	Kind     domain.JobKind
	Provider string
	Filename string
	Data     []byte
	URL      string
}

// Orchestrator owns every job for its whole lifetime: it creates the record,
// drives the pipeline stages sequentially, and is the only writer of job
// state. Reads hand out snapshots.
type Orchestrator struct {
	logger      *slog.Logger
	text        ports.TextNormalizer
	spec        ports.SpecNormalizer
	fetcher     ports.DocumentFetcher
	engine      *Engine
	synthesizer ports.SDKSynthesizer
	broadcaster *Broadcaster

	sem           *semaphore.Weighted
	retentionTTL  time.Duration
	sweepInterval time.Duration

	mu   sync.RWMutex
	jobs map[domain.JobID]*domain.Job
}

func NewOrchestrator(
	logger *slog.Logger,
	text ports.TextNormalizer,
	spec ports.SpecNormalizer,
	fetcher ports.DocumentFetcher,
	engine *Engine,
	synthesizer ports.SDKSynthesizer,
	broadcaster *Broadcaster,
	cfg OrchestratorConfig,
) *Orchestrator {
	limit := cfg.MaxConcurrentJobs
	if limit <= 0 {
		limit = 10
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}

	return &Orchestrator{
		logger:        logger,
		text:          text,
		spec:          spec,
		fetcher:       fetcher,
		engine:        engine,
		synthesizer:   synthesizer,
		broadcaster:   broadcaster,
		sem:           semaphore.NewWeighted(limit),
		retentionTTL:  cfg.RetentionTTL,
		sweepInterval: cfg.SweepInterval,
		jobs:          make(map[domain.JobID]*domain.Job),
	}
}

// Submit registers a job in pending state and schedules its pipeline without
// waiting for any stage. It can only fail if identifier generation fails.
func (o *Orchestrator) Submit(input SubmitInput) (domain.JobID, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	id := domain.JobID(raw.String())

	now := time.Now()
	job := &domain.Job{
		ID:        id,
		Kind:      input.Kind,
		Provider:  input.Provider,
		Status:    domain.JobStatusPending,
		Progress:  0,
		Message:   "Job queued for processing",
		CreatedAt: now,
		UpdatedAt: now,
	}

	o.mu.Lock()
	o.jobs[id] = job
	o.mu.Unlock()

	o.logger.Info("job submitted", "job_id", id, "kind", input.Kind, "provider", input.Provider)

	// The pipeline outlives the submitting request, so it runs on a detached
	// context; the semaphore bounds how many run at once.
	go o.run(context.Background(), id, input)

	return id, nil
}

// Status returns a point-in-time progress snapshot for the job.
func (o *Orchestrator) Status(id domain.JobID) (domain.JobProgress, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	job, ok := o.jobs[id]
	if !ok {
		return domain.JobProgress{}, false
	}

	return domain.JobProgress{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
		Error:    job.Error,
	}, true
}

// Result returns the full job record, including analysis and SDK when
// present, regardless of terminal status.
func (o *Orchestrator) Result(id domain.JobID) (domain.Job, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	job, ok := o.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

func (o *Orchestrator) run(ctx context.Context, id domain.JobID, input SubmitInput) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.fail(id, "Scheduling failed", err)
		return
	}
	defer o.sem.Release(1)

	// Whatever a downstream collaborator does, the job must end in a
	// terminal state.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline panic", "job_id", id, "panic", r)
			o.fail(id, "Processing failed", fmt.Errorf("internal fault: %v", r))
		}
	}()

	switch input.Kind {
	case domain.JobKindRemoteSpec:
		o.processRemoteSpec(ctx, id, input)
	default:
		o.processDocument(ctx, id, input)
	}
}

func (o *Orchestrator) processDocument(ctx context.Context, id domain.JobID, input SubmitInput) {
	o.transition(id, domain.JobStatusAnalyzing, 10, "Validating document file", "")

	doc, err := o.text.Normalize(input.Data, input.Provider)
	if err != nil {
		o.fail(id, "Document processing failed", err)
		return
	}

	o.transition(id, domain.JobStatusAnalyzing, 20,
		fmt.Sprintf("Extracted %d characters of documentation", len(doc.Text)), "")

	o.finish(ctx, id, input.Provider, doc)
}

func (o *Orchestrator) processRemoteSpec(ctx context.Context, id domain.JobID, input SubmitInput) {
	o.transition(id, domain.JobStatusAnalyzing, 10, "Fetching Swagger/OpenAPI documentation", "")

	raw, err := o.fetcher.Fetch(ctx, input.URL)
	if err != nil {
		o.fail(id, "Swagger/OpenAPI processing failed", err)
		return
	}

	doc, err := o.spec.Normalize(raw, input.Provider)
	if err != nil {
		o.fail(id, "Swagger/OpenAPI processing failed", err)
		return
	}

	o.transition(id, domain.JobStatusAnalyzing, 40,
		fmt.Sprintf("Found %s spec with %d endpoints", doc.SpecVersion, len(doc.Endpoints)), "")

	o.finish(ctx, id, input.Provider, doc)
}

// finish runs the stages shared by both pipelines: viability analysis,
// branch on the verdict, and optional SDK synthesis.
func (o *Orchestrator) finish(ctx context.Context, id domain.JobID, provider string, doc domain.NormalizedDocument) {
	o.transition(id, domain.JobStatusAnalyzing, 50, "Performing viability analysis", "")

	analysis := o.engine.Analyze(ctx, doc)

	o.attachAnalysis(id, analysis)
	o.transition(id, domain.JobStatusAnalyzing, 70,
		fmt.Sprintf("Analysis completed: %d%% confidence, %s provider", analysis.Confidence, analysis.ProviderType), "")

	if !analysis.IsViable {
		msg := "Analysis completed - SDK generation not viable."
		if len(analysis.Issues) > 0 {
			n := len(analysis.Issues)
			if n > 2 {
				n = 2
			}
			msg += " Issues: " + strings.Join(analysis.Issues[:n], ", ")
		}
		o.transition(id, domain.JobStatusCompleted, 100, msg, "")
		return
	}

	o.transition(id, domain.JobStatusGenerating, 80, "Generating TypeScript SDK", "")

	sdk, err := o.synthesizer.Generate(analysis, provider)
	if err != nil {
		o.fail(id, "SDK generation failed", err)
		return
	}

	o.attachSDK(id, sdk)
	o.transition(id, domain.JobStatusCompleted, 100,
		fmt.Sprintf("SDK generated successfully for %s", provider), "")
}

func (o *Orchestrator) fail(id domain.JobID, message string, err error) {
	o.logger.Error("job failed", "job_id", id, "error", err)
	o.transition(id, domain.JobStatusFailed, 0, message, err.Error())
}

// transition commits one state-machine step and then emits exactly one
// progress event. Terminal states absorb: a late transition against a
// completed or failed job is dropped.
func (o *Orchestrator) transition(id domain.JobID, status domain.JobStatus, progress int, message, errMsg string) {
	o.mu.Lock()
	job, ok := o.jobs[id]
	if !ok || job.Status.Terminal() {
		o.mu.Unlock()
		return
	}

	// Progress never moves backwards on the success path.
	if status != domain.JobStatusFailed && progress < job.Progress {
		progress = job.Progress
	}

	job.Status = status
	job.Progress = progress
	job.Message = message
	job.Error = errMsg
	job.UpdatedAt = time.Now()

	event := domain.ProgressEvent{
		JobID:    job.ID,
		Status:   status,
		Progress: progress,
		Message:  message,
		Error:    errMsg,
	}
	o.mu.Unlock()

	// Publish strictly after the state mutation is committed, so observers
	// reacting to the event always see a snapshot at least this current.
	o.broadcaster.Publish(event)
	o.logger.Info("job progress", "job_id", id, "status", status, "progress", progress, "message", message)
}

func (o *Orchestrator) attachAnalysis(id domain.JobID, analysis domain.AnalysisResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if job, ok := o.jobs[id]; ok {
		job.Analysis = &analysis
	}
}

func (o *Orchestrator) attachSDK(id domain.JobID, sdk domain.GeneratedSDK) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if job, ok := o.jobs[id]; ok {
		job.SDK = &sdk
	}
}

// RunRetention sweeps terminal jobs older than the retention TTL until ctx
// is cancelled. It is a no-op when retention is disabled.
func (o *Orchestrator) RunRetention(ctx context.Context) {
	if o.retentionTTL <= 0 {
		return
	}

	ticker := time.NewTicker(o.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep(time.Now())
		}
	}
}

func (o *Orchestrator) sweep(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, job := range o.jobs {
		if job.Status.Terminal() && now.Sub(job.UpdatedAt) > o.retentionTTL {
			delete(o.jobs, id)
			o.logger.Info("evicted expired job", "job_id", id, "status", job.Status)
		}
	}
}
