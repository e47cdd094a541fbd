package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sablehq/talentdeck/ai"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

// defaultOracleTimeout bounds a single oracle call. A timeout is treated
// like any other oracle failure.
const defaultOracleTimeout = 2 * time.Minute

// recoverySweepReason is stored on jobs forced to failed at startup.
const recoverySweepReason = "interrupted by process restart"

// Pipeline orchestrates the ingestion of raw input about talent records.
// Submission is synchronous up to the point the job exists in the
// processing state; extraction and merging run on a worker pool.
type Pipeline struct {
	talents       storage.TalentRepository
	dimensions    storage.DimensionRepository
	tags          storage.TagRepository
	jobs          storage.JobRepository
	pool          *ants.Pool
	proc          *processor
	extractor     ai.CardExtractor
	oracleTimeout time.Duration
	monitor       IngestMonitor
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMonitor sets a monitor observing the asynchronous phase.
// Default is a no-op monitor.
func WithMonitor(monitor IngestMonitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithOracleTimeout bounds each oracle call.
// Default is 2 minutes.
func WithOracleTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("oracle timeout must be positive, got %v", timeout)
		}
		p.oracleTimeout = timeout
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
//
// Before accepting any new work it runs the recovery sweep: every job left
// in the processing state by a previous process is forced to failed, since
// its in-flight oracle call is gone.
func NewPipeline(
	talents storage.TalentRepository,
	dimensions storage.DimensionRepository,
	tags storage.TagRepository,
	jobs storage.JobRepository,
	extractor ai.CardExtractor,
	opts ...Option,
) (*Pipeline, error) {
	if talents == nil {
		return nil, ErrTalentRepositoryRequired
	}
	if dimensions == nil {
		return nil, ErrDimensionRepositoryRequired
	}
	if tags == nil {
		return nil, ErrTagRepositoryRequired
	}
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		talents:       talents,
		dimensions:    dimensions,
		tags:          tags,
		jobs:          jobs,
		pool:          pool,
		extractor:     extractor,
		oracleTimeout: defaultOracleTimeout,
		monitor:       &noopMonitor{},
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	// Recovery sweep runs before any new ingestion is accepted.
	swept, err := jobs.MarkStuckJobsFailed(context.Background(), recoverySweepReason)
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("recovery sweep: %w", err)
	}
	if swept > 0 {
		p.logger.Warn("recovery sweep failed stuck jobs", "count", swept)
	}

	p.proc = &processor{
		talents:       talents,
		dimensions:    dimensions,
		tags:          tags,
		jobs:          jobs,
		extractor:     extractor,
		oracleTimeout: p.oracleTimeout,
		monitor:       p.monitor,
		logger:        p.logger.With("component", "ingestion-processor"),
	}

	return p, nil
}

// SubmitText accepts free-form text about an existing record. It returns
// as soon as the job is persisted in the processing state; extraction and
// merging happen asynchronously.
func (p *Pipeline) SubmitText(ctx context.Context, recordID core.ID, text string) (*core.IngestionJob, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, core.ErrEmptyInput
	}
	if _, err := p.talents.GetTalent(ctx, recordID); err != nil {
		return nil, err
	}

	job, err := p.jobs.AddJob(ctx, &core.IngestionJob{
		RecordId: recordID,
		Input:    text,
		Modality: core.ModalityText,
	})
	if err != nil {
		return nil, err
	}

	// Snapshot before the worker can touch the job; the caller polls
	// JobStatus for progress.
	out := *job
	p.submit(job, func() {
		p.proc.processText(context.Background(), job, text)
	})
	return &out, nil
}

// SubmitDocument accepts the rendered pages of a document about an existing
// record, plus any text layer recovered from it.
func (p *Pipeline) SubmitDocument(ctx context.Context, recordID core.ID, pages [][]byte, fallbackText string) (*core.IngestionJob, error) {
	fallbackText = strings.TrimSpace(fallbackText)
	if len(pages) == 0 && fallbackText == "" {
		return nil, core.ErrEmptyInput
	}
	if _, err := p.talents.GetTalent(ctx, recordID); err != nil {
		return nil, err
	}

	input := fallbackText
	if input == "" {
		input = fmt.Sprintf("%d page document", len(pages))
	}

	job, err := p.jobs.AddJob(ctx, &core.IngestionJob{
		RecordId: recordID,
		Input:    input,
		Modality: core.ModalityDocument,
	})
	if err != nil {
		return nil, err
	}

	out := *job
	p.submit(job, func() {
		p.proc.processDocument(context.Background(), job, pages, fallbackText)
	})
	return &out, nil
}

// submit hands the job to the worker pool. A pool that can't take the task
// still owes the job a terminal state, so submission failure fails the job.
func (p *Pipeline) submit(job *core.IngestionJob, task func()) {
	if err := p.pool.Submit(task); err != nil {
		p.logger.Error("failed to submit job to pool", "job", job.Id, "err", err)
		if failErr := p.jobs.FailJob(context.Background(), job.Id, err.Error()); failErr != nil {
			p.logger.Error("failed to mark unsubmittable job failed", "job", job.Id, "err", failErr)
		}
	}
}

// JobStatus retrieves the current state of a job.
// Returns storage.ErrNotFound if the job id is unknown.
func (p *Pipeline) JobStatus(ctx context.Context, jobID core.ID) (*core.IngestionJob, error) {
	return p.jobs.GetJob(ctx, jobID)
}

// ListJobs retrieves the jobs for a record, newest first.
func (p *Pipeline) ListJobs(ctx context.Context, recordID core.ID) ([]*core.IngestionJob, error) {
	return p.jobs.ListJobsByRecord(ctx, recordID)
}

// DeleteJob removes a job from the history.
func (p *Pipeline) DeleteJob(ctx context.Context, jobID core.ID) error {
	return p.jobs.DeleteJob(ctx, jobID)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
