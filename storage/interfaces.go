package storage

import (
	"context"

	"github.com/sablehq/talentdeck/core"
)

// Repository provides common lifecycle operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the repository and releases resources.
	Close() error
}

// DimensionRepository provides operations for the card dimension registry.
// The registry is shared, read-mostly, and append-only: dimensions are
// never deleted or renamed.
type DimensionRepository interface {
	Repository

	// ListDimensions returns all dimensions ordered by their Order field.
	ListDimensions(ctx context.Context) ([]*core.Dimension, error)

	// EnsureDimension creates the dimension if its key does not exist and
	// backfills every existing talent record with the key's structural
	// default, all within a single transaction. If the key already exists
	// the call is an idempotent no-op returning the existing dimension.
	// The boolean reports whether a new dimension was created.
	// Safe for concurrent callers proposing the same key.
	EnsureDimension(ctx context.Context, key, label, schemaHint string) (*core.Dimension, bool, error)
}

// TalentRepository provides operations for managing talent records.
type TalentRepository interface {
	Repository

	// AddTalents adds one or more talent records to storage.
	// Generates IDs from sequence and sets timestamps. Each record's card
	// is filled with the registry's structural defaults for any missing key.
	AddTalents(ctx context.Context, records ...*core.TalentRecord) ([]*core.TalentRecord, error)

	// UpdateTalents updates existing talent records.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any record doesn't exist.
	UpdateTalents(ctx context.Context, records ...*core.TalentRecord) ([]*core.TalentRecord, error)

	// DeleteTalents removes talent records by their IDs, along with their
	// tag index entries. Returns ErrNotFound if any record doesn't exist.
	DeleteTalents(ctx context.Context, ids ...core.ID) error

	// GetTalent retrieves a single talent record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetTalent(ctx context.Context, id core.ID) (*core.TalentRecord, error)

	// GetAllTalents retrieves every talent record, ordered by ID.
	GetAllTalents(ctx context.Context) ([]*core.TalentRecord, error)

	// GetTalentsByTag retrieves IDs of talent records associated with a tag.
	GetTalentsByTag(ctx context.Context, tagID core.ID) ([]core.ID, error)
}

// TagRepository provides operations for managing tags.
type TagRepository interface {
	Repository

	// EnsureTag finds or creates a tag by its case-sensitive name.
	// New tags get a content-based ID and the default color.
	// Thread-safe: handles concurrent creation attempts.
	EnsureTag(ctx context.Context, name string) (*core.Tag, error)

	// GetTag retrieves a single tag by ID.
	// Returns ErrNotFound if the tag doesn't exist.
	GetTag(ctx context.Context, id core.ID) (*core.Tag, error)

	// FindTagByName finds a tag by its exact name.
	// Returns ErrNotFound if no matching tag exists.
	FindTagByName(ctx context.Context, name string) (*core.Tag, error)

	// ListTags retrieves all tags ordered by name.
	ListTags(ctx context.Context) ([]*core.Tag, error)
}

// JobRepository owns the ingestion job state machine. A job is committed
// in JobStateProcessing before any asynchronous work begins, and moves
// exactly once to a terminal state.
type JobRepository interface {
	Repository

	// AddJob persists a new job in JobStateProcessing.
	// Generates an ID from sequence and sets CreatedAt.
	AddJob(ctx context.Context, job *core.IngestionJob) (*core.IngestionJob, error)

	// GetJob retrieves a single job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id core.ID) (*core.IngestionJob, error)

	// ListJobsByRecord retrieves all jobs for a record, newest first.
	ListJobsByRecord(ctx context.Context, recordID core.ID) ([]*core.IngestionJob, error)

	// DeleteJob removes a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	DeleteJob(ctx context.Context, id core.ID) error

	// CompleteJob commits the updated talent record and the job's
	// transition to JobStateDone in one transaction, so the terminal state
	// is never visible without the record mutation. RawResult should
	// already hold the oracle response for audit.
	// Returns ErrTerminalState if the job is already done or failed.
	CompleteJob(ctx context.Context, job *core.IngestionJob, record *core.TalentRecord) error

	// FailJob transitions the job to JobStateFailed, storing the error
	// text, without touching the owning record.
	// Returns ErrTerminalState if the job is already done or failed.
	FailJob(ctx context.Context, id core.ID, errText string) error

	// MarkStuckJobsFailed forces every job still in JobStateProcessing to
	// JobStateFailed and returns how many were transitioned. Used by the
	// startup recovery sweep; idempotent across repeated calls.
	MarkStuckJobsFailed(ctx context.Context, reason string) (int, error)
}
