package badger

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
// It owns every transition of the ingestion job state machine; terminal
// transitions are committed together with their record mutation.
type JobRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	logger  *slog.Logger
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	idSeq, err := backend.GetSequence(jobIDSeq)
	if err != nil {
		return nil, err
	}

	return &JobRepository{
		backend: backend,
		idSeq:   idSeq,
		logger:  slog.Default().With("component", "job-repository"),
	}, nil
}

// Close releases the ID sequence.
func (r *JobRepository) Close() error {
	return r.idSeq.Release()
}

// AddJob persists a new job in JobStateProcessing.
func (r *JobRepository) AddJob(ctx context.Context, job *core.IngestionJob) (*core.IngestionJob, error) {
	job.State = core.JobStateProcessing
	job.CreatedAt = time.Now().UTC()

	if err := core.ValidateIngestionJob(job); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		job.Id = core.ID(nextID)

		if err := writeJob(tx, job); err != nil {
			return err
		}
		if err := tx.Set(makeJobRecordIdxKey(job.RecordId, job.CreatedAt, job.Id), storage.MarshalID(job.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return job, err
}

// GetJob retrieves a single job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id core.ID) (*core.IngestionJob, error) {
	var result *core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListJobsByRecord retrieves all jobs for a record, newest first.
func (r *JobRepository) ListJobsByRecord(ctx context.Context, recordID core.ID) ([]*core.IngestionJob, error) {
	var results []*core.IngestionJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialJobRecordIdxKey(recordID)

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Index keys sort oldest first; collect then reverse.
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var jobID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				jobID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			job, err := readJob(tx, makeJobKey(jobID))
			if err != nil {
				return err
			}
			if job != nil {
				results = append(results, job)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// DeleteJob removes a job by ID.
func (r *JobRepository) DeleteJob(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeJobKey(id)

		job, err := readJob(tx, key)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(makeJobRecordIdxKey(job.RecordId, job.CreatedAt, job.Id)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CompleteJob commits the updated talent record and the job's transition
// to JobStateDone in one transaction. The terminal state is never visible
// without the record mutation already committed.
func (r *JobRepository) CompleteJob(ctx context.Context, job *core.IngestionJob, record *core.TalentRecord) error {
	return r.backend.WithTxRetry(func(tx *badger.Txn) error {
		current, err := readJob(tx, makeJobKey(job.Id))
		if err != nil {
			return err
		}
		if current == nil {
			return storage.ErrNotFound
		}
		if current.State.Terminal() {
			return storage.ErrTerminalState
		}

		old, err := readTalent(tx, makeTalentKey(record.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		record.UpdatedAt = time.Now().UTC()
		if err := writeTalent(tx, record); err != nil {
			return err
		}
		if !tagIDsEqual(old.Tags, record.Tags) {
			if err := reconcileTagIndex(tx, old, record); err != nil {
				return err
			}
		}

		job.State = core.JobStateDone
		if err := writeJob(tx, job); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// FailJob transitions the job to JobStateFailed without touching the record.
func (r *JobRepository) FailJob(ctx context.Context, id core.ID, errText string) error {
	return r.backend.WithTxRetry(func(tx *badger.Txn) error {
		job, err := readJob(tx, makeJobKey(id))
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}
		if job.State.Terminal() {
			return storage.ErrTerminalState
		}

		job.State = core.JobStateFailed
		job.RawResult = errText
		if err := writeJob(tx, job); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// MarkStuckJobsFailed forces every job still in JobStateProcessing to
// JobStateFailed. Idempotent: a second sweep finds nothing to transition.
func (r *JobRepository) MarkStuckJobsFailed(ctx context.Context, reason string) (int, error) {
	count := 0
	err := r.backend.WithTxRetry(func(tx *badger.Txn) error {
		count = 0

		// The iterator must be closed before any write or commit on the
		// transaction, so collection and mutation are separate passes.
		stuck, err := readProcessingJobs(tx)
		if err != nil {
			return err
		}

		for _, job := range stuck {
			job.State = core.JobStateFailed
			job.RawResult = reason
			if err := writeJob(tx, job); err != nil {
				return err
			}
		}
		count = len(stuck)

		if count == 0 {
			return nil
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}

	if count > 0 {
		r.logger.Warn("stuck jobs forced to failed", "count", count)
	}
	return count, nil
}

// readProcessingJobs scans every job still in JobStateProcessing. The
// iterator is closed before returning so the caller may write to tx.
func readProcessingJobs(tx *badger.Txn) ([]*core.IngestionJob, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(jobRecordPrefix + ":")

	iter := tx.NewIterator(opts)
	defer iter.Close()

	var stuck []*core.IngestionJob
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var job *core.IngestionJob
		err := iter.Item().Value(func(val []byte) error {
			var err error
			job, err = storage.UnmarshalIngestionJob(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if job != nil && job.State == core.JobStateProcessing {
			stuck = append(stuck, job)
		}
	}
	return stuck, nil
}

// readJob reads a job at the given key.
// Returns nil, nil if the key doesn't exist.
func readJob(tx *badger.Txn, key []byte) (*core.IngestionJob, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var job *core.IngestionJob
	err = item.Value(func(val []byte) error {
		var err error
		job, err = storage.UnmarshalIngestionJob(val)
		return err
	})
	return job, err
}

// writeJob stores a job at its primary key.
func writeJob(tx *badger.Txn, job *core.IngestionJob) error {
	value, err := storage.MarshalIngestionJob(job)
	if err != nil {
		return err
	}
	return tx.Set(makeJobKey(job.Id), value)
}

// deleteJobsForRecord removes every job belonging to the record.
// Used by talent deletion to cascade job history.
func deleteJobsForRecord(tx *badger.Txn, recordID core.ID) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialJobRecordIdxKey(recordID)

	iter := tx.NewIterator(opts)
	defer iter.Close()

	var idxKeys [][]byte
	var jobIDs []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		idxKeys = append(idxKeys, iter.Item().KeyCopy(nil))
		var jobID core.ID
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			jobID, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}
		jobIDs = append(jobIDs, jobID)
	}

	for _, key := range idxKeys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	for _, jobID := range jobIDs {
		if err := tx.Delete(makeJobKey(jobID)); err != nil {
			return err
		}
	}
	return nil
}
