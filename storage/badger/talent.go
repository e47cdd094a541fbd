package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

// TalentRepository implements storage.TalentRepository for BadgerDB.
type TalentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.TalentRepository = (*TalentRepository)(nil)

// NewTalentRepository creates a new TalentRepository.
func NewTalentRepository(backend *Backend) (*TalentRepository, error) {
	idSeq, err := backend.GetSequence(talentIDSeq)
	if err != nil {
		return nil, err
	}

	return &TalentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *TalentRepository) Close() error {
	return r.idSeq.Release()
}

// AddTalents adds one or more talent records to storage. Each record's
// card is filled with the registry's structural default for any
// dimension key it does not already carry.
func (r *TalentRepository) AddTalents(ctx context.Context, records ...*core.TalentRecord) ([]*core.TalentRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		dimensions, err := readAllDimensions(tx)
		if err != nil {
			return err
		}

		for _, record := range records {
			if err := core.ValidateTalentRecord(record); err != nil {
				return err
			}

			// Always generate new ID from sequence
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
			record.Id = core.ID(nextID)

			record.InsertedAt = time.Now().UTC()
			record.UpdatedAt = record.InsertedAt

			if record.Card == nil {
				record.Card = core.Card{}
			}
			for _, dimension := range dimensions {
				if _, ok := record.Card[dimension.Key]; !ok {
					record.Card[dimension.Key] = core.EmptyDefault(dimension.SchemaHint)
				}
			}

			if err := writeTalent(tx, record); err != nil {
				return err
			}

			// Populate tag index
			for _, tagID := range record.Tags {
				if err := tx.Set(makeTalentTagKey(tagID, record.Id), storage.MarshalID(record.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// UpdateTalents updates existing talent records.
func (r *TalentRepository) UpdateTalents(ctx context.Context, records ...*core.TalentRecord) ([]*core.TalentRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			key := makeTalentKey(record.Id)

			// Read old record to detect changes
			old, err := readTalent(tx, key)
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

			// Update tag index if associations changed
			if !tagIDsEqual(old.Tags, record.Tags) {
				if err := reconcileTagIndex(tx, old, record); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return records, err
}

// DeleteTalents removes talent records by their IDs. Ingestion job history
// owned by the record is removed as well.
func (r *TalentRepository) DeleteTalents(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeTalentKey(id)

			record, err := readTalent(tx, key)
			if err != nil {
				return err
			}
			if record == nil {
				return storage.ErrNotFound
			}

			// Delete from tag index
			for _, tagID := range record.Tags {
				if err := tx.Delete(makeTalentTagKey(tagID, record.Id)); err != nil {
					return err
				}
			}

			// Cascade: delete the record's job history
			if err := deleteJobsForRecord(tx, id); err != nil {
				return err
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetTalent retrieves a single talent record by ID.
func (r *TalentRepository) GetTalent(ctx context.Context, id core.ID) (*core.TalentRecord, error) {
	var result *core.TalentRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTalent(tx, makeTalentKey(id))
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

// GetAllTalents retrieves every talent record, ordered by ID.
func (r *TalentRepository) GetAllTalents(ctx context.Context) ([]*core.TalentRecord, error) {
	var results []*core.TalentRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readAllTalents(tx)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.TalentRecord) int {
		if a.Id < b.Id {
			return -1
		}
		if a.Id > b.Id {
			return 1
		}
		return 0
	})
	return results, nil
}

// GetTalentsByTag retrieves IDs of talent records associated with a tag.
func (r *TalentRepository) GetTalentsByTag(ctx context.Context, tagID core.ID) ([]core.ID, error) {
	var results []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialTalentTagKey(tagID)

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				id, err := storage.UnmarshalID(val)
				if err != nil {
					return err
				}
				results = append(results, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return results, err
}

// readTalent reads a talent record at the given key.
// Returns nil, nil if the key doesn't exist.
func readTalent(tx *badger.Txn, key []byte) (*core.TalentRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record *core.TalentRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalTalentRecord(val)
		return err
	})
	return record, err
}

// writeTalent stores a talent record at its primary key.
func writeTalent(tx *badger.Txn, record *core.TalentRecord) error {
	value, err := storage.MarshalTalentRecord(record)
	if err != nil {
		return err
	}
	return tx.Set(makeTalentKey(record.Id), value)
}

// readAllTalents scans every talent record in the transaction.
func readAllTalents(tx *badger.Txn) ([]*core.TalentRecord, error) {
	var results []*core.TalentRecord

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(talentRecordPrefix + ":")

	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var record *core.TalentRecord
		err := iter.Item().Value(func(val []byte) error {
			var err error
			record, err = storage.UnmarshalTalentRecord(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if record != nil {
			results = append(results, record)
		}
	}
	return results, nil
}

// reconcileTagIndex replaces old tag index entries with the new set.
func reconcileTagIndex(tx *badger.Txn, old, record *core.TalentRecord) error {
	for _, tagID := range old.Tags {
		if err := tx.Delete(makeTalentTagKey(tagID, old.Id)); err != nil {
			return err
		}
	}
	for _, tagID := range record.Tags {
		if err := tx.Set(makeTalentTagKey(tagID, record.Id), storage.MarshalID(record.Id)); err != nil {
			return err
		}
	}
	return nil
}

// tagIDsEqual compares two tag ID slices for equality.
func tagIDsEqual(a, b []core.ID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
