package badger

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

// DimensionRepository implements storage.DimensionRepository for BadgerDB.
// Dimension IDs are content-based (IDFromContent of the key), which makes
// concurrent duplicate proposals collapse to the same identity.
type DimensionRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.DimensionRepository = (*DimensionRepository)(nil)

// NewDimensionRepository creates a new DimensionRepository.
func NewDimensionRepository(backend *Backend) (*DimensionRepository, error) {
	return &DimensionRepository{
		backend: backend,
		logger:  slog.Default().With("component", "dimension-repository"),
	}, nil
}

// Close releases resources. DimensionRepository has no resources to release.
func (r *DimensionRepository) Close() error {
	return nil
}

// ListDimensions returns all dimensions ordered by their Order field.
func (r *DimensionRepository) ListDimensions(ctx context.Context) ([]*core.Dimension, error) {
	var results []*core.Dimension
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readAllDimensions(tx)
		return err
	}, false)
	return results, err
}

// EnsureDimension creates the dimension if its key is new, backfilling the
// structural default into every existing talent record in the same
// transaction, so a reader never observes the dimension without its
// backfill. Existing keys return the stored dimension unchanged.
// Concurrent proposals for the same key conflict on the key index; the
// losing transaction retries, finds the key, and becomes a no-op.
func (r *DimensionRepository) EnsureDimension(ctx context.Context, key, label, schemaHint string) (*core.Dimension, bool, error) {
	return r.ensureDimension(ctx, key, label, schemaHint, false)
}

// SeedBuiltinDimensions ensures the given dimensions exist with the builtin
// flag set. Used once at database open; existing keys are left untouched.
func (r *DimensionRepository) SeedBuiltinDimensions(ctx context.Context, dimensions []*core.Dimension) error {
	for _, dimension := range dimensions {
		if _, _, err := r.ensureDimension(ctx, dimension.Key, dimension.Label, dimension.SchemaHint, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *DimensionRepository) ensureDimension(ctx context.Context, key, label, schemaHint string, builtin bool) (*core.Dimension, bool, error) {
	if err := core.ValidateDimension(&core.Dimension{Key: key}); err != nil {
		return nil, false, err
	}
	if label == "" {
		label = key
	}

	var result *core.Dimension
	var created bool

	err := r.backend.WithTxRetry(func(tx *badger.Txn) error {
		result = nil
		created = false

		// Idempotency: an existing key is a no-op.
		existing, err := readDimensionByKey(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		all, err := readAllDimensions(tx)
		if err != nil {
			return err
		}

		dimension := &core.Dimension{
			Id:         core.IDFromContent(key),
			Key:        key,
			Label:      label,
			SchemaHint: schemaHint,
			Builtin:    builtin,
			Order:      len(all),
			InsertedAt: time.Now().UTC(),
		}

		value, err := storage.MarshalDimension(dimension)
		if err != nil {
			return err
		}
		if err := tx.Set(makeDimensionKey(dimension.Id), value); err != nil {
			return err
		}
		if err := tx.Set(makeDimensionKeyIndexKey(key), storage.MarshalID(dimension.Id)); err != nil {
			return err
		}

		// Backfill: every existing record gets the structural default.
		defaultValue := core.EmptyDefault(schemaHint)
		records, err := readAllTalents(tx)
		if err != nil {
			return err
		}
		for _, record := range records {
			if record.Card == nil {
				record.Card = core.Card{}
			}
			if _, ok := record.Card[key]; ok {
				continue
			}
			record.Card[key] = defaultValue
			record.UpdatedAt = time.Now().UTC()
			if err := writeTalent(tx, record); err != nil {
				return err
			}
		}

		result = dimension
		created = true
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, false, err
	}
	if created {
		r.logger.Info("new dimension added", "key", key, "label", label)
	}
	return result, created, nil
}

// readDimensionByKey resolves a dimension through the key index.
// Returns nil, nil if the key doesn't exist.
func readDimensionByKey(tx *badger.Txn, key string) (*core.Dimension, error) {
	item, err := tx.Get(makeDimensionKeyIndexKey(key))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var id core.ID
	if err := item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalID(val)
		return err
	}); err != nil {
		return nil, err
	}

	return readDimension(tx, makeDimensionKey(id))
}

// readDimension reads a dimension at the given key.
// Returns nil, nil if the key doesn't exist.
func readDimension(tx *badger.Txn, key []byte) (*core.Dimension, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var dimension *core.Dimension
	err = item.Value(func(val []byte) error {
		var err error
		dimension, err = storage.UnmarshalDimension(val)
		return err
	})
	return dimension, err
}

// readAllDimensions scans every dimension, ordered by Order then key.
func readAllDimensions(tx *badger.Txn) ([]*core.Dimension, error) {
	var results []*core.Dimension

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(dimensionPrefix + ":")

	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var dimension *core.Dimension
		err := iter.Item().Value(func(val []byte) error {
			var err error
			dimension, err = storage.UnmarshalDimension(val)
			return err
		})
		if err != nil {
			return nil, err
		}
		if dimension != nil {
			results = append(results, dimension)
		}
	}

	slices.SortFunc(results, func(a, b *core.Dimension) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})
	return results, nil
}
