package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sablehq/talentdeck/core"
	"github.com/sablehq/talentdeck/storage"
)

// TagRepository implements storage.TagRepository for BadgerDB.
// Tag IDs are content-based (IDFromContent of the name).
type TagRepository struct {
	backend *Backend
}

var _ storage.TagRepository = (*TagRepository)(nil)

// NewTagRepository creates a new TagRepository.
func NewTagRepository(backend *Backend) (*TagRepository, error) {
	return &TagRepository{
		backend: backend,
	}, nil
}

// Close releases resources. TagRepository has no resources to release.
func (r *TagRepository) Close() error {
	return nil
}

// EnsureTag finds or creates a tag by its case-sensitive name.
func (r *TagRepository) EnsureTag(ctx context.Context, name string) (*core.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.ErrEmptyName
	}

	// Try to find existing tag
	tag, err := r.FindTagByName(ctx, name)
	if err == nil {
		return tag, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	newTag := &core.Tag{
		Id:         core.IDFromContent("tag:" + name),
		Name:       name,
		Color:      core.DefaultTagColor,
		InsertedAt: time.Now().UTC(),
	}

	addErr := r.backend.WithTx(func(tx *badger.Txn) error {
		value, err := storage.MarshalTag(newTag)
		if err != nil {
			return err
		}
		if err := tx.Set(makeTagKey(newTag.Id), value); err != nil {
			return err
		}
		if err := tx.Set(makeTagNameKey(name), storage.MarshalID(newTag.Id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if addErr != nil {
		// If add failed, try to find it again (someone else may have created it)
		tag, findErr := r.FindTagByName(ctx, name)
		if findErr == nil {
			return tag, nil
		}
		return nil, addErr
	}

	return newTag, nil
}

// GetTag retrieves a single tag by ID.
func (r *TagRepository) GetTag(ctx context.Context, id core.ID) (*core.Tag, error) {
	var result *core.Tag
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTag(tx, makeTagKey(id))
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

// FindTagByName finds a tag by its exact name.
func (r *TagRepository) FindTagByName(ctx context.Context, name string) (*core.Tag, error) {
	var result *core.Tag
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTagNameKey(name))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var id core.ID
		if err := item.Value(func(val []byte) error {
			var valErr error
			id, valErr = storage.UnmarshalID(val)
			return valErr
		}); err != nil {
			return err
		}

		result, err = readTag(tx, makeTagKey(id))
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

// ListTags retrieves all tags ordered by name.
func (r *TagRepository) ListTags(ctx context.Context) ([]*core.Tag, error) {
	var results []*core.Tag
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(tagRecordPrefix + ":")

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var tag *core.Tag
			err := iter.Item().Value(func(val []byte) error {
				var err error
				tag, err = storage.UnmarshalTag(val)
				return err
			})
			if err != nil {
				return err
			}
			if tag != nil {
				results = append(results, tag)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Tag) int {
		return strings.Compare(a.Name, b.Name)
	})
	return results, nil
}

// readTag reads a tag at the given key.
// Returns nil, nil if the key doesn't exist.
func readTag(tx *badger.Txn, key []byte) (*core.Tag, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var tag *core.Tag
	err = item.Value(func(val []byte) error {
		var err error
		tag, err = storage.UnmarshalTag(val)
		return err
	})
	return tag, err
}
