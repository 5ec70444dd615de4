package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stanza/core"
	"github.com/poiesic/stanza/storage"
)

// FragmentRepository implements storage.FragmentRepository for BadgerDB.
//
// Three key spaces are maintained per fragment: the record itself keyed by
// ID, a recency index keyed by (InsertedAt, ID) and a fingerprint index
// mapping normalized-text fingerprints to IDs.
type FragmentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
	logger  *slog.Logger
}

var _ storage.FragmentRepository = (*FragmentRepository)(nil)

// NewFragmentRepository creates a new FragmentRepository.
func NewFragmentRepository(backend *Backend) (*FragmentRepository, error) {
	idSeq, err := backend.GetSequence(fragmentIDSeq)
	if err != nil {
		return nil, err
	}

	return &FragmentRepository{
		backend: backend,
		idSeq:   idSeq,
		logger:  backend.logger.With("repository", "fragment"),
	}, nil
}

// Close releases the ID sequence.
func (r *FragmentRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *FragmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// nextID returns the next fragment ID, skipping zero.
func (r *FragmentRepository) nextID() (core.ID, error) {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = r.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(nextID), nil
}

// AddFragments adds one or more fragments to storage.
// The call is atomic: on error nothing is stored and the fragments are left unchanged.
func (r *FragmentRepository) AddFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error) {
	for _, fragment := range fragments {
		if err := core.ValidateFragment(fragment); err != nil {
			return nil, err
		}
	}

	originals := make([]core.Fragment, len(fragments))
	for i, fragment := range fragments {
		originals[i] = *fragment
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, fragment := range fragments {
			fragment.Fingerprint = core.Fingerprint(fragment.Text)

			// Pending writes in tx are visible here, so repeats within one call collide too.
			fpKey := makeFragmentFingerprintKey(fragment.Fingerprint)
			if _, err := tx.Get(fpKey); err == nil {
				return fmt.Errorf("%w: fragment %q", storage.ErrDuplicateKey, preview(fragment.Text))
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			id, err := r.nextID()
			if err != nil {
				return err
			}
			fragment.Id = id
			fragment.InsertedAt = now()
			fragment.UpdatedAt = fragment.InsertedAt

			if err := tx.Set(makeFragmentKey(fragment.Id), storage.MarshalFragment(fragment)); err != nil {
				return err
			}
			if err := tx.Set(makeFragmentDateKey(fragment.InsertedAt, fragment.Id), storage.MarshalID(fragment.Id)); err != nil {
				return err
			}
			if err := tx.Set(fpKey, storage.MarshalID(fragment.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		for i, fragment := range fragments {
			*fragment = originals[i]
		}
		return nil, err
	}

	r.logger.Debug("added fragments", "count", len(fragments))
	return fragments, nil
}

// UpdateFragments updates existing fragments.
func (r *FragmentRepository) UpdateFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error) {
	for _, fragment := range fragments {
		if err := core.ValidateFragment(fragment); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, fragment := range fragments {
			key := makeFragmentKey(fragment.Id)

			old, err := readFragment(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return fmt.Errorf("%w: fragment %d", storage.ErrNotFound, fragment.Id)
			}

			// The recency index is keyed on InsertedAt, which never changes.
			fragment.InsertedAt = old.InsertedAt
			fragment.Fingerprint = core.Fingerprint(fragment.Text)
			fragment.UpdatedAt = now()

			if fragment.Fingerprint != old.Fingerprint {
				newFpKey := makeFragmentFingerprintKey(fragment.Fingerprint)
				if _, err := tx.Get(newFpKey); err == nil {
					return fmt.Errorf("%w: fragment %q", storage.ErrDuplicateKey, preview(fragment.Text))
				} else if !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
				if err := tx.Delete(makeFragmentFingerprintKey(old.Fingerprint)); err != nil {
					return err
				}
				if err := tx.Set(newFpKey, storage.MarshalID(fragment.Id)); err != nil {
					return err
				}
			}

			if err := tx.Set(key, storage.MarshalFragment(fragment)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return fragments, nil
}

// DeleteFragments removes fragments by their IDs.
func (r *FragmentRepository) DeleteFragments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeFragmentKey(id)

			fragment, err := readFragment(tx, key)
			if err != nil {
				return err
			}
			if fragment == nil {
				return fmt.Errorf("%w: fragment %d", storage.ErrNotFound, id)
			}

			if err := tx.Delete(makeFragmentDateKey(fragment.InsertedAt, fragment.Id)); err != nil {
				return err
			}
			if err := tx.Delete(makeFragmentFingerprintKey(fragment.Fingerprint)); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetFragment retrieves a single fragment by ID.
func (r *FragmentRepository) GetFragment(ctx context.Context, id core.ID) (*core.Fragment, error) {
	var result *core.Fragment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readFragment(tx, makeFragmentKey(id))
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

// GetFragments retrieves multiple fragments by their IDs.
func (r *FragmentRepository) GetFragments(ctx context.Context, ids ...core.ID) ([]*core.Fragment, error) {
	result := make([]*core.Fragment, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			fragment, err := readFragment(tx, makeFragmentKey(id))
			if err != nil {
				return err
			}
			if fragment != nil {
				result = append(result, fragment)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindByFingerprint retrieves the fragment with the given fingerprint.
func (r *FragmentRepository) FindByFingerprint(ctx context.Context, fingerprint core.ID) (*core.Fragment, error) {
	var result *core.Fragment
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		id, err := readIndexedID(tx, makeFragmentFingerprintKey(fingerprint))
		if err != nil {
			return err
		}
		result, err = readFragment(tx, makeFragmentKey(id))
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

// ListFragments returns every stored fragment, most recent first.
func (r *FragmentRepository) ListFragments(ctx context.Context) ([]*core.Fragment, error) {
	return r.scanRecent(ctx, 0)
}

// GetRecentFragments retrieves up to limit fragments, most recent first.
func (r *FragmentRepository) GetRecentFragments(ctx context.Context, limit int) ([]*core.Fragment, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	return r.scanRecent(ctx, limit)
}

// scanRecent walks the recency index backwards. A limit of zero means no limit.
func (r *FragmentRepository) scanRecent(ctx context.Context, limit int) ([]*core.Fragment, error) {
	results := make([]*core.Fragment, 0)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		prefix := []byte(fragmentDatePrefix)
		for iter.Seek(lastFragmentDateKey()); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			if !hasPrefix(iter.Item().Key(), prefix) {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var fragmentID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				fragmentID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			fragment, err := readFragment(tx, makeFragmentKey(fragmentID))
			if err != nil {
				return err
			}
			if fragment != nil {
				results = append(results, fragment)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetFragmentsAfterID retrieves up to limit fragments with ID > afterID, ascending.
func (r *FragmentRepository) GetFragmentsAfterID(ctx context.Context, afterID core.ID, limit int) ([]*core.Fragment, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}

	results := make([]*core.Fragment, 0, limit)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(fragmentPrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(makeFragmentKey(afterID)); iter.ValidForPrefix(prefix) && len(results) < limit; iter.Next() {
			item := iter.Item()
			if fragmentIDFromKey(item.Key()) == afterID {
				continue
			}

			var fragment *core.Fragment
			if err := item.Value(func(val []byte) error {
				var err error
				fragment, err = storage.UnmarshalFragment(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, fragment)
		}
		return nil
	}, false)

	return results, err
}

// CountFragments returns the number of stored fragments.
func (r *FragmentRepository) CountFragments(ctx context.Context) (int, error) {
	return r.backend.countPrefix([]byte(fragmentDatePrefix))
}

// readFragment reads a fragment from the transaction.
// Returns nil, nil if the key does not exist.
func readFragment(tx *badger.Txn, key []byte) (*core.Fragment, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var fragment *core.Fragment
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		fragment, unmarshalErr = storage.UnmarshalFragment(val)
		return unmarshalErr
	})
	return fragment, err
}

// readIndexedID reads the ID stored under an index key.
// Returns storage.ErrNotFound if the key does not exist.
func readIndexedID(tx *badger.Txn, key []byte) (core.ID, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}

	var id core.ID
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		id, unmarshalErr = storage.UnmarshalID(val)
		return unmarshalErr
	})
	return id, err
}

// now returns the current time at the precision records are stored with.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// preview shortens text for error messages.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= 32 {
		return text
	}
	return string(runes[:32]) + "..."
}
