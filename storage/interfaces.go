package storage

import (
	"context"

	"github.com/poiesic/stanza/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// FragmentRepository provides operations for managing fragments.
type FragmentRepository interface {
	Repository

	// AddFragments adds one or more fragments to storage.
	// IDs are always generated from a sequence and InsertedAt/UpdatedAt are set.
	// The fingerprint is computed from the text; a fragment whose fingerprint
	// is already stored (or repeated within the call) fails the whole call
	// with ErrDuplicateKey.
	// Returns the fragments with generated IDs and timestamps populated.
	AddFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error)

	// UpdateFragments updates existing fragments.
	// Updates the UpdatedAt timestamp automatically; Id and InsertedAt are kept.
	// Returns ErrNotFound if any fragment doesn't exist and ErrDuplicateKey if
	// a changed text collides with another fragment.
	UpdateFragments(ctx context.Context, fragments ...*core.Fragment) ([]*core.Fragment, error)

	// DeleteFragments removes fragments by their IDs, including their indexes.
	// Returns ErrNotFound if any fragment doesn't exist.
	DeleteFragments(ctx context.Context, ids ...core.ID) error

	// GetFragment retrieves a single fragment by ID.
	// Returns ErrNotFound if the fragment doesn't exist.
	GetFragment(ctx context.Context, id core.ID) (*core.Fragment, error)

	// GetFragments retrieves multiple fragments by their IDs.
	// Returns only the fragments that exist (no error for missing fragments).
	GetFragments(ctx context.Context, ids ...core.ID) ([]*core.Fragment, error)

	// FindByFingerprint retrieves the fragment with the given fingerprint.
	// Returns ErrNotFound if no fragment has it.
	FindByFingerprint(ctx context.Context, fingerprint core.ID) (*core.Fragment, error)

	// ListFragments returns every stored fragment, most recent first.
	ListFragments(ctx context.Context) ([]*core.Fragment, error)

	// GetRecentFragments retrieves up to limit fragments, most recent first.
	GetRecentFragments(ctx context.Context, limit int) ([]*core.Fragment, error)

	// GetFragmentsAfterID retrieves up to limit fragments with an ID strictly
	// greater than afterID, in ascending ID order.
	GetFragmentsAfterID(ctx context.Context, afterID core.ID, limit int) ([]*core.Fragment, error)

	// CountFragments returns the number of stored fragments.
	CountFragments(ctx context.Context) (int, error)
}

// CheckpointRepository persists progress markers for long-running processors.
type CheckpointRepository interface {
	// SaveCheckpoint stores the checkpoint, setting UpdatedAt.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the checkpoint for a processor type.
	// Returns nil, nil if none exists.
	LoadCheckpoint(ctx context.Context, processorType string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the checkpoint for a processor type, if any.
	DeleteCheckpoint(ctx context.Context, processorType string) error
}
