package store

import (
	"context"
	"errors"

	"github.com/loog-project/roster/internal/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidRevision = errors.New("invalid revision")
)

// Repository provides generic CRUD persistence for one entity kind.
type Repository[P model.Entity] interface {
	// Create stores a new entity. If its ID is 0, the next free ID is assigned.
	Create(ctx context.Context, entity P) error
	// FindByID returns [ErrNotFound] if there is no entity with the given ID.
	FindByID(ctx context.Context, id int64) (P, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// Update stores the entity under its ID, whether it existed before or not.
	Update(ctx context.Context, entity P) error
	// FindAll returns all entities ordered by ID.
	FindAll(ctx context.Context) ([]P, error)
	Delete(ctx context.Context, id int64) error
}

// RevisionWalkFunc is called for every revision of an entity, oldest first.
// Exactly one of snapshot and patch is non-nil. Returning false stops the walk.
type RevisionWalkFunc func(revisionID RevisionID, snapshot *Snapshot, patch *Patch) bool

// RevisionStore keeps the change history of entities as a chain of snapshots and patches.
type RevisionStore interface {
	// Get returns either the snapshot or the patch stored for the given revision.
	Get(ctx context.Context, ref Ref, revID RevisionID) (*Snapshot, *Patch, error)

	// SetSnapshot stores a full snapshot and assigns its ID.
	SetSnapshot(ctx context.Context, ref Ref, snapshot *Snapshot) error
	// SetPatch stores a patch and assigns its ID.
	SetPatch(ctx context.Context, ref Ref, patch *Patch) error

	GetLatestRevision(ctx context.Context, ref Ref) (RevisionID, error)
	WalkRevisions(ctx context.Context, ref Ref, fn RevisionWalkFunc) error

	// DeleteRevisions drops the whole history of an entity.
	DeleteRevisions(ctx context.Context, ref Ref) error

	Close() error
}
