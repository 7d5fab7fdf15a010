package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wI2L/jsondiff"

	"github.com/loog-project/roster/internal/eventmux"
	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/patch"
	"github.com/loog-project/roster/internal/store"
	"github.com/loog-project/roster/internal/util"
	"github.com/loog-project/roster/pkg/diffmap"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Hook is called with an entity at a specific point of its lifecycle.
type Hook[P model.Entity] func(ctx context.Context, entity P) error

// ListOptions select a page of a filtered listing.
type ListOptions struct {
	// Filter is an optional boolean expression, see [util.CompileFilter].
	Filter string
	Offset int
	// Limit is clamped to [1, MaxListLimit]; 0 selects DefaultListLimit.
	Limit int
}

// EntityService implements create, read, update and delete for one entity kind
// and records every change with the [TrackerService].
type EntityService[E any, P interface {
	*E
	model.Entity
}] struct {
	kind    model.Kind
	repo    store.Repository[P]
	tracker *TrackerService

	// writeMu serializes writes of all services sharing it, so existence
	// checks, relationship rules and revisions cannot interleave.
	writeMu *sync.Mutex
	events  *eventmux.Mux

	prepare      Hook[P] // normalizes input before validation
	validate     Hook[P]
	resolve      Hook[P] // fills derived fields after reading
	beforeDelete Hook[P]
}

// Option configures an [EntityService].
type Option[P model.Entity] func(*hooks[P])

type hooks[P model.Entity] struct {
	writeMu      *sync.Mutex
	events       *eventmux.Mux
	prepare      Hook[P]
	validate     Hook[P]
	resolve      Hook[P]
	beforeDelete Hook[P]
}

func WithWriteLock[P model.Entity](mu *sync.Mutex) Option[P] {
	return func(h *hooks[P]) { h.writeMu = mu }
}

// WithEvents publishes every recorded change to m.
func WithEvents[P model.Entity](m *eventmux.Mux) Option[P] {
	return func(h *hooks[P]) { h.events = m }
}

func WithPrepare[P model.Entity](fn Hook[P]) Option[P] {
	return func(h *hooks[P]) { h.prepare = fn }
}

func WithValidator[P model.Entity](fn Hook[P]) Option[P] {
	return func(h *hooks[P]) { h.validate = fn }
}

func WithResolver[P model.Entity](fn Hook[P]) Option[P] {
	return func(h *hooks[P]) { h.resolve = fn }
}

func WithBeforeDelete[P model.Entity](fn Hook[P]) Option[P] {
	return func(h *hooks[P]) { h.beforeDelete = fn }
}

// NewEntityService creates a new EntityService for the kind of E.
func NewEntityService[E any, P interface {
	*E
	model.Entity
}](repo store.Repository[P], tracker *TrackerService, opts ...Option[P]) *EntityService[E, P] {
	h := hooks[P]{}
	for _, opt := range opts {
		opt(&h)
	}
	if h.writeMu == nil {
		h.writeMu = &sync.Mutex{}
	}
	return &EntityService[E, P]{
		kind:         P(new(E)).Kind(),
		repo:         repo,
		tracker:      tracker,
		writeMu:      h.writeMu,
		events:       h.events,
		prepare:      h.prepare,
		validate:     h.validate,
		resolve:      h.resolve,
		beforeDelete: h.beforeDelete,
	}
}

// Kind returns the entity kind managed by this service.
func (s *EntityService[E, P]) Kind() model.Kind {
	return s.kind
}

// Create stores a new entity and records its first revision.
func (s *EntityService[E, P]) Create(ctx context.Context, entity P) (P, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.check(ctx, entity); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, entity); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, &ConflictError{Reason: fmt.Sprintf("%s %d already exists", s.kind, entity.GetID())}
		}
		return nil, fmt.Errorf("cannot create %s: %w", s.kind, err)
	}

	rev, _, err := s.commit(ctx, entity)
	if err != nil {
		s.rollback(ctx, entity.GetID(), func() error {
			return s.repo.Delete(ctx, entity.GetID())
		})
		return nil, err
	}
	s.publish(ctx, eventmux.Event{Type: eventmux.Created, Kind: s.kind, ID: entity.GetID(), Revision: rev})
	logger(ctx).Info().
		Str("kind", s.kind.String()).
		Int64("id", entity.GetID()).
		Msg("Created entity")

	return entity, s.runHook(ctx, s.resolve, entity)
}

// FindByID returns the entity with the given ID. The boolean is false if there is no such entity.
func (s *EntityService[E, P]) FindByID(ctx context.Context, id int64) (P, bool, error) {
	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := s.runHook(ctx, s.resolve, entity); err != nil {
		return nil, false, err
	}
	return entity, true, nil
}

// Update replaces a known entity. Unknown IDs are rejected with an
// [*UnknownEntityError] carrying the entity, they are never created implicitly.
func (s *EntityService[E, P]) Update(ctx context.Context, entity P) (P, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.update(ctx, entity)
}

// Patch applies an RFC 6902 JSON Patch to the entity with the given ID.
func (s *EntityService[E, P]) Patch(ctx context.Context, id int64, ops []byte) (P, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &UnknownEntityError{Kind: s.kind, ID: id}
		}
		return nil, err
	}
	if err := s.runHook(ctx, s.resolve, entity); err != nil {
		return nil, err
	}
	if err := patch.Apply(entity, ops); err != nil {
		return nil, &InvalidInputError{What: "patch", Err: err}
	}
	// the ID is addressed by the path, not by the document
	entity.SetID(id)

	return s.update(ctx, entity)
}

// List returns a page of all entities matching opts.Filter, ordered by ID.
func (s *EntityService[E, P]) List(ctx context.Context, opts ListOptions) ([]P, error) {
	var program *vm.Program
	if opts.Filter != "" {
		var err error
		if program, err = util.CompileFilter(opts.Filter); err != nil {
			return nil, &InvalidInputError{What: "filter", Err: err}
		}
	}
	limit := DefaultListLimit
	if opts.Limit != 0 {
		limit = util.Clamp(opts.Limit, 1, MaxListLimit)
	}
	offset := max(opts.Offset, 0)

	all, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]P, 0, min(len(all), limit))
	skipped := 0
	for _, entity := range all {
		if len(result) == limit {
			break
		}
		if err := s.runHook(ctx, s.resolve, entity); err != nil {
			return nil, err
		}
		if program != nil {
			fields, err := model.Fields(entity)
			if err != nil {
				return nil, err
			}
			pass, err := util.RunFilter(program, util.NewFilterEnv(s.kind.String(), fields))
			if err != nil {
				return nil, &InvalidInputError{What: "filter", Err: err}
			}
			if !pass {
				continue
			}
		}
		if skipped < offset {
			skipped++
			continue
		}
		result = append(result, entity)
	}
	return result, nil
}

// Delete removes the entity and its history.
func (s *EntityService[E, P]) Delete(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &UnknownEntityError{Kind: s.kind, ID: id}
		}
		return err
	}
	if err := s.runHook(ctx, s.beforeDelete, entity); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.tracker.Forget(ctx, store.RefOf(entity)); err != nil {
		s.rollback(ctx, id, func() error {
			return s.repo.Create(ctx, entity)
		})
		return fmt.Errorf("cannot drop history of %s %d: %w", s.kind, id, err)
	}
	s.publish(ctx, eventmux.Event{Type: eventmux.Deleted, Kind: s.kind, ID: id})
	logger(ctx).Info().
		Str("kind", s.kind.String()).
		Int64("id", id).
		Msg("Deleted entity")
	return nil
}

// History returns the revisions of the entity, oldest first.
func (s *EntityService[E, P]) History(ctx context.Context, id int64) ([]Revision, error) {
	revisions, err := s.tracker.History(ctx, store.Ref{Kind: s.kind, ID: id})
	if errors.Is(err, store.ErrNotFound) {
		return nil, &UnknownEntityError{Kind: s.kind, ID: id}
	}
	return revisions, err
}

// Revision restores the fields of the entity as they were at rev.
func (s *EntityService[E, P]) Revision(ctx context.Context, id int64, rev store.RevisionID) (*store.Snapshot, error) {
	snapshot, err := s.tracker.Restore(ctx, store.Ref{Kind: s.kind, ID: id}, rev)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &UnknownEntityError{Kind: s.kind, ID: id}
	}
	return snapshot, err
}

// RevisionPatch returns the JSON Patch that turns the previous revision into rev.
// For the first revision the patch adds every field.
func (s *EntityService[E, P]) RevisionPatch(ctx context.Context, id int64, rev store.RevisionID) (jsondiff.Patch, error) {
	current, err := s.Revision(ctx, id, rev)
	if err != nil {
		return nil, err
	}
	previous := diffmap.DiffMap{}
	if rev > 0 {
		before, err := s.Revision(ctx, id, current.PreviousID)
		if err != nil {
			return nil, err
		}
		previous = before.Object
	}
	return patch.Diff(previous, current.Object)
}

func (s *EntityService[E, P]) update(ctx context.Context, entity P) (P, error) {
	previous, err := s.repo.FindByID(ctx, entity.GetID())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &UnknownEntityError{Kind: s.kind, ID: entity.GetID(), Entity: entity}
		}
		return nil, err
	}

	if err := s.check(ctx, entity); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entity); err != nil {
		return nil, fmt.Errorf("cannot update %s %d: %w", s.kind, entity.GetID(), err)
	}

	rev, changes, err := s.commit(ctx, entity)
	if err != nil {
		s.rollback(ctx, entity.GetID(), func() error {
			return s.repo.Update(ctx, previous)
		})
		return nil, err
	}
	l := logger(ctx).With().
		Str("kind", s.kind.String()).
		Int64("id", entity.GetID()).
		Logger()
	if len(changes) == 0 {
		l.Debug().Msg("Updated entity without changes")
	} else {
		l.Info().
			Str("changes", diffmap.Format(changes)).
			Msg("Updated entity")
		s.publish(ctx, eventmux.Event{
			Type:     eventmux.Updated,
			Kind:     s.kind,
			ID:       entity.GetID(),
			Revision: rev,
			Changes:  changes,
		})
	}

	return entity, s.runHook(ctx, s.resolve, entity)
}

// check runs the prepare and validate hooks.
func (s *EntityService[E, P]) check(ctx context.Context, entity P) error {
	if err := s.runHook(ctx, s.prepare, entity); err != nil {
		return err
	}
	return s.runHook(ctx, s.validate, entity)
}

func (s *EntityService[E, P]) commit(ctx context.Context, entity P) (store.RevisionID, map[string]string, error) {
	fields, err := model.Fields(entity)
	if err != nil {
		return 0, nil, err
	}
	rev, changes, err := s.tracker.Commit(ctx, store.RefOf(entity), fields)
	if err != nil {
		return 0, nil, fmt.Errorf("cannot record revision of %s %d: %w", s.kind, entity.GetID(), err)
	}
	return rev, changes, nil
}

// rollback undoes an entity write whose revision could not be recorded, so the
// stored entity always matches the latest revision.
func (s *EntityService[E, P]) rollback(ctx context.Context, id int64, undo func() error) {
	if err := undo(); err != nil {
		logger(ctx).Error().Err(err).
			Str("kind", s.kind.String()).
			Int64("id", id).
			Msg("Cannot roll back entity after failed revision")
	}
}

// publish is called with the write lock held, so events arrive in commit order.
func (s *EntityService[E, P]) publish(ctx context.Context, ev eventmux.Event) {
	if s.events == nil {
		return
	}
	ev.Time = s.tracker.now()
	if err := s.events.Publish(ev); err != nil {
		logger(ctx).Debug().Err(err).
			Str("kind", s.kind.String()).
			Int64("id", ev.ID).
			Msg("Cannot publish change event")
	}
}

func (s *EntityService[E, P]) runHook(ctx context.Context, hook Hook[P], entity P) error {
	if hook == nil {
		return nil
	}
	return hook(ctx, entity)
}

// logger returns the request scoped logger if there is one, the global logger otherwise.
func logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}
