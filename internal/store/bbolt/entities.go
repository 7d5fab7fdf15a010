package bbolt

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/store"
)

// Repository persists entities of a single kind in their own bucket.
// Keys are big-endian IDs, so cursors iterate in ID order.
//
// P must be a pointer to E, e.g. Repository[model.Coach, *model.Coach].
type Repository[E any, P interface {
	*E
	model.Entity
}] struct {
	store  *Store
	kind   model.Kind
	bucket []byte
}

// NewRepository returns the repository for the entity kind of E.
func NewRepository[E any, P interface {
	*E
	model.Entity
}](s *Store) *Repository[E, P] {
	kind := P(new(E)).Kind()
	return &Repository[E, P]{
		store:  s,
		kind:   kind,
		bucket: entityBucket(kind),
	}
}

var _ store.Repository[*model.Coach] = (*Repository[model.Coach, *model.Coach])(nil)

func (r *Repository[E, P]) Create(_ context.Context, entity P) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)

		id := entity.GetID()
		switch {
		case id == 0:
			next, err := b.NextSequence()
			if err != nil {
				return err
			}
			id = int64(next)
		case id < 0:
			return fmt.Errorf("invalid %s id %d", r.kind, id)
		default:
			if b.Get(keyEntity(id)) != nil {
				return fmt.Errorf("%s %d: %w", r.kind, id, store.ErrAlreadyExists)
			}
			// make sure generated IDs never collide with client-chosen ones
			if uint64(id) > b.Sequence() {
				if err := b.SetSequence(uint64(id)); err != nil {
					return err
				}
			}
		}

		entity.SetID(id)
		return r.put(b, entity)
	})
}

func (r *Repository[E, P]) FindByID(_ context.Context, id int64) (P, error) {
	var entity P
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(r.bucket).Get(keyEntity(id))
		if v == nil {
			return fmt.Errorf("%s %d: %w", r.kind, id, store.ErrNotFound)
		}
		entity = P(new(E))
		return r.store.codec.Unmarshal(v, entity)
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (r *Repository[E, P]) Exists(_ context.Context, id int64) (bool, error) {
	var exists bool
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(r.bucket).Get(keyEntity(id)) != nil
		return nil
	})
	return exists, err
}

func (r *Repository[E, P]) Update(_ context.Context, entity P) error {
	if entity.GetID() <= 0 {
		return fmt.Errorf("invalid %s id %d", r.kind, entity.GetID())
	}
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		if uint64(entity.GetID()) > b.Sequence() {
			if err := b.SetSequence(uint64(entity.GetID())); err != nil {
				return err
			}
		}
		return r.put(b, entity)
	})
}

func (r *Repository[E, P]) FindAll(_ context.Context) ([]P, error) {
	var entities []P
	err := r.store.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(r.bucket).ForEach(func(k, v []byte) error {
			entity := P(new(E))
			if err := r.store.codec.Unmarshal(v, entity); err != nil {
				return fmt.Errorf("cannot decode %s %d: %w", r.kind, int64(binary.BigEndian.Uint64(k)), err)
			}
			entities = append(entities, entity)
			return nil
		})
	})
	return entities, err
}

func (r *Repository[E, P]) Delete(_ context.Context, id int64) error {
	return r.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(r.bucket)
		key := keyEntity(id)
		if b.Get(key) == nil {
			return fmt.Errorf("%s %d: %w", r.kind, id, store.ErrNotFound)
		}
		return b.Delete(key)
	})
}

func (r *Repository[E, P]) put(b *bbolt.Bucket, entity P) error {
	payload, err := r.store.codec.Marshal(entity)
	if err != nil {
		return fmt.Errorf("cannot encode %s %d: %w", r.kind, entity.GetID(), err)
	}
	return b.Put(keyEntity(entity.GetID()), payload)
}
