package bbolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/loog-project/roster/internal/store"
)

// SetSnapshot stores a full snapshot and bumps the counter.
func (s *Store) SetSnapshot(
	_ context.Context,
	ref store.Ref,
	snapshot *store.Snapshot,
) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		revNum, err := s.claimNextRevision(tx, ref)
		if err != nil {
			return err
		}
		snapshot.ID = revNum

		// save the payload
		key := keyRefRevision(ref, revNum)
		payload, err := s.codec.Marshal(snapshot)
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketSnapshots).Put(key, payload)
		if err != nil {
			return err
		}

		// update the index
		indexBytes, err := msgpack.Marshal(indexEntry{Snap: true})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketIndex).Put(key, indexBytes)
	})
}

// SetPatch stores a delta and bumps the counter.
func (s *Store) SetPatch(
	_ context.Context,
	ref store.Ref,
	rec *store.Patch,
) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		revNum, err := s.claimNextRevision(tx, ref)
		if err != nil {
			return err
		}
		if revNum == 0 {
			return fmt.Errorf("%w: first revision of %s must be a snapshot", store.ErrInvalidRevision, ref)
		}
		rec.ID = revNum

		chunkID := uint64(revNum) / chunkSize
		offset := uint16(revNum % chunkSize)
		recBytes, err := s.codec.Marshal(rec)
		if err != nil {
			return err
		}
		if err := s.putChunk(tx, ref, chunkID, offset, recBytes); err != nil {
			return err
		}
		idx := indexEntry{Snap: false, Chunk: chunkID, Offset: offset}
		idxBytes, err := msgpack.Marshal(&idx)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketIndex).Put(keyRefRevision(ref, revNum), idxBytes)
	})
}

// Get returns either the snapshot or the patch of the given revision.
func (s *Store) Get(
	_ context.Context,
	ref store.Ref,
	revID store.RevisionID,
) (*store.Snapshot, *store.Patch, error) {
	var (
		snapshot *store.Snapshot
		patchRec *store.Patch
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		idx, err := readIndex(tx, ref, revID)
		if err != nil {
			return err
		}
		if idx.Snap {
			snapshot, err = s.readSnapshot(tx, ref, revID)
		} else {
			patchRec, err = s.readPatch(tx, ref, idx)
		}
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return snapshot, patchRec, nil
}

// GetLatestRevision returns the highest committed revision for ref.
func (s *Store) GetLatestRevision(
	_ context.Context,
	ref store.Ref,
) (store.RevisionID, error) {
	key := keyRef(ref)

	// check cache first
	s.nextRevisionCounterMutex.RLock()
	if next, ok := s.nextRevisionCounter[string(key)]; ok {
		s.nextRevisionCounterMutex.RUnlock()
		return store.RevisionID(next - 1), nil
	}
	s.nextRevisionCounterMutex.RUnlock()

	var next uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketLatest).Get(key)
		if v == nil {
			return store.ErrNotFound
		}
		next = binary.BigEndian.Uint64(v)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.nextRevisionCounterMutex.Lock()
	s.nextRevisionCounter[string(key)] = next
	s.nextRevisionCounterMutex.Unlock()
	return store.RevisionID(next - 1), nil
}

// WalkRevisions calls fn for every revision of ref in ascending order.
// It returns [store.ErrNotFound] if ref has no history at all.
func (s *Store) WalkRevisions(
	_ context.Context,
	ref store.Ref,
	fn store.RevisionWalkFunc,
) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		prefix := keyRefPrefix(ref)
		c := tx.Bucket(bucketIndex).Cursor()

		found := false
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			found = true
			revID := store.RevisionID(binary.BigEndian.Uint64(k[len(prefix):]))

			var idx indexEntry
			if err := msgpack.Unmarshal(v, &idx); err != nil {
				return fmt.Errorf("corrupt index entry for %s@%s: %w", ref, revID, err)
			}

			var (
				snapshot *store.Snapshot
				patchRec *store.Patch
				err      error
			)
			if idx.Snap {
				snapshot, err = s.readSnapshot(tx, ref, revID)
			} else {
				patchRec, err = s.readPatch(tx, ref, idx)
			}
			if err != nil {
				return fmt.Errorf("cannot read %s@%s: %w", ref, revID, err)
			}
			if !fn(revID, snapshot, patchRec) {
				return nil
			}
		}
		if !found {
			return store.ErrNotFound
		}
		return nil
	})
}

// DeleteRevisions removes the complete history of ref.
func (s *Store) DeleteRevisions(_ context.Context, ref store.Ref) error {
	key := keyRef(ref)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		prefix := keyRefPrefix(ref)
		for _, b := range [][]byte{bucketSnapshots, bucketChunks, bucketIndex} {
			if err := deleteWithPrefix(tx.Bucket(b), prefix); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketLatest).Delete(key)
	})
	if err != nil {
		return err
	}

	s.nextRevisionCounterMutex.Lock()
	delete(s.nextRevisionCounter, string(key))
	s.nextRevisionCounterMutex.Unlock()
	return nil
}

func readIndex(tx *bbolt.Tx, ref store.Ref, revID store.RevisionID) (indexEntry, error) {
	var idx indexEntry
	idxBytes := tx.Bucket(bucketIndex).Get(keyRefRevision(ref, revID))
	if idxBytes == nil {
		return idx, fmt.Errorf("%w: %s@%s", store.ErrNotFound, ref, revID)
	}
	err := msgpack.Unmarshal(idxBytes, &idx)
	return idx, err
}

func (s *Store) readSnapshot(tx *bbolt.Tx, ref store.Ref, revID store.RevisionID) (*store.Snapshot, error) {
	v := tx.Bucket(bucketSnapshots).Get(keyRefRevision(ref, revID))
	if v == nil {
		return nil, store.ErrNotFound
	}
	var snapshot store.Snapshot
	if err := s.codec.Unmarshal(v, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *Store) readPatch(tx *bbolt.Tx, ref store.Ref, idx indexEntry) (*store.Patch, error) {
	if idx.Snap {
		return nil, errRevisionIsSnapshot
	}
	chunkBytes := tx.Bucket(bucketChunks).Get(keyRefChunk(ref, idx.Chunk))
	if chunkBytes == nil {
		return nil, errPatchChunkMissing
	}
	var arr []rawPatch
	if err := s.codec.Unmarshal(chunkBytes, &arr); err != nil {
		return nil, err
	}
	if int(idx.Offset) >= len(arr) || arr[idx.Offset].Data == nil {
		return nil, errPatchChunkMissing
	}
	var patchRec store.Patch
	if err := s.codec.Unmarshal(arr[idx.Offset].Data, &patchRec); err != nil {
		return nil, err
	}
	return &patchRec, nil
}

