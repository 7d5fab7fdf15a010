package bbolt

import (
	"bytes"
	"encoding/binary"

	"go.etcd.io/bbolt"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/store"
)

func entityBucket(kind model.Kind) []byte {
	return []byte("entity/" + string(kind))
}

func keyEntity(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func keyRef(ref store.Ref) []byte {
	return []byte(ref.String())
}

// keyRefPrefix is the common prefix of all revision keys of ref.
func keyRefPrefix(ref store.Ref) []byte {
	return append(keyRef(ref), '|')
}

func keyRefRevision(ref store.Ref, id store.RevisionID) []byte {
	return keyRefUint64(ref, uint64(id))
}

func keyRefChunk(ref store.Ref, chunk uint64) []byte {
	return keyRefUint64(ref, chunk)
}

func keyRefUint64(ref store.Ref, n uint64) []byte {
	prefix := keyRefPrefix(ref)
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], n)
	return buf
}

// claimNextRevision atomically increments the next revision counter in bucketLatest *and*
// updates the in-memory cache. It returns the newly assigned revision number.
func (s *Store) claimNextRevision(tx *bbolt.Tx, ref store.Ref) (store.RevisionID, error) {
	latest := tx.Bucket(bucketLatest)
	key := keyRef(ref)

	var next uint64
	if raw := latest.Get(key); raw != nil {
		next = binary.BigEndian.Uint64(raw)
	}
	revisionNumber := store.RevisionID(next)
	next++

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := latest.Put(key, buf); err != nil {
		return 0, err
	}

	// the cache must only learn about the new counter once the transaction is committed
	tx.OnCommit(func() {
		s.nextRevisionCounterMutex.Lock()
		s.nextRevisionCounter[string(key)] = next
		s.nextRevisionCounterMutex.Unlock()
	})

	return revisionNumber, nil
}

// putChunk stores the encoded patch at offset of the given chunk, creating the chunk if needed.
func (s *Store) putChunk(tx *bbolt.Tx, ref store.Ref, chunkID uint64, offset uint16, data []byte) error {
	chunks := tx.Bucket(bucketChunks)
	key := keyRefChunk(ref, chunkID)

	var chunk []rawPatch
	if v := chunks.Get(key); v != nil {
		if err := s.codec.Unmarshal(v, &chunk); err != nil {
			return err
		}
	}
	if len(chunk) < chunkSize {
		grown := make([]rawPatch, chunkSize)
		copy(grown, chunk)
		chunk = grown
	}
	chunk[offset] = rawPatch{Data: data}

	encoded, err := s.codec.Marshal(chunk)
	if err != nil {
		return err
	}
	return chunks.Put(key, encoded)
}

// deleteWithPrefix removes every key of bucket starting with prefix.
func deleteWithPrefix(bucket *bbolt.Bucket, prefix []byte) error {
	c := bucket.Cursor()
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}
