package bbolt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/store"
)

var (
	bucketSnapshots = []byte("snapshots")   // <ref>|rev  -> Snapshot
	bucketChunks    = []byte("patchChunks") // <ref>|chunkID -> []rawPatch
	bucketIndex     = []byte("index")       // <ref>|rev  -> indexEntry
	bucketLatest    = []byte("latest")      // <ref>      -> uint64(nextRev)
)

var (
	errRevisionIsSnapshot = errors.New("revision is a snapshot")
	errPatchChunkMissing  = errors.New("patch chunk missing")
)

const (
	chunkSize   = 64 // patches per chunk value
	openTimeout = 2 * time.Second
)

// indexEntry tells where the payload of a revision lives.
type indexEntry struct {
	Snap   bool   `msgpack:"s"`
	Chunk  uint64 `msgpack:"c"`
	Offset uint16 `msgpack:"o"`
}

type rawPatch struct {
	Data []byte `msgpack:"d"`
}

// Store keeps entities (one bucket per [model.Kind]) and their revision
// history in a single BoltDB file.
type Store struct {
	db    *bbolt.DB
	codec store.Codec

	nextRevisionCounterMutex sync.RWMutex
	nextRevisionCounter      map[string]uint64
}

var _ store.RevisionStore = (*Store)(nil)

// New opens (or creates) a BoltDB database file.
// Pass nil for [codec] to use the default MessagePack implementation.
// If durable is false, the database skips fsync on every commit.
func New(path string, codec store.Codec, durable bool) (*Store, error) {
	if codec == nil {
		codec = store.DefaultCodec
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout:      openTimeout,
		FreelistType: bbolt.FreelistMapType,
		NoSync:       !durable,
	})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("%s is locked by another process: %w", path, err)
		}
		return nil, err
	}
	buckets := [][]byte{bucketSnapshots, bucketChunks, bucketIndex, bucketLatest}
	for _, kind := range model.Kinds {
		buckets = append(buckets, entityBucket(kind))
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range buckets {
			if _, e := tx.CreateBucketIfNotExists(b); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create default buckets: %w", err)
	}
	return &Store{
		db:                  db,
		codec:               codec,
		nextRevisionCounter: make(map[string]uint64),
	}, nil
}

// Path returns the path of the database file.
func (s *Store) Path() string {
	return s.db.Path()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
