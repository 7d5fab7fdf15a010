package bbolt

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/internal/store"
	"github.com/loog-project/roster/pkg/diffmap"
)

// handy constants -----------------------------------------------------------

var (
	ctx = context.Background()
	ref = store.Ref{Kind: model.KindCoach, ID: 1}
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "db.bb"), nil, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestNewAndBuckets checks that the DB opens and buckets exist.
func TestNewAndBuckets(t *testing.T) {
	s := openStore(t)

	// verify buckets truly created in file
	info1, _ := os.Stat(s.Path())
	if info1.Size() == 0 {
		t.Fatal("DB file should not be empty")
	}
}

func TestNewWithUnknownCodec(t *testing.T) {
	if _, err := store.CodecByName("xml"); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}

// TestSnapshotPatchRoundtrip covers:
//   - claimNextRevision
//   - SetSnapshot / SetPatch
//   - Get / GetLatestRevision
func TestSnapshotPatchRoundtrip(t *testing.T) {
	s := openStore(t)

	// -------- 1st snapshot -----------------------------------------------
	snap := &store.Snapshot{Object: diffmap.DiffMap{"foo": "bar"}, Time: time.Now()}
	if err := s.SetSnapshot(ctx, ref, snap); err != nil {
		t.Fatalf("set snapshot: %v", err)
	}
	if snap.ID != 0 {
		t.Fatalf("first snapshot should have ID 0, got %d", snap.ID)
	}

	// latest should now be 0
	latest, err := s.GetLatestRevision(ctx, ref)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest != 0 {
		t.Fatalf("latest want 0, got %d", latest)
	}

	// -------- patch #1 ----------------------------------------------------
	patch1 := &store.Patch{
		PreviousID: snap.ID,
		Patch:      diffmap.DiffMap{"foo": "baz"},
		Changes:    map[string]string{"foo": "bar -> baz"},
	}
	if err := s.SetPatch(ctx, ref, patch1); err != nil {
		t.Fatalf("set patch1: %v", err)
	}
	if patch1.ID != 1 {
		t.Fatalf("patch1 should receive ID 1, got %d", patch1.ID)
	}

	// -------- patch #2 ----------------------------------------------------
	patch2 := &store.Patch{
		PreviousID: patch1.ID,
		Patch:      diffmap.DiffMap{"bar": 42},
	}
	_ = s.SetPatch(ctx, ref, patch2)

	// latest should now be 2
	if latest, _ := s.GetLatestRevision(ctx, ref); latest != 2 {
		t.Fatalf("latest want 2, got %d", latest)
	}

	// -------- random gets -------------------------------------------------
	// rev-0   -> snapshot
	sn0, p0, err := s.Get(ctx, ref, 0)
	if err != nil || p0 != nil || sn0 == nil {
		t.Fatalf("rev0: want snapshot, got %+v / %+v / err=%v", sn0, p0, err)
	}
	// rev-1   -> patch
	sn1, p1, _ := s.Get(ctx, ref, 1)
	if sn1 != nil || p1 == nil || p1.ID != 1 || p1.Changes["foo"] != "bar -> baz" {
		t.Fatalf("rev1 not patch1: %+v", p1)
	}
	// rev-2   -> patch
	_, p2, _ := s.Get(ctx, ref, 2)
	if p2 == nil || p2.ID != 2 {
		t.Fatalf("rev2 not patch2")
	}
	// rev-3   -> missing
	if _, _, err := s.Get(ctx, ref, 3); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("rev3: want ErrNotFound, got %v", err)
	}
}

func TestPatchNeedsSnapshot(t *testing.T) {
	s := openStore(t)
	err := s.SetPatch(ctx, ref, &store.Patch{Patch: diffmap.DiffMap{"a": 1}})
	if !errors.Is(err, store.ErrInvalidRevision) {
		t.Fatalf("want ErrInvalidRevision, got %v", err)
	}
	if _, err := s.GetLatestRevision(ctx, ref); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("failed patch must not claim a revision, got %v", err)
	}
}

// TestConcurrentClaims ensures claimNextRevision is atomic.
func TestConcurrentClaims(t *testing.T) {
	s := openStore(t)

	// race 20 goroutines
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			errs <- s.SetSnapshot(ctx, ref, &store.Snapshot{Object: diffmap.DiffMap{"x": i}})
		}()
	}
	for i := 0; i < 20; i++ {
		if e := <-errs; e != nil {
			t.Fatalf("concurrent SetSnapshot failed: %v", e)
		}
	}

	if latest, _ := s.GetLatestRevision(ctx, ref); latest != 19 {
		t.Fatalf("after 20 writes, latest should be 19, got %d", latest)
	}
}

func TestWalkAndDeleteRevisions(t *testing.T) {
	s := openStore(t)
	other := store.Ref{Kind: model.KindCoach, ID: 10}

	_ = s.SetSnapshot(ctx, ref, &store.Snapshot{Object: diffmap.DiffMap{"a": 1}})
	for i := 0; i < chunkSize+3; i++ {
		if err := s.SetPatch(ctx, ref, &store.Patch{Patch: diffmap.DiffMap{"a": i}}); err != nil {
			t.Fatalf("set patch %d: %v", i, err)
		}
	}
	// the prefix of ref ("coach/1|") must not match "coach/10|"
	_ = s.SetSnapshot(ctx, other, &store.Snapshot{Object: diffmap.DiffMap{"b": 1}})

	var seen []store.RevisionID
	err := s.WalkRevisions(ctx, ref, func(id store.RevisionID, snap *store.Snapshot, p *store.Patch) bool {
		if (snap == nil) == (p == nil) {
			t.Fatalf("rev %s: exactly one of snapshot/patch expected", id)
		}
		seen = append(seen, id)
		return true
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(seen) != chunkSize+4 {
		t.Fatalf("want %d revisions, got %d", chunkSize+4, len(seen))
	}
	for i, id := range seen {
		if id != store.RevisionID(i) {
			t.Fatalf("revisions out of order at %d: %v", i, id)
		}
	}

	if err := s.DeleteRevisions(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.WalkRevisions(ctx, ref, func(store.RevisionID, *store.Snapshot, *store.Patch) bool { return true }); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound after delete, got %v", err)
	}
	if latest, err := s.GetLatestRevision(ctx, other); err != nil || latest != 0 {
		t.Fatalf("other history must survive, got %d / %v", latest, err)
	}
}

// TestPersistedValues verifies that bytes written are real MessagePack.
func TestPersistedValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.bb")
	s, _ := New(path, nil, false)
	_ = s.SetSnapshot(ctx, ref, &store.Snapshot{Object: diffmap.DiffMap{"k": "v"}})
	_ = s.Close()

	// reopen raw file and search for MessagePack prefix 0x81 (map of 1)
	blob, _ := os.ReadFile(path)
	if !bytes.Contains(blob, []byte{0x81}) {
		t.Fatalf("file does not appear to contain msgpack map header")
	}
}
