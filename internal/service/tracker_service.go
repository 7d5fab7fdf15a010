package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/loog-project/roster/internal/store"
	"github.com/loog-project/roster/pkg/diffmap"
)

// Revision summarizes a single entry of an entity's history.
type Revision struct {
	ID         store.RevisionID  `json:"id"`
	PreviousID store.RevisionID  `json:"previousId"`
	Time       time.Time         `json:"time"`
	Snapshot   bool              `json:"snapshot"`
	Changes    map[string]string `json:"changes,omitempty"`
}

// TrackerService records the field maps of entities as a chain of revisions.
// A full snapshot is written for the first revision and after every
// snapshotEvery-1 patches, all other revisions are stored as [diffmap.Diff]
// change-sets on top of the previous revision.
type TrackerService struct {
	rps           store.RevisionStore
	snapshotEvery uint64 // create full snapshot after this many patches
	cache         *stateCache
	now           func() time.Time
}

// NewTrackerService creates a new TrackerService instance.
// If enableCache is set, the latest state of recently touched entities is kept in memory.
func NewTrackerService(rps store.RevisionStore, snapshotEvery uint64, enableCache bool) *TrackerService {
	if snapshotEvery == 0 {
		snapshotEvery = 8
	}
	t := &TrackerService{
		rps:           rps,
		snapshotEvery: snapshotEvery,
		now:           time.Now,
	}
	if enableCache {
		t.cache = newStateCache()
	}
	return t
}

// Commit persists obj as the next revision of ref and returns the revision ID
// together with a human-readable summary of what changed.
// If obj equals the latest revision, nothing is written and the latest
// revision ID is returned with an empty summary.
func (t *TrackerService) Commit(
	ctx context.Context,
	ref store.Ref,
	obj diffmap.DiffMap,
) (store.RevisionID, map[string]string, error) {
	latest, err := t.rps.GetLatestRevision(ctx, ref)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return 0, nil, err
		}

		snapshot := store.Snapshot{Object: obj, Time: t.now()}
		if err := t.rps.SetSnapshot(ctx, ref, &snapshot); err != nil {
			return 0, nil, err
		}
		t.remember(ref, obj, snapshot.ID, 0)
		return snapshot.ID, nil, nil
	}

	base, chain, err := t.latestState(ctx, ref, latest)
	if err != nil {
		return 0, nil, err
	}

	changes := diffmap.Difference(base, obj)
	if len(changes) == 0 {
		return latest, nil, nil
	}

	// check if it's time for a full snapshot
	if uint64(chain) >= t.snapshotEvery-1 {
		snapshot := store.Snapshot{
			PreviousID: latest,
			Time:       t.now(),
			Object:     obj,
			Changes:    changes,
		}
		if err := t.rps.SetSnapshot(ctx, ref, &snapshot); err != nil {
			return 0, nil, err
		}
		t.remember(ref, obj, snapshot.ID, 0)
		return snapshot.ID, changes, nil
	}

	p := &store.Patch{
		PreviousID: latest,
		Time:       t.now(),
		Patch:      diffmap.Diff(base, obj),
		Changes:    changes,
	}
	if err := t.rps.SetPatch(ctx, ref, p); err != nil {
		return 0, nil, err
	}
	t.remember(ref, obj, p.ID, chain+1)
	return p.ID, changes, nil
}

// Restore brings back the object state at *rev*.
func (t *TrackerService) Restore(ctx context.Context, ref store.Ref, rev store.RevisionID) (*store.Snapshot, error) {
	state, _, err := t.restore(ctx, ref, rev)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// History returns all revisions of ref, oldest first.
func (t *TrackerService) History(ctx context.Context, ref store.Ref) ([]Revision, error) {
	var revisions []Revision
	err := t.rps.WalkRevisions(ctx, ref, func(id store.RevisionID, snapshot *store.Snapshot, p *store.Patch) bool {
		if snapshot != nil {
			revisions = append(revisions, Revision{
				ID:         id,
				PreviousID: snapshot.PreviousID,
				Time:       snapshot.Time,
				Snapshot:   true,
				Changes:    snapshot.Changes,
			})
			return true
		}
		revisions = append(revisions, Revision{
			ID:         id,
			PreviousID: p.PreviousID,
			Time:       p.Time,
			Changes:    p.Changes,
		})
		return true
	})
	return revisions, err
}

// Forget drops the history of ref.
func (t *TrackerService) Forget(ctx context.Context, ref store.Ref) error {
	if t.cache != nil {
		t.cache.drop(ref)
	}
	err := t.rps.DeleteRevisions(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Close stops the cache janitor. It does not close the underlying store.
func (t *TrackerService) Close() {
	if t.cache != nil {
		t.cache.close()
	}
}

// latestState returns the object at the latest revision and the number of
// patches since the last snapshot, preferring the cache.
func (t *TrackerService) latestState(ctx context.Context, ref store.Ref, latest store.RevisionID) (diffmap.DiffMap, int, error) {
	if t.cache != nil {
		if ts := t.cache.get(ref); ts != nil && ts.rev == latest {
			return ts.obj, ts.chain, nil
		}
	}
	state, chain, err := t.restore(ctx, ref, latest)
	if err != nil {
		return nil, 0, err
	}
	t.remember(ref, state.Object, latest, chain)
	return state.Object, chain, nil
}

// restore walks back from rev to the closest snapshot and replays all patches on top of it.
// It also returns the number of patches that were replayed.
func (t *TrackerService) restore(ctx context.Context, ref store.Ref, rev store.RevisionID) (*store.Snapshot, int, error) {
	var chain []*store.Patch
	cur := rev
	for {
		snap, p, err := t.rps.Get(ctx, ref, cur)
		if err != nil {
			if len(chain) == 0 {
				return nil, 0, err
			}
			return nil, 0, fmt.Errorf("broken chain at %s: %w", cur, err)
		}
		if snap != nil {
			// we have now found the base snapshot
			state := deepCopy(snap.Object)
			for i := len(chain) - 1; i >= 0; i-- {
				diffmap.Apply(state, chain[i].Patch)
			}
			restored := &store.Snapshot{
				ID:      rev,
				Object:  state,
				Time:    snap.Time,
				Changes: snap.Changes,
			}
			if len(chain) > 0 {
				restored.PreviousID = chain[0].PreviousID
				restored.Time = chain[0].Time
				restored.Changes = chain[0].Changes
			} else {
				restored.PreviousID = snap.PreviousID
			}
			return restored, len(chain), nil
		}
		if cur == 0 || p.PreviousID >= cur {
			return nil, 0, fmt.Errorf("%w: patch %s of %s points to %s", store.ErrInvalidRevision, cur, ref, p.PreviousID)
		}
		chain = append(chain, p)
		cur = p.PreviousID
	}
}

func (t *TrackerService) remember(ref store.Ref, obj diffmap.DiffMap, rev store.RevisionID, chain int) {
	if t.cache == nil {
		return
	}
	t.cache.set(ref, &trackerState{obj: deepCopy(obj), rev: rev, chain: chain})
}

// deepCopy copies nested maps so that [diffmap.Apply] cannot modify the source.
func deepCopy(src diffmap.DiffMap) diffmap.DiffMap {
	dst := make(diffmap.DiffMap, len(src))
	maps.Copy(dst, src)
	for k, v := range dst {
		if nested, ok := v.(diffmap.DiffMap); ok {
			dst[k] = deepCopy(nested)
		}
	}
	return dst
}
