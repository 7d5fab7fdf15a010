package store

import (
	"fmt"
	"time"

	"github.com/loog-project/roster/internal/model"
	"github.com/loog-project/roster/pkg/diffmap"
)

type RevisionID uint64

func (id RevisionID) String() string {
	return fmt.Sprintf("%08x", uint64(id))
}

// Ref points at a single entity.
type Ref struct {
	Kind model.Kind
	ID   int64
}

// RefOf returns the [Ref] of the given entity.
func RefOf(e model.Entity) Ref {
	return Ref{Kind: e.Kind(), ID: e.GetID()}
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

type Patch struct {
	/// Revision Metadata
	// ID of the revision
	ID RevisionID `msgpack:"i" json:"id"`
	// PreviousID is the ID of the previous revision.
	// This should always be set since a patch cannot exist without a previous snapshot.
	PreviousID RevisionID `msgpack:"<,omitempty" json:"previousId,omitempty"`
	// Time the revision was recorded.
	Time time.Time `msgpack:"t" json:"time"`

	/// Patch Metadata
	// Patch is an object with the diff between the previous revision and this revision.
	// see [diffmap.Diff] for more details.
	Patch diffmap.DiffMap `msgpack:"s" json:"patch,omitempty"`
	// Changes is the human-readable summary of the same diff, see [diffmap.Difference].
	Changes map[string]string `msgpack:"c,omitempty" json:"changes,omitempty"`
}

type Snapshot struct {
	/// Revision Metadata
	// ID of the revision
	ID RevisionID `msgpack:"i" json:"id"`
	// PreviousID is the ID of the previous revision. This can be empty if this is the first revision.
	PreviousID RevisionID `msgpack:"<,omitempty" json:"previousId,omitempty"`
	// Time the revision was recorded.
	Time time.Time `msgpack:"t" json:"time"`

	/// Snapshot Metadata
	// Object is the full field map of the entity in this revision.
	Object diffmap.DiffMap `msgpack:"o" json:"object,omitempty"`
	// Changes is the summary of what changed compared to the previous revision.
	// It is empty for the very first snapshot.
	Changes map[string]string `msgpack:"c,omitempty" json:"changes,omitempty"`
}
