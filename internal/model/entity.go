// Package model contains the entities managed by roster: coaches, players and teams.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/jinzhu/inflection"
)

// Kind names an entity type. It is used as bucket name, log field and, in its
// plural form, as HTTP path segment.
type Kind string

const (
	KindCoach  Kind = "coach"
	KindPlayer Kind = "player"
	KindTeam   Kind = "team"
)

// Kinds lists all known entity kinds.
var Kinds = []Kind{KindCoach, KindPlayer, KindTeam}

// Plural returns the plural form of the kind, e.g. "coaches".
func (k Kind) Plural() string {
	return inflection.Plural(string(k))
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind accepts both singular and plural kind names.
func ParseKind(s string) (Kind, error) {
	singular := Kind(inflection.Singular(s))
	for _, k := range Kinds {
		if k == singular {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Entity is implemented by all persisted records. Entities are identified by
// an integer ID; 0 means "not assigned yet".
type Entity interface {
	GetID() int64
	SetID(id int64)
	Kind() Kind
}

// Fields returns the field map of the given entity as seen by JSON clients.
// It is what change summaries and revision snapshots are computed from.
func Fields(e any) (map[string]any, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal entity: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("cannot unmarshal entity fields: %w", err)
	}
	return fields, nil
}

// FromFields is the inverse of [Fields].
func FromFields(fields map[string]any, dst any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("cannot marshal fields: %w", err)
	}
	return json.Unmarshal(raw, dst)
}
