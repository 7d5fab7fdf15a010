package model

import "slices"

type Team struct {
	ID   int64  `json:"id" msgpack:"i" yaml:"id"`
	Name string `json:"name" msgpack:"n" yaml:"name"`

	// CoachID references the coach of this team, 0 if there is none.
	// A coach can be assigned to at most one team.
	CoachID   int64   `json:"coachId,omitempty" msgpack:"c,omitempty" yaml:"coachId"`
	PlayerIDs []int64 `json:"playerIds,omitempty" msgpack:"p,omitempty" yaml:"playerIds"`
}

func (t *Team) GetID() int64   { return t.ID }
func (t *Team) SetID(id int64) { t.ID = id }
func (t *Team) Kind() Kind     { return KindTeam }

// HasPlayer reports whether the player with the given ID is on the team.
func (t *Team) HasPlayer(id int64) bool {
	return slices.Contains(t.PlayerIDs, id)
}
