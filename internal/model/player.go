package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Player struct {
	ID          int64    `json:"id" msgpack:"i" yaml:"id"`
	Name        string   `json:"name" msgpack:"n" yaml:"name"`
	MarketValue float32  `json:"marketValue" msgpack:"v" yaml:"marketValue"`
	Position    Position `json:"position,omitempty" msgpack:"p" yaml:"position"`
}

func (p *Player) GetID() int64   { return p.ID }
func (p *Player) SetID(id int64) { p.ID = id }
func (p *Player) Kind() Kind     { return KindPlayer }

// Position is where a player plays. The zero value means "unknown".
type Position uint8

const (
	PositionUnknown Position = iota
	PositionStriker
	PositionMidfield
	PositionDefense
	PositionGoalkeeper
)

var positionNames = [...]string{
	PositionUnknown:    "",
	PositionStriker:    "STRIKER",
	PositionMidfield:   "MIDFIELD",
	PositionDefense:    "DEFENSE",
	PositionGoalkeeper: "GOALKEEPER",
}

func (p Position) String() string {
	if int(p) < len(positionNames) {
		return positionNames[p]
	}
	return fmt.Sprintf("Position(%d)", uint8(p))
}

// ParsePosition parses a position name, case-insensitive. The empty string
// parses to [PositionUnknown].
func ParsePosition(s string) (Position, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range positionNames {
		if name == s {
			return Position(i), nil
		}
	}
	return PositionUnknown, fmt.Errorf("unknown position %q", s)
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("position must be a string: %w", err)
	}
	parsed, err := ParsePosition(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (p Position) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Position) UnmarshalText(text []byte) error {
	parsed, err := ParsePosition(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
