package model

type Coach struct {
	ID        int64  `json:"id" msgpack:"i" yaml:"id"`
	FirstName string `json:"firstName" msgpack:"f" yaml:"firstName"`
	LastName  string `json:"lastName" msgpack:"l" yaml:"lastName"`

	// TeamID is the team this coach is assigned to. It is derived from the
	// teams on read and never persisted with the coach itself.
	TeamID int64 `json:"teamId,omitempty" msgpack:"-" yaml:"-"`
}

func (c *Coach) GetID() int64   { return c.ID }
func (c *Coach) SetID(id int64) { c.ID = id }
func (c *Coach) Kind() Kind     { return KindCoach }

// FullName returns "FirstName LastName".
func (c *Coach) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
