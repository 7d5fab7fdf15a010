package model

import (
	"encoding/json"
	"testing"
)

func TestKindPlural(t *testing.T) {
	cases := map[Kind]string{
		KindCoach:  "coaches",
		KindPlayer: "players",
		KindTeam:   "teams",
	}
	for kind, want := range cases {
		if got := kind.Plural(); got != want {
			t.Fatalf("%s: want plural %q, got %q", kind, want, got)
		}
		parsed, err := ParseKind(want)
		if err != nil || parsed != kind {
			t.Fatalf("ParseKind(%q) = %q, %v", want, parsed, err)
		}
	}
	if _, err := ParseKind("referees"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestPositionJSON(t *testing.T) {
	var p Player
	if err := json.Unmarshal([]byte(`{"id":3,"name":"Gerd","marketValue":1.5,"position":"striker"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Position != PositionStriker {
		t.Fatalf("want STRIKER, got %v", p.Position)
	}

	raw, err := json.Marshal(&p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"id":3,"name":"Gerd","marketValue":1.5,"position":"STRIKER"}` {
		t.Fatalf("unexpected json: %s", raw)
	}

	if err := json.Unmarshal([]byte(`{"position":"LIBERO"}`), &p); err == nil {
		t.Fatal("expected error for unknown position")
	}
}

func TestFieldsRoundTrip(t *testing.T) {
	team := &Team{ID: 1, Name: "FC", CoachID: 2, PlayerIDs: []int64{4, 5}}
	fields, err := Fields(team)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if fields["name"] != "FC" || fields["coachId"] != float64(2) {
		t.Fatalf("unexpected fields: %v", fields)
	}

	var back Team
	if err := FromFields(fields, &back); err != nil {
		t.Fatalf("from fields: %v", err)
	}
	if back.ID != 1 || back.CoachID != 2 || !back.HasPlayer(5) {
		t.Fatalf("unexpected team: %+v", back)
	}
}

func TestCoachFullName(t *testing.T) {
	if got := (&Coach{FirstName: "Jupp", LastName: "Heynckes"}).FullName(); got != "Jupp Heynckes" {
		t.Fatalf("got %q", got)
	}
	if got := (&Coach{LastName: "Heynckes"}).FullName(); got != "Heynckes" {
		t.Fatalf("got %q", got)
	}
}
