package diffpreview

import (
	"testing"
)

func TestLines(t *testing.T) {
	before := map[string]any{"name": "Munich", "coachId": 3.0, "founded": 1900.0, "captain": nil}
	after := map[string]any{"name": "Munich", "coachId": 4.0, "playerIds": []any{7.0, 9.0}, "captain": nil}

	got := Lines(before, after)
	want := []struct {
		key    string
		change Change
	}{
		{"captain", Unchanged},
		{"coachId", Modified},
		{"founded", Removed},
		{"name", Unchanged},
		{"playerIds", Added},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Key != w.key || got[i].Change != w.change {
			t.Errorf("line %d: expected %s %s, got %s %s", i, w.key, w.change, got[i].Key, got[i].Change)
		}
	}
}

func TestRenderPlain(t *testing.T) {
	before := map[string]any{"name": "Munich", "coachId": 3.0, "founded": 1900.0}
	after := map[string]any{"name": "Munich", "coachId": 4.0, "playerIds": []any{7.0, 9.0}}

	expected := "" +
		"~ coachId: 3 -> 4\n" +
		"- founded: 1900\n" +
		"  name: \"Munich\"\n" +
		"+ playerIds: [7, 9]\n"
	if got := Render(before, after, PlainTheme, false); got != expected {
		t.Errorf("unexpected rendering:\n%s\nexpected:\n%s", got, expected)
	}

	expected = "" +
		"~ coachId: 3 -> 4\n" +
		"- founded: 1900\n" +
		"+ playerIds: [7, 9]\n"
	if got := Render(before, after, PlainTheme, true); got != expected {
		t.Errorf("unexpected rendering:\n%s\nexpected:\n%s", got, expected)
	}
}

func TestRenderNilInputs(t *testing.T) {
	if got := Render(nil, nil, PlainTheme, false); got != "" {
		t.Errorf("expected empty rendering, got %q", got)
	}
	if got := Render(nil, map[string]any{"id": 1.0}, PlainTheme, false); got != "+ id: 1\n" {
		t.Errorf("unexpected rendering %q", got)
	}
}
