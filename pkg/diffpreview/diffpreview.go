// Package diffpreview renders the difference between two field maps as a
// line-based, colored preview:
//
//	  name: "Munich"
//	~ coachId: 3 -> 4
//	+ playerIds: [7, 9]
//	- founded: 1900
package diffpreview

import (
	"fmt"
	"slices"
	"strings"

	"github.com/loog-project/roster/pkg/diffmap"
)

// Change is the state of a single field.
type Change int

const (
	Unchanged Change = iota
	Added
	Removed
	Modified
)

func (c Change) String() string {
	switch c {
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Modified:
		return "modified"
	default:
		return "unchanged"
	}
}

// Line is one field of the preview.
type Line struct {
	Key    string
	Change Change
	Before any
	After  any
}

// Lines compares before and after and returns one line per field, sorted by key.
// A field with a nil value counts as present.
func Lines(before, after map[string]any) []Line {
	changed := diffmap.Difference(before, after)

	keys := make([]string, 0, len(before)+len(after))
	for k := range before {
		keys = append(keys, k)
	}
	for k := range after {
		if _, ok := before[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	lines := make([]Line, 0, len(keys))
	for _, k := range keys {
		b, inBefore := before[k]
		a, inAfter := after[k]
		line := Line{Key: k, Before: b, After: a}
		switch {
		case !inBefore:
			line.Change = Added
		case !inAfter:
			line.Change = Removed
		case changed[k] != "":
			line.Change = Modified
		}
		lines = append(lines, line)
	}
	return lines
}

// Render renders the preview of the change from before to after.
// Unchanged fields are omitted if onlyChanges is set.
func Render(before, after map[string]any, theme Theme, onlyChanges bool) string {
	var sb strings.Builder
	for _, l := range Lines(before, after) {
		if onlyChanges && l.Change == Unchanged {
			continue
		}
		sb.WriteString(theme.marker(l.Change))
		sb.WriteString(" ")
		sb.WriteString(theme.KeyStyle.Render(l.Key))
		sb.WriteString(": ")
		switch l.Change {
		case Removed:
			sb.WriteString(theme.value(l.Before))
		case Modified:
			sb.WriteString(theme.value(l.Before))
			sb.WriteString(" -> ")
			sb.WriteString(theme.value(l.After))
		default:
			sb.WriteString(theme.value(l.After))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatScalar renders lists inline and everything else with fmt.
func formatScalar(v any) string {
	list, ok := v.([]any)
	if !ok {
		return fmt.Sprint(v)
	}
	items := make([]string, len(list))
	for i, item := range list {
		items[i] = formatScalar(item)
	}
	return "[" + strings.Join(items, ", ") + "]"
}
