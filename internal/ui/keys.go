package ui

import "strings"

type shortcut struct {
	keys  string
	label string
}

// Shortcuts is the key help shown in the status bar.
type Shortcuts []shortcut

// NewShortcuts takes pairs of keys and labels.
func NewShortcuts(pairs ...string) *Shortcuts {
	if len(pairs)%2 != 0 {
		panic("shortcuts must be in pairs")
	}
	s := make(Shortcuts, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		s = append(s, shortcut{keys: pairs[i], label: pairs[i+1]})
	}
	return &s
}

func (s *Shortcuts) Add(keys, label string) *Shortcuts {
	*s = append(*s, shortcut{keys: keys, label: label})
	return s
}

func (s *Shortcuts) AddIf(cond bool, keys, label string) *Shortcuts {
	if cond {
		s.Add(keys, label)
	}
	return s
}

func (s *Shortcuts) Render(theme Theme) string {
	var b strings.Builder
	for i, sc := range *s {
		if i != 0 {
			b.WriteString(theme.MutedTextStyle.Render(", "))
		}
		b.WriteString(sc.keys)
		b.WriteString(" ")
		b.WriteString(theme.MutedTextStyle.Render(sc.label))
	}
	return b.String()
}
