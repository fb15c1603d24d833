// Package policy holds the blacklist/whitelist of key combinations and
// decides whether a keystroke should be blocked.
package policy

import (
	"fmt"

	"winkeylock/internal/keycombo"
)

// Set is an immutable allow/block policy. Order within a list carries no
// meaning; matching is existence only. Build it with New, FromStrings or
// Default and never modify it afterwards: the hook thread reads it without
// locking.
type Set struct {
	blacklist []keycombo.Combo
	whitelist []keycombo.Combo
}

// New copies blacklist and whitelist into a new Set.
func New(blacklist, whitelist []keycombo.Combo) *Set {
	return &Set{
		blacklist: append([]keycombo.Combo(nil), blacklist...),
		whitelist: append([]keycombo.Combo(nil), whitelist...),
	}
}

// FromStrings parses every entry of both lists. The whole policy is rejected
// on the first invalid entry so that a half-parsed file never becomes active.
func FromStrings(blacklist, whitelist []string) (*Set, error) {
	black, err := parseList("blacklist", blacklist)
	if err != nil {
		return nil, err
	}
	white, err := parseList("whitelist", whitelist)
	if err != nil {
		return nil, err
	}
	return &Set{blacklist: black, whitelist: white}, nil
}

func parseList(listName string, specs []string) ([]keycombo.Combo, error) {
	out := make([]keycombo.Combo, 0, len(specs))
	for i, spec := range specs {
		combo, err := keycombo.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", listName, i, err)
		}
		out = append(out, combo)
	}
	return out, nil
}

// ShouldBlock reports whether the keystroke code+mods is blocked.
// A whitelist match always allows, then a blacklist match blocks, and
// anything else is allowed.
func (s *Set) ShouldBlock(code keycombo.Code, mods keycombo.Modifiers) bool {
	if s == nil {
		return false
	}
	for _, combo := range s.whitelist {
		if combo.Matches(code, mods) {
			return false
		}
	}
	for _, combo := range s.blacklist {
		if combo.Matches(code, mods) {
			return true
		}
	}
	return false
}

// Blacklist returns a copy of the blocked combinations.
func (s *Set) Blacklist() []keycombo.Combo {
	if s == nil {
		return nil
	}
	return append([]keycombo.Combo(nil), s.blacklist...)
}

// Whitelist returns a copy of the allowed combinations.
func (s *Set) Whitelist() []keycombo.Combo {
	if s == nil {
		return nil
	}
	return append([]keycombo.Combo(nil), s.whitelist...)
}

// Strings returns both lists in canonical string form.
func (s *Set) Strings() (blacklist, whitelist []string) {
	return comboStrings(s.Blacklist()), comboStrings(s.Whitelist())
}

func comboStrings(combos []keycombo.Combo) []string {
	out := make([]string, 0, len(combos))
	for _, c := range combos {
		out = append(out, c.String())
	}
	return out
}
