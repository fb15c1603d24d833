package policy

import "winkeylock/internal/keycombo"

// DefaultBlacklist blocks both Windows keys pressed on their own.
var DefaultBlacklist = []string{"lwin", "rwin"}

// DefaultWhitelist keeps the common Windows-key chords usable: screen
// capture, show desktop, lock, file explorer and the run dialog.
var DefaultWhitelist = []string{
	"shift+lwin+s",
	"lwin+d",
	"lwin+l",
	"lwin+e",
	"lwin+r",
}

// Default returns the policy used when no policy file exists.
func Default() *Set {
	return New(mustParseAll(DefaultBlacklist), mustParseAll(DefaultWhitelist))
}

func mustParseAll(specs []string) []keycombo.Combo {
	out := make([]keycombo.Combo, 0, len(specs))
	for _, spec := range specs {
		out = append(out, keycombo.MustParse(spec))
	}
	return out
}
