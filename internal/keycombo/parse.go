package keycombo

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmpty is returned for an empty or whitespace-only combination.
	ErrEmpty = errors.New("empty key combination")
	// ErrNoKey is returned when only modifier tokens are present.
	ErrNoKey = errors.New("no key specified")
	// ErrMultipleKeys is returned when more than one non-modifier token is present.
	ErrMultipleKeys = errors.New("multiple keys specified")
	// ErrUnknownKey is returned when the key token is not in the name table.
	ErrUnknownKey = errors.New("unknown key")
)

// ParseError describes why a combination string was rejected.
type ParseError struct {
	Input string
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMultipleKeys):
		return fmt.Sprintf("%v in %q: %s", e.Err, e.Input, e.Token)
	case e.Token != "":
		return fmt.Sprintf("%v %q in %q", e.Err, e.Token, e.Input)
	default:
		return fmt.Sprintf("%v: %q", e.Err, e.Input)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse parses a combination like "shift+lwin+s" or "ctrl + alt + del".
// Tokens are case-insensitive and modifier order does not matter. A sole
// "lwin" or "rwin" denotes the bare Windows key, which is both the key and
// its own meta modifier.
func Parse(spec string) (Combo, error) {
	var tokens []string
	for _, part := range strings.Split(spec, "+") {
		token := strings.ToLower(strings.TrimSpace(part))
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return Combo{}, &ParseError{Input: spec, Err: ErrEmpty}
	}

	var (
		mods    Modifiers
		keyName string
	)
	for _, token := range tokens {
		switch token {
		case "shift":
			mods.Shift = true
		case "ctrl", "control":
			mods.Ctrl = true
		case "alt":
			mods.Alt = true
		case "lwin", "super", "rwin":
			mods.Meta = true
			if len(tokens) == 1 && token != "super" {
				keyName = token
			}
		default:
			if keyName != "" {
				return Combo{}, &ParseError{
					Input: spec,
					Token: keyName + " and " + token,
					Err:   ErrMultipleKeys,
				}
			}
			keyName = token
		}
	}

	if keyName == "" {
		return Combo{}, &ParseError{Input: spec, Err: ErrNoKey}
	}
	code, ok := LookupKey(keyName)
	if !ok {
		return Combo{}, &ParseError{Input: spec, Token: keyName, Err: ErrUnknownKey}
	}
	return Combo{code: code, mods: mods}, nil
}

// MustParse is like Parse but panics on error. Intended for built-in defaults.
func MustParse(spec string) Combo {
	c, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return c
}
