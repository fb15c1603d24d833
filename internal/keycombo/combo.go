// Package keycombo parses and matches modifier+key combinations expressed
// as Win32 virtual-key codes.
package keycombo

import "strings"

// Code represents a Win32 virtual-key code.
type Code uint32

// Modifiers is the live or required state of the four modifier families.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool
}

// Combo describes one parsed key combination.
// Construct only via Parse to guarantee invariant consistency.
type Combo struct {
	code Code
	mods Modifiers
}

// Code returns the virtual-key code of the combination's key.
func (c Combo) Code() Code { return c.code }

// Modifiers returns the modifier state the combination requires.
func (c Combo) Modifiers() Modifiers { return c.mods }

// Matches reports whether code and mods equal the combination exactly.
// There are no wildcards: an extra held modifier is a mismatch.
func (c Combo) Matches(code Code, mods Modifiers) bool {
	return c.code == code && c.mods == mods
}

// Equal reports field-wise equality.
func (c Combo) Equal(other Combo) bool {
	return c.Matches(other.code, other.mods)
}

// IsBareMeta reports whether the combination is a meta key on its own.
func (c Combo) IsBareMeta() bool {
	return IsMeta(c.code) && c.mods == Modifiers{Meta: true}
}

// String returns the canonical form. Parsing it yields an equal Combo.
func (c Combo) String() string {
	if c.IsBareMeta() {
		return KeyName(c.code)
	}
	parts := make([]string, 0, 5)
	if c.mods.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.mods.Alt {
		parts = append(parts, "alt")
	}
	if c.mods.Shift {
		parts = append(parts, "shift")
	}
	if c.mods.Meta {
		parts = append(parts, "lwin")
	}
	parts = append(parts, KeyName(c.code))
	return strings.Join(parts, "+")
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (c Combo) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via Parse.
func (c *Combo) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
