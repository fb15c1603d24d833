package keycombo

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSuccess(t *testing.T) {
	tests := []struct {
		name      string
		spec      string
		wantCode  Code
		wantMods  Modifiers
		wantCanon string
	}{
		{
			name:      "bare left meta",
			spec:      "lwin",
			wantCode:  VKLWin,
			wantMods:  Modifiers{Meta: true},
			wantCanon: "lwin",
		},
		{
			name:      "bare right meta",
			spec:      "RWin",
			wantCode:  VKRWin,
			wantMods:  Modifiers{Meta: true},
			wantCanon: "rwin",
		},
		{
			name:      "screen capture chord",
			spec:      "shift+lwin+s",
			wantCode:  Code('S'),
			wantMods:  Modifiers{Shift: true, Meta: true},
			wantCanon: "shift+lwin+s",
		},
		{
			name:      "rwin as modifier collapses to meta",
			spec:      "rwin+x",
			wantCode:  Code('X'),
			wantMods:  Modifiers{Meta: true},
			wantCanon: "lwin+x",
		},
		{
			name:      "super alias",
			spec:      "Super+E",
			wantCode:  Code('E'),
			wantMods:  Modifiers{Meta: true},
			wantCanon: "lwin+e",
		},
		{
			name:      "control alias and del alias",
			spec:      "control+alt+del",
			wantCode:  vkDelete,
			wantMods:  Modifiers{Ctrl: true, Alt: true},
			wantCanon: "ctrl+alt+delete",
		},
		{
			name:      "whitespace and case",
			spec:      "  Ctrl +  Shift + F12 ",
			wantCode:  vkF1 + 11,
			wantMods:  Modifiers{Ctrl: true, Shift: true},
			wantCanon: "ctrl+shift+f12",
		},
		{
			name:      "f24",
			spec:      "f24",
			wantCode:  0x87,
			wantCanon: "f24",
		},
		{
			name:      "digit",
			spec:      "alt+3",
			wantCode:  Code('3'),
			wantMods:  Modifiers{Alt: true},
			wantCanon: "alt+3",
		},
		{
			name:      "punctuation",
			spec:      "ctrl+backslash",
			wantCode:  vkOem5,
			wantMods:  Modifiers{Ctrl: true},
			wantCanon: "ctrl+backslash",
		},
		{
			name:      "navigation key",
			spec:      "alt+pagedown",
			wantCode:  vkNext,
			wantMods:  Modifiers{Alt: true},
			wantCanon: "alt+pagedown",
		},
		{
			name:      "duplicate modifiers collapse",
			spec:      "ctrl+ctrl+a",
			wantCode:  Code('A'),
			wantMods:  Modifiers{Ctrl: true},
			wantCanon: "ctrl+a",
		},
		{
			name:      "empty tokens skipped",
			spec:      "ctrl++tab",
			wantCode:  vkTab,
			wantMods:  Modifiers{Ctrl: true},
			wantCanon: "ctrl+tab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			combo, err := Parse(tt.spec)
			if err != nil {
				t.Fatalf("Parse(%q) returned unexpected error: %v", tt.spec, err)
			}
			if combo.Code() != tt.wantCode {
				t.Errorf("Code() = 0x%X, want 0x%X", combo.Code(), tt.wantCode)
			}
			if combo.Modifiers() != tt.wantMods {
				t.Errorf("Modifiers() = %+v, want %+v", combo.Modifiers(), tt.wantMods)
			}
			if combo.String() != tt.wantCanon {
				t.Errorf("String() = %q, want %q", combo.String(), tt.wantCanon)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr error
		wantSub string
	}{
		{name: "empty", spec: "", wantErr: ErrEmpty},
		{name: "whitespace only", spec: "   ", wantErr: ErrEmpty},
		{name: "only separators", spec: "+ +", wantErr: ErrEmpty},
		{name: "modifiers only", spec: "ctrl+alt", wantErr: ErrNoKey},
		{name: "meta as modifier without key", spec: "shift+lwin", wantErr: ErrNoKey},
		{name: "sole super is a modifier", spec: "super", wantErr: ErrNoKey},
		{name: "two keys", spec: "ctrl+a+b", wantErr: ErrMultipleKeys, wantSub: "a and b"},
		{name: "unknown key", spec: "ctrl+banana", wantErr: ErrUnknownKey, wantSub: "banana"},
		{name: "f25 is out of range", spec: "f25", wantErr: ErrUnknownKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.spec)
			if err == nil {
				t.Fatalf("Parse(%q) expected error, got nil", tt.spec)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.spec, err, tt.wantErr)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Parse(%q) error type = %T, want *ParseError", tt.spec, err)
			}
			if parseErr.Input != tt.spec {
				t.Errorf("ParseError.Input = %q, want %q", parseErr.Input, tt.spec)
			}
			if tt.wantSub != "" && !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestParseModifierOrderInsensitive(t *testing.T) {
	pairs := [][2]string{
		{"ctrl+alt+del", "alt+ctrl+del"},
		{"shift+lwin+s", "lwin+s+shift"},
		{"ctrl+shift+alt+f4", "F4 + ALT + SHIFT + CONTROL"},
	}
	for _, pair := range pairs {
		a, err := Parse(pair[0])
		if err != nil {
			t.Fatalf("Parse(%q): %v", pair[0], err)
		}
		b, err := Parse(pair[1])
		if err != nil {
			t.Fatalf("Parse(%q): %v", pair[1], err)
		}
		if !a.Equal(b) {
			t.Errorf("Parse(%q) = %v, Parse(%q) = %v, want equal", pair[0], a, pair[1], b)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, k := range namedKeys {
		for _, prefix := range []string{"", "ctrl+", "shift+alt+", "lwin+", "ctrl+alt+shift+lwin+"} {
			spec := prefix + k.name
			original, err := Parse(spec)
			if err != nil {
				continue
			}
			again, err := Parse(original.String())
			if err != nil {
				t.Fatalf("Parse(%q) (canonical of %q) failed: %v", original.String(), spec, err)
			}
			if !again.Equal(original) {
				t.Errorf("round trip of %q: got %v, want %v", spec, again, original)
			}
		}
	}
}

func TestMatchesIsExact(t *testing.T) {
	combo := MustParse("lwin")

	if !combo.Matches(VKLWin, Modifiers{Meta: true}) {
		t.Fatal("bare lwin combo should match the lone left-meta key")
	}
	if combo.Matches(VKRWin, Modifiers{Meta: true}) {
		t.Fatal("left-meta combo must not match the right-meta key")
	}
	if combo.Matches(VKLWin, Modifiers{Meta: true, Shift: true}) {
		t.Fatal("an extra held modifier must not match")
	}
	if combo.Matches(Code('S'), Modifiers{Meta: true}) {
		t.Fatal("a chord with another key must not match the bare combo")
	}
	if !combo.IsBareMeta() {
		t.Fatal("IsBareMeta() = false, want true")
	}
	if MustParse("lwin+d").IsBareMeta() {
		t.Fatal("lwin+d is not a bare meta combo")
	}
}

func TestUnmarshalText(t *testing.T) {
	var c Combo
	if err := c.UnmarshalText([]byte("Ctrl+Esc")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if !c.Equal(MustParse("ctrl+escape")) {
		t.Fatalf("UnmarshalText = %v, want ctrl+escape", c)
	}
	if err := c.UnmarshalText([]byte("ctrl+nope")); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("UnmarshalText error = %v, want ErrUnknownKey", err)
	}
}

func TestModifierClassification(t *testing.T) {
	tests := []struct {
		code                   Code
		shift, ctrl, alt, meta bool
	}{
		{code: VKShift, shift: true},
		{code: VKLShift, shift: true},
		{code: VKRShift, shift: true},
		{code: VKControl, ctrl: true},
		{code: VKLControl, ctrl: true},
		{code: VKRControl, ctrl: true},
		{code: VKMenu, alt: true},
		{code: VKLMenu, alt: true},
		{code: VKRMenu, alt: true},
		{code: VKLWin, meta: true},
		{code: VKRWin, meta: true},
		{code: Code('A')},
	}
	for _, tt := range tests {
		if IsShift(tt.code) != tt.shift || IsCtrl(tt.code) != tt.ctrl || IsAlt(tt.code) != tt.alt || IsMeta(tt.code) != tt.meta {
			t.Errorf("classification of 0x%X wrong", tt.code)
		}
		if IsModifier(tt.code) != (tt.shift || tt.ctrl || tt.alt || tt.meta) {
			t.Errorf("IsModifier(0x%X) wrong", tt.code)
		}
	}
}

func TestKeyNameFallsBackToHex(t *testing.T) {
	if got := KeyName(0xE8); got != "0xe8" {
		t.Fatalf("KeyName(0xE8) = %q, want 0xe8", got)
	}
	if got := KeyName(vkReturn); got != "enter" {
		t.Fatalf("KeyName(VK_RETURN) = %q, want enter", got)
	}
}
