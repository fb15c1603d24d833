package keycombo

import "fmt"

// Modifier and special virtual-key codes referenced outside the name table.
const (
	VKShift    Code = 0x10
	VKControl  Code = 0x11
	VKMenu     Code = 0x12
	VKLWin     Code = 0x5B
	VKRWin     Code = 0x5C
	VKLShift   Code = 0xA0
	VKRShift   Code = 0xA1
	VKLControl Code = 0xA2
	VKRControl Code = 0xA3
	VKLMenu    Code = 0xA4
	VKRMenu    Code = 0xA5
)

const (
	vkBack       Code = 0x08
	vkTab        Code = 0x09
	vkReturn     Code = 0x0D
	vkPause      Code = 0x13
	vkCapital    Code = 0x14
	vkEscape     Code = 0x1B
	vkSpace      Code = 0x20
	vkPrior      Code = 0x21
	vkNext       Code = 0x22
	vkEnd        Code = 0x23
	vkHome       Code = 0x24
	vkLeft       Code = 0x25
	vkUp         Code = 0x26
	vkRight      Code = 0x27
	vkDown       Code = 0x28
	vkSnapshot   Code = 0x2C
	vkInsert     Code = 0x2D
	vkDelete     Code = 0x2E
	vkF1         Code = 0x70
	vkNumLock    Code = 0x90
	vkScroll     Code = 0x91
	vkOem1       Code = 0xBA
	vkOemPlus    Code = 0xBB
	vkOemComma   Code = 0xBC
	vkOemMinus   Code = 0xBD
	vkOemPeriod  Code = 0xBE
	vkOem2       Code = 0xBF
	vkOem3       Code = 0xC0
	vkOem4       Code = 0xDB
	vkOem5       Code = 0xDC
	vkOem6       Code = 0xDD
	vkOem7       Code = 0xDE
	functionKeys      = 24
)

type namedKey struct {
	name string
	code Code
}

// namedKeys lists every key name accepted by Parse. The first name listed
// for a code is its canonical name.
var namedKeys = buildNamedKeys()

func buildNamedKeys() []namedKey {
	keys := make([]namedKey, 0, 128)
	for ch := 'a'; ch <= 'z'; ch++ {
		keys = append(keys, namedKey{string(ch), Code(ch - 'a' + 'A')})
	}
	for ch := '0'; ch <= '9'; ch++ {
		keys = append(keys, namedKey{string(ch), Code(ch)})
	}
	for n := 1; n <= functionKeys; n++ {
		keys = append(keys, namedKey{fmt.Sprintf("f%d", n), vkF1 + Code(n-1)})
	}
	keys = append(keys,
		namedKey{"space", vkSpace},
		namedKey{"enter", vkReturn},
		namedKey{"return", vkReturn},
		namedKey{"tab", vkTab},
		namedKey{"escape", vkEscape},
		namedKey{"esc", vkEscape},
		namedKey{"backspace", vkBack},
		namedKey{"delete", vkDelete},
		namedKey{"del", vkDelete},
		namedKey{"insert", vkInsert},
		namedKey{"ins", vkInsert},
		namedKey{"home", vkHome},
		namedKey{"end", vkEnd},
		namedKey{"pageup", vkPrior},
		namedKey{"pagedown", vkNext},
		namedKey{"up", vkUp},
		namedKey{"down", vkDown},
		namedKey{"left", vkLeft},
		namedKey{"right", vkRight},
		namedKey{"printscreen", vkSnapshot},
		namedKey{"prtsc", vkSnapshot},
		namedKey{"pause", vkPause},
		namedKey{"capslock", vkCapital},
		namedKey{"numlock", vkNumLock},
		namedKey{"scrolllock", vkScroll},

		namedKey{"semicolon", vkOem1},
		namedKey{"equals", vkOemPlus},
		namedKey{"comma", vkOemComma},
		namedKey{"minus", vkOemMinus},
		namedKey{"period", vkOemPeriod},
		namedKey{"slash", vkOem2},
		namedKey{"grave", vkOem3},
		namedKey{"backquote", vkOem3},
		namedKey{"leftbracket", vkOem4},
		namedKey{"backslash", vkOem5},
		namedKey{"rightbracket", vkOem6},
		namedKey{"quote", vkOem7},

		namedKey{"lwin", VKLWin},
		namedKey{"super", VKLWin},
		namedKey{"rwin", VKRWin},
	)
	return keys
}

var (
	codeByName    = make(map[string]Code, len(namedKeys))
	canonicalName = make(map[Code]string, len(namedKeys))
)

func init() {
	for _, k := range namedKeys {
		codeByName[k.name] = k.code
		if _, ok := canonicalName[k.code]; !ok {
			canonicalName[k.code] = k.name
		}
	}
}

// LookupKey resolves a lowercase key name to its virtual-key code.
func LookupKey(name string) (Code, bool) {
	code, ok := codeByName[name]
	return code, ok
}

// KeyName returns the canonical name of code, or a hex literal for codes
// outside the name table.
func KeyName(code Code) string {
	if name, ok := canonicalName[code]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", uint32(code))
}

// IsShift reports whether code is any shift variant.
func IsShift(code Code) bool {
	return code == VKShift || code == VKLShift || code == VKRShift
}

// IsCtrl reports whether code is any control variant.
func IsCtrl(code Code) bool {
	return code == VKControl || code == VKLControl || code == VKRControl
}

// IsAlt reports whether code is any alt (menu) variant.
func IsAlt(code Code) bool {
	return code == VKMenu || code == VKLMenu || code == VKRMenu
}

// IsMeta reports whether code is a Windows key.
func IsMeta(code Code) bool {
	return code == VKLWin || code == VKRWin
}

// IsModifier reports whether code belongs to any modifier family.
func IsModifier(code Code) bool {
	return IsShift(code) || IsCtrl(code) || IsAlt(code) || IsMeta(code)
}
