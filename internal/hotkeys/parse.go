package hotkeys

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Win32 MOD_* flags accepted by RegisterHotKey.
const (
	ModAlt     Modifier = 0x0001
	ModControl Modifier = 0x0002
	ModShift   Modifier = 0x0004
	ModWin     Modifier = 0x0008
)

const (
	vkSpace  VKey = 0x20
	vkTab    VKey = 0x09
	vkReturn VKey = 0x0D
	vkEscape VKey = 0x1B
	vkDelete VKey = 0x2E
	vkPrior  VKey = 0x21
	vkNext   VKey = 0x22
	vkEnd    VKey = 0x23
	vkHome   VKey = 0x24
	vkInsert VKey = 0x2D
	vkLeft   VKey = 0x25
	vkUp     VKey = 0x26
	vkRight  VKey = 0x27
	vkDown   VKey = 0x28
	vkOem3   VKey = 0xC0 // backtick / tilde on US layouts
	vkF1     VKey = 0x70
	vkF2     VKey = 0x71
	vkF3     VKey = 0x72
	vkF4     VKey = 0x73
	vkF5     VKey = 0x74
	vkF6     VKey = 0x75
	vkF7     VKey = 0x76
	vkF8     VKey = 0x77
	vkF9     VKey = 0x78
	vkF10    VKey = 0x79
	vkF11    VKey = 0x7A
	vkF12    VKey = 0x7B
	vkF13    VKey = 0x7C
	vkF14    VKey = 0x7D
	vkF15    VKey = 0x7E
	vkF16    VKey = 0x7F
	vkF17    VKey = 0x80
	vkF18    VKey = 0x81
	vkF19    VKey = 0x82
	vkF20    VKey = 0x83
)

var windowsModifierByName = map[string]Modifier{
	"CTRL":    ModControl,
	"CONTROL": ModControl,
	"SHIFT":   ModShift,
	"ALT":     ModAlt,
	"WIN":     ModWin,
	"SUPER":   ModWin,
}

var windowsKeyByName = map[string]VKey{
	"SPACE":    vkSpace,
	"TAB":      vkTab,
	"ENTER":    vkReturn,
	"RETURN":   vkReturn,
	"ESC":      vkEscape,
	"ESCAPE":   vkEscape,
	"DELETE":   vkDelete,
	"LEFT":     vkLeft,
	"RIGHT":    vkRight,
	"UP":       vkUp,
	"DOWN":     vkDown,
	"PAGEUP":   vkPrior,
	"PGUP":     vkPrior,
	"PAGEDOWN": vkNext,
	"PGDN":     vkNext,
	"HOME":     vkHome,
	"END":      vkEnd,
	"INSERT":   vkInsert,
}

var windowsFunctionKeys = map[string]VKey{
	"F1":  vkF1,
	"F2":  vkF2,
	"F3":  vkF3,
	"F4":  vkF4,
	"F5":  vkF5,
	"F6":  vkF6,
	"F7":  vkF7,
	"F8":  vkF8,
	"F9":  vkF9,
	"F10": vkF10,
	"F11": vkF11,
	"F12": vkF12,
	"F13": vkF13,
	"F14": vkF14,
	"F15": vkF15,
	"F16": vkF16,
	"F17": vkF17,
	"F18": vkF18,
	"F19": vkF19,
	"F20": vkF20,
}

// ErrInvalidBinding wraps every ParseBinding failure.
var ErrInvalidBinding = errors.New("invalid hotkey binding")

// modifierOrder is the canonical order used in normalized binding strings, so
// "Shift+Alt+`" and "Alt+Shift+`" normalize identically.
var modifierOrder = []Modifier{ModControl, ModAlt, ModShift, ModWin}

// ParseBinding parses a binding like "Alt+Shift+`". The key token is the
// last "+"-separated part; at least one modifier is required. Parsing has no
// OS dependency so bindings can be validated on any platform.
func ParseBinding(spec string) (Binding, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return Binding{}, fmt.Errorf("%w: hotkey spec is empty", ErrInvalidBinding)
	}

	parts := strings.Split(raw, "+")
	if len(parts) < 2 {
		return Binding{}, fmt.Errorf("%w: hotkey must include modifiers and key: %s", ErrInvalidBinding, raw)
	}

	var modifiers Modifier
	for _, token := range parts[:len(parts)-1] {
		mod, ok := windowsModifierByName[strings.ToUpper(strings.TrimSpace(token))]
		if !ok {
			return Binding{}, fmt.Errorf("%w: unknown modifier %q in hotkey %q", ErrInvalidBinding, token, raw)
		}
		modifiers |= mod
	}

	key, normalizedKey, err := parseWindowsKey(parts[len(parts)-1])
	if err != nil {
		return Binding{}, fmt.Errorf("%w: %w", ErrInvalidBinding, err)
	}

	names := make([]string, 0, len(modifierOrder)+1)
	for _, mod := range modifierOrder {
		if modifiers&mod != 0 {
			names = append(names, normalizeModifierName(mod))
		}
	}
	names = append(names, normalizedKey)

	return Binding{
		modifiers:  modifiers,
		key:        key,
		normalized: strings.Join(names, "+"),
	}, nil
}

// MustParseBinding is ParseBinding for compile-time constant specs.
func MustParseBinding(spec string) Binding {
	b, err := ParseBinding(spec)
	if err != nil {
		panic(err)
	}
	return b
}

func parseWindowsKey(raw string) (VKey, string, error) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return 0, "", errors.New("missing hotkey key token")
	}

	if key, ok := windowsFunctionKeys[token]; ok {
		return key, token, nil
	}
	if key, ok := windowsKeyByName[token]; ok {
		return key, token, nil
	}

	if len(token) == 1 {
		ch := token[0]
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			return VKey(ch), token, nil
		case ch == '`':
			return vkOem3, "`", nil
		}
	}

	switch token {
	case "BACKQUOTE", "BACKTICK", "GRAVE":
		return vkOem3, "`", nil
	}

	if strings.HasPrefix(token, "0X") {
		value, err := strconv.ParseUint(token[2:], 16, 16)
		if err != nil {
			return 0, "", fmt.Errorf("invalid hex key %q", raw)
		}
		if value == 0 {
			return 0, "", errors.New("key code 0x0000 is not a valid virtual key")
		}
		return VKey(value), token, nil
	}

	return 0, "", fmt.Errorf("unknown key %q in hotkey spec", raw)
}

func normalizeModifierName(mod Modifier) string {
	switch mod {
	case ModControl:
		return "Ctrl"
	case ModShift:
		return "Shift"
	case ModAlt:
		return "Alt"
	case ModWin:
		return "Win"
	default:
		return "Mod"
	}
}
