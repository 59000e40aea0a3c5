// Package shortcut parses and validates global shortcut strings such as "Ctrl+Q".
package shortcut

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Modifier is a bit set of shortcut modifier keys.
type Modifier uint8

const (
	ModCtrl Modifier = 1 << iota
	ModAlt
	ModShift
	ModMeta
)

// modifierOrder is the canonical rendering order.
var modifierOrder = []struct {
	mod  Modifier
	name string
}{
	{ModCtrl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModMeta, "Meta"},
}

// modifierAliases maps lower-cased spellings to modifiers.
var modifierAliases = map[string]Modifier{
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"shift":   ModShift,
	"meta":    ModMeta,
	"win":     ModMeta,
	"super":   ModMeta,
}

// Parse errors.
var (
	ErrEmpty        = errors.New("shortcut cannot be empty")
	ErrNoKey        = errors.New("shortcut must contain one main key")
	ErrMultipleKeys = errors.New("shortcut may only contain one main key")
	ErrUnknownKey   = errors.New("unsupported key")
)

// Shortcut is a parsed key combination: any modifiers plus one main key.
type Shortcut struct {
	Mods Modifier
	// Key is the canonical main key: "A".."Z", "0".."9" or "F1".."F12".
	Key string
}

// Parse parses a "Mod+Mod+Key" string. Parts are trimmed and matched
// case-insensitively.
func Parse(s string) (Shortcut, error) {
	if strings.TrimSpace(s) == "" {
		return Shortcut{}, ErrEmpty
	}

	var sc Shortcut
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		if mod, ok := modifierAliases[strings.ToLower(part)]; ok {
			sc.Mods |= mod
			continue
		}
		if sc.Key != "" {
			return Shortcut{}, ErrMultipleKeys
		}
		key, err := normalizeKey(part)
		if err != nil {
			return Shortcut{}, err
		}
		sc.Key = key
	}

	if sc.Key == "" {
		return Shortcut{}, ErrNoKey
	}
	return sc, nil
}

// Validate reports whether s is a usable shortcut string.
func Validate(s string) error {
	_, err := Parse(s)
	return err
}

// Canonical returns the canonical spelling of s, e.g. "ctrl + q" -> "Ctrl+Q".
func Canonical(s string) (string, error) {
	sc, err := Parse(s)
	if err != nil {
		return "", err
	}
	return sc.String(), nil
}

func normalizeKey(part string) (string, error) {
	key := strings.ToUpper(part)

	if len(key) == 1 {
		c := key[0]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			return key, nil
		}
	}

	if strings.HasPrefix(key, "F") {
		if n, err := strconv.Atoi(key[1:]); err == nil && n >= 1 && n <= 12 {
			return "F" + strconv.Itoa(n), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKey, part)
}

// Has reports whether the shortcut includes modifier m.
func (s Shortcut) Has(m Modifier) bool {
	return s.Mods&m != 0
}

// ModifierNames returns the canonical names of the shortcut's modifiers.
func (s Shortcut) ModifierNames() []string {
	var names []string
	for _, m := range modifierOrder {
		if s.Has(m.mod) {
			names = append(names, m.name)
		}
	}
	return names
}

func (s Shortcut) String() string {
	return strings.Join(append(s.ModifierNames(), s.Key), "+")
}

// X11 keysyms for the supported keys.
const (
	keysymF1       = 0xffbe
	keysymShiftL   = 0xffe1
	keysymShiftR   = 0xffe2
	keysymControlL = 0xffe3
	keysymControlR = 0xffe4
	keysymMetaL    = 0xffe7
	keysymMetaR    = 0xffe8
	keysymAltL     = 0xffe9
	keysymAltR     = 0xffea
	keysymSuperL   = 0xffeb
	keysymSuperR   = 0xffec
)

// Keysyms returns, for every key in the combination, the X11 keysyms that
// satisfy it. A combination is held when one keysym of every group is down.
func (s Shortcut) Keysyms() [][]uint16 {
	var groups [][]uint16
	if s.Has(ModCtrl) {
		groups = append(groups, []uint16{keysymControlL, keysymControlR})
	}
	if s.Has(ModAlt) {
		groups = append(groups, []uint16{keysymAltL, keysymAltR})
	}
	if s.Has(ModShift) {
		groups = append(groups, []uint16{keysymShiftL, keysymShiftR})
	}
	if s.Has(ModMeta) {
		groups = append(groups, []uint16{keysymSuperL, keysymSuperR, keysymMetaL, keysymMetaR})
	}
	if key := keyKeysyms(s.Key); len(key) > 0 {
		groups = append(groups, key)
	}
	return groups
}

func keyKeysyms(key string) []uint16 {
	if len(key) == 1 {
		c := key[0]
		switch {
		case c >= 'A' && c <= 'Z':
			// Shift turns the keysym upper case, so accept both.
			return []uint16{uint16(c), uint16(c - 'A' + 'a')}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)}
		}
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(key, "F")); err == nil && n >= 1 && n <= 12 {
		return []uint16{uint16(keysymF1 + n - 1)}
	}
	return nil
}
