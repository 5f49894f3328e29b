package hotkey

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Модификаторы RegisterHotKey.
const (
	ModAlt     uint32 = 0x0001
	ModControl uint32 = 0x0002
	ModShift   uint32 = 0x0004
	ModWin     uint32 = 0x0008
)

// Binding: сочетание «модификаторы + виртуальная клавиша».
type Binding struct {
	Action    Action
	Modifiers uint32
	Key       uint32
	Spec      string
}

var modifierNames = map[string]uint32{
	"alt":     ModAlt,
	"ctrl":    ModControl,
	"control": ModControl,
	"shift":   ModShift,
	"win":     ModWin,
	"super":   ModWin,
}

var keyNames = map[string]uint32{
	"backspace": 0x08,
	"tab":       0x09,
	"enter":     0x0D,
	"return":    0x0D,
	"pause":     0x13,
	"esc":       0x1B,
	"escape":    0x1B,
	"space":     0x20,
	"pageup":    0x21,
	"pgup":      0x21,
	"pagedown":  0x22,
	"pgdn":      0x22,
	"end":       0x23,
	"home":      0x24,
	"left":      0x25,
	"up":        0x26,
	"right":     0x27,
	"down":      0x28,
	"insert":    0x2D,
	"delete":    0x2E,
}

// ParseBinding разбирает строку вида "ctrl+alt+v" или "shift+f9".
// Регистр и пробелы не важны, основная клавиша ровно одна.
func ParseBinding(action Action, spec string) (Binding, error) {
	b := Binding{Action: action, Spec: strings.TrimSpace(spec)}
	if b.Spec == "" {
		return b, fmt.Errorf("hotkey %s: empty binding", action)
	}
	for _, part := range strings.Split(strings.ToLower(b.Spec), "+") {
		part = strings.TrimSpace(part)
		if mod, ok := modifierNames[part]; ok {
			b.Modifiers |= mod
			continue
		}
		vk, ok := virtualKey(part)
		if !ok {
			return b, fmt.Errorf("hotkey %s: unknown key %q in %q", action, part, spec)
		}
		if b.Key != 0 {
			return b, fmt.Errorf("hotkey %s: more than one key in %q", action, spec)
		}
		b.Key = vk
	}
	if b.Key == 0 {
		return b, fmt.Errorf("hotkey %s: no key in %q", action, spec)
	}
	return b, nil
}

// ParseBindings разбирает набор привязок; пустые строки отключают действие.
// Одно сочетание на два действия считается ошибкой.
func ParseBindings(specs map[Action]string) ([]Binding, error) {
	actions := make([]Action, 0, len(specs))
	for a := range specs {
		actions = append(actions, a)
	}
	slices.Sort(actions)

	var out []Binding
	for _, a := range actions {
		if strings.TrimSpace(specs[a]) == "" {
			continue
		}
		b, err := ParseBinding(a, specs[a])
		if err != nil {
			return nil, err
		}
		for _, prev := range out {
			if prev.Modifiers == b.Modifiers && prev.Key == b.Key {
				return nil, fmt.Errorf("hotkey %q bound to both %s and %s", b.Spec, prev.Action, a)
			}
		}
		out = append(out, b)
	}
	return out, nil
}

func virtualKey(name string) (uint32, bool) {
	if vk, ok := keyNames[name]; ok {
		return vk, true
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return uint32(c-'a') + 0x41, true
		case c >= '0' && c <= '9':
			return uint32(c-'0') + 0x30, true
		}
	}
	if rest, ok := strings.CutPrefix(name, "f"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 24 {
			return uint32(0x70 + n - 1), true
		}
	}
	return 0, false
}
