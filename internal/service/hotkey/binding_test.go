package hotkey

import (
	"strings"
	"testing"
)

func TestParseBinding(t *testing.T) {
	tests := []struct {
		spec      string
		modifiers uint32
		key       uint32
	}{
		{"ctrl+alt+v", ModControl | ModAlt, 0x56},
		{" Ctrl + Shift + P ", ModControl | ModShift, 0x50},
		{"win+1", ModWin, 0x31},
		{"shift+f9", ModShift, 0x78},
		{"f24", 0, 0x87},
		{"ctrl+alt+pause", ModControl | ModAlt, 0x13},
		{"control+esc", ModControl, 0x1B},
		{"super+space", ModWin, 0x20},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			b, err := ParseBinding(ActionStop, tt.spec)
			if err != nil {
				t.Fatalf("ParseBinding(%q) error = %v", tt.spec, err)
			}
			if b.Modifiers != tt.modifiers || b.Key != tt.key {
				t.Errorf("ParseBinding(%q) = mods %#x key %#x, want mods %#x key %#x",
					tt.spec, b.Modifiers, b.Key, tt.modifiers, tt.key)
			}
			if b.Action != ActionStop || b.Spec != strings.TrimSpace(tt.spec) {
				t.Errorf("binding = %+v", b)
			}
		})
	}
}

func TestParseBindingErrors(t *testing.T) {
	for _, spec := range []string{"", "ctrl+alt", "ctrl+a+b", "ctrl+f25", "ctrl+f0", "hyper+x", "ctrl++"} {
		if _, err := ParseBinding(ActionAssist, spec); err == nil {
			t.Errorf("ParseBinding(%q) succeeded, want error", spec)
		}
	}
}

func TestParseBindings(t *testing.T) {
	got, err := ParseBindings(map[Action]string{
		ActionTypeClipboard: "ctrl+alt+v",
		ActionTogglePause:   "ctrl+alt+p",
		ActionStop:          "",
		ActionAssist:        "ctrl+alt+a",
	})
	if err != nil {
		t.Fatalf("ParseBindings() error = %v", err)
	}
	var actions []Action
	for _, b := range got {
		actions = append(actions, b.Action)
	}
	want := []Action{ActionAssist, ActionTogglePause, ActionTypeClipboard}
	if len(actions) != len(want) {
		t.Fatalf("actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("actions = %v, want %v", actions, want)
			break
		}
	}

	if _, err := ParseBindings(map[Action]string{ActionStop: "ctrl+q", ActionAssist: "Ctrl+Q"}); err == nil {
		t.Error("duplicate binding accepted")
	}
}
