package clipboard

import (
	"errors"
	"testing"

	"github.com/atotto/clipboard"
)

func TestNormalizeNewlines(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"one line", "one line"},
		{"a\r\nb\r\n", "a\nb\n"},
		{"old\rmac", "old\nmac"},
		{"mixed\r\n\r\rend", "mixed\n\n\nend"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeNewlines(tt.in); got != tt.want {
			t.Errorf("normalizeNewlines(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadText(t *testing.T) {
	if clipboard.Unsupported {
		t.Skip("no clipboard backend on this system")
	}
	r := &Reader{read: func() (string, error) { return "line1\r\nline2", nil }}
	got, err := r.ReadText()
	if err != nil || got != "line1\nline2" {
		t.Errorf("ReadText() = %q, %v", got, err)
	}

	boom := errors.New("busy")
	r = &Reader{read: func() (string, error) { return "", boom }}
	if _, err := r.ReadText(); !errors.Is(err, boom) {
		t.Errorf("ReadText() error = %v, want wrapped %v", err, boom)
	}
}
