package inject

import (
	"Typist/internal/service/typing"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

type call struct {
	name string
	args []string
}

func fakeShell(t *testing.T, goos string, out []byte, err error) (*Shell, *[]call) {
	t.Helper()
	var calls []call
	s := NewShell(zaptest.NewLogger(t).Sugar())
	s.goos = goos
	s.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, call{name: name, args: args})
		return out, err
	}
	return s, &calls
}

func TestShellTypeText(t *testing.T) {
	tests := []struct {
		goos     string
		text     string
		wantName string
		wantLast string
	}{
		{"linux", "a+b", "xdotool", "a+b"},
		{"darwin", `say "hi"`, "osascript", `tell application "System Events" to keystroke "say \"hi\""`},
		{"windows", "1+1 it's", "powershell", "Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait('1{+}1 it''s')"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			s, calls := fakeShell(t, tt.goos, nil, nil)
			if err := s.TypeText(context.Background(), tt.text); err != nil {
				t.Fatalf("TypeText() error = %v", err)
			}
			if len(*calls) != 1 {
				t.Fatalf("calls = %d, want 1", len(*calls))
			}
			c := (*calls)[0]
			if c.name != tt.wantName {
				t.Errorf("command = %q, want %q", c.name, tt.wantName)
			}
			if last := c.args[len(c.args)-1]; last != tt.wantLast {
				t.Errorf("last arg = %q, want %q", last, tt.wantLast)
			}
		})
	}
}

func TestShellLinuxTypeStopsOptionParsing(t *testing.T) {
	s, calls := fakeShell(t, "linux", nil, nil)
	if err := s.TypeText(context.Background(), "--help"); err != nil {
		t.Fatal(err)
	}
	want := []string{"type", "--clearmodifiers", "--delay", "0", "--", "--help"}
	if got := (*calls)[0].args; !slices.Equal(got, want) {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestShellPressKey(t *testing.T) {
	tests := []struct {
		goos string
		key  typing.Control
		want string
	}{
		{"linux", typing.ControlEnter, "Return"},
		{"linux", typing.ControlTab, "Tab"},
		{"darwin", typing.ControlEnter, `tell application "System Events" to key code 36`},
		{"darwin", typing.ControlTab, `tell application "System Events" to key code 48`},
		{"windows", typing.ControlEnter, "Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait('{ENTER}')"},
		{"windows", typing.ControlTab, "Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait('{TAB}')"},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.key.String(), func(t *testing.T) {
			s, calls := fakeShell(t, tt.goos, nil, nil)
			if err := s.PressKey(context.Background(), tt.key); err != nil {
				t.Fatalf("PressKey() error = %v", err)
			}
			args := (*calls)[0].args
			if last := args[len(args)-1]; last != tt.want {
				t.Errorf("last arg = %q, want %q", last, tt.want)
			}
		})
	}
}

func TestShellErrors(t *testing.T) {
	t.Run("unsupported platform", func(t *testing.T) {
		s, calls := fakeShell(t, "plan9", nil, nil)
		if err := s.TypeText(context.Background(), "x"); !errors.Is(err, ErrUnsupportedPlatform) {
			t.Errorf("TypeText() error = %v, want ErrUnsupportedPlatform", err)
		}
		if err := s.PressKey(context.Background(), typing.ControlEnter); !errors.Is(err, ErrUnsupportedPlatform) {
			t.Errorf("PressKey() error = %v, want ErrUnsupportedPlatform", err)
		}
		if len(*calls) != 0 {
			t.Errorf("commands run on unsupported platform: %v", *calls)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		s, _ := fakeShell(t, "linux", nil, nil)
		if err := s.PressKey(context.Background(), typing.ControlNone); err == nil {
			t.Error("PressKey(ControlNone) succeeded")
		}
	})

	t.Run("command output in error", func(t *testing.T) {
		boom := errors.New("exit status 1")
		s, _ := fakeShell(t, "linux", []byte("Can't open display\n"), boom)
		err := s.TypeText(context.Background(), "x")
		if !errors.Is(err, boom) {
			t.Fatalf("error = %v, want wrapped %v", err, boom)
		}
		if !strings.Contains(err.Error(), "Can't open display") {
			t.Errorf("error %q lacks command output", err)
		}
	})
}
