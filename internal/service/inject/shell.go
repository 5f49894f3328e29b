package inject

import (
	"Typist/internal/service/typing"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// runner запускает внешнюю команду; подменяется в тестах.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Shell печатает через системные утилиты: powershell SendKeys на Windows,
// xdotool на Linux (X11), osascript на macOS.
type Shell struct {
	goos   string
	run    runner
	logger *zap.SugaredLogger
}

var _ typing.KeyInjector = (*Shell)(nil)

func NewShell(logger *zap.SugaredLogger) *Shell {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Shell{goos: runtime.GOOS, run: runCommand, logger: logger}
}

func (s *Shell) TypeText(ctx context.Context, text string) error {
	name, args, err := typeCommand(s.goos, text)
	if err != nil {
		return err
	}
	return s.exec(ctx, name, args)
}

func (s *Shell) PressKey(ctx context.Context, key typing.Control) error {
	name, args, err := keyCommand(s.goos, key)
	if err != nil {
		return err
	}
	return s.exec(ctx, name, args)
}

func (s *Shell) exec(ctx context.Context, name string, args []string) error {
	out, err := s.run(ctx, name, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func powerShell(script string) (string, []string) {
	return "powershell", []string{
		"-NoProfile", "-NonInteractive", "-Command",
		"Add-Type -AssemblyName System.Windows.Forms; [System.Windows.Forms.SendKeys]::SendWait(" + script + ")",
	}
}

func typeCommand(goos, text string) (string, []string, error) {
	switch goos {
	case "windows":
		name, args := powerShell(quotePowerShell(EscapeSendKeys(text)))
		return name, args, nil
	case "linux", "freebsd", "openbsd":
		return "xdotool", []string{"type", "--clearmodifiers", "--delay", "0", "--", text}, nil
	case "darwin":
		return "osascript", []string{"-e", `tell application "System Events" to keystroke ` + quoteAppleScript(text)}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

func keyCommand(goos string, key typing.Control) (string, []string, error) {
	var win, x11, mac string
	switch key {
	case typing.ControlEnter:
		win, x11, mac = "{ENTER}", "Return", "key code 36"
	case typing.ControlTab:
		win, x11, mac = "{TAB}", "Tab", "key code 48"
	default:
		return "", nil, fmt.Errorf("inject: unknown control key %d", int(key))
	}
	switch goos {
	case "windows":
		name, args := powerShell(quotePowerShell(win))
		return name, args, nil
	case "linux", "freebsd", "openbsd":
		return "xdotool", []string{"key", "--clearmodifiers", x11}, nil
	case "darwin":
		return "osascript", []string{"-e", `tell application "System Events" to ` + mac}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}
