package config

import (
	"flag"
	"io"
	"slices"
	"testing"
	"time"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return Load(fs, args)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Typing.WordsPerMinute != 90 || !cfg.Typing.BatchMode || cfg.Typing.MinBatchSize != 2 || cfg.Typing.MaxBatchSize != 6 {
		t.Errorf("typing defaults = %+v", cfg.Typing)
	}
	if cfg.Typing.Injector != "auto" || cfg.Typing.DispatchTimeout != 5*time.Second {
		t.Errorf("injector defaults = %+v", cfg.Typing)
	}
}

func TestLoadEnvAndFlags(t *testing.T) {
	t.Setenv("TYPING_WPM", "120")
	t.Setenv("TYPING_INJECTOR", "LOG")
	t.Setenv("TWITCH_ALLOWED_USERS", "alice; bob")
	t.Setenv("CONTROL_AUTH_TOKEN", "secret")

	cfg, err := load(t, "-max-batch", "9", "-batch-mode=false", "-twitch-channel", "#Streamer")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Typing.WordsPerMinute != 120 {
		t.Errorf("wpm = %d, want 120 from env", cfg.Typing.WordsPerMinute)
	}
	if cfg.Typing.Injector != "log" {
		t.Errorf("injector = %q, want log", cfg.Typing.Injector)
	}
	if cfg.Typing.MaxBatchSize != 9 || cfg.Typing.BatchMode {
		t.Errorf("flags not applied: %+v", cfg.Typing)
	}
	if !slices.Equal(cfg.Twitch.AllowedUsers, []string{"alice", "bob"}) {
		t.Errorf("allowed users = %q", cfg.Twitch.AllowedUsers)
	}
	if cfg.Twitch.Channel != "streamer" {
		t.Errorf("channel = %q, want streamer", cfg.Twitch.Channel)
	}
	if cfg.Control.AuthToken != "secret" {
		t.Errorf("control token = %q", cfg.Control.AuthToken)
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("TYPING_WPM", "fast")
	if _, err := load(t); err == nil {
		t.Error("Load() accepted TYPING_WPM=fast")
	}
}

func TestValidateClamps(t *testing.T) {
	cfg := Defaults()
	cfg.Typing.WordsPerMinute = -10
	cfg.Typing.MinBatchSize = 0
	cfg.Typing.MaxBatchSize = -3
	cfg.Typing.DispatchTimeout = 0
	cfg.Typing.StartDelay = -time.Second
	cfg.Assistant.JPEGQuality = 500
	cfg.Assistant.MaxWidth = -1
	cfg.Twitch.MaxLength = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	ty := cfg.Typing
	if ty.WordsPerMinute != 5 || ty.MinBatchSize != 1 || ty.MaxBatchSize != 1 {
		t.Errorf("typing not clamped: %+v", ty)
	}
	if ty.DispatchTimeout != 5*time.Second || ty.StartDelay != 0 {
		t.Errorf("durations not clamped: %+v", ty)
	}
	if cfg.Assistant.JPEGQuality != 100 || cfg.Assistant.MaxWidth != 0 {
		t.Errorf("assistant not clamped: %+v", cfg.Assistant)
	}
	if cfg.Twitch.MaxLength != 1 {
		t.Errorf("twitch max length = %d", cfg.Twitch.MaxLength)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := map[string]func(*Config){
		"unknown injector": func(c *Config) { c.Typing.Injector = "telepathy" },
		"twitch without token": func(c *Config) {
			c.Twitch.Enabled = true
			c.Twitch.Username = "bot"
			c.Twitch.Channel = "chan"
		},
		"assistant without model": func(c *Config) {
			c.Assistant.Enabled = true
			c.Assistant.Model = " "
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}

func TestParseListFlag(t *testing.T) {
	if got := parseListFlag(" a ;; b ;", nil); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("parseListFlag = %q", got)
	}
	if got := parseListFlag(" ; ", []string{"x"}); !slices.Equal(got, []string{"x"}) {
		t.Errorf("parseListFlag(empty) = %q", got)
	}
}
