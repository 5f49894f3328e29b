package twitch

import (
	"Typist/internal/service/typing"
	"context"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeEngine struct {
	texts   []string
	md      []map[string]string
	pauses  int
	resumes int
	stops   int
}

func (f *fakeEngine) EnqueueText(text string, _ time.Duration, md map[string]string) *typing.Job {
	f.texts = append(f.texts, text)
	f.md = append(f.md, md)
	return &typing.Job{ID: "id", Text: text, Metadata: md}
}

func (f *fakeEngine) Pause() bool  { f.pauses++; return true }
func (f *fakeEngine) Resume() bool { f.resumes++; return true }
func (f *fakeEngine) Stop()        { f.stops++ }

func newTestBot(t *testing.T, cfg Config) (*Bot, *fakeEngine, *[]string) {
	t.Helper()
	eng := &fakeEngine{}
	b := New(cfg, eng, zaptest.NewLogger(t).Sugar())
	var said []string
	b.say = func(_, text string) { said = append(said, text) }
	return b, eng, &said
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want command
		ok   bool
	}{
		{"!type hello world", command{"type", "hello world"}, true},
		{"  !TYPE   spaced  ", command{"type", "spaced"}, true},
		{"!pause", command{"pause", ""}, true},
		{"!resume now", command{"resume", "now"}, true},
		{"!stop", command{"stop", ""}, true},
		{"!dance", command{}, false},
		{"type hello", command{}, false},
		{"", command{}, false},
	}
	for _, tt := range tests {
		got, ok := parseCommand(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseCommand(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTypePermissions(t *testing.T) {
	b, eng, _ := newTestBot(t, Config{Channel: "#Streamer", AllowedUsers: []string{" Friend "}})

	b.handle(message{user: "stranger", text: "!type nope"})
	b.handle(message{user: "Friend", text: "!type from friend"})
	b.handle(message{user: "streamer", text: "!type from owner"})
	b.handle(message{user: "mod", broadcaster: true, text: "!type from badge"})

	want := []string{"from friend", "from owner", "from badge"}
	if !reflect.DeepEqual(eng.texts, want) {
		t.Fatalf("texts = %q, want %q", eng.texts, want)
	}
	if eng.md[0][typing.MetaSource] != typing.SourceTwitch || eng.md[0]["user"] != "friend" {
		t.Fatalf("metadata = %v", eng.md[0])
	}
	if got := b.AllowedUsers(); !reflect.DeepEqual(got, []string{"friend"}) {
		t.Fatalf("AllowedUsers = %v", got)
	}
}

func TestControlCommandsOwnerOnly(t *testing.T) {
	b, eng, _ := newTestBot(t, Config{Channel: "streamer", AllowedUsers: []string{"friend"}})

	for _, text := range []string{"!pause", "!resume", "!stop"} {
		b.handle(message{user: "friend", text: text})
	}
	if eng.pauses+eng.resumes+eng.stops != 0 {
		t.Fatalf("allowed user must not control the engine: %+v", eng)
	}

	b.handle(message{user: "streamer", text: "!pause"})
	b.handle(message{user: "x", broadcaster: true, text: "!resume"})
	b.handle(message{user: "streamer", text: "!stop"})
	if eng.pauses != 1 || eng.resumes != 1 || eng.stops != 1 {
		t.Fatalf("pauses=%d resumes=%d stops=%d", eng.pauses, eng.resumes, eng.stops)
	}
}

func TestTypeFiltering(t *testing.T) {
	b, eng, said := newTestBot(t, Config{Channel: "streamer", MaxLength: 10})

	b.handle(message{user: "streamer", text: "!type https://example.com/x"})
	b.handle(message{user: "streamer", text: "!type "})
	b.handle(message{channel: "streamer", user: "streamer", text: "!type this text is too long"})
	b.handle(message{user: "streamer", text: "!type see https://a.b ok"})
	b.handle(message{user: "streamer", text: "!type привет мир"})

	want := []string{"see  ok", "привет мир"}
	if !reflect.DeepEqual(eng.texts, want) {
		t.Fatalf("texts = %q, want %q", eng.texts, want)
	}
	if len(*said) != 1 {
		t.Fatalf("expected one reply about length, got %q", *said)
	}
}

func TestCooldown(t *testing.T) {
	b, eng, _ := newTestBot(t, Config{Channel: "streamer", AllowedUsers: []string{"a", "b"}, Cooldown: 10 * time.Second})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.handle(message{user: "a", text: "!type one"})
	b.handle(message{user: "a", text: "!type two"})
	b.handle(message{user: "b", text: "!type three"})
	now = now.Add(10 * time.Second)
	b.handle(message{user: "a", text: "!type four"})

	want := []string{"one", "three", "four"}
	if !reflect.DeepEqual(eng.texts, want) {
		t.Fatalf("texts = %q, want %q", eng.texts, want)
	}
}

func TestRunWithoutCredentials(t *testing.T) {
	b, _, _ := newTestBot(t, Config{Channel: "streamer"})
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
}
