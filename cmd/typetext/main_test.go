package main

import (
	"Typist/internal/service/typing"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("from file\r\nline two"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		file  string
		text  string
		args  []string
		stdin string
		want  string
	}{
		{"file wins", path, "flag", []string{"arg"}, "stdin", "from file\nline two"},
		{"text flag", "", "flag", []string{"arg"}, "stdin", "flag"},
		{"args", "", "", []string{"a", "b"}, "stdin", "a b"},
		{"stdin", "", "", nil, "piped\n", "piped\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readInput(tt.file, tt.text, tt.args, strings.NewReader(tt.stdin))
			if err != nil {
				t.Fatalf("readInput: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := readInput("", "", nil, strings.NewReader("  \n")); err == nil {
		t.Fatal("blank input must be rejected")
	}
	if _, err := readInput(filepath.Join(t.TempDir(), "missing"), "", nil, nil); err == nil {
		t.Fatal("missing file must be an error")
	}
}

type recordingInjector struct {
	mu  sync.Mutex
	out []string
}

func (r *recordingInjector) TypeText(_ context.Context, text string) error {
	r.mu.Lock()
	r.out = append(r.out, text)
	r.mu.Unlock()
	return nil
}

func (r *recordingInjector) PressKey(_ context.Context, key typing.Control) error {
	r.mu.Lock()
	r.out = append(r.out, key.String())
	r.mu.Unlock()
	return nil
}

func TestRunUntilDone(t *testing.T) {
	inj := &recordingInjector{}
	engine := typing.New(inj, typing.Options{
		Sleep:  func(context.Context, time.Duration) error { return nil },
		Logger: zaptest.NewLogger(t).Sugar(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runUntilDone(ctx, engine, "ok.\nbye"); err != nil {
		t.Fatalf("runUntilDone: %v", err)
	}

	inj.mu.Lock()
	defer inj.mu.Unlock()
	got := strings.Join(inj.out, "")
	if got != "ok.ENTERbye" {
		t.Fatalf("typed %q", got)
	}
}
