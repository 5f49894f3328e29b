package assistant

import (
	"Typist/internal/service/typing"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeCapturer struct {
	url string
	err error
}

func (f fakeCapturer) Capture(context.Context) (string, error) { return f.url, f.err }

type fakeAnswerer struct {
	answer  string
	err     error
	started chan struct{}
	release chan struct{}

	mu  sync.Mutex
	got []string
}

func (f *fakeAnswerer) Answer(ctx context.Context, imageURL string) (string, error) {
	f.mu.Lock()
	f.got = append(f.got, imageURL)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

type fakeQueue struct {
	jobs []*typing.Job
}

func (q *fakeQueue) EnqueueText(text string, delay time.Duration, md map[string]string) *typing.Job {
	j := &typing.Job{ID: "job-1", Text: text, Delay: delay, Metadata: md}
	q.jobs = append(q.jobs, j)
	return j
}

func TestSolveQueuesAnswer(t *testing.T) {
	ans := &fakeAnswerer{answer: "  42\n"}
	q := &fakeQueue{}
	a := New(fakeCapturer{url: "data:image/jpeg;base64,AAAA"}, ans, q, Options{WordsPerMinute: 70}, zaptest.NewLogger(t).Sugar())

	job, err := a.Solve(context.Background())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if job == nil || len(q.jobs) != 1 {
		t.Fatalf("expected one queued job, got %d", len(q.jobs))
	}
	if job.Text != "42" {
		t.Fatalf("text = %q, want trimmed answer", job.Text)
	}
	if job.Metadata[typing.MetaSource] != typing.SourceAssistant || job.Metadata[typing.MetaWPM] != "70" {
		t.Fatalf("metadata = %v", job.Metadata)
	}
	if len(ans.got) != 1 || ans.got[0] != "data:image/jpeg;base64,AAAA" {
		t.Fatalf("answerer got %v", ans.got)
	}
}

func TestSolveWithoutWPMOverride(t *testing.T) {
	q := &fakeQueue{}
	a := New(fakeCapturer{url: "u"}, &fakeAnswerer{answer: "ok"}, q, Options{}, nil)
	if _, err := a.Solve(context.Background()); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if _, ok := q.jobs[0].Metadata[typing.MetaWPM]; ok {
		t.Fatalf("wpm must not be set: %v", q.jobs[0].Metadata)
	}
}

func TestSolveEmptyAnswerIsNotQueued(t *testing.T) {
	q := &fakeQueue{}
	a := New(fakeCapturer{url: "u"}, &fakeAnswerer{answer: " \n "}, q, Options{}, zaptest.NewLogger(t).Sugar())
	job, err := a.Solve(context.Background())
	if err != nil || job != nil {
		t.Fatalf("Solve = %v, %v; want nil, nil", job, err)
	}
	if len(q.jobs) != 0 {
		t.Fatalf("queued %d jobs", len(q.jobs))
	}
}

func TestSolveErrors(t *testing.T) {
	captureErr := errors.New("no screen")
	modelErr := errors.New("rate limited")

	t.Run("capture", func(t *testing.T) {
		a := New(fakeCapturer{err: captureErr}, &fakeAnswerer{}, &fakeQueue{}, Options{}, nil)
		if _, err := a.Solve(context.Background()); !errors.Is(err, captureErr) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("model", func(t *testing.T) {
		a := New(fakeCapturer{url: "u"}, &fakeAnswerer{err: modelErr}, &fakeQueue{}, Options{}, nil)
		if _, err := a.Solve(context.Background()); !errors.Is(err, modelErr) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("timeout", func(t *testing.T) {
		ans := &fakeAnswerer{release: make(chan struct{})}
		a := New(fakeCapturer{url: "u"}, ans, &fakeQueue{}, Options{Timeout: 20 * time.Millisecond}, nil)
		_, err := a.Solve(context.Background())
		if !errors.Is(err, context.DeadlineExceeded) || !strings.Contains(err.Error(), "assistant timeout") {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestSolveSkipsOverlap(t *testing.T) {
	ans := &fakeAnswerer{answer: "first", started: make(chan struct{}), release: make(chan struct{})}
	q := &fakeQueue{}
	a := New(fakeCapturer{url: "u"}, ans, q, Options{}, zaptest.NewLogger(t).Sugar())

	done := make(chan error, 1)
	go func() {
		_, err := a.Solve(context.Background())
		done <- err
	}()
	<-ans.started

	if _, err := a.Solve(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Solve err = %v, want ErrBusy", err)
	}
	close(ans.release)
	if err := <-done; err != nil {
		t.Fatalf("first Solve: %v", err)
	}
	if len(q.jobs) != 1 {
		t.Fatalf("queued %d jobs, want 1", len(q.jobs))
	}
}

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"```go\nfunc main() {\n\treturn\n}\n```", "func main() {\n\treturn\n}"},
		{"```inline```", "inline"},
		{"a\r\nb", "a\nb"},
		{"```", "```"},
	}
	for _, tt := range tests {
		if got := cleanAnswer(tt.in); got != tt.want {
			t.Errorf("cleanAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFitWidth(t *testing.T) {
	tests := []struct {
		w, h, maxW int
		wantW      int
		wantH      int
	}{
		{3840, 1080, 1600, 1600, 450},
		{1280, 720, 1600, 1280, 720},
		{1280, 720, 0, 1280, 720},
		{5000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := fitWidth(tt.w, tt.h, tt.maxW)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("fitWidth(%d,%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, tt.maxW, w, h, tt.wantW, tt.wantH)
		}
	}
}

func solid(r image.Rectangle, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func decodeDataURL(t *testing.T, u string) image.Image {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	if !strings.HasPrefix(u, prefix) {
		t.Fatalf("unexpected data url prefix: %.40q", u)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(u, prefix))
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := jpeg.Decode(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("jpeg: %v", err)
	}
	return img
}

func TestScreenCapturerUnionAndResize(t *testing.T) {
	displays := []image.Rectangle{
		image.Rect(0, 0, 400, 300),
		image.Rect(400, 0, 800, 300),
	}
	c := NewScreenCapturer(200, 90, zaptest.NewLogger(t).Sugar())
	c.numDisplays = func() int { return len(displays) }
	c.bounds = func(i int) image.Rectangle { return displays[i] }
	c.captureRect = func(r image.Rectangle) (*image.RGBA, error) {
		if r.Min.X == 0 {
			return solid(r, color.RGBA{R: 255, A: 255}), nil
		}
		return solid(r, color.RGBA{B: 255, A: 255}), nil
	}

	u, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	img := decodeDataURL(t, u)
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 75 {
		t.Fatalf("size = %dx%d, want 200x75", b.Dx(), b.Dy())
	}
	// Слева первый монитор, справа второй
	if r, _, b, _ := img.At(20, 30).RGBA(); r < 0xc000 || b > 0x4000 {
		t.Fatalf("left pixel is not red: r=%x b=%x", r, b)
	}
	if r, _, b, _ := img.At(180, 30).RGBA(); b < 0xc000 || r > 0x4000 {
		t.Fatalf("right pixel is not blue: r=%x b=%x", r, b)
	}
}

func TestScreenCapturerFailures(t *testing.T) {
	t.Run("no displays", func(t *testing.T) {
		c := NewScreenCapturer(0, 0, nil)
		c.numDisplays = func() int { return 0 }
		if _, err := c.Capture(context.Background()); !errors.Is(err, ErrNoDisplays) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("every display fails", func(t *testing.T) {
		c := NewScreenCapturer(0, 0, zaptest.NewLogger(t).Sugar())
		c.numDisplays = func() int { return 1 }
		c.bounds = func(int) image.Rectangle { return image.Rect(0, 0, 10, 10) }
		c.captureRect = func(image.Rectangle) (*image.RGBA, error) { return nil, errors.New("denied") }
		if _, err := c.Capture(context.Background()); !errors.Is(err, ErrNoDisplays) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("negative origin", func(t *testing.T) {
		c := NewScreenCapturer(0, 0, nil)
		c.numDisplays = func() int { return 2 }
		rects := []image.Rectangle{image.Rect(-100, 0, 0, 50), image.Rect(0, 0, 100, 50)}
		c.bounds = func(i int) image.Rectangle { return rects[i] }
		c.captureRect = func(r image.Rectangle) (*image.RGBA, error) { return solid(r, color.RGBA{G: 255, A: 255}), nil }
		u, err := c.Capture(context.Background())
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}
		if b := decodeDataURL(t, u).Bounds(); b.Dx() != 200 || b.Dy() != 50 {
			t.Fatalf("size = %dx%d, want 200x50", b.Dx(), b.Dy())
		}
	})
}
