package assistant

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"math"

	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

var ErrNoDisplays = errors.New("no active displays")

const defaultQuality = 80

// ScreenCapturer снимает все мониторы одним кадром и отдаёт его как JPEG data URL.
type ScreenCapturer struct {
	maxWidth int
	quality  int
	logger   *zap.SugaredLogger

	numDisplays func() int
	bounds      func(int) image.Rectangle
	captureRect func(image.Rectangle) (*image.RGBA, error)
}

// NewScreenCapturer: maxWidth <= 0 отключает ужатие, quality вне 1..100 заменяется на 80.
func NewScreenCapturer(maxWidth, quality int, logger *zap.SugaredLogger) *ScreenCapturer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if quality < 1 || quality > 100 {
		quality = defaultQuality
	}
	return &ScreenCapturer{
		maxWidth:    maxWidth,
		quality:     quality,
		logger:      logger,
		numDisplays: screenshot.NumActiveDisplays,
		bounds:      screenshot.GetDisplayBounds,
		captureRect: screenshot.CaptureRect,
	}
}

func (s *ScreenCapturer) Capture(ctx context.Context) (string, error) {
	img, err := s.grab()
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b := img.Bounds()
	if w, h := fitWidth(b.Dx(), b.Dy(), s.maxWidth); w != b.Dx() {
		img = resizeNearest(img, w, h)
	}
	return encodeDataURL(img, s.quality)
}

func (s *ScreenCapturer) grab() (*image.RGBA, error) {
	n := s.numDisplays()
	if n <= 0 {
		return nil, ErrNoDisplays
	}

	// Объединённые границы всех мониторов
	union := s.bounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(s.bounds(i))
	}

	canvas := image.NewRGBA(union.Sub(union.Min))
	captured := 0
	for i := range n {
		b := s.bounds(i)
		img, err := s.captureRect(b)
		if err != nil {
			s.logger.Warnw("Failed to capture display", "index", i, "error", err)
			continue
		}
		dst := image.Rectangle{Min: b.Min.Sub(union.Min), Max: b.Max.Sub(union.Min)}
		draw.Draw(canvas, dst, img, img.Bounds().Min, draw.Src)
		captured++
	}
	if captured == 0 {
		return nil, ErrNoDisplays
	}
	return canvas, nil
}

// fitWidth сохраняет пропорции; ширина не больше maxWidth.
func fitWidth(w, h, maxWidth int) (int, int) {
	if maxWidth <= 0 || w <= maxWidth || w == 0 {
		return w, h
	}
	scale := float64(maxWidth) / float64(w)
	return maxWidth, max(1, int(math.Round(float64(h)*scale)))
}

func encodeDataURL(img image.Image, quality int) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// resizeNearest выполняет масштабирование изображения методом ближайшего соседа
func resizeNearest(src image.Image, width int, height int) *image.RGBA {
	if width <= 0 || height <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	srcBounds := src.Bounds()
	srcW := srcBounds.Dx()
	srcH := srcBounds.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if srcW == 0 || srcH == 0 {
		return dst
	}
	for y := range height {
		srcY := srcBounds.Min.Y + y*srcH/height
		for x := range width {
			srcX := srcBounds.Min.X + x*srcW/width
			dst.Set(x, y, src.At(srcX, srcY))
		}
	}
	return dst
}
