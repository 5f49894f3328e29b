package notify

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedFormat: формат, который плеер не умеет декодировать.
var ErrUnsupportedFormat = errors.New("notify: unsupported audio format, use mp3 or wav")

// Player воспроизводит короткий звук целиком и возвращает управление после конца.
type Player interface {
	Play(format string, r io.ReadCloser) error
}

// speakerRate: частота, на которой один раз инициализируется динамик;
// файлы с другой частотой пересэмплируются.
const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// BeepPlayer играет mp3 и wav через faiface/beep с заданной громкостью в dB.
type BeepPlayer struct{ volumeDB float64 }

func NewPlayer(volumeDB float64) *BeepPlayer { return &BeepPlayer{volumeDB: volumeDB} }

func (p *BeepPlayer) Play(format string, r io.ReadCloser) error {
	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
		err      error
	)
	switch strings.ToLower(format) {
	case "wav":
		streamer, f, err = wav.Decode(r)
	case "mp3":
		streamer, f, err = mp3.Decode(r)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", format, err)
	}
	defer streamer.Close()

	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if speakerErr != nil {
		return fmt.Errorf("init speaker: %w", speakerErr)
	}

	var s beep.Streamer = streamer
	if f.SampleRate != speakerRate {
		s = beep.Resample(4, f.SampleRate, speakerRate, s)
	}
	vol := &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   p.volumeDB,
		Silent:   false,
	}
	done := make(chan struct{})
	speaker.Play(beep.Seq(vol, beep.Callback(func() { close(done) })))
	<-done
	return nil
}
