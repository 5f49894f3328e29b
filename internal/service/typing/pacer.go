package typing

import (
	"iter"
	"time"
)

// Control: управляющая клавиша вместо литерального текста.
type Control int

const (
	ControlNone Control = iota
	ControlEnter
	ControlTab
)

func (c Control) String() string {
	switch c {
	case ControlEnter:
		return "ENTER"
	case ControlTab:
		return "TAB"
	default:
		return ""
	}
}

// Instruction: одна команда для инжектора и пауза после неё.
type Instruction struct {
	Text    string  // литеральный пакет; пусто для управляющей клавиши
	Control Control // ControlNone для текста
	Delay   time.Duration
}

func (i Instruction) IsControl() bool { return i.Control != ControlNone }

// Payload возвращает то, что уходит в инжектор: текст пакета или имя клавиши.
func (i Instruction) Payload() string {
	if i.IsControl() {
		return i.Control.String()
	}
	return i.Text
}

// Rand: источник случайности для джиттера и ранних сбросов пакета.
// *math/rand/v2.Rand подходит напрямую.
type Rand interface {
	Float64() float64
}

const (
	enterSettle      = 80 * time.Millisecond
	tabSettle        = 40 * time.Millisecond
	sentencePause    = 260 * time.Millisecond
	typingSpeedup    = 0.85 // чуть быстрее номинала
	jitterRatio      = 0.08
	earlyFlushChance = 0.12
)

// Pace превращает текст в ленивую последовательность инструкций набора.
// Последовательность конечна, ввода-вывода не делает и не хранит состояние
// между вызовами; повторный обход начинает текст заново.
func Pace(text string, cfg EngineConfig, rnd Rand) iter.Seq[Instruction] {
	cfg = cfg.Normalized()
	p := pacer{cfg: cfg, msPerChar: cfg.MsPerChar(), rnd: rnd}
	return func(yield func(Instruction) bool) {
		if cfg.BatchMode {
			p.batched(text, yield)
			return
		}
		p.single(text, yield)
	}
}

type pacer struct {
	cfg       EngineConfig
	msPerChar float64
	rnd       Rand
}

// wait считает паузу после пакета из n символов: base + U[0, base*0.08) + extra.
func (p pacer) wait(n int, extra time.Duration) time.Duration {
	base := p.msPerChar * float64(n) * typingSpeedup
	jitter := p.rnd.Float64() * base * jitterRatio
	return time.Duration((base+jitter)*float64(time.Millisecond)) + extra
}

func (p pacer) batched(text string, yield func(Instruction) bool) {
	buf := make([]rune, 0, p.cfg.MaxBatchSize)
	flush := func(extra time.Duration) bool {
		if len(buf) == 0 {
			return true
		}
		ins := Instruction{Text: string(buf), Delay: p.wait(len(buf), extra)}
		buf = buf[:0]
		return yield(ins)
	}

	for _, r := range text {
		if ctrl, settle, ok := controlFor(r); ok {
			if !flush(0) || !yield(Instruction{Control: ctrl, Delay: settle}) {
				return
			}
			continue
		}

		buf = append(buf, r)
		if isTerminal(r) || len(buf) >= p.cfg.MaxBatchSize {
			var extra time.Duration
			if isSentenceEnd(r) {
				extra = sentencePause
			}
			if !flush(extra) {
				return
			}
			continue
		}
		// Нерегулярные границы пакетов, как у живого человека
		if len(buf) >= p.cfg.MinBatchSize && p.rnd.Float64() < earlyFlushChance {
			if !flush(0) {
				return
			}
		}
	}
	flush(0)
}

func (p pacer) single(text string, yield func(Instruction) bool) {
	for _, r := range text {
		var ins Instruction
		if ctrl, settle, ok := controlFor(r); ok {
			ins = Instruction{Control: ctrl, Delay: settle}
		} else {
			ins = Instruction{Text: string(r), Delay: p.wait(1, 0)}
		}
		if !yield(ins) {
			return
		}
	}
}

func controlFor(r rune) (Control, time.Duration, bool) {
	switch r {
	case '\n':
		return ControlEnter, enterSettle, true
	case '\t':
		return ControlTab, tabSettle, true
	}
	return ControlNone, 0, false
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', ',', ';', ':':
		return true
	}
	return false
}

func isSentenceEnd(r rune) bool { return r == '.' || r == '!' || r == '?' }
