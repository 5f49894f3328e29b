package typing

import (
	"strconv"
	"strings"
	"sync"
)

const (
	// AverageCharsPerWord: стандартная длина «слова» для пересчёта WPM в символы.
	AverageCharsPerWord = 5
	// MinWordsPerMinute: нижняя граница скорости.
	MinWordsPerMinute = 5

	DefaultWordsPerMinute = 90
	DefaultMinBatchSize   = 2
	DefaultMaxBatchSize   = 6
)

// EngineConfig параметры темпа набора.
type EngineConfig struct {
	WordsPerMinute int
	BatchMode      bool
	MinBatchSize   int
	MaxBatchSize   int
}

// DefaultEngineConfig возвращает параметры по умолчанию.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WordsPerMinute: DefaultWordsPerMinute,
		BatchMode:      true,
		MinBatchSize:   DefaultMinBatchSize,
		MaxBatchSize:   DefaultMaxBatchSize,
	}
}

// Normalized приводит значения к допустимым границам:
// WPM >= 5, 1 <= MinBatchSize <= MaxBatchSize.
func (c EngineConfig) Normalized() EngineConfig {
	c.WordsPerMinute = max(MinWordsPerMinute, c.WordsPerMinute)
	c.MinBatchSize = max(1, c.MinBatchSize)
	c.MaxBatchSize = max(c.MinBatchSize, c.MaxBatchSize)
	return c
}

// MsPerChar: длительность одного символа в миллисекундах.
func (c EngineConfig) MsPerChar() float64 {
	wpm := max(MinWordsPerMinute, c.WordsPerMinute)
	return 60000.0 / float64(wpm*AverageCharsPerWord)
}

// forJob накладывает переопределения из метаданных задания.
// Некорректные значения молча игнорируются.
func (c EngineConfig) forJob(j *Job) EngineConfig {
	if j == nil {
		return c.Normalized()
	}
	if v, ok := j.Metadata[MetaWPM]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.WordsPerMinute = n
		}
	}
	if v, ok := j.Metadata[MetaBatch]; ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.BatchMode = b
		}
	}
	return c.Normalized()
}

// Settings: общие для процесса параметры темпа, меняются в любой момент.
// Изменение вступает в силу со следующего задания.
type Settings struct {
	mu  sync.RWMutex
	cfg EngineConfig
}

func NewSettings(cfg EngineConfig) *Settings {
	return &Settings{cfg: cfg.Normalized()}
}

// Snapshot возвращает копию текущих параметров.
func (s *Settings) Snapshot() EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetWordsPerMinute задаёт скорость (не ниже 5) и возвращает применённое значение.
func (s *Settings) SetWordsPerMinute(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.WordsPerMinute = max(MinWordsPerMinute, n)
	return s.cfg.WordsPerMinute
}

func (s *Settings) SetBatchMode(enabled bool) {
	s.mu.Lock()
	s.cfg.BatchMode = enabled
	s.mu.Unlock()
}

// SetBatchSizes задаёт границы пакета с тем же клампингом, что и Normalized.
func (s *Settings) SetBatchSizes(minSize, maxSize int) (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.MinBatchSize = minSize
	s.cfg.MaxBatchSize = maxSize
	s.cfg = s.cfg.Normalized()
	return s.cfg.MinBatchSize, s.cfg.MaxBatchSize
}
