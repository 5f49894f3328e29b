package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` // Режим дебага: подробный лог
	LogJSON   bool `env:"LOG_JSON"`   // Лог в JSON (production-логгер), иначе консольный

	Typing    TypingConfig
	Hotkeys   HotkeysConfig
	Assistant AssistantConfig
	Twitch    TwitchConfig
	Control   ControlServerConfig
	Notify    NotifyConfig
}

// TypingConfig: скорость и механизм набора.
type TypingConfig struct {
	WordsPerMinute  int           `env:"TYPING_WPM"`              // Скорость, слов в минуту (не ниже 5)
	BatchMode       bool          `env:"TYPING_BATCH_MODE"`       // Набор пакетами по несколько символов
	MinBatchSize    int           `env:"TYPING_MIN_BATCH"`        // Минимальный размер пакета для раннего сброса
	MaxBatchSize    int           `env:"TYPING_MAX_BATCH"`        // Максимальный размер пакета
	Injector        string        `env:"TYPING_INJECTOR"`         // auto|native|shell|paste|log
	DispatchTimeout time.Duration `env:"TYPING_DISPATCH_TIMEOUT"` // Потолок одного вызова инжектора
	Seed            uint64        `env:"TYPING_SEED"`             // Зерно генератора пауз; 0: случайное
	StartDelay      time.Duration `env:"TYPING_START_DELAY"`      // Пауза перед набором в typetext, чтобы успеть переключить окно
}

// HotkeysConfig: глобальные сочетания клавиш (только Windows). Пустая строка отключает действие.
type HotkeysConfig struct {
	Enabled       bool          `env:"HOTKEYS_ENABLED"`
	TypeClipboard string        `env:"HOTKEY_TYPE_CLIPBOARD"`
	TogglePause   string        `env:"HOTKEY_TOGGLE_PAUSE"`
	Stop          string        `env:"HOTKEY_STOP"`
	Assist        string        `env:"HOTKEY_ASSIST"`
	Debounce      time.Duration `env:"HOTKEY_DEBOUNCE"`
}

// AssistantConfig: снимок экрана → модель → набор ответа.
type AssistantConfig struct {
	Enabled        bool          `env:"ASSISTANT_ENABLED"`
	Model          string        `env:"ASSISTANT_MODEL"`        // Модель OpenAI с поддержкой изображений
	Prompt         string        `env:"ASSISTANT_PROMPT"`       // Системные инструкции
	Question       string        `env:"ASSISTANT_QUESTION"`     // Текст пользовательского запроса к скриншоту
	Timeout        time.Duration `env:"ASSISTANT_TIMEOUT"`      // Таймаут одного запроса
	MaxWidth       int           `env:"ASSISTANT_MAX_WIDTH"`    // Ширина, до которой ужимается скриншот; 0: без ужатия
	JPEGQuality    int           `env:"ASSISTANT_JPEG_QUALITY"` // 1..100
	WordsPerMinute int           `env:"ASSISTANT_WPM"`          // Скорость набора ответа; 0: общая
}

// TwitchConfig: команды набора из чата.
type TwitchConfig struct {
	Enabled      bool          `env:"TWITCH_ENABLED"`
	Username     string        `env:"TWITCH_USERNAME"`                       // Логин бота
	OAuthToken   string        `env:"TWITCH_OAUTH_TOKEN"`                    // Может быть без префикса oauth:
	Channel      string        `env:"TWITCH_CHANNEL"`                        // Канал, без #
	AllowedUsers []string      `env:"TWITCH_ALLOWED_USERS" envSeparator:";"` // Кому можно !type, кроме владельца канала
	MaxLength    int           `env:"TWITCH_MAX_LENGTH"`                     // Максимальная длина текста в символах
	Cooldown     time.Duration `env:"TWITCH_COOLDOWN"`                       // Антиспам на одного пользователя
}

// ControlServerConfig: локальный HTTP/WebSocket сервер управления.
type ControlServerConfig struct {
	Enabled   bool   `env:"CONTROL_ENABLED"`
	BindAddr  string `env:"CONTROL_BIND_ADDR"`  // напр. 127.0.0.1:7700
	AuthToken string `env:"CONTROL_AUTH_TOKEN"` // Bearer-токен (опционально)
}

// NotifyConfig: звуки и всплывающие уведомления.
type NotifyConfig struct {
	SoundEnabled   bool    `env:"NOTIFY_SOUND_ENABLED"`
	SoundDonePath  string  `env:"NOTIFY_SOUND_DONE_PATH"` // mp3 или wav
	SoundIdlePath  string  `env:"NOTIFY_SOUND_IDLE_PATH"`
	VolumeDB       float64 `env:"NOTIFY_VOLUME_DB"` // Отрицательные: тише
	DesktopEnabled bool    `env:"NOTIFY_DESKTOP_ENABLED"`
}

var injectorKinds = []string{"auto", "native", "shell", "paste", "log"}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		Typing: TypingConfig{
			WordsPerMinute:  90,
			BatchMode:       true,
			MinBatchSize:    2,
			MaxBatchSize:    6,
			Injector:        "auto",
			DispatchTimeout: 5 * time.Second,
			StartDelay:      3 * time.Second,
		},
		Hotkeys: HotkeysConfig{
			Enabled:       true,
			TypeClipboard: "ctrl+alt+v",
			TogglePause:   "ctrl+alt+p",
			Stop:          "ctrl+alt+s",
			Assist:        "ctrl+alt+a",
			Debounce:      300 * time.Millisecond,
		},
		Assistant: AssistantConfig{
			Enabled:     false,
			Model:       "gpt-4o",
			Prompt:      "Ты помощник, который отвечает на вопрос или решает задачу с экрана. Отвечай только готовым текстом без пояснений и markdown.",
			Question:    "Реши задачу на скриншоте.",
			Timeout:     60 * time.Second,
			MaxWidth:    1600,
			JPEGQuality: 80,
		},
		Twitch: TwitchConfig{
			MaxLength: 500,
			Cooldown:  10 * time.Second,
		},
		Control: ControlServerConfig{
			Enabled:  false,
			BindAddr: "127.0.0.1:7700",
		},
		Notify: NotifyConfig{
			SoundEnabled:   true,
			DesktopEnabled: true,
		},
	}
}

// Load собирает конфигурацию: дефолты → .env → окружение → флаги fs → Validate.
// Вызывающий может заранее зарегистрировать в fs свои флаги.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Список разрешённых пользователей принимаем одной строкой, разделённой ';'
	allowedFlag := strings.Join(cfg.Twitch.AllowedUsers, ";")
	cfg.registerFlags(fs, &allowedFlag)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Twitch.AllowedUsers = parseListFlag(allowedFlag, nil)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfig загружает конфигурацию приложения из аргументов командной строки.
func NewConfig() *Config {
	cfg, err := Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}

func (cfg *Config) registerFlags(fs *flag.FlagSet, allowedUsers *string) {
	fs.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага (подробный лог)")
	fs.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "писать лог в JSON")
	// Набор
	fs.IntVar(&cfg.Typing.WordsPerMinute, "wpm", cfg.Typing.WordsPerMinute, "скорость набора, слов в минуту (минимум 5)")
	fs.BoolVar(&cfg.Typing.BatchMode, "batch-mode", cfg.Typing.BatchMode, "набирать пакетами по несколько символов")
	fs.IntVar(&cfg.Typing.MinBatchSize, "min-batch", cfg.Typing.MinBatchSize, "минимальный размер пакета")
	fs.IntVar(&cfg.Typing.MaxBatchSize, "max-batch", cfg.Typing.MaxBatchSize, "максимальный размер пакета")
	fs.StringVar(&cfg.Typing.Injector, "injector", cfg.Typing.Injector, "механизм ввода: auto|native|shell|paste|log")
	fs.DurationVar(&cfg.Typing.DispatchTimeout, "dispatch-timeout", cfg.Typing.DispatchTimeout, "потолок одного вызова инжектора, напр. 5s")
	fs.Uint64Var(&cfg.Typing.Seed, "seed", cfg.Typing.Seed, "зерно генератора пауз (0: случайное)")
	fs.DurationVar(&cfg.Typing.StartDelay, "start-delay", cfg.Typing.StartDelay, "пауза перед набором, напр. 3s")
	// Хоткеи
	fs.BoolVar(&cfg.Hotkeys.Enabled, "hotkeys-enabled", cfg.Hotkeys.Enabled, "включить глобальные хоткеи")
	fs.StringVar(&cfg.Hotkeys.TypeClipboard, "hotkey-type-clipboard", cfg.Hotkeys.TypeClipboard, "хоткей набора буфера обмена, напр. ctrl+alt+v")
	fs.StringVar(&cfg.Hotkeys.TogglePause, "hotkey-toggle-pause", cfg.Hotkeys.TogglePause, "хоткей паузы/продолжения")
	fs.StringVar(&cfg.Hotkeys.Stop, "hotkey-stop", cfg.Hotkeys.Stop, "хоткей остановки и очистки очереди")
	fs.StringVar(&cfg.Hotkeys.Assist, "hotkey-assist", cfg.Hotkeys.Assist, "хоткей ассистента по скриншоту")
	fs.DurationVar(&cfg.Hotkeys.Debounce, "hotkey-debounce", cfg.Hotkeys.Debounce, "окно подавления повторов хоткея")
	// Ассистент
	fs.BoolVar(&cfg.Assistant.Enabled, "assistant-enabled", cfg.Assistant.Enabled, "включить ассистента по скриншоту (нужен OPENAI_API_KEY)")
	fs.StringVar(&cfg.Assistant.Model, "assistant-model", cfg.Assistant.Model, "модель OpenAI")
	fs.StringVar(&cfg.Assistant.Prompt, "assistant-prompt", cfg.Assistant.Prompt, "системные инструкции ассистента")
	fs.StringVar(&cfg.Assistant.Question, "assistant-question", cfg.Assistant.Question, "запрос к скриншоту")
	fs.DurationVar(&cfg.Assistant.Timeout, "assistant-timeout", cfg.Assistant.Timeout, "таймаут запроса к модели")
	fs.IntVar(&cfg.Assistant.MaxWidth, "assistant-max-width", cfg.Assistant.MaxWidth, "максимальная ширина скриншота, px")
	fs.IntVar(&cfg.Assistant.JPEGQuality, "assistant-jpeg-quality", cfg.Assistant.JPEGQuality, "качество JPEG 1..100")
	fs.IntVar(&cfg.Assistant.WordsPerMinute, "assistant-wpm", cfg.Assistant.WordsPerMinute, "скорость набора ответа (0: общая)")
	// Twitch
	fs.BoolVar(&cfg.Twitch.Enabled, "twitch-enabled", cfg.Twitch.Enabled, "принимать команды !type из чата Twitch")
	fs.StringVar(&cfg.Twitch.Username, "twitch-username", cfg.Twitch.Username, "логин Twitch для подключения к чату")
	fs.StringVar(&cfg.Twitch.OAuthToken, "twitch-oauth-token", cfg.Twitch.OAuthToken, "OAuth токен Twitch (может быть без префикса oauth:)")
	fs.StringVar(&cfg.Twitch.Channel, "twitch-channel", cfg.Twitch.Channel, "канал Twitch (без #)")
	fs.StringVar(allowedUsers, "twitch-allowed-users", *allowedUsers, "пользователи, которым разрешён !type, через ';'")
	fs.IntVar(&cfg.Twitch.MaxLength, "twitch-max-length", cfg.Twitch.MaxLength, "максимальная длина текста из чата")
	fs.DurationVar(&cfg.Twitch.Cooldown, "twitch-cooldown", cfg.Twitch.Cooldown, "антиспам на пользователя")
	// Сервер управления
	fs.BoolVar(&cfg.Control.Enabled, "control-enabled", cfg.Control.Enabled, "включить HTTP/WebSocket сервер управления")
	fs.StringVar(&cfg.Control.BindAddr, "control-bind-addr", cfg.Control.BindAddr, "адрес сервера управления")
	fs.StringVar(&cfg.Control.AuthToken, "control-auth-token", cfg.Control.AuthToken, "Bearer-токен сервера управления (опционально)")
	// Уведомления
	fs.BoolVar(&cfg.Notify.SoundEnabled, "sound-enabled", cfg.Notify.SoundEnabled, "звук по завершении заданий")
	fs.StringVar(&cfg.Notify.SoundDonePath, "sound-done-path", cfg.Notify.SoundDonePath, "звук завершения задания (mp3 или wav)")
	fs.StringVar(&cfg.Notify.SoundIdlePath, "sound-idle-path", cfg.Notify.SoundIdlePath, "звук опустевшей очереди (mp3 или wav)")
	fs.Float64Var(&cfg.Notify.VolumeDB, "sound-volume-db", cfg.Notify.VolumeDB, "громкость уведомлений, dB")
	fs.BoolVar(&cfg.Notify.DesktopEnabled, "desktop-notify", cfg.Notify.DesktopEnabled, "всплывающее уведомление при ошибке набора")
}

// Validate приводит числовые параметры к допустимым границам и проверяет обязательные поля.
func (cfg *Config) Validate() error {
	t := &cfg.Typing
	t.WordsPerMinute = max(5, t.WordsPerMinute)
	t.MinBatchSize = max(1, t.MinBatchSize)
	t.MaxBatchSize = max(t.MinBatchSize, t.MaxBatchSize)
	if t.DispatchTimeout <= 0 {
		t.DispatchTimeout = 5 * time.Second
	}
	t.StartDelay = max(0, t.StartDelay)
	t.Injector = strings.ToLower(strings.TrimSpace(t.Injector))
	if t.Injector == "" {
		t.Injector = "auto"
	}
	if !contains(injectorKinds, t.Injector) {
		return fmt.Errorf("config: unknown injector %q, want one of %s", t.Injector, strings.Join(injectorKinds, "|"))
	}

	cfg.Hotkeys.Debounce = max(0, cfg.Hotkeys.Debounce)

	a := &cfg.Assistant
	a.MaxWidth = max(0, a.MaxWidth)
	a.JPEGQuality = min(100, max(1, a.JPEGQuality))
	a.WordsPerMinute = max(0, a.WordsPerMinute)
	if a.Timeout <= 0 {
		a.Timeout = 60 * time.Second
	}
	if a.Enabled && strings.TrimSpace(a.Model) == "" {
		return errors.New("config: assistant enabled without a model")
	}

	tw := &cfg.Twitch
	tw.Channel = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tw.Channel)), "#")
	tw.MaxLength = max(1, tw.MaxLength)
	tw.Cooldown = max(0, tw.Cooldown)
	if tw.Enabled && (tw.Username == "" || tw.OAuthToken == "" || tw.Channel == "") {
		return errors.New("config: twitch enabled but username, oauth token or channel is empty")
	}

	if cfg.Control.Enabled && strings.TrimSpace(cfg.Control.BindAddr) == "" {
		cfg.Control.BindAddr = "127.0.0.1:7700"
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// parseListFlag разбирает значение флага со списком, разделённым ';'
func parseListFlag(v string, def []string) []string {
	// Пустая строка → дефолт
	if v == "" {
		return def
	}
	parts := strings.Split(v, ";")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return def
	}
	return cleaned
}
