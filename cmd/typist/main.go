package main

import (
	"Typist/internal/adapter/chat/twitch"
	"Typist/internal/app/assistant"
	"Typist/internal/app/router"
	"Typist/internal/config"
	"Typist/internal/service/clipboard"
	"Typist/internal/service/control"
	"Typist/internal/service/hotkey"
	"Typist/internal/service/inject"
	"Typist/internal/service/notify"
	"Typist/internal/service/typing"
	"Typist/internal/service/window"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	sugar.Infow(
		"Starting app",
		"DebugMode", cfg.DebugMode,
		"injector", cfg.Typing.Injector,
		"wpm", cfg.Typing.WordsPerMinute,
		"batchMode", cfg.Typing.BatchMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	injector, err := inject.New(cfg.Typing.Injector, sugar)
	if err != nil {
		sugar.Errorw("Failed to create injector", "kind", cfg.Typing.Injector, "error", err)
		os.Exit(1)
	}

	engine := typing.New(injector, typing.Options{
		Settings:        typing.NewSettings(engineConfig(cfg.Typing)),
		Rand:            newRand(cfg.Typing.Seed),
		Clipboard:       clipboard.New(),
		Windows:         window.New(sugar),
		DispatchTimeout: cfg.Typing.DispatchTimeout,
		Logger:          sugar,
	})
	engine.Subscribe(typing.LogListener(sugar))
	subscribeNotify(ctx, cfg.Notify, engine, sugar)

	var wg sync.WaitGroup
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				sugar.Errorw("Component stopped with error", "component", name, "error", err)
			}
		}()
	}

	goRun("engine", engine.Run)

	var solver router.Solver
	if cfg.Assistant.Enabled {
		// Ключ берётся из OPENAI_API_KEY
		oClient := openai.NewClient()
		solver = assistant.New(
			assistant.NewScreenCapturer(cfg.Assistant.MaxWidth, cfg.Assistant.JPEGQuality, sugar),
			assistant.NewOpenAIAnswerer(&oClient, cfg.Assistant.Model, cfg.Assistant.Prompt, cfg.Assistant.Question),
			engine,
			assistant.Options{Timeout: cfg.Assistant.Timeout, WordsPerMinute: cfg.Assistant.WordsPerMinute},
			sugar,
		)
		sugar.Infow("Assistant enabled", "model", cfg.Assistant.Model)
	}

	if cfg.Hotkeys.Enabled {
		bindings, err := hotkey.ParseBindings(map[hotkey.Action]string{
			hotkey.ActionTypeClipboard: cfg.Hotkeys.TypeClipboard,
			hotkey.ActionTogglePause:   cfg.Hotkeys.TogglePause,
			hotkey.ActionStop:          cfg.Hotkeys.Stop,
			hotkey.ActionAssist:        cfg.Hotkeys.Assist,
		})
		if err != nil {
			sugar.Errorw("Invalid hotkey bindings", "error", err)
			os.Exit(1)
		}
		keys := hotkey.New(hotkey.Config{Bindings: bindings, Debounce: cfg.Hotkeys.Debounce}, sugar)
		goRun("hotkeys", func(ctx context.Context) error {
			err := keys.Run(ctx)
			if errors.Is(err, hotkey.ErrUnsupportedPlatform) {
				sugar.Warnw("Global hotkeys are not available on this platform")
				return nil
			}
			return err
		})
		rt := router.New(engine, solver, sugar)
		goRun("router", func(ctx context.Context) error { return rt.Run(ctx, keys.Events()) })
	}

	if cfg.Twitch.Enabled {
		bot := twitch.New(twitch.Config{
			Username:     cfg.Twitch.Username,
			OAuth:        cfg.Twitch.OAuthToken,
			Channel:      cfg.Twitch.Channel,
			AllowedUsers: cfg.Twitch.AllowedUsers,
			MaxLength:    cfg.Twitch.MaxLength,
			Cooldown:     cfg.Twitch.Cooldown,
		}, engine, sugar)
		sugar.Infow("Twitch commands enabled", "channel", cfg.Twitch.Channel, "allowed", bot.AllowedUsers())
		goRun("twitch", bot.Run)
	}

	var srv *control.Server
	if cfg.Control.Enabled {
		srv = control.NewServer(cfg.Control, engine, sugar)
		if err := srv.Start(ctx); err != nil {
			sugar.Errorw("Failed to start control server", "error", err)
			srv = nil
		}
	}

	<-ctx.Done()
	sugar.Infow("Shutting down", "pending", engine.Pending())
	engine.Stop()
	if srv != nil {
		if err := srv.Stop(context.WithoutCancel(ctx)); err != nil {
			sugar.Warnw("Control server stop error", "error", err)
		}
	}
	wg.Wait()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogJSON {
		zcfg := zap.NewProductionConfig()
		if cfg.DebugMode {
			zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		}
		return zcfg.Build()
	}
	zcfg := zap.NewDevelopmentConfig()
	if !cfg.DebugMode {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zcfg.Build()
}

func engineConfig(c config.TypingConfig) typing.EngineConfig {
	return typing.EngineConfig{
		WordsPerMinute: c.WordsPerMinute,
		BatchMode:      c.BatchMode,
		MinBatchSize:   c.MinBatchSize,
		MaxBatchSize:   c.MaxBatchSize,
	}
}

// newRand: ненулевое зерно даёт воспроизводимые паузы.
func newRand(seed uint64) typing.Rand {
	if seed == 0 {
		return nil
	}
	return rand.New(rand.NewPCG(seed, seed))
}

func subscribeNotify(ctx context.Context, cfg config.NotifyConfig, engine *typing.Engine, logger *zap.SugaredLogger) {
	var sounds notify.Sounds
	if cfg.SoundEnabled {
		sounds = notify.NewSoundNotifier(logger, notify.NewPlayer(cfg.VolumeDB), cfg.SoundDonePath, cfg.SoundIdlePath)
	}
	var toaster notify.Toaster
	if cfg.DesktopEnabled {
		toaster = notify.NewDesktopNotifier("", "", logger)
	}
	if sounds == nil && toaster == nil {
		return
	}
	engine.Subscribe(notify.Listener(ctx, sounds, toaster, logger))
}
