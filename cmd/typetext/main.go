// typetext набирает текст в активное окно один раз и выходит.
//
//	typetext -file notes.txt
//	typetext -text "hello"
//	echo hello | typetext
package main

import (
	"Typist/internal/config"
	"Typist/internal/service/inject"
	"Typist/internal/service/typing"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	fs := flag.NewFlagSet("typetext", flag.ExitOnError)
	file := fs.String("file", "", "файл с текстом")
	text := fs.String("text", "", "текст для набора")
	cfg, err := config.Load(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	input, err := readInput(*file, *text, fs.Args(), os.Stdin)
	if err != nil {
		sugar.Errorw("Failed to read input", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := typeOnce(ctx, cfg, input, sugar); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("Typing failed", "error", err)
		os.Exit(1)
	}
}

// readInput: -file, затем -text, затем позиционные аргументы, иначе stdin.
func readInput(file, text string, args []string, stdin io.Reader) (string, error) {
	var s string
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		s = string(b)
	case text != "":
		s = text
	case len(args) > 0:
		s = strings.Join(args, " ")
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		s = string(b)
	}
	// Переводы строк из Windows-файлов не должны давать двойной ENTER
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if strings.TrimSpace(s) == "" {
		return "", errors.New("nothing to type")
	}
	return s, nil
}

func typeOnce(ctx context.Context, cfg *config.Config, text string, logger *zap.SugaredLogger) error {
	injector, err := inject.New(cfg.Typing.Injector, logger)
	if err != nil {
		return err
	}
	opts := typing.Options{
		Settings: typing.NewSettings(typing.EngineConfig{
			WordsPerMinute: cfg.Typing.WordsPerMinute,
			BatchMode:      cfg.Typing.BatchMode,
			MinBatchSize:   cfg.Typing.MinBatchSize,
			MaxBatchSize:   cfg.Typing.MaxBatchSize,
		}),
		DispatchTimeout: cfg.Typing.DispatchTimeout,
		Logger:          logger,
	}
	if cfg.Typing.Seed != 0 {
		opts.Rand = rand.New(rand.NewPCG(cfg.Typing.Seed, cfg.Typing.Seed))
	}
	engine := typing.New(injector, opts)
	engine.Subscribe(typing.LogListener(logger))

	if cfg.Typing.StartDelay > 0 {
		logger.Infow("Switch to the target window", "startIn", cfg.Typing.StartDelay.String())
		select {
		case <-ctx.Done():
			return context.Cause(ctx)
		case <-time.After(cfg.Typing.StartDelay):
		}
	}

	return runUntilDone(ctx, engine, text)
}

type runner interface {
	Subscribe(fn typing.Listener) func()
	EnqueueText(text string, delay time.Duration, metadata map[string]string) *typing.Job
	Run(ctx context.Context) error
}

// runUntilDone ставит одно задание и ждёт его завершения.
func runUntilDone(ctx context.Context, engine runner, text string) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// jobID пишется до запуска раннера, события done/error приходят из него
	var jobID string
	finished := make(chan error, 1)
	unsubscribe := engine.Subscribe(func(ev typing.Event) {
		if ev.Job == nil || ev.Job.ID != jobID {
			return
		}
		var err error
		switch ev.Type {
		case typing.EventJobDone:
		case typing.EventJobError:
			err = ev.Err
		default:
			return
		}
		select {
		case finished <- err:
		default:
		}
	})
	defer unsubscribe()

	job := engine.EnqueueText(text, 0, map[string]string{typing.MetaSource: typing.SourceTest})
	if job == nil {
		return nil
	}
	jobID = job.ID

	runErr := make(chan error, 1)
	go func() { runErr <- engine.Run(ctx) }()

	select {
	case err := <-finished:
		cancel(nil)
		<-runErr
		return err
	case err := <-runErr:
		return err
	}
}
