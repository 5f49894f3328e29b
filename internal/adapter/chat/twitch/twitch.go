package twitch

import (
	"Typist/internal/service/typing"
	"context"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"go.uber.org/zap"
)

// Config хранит параметры подключения к Twitch IRC и ограничения команд.
type Config struct {
	Username     string
	OAuth        string // может быть с/без префикса oauth:
	Channel      string // без #, регистр не важен
	AllowedUsers []string
	MaxLength    int           // в символах; 0: без ограничения
	Cooldown     time.Duration // между !type одного пользователя
}

// Engine: то, чем управляют команды чата.
type Engine interface {
	EnqueueText(text string, delay time.Duration, metadata map[string]string) *typing.Job
	Pause() bool
	Resume() bool
	Stop()
}

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// Bot принимает команды из чата канала:
//
//	!type <текст>           владелец канала и пользователи из AllowedUsers
//	!pause, !resume, !stop  только владелец канала
type Bot struct {
	cfg     Config
	engine  Engine
	logger  *zap.SugaredLogger
	allowed map[string]struct{}
	now     func() time.Time
	say     func(channel, text string)

	mu         sync.Mutex
	lastByUser map[string]time.Time
}

func New(cfg Config, engine Engine, logger *zap.SugaredLogger) *Bot {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cfg.Username = strings.ToLower(strings.TrimSpace(cfg.Username))
	cfg.OAuth = strings.TrimSpace(cfg.OAuth)
	cfg.Channel = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.Channel), "#"))
	allowed := make(map[string]struct{}, len(cfg.AllowedUsers))
	for _, u := range cfg.AllowedUsers {
		if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
			allowed[u] = struct{}{}
		}
	}
	return &Bot{
		cfg:        cfg,
		engine:     engine,
		logger:     logger,
		allowed:    allowed,
		now:        time.Now,
		say:        func(string, string) {},
		lastByUser: map[string]time.Time{},
	}
}

// Run подключается к чату и обрабатывает команды до отмены ctx.
// Базовые реконнекты обеспечиваются клиентом.
func (b *Bot) Run(ctx context.Context) error {
	token := b.cfg.OAuth
	if b.cfg.Username == "" || token == "" || b.cfg.Channel == "" {
		b.logger.Warnw("Twitch chat not configured: missing env", "username", b.cfg.Username != "", "token", token != "", "channel", b.cfg.Channel != "")
		return nil
	}
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}

	client := twitchirc.NewClient(b.cfg.Username, token)
	b.say = client.Say

	client.OnConnect(func() {
		b.logger.Infow("Twitch connected", "as", b.cfg.Username, "join", b.cfg.Channel)
		client.Join(b.cfg.Channel)
	})
	client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		b.handle(message{
			channel:     msg.Channel,
			user:        msg.User.Name,
			broadcaster: msg.User.Badges["broadcaster"] > 0,
			text:        msg.Message,
		})
	})

	errCh := make(chan error, 1)
	go func() { errCh <- client.Connect() }()

	select {
	case <-ctx.Done():
		_ = client.Disconnect()
		// Подождём чуть-чуть корректного завершения
		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
		}
		return context.Canceled
	case err := <-errCh:
		if err != nil {
			b.logger.Errorw("twitch connect error", "error", err)
		}
		return err
	}
}

type message struct {
	channel     string
	user        string
	broadcaster bool
	text        string
}

type command struct {
	name string
	arg  string
}

// parseCommand разбирает «!name аргумент». Имя приводится к нижнему регистру.
func parseCommand(text string) (command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "!") {
		return command{}, false
	}
	name, arg, _ := strings.Cut(text[1:], " ")
	name = strings.ToLower(name)
	switch name {
	case "type", "pause", "resume", "stop":
		return command{name: name, arg: strings.TrimSpace(arg)}, true
	}
	return command{}, false
}

func (b *Bot) handle(msg message) {
	user := strings.ToLower(strings.TrimSpace(msg.user))
	if user == "" {
		return
	}
	cmd, ok := parseCommand(msg.text)
	if !ok {
		return
	}
	owner := msg.broadcaster || user == b.cfg.Channel

	switch cmd.name {
	case "pause", "resume", "stop":
		if !owner {
			b.logger.Debugw("Twitch command denied", "user", user, "command", cmd.name)
			return
		}
		b.control(cmd.name, user)
	case "type":
		if _, ok := b.allowed[user]; !ok && !owner {
			b.logger.Debugw("Twitch command denied", "user", user, "command", cmd.name)
			return
		}
		b.enqueue(msg.channel, user, cmd.arg)
	}
}

func (b *Bot) control(name, user string) {
	switch name {
	case "pause":
		b.logger.Infow("Twitch pause", "user", user, "changed", b.engine.Pause())
	case "resume":
		b.logger.Infow("Twitch resume", "user", user, "changed", b.engine.Resume())
	case "stop":
		b.engine.Stop()
		b.logger.Infow("Twitch stop", "user", user)
	}
}

func (b *Bot) enqueue(channel, user, text string) {
	// Ссылки из чата не набираем
	text = strings.TrimSpace(urlRe.ReplaceAllString(text, ""))
	if text == "" {
		return
	}
	if b.cfg.MaxLength > 0 && len([]rune(text)) > b.cfg.MaxLength {
		b.logger.Infow("Twitch text too long", "user", user, "chars", len([]rune(text)), "max", b.cfg.MaxLength)
		b.say(channel, "@"+user+" слишком длинный текст")
		return
	}
	if !b.allow(user) {
		b.logger.Debugw("Twitch cooldown", "user", user)
		return
	}

	job := b.engine.EnqueueText(text, 0, map[string]string{
		typing.MetaSource: typing.SourceTwitch,
		"user":            user,
	})
	b.logger.Infow("Twitch text queued", "user", user, "jobId", job.ID)
}

// allow ограничивает частоту: не чаще одного !type за Cooldown от пользователя.
func (b *Bot) allow(user string) bool {
	if b.cfg.Cooldown <= 0 {
		return true
	}
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if last, ok := b.lastByUser[user]; ok && now.Sub(last) < b.cfg.Cooldown {
		return false
	}
	b.lastByUser[user] = now
	// Чистим устаревшие записи, чтобы карта не росла бесконечно
	if len(b.lastByUser) > 1024 {
		for u, at := range b.lastByUser {
			if now.Sub(at) >= b.cfg.Cooldown {
				delete(b.lastByUser, u)
			}
		}
	}
	return true
}

// AllowedUsers возвращает нормализованный список допущенных пользователей.
func (b *Bot) AllowedUsers() []string {
	out := make([]string, 0, len(b.allowed))
	for u := range b.allowed {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}
