// Package control: локальный HTTP/WebSocket сервер управления набором.
package control

import (
	"Typist/internal/config"
	"Typist/internal/service/typing"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxBodyBytes = 1 << 20
	// maxDelay: потолок delayMs
	maxDelay = 24 * time.Hour
)

var errBadDelay = fmt.Errorf("delayMs must be an integer between 0 and %d", maxDelay.Milliseconds())

// Engine: операции движка, доступные снаружи. *typing.Engine подходит напрямую.
type Engine interface {
	EnqueueText(text string, delay time.Duration, metadata map[string]string) *typing.Job
	TypeClipboard(ctx context.Context, delay time.Duration) (bool, error)
	Pause() bool
	Resume() bool
	Stop()
	State() typing.State
	Pending() int
	Current() *typing.Job
	Settings() *typing.Settings
	Subscribe(fn typing.Listener) func()
}

var _ Engine = (*typing.Engine)(nil)

type Server struct {
	cfg      config.ControlServerConfig
	engine   Engine
	hub      *Hub
	srv      *http.Server
	logger   *zap.SugaredLogger
	upgrader websocket.Upgrader
	running  atomic.Bool

	mu          sync.Mutex
	hubCtx      context.Context
	stopHub     context.CancelFunc
	unsubscribe func()
}

func NewServer(cfg config.ControlServerConfig, engine Engine, logger *zap.SugaredLogger) *Server {
	if cfg.BindAddr == "" {
		cfg.BindAddr = "127.0.0.1:7700"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{cfg: cfg, engine: engine, hub: NewHub(logger), logger: logger}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     localOrigin,
	}
	s.srv = &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler возвращает маршруты сервера.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /type", s.handleType)
	mux.HandleFunc("POST /clipboard", s.handleClipboard)
	mux.HandleFunc("POST /pause", s.handlePause)
	mux.HandleFunc("POST /resume", s.handleResume)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("POST /settings", s.handleSetSettings)
	mux.HandleFunc("GET /events", s.handleEvents)
	return s.auth(mux)
}

// Start слушает адрес и обслуживает запросы в отдельной горутине.
// Ошибка привязки к адресу возвращается сразу.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.cfg.BindAddr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("control server listen %s: %w", s.cfg.BindAddr, err)
	}
	s.attach(ctx)

	go func() {
		s.logger.Infow("Control server listening", "addr", ln.Addr().String(), "auth", s.cfg.AuthToken != "")
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Control server stopped with error", "error", err)
		} else {
			s.logger.Infow("Control server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

// attach запускает хаб и подписывает его на события движка.
func (s *Server) attach(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hubCtx, s.stopHub = context.WithCancel(ctx)
	go s.hub.Run(s.hubCtx)
	s.unsubscribe = s.engine.Subscribe(s.hub.Listener())
}

func (s *Server) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.stopHub != nil {
		s.stopHub()
		s.stopHub = nil
	}
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.detach()
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("control server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.cfg.BindAddr }

// auth проверяет Bearer-токен; для WebSocket из браузера допускается ?token=.
func (s *Server) auth(next http.Handler) http.Handler {
	if s.cfg.AuthToken == "" {
		return next
	}
	want := []byte(s.cfg.AuthToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			got = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// localOrigin пускает WebSocket только без Origin или со страниц этого же хоста / localhost.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.EqualFold(u.Host, r.Host)
}

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	var req TypeRequest
	if !s.decode(w, r, &req) {
		return
	}
	delay, err := delayFromMs(req.DelayMs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	job := s.enqueue(req.Text, delay, req.Metadata)
	if job == nil {
		writeJSON(w, http.StatusOK, QueuedResponse{Queued: false})
		return
	}
	writeJSON(w, http.StatusAccepted, QueuedResponse{Queued: true, JobID: job.ID})
}

// delayFromMs переводит delayMs в Duration; отрицательные и больше maxDelay отклоняются.
func delayFromMs(ms int64) (time.Duration, error) {
	if ms < 0 || ms > maxDelay.Milliseconds() {
		return 0, errBadDelay
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (s *Server) enqueue(text string, delay time.Duration, metadata map[string]string) *typing.Job {
	md := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		md[k] = v
	}
	if md[typing.MetaSource] == "" {
		md[typing.MetaSource] = typing.SourceControl
	}
	return s.engine.EnqueueText(text, delay, md)
}

func (s *Server) handleClipboard(w http.ResponseWriter, r *http.Request) {
	var delay time.Duration
	if v := r.URL.Query().Get("delayMs"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			delay, err = delayFromMs(ms)
		}
		if err != nil {
			http.Error(w, errBadDelay.Error(), http.StatusBadRequest)
			return
		}
	}
	ok, err := s.engine.TypeClipboard(r.Context(), delay)
	if err != nil {
		s.logger.Warnw("Clipboard typing failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, typing.ErrNoClipboard) {
			status = http.StatusNotImplemented
		}
		http.Error(w, err.Error(), status)
		return
	}
	status := http.StatusOK
	if ok {
		status = http.StatusAccepted
	}
	writeJSON(w, status, QueuedResponse{Queued: ok})
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	changed := s.engine.Pause()
	writeJSON(w, http.StatusOK, StateResponse{Changed: changed, State: s.engine.State().String()})
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	changed := s.engine.Resume()
	writeJSON(w, http.StatusOK, StateResponse{Changed: changed, State: s.engine.State().String()})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.engine.Stop()
	writeJSON(w, http.StatusOK, StateResponse{Changed: true, State: s.engine.State().String()})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		State:    s.engine.State().String(),
		Pending:  s.engine.Pending(),
		Current:  newJobInfo(s.engine.Current()),
		Settings: newSettingsResponse(s.engine.Settings().Snapshot()),
		Clients:  s.hub.ClientCount(),
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newSettingsResponse(s.engine.Settings().Snapshot()))
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !s.decode(w, r, &req) {
		return
	}
	settings := s.engine.Settings()
	if req.WordsPerMinute != nil {
		settings.SetWordsPerMinute(*req.WordsPerMinute)
	}
	if req.BatchMode != nil {
		settings.SetBatchMode(*req.BatchMode)
	}
	if req.MinBatchSize != nil || req.MaxBatchSize != nil {
		cur := settings.Snapshot()
		lo, hi := cur.MinBatchSize, cur.MaxBatchSize
		if req.MinBatchSize != nil {
			lo = *req.MinBatchSize
		}
		if req.MaxBatchSize != nil {
			hi = *req.MaxBatchSize
		}
		settings.SetBatchSizes(lo, hi)
	}
	snap := settings.Snapshot()
	s.logger.Infow("Typing settings updated", "wpm", snap.WordsPerMinute, "batch", snap.BatchMode,
		"minBatch", snap.MinBatchSize, "maxBatch", snap.MaxBatchSize)
	writeJSON(w, http.StatusOK, newSettingsResponse(snap))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hubCtx := s.hubCtx
	s.mu.Unlock()
	if hubCtx == nil || hubCtx.Err() != nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		s.logger.Debugw("WebSocket upgrade failed", "error", err)
		return
	}
	c := &client{
		hub:    s.hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		remote: r.RemoteAddr,
		onCmd:  s.runCommand,
	}
	select {
	case s.hub.register <- c:
	case <-hubCtx.Done():
		conn.Close()
		return
	}
	go c.writePump()
	c.readPump(hubCtx)
}

// runCommand выполняет команду из WebSocket-кадра.
func (s *Server) runCommand(cmd Command) error {
	switch strings.ToLower(cmd.Cmd) {
	case "type":
		delay, err := delayFromMs(cmd.DelayMs)
		if err != nil {
			return err
		}
		if s.enqueue(cmd.Text, delay, cmd.Metadata) == nil {
			return errors.New("empty text")
		}
	case "clipboard":
		delay, err := delayFromMs(cmd.DelayMs)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.engine.TypeClipboard(ctx, delay); err != nil {
			return err
		}
	case "pause":
		s.engine.Pause()
	case "resume":
		s.engine.Resume()
	case "stop":
		s.engine.Stop()
	default:
		return fmt.Errorf("unknown command %q", cmd.Cmd)
	}
	return nil
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
