package server

import (
	"TraderBot/internal/service/image"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Максимальный размер тела запроса /generate.
const maxBody = 1 << 20

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (image.Result, bool)
}

type Config struct {
	Addr string
	// WriteTimeout должен быть больше таймаута API генерации изображений.
	WriteTimeout time.Duration
	// Webhook обрабатывает POST /webhook. Если nil, маршрут не регистрируется.
	Webhook http.Handler
}

// Server обслуживает HTTP: /generate, /healthz и, в режиме webhook, /webhook.
type Server struct {
	cfg     Config
	images  ImageGenerator
	srv     *http.Server
	logger  *zap.SugaredLogger
	running atomic.Bool
}

func New(cfg Config, images ImageGenerator, logger *zap.SugaredLogger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Minute
	}
	s := &Server{cfg: cfg, images: images, logger: logger}

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler возвращает маршрутизатор сервера.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", s.handleGenerate)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.cfg.Webhook != nil {
		mux.Handle("/webhook", s.cfg.Webhook)
	}
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		s.logger.Infow("HTTP-сервер слушает", "addr", s.srv.Addr, "webhook", s.cfg.Webhook != nil)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("HTTP-сервер остановлен с ошибкой", "error", err)
		} else {
			s.logger.Infow("HTTP-сервер остановлен")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("http server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed; use POST", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var req generateRequest
	// тело, которое не разбирается как JSON, равносильно отсутствию промпта
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		s.logger.Warnw("Некорректное тело /generate", "remote", r.RemoteAddr, "error", err)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No prompt provided"})
		return
	}

	s.logger.Infow("Запрос генерации по HTTP", "remote", r.RemoteAddr, "prompt", prompt)
	res, ok := s.images.Generate(r.Context(), prompt)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Image generation failed"})
		return
	}
	if res.Path != "" {
		writeJSON(w, http.StatusOK, map[string]string{"image_path": res.Path})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Image generated"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
