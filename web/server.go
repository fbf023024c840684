// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package web serves a browser chat over the data sources of a workspace.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
)

// DefaultRequestTimeout bounds a single request, including the upstream calls of one answer.
const DefaultRequestTimeout = 2 * time.Minute

//go:embed static/index.html
var static embed.FS

// Backend supplies data sources and their chat services.
// *docchat.Workspace implements it.
type Backend interface {
	Sources(ctx context.Context) ([]string, error)
	NewChatService(ctx context.Context, source string, opts ...chat.Option) (*chat.Service, error)
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) error {
		if ttl <= 0 {
			return fmt.Errorf("session ttl must be positive, got %v", ttl)
		}
		s.ttl = ttl
		return nil
	}
}

// WithDummy makes every chat service answer with chat.DummyAnswer.
func WithDummy(dummy bool) Option {
	return func(s *Server) error {
		s.dummy = dummy
		return nil
	}
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive, got %v", d)
		}
		s.timeout = d
		return nil
	}
}

// Server is the HTTP front end.
type Server struct {
	backend  Backend
	sessions *chat.Sessions
	ttl      time.Duration
	timeout  time.Duration
	dummy    bool
	logger   *slog.Logger
	router   chi.Router

	mu       sync.Mutex
	services map[string]*chat.Service
}

// New creates a server over backend.
func New(backend Backend, opts ...Option) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	s := &Server{
		backend:  backend,
		ttl:      chat.DefaultSessionTTL,
		timeout:  DefaultRequestTimeout,
		services: map[string]*chat.Service{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "web")
	s.sessions = chat.NewSessions(s.ttl)
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/sources", s.handleSources)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{id}", s.handleGetSession)
			r.Delete("/{id}", s.handleDeleteSession)
			r.Post("/{id}/messages", s.handleMessage)
		})
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

type createSessionRequest struct {
	Source string `json:"source"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	OK      bool           `json:"ok"`
	Answer  string         `json:"answer"`
	History []core.Message `json:"history"`
}

type sessionResponse struct {
	SessionID string         `json:"session_id"`
	Source    string         `json:"source"`
	History   []core.Message `json:"history"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "page unavailable", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	names, err := s.backend.Sources(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "cannot list data sources", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{"sources": names})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		s.respondError(w, http.StatusBadRequest, "source is required", nil)
		return
	}

	names, err := s.backend.Sources(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "cannot list data sources", err)
		return
	}
	if !slices.Contains(names, req.Source) {
		s.respondError(w, http.StatusNotFound, "unknown data source", nil)
		return
	}

	session := s.sessions.Create(req.Source)
	s.logger.Debug("session created", "session_id", session.ID, "source", session.Source)
	s.respondJSON(w, http.StatusCreated, createSessionResponse{SessionID: session.ID, Source: session.Source})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "session not found", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sessionResponse{
		SessionID: session.ID,
		Source:    session.Source,
		History:   history(session.History),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := s.sessions.Get(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "session not found", err)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message is required", nil)
		return
	}

	svc, err := s.service(r.Context(), session.Source)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "chat unavailable", err)
		return
	}

	result := svc.Ask(r.Context(), session.History, req.Message)
	if !result.OK {
		s.respondJSON(w, http.StatusOK, messageResponse{
			OK:      false,
			Answer:  result.Answer,
			History: history(session.History),
		})
		return
	}

	updated, err := s.sessions.Append(id, result.Messages...)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "session expired", err)
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{
		OK:      true,
		Answer:  result.Answer,
		History: history(updated.History),
	})
}

// service returns the cached chat service of source.
func (s *Server) service(ctx context.Context, source string) (*chat.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc, ok := s.services[source]; ok {
		return svc, nil
	}
	svc, err := s.backend.NewChatService(ctx, source, chat.WithDummy(s.dummy), chat.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.services[source] = svc
	return svc, nil
}

func history(h []core.Message) []core.Message {
	if h == nil {
		return []core.Message{}
	}
	return h
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		s.logger.Warn(message, "status", status, "err", err)
	}
	s.respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
