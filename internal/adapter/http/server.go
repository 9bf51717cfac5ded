package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/road-event-map/internal/catalog"
	"github.com/couchcryptid/road-event-map/internal/domain"
	"github.com/couchcryptid/road-event-map/internal/render"
	"github.com/couchcryptid/road-event-map/internal/view"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 4 << 10

// Sessions is the view session store the handlers drive.
type Sessions interface {
	Mount(initial domain.ViewportSignal) (*view.Session, error)
	State(id string) (view.RenderState, error)
	Select(id, eventID, origin string) (view.RenderState, error)
	Resize(id string, sig domain.ViewportSignal) (domain.Layout, error)
	Unmount(id string) error
}

// EventLister exposes the displayable events of the current snapshot.
type EventLister interface {
	Events() ([]domain.Event, error)
}

// ServerConfig holds the Server dependencies.
type ServerConfig struct {
	Addr         string
	Ready        sharedobs.ReadinessChecker
	Sessions     Sessions
	Events       EventLister
	Renderer     *render.Renderer
	DefaultWidth int
	Logger       *slog.Logger
}

// Server serves the map page, the session API, and the health, readiness and
// metrics endpoints.
type Server struct {
	httpServer   *http.Server
	sessions     Sessions
	events       EventLister
	renderer     *render.Renderer
	defaultWidth int
	logger       *slog.Logger
}

// NewServer creates the HTTP server and registers every route.
func NewServer(cfg ServerConfig) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		sessions:     cfg.Sessions,
		events:       cfg.Events,
		renderer:     cfg.Renderer,
		defaultWidth: cfg.DefaultWidth,
		logger:       cfg.Logger,
	}

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/sessions/{id}/state", s.handleState)
	mux.HandleFunc("GET /api/sessions/{id}/sidebar", s.handleSidebar)
	mux.HandleFunc("POST /api/sessions/{id}/viewport", s.handleViewport)
	mux.HandleFunc("POST /api/sessions/{id}/select", s.handleSelect)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleUnmount)
	mux.HandleFunc("POST /api/sessions/{id}/unmount", s.handleUnmount)
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServerFS(render.Assets())))

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(cfg.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sig := domain.ViewportSignal{
		Width:     s.defaultWidth,
		UserAgent: r.UserAgent(),
	}
	if width, err := strconv.Atoi(r.URL.Query().Get("w")); err == nil && width > 0 {
		sig.Width = width
	}

	sess, err := s.sessions.Mount(sig)
	if err != nil {
		s.writeError(w, err)
		return
	}
	state, err := s.sessions.State(sess.ID())
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.renderer.Page(w, state); err != nil {
		s.writeError(w, err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	events, err := s.events.Events()
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.State(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	client, err := s.renderer.Client(state)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, client)
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.State(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSidebar(w, state)
}

type viewportRequest struct {
	Width int `json:"width"`
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var req viewportRequest
	if err := decodeBody(w, r, &req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Width <= 0 {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "width must be positive"})
		return
	}

	layout, err := s.sessions.Resize(r.PathValue("id"), domain.ViewportSignal{
		Width:     req.Width,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, layout)
}

type selectRequest struct {
	EventID string `json:"event_id"`
	Origin  string `json:"origin"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(w, r, &req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.EventID == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "event_id is required"})
		return
	}

	state, err := s.sessions.Select(r.PathValue("id"), req.EventID, req.Origin)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSidebar(w, state)
}

func (s *Server) handleUnmount(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Unmount(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeSidebar(w http.ResponseWriter, state view.RenderState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Sidebar(w, state); err != nil {
		s.writeError(w, err)
	}
}

// writeError maps domain errors to status codes. Anything unrecognized is a
// 500 and gets logged.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, view.ErrSessionNotFound),
		errors.Is(err, view.ErrSessionClosed),
		errors.Is(err, view.ErrUnknownEvent):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrNoSnapshot):
		status = http.StatusServiceUnavailable
	default:
		s.logger.Error("request failed", "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
