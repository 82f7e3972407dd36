package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/feedsift/feedsift/connectivity"
	"github.com/feedsift/feedsift/store"
)

// settingActions maps the HTTP settings keys to channel actions. The
// channel handler persists the toggle, so HTTP writes and in-band
// messages share one code path.
var settingActions = map[string]string{
	"debugMode":       "setDebugMode",
	"enableDetection": "setDetectionEnabled",
	"autoUnfollow":    "setAutoUnfollow",
}

// Server is the HTTP control surface. Every mutation goes through the
// connectivity channel as a tagged message, so the HTTP API, the MCP
// tools, and any remote counterpart all behave identically.
type Server struct {
	stats   *store.Store
	channel *connectivity.Channel
	admin   *connectivity.Admin
	console *Console
	logger  *slog.Logger
}

// ServerOptions wires a Server to its collaborators. Admin may be nil
// to disable route administration.
type ServerOptions struct {
	Stats   *store.Store
	Channel *connectivity.Channel
	Admin   *connectivity.Admin
	Console *Console
	Logger  *slog.Logger
}

// NewServer creates the control server.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Stats == nil {
		return nil, fmt.Errorf("control: stats store is required")
	}
	if opts.Channel == nil {
		return nil, fmt.Errorf("control: channel is required")
	}
	if opts.Console == nil {
		opts.Console = NewConsole()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		stats:   opts.Stats,
		channel: opts.Channel,
		admin:   opts.Admin,
		console: opts.Console,
		logger:  opts.Logger,
	}, nil
}

// Handler builds the chi router for the control API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/stats", s.handleStats)
	r.Post("/api/stats/clear", s.handleStatsClear)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Put("/api/settings/{key}", s.handleSetting)
	r.Post("/api/unfollow", s.handleUnfollow)
	r.Get("/api/console", s.handleConsole)
	r.Delete("/api/console", s.handleConsoleClear)

	if s.admin != nil {
		r.Get("/api/routes", s.handleRoutes)
		r.Put("/api/routes/{service}", s.handleRouteStrategy)
	}

	return r
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatsClear(w http.ResponseWriter, r *http.Request) {
	if err := s.stats.ResetCounters(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	resp, err := s.send(r.Context(), map[string]any{"action": "analyzeNow"})
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeRaw(w, http.StatusOK, resp)
}

type settingBody struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	act, ok := settingActions[key]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown setting %q", key))
		return
	}

	var body settingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.send(r.Context(), map[string]any{"action": act, "enabled": body.Enabled})
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeRaw(w, http.StatusOK, resp)
}

type unfollowBody struct {
	AuthorID string `json:"authorId"`
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	var body unfollowBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.AuthorID == "" {
		writeError(w, http.StatusBadRequest, errors.New("authorId is required"))
		return
	}

	resp, err := s.send(r.Context(), map[string]any{"action": "unfollow", "authorId": body.AuthorID})
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeRaw(w, http.StatusOK, resp)
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": s.console.Entries(limit),
		"total":   s.console.Len(),
	})
}

func (s *Server) handleConsoleClear(w http.ResponseWriter, r *http.Request) {
	s.console.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.admin.ListRoutes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

type routeBody struct {
	Strategy string `json:"strategy"`
	Endpoint string `json:"endpoint"`
}

func (s *Server) handleRouteStrategy(w http.ResponseWriter, r *http.Request) {
	service := chi.URLParam(r, "service")

	var body routeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Strategy == "" {
		writeError(w, http.StatusBadRequest, errors.New("strategy is required"))
		return
	}

	var err error
	if body.Endpoint != "" {
		err = s.admin.UpsertRoute(r.Context(), service, body.Strategy, body.Endpoint, nil)
	} else {
		err = s.admin.SetStrategy(r.Context(), service, body.Strategy)
		if errors.Is(err, connectivity.ErrRouteNotFound) {
			err = s.admin.UpsertRoute(r.Context(), service, body.Strategy, "", nil)
		}
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"service": service, "strategy": body.Strategy})
}

// send marshals a tagged message and pushes it through the channel.
func (s *Server) send(ctx context.Context, msg map[string]any) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("control: marshal message: %w", err)
	}
	resp, err := s.channel.Send(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []byte(`{"success":true}`)
	}
	return resp, nil
}

// RegisterHandlers exposes the console's services on the router.
func (s *Server) RegisterHandlers(r *connectivity.Router) {
	r.RegisterLocal("logDebug", s.console.HandleLogDebug)
	r.RegisterLocal("showDebugConsole", s.console.HandleShowConsole)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
