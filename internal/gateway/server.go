// Package gateway is the reference host: it exposes the plugin call contract
// over HTTP, persists UI settings through the settings hook and streams
// published bus events over websocket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crystaldolphin/slackrelay/internal/bus"
	"github.com/crystaldolphin/slackrelay/internal/metrics"
	"github.com/crystaldolphin/slackrelay/internal/plugin"
)

const (
	apiPrefix     = "/api/"
	maxBodyBytes  = 1 << 20
	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
)

// Plugin is the part of the adapter the gateway drives.
type Plugin interface {
	Call(ctx context.Context, method, path string, args map[string]string) plugin.Result
	SetSettings(ctx context.Context, settings map[string]any) (map[string]any, error)
	Connected() bool
}

// SettingsRecord persists the UI-visible settings object.
type SettingsRecord interface {
	UISettings() (map[string]any, error)
	SaveUISettings(settings map[string]any) error
}

// Subscriber hands out bus subscriptions.
type Subscriber interface {
	Subscribe() (<-chan bus.Event, func())
}

// Options configure a Server.
type Options struct {
	Addr string
	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string
}

// Server is the HTTP host.
type Server struct {
	opts     Options
	plugin   Plugin
	settings SettingsRecord
	events   Subscriber
	upgrader websocket.Upgrader
}

func NewServer(p Plugin, settings SettingsRecord, events Subscriber, opts Options) *Server {
	return &Server{
		opts:     opts,
		plugin:   p,
		settings: settings,
		events:   events,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(apiPrefix, s.handleCall)
	mux.HandleFunc("/settings", s.handleSettings)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.opts.MetricsPath != "" {
		mux.Handle(s.opts.MetricsPath, metrics.Handler())
	}
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway: listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("gateway: shutdown", "err", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway: %w", err)
	}
	return ctx.Err()
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, apiPrefix), "/")
	args, err := callArgs(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	res := s.plugin.Call(r.Context(), r.Method, path, args)
	slog.Debug("gateway: call", "method", r.Method, "path", path, "error", res.Error)
	writeJSON(w, http.StatusOK, res)
}

// callArgs merges query parameters with a JSON object or form body.
// Body values win over query values.
func callArgs(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	args := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}
	if r.Body == nil || r.Method == http.MethodGet {
		return args, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			if errors.Is(err, io.EOF) {
				return args, nil
			}
			return nil, fmt.Errorf("decode body: %w", err)
		}
		for k, v := range body {
			switch tv := v.(type) {
			case nil:
			case string:
				args[k] = tv
			default:
				args[k] = fmt.Sprint(tv)
			}
		}
	case strings.HasPrefix(ct, "application/x-www-form-urlencoded"):
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("parse form: %w", err)
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				args[k] = v[0]
			}
		}
	}
	return args, nil
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rec, err := s.settings.UISettings()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPost, http.MethodPut:
		var in map[string]any
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "settings body must be a JSON object"})
			return
		}
		if in == nil {
			in = map[string]any{}
		}
		out, err := s.plugin.SetSettings(r.Context(), in)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if err := s.settings.SaveUISettings(out); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, out)
	default:
		w.Header().Set("Allow", "GET, POST, PUT")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"connected": s.plugin.Connected()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("gateway: websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, cancel := s.events.Subscribe()
	defer cancel()

	// Drain client frames so close frames and pongs are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		case evt, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "bus closed"),
					time.Now().Add(writeDeadline))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteJSON(evt.Wire()); err != nil {
				slog.Debug("gateway: websocket write failed", "err", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("gateway: write response", "err", err)
	}
}
