// Package transport exposes run history and live progress over HTTP and
// WebSocket.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gateway-fm/cubench/internal/storage"
)

// Server is the HTTP API server.
type Server struct {
	store  storage.Storage
	ws     *WebSocketServer
	logger *slog.Logger
	srv    *http.Server
}

// NewServer creates an HTTP server over the given storage. The WebSocket
// server may be nil when live streaming is not wanted.
func NewServer(addr string, store storage.Storage, ws *WebSocketServer, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{store: store, ws: ws, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/runs", s.handleRuns)
	mux.HandleFunc("/v1/runs/", s.handleRunByID)
	if ws != nil {
		mux.HandleFunc("/v1/ws", ws.Handler())
	}
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", slog.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.ws != nil {
		s.ws.Stop()
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRuns serves GET /v1/runs with limit/offset pagination.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	page, err := s.store.ListBenchRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("failed to list runs", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleRunByID serves GET/DELETE /v1/runs/{id} and GET /v1/runs/{id}/outcomes.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "run id required")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		s.getRun(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		s.deleteRun(w, r, id)
	case sub == "outcomes" && r.Method == http.MethodGet:
		s.getOutcomes(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := s.store.GetBenchRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get run", slog.String("runId", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request, id string) {
	err := s.store.DeleteBenchRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to delete run", slog.String("runId", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to delete run")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) getOutcomes(w http.ResponseWriter, r *http.Request, id string) {
	// 404 on an unknown run rather than returning an empty list.
	if _, err := s.store.GetBenchRun(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("failed to get run", slog.String("runId", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	outcomes, err := s.store.GetOutcomes(r.Context(), id)
	if err != nil {
		s.logger.Error("failed to get outcomes", slog.String("runId", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to get outcomes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runId": id, "outcomes": outcomes})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
