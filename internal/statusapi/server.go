// Package statusapi serves the read-only status endpoints: a health
// probe, the live pipeline snapshot, and the recent diagnostic records.
package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"pkt.systems/switchyard/core"
	"pkt.systems/switchyard/internal/diag"
)

// defaultLogLimit caps /api/log responses when no limit is given.
const defaultLogLimit = 100

// SnapshotSource answers registry snapshot queries. The engine
// satisfies it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (core.Snapshot, error)
}

// Server serves the status API over a snapshot source and a
// diagnostics aggregator.
type Server struct {
	source SnapshotSource
	diag   *diag.Aggregator
}

// NewServer constructs a status server.
func NewServer(source SnapshotSource, aggregator *diag.Aggregator) *Server {
	return &Server{source: source, diag: aggregator}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/pipelines", s.handlePipelines)
	mux.HandleFunc("/api/log", s.handleLog)
	return withRequestLogging(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePipelines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.source.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), defaultLogLimit)
	writeJSON(w, http.StatusOK, map[string]any{"records": s.diag.Recent(limit)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
