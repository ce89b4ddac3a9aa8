// Package monitor serves live playback state over HTTP: Prometheus
// metrics, a health probe and a per-session status document.
package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dj-oyu/vio/internal/config"
	"github.com/dj-oyu/vio/internal/logger"
	"github.com/dj-oyu/vio/pkg/types"
)

// StatusSource provides live session snapshots (the playback runner)
type StatusSource interface {
	RunID() string
	Snapshot() []types.SessionStatus
}

// Server serves the monitor endpoints
type Server struct {
	cfg     config.Config
	source  StatusSource
	metrics http.Handler
	started time.Time
	log     *logger.Module
}

// NewServer returns a monitor server. metrics may be nil.
func NewServer(cfg config.Config, source StatusSource, metrics http.Handler) *Server {
	return &Server{
		cfg:     cfg,
		source:  source,
		metrics: metrics,
		started: time.Now(),
		log:     logger.Named("Monitor"),
	}
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"run_id": s.source.RunID(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload := s.statusPayload()

	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/protobuf") ||
		strings.Contains(accept, "application/x-protobuf") {
		s.writeProtobuf(w, payload)
		return
	}
	writeJSON(w, payload)
}

func (s *Server) statusPayload() map[string]any {
	snapshot := s.source.Snapshot()

	sessions := make([]any, 0, len(snapshot))
	for _, st := range snapshot {
		sessions = append(sessions, map[string]any{
			"session":      st.Session,
			"path":         st.Path,
			"state":        st.State.String(),
			"total":        st.Total,
			"fails":        st.Fails,
			"bytes":        st.Bytes,
			"fail_percent": st.Percent(),
		})
	}

	return map[string]any{
		"run_id":     s.source.RunID(),
		"frame_rate": s.cfg.FrameRate,
		"frame_size": s.cfg.FrameSize,
		"time_limit": s.cfg.TimeLimit.Seconds(),
		"uptime_s":   time.Since(s.started).Seconds(),
		"sessions":   sessions,
		"timestamp":  float64(time.Now().Unix()),
	}
}

func (s *Server) writeProtobuf(w http.ResponseWriter, payload map[string]any) {
	st, err := structpb.NewStruct(payload)
	if err != nil {
		s.log.Warn("Status encode failed: %v", err)
		http.Error(w, fmt.Sprintf("Failed to encode status: %v", err), http.StatusInternalServerError)
		return
	}
	data, err := proto.Marshal(st)
	if err != nil {
		s.log.Warn("Status marshal failed: %v", err)
		http.Error(w, fmt.Sprintf("Failed to encode status: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/protobuf")
	w.Header().Set("X-Content-Format", "application/protobuf")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
