package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mirrorvault/internal/config"
	"mirrorvault/internal/logging"
	"mirrorvault/internal/pairs"
	"mirrorvault/internal/status"
	"mirrorvault/internal/store"
)

// apiReader is the slice of the daemon the HTTP API reads from.
type apiReader interface {
	Status(ctx context.Context) Status
	Settings() pairs.Settings
	History(ctx context.Context, filter store.RunFilter) ([]store.Run, error)
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	reader apiReader

	listener net.Listener
	server   *http.Server
}

// PairView is one pair with its live status, as served by /api/pairs.
type PairView struct {
	Index       int               `json:"index"`
	Pair        pairs.Pair        `json:"pair"`
	Status      status.PairStatus `json:"status"`
	SuccessRate int               `json:"success_rate"`
	LastRun     string            `json:"last_run"`
}

// newAPIServer returns nil when api_bind is empty.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		reader: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.Paths.APIToken), d.metrics.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, s.handleStatus))
	mux.HandleFunc("/api/pairs", authMiddleware(token, s.handlePairs))
	mux.HandleFunc("/api/history", authMiddleware(token, s.handleHistory))
	if metricsHandler != nil {
		mux.HandleFunc("/metrics", authMiddleware(token, metricsHandler.ServeHTTP))
	}
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr is the bound listener address, useful when api_bind uses port 0.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.reader.Status(r.Context()))
}

func (s *apiServer) handlePairs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	st := s.reader.Status(r.Context())
	s.writeJSON(w, http.StatusOK, BuildPairViews(st.View.Settings, st.View.Statuses, time.Now()))
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	filter := store.RunFilter{PairID: strings.TrimSpace(query.Get("pair"))}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	runs, err := s.reader.History(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// BuildPairViews joins settings with tracked statuses in stored order.
// Pairs without a status entry render as pending.
func BuildPairViews(settings pairs.Settings, statuses []status.PairStatus, now time.Time) []PairView {
	byID := make(map[string]status.PairStatus, len(statuses))
	for _, st := range statuses {
		byID[st.PairID] = st
	}
	views := make([]PairView, 0, len(settings.Pairs))
	for i, pair := range settings.Pairs {
		st, ok := byID[pair.ID]
		if !ok {
			st = status.NewPairStatus(pair.ID)
		}
		views = append(views, PairView{
			Index:       i,
			Pair:        pair,
			Status:      st,
			SuccessRate: st.SuccessRate(),
			LastRun:     st.LastExecutionLabel(now),
		})
	}
	return views
}

func (s *apiServer) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.NewNop()
}
