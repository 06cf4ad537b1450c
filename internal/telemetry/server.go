package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/logger"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
	"github.com/rileyhilliard/hostwatch/internal/notify"
)

// DefaultHistoryLimit is the number of samples returned when the request
// does not ask for a count.
const DefaultHistoryLimit = 60

const shutdownTimeout = 5 * time.Second

// StateSource is implemented by *monitor.Monitor.
type StateSource interface {
	Snapshot() []monitor.TargetState
	State(id string) (monitor.TargetState, bool)
	History() *monitor.History
}

// AlertSource is implemented by *notify.Journal.
type AlertSource interface {
	Recent(limit int) ([]notify.Event, error)
}

// Server serves health, metrics and the JSON API.
type Server struct {
	r        *chi.Mux
	states   StateSource
	alerts   AlertSource
	exporter *Exporter
	log      logger.Logger
}

// NewServer wires the routes. alerts and exporter may be nil.
func NewServer(states StateSource, alerts AlertSource, exporter *Exporter, l logger.Logger) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		states:   states,
		alerts:   alerts,
		exporter: exporter,
		log:      logger.With(l, "[http]"),
	}

	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.Recoverer)
	s.r.Use(s.requestLog)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	if s.exporter != nil {
		s.r.Method(http.MethodGet, "/metrics", s.exporter.Handler())
	}

	s.r.Route("/api", func(r chi.Router) {
		r.Get("/targets", s.listTargets)
		r.Get("/targets/{id}", s.getTarget)
		r.Get("/targets/{id}/history", s.getHistory)
		r.Get("/alerts", s.listAlerts)
	})
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.r }

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("Listening on %s", addr)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.WrapWithCode(err, errors.ErrConfig, "Couldn't listen on "+addr,
				"Pick a free address for http.listen, or leave it empty to disable the server")
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Microsecond))
	})
}

// TargetView is the JSON shape of one target.
type TargetView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
	User    string `json:"user"`
	Enabled bool   `json:"enabled"`

	monitor.TargetState

	LatencyMS *float64 `json:"latency_ms,omitempty"`
}

// NewTargetView flattens a state for JSON output.
func NewTargetView(st monitor.TargetState) TargetView {
	v := TargetView{
		ID:          st.Target.ID,
		Name:        st.Target.DisplayName(),
		Host:        st.Target.Host,
		Port:        st.Target.EffectivePort(),
		User:        st.Target.User,
		Enabled:     st.Target.IsEnabled(),
		TargetState: st,
	}
	if st.Latency != nil {
		ms := float64(*st.Latency) / float64(time.Millisecond)
		v.LatencyMS = &ms
	}
	return v
}

func (s *Server) listTargets(w http.ResponseWriter, _ *http.Request) {
	states := s.states.Snapshot()
	out := make([]TargetView, 0, len(states))
	for _, st := range states {
		out = append(out, NewTargetView(st))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, ok := s.states.State(id)
	if !ok {
		writeError(w, http.StatusNotFound, "target '"+id+"' not found")
		return
	}
	writeJSON(w, http.StatusOK, NewTargetView(st))
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.states.State(id); !ok {
		writeError(w, http.StatusNotFound, "target '"+id+"' not found")
		return
	}
	limit, err := limitParam(r, DefaultHistoryLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Summarize(err))
		return
	}
	series, _ := s.states.History().Get(id, limit)
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeJSON(w, http.StatusOK, []notify.Event{})
		return
	}
	limit, err := limitParam(r, notify.DefaultRecent)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Summarize(err))
		return
	}
	events, err := s.alerts.Recent(limit)
	if err != nil {
		s.log.Warn("reading alerts: %s", errors.Summarize(err))
		writeError(w, http.StatusInternalServerError, "couldn't read alert journal")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func limitParam(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New(errors.ErrConfig, "limit must be a positive integer", "")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
