package nav

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/signalsfoundry/astrogator/internal/auth"
	"github.com/signalsfoundry/astrogator/internal/logging"
	"github.com/signalsfoundry/astrogator/internal/observability"
	"github.com/signalsfoundry/astrogator/model"
)

// HealthMessage is returned by GET /api/health.
const HealthMessage = "Astrogator backend online"

const maxBodyBytes = 1 << 16

// Server is the HTTP surface of the navigation service.
type Server struct {
	svc       *Service
	users     *auth.Users
	metrics   *observability.Collector
	log       logging.Logger
	staticDir string
	dataset   string

	mux *http.ServeMux
}

// ServerOption customises a Server.
type ServerOption func(*Server)

// WithCollector instruments every route and mounts /metrics.
func WithCollector(c *observability.Collector) ServerOption {
	return func(s *Server) { s.metrics = c }
}

// WithServerLogger sets the base request logger.
func WithServerLogger(l logging.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStaticDir serves the front-end from dir at /.
func WithStaticDir(dir string) ServerOption {
	return func(s *Server) { s.staticDir = dir }
}

// WithDatasetName reports the loaded ephemeris in the health response.
func WithDatasetName(name string) ServerOption {
	return func(s *Server) { s.dataset = name }
}

// NewServer builds the route table.
func NewServer(svc *Service, users *auth.Users, opts ...ServerOption) *Server {
	s := &Server{svc: svc, users: users, log: logging.Noop(), mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}

	s.handle("GET /api/health", false, s.health)
	s.handle("GET /api/nav/stars", true, s.stars)
	s.handle("GET /api/nav/orrery/live", true, s.orreryLive)
	s.handle("GET /api/nav/orrery/static", true, s.orreryStatic)
	s.handle("GET /api/nav/state/{id}", true, s.sensorState)
	s.handle("POST /api/cmd/burn/{id}", true, s.burn)
	s.handle("GET /api/admin/truth/{id}", true, s.truth)
	s.handle("GET /api/admin/fleet", true, s.fleet)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	if s.staticDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(s.staticDir)))
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// handle wraps h as request id -> tracing -> metrics -> auth -> h.
func (s *Server) handle(pattern string, protected bool, h http.HandlerFunc) {
	var next http.Handler = h
	if protected {
		next = auth.Middleware(s.users)(next)
	}
	if s.metrics != nil {
		next = s.metrics.InstrumentRoute(pattern, next)
	}
	next = TracingMiddleware(pattern, next)
	next = RequestIDMiddleware(s.log, pattern, next)
	s.mux.Handle(pattern, next)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"message": HealthMessage}
	if s.dataset != "" {
		body["ephemeris"] = s.dataset
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) stars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Stars())
}

func (s *Server) orreryLive(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.OrreryLive(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) orreryStatic(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("points"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.fail(w, r, fmt.Errorf("%w: points must be a positive integer", ErrInvalidRequest))
			return
		}
		n = v
	}
	out, err := s.svc.OrreryPaths(r.Context(), n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) sensorState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, span := StartChildSpan(r.Context(), "nav.SensorState", "spacecraft", id)
	defer span.End()

	user, _ := auth.UserFromContext(ctx)
	out, err := s.svc.SensorState(ctx, user, id)
	if err != nil {
		span.RecordError(err)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type burnRequest struct {
	DeltaV *model.Vec3 `json:"delta_v"`
}

func (s *Server) burn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx, span := StartChildSpan(r.Context(), "nav.Burn", "spacecraft", id)
	defer span.End()

	var req burnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}
	if req.DeltaV == nil {
		s.fail(w, r, fmt.Errorf("%w: delta_v is required", ErrInvalidRequest))
		return
	}

	user, _ := auth.UserFromContext(ctx)
	out, err := s.svc.Burn(ctx, user, id, *req.DeltaV)
	if err != nil {
		span.RecordError(err)
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) truth(w http.ResponseWriter, r *http.Request) {
	if err := s.requireAdmin(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.svc.Truth(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) fleet(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	out, err := s.svc.FleetTruth(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) requireAdmin(ctx context.Context) error {
	user, _ := auth.UserFromContext(ctx)
	if !s.users.IsAdmin(user) {
		return fmt.Errorf("%w: admin only", ErrForbidden)
	}
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := ToHTTPStatus(err)
	log := logging.LoggerFromContext(r.Context())
	if log == nil {
		log = s.log
	}
	if code >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", logging.Int("status", code), logging.Err(err))
	} else {
		log.Info(r.Context(), "request rejected", logging.Int("status", code), logging.Err(err))
	}
	msg := err.Error()
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		code = http.StatusRequestEntityTooLarge
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
