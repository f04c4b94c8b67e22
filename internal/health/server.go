package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/speedwagon-io/sensorform/internal/lib/logger/sl"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

type HealthChecker interface {
	Name() string
	Check(ctx context.Context) (Status, string)
}

type Server struct {
	log      *slog.Logger
	address  string
	server   *http.Server
	listener net.Listener
	checkers []HealthChecker
	mu       sync.RWMutex
}

func NewServer(log *slog.Logger, address string) *Server {
	return &Server{
		log:      log,
		address:  address,
		checkers: make([]HealthChecker, 0),
	}
}

func (s *Server) AddChecker(checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers = append(s.checkers, checker)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/ready", handleOK)
	r.Get("/live", handleOK)

	return r
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info("starting health server", slog.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("health server error", sl.Err(err))
		}
	}()

	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make([]HealthChecker, len(s.checkers))
	copy(checkers, s.checkers)
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := aggregate(ctx, checkers)

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.log.Error("failed to encode health response", sl.Err(err))
	}
}

// aggregate runs every checker; the overall status is the worst component
// status.
func aggregate(ctx context.Context, checkers []HealthChecker) HealthResponse {
	response := HealthResponse{
		Status:     StatusHealthy,
		Components: make([]ComponentHealth, 0, len(checkers)),
		Timestamp:  time.Now().UTC(),
	}

	for _, checker := range checkers {
		status, message := checker.Check(ctx)
		response.Components = append(response.Components, ComponentHealth{
			Name:    checker.Name(),
			Status:  status,
			Message: message,
		})

		switch {
		case status == StatusUnhealthy:
			response.Status = StatusUnhealthy
		case status == StatusDegraded && response.Status == StatusHealthy:
			response.Status = StatusDegraded
		}
	}

	return response
}

func handleOK(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

// EndpointHealthChecker reports whether the sensor metadata service answers.
type EndpointHealthChecker struct {
	healthFunc func(ctx context.Context) error
}

func NewEndpointHealthChecker(healthFunc func(ctx context.Context) error) *EndpointHealthChecker {
	return &EndpointHealthChecker{healthFunc: healthFunc}
}

func (c *EndpointHealthChecker) Name() string {
	return "endpoint"
}

func (c *EndpointHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.healthFunc(ctx); err != nil {
		return StatusDegraded, err.Error()
	}
	return StatusHealthy, ""
}

// FormHealthChecker is degraded while the most recent submission has failed.
type FormHealthChecker struct {
	lastErrFunc func() error
}

func NewFormHealthChecker(lastErrFunc func() error) *FormHealthChecker {
	return &FormHealthChecker{lastErrFunc: lastErrFunc}
}

func (c *FormHealthChecker) Name() string {
	return "form"
}

func (c *FormHealthChecker) Check(ctx context.Context) (Status, string) {
	if err := c.lastErrFunc(); err != nil {
		return StatusDegraded, "last submission failed: " + err.Error()
	}
	return StatusHealthy, ""
}
