package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"ticketify/internal/config"
	"ticketify/internal/domain"
	"ticketify/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HealthCheck describes one component's current state for /healthz.
type HealthCheck func() string

// HTTPServer exposes the booking API.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      domain.AdmissionService
	attempts domain.AttemptLimiter
	limiter  *rateLimiter
	checks   map[string]HealthCheck
	server   *http.Server
	logger   *zerolog.Logger
}

// NewHTTPServer wires the router. attempts may be nil to disable attempt
// limiting on verify and submit.
func NewHTTPServer(cfg config.APIConfig, svc domain.AdmissionService, attempts domain.AttemptLimiter, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		attempts: attempts,
		limiter:  newRateLimiter(cfg.RateLimit),
		checks:   make(map[string]HealthCheck),
		logger:   logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.accessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.rateLimit)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/bookings", s.handleListBookings)
		r.With(s.limitAttempts("submit")).Post("/bookings", s.handleSubmit)
		r.Delete("/bookings", s.handleClear)
		r.Post("/bookings/resend", s.handleResend)
		r.With(s.limitAttempts("verify")).Post("/verify", s.handleVerify)
		r.Get("/seats/occupied", s.handleOccupied)
		r.Post("/admin/bookings/export", s.handleExport)
	})

	return r
}

// AddHealthCheck registers a component reported by /healthz. Call it
// before Start.
func (s *HTTPServer) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = r.Method + " " + rctx.RoutePattern()
		}
		metrics.IncHTTP(route)

		s.logger.Info().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter.enabled() && !s.limiter.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitAttempts caps identity-probing calls per client and action.
func (s *HTTPServer) limitAttempts(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.attempts == nil || s.cfg.Attempts.Limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := s.attempts.CheckRateLimit(r.Context(), action+":"+clientKey(r), s.cfg.Attempts.Limit, s.cfg.Attempts.Window)
			if err != nil {
				// fail open
				s.logger.Warn().Err(err).Msg("attempt limiter unavailable")
			} else if !allowed {
				s.writeServiceError(w, r, fmt.Errorf("%w: %s", domain.ErrTooManyAttempts, action))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey is the client address after RealIP has rewritten RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
