// Package http exposes the engine over HTTP: the inbound SMS webhook, the
// provider webhook, bank linking and the budget API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spendsync/internal/core"
	"spendsync/internal/engine"
	applog "spendsync/internal/log"
	"spendsync/internal/middleware/ratelimit"
	"spendsync/internal/middleware/security"
	"spendsync/internal/middleware/trace"
)

// Engine is the part of the engine served over HTTP.
type Engine interface {
	HandleMessage(ctx context.Context, phone, body string) (string, error)
	HandleWebhook(ctx context.Context, w engine.Webhook) error
	CreateLinkToken(ctx context.Context, phone string) (string, error)
	ConnectBank(ctx context.Context, phone, publicToken string) error
	Budget(ctx context.Context, phone string) (engine.BudgetView, error)
	SetLimits(ctx context.Context, phone string, limits map[core.Category]decimal.Decimal) (engine.BudgetView, error)
	DeleteUser(ctx context.Context, phone string) error
}

// SignatureValidator authenticates inbound SMS webhooks.
type SignatureValidator interface {
	Validate(path string, form url.Values, signature string) bool
}

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	engine    Engine
	validator SignatureValidator
	checks    map[string]Pinger
	limiter   *ratelimit.Limiter
	logger    *slog.Logger

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithSignatureValidator enables signature checks on /sms.
func WithSignatureValidator(v SignatureValidator) Option {
	return func(s *Server) { s.validator = v }
}

// WithReadinessCheck adds a named dependency to /readyz.
func WithReadinessCheck(name string, p Pinger) Option {
	return func(s *Server) { s.checks[name] = p }
}

// WithRateLimit sets the per-client request budget.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.limiter.Stop()
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: perMinute})
	}
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, eng Engine, opts ...Option) *Server {
	s := &Server{
		engine:  eng,
		checks:  make(map[string]Pinger),
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		logger:  applog.WithComponent(slog.Default(), applog.ComponentHTTP),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /sms", s.handleSMS)
	mux.HandleFunc("POST /api/plaid/webhook", s.handleProviderWebhook)
	mux.HandleFunc("POST /api/create_link_token", s.handleCreateLinkToken)
	mux.HandleFunc("POST /api/connect_bank", s.handleConnectBank)
	mux.HandleFunc("GET /api/budget", s.handleGetBudget)
	mux.HandleFunc("PATCH /api/budget", s.handleUpdateBudget)
	mux.HandleFunc("DELETE /api/user", s.handleDeleteUser)

	detector := security.NewDetector()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(detector.ExtractClientIP)
	limit := s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			"client_ip", detector.ExtractClientIP(r), "path", r.URL.Path)
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})

	var handler http.Handler = mux
	handler = limit(handler)
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = applog.RequestMiddleware(s.logger, trace.GetRequestID)(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.checks {
		if err := check.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, applog.FieldError, err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
