// Package http serves the expense tracker UI, its HTMX partials and a JSON
// view endpoint.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"expensetracker/internal/app"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/render"
	appweb "expensetracker/web"
)

// Options tunes a Server. Zero values pick the defaults.
type Options struct {
	CurrencySymbol string
	RateLimit      int
	// TrustedProxies lists the CIDRs or addresses allowed to set forwarding
	// headers. Nil means DefaultTrustedProxies; an empty list trusts none.
	TrustedProxies []string
}

type Server struct {
	http.Server
	tracker     *app.Tracker
	templates   *template.Template
	format      render.Formatter
	logger      *applog.Logger
	events      *applog.StructuredLogger
	rateLimiter *rateLimiter
	security    *securityMetrics
	proxies     proxyList
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, tracker *app.Tracker, opts Options, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           applog.Middleware(logger)(mux),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		tracker:     tracker,
		format:      render.NewFormatter(opts.CurrencySymbol),
		logger:      logger,
		events:      applog.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(opts.RateLimit),
		security:    &securityMetrics{},
		started:     time.Now(),
	}

	if opts.TrustedProxies == nil {
		opts.TrustedProxies = DefaultTrustedProxies
	}
	proxies, err := parseProxyList(opts.TrustedProxies)
	if err != nil {
		logger.Error("Ignoring forwarding headers, trusted proxies are invalid",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		proxies = proxyList{}
	}
	s.proxies = proxies

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("GET /ui/expenses", s.withSecurityHeaders(s.handleExpensesPartial))
	mux.HandleFunc("GET /ui/expenses/{id}/edit", s.withSecurityHeaders(s.handleEditRow))
	mux.HandleFunc("GET /ui/summary", s.withSecurityHeaders(s.handleSummaryPartial))
	mux.HandleFunc("GET /api/view", s.withSecurityHeaders(s.handleViewJSON))
	mux.HandleFunc("GET /report", s.withSecurityHeaders(s.handleReport))

	mux.HandleFunc("POST /expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("POST /expenses/{id}", s.withSecurityHeaders(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /expenses/{id}", s.withSecurityHeaders(s.handleDeleteExpense))
	mux.HandleFunc("POST /budget", s.withSecurityHeaders(s.handleSetBudget))
	mux.HandleFunc("POST /reminder", s.withSecurityHeaders(s.handleSetReminder))
	mux.HandleFunc("DELETE /reminder", s.withSecurityHeaders(s.handleClearReminder))

	return s
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := s.proxies.clientIP(r)
		requestID := generateRequestID()

		logger := applog.FromContext(r.Context()).With(applog.FieldRequestID, requestID)
		ctx := applog.WithContext(withRequestID(r.Context(), requestID), logger)
		r = r.WithContext(ctx)

		if reason := suspicionOf(r); reason != "" {
			atomic.AddInt64(&s.security.suspiciousRequests, 1)
			logger.WarnContext(ctx, "Suspicious request",
				"reason", reason,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, clientIP,
				applog.FieldUserAgent, r.UserAgent())
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.security) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.events.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// handleError maps tracker errors to responses. Validation failures are the
// caller's fault and are answered with 422; anything else is a 500 and logged.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if core.IsValidation(err) {
		UnprocessableEntityError(err.Error()).
			TriggerErrorNotification(err.Error()).
			Write(w)
		return
	}
	s.events.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op,
		applog.NewFields().WithRequestID(requestIDOf(r)))
	InternalServerError(fmt.Sprintf("Could not %s, please retry", opLabel(op))).Write(w)
}

func opLabel(op string) string {
	switch op {
	case applog.OpCreate:
		return "add the expense"
	case applog.OpUpdate:
		return "update the expense"
	case applog.OpDelete:
		return "delete the expense"
	case applog.OpBudget:
		return "save the budget"
	case applog.OpReminder:
		return "save the reminder"
	default:
		return "complete the request"
	}
}
