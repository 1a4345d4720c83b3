package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
	"bizledger/internal/middleware/ratelimit"
	"bizledger/internal/middleware/security"
	"bizledger/internal/middleware/trace"
	"bizledger/internal/render"
	"bizledger/internal/services"
	appweb "bizledger/web"
)

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 30 * time.Second
)

type (
	// DashboardReader serves the aggregated figures.
	DashboardReader interface {
		Metrics(ctx context.Context, q services.MetricsQuery) (metrics.Result, error)
		Categories(ctx context.Context) (metrics.Breakdown, error)
		Aging(ctx context.Context, asOf core.Date) (metrics.AgingReport, error)
	}

	// LedgerAPI reads and writes ledger records and templates.
	LedgerAPI interface {
		ListInvoices(ctx context.Context) ([]core.InvoiceRecord, error)
		GetInvoice(ctx context.Context, id string) (core.InvoiceRecord, error)
		CreateInvoice(ctx context.Context, rec core.InvoiceRecord) (core.InvoiceRecord, error)
		ListExpenses(ctx context.Context) ([]core.ExpenseRecord, error)
		CreateExpense(ctx context.Context, rec core.ExpenseRecord) (core.ExpenseRecord, error)
		ListTemplates(ctx context.Context) ([]render.Template, error)
		GetTemplate(ctx context.Context, id string) (render.Template, error)
		SaveTemplate(ctx context.Context, tpl render.Template) (render.Template, []core.ConfigValidationWarning, error)
	}

	// Renderer renders invoices now or through the job queue.
	Renderer interface {
		Preview(ctx context.Context, tpl render.Template, fields render.Fields, withHTML bool) (services.Rendered, error)
		RenderInvoice(ctx context.Context, invoiceID, templateID string) (services.Rendered, error)
		EnqueueRender(ctx context.Context, invoiceID, templateID string) (ledger.RenderJob, error)
		GetRender(ctx context.Context, jobID string) (ledger.RenderJob, error)
	}
)

// Services are the application services behind the routes.
type Services struct {
	Dashboard DashboardReader
	Ledger    LedgerAPI
	Render    Renderer
}

// Options configure the server.
type Options struct {
	Addr               string
	RateLimitPerMinute int
	// AuthUser enables Basic auth on everything but health checks and
	// static assets.
	AuthUser       string
	AuthPass       string
	CurrencySymbol string
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
}

type Server struct {
	http.Server
	svc       Services
	opts      Options
	templates *template.Template
	logger    *log.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server. Call Shutdown to stop it and its background goroutines.
func NewServer(svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "$"
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		svc:      svc,
		opts:     opts,
		logger:   logger,
		detector: security.NewDetector(opts.Logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(template.FuncMap{
		"money": func(m core.Money) string { return m.Format(s.opts.CurrencySymbol) },
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.opts.Logger))
	r.Use(s.tracer.Middleware)
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeaderPolicy()))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingMethods, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	}))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(limitBody)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.CacheFor(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(security.BasicAuth("bizledger", s.opts.AuthUser, s.opts.AuthPass, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
		}))

		r.Get("/", s.handleIndex)
		r.Get("/ui/overview", s.handleOverview)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/metrics", s.handleMetrics)
			r.Get("/metrics/categories", s.handleCategories)
			r.Get("/metrics/aging", s.handleAging)

			r.Get("/invoices", s.handleListInvoices)
			r.Post("/invoices", s.handleCreateInvoice)
			r.Get("/invoices/{id}", s.handleGetInvoice)
			r.Get("/invoices/{id}/render", s.handleRenderInvoice)
			r.Post("/invoices/{id}/render-jobs", s.handleEnqueueRender)
			r.Get("/renders/{jobID}", s.handleGetRender)

			r.Get("/expenses", s.handleListExpenses)
			r.Post("/expenses", s.handleCreateExpense)

			r.Get("/templates", s.handleListTemplates)
			r.Post("/templates", s.handleSaveTemplate)
			r.Get("/templates/{id}", s.handleGetTemplate)

			r.Post("/render/preview", s.handlePreview)

			r.Get("/stats", s.handleStats)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Stats is a snapshot of the HTTP layer counters.
type Stats struct {
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rate_limit"`
	Security  security.DetectionMetrics `json:"security"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Stats{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	})
}

// writeServiceError maps service errors onto status codes. Internal errors
// are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		if status == http.StatusInternalServerError {
			writeError(w, status, "internal error")
			return
		}
	}
	if isHTMX(r) {
		FragmentResponse(status, "error", err.Error()).TriggerNotification(NotificationError, err.Error(), 5000).Write(w)
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var rve *core.RecordValidationError
	var tce *core.TemplateConfigError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, errBadRequest), errors.As(err, &rve):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &tce):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrRenderQueueDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ledger.ErrReadOnly):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
