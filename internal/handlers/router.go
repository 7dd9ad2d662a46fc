package handlers

import (
	"net/http"

	"github.com/icdtuning/garage/internal/metrics"
	"github.com/icdtuning/garage/internal/middleware"
	"github.com/icdtuning/garage/internal/models"
)

// RouterConfig carries the handlers and middleware the API is built from.
type RouterConfig struct {
	Auth     *AuthHandler
	Jobs     *JobHandler
	Invoices *InvoiceHandler
	Export   *ExportHandler
	Health   *HealthHandler

	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimitMiddleware
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	CORSOrigins     []string
	LoginRateLimit  int
	LoginRateWindow int // seconds
}

// NewRouter wires the REST API. Every /api route except login and register
// requires a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	authMW := cfg.AuthMiddleware
	manager := authMW.RequireRole(models.RoleManager)
	can := authMW.RequirePermission

	login := http.Handler(http.HandlerFunc(cfg.Auth.Login))
	if cfg.RateLimiter != nil && cfg.LoginRateLimit > 0 {
		login = cfg.RateLimiter.RateLimit(cfg.LoginRateLimit, cfg.LoginRateWindow)(login)
	}
	mux.Handle("POST /api/auth/login", login)
	mux.HandleFunc("POST /api/auth/register", cfg.Auth.Register)
	mux.HandleFunc("GET /api/auth/me", cfg.Auth.Me)
	mux.Handle("GET /api/mechanics", manager(http.HandlerFunc(cfg.Auth.ListMechanics)))

	mux.Handle("POST /api/jobs", manager(http.HandlerFunc(cfg.Jobs.Create)))
	mux.Handle("GET /api/jobs", can("view_jobs")(http.HandlerFunc(cfg.Jobs.List)))
	mux.Handle("GET /api/jobs/{id}", can("view_jobs")(http.HandlerFunc(cfg.Jobs.Get)))
	mux.Handle("PATCH /api/jobs/{id}", can("update_job_status")(http.HandlerFunc(cfg.Jobs.Update)))
	mux.Handle("PUT /api/jobs/{id}/checklist", can("update_checklist")(http.HandlerFunc(cfg.Jobs.UpdateChecklist)))
	mux.Handle("POST /api/jobs/{id}/photos", can("upload_photos")(http.HandlerFunc(cfg.Jobs.AddPhoto)))
	mux.Handle("POST /api/jobs/{id}/send-confirmation", manager(http.HandlerFunc(cfg.Jobs.SendConfirmation)))
	mux.Handle("GET /api/jobs/{id}/invoices", manager(http.HandlerFunc(cfg.Jobs.ListInvoices)))
	mux.Handle("GET /api/stats", can("view_stats")(http.HandlerFunc(cfg.Jobs.Stats)))

	mux.Handle("POST /api/invoices", manager(http.HandlerFunc(cfg.Invoices.Create)))
	mux.Handle("GET /api/invoices/{id}/pdf", manager(http.HandlerFunc(cfg.Invoices.PDF)))
	mux.Handle("POST /api/invoices/{id}/send", manager(http.HandlerFunc(cfg.Invoices.Send)))

	mux.Handle("GET /api/export/jobs", manager(http.HandlerFunc(cfg.Export.Jobs)))

	mux.HandleFunc("GET /health", cfg.Health.Health)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	// Metrics sits directly around the mux so it sees the matched pattern.
	var h http.Handler = cfg.Metrics.Middleware(mux)
	h = authMW.Authenticate(h)
	h = middleware.RequestLogger(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)
	return h
}
