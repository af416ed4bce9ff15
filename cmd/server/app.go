package main

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/invoice-dashboard/auth"
	"github.com/diewo77/invoice-dashboard/internal/cache"
	"github.com/diewo77/invoice-dashboard/internal/config"
	"github.com/diewo77/invoice-dashboard/internal/handlers"
	"github.com/diewo77/invoice-dashboard/internal/logger"
	"github.com/diewo77/invoice-dashboard/internal/policy"
	"github.com/diewo77/invoice-dashboard/internal/services"
	"github.com/diewo77/invoice-dashboard/view"
)

// cachedViews are the pages served from the view cache.
var cachedViews = []string{"/dashboard", "/dashboard/invoices", "/dashboard/customers"}

// App is the main application handler that sets up all routes.
type App struct {
	mux      *http.ServeMux
	handler  http.Handler
	sessions *auth.Manager
}

// AppOption configures NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	invalidator cache.Invalidator
	mutation    []services.MutationOption
}

// WithInvalidator replaces the local view cache as the mutation invalidator,
// e.g. with a Redis fan-out wrapping it.
func WithInvalidator(inv cache.Invalidator) AppOption {
	return func(o *appOptions) { o.invalidator = inv }
}

// WithMutationOptions passes options through to the invoice mutation service.
func WithMutationOptions(opts ...services.MutationOption) AppOption {
	return func(o *appOptions) { o.mutation = append(o.mutation, opts...) }
}

// NewApp creates a new application with all routes configured.
func NewApp(cfg *config.Config, conn *gorm.DB, log *zap.Logger, views *cache.ViewCache, opts ...AppOption) *App {
	o := appOptions{invalidator: views}
	for _, opt := range opts {
		opt(&o)
	}

	verifier := services.NewCredentialVerifier(conn, log)
	queries := services.NewInvoiceQueryService(conn, log)
	mutations := services.NewInvoiceMutationService(conn, log, o.invalidator, o.mutation...)
	sessions := auth.NewManager(auth.Config{
		Secret:     cfg.Session.Secret,
		TTL:        cfg.Session.TTL,
		CookieName: cfg.Session.CookieName,
		Secure:     cfg.Session.Secure,
	}, auth.WithVerifier(verifier.UserExists))

	app := &App{mux: http.NewServeMux(), sessions: sessions}
	app.setupRoutes(
		handlers.NewAuthHandler(verifier, sessions),
		handlers.NewDashboardHandler(queries, cfg.Pagination.LatestLimit),
		handlers.NewInvoiceHandler(queries, mutations, cfg.Pagination.PageSize),
		handlers.NewCustomerHandler(queries),
		handlers.NewHealthHandler(conn),
	)

	// outermost first: recover, log, resolve session, gate, cache, route
	var h http.Handler = app.mux
	h = cache.Middleware(views, cachedViews...)(h)
	h = policy.Middleware(h)
	h = sessions.Middleware(h)
	h = logger.Middleware(log)(h)
	h = logger.Recovery(log)(h)
	app.handler = h
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes(
	ah *handlers.AuthHandler,
	dh *handlers.DashboardHandler,
	ih *handlers.InvoiceHandler,
	ch *handlers.CustomerHandler,
	hh *handlers.HealthHandler,
) {
	// public
	a.mux.HandleFunc("GET /{$}", dh.Home)
	a.mux.HandleFunc("GET /login", ah.Login)
	a.mux.HandleFunc("POST /login", ah.Login)
	a.mux.HandleFunc("POST /logout", ah.Logout)
	a.mux.HandleFunc("GET /health", hh.Live)
	a.mux.HandleFunc("GET /healthz", hh.Ready)

	// dashboard, gated by policy.Middleware
	a.mux.HandleFunc("GET /dashboard", dh.Overview)
	a.mux.HandleFunc("GET /dashboard/invoices", ih.List)
	a.mux.HandleFunc("GET /dashboard/invoices/create", ih.New)
	a.mux.HandleFunc("POST /dashboard/invoices", ih.Create)
	a.mux.HandleFunc("GET /dashboard/invoices/{id}/edit", ih.Edit)
	a.mux.HandleFunc("POST /dashboard/invoices/{id}", ih.Update)
	a.mux.HandleFunc("POST /dashboard/invoices/{id}/delete", ih.Delete)
	a.mux.HandleFunc("GET /dashboard/customers", ch.List)

	a.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(view.Static())))
}
