package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/slotshare/internal/auth"
	"github.com/dukerupert/slotshare/internal/email"
	"github.com/dukerupert/slotshare/internal/handler"
	"github.com/dukerupert/slotshare/internal/marketplace"
	"github.com/dukerupert/slotshare/internal/middleware"
	"github.com/dukerupert/slotshare/internal/model"
	"github.com/dukerupert/slotshare/internal/proof"
	"github.com/dukerupert/slotshare/internal/store"
	ws "github.com/dukerupert/slotshare/internal/websocket"
)

// Auth endpoints allow this many attempts per client IP per window.
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Options struct {
	EmailClient    *email.Client
	Proofs         *proof.Store
	SecureCookies  bool
	OriginPatterns []string
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	svc           *marketplace.Service
	authH         *handler.AuthHandler
	listingH      *handler.ListingHandler
	orderH        *handler.OrderHandler
	paymentH      *handler.PaymentMethodHandler
	catalogH      *handler.CatalogHandler
	ledgerH       *handler.LedgerHandler
	sessionStore  *store.SessionStore
	authenticator *middleware.Authenticator
	rateLimiter   *middleware.RateLimiter
	opts          Options
	logger        *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	svcOpts := []marketplace.Option{marketplace.WithNotifier(hub)}
	if opts.EmailClient != nil {
		svcOpts = append(svcOpts, marketplace.WithMailer(opts.EmailClient))
	}
	if opts.Proofs != nil {
		svcOpts = append(svcOpts, marketplace.WithProofStorage(opts.Proofs))
	}
	svc := marketplace.New(db, logger.With("component", "marketplace"), svcOpts...)

	sessionStore := store.NewSessionStore(db)
	roles := auth.NewRoleResolver(store.NewProfileStore(db))

	return &Server{
		db:            db,
		hub:           hub,
		svc:           svc,
		authH:         handler.NewAuthHandler(db, roles, opts.SecureCookies, logger.With("component", "auth")),
		listingH:      handler.NewListingHandler(svc, logger.With("component", "listing")),
		orderH:        handler.NewOrderHandler(svc, logger.With("component", "order")),
		paymentH:      handler.NewPaymentMethodHandler(svc, logger.With("component", "payment_method")),
		catalogH:      handler.NewCatalogHandler(svc, logger.With("component", "catalog")),
		ledgerH:       handler.NewLedgerHandler(svc, logger.With("component", "ledger")),
		sessionStore:  sessionStore,
		authenticator: middleware.NewAuthenticator(sessionStore, roles, logger.With("component", "auth")),
		rateLimiter:   middleware.NewRateLimiter(authRateLimit, authRateWindow),
		opts:          opts,
		logger:        logger,
	}
}

// Service returns the marketplace service for background jobs.
func (s *Server) Service() *marketplace.Service {
	return s.svc
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Identity
	mux.Handle("POST /api/auth/signup", s.rateLimited(s.authH.Signup))
	mux.Handle("POST /api/auth/signin", s.rateLimited(s.authH.Signin))
	mux.Handle("POST /api/auth/signout", s.authed(s.authH.Signout))
	mux.Handle("GET /api/me", s.authed(s.authH.Me))
	mux.Handle("PATCH /api/me", s.authed(s.authH.UpdateProfile))

	// Listings
	mux.Handle("GET /api/listings", s.public(s.listingH.Search))
	mux.Handle("GET /api/listings/{id}", s.public(s.listingH.Get))
	mux.Handle("POST /api/listings", s.role(s.listingH.Create, model.RoleSeller, model.RoleAdmin))
	mux.Handle("POST /api/listings/{id}/reserve", s.authed(s.listingH.Reserve))
	mux.Handle("GET /api/seller/listings", s.role(s.listingH.SellerListings, model.RoleSeller, model.RoleAdmin))
	mux.Handle("GET /api/seller/stats", s.role(s.listingH.SellerStats, model.RoleSeller, model.RoleAdmin))

	// Orders
	mux.Handle("GET /api/orders", s.authed(s.orderH.List))
	mux.Handle("POST /api/orders/{id}/proof", s.authed(s.orderH.SubmitProof))
	mux.Handle("POST /api/orders/{id}/cancel", s.authed(s.orderH.Cancel))

	// Admin
	mux.Handle("GET /api/admin/listings", s.role(s.listingH.AdminList, model.RoleAdmin))
	mux.Handle("POST /api/admin/listings/{id}/review", s.role(s.listingH.Review, model.RoleAdmin))
	mux.Handle("GET /api/admin/orders", s.role(s.orderH.AdminList, model.RoleAdmin))
	mux.Handle("POST /api/admin/orders/{id}/settle", s.role(s.orderH.Settle, model.RoleAdmin))

	// Payment methods
	mux.Handle("GET /api/payment-methods", s.authed(s.paymentH.List))
	mux.Handle("POST /api/payment-methods", s.role(s.paymentH.Create, model.RoleAdmin))
	mux.Handle("PATCH /api/payment-methods/{id}", s.role(s.paymentH.Update, model.RoleAdmin))
	mux.Handle("DELETE /api/payment-methods/{id}", s.role(s.paymentH.Delete, model.RoleAdmin))

	// Catalog and ledger
	mux.Handle("GET /api/catalog", s.public(s.catalogH.List))
	mux.Handle("POST /api/catalog", s.role(s.catalogH.Create, model.RoleAdmin))
	mux.Handle("GET /api/ledger", s.authed(s.ledgerH.Get))

	// Event feed
	mux.Handle("GET /ws", s.authenticator.RequireAuth(ws.HandleWebSocket(s.hub, s.opts.OriginPatterns, s.logger.With("component", "websocket"))))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) public(h http.HandlerFunc) http.Handler {
	return s.authenticator.OptionalAuth(h)
}

func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return s.authenticator.RequireAuth(h)
}

func (s *Server) role(h http.HandlerFunc, roles ...string) http.Handler {
	return s.authenticator.RequireAuth(middleware.RequireRole(roles...)(h))
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return s.rateLimiter.Limit(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}
