// Package api exposes the circulation engine over HTTP as huma operations on
// a chi router.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfwise/shelfwise-server/internal/backup"
	"github.com/shelfwise/shelfwise-server/internal/ratelimit"
	"github.com/shelfwise/shelfwise-server/internal/service"
	"github.com/shelfwise/shelfwise-server/internal/store"
)

// Services groups the workflows used by the handlers.
type Services struct {
	Catalog      *service.CatalogService
	Members      *service.MemberService
	Borrow       *service.BorrowService
	Reservations *service.ReservationService
	Fines        *service.FineService
	Settings     *service.SettingsService
	Reports      *service.ReportService
	Sweep        *service.SweepService
	Backup       *backup.BackupService
	Restore      *backup.RestoreService
}

// SearchStatus reports the size of the search index for health checks.
type SearchStatus interface {
	Count() (uint64, error)
}

// Options configures a Server.
type Options struct {
	Store    store.Store
	Services *Services
	Search   SearchStatus // optional
	// RateLimiter limits mutating requests per client. Nil disables limiting.
	RateLimiter    *ratelimit.KeyedRateLimiter
	AllowedOrigins []string
	Version        string
	Logger         *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	services *Services
	search   SearchStatus
	router   chi.Router
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a server with middleware and every route registered.
func NewServer(opts Options) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:    opts.Store,
		services: opts.Services,
		search:   opts.Search,
		router:   router,
		logger:   opts.Logger,
	}
	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Shelfwise Circulation API", opts.Version)
	humaConfig.Info.Description = "Loans, reservations, fines and inventory for a lending library."
	registerDecimal(humaConfig.Components.Schemas)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the underlying huma API.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(opts Options) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if opts.RateLimiter != nil {
		s.router.Use(ratelimit.Middleware(opts.RateLimiter))
	}
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerMemberRoutes()
	s.registerBorrowRoutes()
	s.registerReservationRoutes()
	s.registerFineRoutes()
	s.registerSettingsRoutes()
	s.registerAdminRoutes()
}

// requestLogger logs one line per request at Info, or Warn for 5xx.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
