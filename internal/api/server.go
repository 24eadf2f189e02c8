// Package api exposes the clinic's REST surface: public booking and catalog
// endpoints, authenticated ebook access and an admin area.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"clinica/internal/auth"
	"clinica/internal/booking"
	"clinica/internal/database"
	"clinica/internal/events"
	"clinica/internal/files"
	"clinica/internal/metrics"
	"clinica/internal/premium"
	"clinica/internal/schedule"
)

// Options wires the server's collaborators.
type Options struct {
	DB             *database.DB
	Booking        *booking.Service
	Premium        *premium.Resolver
	Auth           *auth.Manager
	Uploads        *files.Store
	Bus            *events.Bus
	AllowedOrigins []string
	AdminEmail     string
	AdminSecret    string
	Logger         zerolog.Logger
}

// Server is the REST API server.
type Server struct {
	db          *database.DB
	booking     *booking.Service
	premium     *premium.Resolver
	auth        *auth.Manager
	uploads     *files.Store
	bus         *events.Bus
	adminEmail  string
	adminSecret string
	router      chi.Router
	server      *http.Server
	logger      zerolog.Logger
}

// NewServer creates the API server and mounts all routes.
func NewServer(opts Options) *Server {
	s := &Server{
		db:          opts.DB,
		booking:     opts.Booking,
		premium:     opts.Premium,
		auth:        opts.Auth,
		uploads:     opts.Uploads,
		bus:         opts.Bus,
		adminEmail:  opts.AdminEmail,
		adminSecret: opts.AdminSecret,
		router:      chi.NewRouter(),
		logger:      opts.Logger.With().Str("component", "api").Logger(),
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(s.countRequests)

	s.router.Route("/api/v1", s.setupAPIRoutes)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.server.Addr = addr
	s.logger.Info().Str("addr", addr).Msg("starting API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// countRequests feeds the per-endpoint request counter after routing, so the
// label is the route pattern rather than the raw path.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if pattern := chi.RouteContext(r.Context()).RoutePattern(); pattern != "" {
			metrics.IncHTTP(pattern)
		}
	})
}

type ctxKey int

const claimsKey ctxKey = iota

func claimsFrom(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(claimsKey).(*auth.Claims)
	return claims
}

// authMiddleware requires a valid bearer token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.respondError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			s.respondError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		claims, err := s.auth.ValidateToken(parts[1])
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminMiddleware requires the admin claim on top of authMiddleware.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r)
		if claims == nil || !claims.IsAdmin {
			s.respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		s.logger.Error().Err(err).Msg("encode response failed")
	}
}

// respondValidationError reports which form field was rejected alongside the
// message, so the admin UI can highlight it.
func (s *Server) respondValidationError(w http.ResponseWriter, vErr *schedule.ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: false,
		Error:   vErr.Message,
		Data:    map[string]string{"field": vErr.Field},
	})
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body")
	}
	return nil
}
