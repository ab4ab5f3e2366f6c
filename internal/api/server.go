package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/caducee-health/caducee/internal/auth"
	"github.com/caducee-health/caducee/internal/places"
	"github.com/caducee-health/caducee/internal/store"
	"github.com/caducee-health/caducee/internal/triage"
)

// TriageService is the dialogue-refinement loop consumed by the handlers.
type TriageService interface {
	Start(ctx context.Context, symptoms, profileContext string) (*triage.InitialAnalysis, error)
	Advance(ctx context.Context, ownerID uuid.UUID, symptoms string, history []triage.Turn, profileContext string) (*triage.AdvanceOutcome, error)
}

// Store is the persistence surface the handlers need. *store.Store satisfies it.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (uuid.UUID, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	UpsertProfile(ctx context.Context, p store.Profile) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*store.Profile, error)
	ListConsultations(ctx context.Context, ownerID uuid.UUID) ([]triage.ConsultationRecord, error)
}

// DoctorFinder looks up practitioners near a coordinate. *places.Client
// satisfies it.
type DoctorFinder interface {
	Nearby(ctx context.Context, lat, lng float64, radiusMeters int) ([]places.Doctor, error)
}

type Server struct {
	router  *chi.Mux
	port    int
	store   Store
	triage  TriageService
	doctors DoctorFinder
	tokens  *auth.TokenIssuer
	logger  *slog.Logger
}

func NewServer(port int, st Store, svc TriageService, doctors DoctorFinder, tokens *auth.TokenIssuer, allowedOrigins []string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(allowedOrigins))

	s := &Server{
		router:  router,
		port:    port,
		store:   st,
		triage:  svc,
		doctors: doctors,
		tokens:  tokens,
		logger:  logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(auth.Require(tokens))
			r.Get("/profile", s.getProfile)
			r.Put("/profile", s.putProfile)
			r.Post("/triage/start", s.startTriage)
			r.Post("/triage/advance", s.advanceTriage)
			r.Get("/consultations", s.listConsultations)
			r.Get("/doctors/nearby", s.nearbyDoctors)
		})
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// corsMiddleware applies the configured origin list. Origins come from the
// Config struct built at process start, never from ambient state.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed[origin]:
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
