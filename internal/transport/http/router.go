package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/veriflow/orchestrator/internal/application/decision"
	"github.com/veriflow/orchestrator/internal/application/stats"
	"github.com/veriflow/orchestrator/internal/application/verification"
	"github.com/veriflow/orchestrator/internal/config"
	"github.com/veriflow/orchestrator/internal/infrastructure/collaborator"
	"github.com/veriflow/orchestrator/internal/infrastructure/dynamo"
	jwtinfra "github.com/veriflow/orchestrator/internal/infrastructure/jwt"
	s3infra "github.com/veriflow/orchestrator/internal/infrastructure/s3"
	"github.com/veriflow/orchestrator/internal/infrastructure/sns"
	"github.com/veriflow/orchestrator/internal/transport/http/handler"
	appmiddleware "github.com/veriflow/orchestrator/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	SessionRepo     *dynamo.SessionRepo
	DocumentRepo    *dynamo.DocumentRepo
	StageResultRepo *dynamo.StageResultRepo
	S3Store         *s3infra.Store
	Publisher       sns.DecisionPublisher

	DocumentAnalyzer *collaborator.DocumentAnalyzer
	FaceMatcher      *collaborator.FaceMatcher
	LivenessDetector *collaborator.LivenessDetector
	DeepfakeDetector *collaborator.DeepfakeDetector

	JWTVerifier *jwtinfra.Verifier
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTVerifier != nil {
		authMw = appmiddleware.Auth(deps.JWTVerifier)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 2 requests/second, burst of 5. Session creation is where abuse lands.
	createRL := appmiddleware.NewRateLimiter(rate.Limit(2), 5)

	verificationSvc := verification.NewService(verification.Deps{
		Sessions:         deps.SessionRepo,
		Documents:        deps.DocumentRepo,
		StageResults:     deps.StageResultRepo,
		Media:            deps.S3Store,
		DocumentAnalyzer: deps.DocumentAnalyzer,
		FaceMatcher:      deps.FaceMatcher,
		LivenessDetector: deps.LivenessDetector,
		DeepfakeDetector: deps.DeepfakeDetector,
		Publisher:        deps.Publisher,
		Engine:           decision.NewEngine(cfg.Decision),
		RetryCap:         cfg.StageRetryCap,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	})
	statsSvc := stats.NewService(deps.SessionRepo)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(verificationSvc, statsSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.With(createRL.Limit).Post("/sessions", sessionH.Create)
			r.Get("/sessions", sessionH.List)
			r.With(appmiddleware.RequireRole(jwtinfra.RoleAdmin)).Get("/sessions/stats", sessionH.Stats)
			r.Get("/sessions/{id}", sessionH.Get)
			r.Post("/sessions/{id}/document", sessionH.SubmitDocument)
			r.Post("/sessions/{id}/selfie", sessionH.SubmitSelfie)
			r.Post("/sessions/{id}/decision", sessionH.RunDecision)
			r.Post("/sessions/{id}/retry", sessionH.RetryStage)
		})
	})

	return r
}
