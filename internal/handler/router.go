package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pairsync/sync-server/internal/config"
	apperrors "github.com/pairsync/sync-server/internal/errors"
	"github.com/pairsync/sync-server/internal/middleware"
	"github.com/pairsync/sync-server/internal/service"
	"github.com/pairsync/sync-server/internal/sse"
)

type Services struct {
	RateLimiter *service.RateLimiter
	Pairing     *service.PairingService
	Blocklist   *service.BlocklistService
	State       *service.StateService
	Missions    *service.MissionService
	Reactions   *service.ReactionService
	Challenges  *service.ChallengeService
	Scores      *service.ScoreService
	Garden      *service.GardenService
	Status      *service.StatusService
}

type RouterConfig struct {
	Services     Services
	Broker       *sse.Broker
	HealthChecks map[string]Check
	IsProduction bool
}

func NewRouter(cfg RouterConfig) chi.Router {
	svc := cfg.Services
	guard := NewPairGuard(svc.Blocklist)

	pairingHandler := NewPairingHandler(svc.Pairing, svc.Blocklist)
	missionsHandler := NewMissionsHandler(guard, svc.Missions)
	reactionsHandler := NewReactionsHandler(guard, svc.Reactions)
	challengesHandler := NewChallengesHandler(guard, svc.Challenges)
	insightsHandler := NewInsightsHandler(guard, svc.State, svc.Scores, svc.Garden, svc.Status)
	healthHandler := NewHealthHandler(cfg.HealthChecks)

	issueLimit := middleware.NewIPRateLimitMiddleware(svc.RateLimiter,
		config.PairingIssueLimit, config.PairingIssueWindow, "pairing_issue")
	connectLimit := middleware.NewIPRateLimitMiddleware(svc.RateLimiter,
		config.PairingConnectLimit, config.PairingConnectWindow, "pairing_connect")
	statusLimit := middleware.NewIPRateLimitMiddleware(svc.RateLimiter,
		config.PairingStatusLimit, config.PairingStatusWindow, "pairing_status")
	unlinkLimit := middleware.NewIPRateLimitMiddleware(svc.RateLimiter,
		config.UnlinkLimit, config.UnlinkWindow, "unlink")

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewSecurityHeadersMiddleware(cfg.IsProduction).Handler)
	r.Use(middleware.NewBodyLimitMiddleware(0).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, apperrors.NotFound("route"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "Method not allowed"})
	})

	r.Get("/health", healthHandler.ServeHTTP)

	// The event stream is long-lived and stays outside the request timeout.
	if cfg.Broker != nil {
		r.Get("/events", NewEventsHandler(guard, cfg.Broker, svc.State).ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

		r.With(issueLimit.Handler).Post("/pairing", pairingHandler.Create)
		r.With(connectLimit.Handler).Post("/pairing/connect", pairingHandler.Connect)
		r.With(statusLimit.Handler).Get("/pairing/status", pairingHandler.Status)
		r.With(unlinkLimit.Handler).Post("/unlink", pairingHandler.Unlink)

		r.Get("/missions", missionsHandler.List)
		r.Post("/missions/complete", missionsHandler.Complete)

		r.Post("/reaction", reactionsHandler.Record)
		r.Post("/kudos/confirm", reactionsHandler.ConfirmKudos)

		r.Get("/challenges", challengesHandler.List)
		r.Post("/challenge/start", challengesHandler.Start)
		r.Post("/challenge/complete", challengesHandler.Complete)
		r.Post("/challenge/approve", challengesHandler.Approve)

		r.Get("/scores", insightsHandler.Scores)
		r.Get("/garden", insightsHandler.Garden)
		r.Get("/status", insightsHandler.Status)
		r.Get("/activity", insightsHandler.Activity)
	})

	return r
}
