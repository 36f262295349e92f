package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/housebook/housebook-backend/api/controllers"
	"github.com/housebook/housebook-backend/api/middleware"
	"github.com/housebook/housebook-backend/internal/auth"
	"github.com/housebook/housebook-backend/internal/changelog"
	"github.com/housebook/housebook-backend/internal/identity"
	"github.com/housebook/housebook-backend/internal/jobs"
	"github.com/housebook/housebook-backend/internal/projection"
	"github.com/housebook/housebook-backend/internal/properties"
	"github.com/housebook/housebook-backend/internal/scope"
	"github.com/housebook/housebook-backend/pkg/auth/session"
	"github.com/housebook/housebook-backend/pkg/config"
	"github.com/housebook/housebook-backend/pkg/enums"
	"github.com/housebook/housebook-backend/pkg/logger"
	"github.com/housebook/housebook-backend/pkg/metrics"
	"github.com/housebook/housebook-backend/pkg/redis"
)

type feedServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string, logg *logger.Logger)
}

// Params carries everything the router mounts. Feed is optional; the feed
// route answers 500 when realtime is disabled.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redis.Client
	Sessions    session.AccessSessionChecker
	Auth        auth.Service
	Register    auth.RegisterService
	Identity    identity.Resolver
	Properties  properties.Service
	Jobs        jobs.Service
	Scope       scope.Resolver
	Projection  projection.Service
	ChangeLogs  changelog.Service
	Feed        feedServer
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	rl := cfg.AuthRateLimit
	loginThrottle := middleware.Throttle{Route: "login", Window: rl.LoginWindow, PerIP: rl.LoginIPLimit, PerEmail: rl.LoginEmailLimit}
	registerThrottle := middleware.Throttle{Route: "register", Window: rl.RegisterWindow, PerIP: rl.RegisterIPLimit, PerEmail: rl.RegisterEmailLimit}
	idem, loginLimit, registerLimit := passthrough, passthrough, passthrough
	if p.Redis != nil {
		idem = middleware.Idempotency(p.Redis, cfg.Idempotency.TTL, logg)
		loginLimit = middleware.AuthThrottle(loginThrottle, p.Redis, logg)
		registerLimit = middleware.AuthThrottle(registerThrottle, p.Redis, logg)
	}

	readyDeps := map[string]controllers.Pinger{"db": p.DB}
	if p.Redis != nil {
		readyDeps["redis"] = p.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(registerLimit).Post("/register", controllers.AuthRegister(p.Register, p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Get("/me", controllers.AuthMe(p.Identity, logg))
		r.Get("/asset-types", controllers.AssetTypes(p.Properties, logg))

		r.Route("/owner", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleOwner, logg))

			r.Get("/properties", controllers.OwnerProperties(p.Properties, logg))
			r.Get("/properties/feed", controllers.PropertyFeed(p.Feed, logg))
			r.Get("/properties/{propertyId}", controllers.OwnerPropertyTree(p.Properties, logg))
			r.Get("/properties/{propertyId}/rollup", controllers.OwnerPropertyRollup(p.Projection, logg))
			r.Get("/properties/{propertyId}/requests", controllers.OwnerPendingRequests(p.ChangeLogs, logg))
			r.With(idem).Post("/properties/{propertyId}/spaces", controllers.OwnerCreateSpace(p.Properties, logg))
			r.With(idem).Post("/properties/{propertyId}/jobs", controllers.OwnerCreateJob(p.Jobs, logg))
			r.With(idem).Post("/spaces/{spaceId}/assets", controllers.OwnerCreateAsset(p.Properties, logg))
			r.Get("/assets/{assetId}/specification", controllers.OwnerAssetSpecification(p.Projection, logg))
			r.Get("/assets/{assetId}/draft", controllers.OwnerAssetDraft(p.ChangeLogs, logg))
			r.With(idem).Post("/assets/{assetId}/history", controllers.OwnerAddHistory(p.ChangeLogs, logg))
			r.With(idem).Post("/requests/{changeLogId}/status", controllers.OwnerReviewRequest(p.ChangeLogs, logg))
		})

		r.Route("/tradie", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleTradie, logg))

			r.With(idem).Post("/jobs/claim", controllers.TradieClaim(p.Jobs, logg))
			r.With(idem).Post("/jobs/claim-pin", controllers.TradieClaimPIN(p.Jobs, logg))
			r.Get("/jobs", controllers.TradieJobs(p.Jobs, logg))
			r.Get("/properties/{propertyId}/jobs/{jobId}/scope", controllers.TradieScope(p.Scope, logg))
			r.Get("/properties/{propertyId}/jobs/{jobId}/rollup", controllers.TradieRollup(p.Projection, logg))
			r.Get("/jobs/{jobId}/assets/{assetId}/draft", controllers.TradieDraft(p.ChangeLogs, logg))
			r.Get("/jobs/{jobId}/assets/{assetId}/specification", controllers.TradieSpecification(p.Projection, logg))
			r.With(idem).Post("/jobs/{jobId}/assets/{assetId}/changes", controllers.TradieSubmitChange(p.ChangeLogs, logg))
			r.Get("/requests", controllers.TradieRequests(p.ChangeLogs, logg))
			r.With(idem).Delete("/requests/{changeLogId}", controllers.TradieCancelRequest(p.ChangeLogs, logg))
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
