package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitewrap/sitewrap-backend/api/controllers"
	"github.com/sitewrap/sitewrap-backend/api/middleware"
	"github.com/sitewrap/sitewrap-backend/internal/auth"
	"github.com/sitewrap/sitewrap-backend/internal/downloads"
	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/enums"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
	"github.com/sitewrap/sitewrap-backend/pkg/metrics"
	"github.com/sitewrap/sitewrap-backend/pkg/redis"
)

// Dependencies carries everything the router wires together.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Registry  *prometheus.Registry
	Metrics   *metrics.LedgerMetrics
	Redis     *redis.Client
	Pingers   map[string]controllers.Pinger
	Auth      auth.Service
	Ledger    ledger.Service
	Downloads downloads.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	rl := cfg.RateLimit

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	general := middleware.Policy{Name: "general", Window: rl.GeneralWindow, Limit: rl.GeneralLimit, Identity: middleware.IdentityIP}
	login := middleware.Policy{Name: "login", Window: rl.LoginWindow, Limit: rl.LoginLimit, Identity: middleware.IdentityIP}
	register := middleware.Policy{Name: "register", Window: rl.RegisterWindow, Limit: rl.RegisterLimit, Identity: middleware.IdentityIP}
	generateUser := middleware.Policy{Name: "generate_user", Window: rl.GenerateUserWindow, Limit: rl.GenerateUserLimit, Identity: middleware.IdentityUser}
	generateIP := middleware.Policy{Name: "generate_ip", Window: rl.GenerateIPWindow, Limit: rl.GenerateIPLimit, Identity: middleware.IdentityIP}
	file := middleware.Policy{Name: "file", Window: rl.FileWindow, Limit: rl.FileLimit, Identity: middleware.IdentityIP}
	admin := middleware.Policy{Name: "admin", Window: rl.AdminWindow, Limit: rl.AdminLimit, Identity: middleware.IdentityUser}
	webhook := middleware.Policy{Name: "webhook", Window: rl.WebhookWindow, Limit: rl.WebhookLimit, Identity: middleware.IdentityIP}
	download := middleware.Policy{Name: "download", Window: rl.DownloadWindow, Limit: rl.DownloadLimit, Identity: middleware.IdentityUser}

	limit := func(policies ...middleware.Policy) func(http.Handler) http.Handler {
		return middleware.RateLimit(deps.Redis, logg, deps.Metrics, policies...)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, deps.Pingers))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(limit(register)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.With(limit(login)).Post("/login", controllers.AuthLogin(deps.Auth, cfg.JWT, logg))
	})

	r.Route("/webhook", func(r chi.Router) {
		r.With(limit(webhook)).Post("/build-complete", controllers.BuildComplete(deps.Ledger, cfg.Build.CallbackSecret, logg))
	})

	r.Route("/generate", func(r chi.Router) {
		// Redemption authenticates by signature, not session.
		r.With(limit(file)).Get("/{id}/file", controllers.DownloadFile(deps.Downloads, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(limit(general))

			r.With(limit(generateUser, generateIP)).Post("/", controllers.GenerateSubmit(deps.Ledger, cfg.Generation, logg))
			r.Get("/", controllers.GenerateList(deps.Ledger, logg))
			r.Get("/{id}", controllers.GenerateDetail(deps.Ledger, logg))
			r.With(limit(download)).Get("/{id}/download", controllers.DownloadIssue(deps.Downloads, logg))
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(limit(admin))

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", controllers.AdminPaymentsList(deps.Ledger, logg))
			r.Get("/failed-builds", controllers.AdminFailedBuilds(deps.Ledger, logg))
			r.Post("/{id}/confirm", controllers.AdminPaymentConfirm(deps.Ledger, logg))
			r.Post("/{id}/reject", controllers.AdminPaymentReject(deps.Ledger, logg))
			r.Post("/{id}/retry-build", controllers.AdminRetryBuild(deps.Ledger, logg))
		})
	})

	return r
}
