package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/auirah-api/internal/application/otp"
	"github.com/auirah-api/internal/application/search"
	"github.com/auirah-api/internal/application/session"
	"github.com/auirah-api/internal/application/task"
	"github.com/auirah-api/internal/application/user"
	"github.com/auirah-api/internal/config"
	"github.com/auirah-api/internal/domain"
	"github.com/auirah-api/internal/infrastructure/metrics"
	"github.com/auirah-api/internal/transport/http/handler"
	appmiddleware "github.com/auirah-api/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var rec metrics.Recorder = metrics.Nop{}
	if deps.Metrics != nil {
		rec = deps.Metrics
	}

	r := chi.NewRouter()
	r.Use(appmiddleware.RealIP(cfg.TrustedProxyPrefixes()))
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Metrics(rec))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	throttleIP := func(next http.Handler) http.Handler { return next }
	if deps.IPLimiter != nil {
		throttleIP = deps.IPLimiter.Limit
	}

	sessionSvc := session.NewService(session.ServiceDeps{
		TokenRepo:     deps.TokenRepo,
		UserRepo:      deps.UserRepo,
		JWTProvider:   deps.JWTProvider,
		TTL:           cfg.TokenTTL,
		DefaultDevice: cfg.DefaultDeviceName,
	})
	otpSvc := otp.NewService(otp.ServiceDeps{
		UserRepo:      deps.UserRepo,
		Limiter:       deps.Limiter,
		Sessions:      sessionSvc,
		Notifier:      deps.Notifier,
		Metrics:       rec,
		Logger:        log.Named("otp"),
		Production:    cfg.IsProduction(),
		TTL:           cfg.OTP.TTL,
		MaxAttempts:   cfg.OTP.MaxAttempts,
		RequestLimit:  cfg.OTP.RequestLimit,
		RequestWindow: cfg.OTP.RequestWindow,
		HashCost:      cfg.OTP.HashCost,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo: deps.UserRepo,
		TaskRepo: deps.TaskRepo,
		Sessions: sessionSvc,
	})
	taskSvc := task.NewService(task.ServiceDeps{TaskRepo: deps.TaskRepo, UserRepo: deps.UserRepo})
	searchSvc := search.NewService(search.ServiceDeps{
		TaskRepo:     deps.TaskRepo,
		UserRepo:     deps.UserRepo,
		Defaults:     cfg.SearchSuggestions,
		Curated:      curatedResults(cfg.Curated()),
		Inspirations: cfg.SearchInspirations,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(otpSvc, sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	taskH := handler.NewTaskHandler(taskSvc)
	searchH := handler.NewSearchHandler(searchSvc)

	can := appmiddleware.RequireAbility

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(throttleIP).Post("/auth/otp/request", authH.RequestOTP)
		r.With(throttleIP).Post("/auth/otp/verify", authH.VerifyOTP)
		r.Get("/public/tasks", taskH.Public)
		r.Get("/search", searchH.Search)
		r.Get("/search/suggestions", searchH.Suggestions)
		r.Get("/search/inspirations", searchH.Inspirations)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(sessionSvc))

			r.Get("/auth/me", authH.Me)
			r.Post("/auth/logout", authH.Logout)

			r.With(can(domain.AbilityTasksRead)).Get("/tasks", taskH.List)
			r.With(can(domain.AbilityTasksRead)).Get("/tasks/{id}", taskH.Get)
			r.Group(func(r chi.Router) {
				r.Use(can(domain.AbilityTasksWrite))

				r.Post("/tasks", taskH.Create)
				r.Put("/tasks/{id}", taskH.Update)
				r.Patch("/tasks/{id}", taskH.Update)
				r.Delete("/tasks/{id}", taskH.Delete)
			})

			// Self access is decided by the user service.
			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Patch("/users/{id}", userH.Update)
			r.With(can(domain.AbilityUsersRead)).Get("/users", userH.List)
			r.Group(func(r chi.Router) {
				r.Use(can(domain.AbilityUsersWrite))

				r.Post("/users", userH.Create)
				r.Delete("/users/{id}", userH.Delete)
			})
		})
	})

	return r
}

func curatedResults(entries []config.CuratedResult) []search.Result {
	out := make([]search.Result, 0, len(entries))
	for _, e := range entries {
		out = append(out, search.Result{ID: e.ID, Type: e.Type, Title: e.Title, Snippet: e.Snippet, URL: e.URL})
	}
	return out
}
