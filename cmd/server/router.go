package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "facility-checklist/docs"
	"facility-checklist/internal/auth"
	"facility-checklist/internal/cache"
	"facility-checklist/internal/config"
	"facility-checklist/internal/dashboard"
	"facility-checklist/internal/handlers"
	"facility-checklist/internal/middleware"
	"facility-checklist/web"
)

type routerDeps struct {
	cfg       *config.Config
	log       *zap.Logger
	auth      *auth.Handler
	tokens    *auth.TokenManager
	api       *handlers.Handler
	dashboard *dashboard.Handler
	// rateCache is nil when Redis is not configured.
	rateCache cache.Client
}

func newRouter(d routerDeps) (http.Handler, error) {
	proxies, err := middleware.ParseTrustedProxies(d.cfg.HTTP.TrustedProxies)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(d.log, proxies))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "HX-Request", "HX-Target", "HX-Current-URL", "HX-Trigger"},
		ExposedHeaders:   []string{"HX-Trigger", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard/", http.StatusFound)
	})

	r.Group(func(r chi.Router) {
		if d.rateCache != nil {
			r.Use(middleware.RateLimitLogin(d.rateCache, proxies, d.log))
		}
		r.Post("/login", d.auth.Login)
	})
	r.Group(func(r chi.Router) {
		if d.rateCache != nil {
			r.Use(middleware.RateLimitRegister(d.rateCache, proxies, d.log))
		}
		r.Post("/register", d.auth.Register)
	})
	r.With(d.tokens.Middleware).Get("/me", d.auth.Me)

	d.api.RegisterRoutes(r)

	r.Mount("/dashboard", d.dashboard.Routes())

	r.Get("/app", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/app/", http.StatusMovedPermanently)
	})
	r.Handle("/app/*", http.StripPrefix("/app", web.Handler()))

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	return r, nil
}
