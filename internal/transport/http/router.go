package http

import (
	"log/slog"

	"grubdash/internal/config"
	mw "grubdash/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

func NewRouter(handler *OrderHandler, limiter config.RateLimiter) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mw.RequestLogger(slog.Default()))
	router.Use(middleware.Recoverer)
	if limiter.Enabled {
		router.Use(mw.IPRateLimiter(limiter.RPS, limiter.Burst, limiter.MaxClients, limiter.IdleTTL))
	}

	router.NotFound(NotFound)
	router.MethodNotAllowed(MethodNotAllowed)

	router.Get("/healthz", Health)
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Get("/orders", handler.List())
	router.Post("/orders", handler.Create())
	router.Get("/orders/{orderId}", handler.Read())
	router.Put("/orders/{orderId}", handler.Update())
	router.Delete("/orders/{orderId}", handler.Delete())

	return router
}
