// Package server wires the HTTP surface: routing, CORS, request logging,
// the request guard, and the metrics endpoint.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"deviceauth/internal/server/middleware"
)

// NewRouter builds the router. guard protects the endpoints where the
// caller's identity matters; register/login/refresh stay public.
func NewRouter(h *Handlers, guard *middleware.Authenticator, log *slog.Logger, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", h.Refresh).Methods(http.MethodPost)

	r.Handle("/auth/logout", guard.Require(http.HandlerFunc(h.Logout))).Methods(http.MethodPost)
	r.Handle("/auth/logout-others", guard.Require(http.HandlerFunc(h.LogoutOthers))).Methods(http.MethodPost)
	r.Handle("/auth/logout-all", guard.Require(http.HandlerFunc(h.LogoutAll))).Methods(http.MethodPost)
	r.Handle("/auth/profile", guard.Require(http.HandlerFunc(h.Profile))).Methods(http.MethodGet)
	r.Handle("/auth/sessions", guard.Require(http.HandlerFunc(h.Sessions))).Methods(http.MethodGet)

	r.Use(middleware.Log(log))

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Device-Id"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
