/*
Package handler provides the local control API of the realtime client.

This file defines the main Router, applying the middleware for CORS, request logging,
panic recovery and session-owner authentication before delegating to the handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"hzrealtime/internal/configs"
	"hzrealtime/internal/pkg/auth/jwt"
	"hzrealtime/internal/pkg/errs"
	"hzrealtime/internal/pkg/logx"
	"hzrealtime/internal/pkg/resp"
)

const (
	SendRate  = 5
	SendBurst = 10
)

// loopbackOrigins are the browser origins accepted in development when none are configured.
var loopbackOrigins = []string{
	"http://localhost",
	"http://localhost:*",
	"http://127.0.0.1",
	"http://127.0.0.1:*",
}

// allowedOrigins returns the browser origins allowed to call the control API. It never
// contains "*".
func allowedOrigins(cfg *configs.AppConfig) []string {
	if len(cfg.AllowedOrigins) > 0 {
		return cfg.AllowedOrigins
	}
	if cfg.IsDevelopment() {
		return loopbackOrigins
	}
	return []string{}
}

// rejectForeignOrigin refuses browser requests whose Origin is not allowed, including simple
// requests that skip the preflight. Requests without an Origin header pass.
func rejectForeignOrigin(c *cors.Cors) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" && !c.OriginAllowed(r) {
				logx.Warn("Rejected control request from foreign origin", "origin", origin, "path", r.URL.Path)
				resp.RespondError(w, r, errs.NewError(errs.ErrOriginForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Router sets up the HTTP routing table (chi.Router) of the control API.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(deps.Config),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "HZ Realtime Client",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Get("/status", HandleStatus(deps))

	r.Route("/api", func(api chi.Router) {
		api.Use(rejectForeignOrigin(c))
		api.Use(jwt.RequireSessionOwner(deps.Config.JWTSecret, deps.OwnerID))

		api.Route("/conversations/{id}", func(conv chi.Router) {
			conv.Post("/join", HandleJoin(deps))
			conv.Post("/leave", HandleLeave(deps))
			conv.Post("/read", HandleMarkRead(deps))
			conv.Post("/typing", HandleTyping(deps))

			send := HandleSendMessage(deps)
			if deps.SendLimiter != nil {
				send = deps.SendLimiter.Middleware(send).ServeHTTP
			}
			conv.Post("/messages", send)
		})

		api.Get("/pending", HandleListPending(deps))
		api.Delete("/pending/{tempId}", HandleForgetPending(deps))
		api.Get("/presence", HandleListPresence(deps))
	})

	return r
}
