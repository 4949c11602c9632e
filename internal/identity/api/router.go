/**
 * @description
 * HTTP router for the identity-service. Registration and login are public;
 * profile routes sit behind the external-token strategy.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: Router and standard middleware.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// IdentityRoutes creates and returns the router for the identity-service.
func IdentityRoutes(h *IdentityHandlers, externalSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Post("/auth/register", h.RegisterHandler)
	r.Post("/auth/login", h.LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(UserAuthMiddleware(externalSecret))
		r.Get("/user/profile", h.GetProfileHandler)
		r.Put("/user/profile", h.UpdateProfileHandler)
	})

	return r
}
