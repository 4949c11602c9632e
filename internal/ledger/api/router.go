/**
 * @description
 * This file sets up the HTTP router for the ledger-service. Routes are split
 * into two trust groups: the internal wallet-creation route behind the
 * internal-token strategy, and the user-facing balance/transaction routes
 * behind the external-token strategy. The two strategies are never applied
 * to the same route.
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

// LedgerRoutes creates and returns the router for the ledger-service.
func LedgerRoutes(h *LedgerHandlers, externalSecret, internalSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Internal trust: service tokens only.
	r.Group(func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalSecret))
		r.Post("/wallet/internal/create", h.CreateWalletHandler)
	})

	// External trust: user session tokens only.
	r.Group(func(r chi.Router) {
		r.Use(UserAuthMiddleware(externalSecret))
		r.Get("/wallet/balance", h.GetBalanceHandler)
		r.Post("/transactions", h.CreateTransactionHandler)
		r.Get("/transactions", h.ListTransactionsHandler)
	})

	return r
}
