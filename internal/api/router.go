package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/cryptofolio/internal/api/handlers"
	custommiddleware "github.com/ndewijer/cryptofolio/internal/api/middleware"
	"github.com/ndewijer/cryptofolio/internal/config"
	"github.com/ndewijer/cryptofolio/internal/service"
)

// Services bundles everything the router dispatches to.
type Services struct {
	System       *service.SystemService
	Auth         *service.AuthService
	Assets       *service.AssetService
	Prices       *service.PriceService
	Transactions *service.TransactionService
	Portfolio    *service.PortfolioService
	Drafts       *service.DraftService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config, logger logrus.FieldLogger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	requireSession := custommiddleware.RequireSession(svc.Auth)

	systemHandler := handlers.NewSystemHandler(svc.System)
	authHandler := handlers.NewAuthHandler(svc.Auth)
	assetHandler := handlers.NewAssetHandler(svc.Assets, svc.Prices)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions)
	portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio)
	draftHandler := handlers.NewDraftHandler(svc.Drafts)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.SignUp)
			r.Post("/signin", authHandler.SignIn)
			r.With(requireSession).Post("/signout", authHandler.SignOut)
			r.With(requireSession).Get("/session", authHandler.Session)
		})

		r.Get("/asset", assetHandler.Assets)

		r.Route("/price", func(r chi.Router) {
			r.Get("/", assetHandler.Prices)
			r.With(requireSession, custommiddleware.ValidateUUIDMiddleware).
				Post("/{uuid}/refresh", assetHandler.RefreshPrice)
		})

		r.Post("/calculator/reconcile", handlers.Reconcile)

		// Everything below acts on the signed-in user's own data.
		r.Group(func(r chi.Router) {
			r.Use(requireSession)

			r.Route("/transaction", func(r chi.Router) {
				r.Get("/", transactionHandler.Transactions)
				r.Post("/", transactionHandler.CreateTransaction)

				r.Route("/{uuid}", func(r chi.Router) {
					r.Use(custommiddleware.ValidateUUIDMiddleware)
					r.Get("/", transactionHandler.GetTransaction)
					r.Delete("/", transactionHandler.DeleteTransaction)
				})
			})

			r.Route("/portfolio", func(r chi.Router) {
				r.Get("/summary", portfolioHandler.Summary)
				r.Get("/transactions", portfolioHandler.Transactions)
			})

			r.Route("/draft", func(r chi.Router) {
				r.Get("/", draftHandler.Get)
				r.Put("/", draftHandler.Edit)
				r.Delete("/", draftHandler.Cancel)
				r.Post("/submit", draftHandler.Submit)
			})
		})
	})

	return r
}
