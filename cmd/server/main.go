package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ndewijer/cryptofolio/internal/api"
	"github.com/ndewijer/cryptofolio/internal/config"
	"github.com/ndewijer/cryptofolio/internal/database"
	"github.com/ndewijer/cryptofolio/internal/feed"
	"github.com/ndewijer/cryptofolio/internal/logging"
	"github.com/ndewijer/cryptofolio/internal/repository"
	"github.com/ndewijer/cryptofolio/internal/service"
	"github.com/ndewijer/cryptofolio/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	logger.WithField("version", version.Version).Info("Starting cryptofolio")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped with an error")
	}
	logger.Info("Server exited")
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	logger.WithField("path", cfg.Database.Path).Info("Connected to database")

	// Create repositories
	userRepo := repository.NewUserRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)

	sessionKey, generated, err := service.LoadSessionKey(cfg.Auth.SessionKey)
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("SESSION_KEY is not set; sessions will not survive a restart")
	}

	feedClient := feed.NewClient(
		feed.WithLogger(logger),
		feed.WithRateLimit(cfg.Feed.RatePerSecond),
		feed.WithTimeout(cfg.Feed.Timeout),
		feed.WithFiat(cfg.Feed.FiatCurrency),
	)

	// Create services
	systemService := service.NewSystemService(db)
	authService := service.NewAuthService(userRepo, sessionKey, cfg.Auth.SessionTTL, logger)
	assetService := service.NewAssetService(assetRepo)
	priceService := service.NewPriceService(
		assetRepo,
		feedClient,
		service.PollSchedule{
			PrimarySymbol: cfg.Feed.PrimaryAssetSymbol,
			Primary:       cfg.Feed.PrimaryPollSchedule,
			Cycle:         cfg.Feed.CycleSchedule,
			ItemDelay:     cfg.Feed.CycleItemDelay,
		},
		logger,
	)
	portfolioService := service.NewPortfolioService(
		transactionRepo,
		assetRepo,
		priceService,
		strings.ToUpper(cfg.Feed.FiatCurrency),
		logger,
	)
	transactionService := service.NewTransactionService(
		transactionRepo,
		assetRepo,
		portfolioService,
		logger,
	)
	draftService := service.NewDraftService(transactionService, cfg.Calculator.Debounce, logger)
	defer draftService.Close()

	authService.OnSessionChange(portfolioService.HandleSessionChange)
	authService.OnSessionChange(draftService.HandleSessionChange)
	priceService.OnPriceUpdate(portfolioService.HandlePriceUpdate)

	// Create router
	router := api.NewRouter(api.Services{
		System:       systemService,
		Auth:         authService,
		Assets:       assetService,
		Prices:       priceService,
		Transactions: transactionService,
		Portfolio:    portfolioService,
		Drafts:       draftService,
	}, cfg, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", cfg.Server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := priceService.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		priceService.Stop()
		return nil
	})

	g.Go(func() error {
		if err := authService.StartSweeper(gctx, cfg.Auth.SweepSchedule); err != nil {
			return err
		}
		<-gctx.Done()
		authService.Stop()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

