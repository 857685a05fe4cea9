package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trucolab/truco-league/brackets"
	"github.com/trucolab/truco-league/config"
	"github.com/trucolab/truco-league/db"
	"github.com/trucolab/truco-league/handlers"
	"github.com/trucolab/truco-league/repositories"
	"github.com/trucolab/truco-league/routes"
	"github.com/trucolab/truco-league/services"
	"github.com/trucolab/truco-league/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Logo storage is optional; the upload endpoint reports a validation
	// error when R2 is not configured.
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", cfg.R2BucketName))
	} else {
		logger.Info("logo storage disabled, R2_ACCOUNT_ID not set")
	}

	wsHub := brackets.NewHub()
	go wsHub.Run()

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	leagueRepo := repositories.NewPostgresLeagueRepository(dbConn)

	authService := services.NewAuthService(userRepo)
	userService := services.NewUserService(userRepo)
	resolver := services.NewParticipantResolver(userRepo)
	txBeginner := repositories.NewTxBeginner(dbConn)
	teamService := services.NewTeamService(txBeginner, tournamentRepo, resolver)
	tournamentService := services.NewTournamentService(tournamentRepo, uploader)
	bracketService := services.NewBracketService(txBeginner, tournamentRepo, matchRepo, leagueRepo, wsHub)
	matchService := services.NewMatchService(dbConn, matchRepo, tournamentRepo, resolver, bracketService, wsHub)
	standingsService := services.NewStandingsService(dbConn, tournamentRepo, matchRepo)
	leagueService := services.NewLeagueService(leagueRepo, tournamentRepo)
	logger.Info("services initialized")

	router := routes.InitRoutes(routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		User:       handlers.NewUserHandler(userService),
		Tournament: handlers.NewTournamentHandler(tournamentService, teamService, bracketService, standingsService),
		Match:      handlers.NewMatchHandler(matchService),
		League:     handlers.NewLeagueHandler(leagueService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub),
	}, []byte(cfg.JWTSecretKey))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
	}
	logger.Info("application exited")
}
