package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ihp-inventory/configs"
	"ihp-inventory/internal/db"
	"ihp-inventory/internal/handlers"
	"ihp-inventory/internal/utils"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, sync, err := utils.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = sync() }()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		_ = sync()
		os.Exit(1)
	}
}

func run(cfg configs.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	database, err := db.Connect(ctx, cfg.MongoURI, cfg.DBName)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Disconnect(ctx); err != nil {
			logger.Warn("disconnect mongo", "error", err)
		}
	}()
	logger.Info("connected to MongoDB", "db", cfg.DBName)

	users := database.Collection(db.UsersCollection)
	if err := db.EnsureIndexes(context.Background(), users); err != nil {
		return err
	}

	var issuer *utils.TokenIssuer
	if cfg.JWTSecret != "" {
		issuer = utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	}
	if !cfg.AuthEnabled {
		logger.Warn("authentication disabled, every route is public")
	}

	router := handlers.NewRouter(handlers.Deps{
		Users:         users,
		Books:         database.Collection(db.BooksCollection),
		Writers:       database.Collection(db.WritersCollection),
		Audit:         &utils.Logger{Collection: database.Collection(db.AuditLogsCollection)},
		Issuer:        issuer,
		Ping:          database.Ping,
		Log:           logger,
		Timeout:       cfg.RequestTimeout,
		AuthEnabled:   cfg.AuthEnabled,
		AdminEmails:   cfg.AdminEmails,
		AdminPassword: cfg.AdminPassword,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.WithCORS(router, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server shut down")
	return nil
}
