// Command server runs the chat backend as a plain HTTP server for local
// development.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"artifact-chat/handler"
	"artifact-chat/internal/app"
	appconfig "artifact-chat/internal/config"
	"artifact-chat/internal/logger"
	"artifact-chat/internal/repository"
	"artifact-chat/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := appconfig.LoadBackend(os.Getenv)
	if err != nil {
		bootLog := logger.New("", os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	base := logger.New(cfg.LogLevel, os.Stdout)
	log := logger.For(base, logger.APP)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	history, closeHistory, err := openHistory(ctx, cfg, awsdynamodb.NewFromConfig(awsCfg), logger.For(base, logger.STORE))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer closeHistory()

	h, err := app.NewHandler(cfg, awsCfg, history, base)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create handler")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openHistory prefers Postgres when DATABASE_URL is set and falls back to DynamoDB.
func openHistory(ctx context.Context, cfg appconfig.Backend, dynamo *awsdynamodb.Client, log zerolog.Logger) (usecase.HistoryStore, func(), error) {
	if cfg.DatabaseURL != "" {
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewPostgresStore(db, repository.DefaultMessagesTable)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info().Msg("using postgres history store")
		return store, func() { _ = db.Close() }, nil
	}

	store, err := repository.New(dynamo, cfg.StateTable)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("table", cfg.StateTable).Msg("using dynamodb history store")
	return store, func() {}, nil
}
