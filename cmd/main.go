package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"artifact-chat/internal/app"
	appconfig "artifact-chat/internal/config"
	"artifact-chat/internal/logger"
	"artifact-chat/internal/repository"
)

func main() {
	ctx := context.Background()
	log := logger.For(logger.New(os.Getenv("LOG_LEVEL"), os.Stdout), logger.APP)

	// ---- Configuration (read only here) ----
	cfg, err := appconfig.LoadBackend(os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.StateTable == "" {
		log.Fatal().Msg("STATE_TABLE is required for the Lambda backend")
	}
	base := logger.New(cfg.LogLevel, os.Stdout)
	log = logger.For(base, logger.APP)

	// ---- AWS SDK config ----
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}

	// ---- Clients ----
	history, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create history store")
	}
	storeLog := logger.For(base, logger.STORE)
	storeLog.Info().Str("table", cfg.StateTable).Msg("using dynamodb history store")

	// ---- Handler ----
	h, err := app.NewHandler(cfg, awsCfg, history, base)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create handler")
	}

	log.Info().Msg("lambda starting")
	lambda.Start(h.Handle)
}
