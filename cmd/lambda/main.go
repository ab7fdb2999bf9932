package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"support-chat/internal/config"
	"support-chat/internal/logging"
	"support-chat/internal/server"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger, _, err := logging.Init(cfg.Logging, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure logging")
	}

	// ---- Handler ----
	h, err := server.Build(ctx, cfg, server.DefaultAWSConfig, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build chat handler")
	}

	lambda.Start(h.Handle)
}
