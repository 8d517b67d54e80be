package main

import (
	"benzback/config"
	"benzback/di"
	"benzback/helper"
	"benzback/shared/logger"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	server := di.InitializeService()
	server.Serve()
}
