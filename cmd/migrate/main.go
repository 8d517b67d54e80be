package main

import (
	"benzback/config"
	"benzback/helper"
	"benzback/shared/logger"
	"os"

	"github.com/rs/zerolog/log"
)

const (
	argLength = 2
)

func main() {
	logger.InitLogger()

	if len(os.Args) < argLength {
		log.Fatal().Msg("Migration action is required: up, down, step-up, drop or version")
	}

	cfg := config.Get()

	logger.SetLogLevel(cfg)

	switch action := os.Args[1]; action {
	case helper.ActionUp, helper.ActionDown, helper.ActionStepUp, helper.ActionDrop, helper.ActionVersion:
		if err := helper.Runner(cfg, action); err != nil {
			log.Fatal().Err(err).Str("action", action).Msg("Migration failed")
		}
	default:
		log.Fatal().Str("action", action).Msg("Invalid action. Use 'up', 'down', 'step-up', 'drop' or 'version'")
	}
}
