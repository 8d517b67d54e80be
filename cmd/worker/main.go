package main

import (
	"benzback/config"
	"benzback/di"
	"benzback/shared/logger"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()

	logger.SetLogLevel(cfg)

	scheduler := di.InitializeWorker()
	scheduler.Start()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	sig := <-signals
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal.")

	scheduler.Stop()
}
