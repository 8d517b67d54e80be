package logger

import (
	"benzback/config"
	"benzback/shared/constant"
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

const (
	fieldService = "service"
	fieldTraceID = "trace_id"
	fieldSpanID  = "span_id"
)

// InitLogger installs a console logger at trace level so configuration loading is visible.
// SetLogLevel narrows it once the configuration is known.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	log.Trace().Msg("Zerolog initialized.")
}

func ErrorWithStack(err error) {
	log.Error().Msgf("%+v", errors.WithStack(err))
}

// SetLogLevel applies the configured level. Outside development the console writer is
// replaced with JSON lines tagged with the service name.
func SetLogLevel(config *config.Config) {
	SetOutput(config, os.Stdout)

	level, err := zerolog.ParseLevel(config.Server.LogLevel)
	if err != nil {
		level = zerolog.TraceLevel
		log.Trace().Str("loglevel", level.String()).Msg("Environment has no log level set up, using default.")
	} else {
		log.Trace().Str("loglevel", level.String()).Msg("Desired log level detected.")
	}

	zerolog.SetGlobalLevel(level)
}

func SetOutput(config *config.Config, out io.Writer) {
	if config.Server.Env == constant.ServerEnvDevelopment {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

		return
	}

	log.Logger = zerolog.New(out).With().Timestamp().Str(fieldService, config.App.Name).Logger()
}

// Ctx returns the global logger annotated with the trace and span of ctx, when ctx carries
// a sampled span.
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return &log.Logger
	}

	logger := log.With().
		Str(fieldTraceID, spanCtx.TraceID().String()).
		Str(fieldSpanID, spanCtx.SpanID().String()).
		Logger()

	return &logger
}
