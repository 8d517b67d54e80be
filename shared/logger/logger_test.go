package logger_test

import (
	"benzback/config"
	"benzback/shared/constant"
	"benzback/shared/logger"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func restoreLogger(t *testing.T) {
	t.Helper()

	original := log.Logger
	level := zerolog.GlobalLevel()

	t.Cleanup(func() {
		log.Logger = original
		zerolog.SetGlobalLevel(level)
	})
}

func TestInitLogger(t *testing.T) {
	restoreLogger(t)

	logger.InitLogger()

	assert.Equal(t, zerolog.TimeFormatUnix, zerolog.TimeFieldFormat)
	assert.Equal(t, zerolog.TraceLevel, zerolog.GlobalLevel())
}

func TestErrorWithStack(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	log.Logger = log.Output(&buf)

	logger.ErrorWithStack(errors.New("failed to prepare booking query"))

	assert.Contains(t, buf.String(), "failed to prepare booking query")
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		logLevel string
		want     zerolog.Level
	}{
		{logLevel: "debug", want: zerolog.DebugLevel},
		{logLevel: "warn", want: zerolog.WarnLevel},
		{logLevel: "disabled", want: zerolog.Disabled},
		{logLevel: "invalid_level", want: zerolog.TraceLevel},
		{logLevel: "", want: zerolog.NoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			restoreLogger(t)

			cfg := &config.Config{}
			cfg.Server.LogLevel = tt.logLevel

			logger.SetLogLevel(cfg)

			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestSetOutput_JSONOutsideDevelopment(t *testing.T) {
	restoreLogger(t)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := &config.Config{}
	cfg.Server.Env = "production"
	cfg.App.Name = "benzback"

	var buf bytes.Buffer
	logger.SetOutput(cfg, &buf)

	log.Info().Str("booking_id", "b-1").Msg("booking confirmed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "benzback", line["service"])
	assert.Equal(t, "b-1", line["booking_id"])
	assert.Equal(t, "booking confirmed", line["message"])
}

func TestSetOutput_ConsoleInDevelopment(t *testing.T) {
	restoreLogger(t)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := &config.Config{}
	cfg.Server.Env = constant.ServerEnvDevelopment

	var buf bytes.Buffer
	logger.SetOutput(cfg, &buf)

	log.Info().Msg("booking confirmed")

	assert.Contains(t, buf.String(), "booking confirmed")
	assert.False(t, json.Valid(buf.Bytes()))
}

func TestCtx(t *testing.T) {
	restoreLogger(t)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.Ctx(ctx).Info().Msg("relayed")
	logger.Ctx(context.Background()).Info().Msg("untraced")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var traced, untraced map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &traced))
	require.NoError(t, json.Unmarshal(lines[1], &untraced))

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", traced["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", traced["span_id"])
	assert.NotContains(t, untraced, "trace_id")
}
