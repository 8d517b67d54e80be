package http

import (
	"benzback/config"
	"benzback/infras/otel"
	"benzback/shared/constant"
	"benzback/transport/http/middleware"
	"benzback/transport/http/response"
	"benzback/transport/http/router"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type ServerState int32

const (
	ServerStateReady ServerState = iota + 1
	ServerStateInGracePeriod
	ServerStateInCleanupPeriod
)

const (
	defaultHost       = "0.0.0.0"
	readHeaderTimeout = 10 * time.Second
	healthPath        = "/health"
	messageHealthy    = "ok"
)

type HTTP struct {
	Config     *config.Config
	Router     router.Router
	app        middleware.AppMiddleware
	authRole   middleware.AuthRole
	otel       otel.Otel
	state      atomic.Int32
	mux        *chi.Mux
	server     *http.Server
	setupOnce  sync.Once
	shutdownCh chan os.Signal
}

func New(cfg *config.Config, r router.Router, app middleware.AppMiddleware, authRole middleware.AuthRole, otel otel.Otel) *HTTP {
	return &HTTP{
		Config:   cfg,
		Router:   r,
		app:      app,
		authRole: authRole,
		otel:     otel,
	}
}

func (h *HTTP) State() ServerState {
	return ServerState(h.state.Load())
}

func (h *HTTP) Serve() {
	h.setupOnce.Do(h.setup)

	host := h.Config.Server.Host
	if host == "" {
		host = defaultHost
	}

	h.server = &http.Server{
		Addr:              net.JoinHostPort(host, h.Config.Server.Port),
		Handler:           h.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	h.setupGracefulShutdown()

	log.Info().Str("port", h.Config.Server.Port).Msg("Starting up HTTP server.")

	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}

	log.Info().Msg("HTTP server stopped.")
}

// ServeHTTP lets the server run behind an external listener, such as a serverless runtime.
func (h *HTTP) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	h.setupOnce.Do(h.setup)
	h.mux.ServeHTTP(writer, request)
}

func (h *HTTP) setup() {
	h.mux = chi.NewRouter()

	h.mux.Use(chiMiddleware.RealIP)
	h.mux.Use(chiMiddleware.Recoverer)

	if h.Config.App.CORS.Enable {
		h.mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.Config.App.CORS.AllowedOrigins,
			AllowedMethods:   h.Config.App.CORS.AllowedMethods,
			AllowedHeaders:   h.Config.App.CORS.AllowedHeaders,
			AllowCredentials: h.Config.App.CORS.AllowCredentials,
			MaxAge:           h.Config.App.CORS.MaxAgeSeconds,
		}))
	}

	h.mux.Use(h.app.Tracing)
	h.mux.Use(h.drain)

	h.mux.Get(healthPath, h.health)

	h.mux.Group(func(routerGroup chi.Router) {
		routerGroup.Use(h.app.RateLimit())
		routerGroup.Use(h.authRole.APIKey)
		routerGroup.Use(h.authRole.Auth)
		routerGroup.Use(h.authRole.RBAC)

		h.Router.SetupRoutes(routerGroup)
	})

	h.state.Store(int32(ServerStateReady))
}

func (h *HTTP) health(writer http.ResponseWriter, _ *http.Request) {
	if h.State() != ServerStateReady {
		response.WithUnhealthy(writer)

		return
	}

	response.WithMessage(writer, http.StatusOK, messageHealthy)
}

// drain rejects new work once the server has entered its cleanup period.
func (h *HTTP) drain(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if h.State() == ServerStateInCleanupPeriod && request.URL.Path != healthPath {
			response.WithPreparingShutdown(writer)

			return
		}

		next.ServeHTTP(writer, request)
	})
}

func (h *HTTP) setupGracefulShutdown() {
	h.shutdownCh = make(chan os.Signal, 1)

	signal.Notify(h.shutdownCh, os.Interrupt, syscall.SIGTERM)

	go h.respondToSigterm(h.shutdownCh)
}

func (h *HTTP) respondToSigterm(done chan os.Signal) {
	<-done

	shutdownConfig := h.Config.Server.Shutdown

	if h.Config.Server.Env == constant.ServerEnvDevelopment {
		log.Warn().Msg("Received SIGTERM. Shutting down now.")
		h.shutdown(time.Second)

		return
	}

	log.Info().Msg("Received SIGTERM.")
	log.Info().Int64("seconds", shutdownConfig.GracePeriodSeconds).Msg("Entering grace period.")

	h.state.Store(int32(ServerStateInGracePeriod))

	time.Sleep(time.Duration(shutdownConfig.GracePeriodSeconds) * time.Second)

	log.Info().Int64("seconds", shutdownConfig.CleanupPeriodSeconds).Msg("Entering cleanup period.")

	h.state.Store(int32(ServerStateInCleanupPeriod))

	h.shutdown(time.Duration(shutdownConfig.CleanupPeriodSeconds) * time.Second)

	log.Info().Msg("Cleaning up completed. Shutting down now.")
}

// shutdown waits up to timeout for in-flight requests before closing connections.
func (h *HTTP) shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), max(timeout, time.Second))
	defer cancel()

	if err := h.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server did not shut down cleanly")
	}

	if err := h.otel.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to flush traces")
	}
}
