package middleware

import (
	"benzback/config"
	"benzback/infras/otel"
	"benzback/shared/cache"
	"benzback/shared/constant"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	otelHTTPScopeName = "http"
)

var errServerFault = errors.New("server responded with a fault")

type AppMiddleware interface {
	Tracing(next http.Handler) http.Handler
	RateLimit() func(http.Handler) http.Handler
}

type appMiddleware struct {
	otel   otel.Otel
	config *config.Config
	cache  cache.RedisCache
}

func NewAppMiddleware(otel otel.Otel, config *config.Config, cache cache.RedisCache) AppMiddleware {
	return &appMiddleware{
		otel:   otel,
		config: config,
		cache:  cache,
	}
}

func (a *appMiddleware) Tracing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := otelapi.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, scope := a.otel.NewScope(parent, otelHTTPScopeName, fmt.Sprintf("%s %s", r.Method, r.URL.Path))
		defer scope.End()

		scope.SetAttributes(map[string]any{
			"app.name":        a.config.App.Name,
			"http.path":       r.URL.Path,
			"http.method":     r.Method,
			"http.user_agent": a.getUA(r),
			"http.host":       r.Host,
			"http.source":     a.getClientIP(r),
		})

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		attributes := map[string]any{
			"http.status_code": ww.Status(),
		}

		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != constant.Empty {
			attributes["http.route"] = rctx.RoutePattern()
		}

		scope.SetAttributes(attributes)

		if ww.Status() >= http.StatusInternalServerError {
			scope.TraceError(fmt.Errorf("%w: %d", errServerFault, ww.Status()))
		}
	})
}
