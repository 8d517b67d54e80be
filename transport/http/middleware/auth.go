package middleware

import (
	"benzback/config"
	"benzback/infras/jwt"
	"benzback/infras/otel"
	"benzback/permissions"
	"benzback/shared/constant"
	"benzback/shared/failure"
	"benzback/transport/http/response"
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type SkipAuthKey string

const skipAuth = SkipAuthKey("skip")

var knownRoles = []string{constant.RoleRenter, constant.RoleDriver, constant.RoleAdmin}

type Auth interface {
	Auth(http.Handler) http.Handler
	APIKey(http.Handler) http.Handler
}

type Role interface {
	RBAC(http.Handler) http.Handler
}

// AuthRole authenticates renters, drivers and admins by bearer token and internal callers
// (the payment provider webhook) by API key, then checks the route's allowed roles.
type AuthRole interface {
	Auth
	Role
}

type authRoleImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
	permission *permissions.PermissionData
	cfg        *config.Config
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, otel otel.Otel, permissions *permissions.PermissionData, cfg *config.Config) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		otel:       otel,
		permission: permissions,
		cfg:        cfg,
	}
}

// routePattern resolves the full chi pattern of the request, e.g. /v1/bookings/{id}.
func routePattern(request *http.Request) string {
	rctx := chi.RouteContext(request.Context())
	if rctx == nil {
		return request.URL.Path
	}

	return rctx.Routes.Find(chi.NewRouteContext(), request.Method, request.URL.Path)
}

func skipped(request *http.Request) bool {
	skip, _ := request.Context().Value(skipAuth).(bool)

	return skip
}

func reject(writer http.ResponseWriter, scope otel.Scope, err error) {
	scope.TraceError(err)
	scope.End()
	response.WithError(writer, err)
}

func tokenFailure(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return failure.Unauthorized("Token has expired")
	case errors.Is(err, jwt.ErrInvalidToken):
		return failure.Unauthorized("Invalid token")
	default:
		return failure.Unauthorized("Token validation failed")
	}
}

// Auth validates the bearer token and stores the caller's id, email and role in the
// request context.
func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "auth.middleware")

		path := routePattern(request)

		if skipped(request) || (m.permission != nil && m.permission.FindPermissions(path, request.Method).Skip) {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		scope.SetAttributes(map[string]any{
			"middleware.type": "auth",
			"http.path":       path,
			"http.method":     request.Method,
		})

		authHeader := request.Header.Get(constant.RequestHeaderAuthorization)
		if authHeader == "" {
			reject(writer, scope, failure.Unauthorized("Missing authorization header"))

			return
		}

		tokenString, err := jwt.ExtractTokenFromHeader(authHeader)
		if err != nil {
			reject(writer, scope, failure.Unauthorized("Invalid authorization header format"))

			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			reject(writer, scope, tokenFailure(err))

			return
		}

		if claims.UserID == "" || !slices.Contains(knownRoles, claims.Role) {
			log.Warn().Str("user_id", claims.UserID).Str("role", claims.Role).Msg("token carries incomplete claims")
			reject(writer, scope, failure.Unauthorized("Invalid token claims"))

			return
		}

		ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, constant.ContextKeyUserEmail, claims.Email)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, claims.Role)
		ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.ID)

		scope.SetAttribute("user_role", claims.Role)
		scope.End()

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// RBAC checks the caller's role against the route's entry in permissions.json. It must run
// after Auth.
func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "rbac.middleware")

		if m.permission == nil {
			reject(writer, scope, failure.ForbiddenError)

			return
		}

		path := routePattern(request)
		permission := m.permission.FindPermissions(path, request.Method)

		if skipped(request) || m.permission.Skip || permission.Skip {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		if !m.permission.Has(path, request.Method) {
			log.Warn().Str("path", path).Str("method", request.Method).Msg("route has no permission entry")
		}

		userRole, _ := request.Context().Value(constant.ContextKeyUserRole).(string)

		if !permission.Allows(userRole) {
			scope.SetAttributes(map[string]any{
				"user_role":     userRole,
				"allowed_roles": permission.Permissions,
				"reason":        "role_not_allowed",
			})
			reject(writer, scope, failure.ForbiddenError)

			return
		}

		scope.End()
		next.ServeHTTP(writer, request)
	})
}

// APIKey lets internal callers skip Auth and RBAC. Requests without the header continue as
// regular clients; a wrong key is refused outright.
func (m *authRoleImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "api_key.middleware")

		apiKey := request.Header.Get(constant.RequestHeaderAPIKey)
		if apiKey == "" {
			scope.SetAttribute("http.source", "client")
			scope.End()
			next.ServeHTTP(writer, request.WithContext(context.WithValue(ctx, skipAuth, false)))

			return
		}

		scope.SetAttribute("http.source", "internal")

		if m.cfg.App.APIKey == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(m.cfg.App.APIKey)) != 1 {
			reject(writer, scope, failure.ForbiddenError)

			return
		}

		scope.End()
		next.ServeHTTP(writer, request.WithContext(context.WithValue(ctx, skipAuth, true)))
	})
}
