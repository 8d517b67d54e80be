package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benzback/config"
	"benzback/infras/jwt"
	otelMocks "benzback/infras/otel/mocks"
	"benzback/permissions"
	"benzback/shared/constant"
	"benzback/transport/http/middleware"
)

const apiKey = "internal-key"

func newProtectedRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	perms := permissions.Get()
	require.NotNil(t, perms)

	authRole := middleware.NewAuthRoleMiddleware(jwt.New(cfg), otelMocks.NewOtel(), perms, cfg)

	ok := func(writer http.ResponseWriter, request *http.Request) {
		userID, _ := request.Context().Value(constant.ContextKeyUserID).(string)
		writer.Header().Set("X-User", userID)
		writer.WriteHeader(http.StatusNoContent)
	}

	router := chi.NewRouter()
	router.Use(authRole.APIKey, authRole.Auth, authRole.RBAC)
	router.Get("/v1/bookings/{id}", ok)
	router.Post("/v1/payments/webhook", ok)
	router.Post("/v1/drivers/{driver_id}/heartbeat", ok)

	return router
}

func TestAuthRole(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Name = "benzback"
	cfg.App.APIKey = apiKey
	cfg.JWT.AccessSecret = "secret"
	cfg.JWT.AccessExpireMin = 15

	issuer := jwt.New(cfg)

	token := func(role string) string {
		signed, err := issuer.GenerateAccessToken("u-"+role, role+"@example.com", role)
		require.NoError(t, err)

		return "Bearer " + signed
	}

	tests := []struct {
		name     string
		method   string
		target   string
		headers  map[string]string
		wantCode int
		wantUser string
	}{
		{
			name:     "missing token",
			method:   http.MethodGet,
			target:   "/v1/bookings/b-1",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "malformed header",
			method:   http.MethodGet,
			target:   "/v1/bookings/b-1",
			headers:  map[string]string{constant.RequestHeaderAuthorization: "Token abc"},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "token with unknown role",
			method:   http.MethodGet,
			target:   "/v1/bookings/b-1",
			headers:  map[string]string{constant.RequestHeaderAuthorization: token("guest")},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "renter reads a booking",
			method:   http.MethodGet,
			target:   "/v1/bookings/b-1",
			headers:  map[string]string{constant.RequestHeaderAuthorization: token(constant.RoleRenter)},
			wantCode: http.StatusNoContent,
			wantUser: "u-renter",
		},
		{
			name:     "renter cannot send heartbeats",
			method:   http.MethodPost,
			target:   "/v1/drivers/d-1/heartbeat",
			headers:  map[string]string{constant.RequestHeaderAuthorization: token(constant.RoleRenter)},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "driver sends heartbeats",
			method:   http.MethodPost,
			target:   "/v1/drivers/d-1/heartbeat",
			headers:  map[string]string{constant.RequestHeaderAuthorization: token(constant.RoleDriver)},
			wantCode: http.StatusNoContent,
		},
		{
			name:     "webhook with api key skips user auth",
			method:   http.MethodPost,
			target:   "/v1/payments/webhook",
			headers:  map[string]string{constant.RequestHeaderAPIKey: apiKey},
			wantCode: http.StatusNoContent,
		},
		{
			name:     "webhook with wrong api key",
			method:   http.MethodPost,
			target:   "/v1/payments/webhook",
			headers:  map[string]string{constant.RequestHeaderAPIKey: "guess"},
			wantCode: http.StatusForbidden,
		},
		{
			name:     "webhook rejects renters",
			method:   http.MethodPost,
			target:   "/v1/payments/webhook",
			headers:  map[string]string{constant.RequestHeaderAuthorization: token(constant.RoleRenter)},
			wantCode: http.StatusForbidden,
		},
	}

	router := newProtectedRouter(t, cfg)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(tt.method, tt.target, nil)
			for key, value := range tt.headers {
				request.Header.Set(key, value)
			}

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantCode, recorder.Code)

			if tt.wantUser != "" {
				assert.Equal(t, tt.wantUser, recorder.Header().Get("X-User"))
			}
		})
	}
}
