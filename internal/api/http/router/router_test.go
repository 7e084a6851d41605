package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/docpilot/portal/internal/api/http/apierror"
	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/mocks"
	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/password"
	"github.com/docpilot/portal/internal/telemetry"
	"github.com/docpilot/portal/internal/testutil"
)

type fixture struct {
	handler  http.Handler
	auth     *mocks.AuthService
	recovery *mocks.RecoveryService
	settings *mocks.SettingsService
	verifier *mocks.TokenVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		auth:     mocks.NewAuthService(t),
		recovery: mocks.NewRecoveryService(t),
		settings: mocks.NewSettingsService(t),
		verifier: mocks.NewTokenVerifier(t),
	}
	r := New(
		Services{Auth: f.auth, Recovery: f.recovery, Settings: f.settings},
		f.verifier,
		apictx.NewManager(),
		telemetry.NewMetrics(),
		Options{
			AllowedOrigins: []string{"https://docpilot.io"},
			SecureCookies:  true,
			MaxAvatarSize:  2 << 20,
		},
		testutil.MakeNoopLogger(),
	)
	f.handler = r.Register()
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Healthz(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestRouter_Metrics(t *testing.T) {
	f := newFixture(t)
	f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `docpilot_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}

func TestRouter_RecoveryFlow(t *testing.T) {
	f := newFixture(t)

	f.recovery.On("Begin", mock.Anything, "https://docpilot.io/reset-password#access_token=x").
		Return(model.RecoveryTicket{SessionKey: "key-1", Email: "ada@example.com", TTL: time.Hour}, nil).Once()
	rr := f.do(httptest.NewRequest(http.MethodPost, "/api/auth/recovery",
		strings.NewReader(`{"url":"https://docpilot.io/reset-password#access_token=x"}`)))
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	f.recovery.On("UpdatePassword", mock.Anything, "key-1", password.Form{Password: "Docs!Flow9x", ConfirmPassword: "Docs!Flow9x"}).
		Return(nil).Once()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/recovery/password",
		strings.NewReader(`{"password":"Docs!Flow9x","confirm_password":"Docs!Flow9x"}`))
	req.AddCookie(cookies[0])

	rr = f.do(req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRouter_PasswordWithoutCookie(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodPost, "/api/auth/recovery/password",
		strings.NewReader(`{"password":"Docs!Flow9x","confirm_password":"Docs!Flow9x"}`)))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var env apierror.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "session_unverifiable", env.Error.Code)
	assert.Equal(t, rr.Header().Get("X-Request-Id"), env.Error.RequestID)
}

func TestRouter_AccountRequiresBearer(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/account/settings", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	userID := uuid.New()
	f.verifier.On("VerifyAccessToken", "good").Return(model.Identity{UserID: userID}, nil).Once()
	f.settings.On("Get", mock.Anything, userID).Return(model.DefaultAccountSettings(userID), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/account/settings", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr = f.do(req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_SignOutRequiresBearer(t *testing.T) {
	f := newFixture(t)

	rr := f.do(httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/signin", nil)
	req.Header.Set("Origin", "https://docpilot.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := f.do(req)

	assert.Equal(t, "https://docpilot.io", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newFixture(t)
	rr := f.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
