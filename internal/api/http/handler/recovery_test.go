package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/docpilot/portal/internal/authmsg"
	"github.com/docpilot/portal/internal/mocks"
	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/password"
	"github.com/docpilot/portal/internal/testutil"
)

const resetURL = "https://app.docpilot.io/reset-password#access_token=abcdefghijklmnop&refresh_token=qrstuvwxyz012&type=recovery"

func findCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == RecoveryCookie {
			return c
		}
	}
	return nil
}

func withSession(req *http.Request, key string) *http.Request {
	req.AddCookie(&http.Cookie{Name: RecoveryCookie, Value: key})
	return req
}

func TestRecovery_Begin(t *testing.T) {
	t.Run("sets session cookie", func(t *testing.T) {
		svc := mocks.NewRecoveryService(t)
		svc.On("Begin", mock.Anything, resetURL).
			Return(model.RecoveryTicket{SessionKey: "key-1", Email: "ada@example.com", TTL: time.Hour}, nil).Once()

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/recovery", strings.NewReader(`{"url":"`+resetURL+`"}`))
		NewRecovery(svc, true, testutil.MakeNoopLogger()).Begin(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "ada@example.com", decodeBody[beginResponse](t, rr).Email)

		c := findCookie(rr)
		require.NotNil(t, c)
		assert.Equal(t, "key-1", c.Value)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Equal(t, "/api/auth/recovery", c.Path)
		assert.Equal(t, 3600, c.MaxAge)
	})

	t.Run("malformed link", func(t *testing.T) {
		svc := mocks.NewRecoveryService(t)
		svc.On("Begin", mock.Anything, "https://x").
			Return(model.RecoveryTicket{}, model.NewFlowError(model.KindMalformedTokens, authmsg.MsgLinkMalformed, model.ErrMalformedTokens))

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/recovery", strings.NewReader(`{"url":"https://x"}`))
		NewRecovery(svc, false, testutil.MakeNoopLogger()).Begin(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		got := decodeError(t, rr)
		assert.Equal(t, "malformed_tokens", got.Code)
		assert.Equal(t, authmsg.MsgLinkMalformed, got.Message)
		assert.Nil(t, findCookie(rr))
	})

	t.Run("cookie expires with the session", func(t *testing.T) {
		svc := mocks.NewRecoveryService(t)
		svc.On("Begin", mock.Anything, resetURL).
			Return(model.RecoveryTicket{SessionKey: "key-2", Email: "ada@example.com", TTL: 30 * time.Minute}, nil).Once()

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/recovery", strings.NewReader(`{"url":"`+resetURL+`"}`))
		NewRecovery(svc, true, testutil.MakeNoopLogger()).Begin(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		c := findCookie(rr)
		require.NotNil(t, c)
		assert.Equal(t, 1800, c.MaxAge)
	})
}

func TestRecovery_Attempts(t *testing.T) {
	t.Run("reports remaining", func(t *testing.T) {
		svc := mocks.NewRecoveryService(t)
		svc.On("RemainingAttempts", mock.Anything, "key-1").Return(3, nil).Once()

		rr := httptest.NewRecorder()
		req := withSession(httptest.NewRequest(http.MethodGet, "/api/auth/recovery/attempts", nil), "key-1")
		NewRecovery(svc, false, testutil.MakeNoopLogger()).Attempts(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 3, decodeBody[attemptsResponse](t, rr).RemainingAttempts)
	})

	t.Run("no cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/recovery/attempts", nil)
		NewRecovery(mocks.NewRecoveryService(t), false, testutil.MakeNoopLogger()).Attempts(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestRecovery_UpdatePassword(t *testing.T) {
	form := password.Form{Password: "Docs!Flow9x", ConfirmPassword: "Docs!Flow9x"}
	body := `{"password":"Docs!Flow9x","confirm_password":"Docs!Flow9x"}`

	t.Run("success clears cookie", func(t *testing.T) {
		svc := mocks.NewRecoveryService(t)
		svc.On("UpdatePassword", mock.Anything, "key-1", form).Return(nil).Once()

		rr := httptest.NewRecorder()
		req := withSession(httptest.NewRequest(http.MethodPost, "/api/auth/recovery/password", strings.NewReader(body)), "key-1")
		NewRecovery(svc, false, testutil.MakeNoopLogger()).UpdatePassword(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		c := findCookie(rr)
		require.NotNil(t, c)
		assert.Equal(t, -1, c.MaxAge)
	})

	t.Run("no cookie is unauthorized", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/recovery/password", strings.NewReader(body))
		NewRecovery(mocks.NewRecoveryService(t), false, testutil.MakeNoopLogger()).UpdatePassword(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		got := decodeError(t, rr)
		assert.Equal(t, "session_unverifiable", got.Code)
		assert.Equal(t, authmsg.MsgSessionExpired, got.Message)
	})

	t.Run("rate limited", func(t *testing.T) {
		msg := "Too many attempts. 0 attempts remaining. Please try again in 15 minutes."
		svc := mocks.NewRecoveryService(t)
		svc.On("UpdatePassword", mock.Anything, "key-1", form).
			Return(&model.FlowError{Kind: model.KindRateLimited, Message: msg})

		rr := httptest.NewRecorder()
		req := withSession(httptest.NewRequest(http.MethodPost, "/api/auth/recovery/password", strings.NewReader(body)), "key-1")
		NewRecovery(svc, false, testutil.MakeNoopLogger()).UpdatePassword(rr, req)

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, msg, decodeError(t, rr).Message)
		assert.Nil(t, findCookie(rr))
	})

	t.Run("policy violation", func(t *testing.T) {
		svc := mocks.NewRecoveryService(t)
		svc.On("UpdatePassword", mock.Anything, "key-1", mock.Anything).
			Return(model.NewFlowError(model.KindPasswordPolicyViolation, password.MsgMismatch, nil))

		rr := httptest.NewRecorder()
		req := withSession(httptest.NewRequest(http.MethodPost, "/api/auth/recovery/password",
			strings.NewReader(`{"password":"Docs!Flow9x","confirm_password":"other"}`)), "key-1")
		NewRecovery(svc, false, testutil.MakeNoopLogger()).UpdatePassword(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, password.MsgMismatch, decodeError(t, rr).Message)
	})

	t.Run("expired session clears cookie", func(t *testing.T) {
		svc := mocks.NewRecoveryService(t)
		svc.On("UpdatePassword", mock.Anything, "key-1", form).
			Return(model.NewFlowError(model.KindSessionUnverifiable, "expired", model.ErrNotFound))

		rr := httptest.NewRecorder()
		req := withSession(httptest.NewRequest(http.MethodPost, "/api/auth/recovery/password", strings.NewReader(body)), "key-1")
		NewRecovery(svc, false, testutil.MakeNoopLogger()).UpdatePassword(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		c := findCookie(rr)
		require.NotNil(t, c)
		assert.Equal(t, -1, c.MaxAge)
	})

	t.Run("internal failure", func(t *testing.T) {
		svc := mocks.NewRecoveryService(t)
		svc.On("UpdatePassword", mock.Anything, "key-1", form).Return(errors.New("redis down"))

		rr := httptest.NewRecorder()
		req := withSession(httptest.NewRequest(http.MethodPost, "/api/auth/recovery/password", strings.NewReader(body)), "key-1")
		NewRecovery(svc, false, testutil.MakeNoopLogger()).UpdatePassword(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
