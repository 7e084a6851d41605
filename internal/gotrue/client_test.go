package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpilot/portal/internal/model"
)

const testAPIKey = "anon-key"

var testUserID = uuid.MustParse("8a0f3c0e-6a1b-4f5d-9a51-1b6e2c5d7f10")

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testUserID.String(),
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/auth/v1/", testAPIKey, srv.Client())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SignInWithPassword(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, testAPIKey, r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "Docs!Flow9x", body["password"])

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "bearer",
			"expires_in":    3600,
			"expires_at":    1_900_000_000,
			"user":          map[string]any{"id": testUserID, "email": "ada@example.com"},
		})
	})

	session, err := c.SignInWithPassword(context.Background(), "ada@example.com", "Docs!Flow9x")
	require.NoError(t, err)
	assert.Equal(t, "at", session.AccessToken)
	assert.Equal(t, "rt", session.RefreshToken)
	assert.Equal(t, 3600, session.ExpiresIn)
	assert.Equal(t, time.Unix(1_900_000_000, 0), session.ExpiresAt)
	assert.Equal(t, testUserID, session.User.ID)
}

func TestClient_ErrorDecoding(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   model.AuthError
	}{
		{
			name:   "current format",
			status: http.StatusUnprocessableEntity,
			body:   `{"code":422,"error_code":"weak_password","msg":"Password is known to be weak"}`,
			want:   model.AuthError{Status: 422, Code: "weak_password", Message: "Password is known to be weak"},
		},
		{
			name:   "oauth format",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_grant","error_description":"Invalid login credentials"}`,
			want:   model.AuthError{Status: 400, Code: "invalid_grant", Message: "Invalid login credentials"},
		},
		{
			name:   "message only",
			status: http.StatusTooManyRequests,
			body:   `{"message":"rate limit exceeded"}`,
			want:   model.AuthError{Status: 429, Message: "rate limit exceeded"},
		},
		{
			name:   "not json",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			want:   model.AuthError{Status: 502, Message: "Bad Gateway"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.SignInWithPassword(context.Background(), "a@b.co", "x")
			var authErr *model.AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.want, *authErr)
		})
	}
}

func TestClient_SignUp(t *testing.T) {
	t.Run("confirmation required", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/v1/signup", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, map[string]any{"full_name": "Ada Lovelace"}, body["data"])

			writeJSON(w, http.StatusOK, map[string]any{"id": testUserID, "email": "ada@example.com"})
		})

		user, err := c.SignUp(context.Background(), "ada@example.com", "Docs!Flow9x", map[string]any{"full_name": "Ada Lovelace"})
		require.NoError(t, err)
		assert.Equal(t, testUserID, user.ID)
	})

	t.Run("auto confirmed", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "at",
				"user":         map[string]any{"id": testUserID, "email": "ada@example.com"},
			})
		})

		user, err := c.SignUp(context.Background(), "ada@example.com", "Docs!Flow9x", nil)
		require.NoError(t, err)
		assert.Equal(t, testUserID, user.ID)
		assert.Equal(t, "ada@example.com", user.Email)
	})
}

func TestClient_Recover(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/recover", r.URL.Path)
		assert.Equal(t, "http://localhost:3000/reset-password", r.URL.Query().Get("redirect_to"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, c.Recover(context.Background(), "ada@example.com", "http://localhost:3000/reset-password"))
}

func TestClient_Logout(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		})
		require.NoError(t, c.Logout(context.Background(), "at"))
	})

	t.Run("unknown session is not an error", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"msg": "session not found"})
		})
		require.NoError(t, c.Logout(context.Background(), "at"))
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		require.Error(t, c.Logout(context.Background(), "at"))
	})
}

func TestConn_SetSession_ValidToken(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer "+access, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"id": testUserID, "email": "ada@example.com"})
	})

	conn := c.Open()
	require.NoError(t, conn.SetSession(context.Background(), access, "rt"))

	session, err := conn.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, access, session.AccessToken)
	assert.Equal(t, "rt", session.RefreshToken)
	assert.Equal(t, "ada@example.com", session.User.Email)
}

func TestConn_SetSession_ExpiredTokenRefreshes(t *testing.T) {
	access := signedToken(t, time.Now().Add(-time.Minute))

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "fresh",
			"refresh_token": "rt2",
			"expires_in":    3600,
			"user":          map[string]any{"id": testUserID},
		})
	})

	conn := c.Open()
	require.NoError(t, conn.SetSession(context.Background(), access, "rt"))

	session, err := conn.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", session.AccessToken)
}

func TestConn_SetSession_RejectedToken(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "invalid JWT: unable to parse or verify signature"})
	})

	conn := c.Open()
	err := conn.SetSession(context.Background(), access, "rt")

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)

	session, err := conn.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestConn_UpdateUser(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"password": "Docs!Flow9x"}, body)

		writeJSON(w, http.StatusOK, map[string]any{"id": testUserID})
	})

	conn := c.Restore(model.Session{AccessToken: "at", ExpiresAt: time.Now().Add(time.Hour)})
	require.NoError(t, conn.UpdateUser(context.Background(), model.UserAttributes{Password: "Docs!Flow9x"}))
}

func TestConn_UpdateUser_NoSession(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", testAPIKey, nil)

	err := c.Open().UpdateUser(context.Background(), model.UserAttributes{Password: "x"})

	var authErr *model.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Auth session missing!", authErr.Message)
}

func TestConn_SignOutClearsSession(t *testing.T) {
	calls := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	conn := c.Restore(model.Session{AccessToken: "at", ExpiresAt: time.Now().Add(time.Hour)})
	require.Error(t, conn.SignOut(context.Background()))

	session, err := conn.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)

	require.NoError(t, conn.SignOut(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := tokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = tokenExpiry("not-a-jwt")
	assert.False(t, ok)
}
