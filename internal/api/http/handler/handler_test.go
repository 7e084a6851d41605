package handler

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docpilot/portal/internal/api/http/apierror"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apierror.APIError {
	t.Helper()
	var env apierror.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env.Error
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}
