package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpilot/portal/internal/mocks"
)

func TestHTTPServer_ServesAndStops(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	sec := mocks.NewSecurityLayer(t)
	sec.On("Listen", "tcp", ":8080").Return(ln, nil)

	srv := NewHTTPServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}), ":8080")
	assert.Equal(t, ":8080", srv.Address())

	done := make(chan error, 1)
	go func() { done <- srv.Start(sec) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "ok"
	}, 2e9, 1e7)

	require.NoError(t, srv.Stop(context.Background()))
	assert.NoError(t, <-done)
}

func TestHTTPServer_ListenError(t *testing.T) {
	sec := mocks.NewSecurityLayer(t)
	sec.On("Listen", "tcp", ":1").Return(nil, errors.New("denied"))

	err := NewHTTPServer(http.NotFoundHandler(), ":1").Start(sec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
