package router

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/testutil"
)

func dial(t *testing.T, r *Router) healthpb.HealthClient {
	t.Helper()

	ln := bufconn.Listen(1 << 20)
	s := r.Register()
	go func() { _ = s.Serve(ln) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return ln.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return healthpb.NewHealthClient(conn)
}

func TestRouter_HealthServing(t *testing.T) {
	client := dial(t, New(nil, testutil.MakeNoopLogger()))

	for _, svc := range []string{"", ServiceName} {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
	}
}

func TestRouter_ProbeMarksNotServing(t *testing.T) {
	healthy := true
	r := New(map[string]model.Pinger{
		"database": model.PingFunc(func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("connection refused")
		}),
	}, testutil.MakeNoopLogger())
	client := dial(t, r)

	healthy = false
	r.Probe(context.Background())

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	healthy = true
	r.Probe(context.Background())

	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestRouter_ShutdownReportsNotServing(t *testing.T) {
	r := New(nil, testutil.MakeNoopLogger())
	client := dial(t, r)

	r.Shutdown()

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)
}
