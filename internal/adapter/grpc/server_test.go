package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/simaogato/finflow-backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T) (*Server, healthpb.HealthClient) {
	t.Helper()
	srv, conn := startServerConn(t)
	return srv, healthpb.NewHealthClient(conn)
}

func startServerConn(t *testing.T) (*Server, *grpc.ClientConn) {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := NewServer("test-token", logger.NewTestLogger(t))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return srv, conn
}

func checkHealth(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.Status
}

func TestServer_HealthFollowsServingState(t *testing.T) {
	srv, client := startServer(t)

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkHealth(t, client))

	srv.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, client))

	srv.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkHealth(t, client))
}

func TestServer_MonitorStorage(t *testing.T) {
	srv, client := startServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	healthy := make(chan bool, 1)
	healthy <- true
	probe := func(ctx context.Context) error {
		select {
		case ok := <-healthy:
			if !ok {
				return errors.New("connection refused")
			}
		default:
		}
		return nil
	}

	go srv.MonitorStorage(ctx, probe, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		return checkHealth(t, client) == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_ReflectionRequiresToken(t *testing.T) {
	_, conn := startServerConn(t)
	client := reflectionpb.NewServerReflectionClient(conn)

	listServices := func(ctx context.Context) (*reflectionpb.ServerReflectionResponse, error) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		stream, err := client.ServerReflectionInfo(ctx)
		if err != nil {
			return nil, err
		}
		_ = stream.Send(&reflectionpb.ServerReflectionRequest{
			MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{ListServices: "*"},
		})
		return stream.Recv()
	}

	_, err := listServices(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	resp, err := listServices(metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer test-token"))
	require.NoError(t, err)

	var names []string
	for _, svc := range resp.GetListServicesResponse().GetService() {
		names = append(names, svc.GetName())
	}
	assert.Contains(t, names, "grpc.health.v1.Health")
}
