package server

import (
	"PoolServer/config"
	"PoolServer/pool"
	"context"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"net"
	"testing"
	"time"
)

func newBufconnClient(t *testing.T, s *Server) *ControlClient {
	t.Helper()

	listener := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger))
	RegisterControlServer(grpcServer, &controlService{server: s})
	go grpcServer.Serve(listener)
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return NewControlClient(conn)
}

func TestControlStats(t *testing.T) {
	s := NewServer(config.Default())
	s.pool = pool.NewDefaultWorkerPool(3)
	defer s.pool.Close()

	release := make(chan struct{})
	started := make(chan struct{})
	s.pool.Submit(func() {
		close(started)
		<-release
	})
	<-started
	defer close(release)

	client := newBufconnClient(t, s)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := client.Stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fields := stats.AsMap()
	tests := []struct {
		key      string
		expected float64
	}{
		{"workers", 3},
		{"alive", 3},
		{"busy", 1},
		{"submitted", 1},
		{"completed", 0},
		{"failed", 0},
	}
	for _, tt := range tests {
		if got, ok := fields[tt.key].(float64); !ok || got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.key, tt.expected, fields[tt.key])
		}
	}
}

func TestControlShutdownCancelsServe(t *testing.T) {
	s := NewServer(config.Default())
	s.pool = pool.NewDefaultWorkerPool(1)
	defer s.pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.cancel = cancel

	client := newBufconnClient(t, s)
	if err := client.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Shutdown to cancel the serving context")
	}
}
