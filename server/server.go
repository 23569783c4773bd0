package server

import (
	"PoolServer/config"
	"PoolServer/log"
	"PoolServer/metrics"
	"PoolServer/pool"
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

type Server struct {
	config   *config.Config
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	listener net.Listener

	controlListener net.Listener
	grpcServer      *grpc.Server
	healthServer    *health.Server

	adminListener net.Listener
	adminServer   *http.Server

	pool     pool.WorkerPool
	draining atomic.Bool

	cancelLock sync.Mutex
	cancel     context.CancelFunc
}

func NewServer(cfg *config.Config) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		config:   cfg,
		registry: registry,
		metrics:  metrics.New(registry),
	}
}

// Initialize opens every listener. Nothing is served until Serve is called.
func (s *Server) Initialize() error {
	log.L().Debug("Initializing server", zap.String("listenAddress", s.config.ListenAddress))

	listener, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = listener

	if s.config.ControlAddress != "" {
		controlListener, err := net.Listen("tcp", s.config.ControlAddress)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("failed to listen on control address %s: %w", s.config.ControlAddress, err)
		}
		s.controlListener = controlListener

		s.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger))
		RegisterControlServer(s.grpcServer, &controlService{server: s})
		s.healthServer = health.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.healthServer)
	}

	if s.config.AdminAddress != "" {
		adminListener, err := net.Listen("tcp", s.config.AdminAddress)
		if err != nil {
			s.closeListeners()
			return fmt.Errorf("failed to listen on admin address %s: %w", s.config.AdminAddress, err)
		}
		s.adminListener = adminListener
		s.adminServer = &http.Server{
			Handler:           s.adminRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return nil
}

// Serve accepts connections and hands each one to the worker pool as a job until ctx is
// cancelled or a shutdown is requested. It always drains and joins the pool before returning.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not initialized")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelLock.Lock()
	s.cancel = cancel
	s.cancelLock.Unlock()

	s.pool = pool.NewDefaultWorkerPool(s.config.Workers,
		pool.WithPanicPolicy(s.config.PoolPanicPolicy()),
		pool.WithObserver(s.metrics))
	defer s.teardown()

	if s.grpcServer != nil {
		s.healthServer.SetServingStatus(ControlServiceName, healthpb.HealthCheckResponse_SERVING)
		go func() {
			log.L().Info("Starting control service", zap.String("controlAddress", s.controlListener.Addr().String()))
			if err := s.grpcServer.Serve(s.controlListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.L().Error("Control service stopped", zap.Error(err))
			}
		}()
	}

	if s.adminServer != nil {
		go func() {
			log.L().Info("Starting admin server", zap.String("adminAddress", s.adminListener.Addr().String()))
			if err := s.adminServer.Serve(s.adminListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.L().Error("Admin server stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	log.L().Info("Starting server", zap.String("listenAddress", s.listener.Addr().String()), zap.Int("workers", s.config.Workers))
	return s.acceptLoop(ctx)
}

func (s *Server) acceptLoop(ctx context.Context) error {
	var delay time.Duration

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(2*delay, maxAcceptDelay)
			}
			log.L().Warn("Accept failed, retrying", zap.Error(err), zap.Duration("delay", delay))

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		delay = 0

		s.metrics.ConnectionAccepted()
		connectionID := uuid.New()
		log.L().Debug("Accepted connection", zap.String("connectionID", connectionID.String()), zap.String("remoteAddress", conn.RemoteAddr().String()))

		if _, err := s.pool.Submit(s.connectionTask(connectionID, conn)); err != nil {
			log.L().Error("Cannot submit connection", zap.String("connectionID", connectionID.String()), zap.Error(err))
			conn.Close()
		}
	}
}

// Addr returns the address the TCP listener is bound to.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// ControlAddr returns the address of the control service, or nil if it is disabled.
func (s *Server) ControlAddr() net.Addr {
	if s.controlListener == nil {
		return nil
	}
	return s.controlListener.Addr()
}

// AdminAddr returns the address of the admin HTTP server, or nil if it is disabled.
func (s *Server) AdminAddr() net.Addr {
	if s.adminListener == nil {
		return nil
	}
	return s.adminListener.Addr()
}

func (s *Server) requestShutdown() {
	s.cancelLock.Lock()
	defer s.cancelLock.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
}

// teardown drains the pool, then stops the control and admin surfaces.
func (s *Server) teardown() {
	s.draining.Store(true)
	log.L().Info("Shutting down server")

	timeout, _ := s.config.ShutdownTimeoutDuration()
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if s.healthServer != nil {
		s.healthServer.Shutdown()
	}

	if err := s.pool.Shutdown(ctx); err != nil {
		log.L().Error("Worker pool did not drain before the shutdown timeout", zap.Error(err))
	}

	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			log.L().Error("Cannot shut down admin server", zap.Error(err))
		}
	}

	s.closeListeners()
	log.L().Info("Server stopped")
}

func (s *Server) closeListeners() {
	for _, listener := range []net.Listener{s.listener, s.controlListener, s.adminListener} {
		if listener != nil {
			listener.Close()
		}
	}
}
