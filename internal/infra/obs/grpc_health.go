package obs

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GRPCHealthServer serves the standard grpc.health.v1 protocol so orchestrators that check health over
// gRPC see the same readiness as /readyz.
type GRPCHealthServer struct {
	Addr     string
	Health   HealthHandlers
	Interval time.Duration
	Logger   *slog.Logger

	server *grpc.Server
	status *health.Server
}

func NewGRPCHealthServer(addr string, checks HealthHandlers, logger *slog.Logger) *GRPCHealthServer {
	status := health.NewServer()
	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, status)
	return &GRPCHealthServer{
		Addr:   addr,
		Health: checks,
		Logger: logger,
		server: server,
		status: status,
	}
}

// Run serves until ctx is cancelled, refreshing the serving status on every tick.
func (s *GRPCHealthServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.refresh(ctx)

	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.status.Shutdown()
				s.server.GracefulStop()
				return
			case <-ticker.C:
				s.refresh(ctx)
			}
		}
	}()

	if s.Logger != nil {
		s.Logger.Info("grpc health server listening", "addr", s.Addr)
	}
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *GRPCHealthServer) refresh(ctx context.Context) {
	failed := s.Health.Failing(ctx)
	status := healthpb.HealthCheckResponse_SERVING
	if len(failed) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		if s.Logger != nil {
			s.Logger.Warn("readiness checks failing", "failing", failed)
		}
	}
	s.status.SetServingStatus("", status)
}
