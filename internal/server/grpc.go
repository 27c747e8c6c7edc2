package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	repo "github.com/joseph-ayodele/router-ingest/internal/repository"
)

// HealthServiceName is the service name the health server reports on besides "".
const HealthServiceName = "router_ingest.Queue"

// GRPCServer carries the standard gRPC health and reflection services so
// orchestrators can probe the daemon.
type GRPCServer struct {
	srv    *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewGRPCServer(logger *slog.Logger) *GRPCServer {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	g := &GRPCServer{srv: srv, health: hs, logger: logger}
	g.SetServing(true)
	return g
}

// SetServing flips the overall and queue service status.
func (g *GRPCServer) SetServing(ok bool) {
	st := grpc_health_v1.HealthCheckResponse_SERVING
	if !ok {
		st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	// empty string means overall server health
	g.health.SetServingStatus("", st)
	g.health.SetServingStatus(HealthServiceName, st)
}

func (g *GRPCServer) Serve(lis net.Listener) error {
	g.logger.Info("grpc listening", "addr", lis.Addr().String())
	return g.srv.Serve(lis)
}

// Stop marks the server NOT_SERVING and drains it.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.srv.GracefulStop()
}

// TrackDatabase pings db every interval and mirrors the result into the
// health status until ctx is done.
func (g *GRPCServer) TrackDatabase(ctx context.Context, db *repo.DB, interval time.Duration) {
	if db == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := db.HealthCheck(ctx, 2*time.Second)
			if ok := err == nil; ok != healthy {
				healthy = ok
				g.SetServing(ok)
				g.logger.Warn("grpc.health.changed", "serving", ok, "error", err)
			}
		}
	}
}
