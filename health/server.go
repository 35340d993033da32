package health

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/arkstudy/ms3-contenido/pkg/metrics"
	grpcMetrics "github.com/arkstudy/ms3-contenido/pkg/metrics/grpc"
)

// DefaultInterval is how often the store is probed.
const DefaultInterval = 10 * time.Second

// Pinger is satisfied by *database.Manager.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server publishes the store liveness over the standard gRPC health service.
// The overall status ("") and the named service follow the last probe.
type Server struct {
	service  string
	store    Pinger
	interval time.Duration
	logger   *logrus.Logger

	health *health.Server
	grpc   *grpc.Server
}

func NewServer(service string, store Pinger, interval time.Duration, logger *logrus.Logger) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	hs := health.NewServer()
	gs := grpc.NewServer(
		grpc.UnaryInterceptor(grpcMetrics.UnaryServerInterceptor(service)),
		grpc.StreamInterceptor(grpcMetrics.StreamServerInterceptor(service)),
	)
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{
		service:  service,
		store:    store,
		interval: interval,
		logger:   logger,
		health:   hs,
		grpc:     gs,
	}
}

// Probe pings the store once and updates the served status.
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if err := s.store.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("store liveness check failed")
		st = healthpb.HealthCheckResponse_NOT_SERVING
		metrics.StoreUp.Set(0)
	} else {
		metrics.StoreUp.Set(1)
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(s.service, st)
	return st
}

// Run probes the store every interval until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.Probe(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Health exposes the underlying health service, mostly for tests.
func (s *Server) Health() healthpb.HealthServer {
	return s.health
}

// Serve blocks serving gRPC on lis.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
