package server

import (
	"context"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Health exposes the standard gRPC health service. It reports NOT_SERVING
// until SetServing is called.
type Health struct {
	listener net.Listener
	grpc     *grpc.Server
	status   *health.Server
	log      logrus.FieldLogger
}

func ListenHealth(addr string, log logrus.FieldLogger) (*Health, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen health %s: %w", addr, err)
	}

	h := &Health{
		listener: lis,
		grpc:     grpc.NewServer(),
		status:   health.NewServer(),
		log:      log,
	}
	h.status.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(h.grpc, h.status)
	return h, nil
}

func (h *Health) Addr() net.Addr {
	return h.listener.Addr()
}

func (h *Health) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.status.SetServingStatus("", status)
}

// Serve blocks until ctx is done.
func (h *Health) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		h.status.Shutdown()
		h.grpc.GracefulStop()
	}()

	h.log.WithField("addr", h.listener.Addr().String()).Info("serving grpc health")
	if err := h.grpc.Serve(h.listener); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}
