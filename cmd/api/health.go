package main

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// healthService is the service name reported alongside the overall ("") status.
const healthService = "mentorship.api"

// newOpsServer builds the internal gRPC server exposing the standard health
// service and reflection.
func newOpsServer(opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s, hs
}

// monitorHealth pings the store every interval and mirrors the result into
// hs until ctx is done. It checks once immediately.
func monitorHealth(ctx context.Context, hs *health.Server, store pinger, interval time.Duration) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, interval/2)
		defer cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err := store.Ping(pingCtx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("health: store ping failed: %v", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(healthService, st)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			check()
		}
	}
}
