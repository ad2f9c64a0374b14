package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oggyb/matchchat/internal/logger"
)

func status(t *testing.T, r *HealthRegistrar, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := r.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthFollowsProbes(t *testing.T) {
	var dbErr error
	r := NewHealthRegistrar(logger.Discard(), time.Minute,
		Probe{Name: "db", Check: func(context.Context) error { return dbErr }},
		Probe{Name: "redis", Check: func(context.Context) error { return nil }},
	)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, r, ""))

	assert.True(t, r.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, r, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, r, ServiceName))

	dbErr = errors.New("connection refused")
	assert.False(t, r.Probe(context.Background()))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, r, ServiceName))
}

func TestHealthRunStopsWithContext(t *testing.T) {
	r := NewHealthRegistrar(logger.Discard(), 10*time.Millisecond,
		Probe{Name: "ok", Check: func(context.Context) error { return nil }},
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()

	require.Eventually(t, func() bool {
		return status(t, r, "") == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, r, ""))
}

func TestNewGRPCServerRegistersHealth(t *testing.T) {
	r := NewHealthRegistrar(logger.Discard(), time.Minute)
	s := NewGRPCServer(r)
	defer s.Stop()

	info := s.GetServiceInfo()
	assert.Contains(t, info, "grpc.health.v1.Health")
	assert.Contains(t, info, "grpc.reflection.v1.ServerReflection")
}
