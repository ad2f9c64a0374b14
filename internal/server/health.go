package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-checked service name besides the server-wide "".
const ServiceName = "matchchat"

// Probe checks one dependency. A nil error means healthy.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthRegistrar serves grpc.health.v1 with a status driven by probes.
//
// Behavior:
//   - Every probe passing → SERVING, any failure → NOT_SERVING.
//   - Status starts as NOT_SERVING until the first round of probes.
//   - Run re-probes on an interval until its context is done.
type HealthRegistrar struct {
	health   *health.Server
	probes   []Probe
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

func NewHealthRegistrar(log *slog.Logger, interval time.Duration, probes ...Probe) *HealthRegistrar {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	r := &HealthRegistrar{
		health:   health.NewServer(),
		probes:   probes,
		interval: interval,
		timeout:  2 * time.Second,
		log:      log,
	}
	r.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return r
}

// Register attaches the health service to the gRPC server
func (r *HealthRegistrar) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.health)
}

// Probe runs every probe once, publishes the result and reports it.
func (r *HealthRegistrar) Probe(ctx context.Context) bool {
	healthy := true
	for _, p := range r.probes {
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		err := p.Check(pctx)
		cancel()
		if err != nil {
			r.log.Warn("health probe failed", "probe", p.Name, "err", err)
			healthy = false
		}
	}

	if healthy {
		r.set(healthpb.HealthCheckResponse_SERVING)
	} else {
		r.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return healthy
}

// Run probes immediately and then on every tick. On exit the health
// server reports NOT_SERVING for good.
func (r *HealthRegistrar) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.health.Shutdown()

	r.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Probe(ctx)
		}
	}
}

func (r *HealthRegistrar) set(status healthpb.HealthCheckResponse_ServingStatus) {
	r.health.SetServingStatus("", status)
	r.health.SetServingStatus(ServiceName, status)
}
