package handler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/cart-service/internal/telemetry"
)

// CartServiceName is the name reported to gRPC health clients.
const CartServiceName = "cart.v1.CartService"

type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency is a backend the engine talks to. A Required dependency that
// fails its probe marks the service NOT_SERVING; the cache is not required
// since every cache failure degrades to the durable store.
type Dependency struct {
	Name     string
	Pinger   Pinger
	Required bool
}

// HealthProber probes dependencies and publishes the result to the gRPC
// health server, the /health endpoint and the dependency_up gauge.
type HealthProber struct {
	deps    []Dependency
	server  *health.Server
	metrics *telemetry.Metrics
	log     zerolog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	serving bool
	state   map[string]bool
}

func NewHealthProber(server *health.Server, metrics *telemetry.Metrics, log zerolog.Logger, deps ...Dependency) *HealthProber {
	return &HealthProber{
		deps:    deps,
		server:  server,
		metrics: metrics,
		log:     log,
		timeout: 2 * time.Second,
		state:   make(map[string]bool, len(deps)),
	}
}

// Check probes all dependencies concurrently and reports whether the
// service can serve requests.
func (p *HealthProber) Check(ctx context.Context) bool {
	results := make([]bool, len(p.deps))

	var g errgroup.Group
	for i, dep := range p.deps {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			if err := dep.Pinger.Ping(pctx); err != nil {
				p.log.Warn().Err(err).Str("dependency", dep.Name).Msg("dependency probe failed")
				return nil
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	serving := true
	state := make(map[string]bool, len(p.deps))
	for i, dep := range p.deps {
		state[dep.Name] = results[i]
		p.metrics.SetDependency(dep.Name, results[i])
		if dep.Required && !results[i] {
			serving = false
		}
	}

	p.mu.Lock()
	changed := serving != p.serving
	p.serving = serving
	p.state = state
	p.mu.Unlock()

	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	if p.server != nil {
		p.server.SetServingStatus("", status)
		p.server.SetServingStatus(CartServiceName, status)
	}
	if changed {
		p.log.Info().Bool("serving", serving).Msg("health status changed")
	}
	return serving
}

// Run probes every interval until ctx is done.
func (p *HealthProber) Run(ctx context.Context, interval time.Duration) error {
	p.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if p.server != nil {
				p.server.Shutdown()
			}
			return nil
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Status returns the result of the last Check.
func (p *HealthProber) Status() (bool, map[string]bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state := make(map[string]bool, len(p.state))
	for k, v := range p.state {
		state[k] = v
	}
	return p.serving, state
}
