package llm

import (
	"context"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/domain"
	"github.com/deepsearchstack/deepsearch/internal/logger"
	"github.com/deepsearchstack/deepsearch/pkg/eventbus"
)

// HealthEvent is published whenever a provider's health is (re)assessed.
type HealthEvent struct {
	Provider  string                `json:"provider"`
	Status    domain.ProviderStatus `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
}

// HealthMonitor probes every registered provider on an interval and publishes
// the outcome on an event bus. Transitions are logged; steady states are not.
type HealthMonitor struct {
	registry *Registry
	bus      *eventbus.EventBus[HealthEvent]
	logger   logger.StyledLogger
	interval time.Duration

	lastHealthy map[string]bool
	stop        chan struct{}
	stopped     chan struct{}
}

func NewHealthMonitor(registry *Registry, bus *eventbus.EventBus[HealthEvent], log logger.StyledLogger, interval time.Duration) *HealthMonitor {
	if interval <= 0 {
		interval = constants.DefaultHealthMonitorInterval
	}
	return &HealthMonitor{
		registry:    registry,
		bus:         bus,
		logger:      log,
		interval:    interval,
		lastHealthy: make(map[string]bool),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
}

func (m *HealthMonitor) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *HealthMonitor) Stop() {
	close(m.stop)
	<-m.stopped
}

func (m *HealthMonitor) run(ctx context.Context) {
	defer close(m.stopped)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sweep(ctx)
	for {
		select {
		case <-ticker.C:
			m.sweep(ctx)
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (m *HealthMonitor) sweep(ctx context.Context) {
	now := time.Now()
	for name, status := range m.registry.StatusAll(ctx) {
		healthy := status.Available && status.Healthy && !status.CircuitBreakerOpen

		prev, seen := m.lastHealthy[name]
		m.lastHealthy[name] = healthy
		if seen && prev != healthy {
			if healthy {
				m.logger.InfoProviderHealthy("provider recovered", name)
			} else {
				m.logger.WarnProviderUnhealthy("provider unhealthy", name, "last_error", status.LastError)
			}
		}

		m.bus.Publish(HealthEvent{Provider: name, Status: status, Timestamp: now})
	}
}
