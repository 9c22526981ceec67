package dispatch

import (
	"context"
	"log/slog"
	"time"

	"marketplace/gateway/internal/registry"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMockPrefix = "Mock: "
)

// Dispatcher routes a service request to its backend, or answers it with a
// mock result when the service has no backend.
type Dispatcher struct {
	log        *slog.Logger
	registry   *registry.Registry
	caller     Caller
	metrics    MetricsSource
	timeout    time.Duration
	mockPrefix string
}

func NewDispatcher(log *slog.Logger, reg *registry.Registry, caller Caller,
	metrics MetricsSource, timeout time.Duration, mockPrefix string) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		log:        log,
		registry:   reg,
		caller:     caller,
		metrics:    metrics,
		timeout:    timeout,
		mockPrefix: mockPrefix,
	}
}

// Handle never returns an error: backend failures are folded into an
// envelope with Success false.
func (d *Dispatcher) Handle(ctx context.Context, serviceID string, req ServiceRequest) Envelope {
	desc, ok := d.registry.Lookup(serviceID)
	if !ok || desc.IsMock() {
		return d.mock(serviceID, req)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	fields, err := d.caller.Call(ctx, desc, newBackendRequest(req.Input))
	if err != nil {
		d.log.Error("Backend call failed",
			"service", serviceID,
			"url", desc.URL(),
			"request_id", RequestID(ctx),
			"error", err,
		)
		return unavailable(serviceID)
	}

	return Envelope{Success: true, Service: serviceID, Fields: fields}
}

func (d *Dispatcher) mock(serviceID string, req ServiceRequest) Envelope {
	metrics := d.metrics.Next()
	return Envelope{
		Success: true,
		Service: serviceID,
		Output:  d.mockPrefix + req.Input,
		Metrics: &metrics,
	}
}
