package dispatch

import (
	"math/rand/v2"
	"sync"
)

const (
	minProcessingTime  = 200
	processingTimeSpan = 500
	minAccuracy        = 90
	accuracySpan       = 10
)

// MetricsSource produces the synthesized metrics of a mock result.
type MetricsSource interface {
	Next() Metrics
}

// RandomMetrics draws processing time in [200,699] ms and accuracy in
// [90,99] % from a seeded generator.
type RandomMetrics struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomMetrics(seed uint64) *RandomMetrics {
	return &RandomMetrics{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (m *RandomMetrics) Next() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Metrics{
		ProcessingTime: minProcessingTime + m.rng.IntN(processingTimeSpan),
		Accuracy:       minAccuracy + m.rng.IntN(accuracySpan),
	}
}
