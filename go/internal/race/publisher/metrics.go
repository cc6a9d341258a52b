package publisher

import (
	"context"
	"sync"
	"time"
)

// Stats is a point-in-time view of a MetricPublisher's counters
type Stats struct {
	Published     uint64    `json:"published"`
	Failed        uint64    `json:"failed"`
	LastPublished time.Time `json:"last_published,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// MetricPublisher wraps an EventPublisher with publish counters
type MetricPublisher struct {
	publisher EventPublisher

	mu    sync.Mutex
	stats Stats
}

func NewMetricPublisher(publisher EventPublisher) *MetricPublisher {
	return &MetricPublisher{publisher: publisher}
}

func (p *MetricPublisher) Publish(ctx context.Context, event RaceEvent) error {
	err := p.publisher.Publish(ctx, event)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.stats.Failed++
		p.stats.LastError = err.Error()
		return err
	}
	p.stats.Published++
	p.stats.LastPublished = event.Timestamp
	return nil
}

// Stats returns a copy of the current counters
func (p *MetricPublisher) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}
