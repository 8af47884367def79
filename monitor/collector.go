package monitor

import (
	"sort"
	"sync"
	"time"
)

type MetricsCollector interface {
	Record(metrics BatchMetrics)
	Flush() RunMetrics
}

type InMemoryCollector struct {
	mu        sync.RWMutex
	runID     string
	metrics   map[int]BatchMetrics
	startTime time.Time
}

func NewInMemoryCollector(runID string) *InMemoryCollector {
	return &InMemoryCollector{
		runID:     runID,
		metrics:   make(map[int]BatchMetrics),
		startTime: time.Now(),
	}
}

func (c *InMemoryCollector) Record(metrics BatchMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics[metrics.Index] = metrics
}

func (c *InMemoryCollector) Flush() RunMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := RunMetrics{
		RunID:        c.runID,
		Batches:      len(c.metrics),
		BatchMetrics: make([]BatchMetrics, 0, len(c.metrics)),
		StartTime:    c.startTime,
		EndTime:      time.Now(),
	}
	for _, m := range c.metrics {
		out.BatchMetrics = append(out.BatchMetrics, m)
		out.TotalDuration += m.Duration
		if m.Success {
			out.Succeeded++
			out.Items += m.Size
		}
	}
	sort.Slice(out.BatchMetrics, func(i, j int) bool {
		return out.BatchMetrics[i].Index < out.BatchMetrics[j].Index
	})
	return out
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = make(map[int]BatchMetrics)
	c.startTime = time.Now()
}

type NoOpCollector struct{}

func NewNoOpCollector() *NoOpCollector {
	return &NoOpCollector{}
}

func (c *NoOpCollector) Record(metrics BatchMetrics) {}

func (c *NoOpCollector) Flush() RunMetrics {
	return RunMetrics{}
}
