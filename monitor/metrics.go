package monitor

import "time"

// BatchMetrics describes one embedding batch of an ingestion or
// precompute run.
type BatchMetrics struct {
	Index    int           `json:"index"`
	Size     int           `json:"size"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

type RunMetrics struct {
	RunID         string         `json:"run_id"`
	Batches       int            `json:"batches"`
	Succeeded     int            `json:"succeeded"`
	Items         int            `json:"items"`
	TotalDuration time.Duration  `json:"total_duration"`
	BatchMetrics  []BatchMetrics `json:"batch_metrics"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
}
