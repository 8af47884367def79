// Package monitor tracks progress and per-batch metrics of long-running
// ingestion and precompute runs.
package monitor

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Progress is a snapshot taken after a batch completes.
type Progress struct {
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Elapsed   time.Duration `json:"elapsed"`

	// ETA is only meaningful when ETAKnown is set.
	ETA      time.Duration `json:"eta"`
	ETAKnown bool          `json:"eta_known"`
}

// NewProgress computes the ETA as remaining / rate, where rate is
// processed / elapsed. It stays unknown until both are non-zero.
func NewProgress(processed, total int, elapsed time.Duration) Progress {
	p := Progress{Processed: processed, Total: total, Elapsed: elapsed}
	if processed > 0 && elapsed > 0 {
		remaining := total - processed
		if remaining < 0 {
			remaining = 0
		}
		rate := float64(processed) / elapsed.Seconds()
		p.ETA = time.Duration(float64(remaining) / rate * float64(time.Second))
		p.ETAKnown = true
	}
	return p
}

// Percent is the completed share in [0, 100].
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 100
	}
	return float64(p.Processed) / float64(p.Total) * 100
}

// ETAString renders the ETA, or "unknown".
func (p Progress) ETAString() string {
	if !p.ETAKnown {
		return "unknown"
	}
	return p.ETA.Round(time.Second).String()
}

func (p Progress) String() string {
	return fmt.Sprintf("%s/%s (%.1f%%) elapsed %s eta %s",
		humanize.Comma(int64(p.Processed)),
		humanize.Comma(int64(p.Total)),
		p.Percent(),
		p.Elapsed.Round(time.Second),
		p.ETAString(),
	)
}

// Tracker produces Progress snapshots against a fixed total.
type Tracker struct {
	total     int
	processed int
	start     time.Time
	now       func() time.Time
}

// NewTracker starts the clock. now may be nil for time.Now.
func NewTracker(total int, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{total: total, start: now(), now: now}
}

// Advance records n more processed items and returns the new snapshot.
func (t *Tracker) Advance(n int) Progress {
	t.processed += n
	return t.Snapshot()
}

func (t *Tracker) Snapshot() Progress {
	return NewProgress(t.processed, t.total, t.now().Sub(t.start))
}
