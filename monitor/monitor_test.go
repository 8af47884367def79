package monitor

import (
	"testing"
	"time"
)

func TestNewProgress_ETA(t *testing.T) {
	tests := []struct {
		name      string
		processed int
		total     int
		elapsed   time.Duration
		known     bool
		eta       time.Duration
	}{
		{"nothing processed", 0, 100, 10 * time.Second, false, 0},
		{"no time elapsed", 10, 100, 0, false, 0},
		{"quarter done", 25, 100, 10 * time.Second, true, 30 * time.Second},
		{"done", 100, 100, 40 * time.Second, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProgress(tt.processed, tt.total, tt.elapsed)
			if p.ETAKnown != tt.known {
				t.Fatalf("ETAKnown = %v, want %v", p.ETAKnown, tt.known)
			}
			if p.ETA != tt.eta {
				t.Fatalf("ETA = %v, want %v", p.ETA, tt.eta)
			}
			if !tt.known && p.ETAString() != "unknown" {
				t.Fatalf("ETAString = %q, want unknown", p.ETAString())
			}
		})
	}
}

func TestProgress_String(t *testing.T) {
	p := NewProgress(1500, 6000, 30*time.Second)
	want := "1,500/6,000 (25.0%) elapsed 30s eta 1m30s"
	if got := p.String(); got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestTracker(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	tr := NewTracker(10, clock)

	if p := tr.Snapshot(); p.ETAKnown {
		t.Fatal("ETA known before any progress")
	}
	now = now.Add(2 * time.Second)
	p := tr.Advance(5)
	if p.Processed != 5 || p.Elapsed != 2*time.Second || p.ETA != 2*time.Second {
		t.Fatalf("Advance = %+v", p)
	}
}

func TestInMemoryCollector(t *testing.T) {
	c := NewInMemoryCollector("run-1")
	c.Record(BatchMetrics{Index: 1, Size: 2, Duration: time.Second, Success: true})
	c.Record(BatchMetrics{Index: 0, Size: 3, Duration: time.Second, Success: true})
	c.Record(BatchMetrics{Index: 2, Size: 3, Success: false, Error: "boom"})

	m := c.Flush()
	if m.RunID != "run-1" || m.Batches != 3 || m.Succeeded != 2 || m.Items != 5 {
		t.Fatalf("Flush = %+v", m)
	}
	if m.BatchMetrics[0].Index != 0 || m.BatchMetrics[2].Index != 2 {
		t.Fatalf("batches not ordered: %+v", m.BatchMetrics)
	}
	c.Reset()
	if c.Flush().Batches != 0 {
		t.Fatal("Reset kept metrics")
	}
}
