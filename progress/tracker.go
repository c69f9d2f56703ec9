package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Tracker writes progress lines to a writer, typically a log file or a
// non-interactive stderr.
type Tracker struct {
	writer         io.Writer
	total          int
	current        int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewTracker creates a tracker that reports every reportInterval records.
func NewTracker(writer io.Writer, reportInterval int) *Tracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &Tracker{
		writer:         writer,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *Tracker) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.failed = 0
	p.lastReported = 0
}

// Add records finished records.
func (p *Tracker) Add(succeeded, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = min(p.current+succeeded+failed, p.total)
	p.failed += failed

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish prints the final progress line.
func (p *Tracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	// The last Add already printed this line.
	if p.current == 0 || p.current != p.lastReported {
		p.report()
	}
	p.started = false
}

// Elapsed returns the time elapsed since Start was called.
func (p *Tracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report must be called with the lock held.
func (p *Tracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.current) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "progress: %d/%d (%.1f%%), %d failed, %.1f records/s\n",
		p.current, p.total, percentage, p.failed, rate)
}
