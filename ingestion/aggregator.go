package ingestion

import (
	"sync"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/progress"
)

// aggregator collects batch outcomes as they complete.
type aggregator struct {
	mu       sync.Mutex
	report   *core.IngestionReport
	progress progress.Reporter
	fatal    error
}

func (a *aggregator) complete(b *batch) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.report.Succeeded += b.succeeded
	a.report.Fail(b.failures...)
	a.report.BatchStates[b.state]++
	a.progress.Add(b.succeeded, len(b.failures))
}

// skip marks every record of an undispatched batch with err.
func (a *aggregator) skip(b *batch, err error) {
	b.abandon(err)
	a.complete(b)
}

// halt records the first fatal error.
func (a *aggregator) halt(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fatal == nil {
		a.fatal = err
	}
}

func (a *aggregator) halted() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fatal
}
