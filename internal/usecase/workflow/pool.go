package workflow

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/finsight-ai/finsight/internal/domain"
	"github.com/finsight-ai/finsight/internal/metrics"
)

// Pool bounds concurrent workflow runs. Callers beyond capacity wait for a
// slot; once the waiting queue reaches queueDepth, further callers fail
// fast with domain.ErrCapacity.
type Pool struct {
	sem        *semaphore.Weighted
	queueDepth int

	mu      sync.Mutex
	waiting int
}

// NewPool creates an admission pool for capacity concurrent runs with at
// most queueDepth callers blocked waiting.
func NewPool(capacity, queueDepth int) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	if queueDepth < 0 {
		queueDepth = 0
	}
	return &Pool{
		sem:        semaphore.NewWeighted(int64(capacity)),
		queueDepth: queueDepth,
	}
}

// Acquire admits one run, blocking until a slot frees or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	if p.sem.TryAcquire(1) {
		return nil
	}

	p.mu.Lock()
	if p.waiting >= p.queueDepth {
		p.mu.Unlock()
		metrics.CapacityRejectionsTotal.Inc()
		return fmt.Errorf("%w: admission queue full (%d waiting)", domain.ErrCapacity, p.queueDepth)
	}
	p.waiting++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.waiting--
		p.mu.Unlock()
	}()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: canceled while waiting for a slot", domain.ErrCapacity)
	}
	return nil
}

// Release frees one run slot.
func (p *Pool) Release() { p.sem.Release(1) }
