package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finsight-ai/finsight/internal/domain"
)

func TestPool_AcquireRelease(t *testing.T) {
	p := NewPool(2, 0)
	ctx := context.Background()

	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	// Capacity full and no queue: fail fast.
	if err := p.Acquire(ctx); !errors.Is(err, domain.ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}

	p.Release()
	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestPool_WaitersAdmittedInQueue(t *testing.T) {
	p := NewPool(1, 1)
	ctx := context.Background()

	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	waiterErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		waiterErr <- p.Acquire(ctx)
	}()

	// Give the waiter time to join the queue, then free the slot.
	time.Sleep(20 * time.Millisecond)
	p.Release()
	wg.Wait()

	if err := <-waiterErr; err != nil {
		t.Fatalf("queued waiter rejected: %v", err)
	}
}

func TestPool_QueueDepthRejectsOverflow(t *testing.T) {
	p := NewPool(1, 1)
	ctx := context.Background()

	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	queued := make(chan struct{})
	go func() {
		close(queued)
		p.Acquire(ctx)
	}()
	<-queued
	time.Sleep(20 * time.Millisecond)

	// Slot held and queue occupied: the next caller fails fast.
	if err := p.Acquire(ctx); !errors.Is(err, domain.ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestPool_CancellationWhileWaiting(t *testing.T) {
	p := NewPool(1, 1)
	if err := p.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Acquire(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrCapacity) {
			t.Fatalf("expected capacity error on cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter did not return after cancellation")
	}
}
