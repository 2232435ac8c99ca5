package workerpool

import (
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestSubmitNeverExceedsCapacity is the property from the worker-pool
// backpressure invariant: Submit accepts a task iff the queue has room,
// and never blocks or silently drops one.
func TestSubmitNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxQueue := rapid.IntRange(1, 8).Draw(rt, "maxQueue")
		attempts := rapid.IntRange(0, 32).Draw(rt, "attempts")

		block := make(chan struct{})
		p := New(1, maxQueue)
		defer func() {
			close(block)
			p.Shutdown()
		}()

		// Occupy the sole worker so every further Submit lands in the
		// queue, making capacity deterministic.
		if !p.Submit(TaskFunc(func() { <-block })) {
			rt.Fatal("first submit must succeed on a fresh pool")
		}
		time.Sleep(5 * time.Millisecond)

		var accepted atomic.Int64
		for i := 0; i < attempts; i++ {
			if p.Submit(TaskFunc(func() {})) {
				accepted.Add(1)
			}
		}

		if got := accepted.Load(); got > int64(maxQueue) {
			rt.Fatalf("accepted %d tasks into a queue of capacity %d", got, maxQueue)
		}
		if got, want := p.Len(), int(accepted.Load()); got != want {
			rt.Fatalf("queue length %d does not match accepted count %d", got, want)
		}
	})
}
