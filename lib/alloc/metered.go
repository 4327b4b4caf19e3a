package alloc

import (
	"fmt"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

// MeteredAllocator wraps another IAllocator and counts allocation traffic.
// The counts are kept in atomics for cheap programmatic access and exported
// as metrics under the names
//
//	gls_alloc_allocations_total{allocator="<name>"}
//	gls_alloc_deallocations_total{allocator="<name>"}
//
// It is used by the test suite to verify the exactly-once destruction
// guarantees of the thread-local container.
type MeteredAllocator[T any] struct {
	inner IAllocator[T]

	allocated   atomic.Int64
	deallocated atomic.Int64

	allocCounter   *metrics.Counter
	deallocCounter *metrics.Counter
}

// NewMeteredAllocator creates a metering decorator around the given
// allocator. The name is used as the metric label and should be unique per
// metered allocator in the process.
//
// Thread-safety: All methods are thread-safe and can be called concurrently.
func NewMeteredAllocator[T any](name string, inner IAllocator[T]) *MeteredAllocator[T] {
	return &MeteredAllocator[T]{
		inner:          inner,
		allocCounter:   metrics.GetOrCreateCounter(fmt.Sprintf(`gls_alloc_allocations_total{allocator=%q}`, name)),
		deallocCounter: metrics.GetOrCreateCounter(fmt.Sprintf(`gls_alloc_deallocations_total{allocator=%q}`, name)),
	}
}

func (a *MeteredAllocator[T]) Allocate() (*T, error) {
	slot, err := a.inner.Allocate()
	if err != nil {
		return nil, err
	}

	a.allocated.Add(1)
	a.allocCounter.Inc()
	return slot, nil
}

func (a *MeteredAllocator[T]) Deallocate(slot *T) error {
	// a negative live count means a slot was released that this allocator
	// never produced, which violates the pairing contract
	if a.allocated.Load()-a.deallocated.Load() <= 0 {
		return NewError(RetCForeignSlot, "deallocate without matching allocate")
	}

	if err := a.inner.Deallocate(slot); err != nil {
		return err
	}

	a.deallocated.Add(1)
	a.deallocCounter.Inc()
	return nil
}

// Allocated returns the total number of slots handed out so far.
func (a *MeteredAllocator[T]) Allocated() int64 {
	return a.allocated.Load()
}

// Deallocated returns the total number of slots released so far.
func (a *MeteredAllocator[T]) Deallocated() int64 {
	return a.deallocated.Load()
}

// Live returns the number of slots currently held by callers.
func (a *MeteredAllocator[T]) Live() int64 {
	return a.allocated.Load() - a.deallocated.Load()
}
