package alloc

import (
	"sync"
	"testing"
)

// TestHeapAllocator checks the basic allocate/deallocate round trip.
func TestHeapAllocator(t *testing.T) {
	a := NewHeapAllocator[int]()

	slot, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if slot == nil {
		t.Fatal("Allocate returned a nil slot")
	}

	*slot = 42
	if err := a.Deallocate(slot); err != nil {
		t.Errorf("Deallocate failed: %v", err)
	}

	if err := a.Deallocate(nil); err == nil {
		t.Error("Expected an error for a nil slot")
	}
}

// TestHeapAllocatorZeroesOnRelease checks that a released slot no longer
// holds the value, so references inside it can be collected.
func TestHeapAllocatorZeroesOnRelease(t *testing.T) {
	a := NewHeapAllocator[[]byte]()

	slot, _ := a.Allocate()
	*slot = []byte("payload")

	if err := a.Deallocate(slot); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}
	if *slot != nil {
		t.Error("Expected the released slot to be zeroed")
	}
}

// TestPoolAllocator checks that released slots are reusable and zeroed.
func TestPoolAllocator(t *testing.T) {
	a := NewPoolAllocator[int]()

	slot, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	*slot = 42

	if err := a.Deallocate(slot); err != nil {
		t.Fatalf("Deallocate failed: %v", err)
	}

	again, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if *again != 0 {
		t.Errorf("Expected a zeroed slot from the pool, got %d", *again)
	}
}

// TestMeteredAllocator checks the traffic counters and the pairing guard.
func TestMeteredAllocator(t *testing.T) {
	a := NewMeteredAllocator("test-metered", NewHeapAllocator[int]())

	slots := make([]*int, 0, 10)
	for i := 0; i < 10; i++ {
		slot, err := a.Allocate()
		if err != nil {
			t.Fatalf("Allocate failed: %v", err)
		}
		slots = append(slots, slot)
	}

	if got := a.Allocated(); got != 10 {
		t.Errorf("Expected 10 allocations, got %d", got)
	}
	if got := a.Live(); got != 10 {
		t.Errorf("Expected 10 live slots, got %d", got)
	}

	for _, slot := range slots {
		if err := a.Deallocate(slot); err != nil {
			t.Fatalf("Deallocate failed: %v", err)
		}
	}

	if got := a.Deallocated(); got != 10 {
		t.Errorf("Expected 10 deallocations, got %d", got)
	}
	if got := a.Live(); got != 0 {
		t.Errorf("Expected no live slots, got %d", got)
	}

	// one release too many violates the pairing contract
	err := a.Deallocate(new(int))
	if err == nil {
		t.Fatal("Expected an error for an unmatched deallocation")
	}
	if ae, ok := err.(*Error); !ok || ae.Code != RetCForeignSlot {
		t.Errorf("Expected RetCForeignSlot, got %v", err)
	}
}

// TestMeteredAllocatorConcurrent checks the counters under concurrent
// allocate/deallocate traffic.
func TestMeteredAllocatorConcurrent(t *testing.T) {
	a := NewMeteredAllocator("test-metered-concurrent", NewHeapAllocator[int]())

	const (
		goroutines = 8
		iterations = 500
	)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				slot, err := a.Allocate()
				if err != nil {
					t.Errorf("Allocate failed: %v", err)
					return
				}
				if err := a.Deallocate(slot); err != nil {
					t.Errorf("Deallocate failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := a.Allocated(); got != goroutines*iterations {
		t.Errorf("Expected %d allocations, got %d", goroutines*iterations, got)
	}
	if got := a.Live(); got != 0 {
		t.Errorf("Expected no live slots, got %d", got)
	}
}
