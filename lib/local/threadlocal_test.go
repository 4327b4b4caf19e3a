package local

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/gLS/lib/alloc"
	"github.com/ValentinKolb/gLS/lib/backend"
)

// --------------------------------------------------------------------------
// Test doubles
// --------------------------------------------------------------------------

// countingBackend counts CreateKey calls on top of a real backend.
type countingBackend struct {
	backend.IKeyBackend
	createCalls atomic.Int64
}

func newCountingBackend() *countingBackend {
	return &countingBackend{IKeyBackend: backend.NewDefaultBackend()}
}

func (b *countingBackend) CreateKey(dtor backend.Destructor) (backend.Key, error) {
	b.createCalls.Add(1)
	return b.IKeyBackend.CreateKey(dtor)
}

// exhaustedBackend fails every key creation.
type exhaustedBackend struct {
	backend.IKeyBackend
}

func (exhaustedBackend) CreateKey(backend.Destructor) (backend.Key, error) {
	return 0, backend.NewError(backend.RetCKeySpaceExhausted, "synthetic exhaustion")
}

// closableInitializer records how often it was closed.
type closableInitializer struct {
	value  int
	closed atomic.Int64
}

func (c *closableInitializer) Init() int {
	return c.value
}

func (c *closableInitializer) Close() error {
	c.closed.Add(1)
	return nil
}

// --------------------------------------------------------------------------
// Static context usage
// --------------------------------------------------------------------------

// a const/seeded container is constructible in a package var block because
// no backend call happens before first use
var staticTLS = NewConst(5)

func TestStaticConstruction(t *testing.T) {
	if got := *staticTLS.Get(); got != 5 {
		t.Errorf("Expected the seed value 5, got %d", got)
	}
}

// --------------------------------------------------------------------------
// Access protocol
// --------------------------------------------------------------------------

// TestEagerScenario covers the basic lazy-container scenario: initial value
// from the initializer, then mutation visible to later accesses.
func TestEagerScenario(t *testing.T) {
	tls := NewFunc(func() int { return 6 }, nil)
	defer tls.Close()

	if got := *tls.Get(); got != 6 {
		t.Errorf("Expected 6 from the initializer, got %d", got)
	}

	tls.Set(7)
	if got := *tls.Get(); got != 7 {
		t.Errorf("Expected 7 after Set, got %d", got)
	}

	*tls.Get() = 8
	if got := *tls.Get(); got != 8 {
		t.Errorf("Expected 8 after writing through the pointer, got %d", got)
	}
}

// TestConstScenario covers the same scenario for a const/seeded container.
func TestConstScenario(t *testing.T) {
	tls := NewConst(6)
	defer tls.Close()

	if got := *tls.Get(); got != 6 {
		t.Errorf("Expected the seed value 6, got %d", got)
	}

	tls.Set(7)
	if got := *tls.Get(); got != 7 {
		t.Errorf("Expected 7 after Set, got %d", got)
	}
}

// TestIdentityStablePointer checks that repeated Gets on one goroutine
// return the same slot, not freshly initialized ones.
func TestIdentityStablePointer(t *testing.T) {
	tls := NewFunc(func() int { return 1 }, nil)
	defer tls.Close()

	first := tls.Get()
	second := tls.Get()
	if first != second {
		t.Error("Expected the same slot pointer across Gets on one goroutine")
	}
}

// TestPerGoroutineIndependence checks that every goroutine gets its own
// independently initialized value, with the initializer invoked once per
// goroutine and mutations staying invisible across goroutines.
func TestPerGoroutineIndependence(t *testing.T) {
	var initCalls atomic.Int64
	tls := NewFunc(func() int {
		initCalls.Add(1)
		return 100
	}, nil)
	defer tls.Close()

	// eager mode initialized the constructing goroutine already
	if got := initCalls.Load(); got != 1 {
		t.Fatalf("Expected one eager initialization, got %d", got)
	}

	tls.Set(-1)

	const goroutines = 8

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()

			// a fresh goroutine must not see the main goroutine's mutation
			if got := *tls.Get(); got != 100 {
				t.Errorf("Goroutine %d expected a fresh value 100, got %d", i, got)
				return
			}

			tls.Set(i)
			if got := *tls.Get(); got != i {
				t.Errorf("Goroutine %d lost its own mutation, got %d", i, got)
			}
		}(i)
	}
	wg.Wait()

	if got := initCalls.Load(); got != 1+goroutines {
		t.Errorf("Expected %d initializations (one per goroutine), got %d", 1+goroutines, got)
	}

	if got := *tls.Get(); got != -1 {
		t.Errorf("Main goroutine's value changed to %d", got)
	}
}

// TestConstConcurrentFirstAccess races N goroutines into the first access
// of a const container: all must see the seed, and the backend key must be
// created exactly once.
func TestConstConcurrentFirstAccess(t *testing.T) {
	cb := newCountingBackend()
	tls := NewConstWith(6, &Options[int]{Backend: cb})
	defer tls.Close()

	if got := cb.createCalls.Load(); got != 0 {
		t.Fatalf("Const construction must not touch the backend, got %d calls", got)
	}

	const goroutines = 32

	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			if got := *tls.Get(); got != 6 {
				t.Errorf("Expected the seed value 6, got %d", got)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := cb.createCalls.Load(); got != 1 {
		t.Errorf("Expected exactly one key creation across %d goroutines, got %d", goroutines, got)
	}
}

// TestSetWithoutPriorGet checks that Set initializes the goroutine's slot
// first, so the initializer still runs exactly once.
func TestSetWithoutPriorGet(t *testing.T) {
	var initCalls atomic.Int64
	tls := NewFunc(func() int {
		initCalls.Add(1)
		return 0
	}, nil)
	defer tls.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)

		tls.Set(9)
		if got := *tls.Get(); got != 9 {
			t.Errorf("Expected 9 after Set, got %d", got)
		}
	}()
	<-done

	if got := initCalls.Load(); got != 2 {
		t.Errorf("Expected 2 initializations (constructor + goroutine), got %d", got)
	}
}

// --------------------------------------------------------------------------
// Teardown
// --------------------------------------------------------------------------

// TestCloseDestroysExactlyOnce checks the teardown guarantees: every live
// slot is released through the container's allocator exactly once, and the
// initializer is closed exactly once, no matter how often Close is called.
func TestCloseDestroysExactlyOnce(t *testing.T) {
	metered := alloc.NewMeteredAllocator("test-close", alloc.NewHeapAllocator[int]())
	init := &closableInitializer{value: 7}

	tls := New[int](init, &Options[int]{Allocator: metered})

	const goroutines = 8

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if got := *tls.Get(); got != 7 {
				t.Errorf("Expected 7, got %d", got)
			}
		}()
	}
	wg.Wait()

	if got := metered.Live(); got != 1+goroutines {
		t.Fatalf("Expected %d live slots before Close, got %d", 1+goroutines, got)
	}

	if err := tls.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := metered.Live(); got != 0 {
		t.Errorf("Expected all slots released after Close, %d still live", got)
	}
	if got := init.closed.Load(); got != 1 {
		t.Errorf("Expected the initializer closed once, got %d", got)
	}

	// idempotent
	if err := tls.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
	if got := init.closed.Load(); got != 1 {
		t.Errorf("Second Close must not re-close the initializer, got %d", got)
	}
	if got := metered.Deallocated(); got != int64(1+goroutines) {
		t.Errorf("Second Close must not release slots again, got %d deallocations", got)
	}
}

// TestRebuildAfterClose checks that a container built after another one was
// closed observes no stale state.
func TestRebuildAfterClose(t *testing.T) {
	first := NewFunc(func() int { return 1 }, nil)
	first.Set(99)
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := NewFunc(func() int { return 1 }, nil)
	defer second.Close()

	if got := *second.Get(); got != 1 {
		t.Errorf("Rebuilt container observed stale state: %d", got)
	}
}

// TestConstCloseWithoutAccess checks that closing a never-accessed const
// container does not touch the backend.
func TestConstCloseWithoutAccess(t *testing.T) {
	cb := newCountingBackend()
	tls := NewConstWith(1, &Options[int]{Backend: cb})

	if err := tls.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := cb.createCalls.Load(); got != 0 {
		t.Errorf("Close of an unused const container created %d keys", got)
	}
}

// --------------------------------------------------------------------------
// Failure taxonomy
// --------------------------------------------------------------------------

// expectPanicCode runs fn and checks that it panics with a *Error carrying
// the given code.
func expectPanicCode(t *testing.T, code RetCode, fn func()) {
	t.Helper()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Expected a panic")
		}
		err, ok := r.(*Error)
		if !ok {
			t.Fatalf("Expected a *Error panic, got %v", r)
		}
		if err.Code != code {
			t.Errorf("Expected code %d, got %d (%v)", code, err.Code, err)
		}
	}()
	fn()
}

// TestGetAfterClosePanics checks that use after Close is rejected.
func TestGetAfterClosePanics(t *testing.T) {
	tls := NewFunc(func() int { return 1 }, nil)
	if err := tls.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	expectPanicCode(t, RetCClosed, func() {
		tls.Get()
	})
}

// TestKeyExhaustionPanics checks that backend key-space exhaustion is
// escalated as a fatal panic on first access.
func TestKeyExhaustionPanics(t *testing.T) {
	tls := NewConstWith(1, &Options[int]{Backend: exhaustedBackend{}})

	expectPanicCode(t, RetCKeySpaceExhausted, func() {
		tls.Get()
	})

	// later accesses keep failing, they must not fall through to a zero key
	expectPanicCode(t, RetCKeySpaceExhausted, func() {
		tls.Get()
	})
}

// TestNilInitializerPanics checks the construction guard.
func TestNilInitializerPanics(t *testing.T) {
	expectPanicCode(t, RetCInvalidInitializer, func() {
		New[int](nil, nil)
	})
}

// --------------------------------------------------------------------------
// Convenience surface
// --------------------------------------------------------------------------

// TestNewDefault checks the zero-value initializer.
func TestNewDefault(t *testing.T) {
	tls := NewDefault[string](nil)
	defer tls.Close()

	if got := *tls.Get(); got != "" {
		t.Errorf("Expected the zero value, got %q", got)
	}
}

// TestStringer checks the fmt.Stringer forwarding to the calling
// goroutine's value.
func TestStringer(t *testing.T) {
	tls := NewConst(6)
	defer tls.Close()

	if got := tls.String(); got != "6" {
		t.Errorf("Expected \"6\", got %q", got)
	}

	tls.Set(7)
	if got := tls.String(); got != "7" {
		t.Errorf("Expected \"7\", got %q", got)
	}
}

// TestBackendAllocatorCombinations runs the basic scenario across explicit
// backend and allocator choices.
func TestBackendAllocatorCombinations(t *testing.T) {
	cases := []struct {
		name string
		opts *Options[int]
	}{
		{"Defaults", nil},
		{"Emulated", &Options[int]{Backend: backend.NewEmulatedBackend()}},
		{"PoolAllocator", &Options[int]{Allocator: alloc.NewPoolAllocator[int]()}},
		{"EmulatedPool", &Options[int]{
			Backend:   backend.NewEmulatedBackend(),
			Allocator: alloc.NewPoolAllocator[int](),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tls := NewFunc(func() int { return 6 }, tc.opts)
			defer tls.Close()

			if got := *tls.Get(); got != 6 {
				t.Errorf("Expected 6, got %d", got)
			}
			tls.Set(7)
			if got := *tls.Get(); got != 7 {
				t.Errorf("Expected 7, got %d", got)
			}
		})
	}
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

func BenchmarkGet(b *testing.B) {
	tls := NewFunc(func() int { return 1 }, nil)
	defer tls.Close()

	tls.Get()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tls.Get()
	}
}

func BenchmarkGetParallel(b *testing.B) {
	tls := NewFunc(func() int { return 1 }, nil)
	defer tls.Close()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tls.Get()
		}
	})
}
