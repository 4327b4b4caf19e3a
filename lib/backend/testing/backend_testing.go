package testing

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/gLS/lib/backend"
)

// BackendFactory is a function that creates a new instance of an
// IKeyBackend implementation.
type BackendFactory func() backend.IKeyBackend

// RunKeyBackendTests runs a comprehensive test suite for an IKeyBackend
// implementation.
func RunKeyBackendTests(t *testing.T, name string, factory BackendFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("CreateGetSet", func(t *testing.T) {
			testCreateGetSet(t, factory())
		})

		t.Run("LazyMiss", func(t *testing.T) {
			testLazyMiss(t, factory())
		})

		t.Run("GoroutineIsolation", func(t *testing.T) {
			testGoroutineIsolation(t, factory())
		})

		t.Run("DeleteSweep", func(t *testing.T) {
			testDeleteSweep(t, factory())
		})

		t.Run("DeleteIdempotent", func(t *testing.T) {
			testDeleteIdempotent(t, factory())
		})

		t.Run("NoStaleStateAcrossKeys", func(t *testing.T) {
			testNoStaleStateAcrossKeys(t, factory())
		})

		t.Run("ManyKeys", func(t *testing.T) {
			testManyKeys(t, factory())
		})

		t.Run("ConcurrentAccess", func(t *testing.T) {
			testConcurrentAccess(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// noopDtor is used where the test does not care about destruction.
func noopDtor(any) {}

// mustCreateKey creates a key and fails the test on exhaustion.
func mustCreateKey(t testing.TB, b backend.IKeyBackend, dtor backend.Destructor) backend.Key {
	t.Helper()

	key, err := b.CreateKey(dtor)
	if err != nil {
		t.Fatalf("CreateKey failed: %v", err)
	}
	return key
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testCreateGetSet(t *testing.T, b backend.IKeyBackend) {
	key := mustCreateKey(t, b, noopDtor)
	defer b.DeleteKey(key)

	value := new(int)
	*value = 42

	b.Set(key, value)

	got, ok := b.Get(key)
	if !ok {
		t.Fatal("Expected a value after Set")
	}
	if got != any(value) {
		t.Errorf("Expected the stored pointer back, got %v", got)
	}

	// overwrite without destruction
	other := new(int)
	*other = 43
	b.Set(key, other)

	got, ok = b.Get(key)
	if !ok || got != any(other) {
		t.Errorf("Expected the replacement pointer back, got %v (ok=%v)", got, ok)
	}
}

func testLazyMiss(t *testing.T, b backend.IKeyBackend) {
	key := mustCreateKey(t, b, noopDtor)
	defer b.DeleteKey(key)

	if value, ok := b.Get(key); ok {
		t.Errorf("Expected a miss before any Set, got %v", value)
	}

	// a repeated lookup must still miss, not observe its own placeholder
	if value, ok := b.Get(key); ok {
		t.Errorf("Expected a miss on repeated lookup, got %v", value)
	}
}

func testGoroutineIsolation(t *testing.T, b backend.IKeyBackend) {
	key := mustCreateKey(t, b, noopDtor)
	defer b.DeleteKey(key)

	mine := new(string)
	*mine = "main"
	b.Set(key, mine)

	done := make(chan struct{})
	go func() {
		defer close(done)

		// another goroutine must not see the main goroutine's value
		if value, ok := b.Get(key); ok {
			t.Errorf("Expected a miss on a fresh goroutine, got %v", value)
			return
		}

		theirs := new(string)
		*theirs = "other"
		b.Set(key, theirs)

		if value, ok := b.Get(key); !ok || value != any(theirs) {
			t.Errorf("Expected the goroutine's own value, got %v (ok=%v)", value, ok)
		}
	}()
	<-done

	if value, ok := b.Get(key); !ok || value != any(mine) {
		t.Errorf("Main goroutine's value changed: got %v (ok=%v)", value, ok)
	}
}

func testDeleteSweep(t *testing.T, b backend.IKeyBackend) {
	var destroyed atomic.Int64
	key := mustCreateKey(t, b, func(value any) {
		if value != nil {
			destroyed.Add(1)
		}
	})

	const goroutines = 8

	// every goroutine stores a value and exits; the values must survive the
	// goroutines and be swept by DeleteKey
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			value := new(int)
			*value = i
			b.Set(key, value)
		}(i)
	}
	wg.Wait()

	if got := destroyed.Load(); got != 0 {
		t.Fatalf("No value may be destroyed before DeleteKey, got %d", got)
	}

	b.DeleteKey(key)

	if got := destroyed.Load(); got != goroutines {
		t.Errorf("Expected %d destroyed values, got %d", goroutines, got)
	}

	if value, ok := b.Get(key); ok {
		t.Errorf("Expected a miss after DeleteKey, got %v", value)
	}
}

func testDeleteIdempotent(t *testing.T, b backend.IKeyBackend) {
	var destroyed atomic.Int64
	key := mustCreateKey(t, b, func(value any) {
		if value != nil {
			destroyed.Add(1)
		}
	})

	b.Set(key, new(int))

	b.DeleteKey(key)
	b.DeleteKey(key)
	b.DeleteKey(key + 1000) // unknown key, must be a no-op

	if got := destroyed.Load(); got != 1 {
		t.Errorf("Expected exactly one destruction, got %d", got)
	}
}

func testNoStaleStateAcrossKeys(t *testing.T, b backend.IKeyBackend) {
	first := mustCreateKey(t, b, noopDtor)
	b.Set(first, new(int))
	b.DeleteKey(first)

	second := mustCreateKey(t, b, noopDtor)
	defer b.DeleteKey(second)

	if value, ok := b.Get(second); ok {
		t.Errorf("Fresh key observed stale state: %v", value)
	}
}

func testManyKeys(t *testing.T, b backend.IKeyBackend) {
	const numKeys = 100

	var destroyed atomic.Int64
	keys := make([]backend.Key, numKeys)
	values := make([]*int, numKeys)

	for i := 0; i < numKeys; i++ {
		keys[i] = mustCreateKey(t, b, func(value any) {
			if value != nil {
				destroyed.Add(1)
			}
		})
		values[i] = new(int)
		*values[i] = i
		b.Set(keys[i], values[i])
	}

	// every key must address its own slot
	for i := 0; i < numKeys; i++ {
		value, ok := b.Get(keys[i])
		if !ok {
			t.Fatalf("Expected a value for key %d", i)
		}
		if value != any(values[i]) {
			t.Errorf("Key %d returned a foreign slot", i)
		}
	}

	for i := 0; i < numKeys; i++ {
		b.DeleteKey(keys[i])
	}

	if got := destroyed.Load(); got != numKeys {
		t.Errorf("Expected %d destroyed values, got %d", numKeys, got)
	}
}

func testConcurrentAccess(t *testing.T, b backend.IKeyBackend) {
	key := mustCreateKey(t, b, noopDtor)
	defer b.DeleteKey(key)

	const (
		goroutines = 16
		iterations = 200
	)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()

			mine := new(int)
			*mine = i
			b.Set(key, mine)

			for j := 0; j < iterations; j++ {
				value, ok := b.Get(key)
				if !ok || value != any(mine) {
					t.Errorf("Goroutine %d observed a foreign slot on iteration %d", i, j)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// RunKeyBackendBenchmarks runs a benchmark suite for an IKeyBackend
// implementation.
func RunKeyBackendBenchmarks(b *testing.B, name string, factory BackendFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Get", func(b *testing.B) {
			kb := factory()
			key := mustCreateKey(b, kb, noopDtor)
			defer kb.DeleteKey(key)
			kb.Set(key, new(int))

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, ok := kb.Get(key); !ok {
					b.Fatal("unexpected miss")
				}
			}
		})

		b.Run("Set", func(b *testing.B) {
			kb := factory()
			key := mustCreateKey(b, kb, noopDtor)
			defer kb.DeleteKey(key)
			value := new(int)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				kb.Set(key, value)
			}
		})

		b.Run("CreateDelete", func(b *testing.B) {
			kb := factory()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				key, err := kb.CreateKey(noopDtor)
				if err != nil {
					b.Fatalf("CreateKey failed: %v", err)
				}
				kb.DeleteKey(key)
			}
		})

		b.Run("GetParallel", func(b *testing.B) {
			kb := factory()
			key := mustCreateKey(b, kb, noopDtor)
			defer kb.DeleteKey(key)

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				kb.Set(key, new(int))
				for pb.Next() {
					kb.Get(key)
				}
			})
		})
	})
}
