package local

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/gLS/lib/alloc"
	"github.com/ValentinKolb/gLS/lib/backend"
)

// --------------------------------------------------------------------------
// Core ThreadLocal structure
// --------------------------------------------------------------------------

// ThreadLocal holds one logically independent instance of T per goroutine,
// created lazily on first access. Values are NOT destroyed when their
// goroutine exits; they stay alive until the container is closed, at which
// point every still-live value is destroyed exactly once.
//
// The container is safe to share across goroutines without external
// synchronization: every goroutine only ever touches its own slot. Mutating
// the value INSIDE a slot from several goroutines is the caller's concern,
// but no API of the container exposes another goroutine's slot.
type ThreadLocal[T any] struct {
	backend backend.IKeyBackend
	alloc   alloc.IAllocator[T]

	init    Initializer[T] // nil in const mode
	seed    T              // copied per goroutine in const mode
	isConst bool

	// key materialization happens at most once per container, no matter how
	// many goroutines race to be first
	keyOnce    sync.Once
	key        backend.Key
	keyErr     error
	keyCreated atomic.Bool

	closed atomic.Bool
}

// --------------------------------------------------------------------------
// Construction
// --------------------------------------------------------------------------

// New creates a ThreadLocal in eager-initializer mode: the backend key is
// created immediately and the constructing goroutine's value is allocated
// and initialized right away. Later goroutines get their own value from the
// initializer on their first access.
//
// Thread-safety: the returned container can be shared freely; construction
// itself happens on one goroutine.
func New[T any](init Initializer[T], opts *Options[T]) *ThreadLocal[T] {
	if init == nil {
		panic(NewError(RetCInvalidInitializer, "initializer must not be nil"))
	}

	o := opts.withDefaults()
	t := &ThreadLocal[T]{
		backend: o.Backend,
		alloc:   o.Allocator,
		init:    init,
	}

	t.ensureKey()
	t.initValue()
	return t
}

// NewFunc is a convenience constructor wrapping a plain function as the
// initializer.
func NewFunc[T any](fn func() T, opts *Options[T]) *ThreadLocal[T] {
	return New[T](InitializerFunc[T](fn), opts)
}

// NewDefault creates a ThreadLocal whose per-goroutine values start as the
// zero value of T.
func NewDefault[T any](opts *Options[T]) *ThreadLocal[T] {
	return NewFunc(func() T {
		var zero T
		return zero
	}, opts)
}

// NewConst creates a ThreadLocal in const/seeded mode: every goroutine's
// value starts as a copy of seed. No backend call happens during
// construction, so NewConst is usable in package var blocks; the key is
// materialized lazily, exactly once, on the first access from any
// goroutine.
//
// The seed must be freely copyable: a T carrying pointers, slices or maps
// would share that state between all goroutines.
func NewConst[T any](seed T) *ThreadLocal[T] {
	return NewConstWith(seed, nil)
}

// NewConstWith is NewConst with explicit options. The backend and allocator
// are resolved during construction but not called until first access.
func NewConstWith[T any](seed T, opts *Options[T]) *ThreadLocal[T] {
	o := opts.withDefaults()
	return &ThreadLocal[T]{
		backend: o.Backend,
		alloc:   o.Allocator,
		seed:    seed,
		isConst: true,
	}
}

// --------------------------------------------------------------------------
// Access Protocol
// --------------------------------------------------------------------------

// Get returns the calling goroutine's value, creating it on first access.
// The returned pointer is identity-stable: every Get from the same
// goroutine returns the same pointer until the container is closed.
// Writing through the pointer is the mutable-access path; the write is
// visible to later calls on the same goroutine only.
//
// Get panics with a *Error if the container is closed, the backend key
// space is exhausted, or the allocator fails. All three are terminal
// conditions, there is no degraded mode for "cannot allocate per-goroutine
// storage".
func (t *ThreadLocal[T]) Get() *T {
	if t.closed.Load() {
		panic(NewError(RetCClosed, "Get on closed ThreadLocal"))
	}

	t.ensureKey()

	if value, ok := t.backend.Get(t.key); ok {
		return value.(*T)
	}
	return t.initValue()
}

// Set replaces the calling goroutine's value. It is shorthand for writing
// through Get and initializes the slot first if this goroutine has none
// yet.
func (t *ThreadLocal[T]) Set(value T) {
	*t.Get() = value
}

// String implements fmt.Stringer by formatting the calling goroutine's
// value (creating it if necessary).
func (t *ThreadLocal[T]) String() string {
	return fmt.Sprintf("%v", *t.Get())
}

// ensureKey materializes the backend key. Exactly one goroutine performs
// the backend call; racing goroutines wait until the key is visible.
func (t *ThreadLocal[T]) ensureKey() {
	t.keyOnce.Do(func() {
		key, err := t.backend.CreateKey(t.destroySlot)
		if err != nil {
			t.keyErr = NewError(RetCKeySpaceExhausted, err.Error())
			return
		}
		t.key = key
		t.keyCreated.Store(true)
	})
	if t.keyErr != nil {
		panic(t.keyErr)
	}
}

// initValue allocates and initializes the calling goroutine's slot and
// stores it with the backend. Exactly one allocation and one initialization
// happen per (container, goroutine).
func (t *ThreadLocal[T]) initValue() *T {
	slot, err := t.alloc.Allocate()
	if err != nil {
		panic(NewError(RetCAllocFailed, err.Error()))
	}

	if t.isConst {
		*slot = t.seed
	} else {
		*slot = t.init.Init()
	}

	t.backend.Set(t.key, slot)
	return slot
}

// destroySlot is the destructor registered with the backend key. It runs
// exactly once per live slot when the key is deleted.
func (t *ThreadLocal[T]) destroySlot(value any) {
	slot, ok := value.(*T)
	if !ok {
		return
	}
	_ = t.alloc.Deallocate(slot)
}

// --------------------------------------------------------------------------
// Teardown
// --------------------------------------------------------------------------

// Close tears the container down: the stored initializer is closed (if it
// implements io.Closer), and the backend key is deleted, which destroys
// every still-live per-goroutine value through the allocator exactly once.
// Close is idempotent; only the first call does anything. After Close the
// container must not be used.
//
// No destruction order across goroutines is guaranteed.
func (t *ThreadLocal[T]) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if closer, ok := t.init.(io.Closer); ok {
		err = closer.Close()
	}

	// a const container that was never accessed has no key to release
	if t.keyCreated.Load() {
		t.backend.DeleteKey(t.key)
	}
	return err
}
