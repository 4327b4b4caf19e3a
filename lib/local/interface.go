package local

import (
	"fmt"

	"github.com/ValentinKolb/gLS/lib/alloc"
	"github.com/ValentinKolb/gLS/lib/backend"
)

// --------------------------------------------------------------------------
// Initializer Capability
// --------------------------------------------------------------------------

// Initializer produces the per-goroutine value of a ThreadLocal. Init is
// invoked exactly once per (container, goroutine) pair, the first time that
// goroutine accesses the container; it is never invoked for const/seeded
// containers, which copy their seed instead.
//
// An initializer that also implements io.Closer is closed exactly once when
// the owning container is closed.
type Initializer[T any] interface {
	Init() (value T)
}

// InitializerFunc adapts a plain no-argument function to the Initializer
// interface.
type InitializerFunc[T any] func() T

func (f InitializerFunc[T]) Init() T {
	return f()
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a ThreadLocal during construction.
// The value slots of a container are allocated and freed through the SAME
// allocator instance for the container's whole lifetime; the pairing is
// fixed here and cannot change afterwards.
type Options[T any] struct {
	Backend   backend.IKeyBackend // Key backend (nil = platform default)
	Allocator alloc.IAllocator[T] // Slot allocator (nil = heap allocator)
}

// DefaultOptions returns the default ThreadLocal options.
func DefaultOptions[T any]() *Options[T] {
	return &Options[T]{
		Backend:   backend.NewDefaultBackend(),
		Allocator: alloc.NewHeapAllocator[T](),
	}
}

// withDefaults fills in defaults for unset fields, on a copy.
func (o *Options[T]) withDefaults() Options[T] {
	out := Options[T]{}
	if o != nil {
		out = *o
	}
	if out.Backend == nil {
		out.Backend = backend.NewDefaultBackend()
	}
	if out.Allocator == nil {
		out.Allocator = alloc.NewHeapAllocator[T]()
	}
	return out
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message. Container failures are terminal: Error values are
// carried by panics, never returned from the access path.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCAllocFailed:
		errorCode = "AllocFailed"
	case RetCKeySpaceExhausted:
		errorCode = "KeySpaceExhausted"
	case RetCClosed:
		errorCode = "Closed"
	case RetCInvalidInitializer:
		errorCode = "InvalidInitializer"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("ThreadLocalError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new local Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Operation completed successfully.
	RetCAllocFailed                       // 1: A value slot could not be allocated.
	RetCKeySpaceExhausted                 // 2: The backend ran out of key ids.
	RetCClosed                            // 3: The container was used after Close.
	RetCInvalidInitializer                // 4: A nil initializer was passed to New.
)
