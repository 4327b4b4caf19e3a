package alloc

import "fmt"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IAllocator is the generic interface for value slot allocation.
// It is the only way the thread-local container obtains or releases memory
// for per-goroutine values, which keeps the container independent of any
// general-purpose memory manager.
//
// The contract is pairwise: a slot passed to Deallocate must have been
// returned by Allocate on the SAME allocator instance. Mixing allocators
// between allocation and deallocation is a contract violation; only the
// metered allocator is able to detect (some of) these violations.
type IAllocator[T any] interface {
	// Allocate returns a pointer to a fresh value slot. The slot content is
	// unspecified; the caller is expected to fully initialize it before use.
	Allocate() (slot *T, err error)
	// Deallocate releases a slot previously returned by Allocate.
	// After the call the slot must not be used anymore.
	Deallocate(slot *T) (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
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
	case RetCForeignSlot:
		errorCode = "ForeignSlot"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("AllocError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new alloc Error with the given code and message.
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
	RetCSuccess     RetCode = iota // 0: Operation completed successfully.
	RetCAllocFailed                // 1: The allocator could not produce a slot.
	RetCForeignSlot                // 2: Deallocate received a slot this allocator never produced.
)
