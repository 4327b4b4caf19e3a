package backend

import "fmt"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplNative   Implementation = "native"
	ImplEmulated Implementation = "emulated"
)

// Key is an opaque per-container identifier addressing a goroutine-specific
// storage slot in whichever backend is active.
type Key uint64

// Destructor is invoked by DeleteKey for every still-live value stored under
// a key. Implementations must tolerate a nil argument and do nothing.
type Destructor func(value any)

// Feature represents backend features as bit flags
type Feature uint64

const (
	FeatureKeyRecycling  Feature = 1 << iota // Deleted key ids are returned to a recycle pool
	FeatureLazyRows                          // Lookups upsert placeholder rows for unseen goroutines
	FeatureSweepOnDelete                     // DeleteKey destroys every live value under the key
)

func (f Feature) String() string {
	switch f {
	case FeatureKeyRecycling:
		return "KeyRecycling"
	case FeatureLazyRows:
		return "LazyRows"
	case FeatureSweepOnDelete:
		return "SweepOnDelete"
	default:
		return "Unknown"
	}
}

// BackendInfo describes a backend instance.
// It is not guaranteed that all fields are filled in or that the information
// is up-to-date!
type BackendInfo struct {
	Type              Implementation `json:"type"`
	LiveKeys          int            `json:"live_keys"`
	LiveEntries       int            `json:"live_entries"`
	SupportedFeatures []Feature      `json:"supported_features"`
}

// --------------------------------------------------------------------------
// Backend Interface
// --------------------------------------------------------------------------

// IKeyBackend abstracts the goroutine-local storage facility used by the
// thread-local container. Two implementations exist: a native one built on
// the runtime goroutine-local storage library, and an emulated one that
// reimplements the facility with an in-process ordered table.
//
// All operations are keyed implicitly on the CALLING goroutine: Get and Set
// only ever touch the calling goroutine's slot for the given key. DeleteKey
// is the exception, it sweeps the slots of all goroutines.
type IKeyBackend interface {
	// CreateKey registers a new key and the destructor that DeleteKey will
	// invoke for each live value stored under it. A non-nil error means the
	// key space is exhausted, which is not recoverable; callers are expected
	// to treat it as fatal.
	CreateKey(dtor Destructor) (key Key, err error)

	// Get returns the calling goroutine's stored value for the key.
	// ok is false if no value has been stored yet.
	Get(key Key) (value any, ok bool)

	// Set stores the calling goroutine's value for the key, replacing any
	// previous value without destroying it.
	Set(key Key, value any)

	// DeleteKey destroys every still-live value stored under the key via the
	// registered destructor (each exactly once) and releases the key.
	// Deleting an unknown or already-deleted key is a no-op.
	DeleteKey(key Key)

	// SupportsFeature checks if the backend supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|).
	SupportsFeature(feature Feature) (ok bool)

	// Info returns metadata about the backend.
	Info() (info BackendInfo)
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
	case RetCKeySpaceExhausted:
		errorCode = "KeySpaceExhausted"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("KeyBackendError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new backend Error with the given code and message.
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
	RetCSuccess           RetCode = iota // 0: Operation completed successfully.
	RetCKeySpaceExhausted                // 1: No key ids left, neither fresh nor recycled.
)
