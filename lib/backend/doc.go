// Package backend provides the goroutine-local key backends used by the gLS
// thread-local container. A key addresses one storage slot per goroutine;
// the container composes a key with an allocator and an initializer to form
// the lazy per-goroutine value protocol.
//
// The package focuses on:
//   - A single backend capability set (IKeyBackend: create, get, set, delete)
//     shared by all implementations
//   - Platform-selected implementations behind one interface
//   - Destruction guarantees on key deletion: every still-live value is
//     destroyed exactly once before a key id is considered free
//
// Key Components:
//
//   - IKeyBackend Interface: The core abstraction over goroutine-local
//     storage. Get and Set implicitly address the calling goroutine's slot;
//     DeleteKey sweeps the slots of all goroutines. CreateKey registers the
//     destructor the sweep will use.
//
//   - Error System: A structured error reporting mechanism using typed
//     error codes. The only backend error is key-space exhaustion, which is
//     not recoverable and treated as fatal by callers.
//
//   - Goroutine Identity: Backends address slots by goroutine id. On
//     supported architectures the id comes from the routine library; on the
//     rest it is parsed from the stack trace header.
//
// Implementations:
//
//	The package includes two implementations of the IKeyBackend interface,
//	selected per platform by NewDefaultBackend:
//
//	- Native Backend: Built on the routine library's goroutine-local
//	  storage, with a per-key liveness registry so deletion can reach every
//	  goroutine's value. The registry retains the values of exited
//	  goroutines until the key is deleted: per the storage contract, values
//	  live exactly as long as their container.
//	  Created with NewNativeBackend.
//
//	- Emulated Backend: A full in-process reimplementation for platforms
//	  without the native facility. One process-wide table keeps rows of
//	  (goroutine id, key, value, destructor), sorted by (goroutine id, key)
//	  and binary searched under a mutex. Key ids come from a monotonic
//	  counter backed by a recycle pool of deleted ids. The table starts
//	  empty; rows are cleaned up by each key's deletion, never at process
//	  exit.
//	  Created with NewEmulatedBackend.
//
// The conformance suite in the backend/testing subpackage exercises the
// shared contract against any implementation.
package backend
