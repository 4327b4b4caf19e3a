// Package local provides ThreadLocal, a container holding one logically
// independent value per goroutine, created lazily on first access rather
// than eagerly at construction.
//
// Unlike ordinary goroutine-scoped state, per-goroutine values are NOT
// destroyed when their goroutine exits. They remain alive until the
// container itself is closed, at which point every still-live value is
// destroyed exactly once through the container's allocator.
//
// The package focuses on:
//   - A lazy get protocol: first access from a goroutine allocates and
//     initializes that goroutine's value, later accesses return the same slot
//   - Two construction modes: eager-initializer (New) and const/seeded
//     (NewConst), the latter usable in package var blocks because it defers
//     all backend calls to first use
//   - Race-safe one-time key materialization for const containers
//
// Key Components:
//
//   - ThreadLocal: The container type, composing a key from the backend
//     package with an allocator from the alloc package and an Initializer.
//     Get returns a per-goroutine pointer that is stable across calls;
//     writing through it (or calling Set) is the mutable-access path.
//
//   - Initializer: The "produce a T" capability, invoked exactly once per
//     (container, goroutine) pair in lazy mode. Any plain func() T works via
//     InitializerFunc.
//
//   - Options: Construction-time configuration pairing the container with a
//     key backend and an allocator. The pairing is fixed for the container's
//     lifetime; slots are always freed through the allocator that produced
//     them.
//
// Error handling follows the terminal-failure taxonomy of goroutine-local
// storage: there is no meaningful degraded mode for "cannot allocate
// per-goroutine storage", so Get panics with a typed *Error on key-space
// exhaustion or allocation failure instead of returning errors.
//
// Basic usage:
//
//	tls := local.NewFunc(func() int { return 6 }, nil)
//	defer tls.Close()
//
//	fmt.Println(*tls.Get()) // 6
//	tls.Set(7)
//	fmt.Println(*tls.Get()) // 7
//
// Const/seeded usage in a static context:
//
//	var tls = local.NewConst(6)
package local
