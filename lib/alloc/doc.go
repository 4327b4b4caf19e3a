// Package alloc provides the slot allocation capability used by the gLS
// thread-local container. It decouples the container from any particular
// memory management strategy: every per-goroutine value slot and every
// stored initializer is obtained from, and returned to, an IAllocator
// implementation chosen at container construction.
//
// The package focuses on:
//   - A minimal typed allocate/deallocate contract (IAllocator) with no
//     further runtime dependencies
//   - Interchangeable allocation strategies behind a single interface
//   - A decorator for metering allocation traffic
//
// Key Components:
//
//   - IAllocator Interface: The core abstraction for obtaining and releasing
//     value slots. The contract is pairwise: a slot must be released through
//     the same allocator instance that produced it. The container enforces
//     this by holding exactly one allocator for its whole lifetime.
//
//   - Error System: A structured error reporting mechanism using typed error
//     codes and descriptive messages, mirroring the failure taxonomy of the
//     container (allocation failure is terminal, not retryable).
//
// Implementations:
//
//	The package includes three implementations of the IAllocator interface:
//
//	- Heap Allocator: Delegates directly to the Go runtime. This is the
//	  default and the right choice for almost all workloads.
//	  Created with NewHeapAllocator.
//
//	- Pool Allocator: Recycles released slots through a sync.Pool. Useful
//	  for containers that are built and torn down frequently with large
//	  value types, where slot churn shows up in GC pressure.
//	  Created with NewPoolAllocator.
//
//	- Metered Allocator: Wraps any other IAllocator and counts allocations,
//	  deallocations and live slots, exporting the counts as metrics. Used
//	  by the test suite to verify the exactly-once destruction guarantees
//	  and usable in production for observability.
//	  Created with NewMeteredAllocator.
package alloc
