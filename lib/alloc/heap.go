package alloc

// heapAllocator delegates slot management to the Go runtime.
type heapAllocator[T any] struct{}

// NewHeapAllocator creates an allocator that obtains every slot directly
// from the Go runtime. This is the default allocator of the thread-local
// container.
//
// Thread-safety: All methods are thread-safe and can be called concurrently.
func NewHeapAllocator[T any]() IAllocator[T] {
	return heapAllocator[T]{}
}

func (heapAllocator[T]) Allocate() (*T, error) {
	return new(T), nil
}

func (heapAllocator[T]) Deallocate(slot *T) error {
	if slot == nil {
		return NewError(RetCForeignSlot, "cannot deallocate nil slot")
	}

	// help the go gc: drop references held by the value so they can be
	// collected even if the caller keeps the slot pointer alive by mistake
	var zero T
	*slot = zero

	return nil
}
