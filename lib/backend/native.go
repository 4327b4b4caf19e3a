//go:build !ppc && !ppc64

package backend

import (
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/timandy/routine"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	nativeKeysCreated = metrics.GetOrCreateCounter(`gls_backend_keys_created_total{backend="native"}`)
	nativeValuesSwept = metrics.GetOrCreateCounter(`gls_backend_values_destroyed_total{backend="native"}`)
)

// --------------------------------------------------------------------------
// Native Backend
// --------------------------------------------------------------------------

// nativeKey is the state of one key: the runtime-backed per-goroutine slot
// for fast access, and a liveness registry (goid -> value) so DeleteKey can
// reach every goroutine's value. The registry deliberately retains values
// of exited goroutines: per the storage contract they stay alive until the
// key is deleted. Goroutine ids are never reused by the Go runtime, so a
// retained entry can not alias a new goroutine's slot.
type nativeKey struct {
	slot routine.ThreadLocal[any]
	live *xsync.MapOf[int64, any]
	dtor Destructor
}

// nativeBackend implements IKeyBackend on top of the routine library's
// goroutine-local storage.
type nativeBackend struct {
	keys    *xsync.MapOf[Key, *nativeKey]
	nextKey atomic.Uint64
}

// NewNativeBackend creates a backend built on the runtime goroutine-local
// storage facility. This is the default backend on all architectures the
// routine library supports.
//
// Thread-safety: All methods are thread-safe and can be called concurrently.
func NewNativeBackend() IKeyBackend {
	return &nativeBackend{
		keys: xsync.NewMapOf[Key, *nativeKey](),
	}
}

func (b *nativeBackend) CreateKey(dtor Destructor) (Key, error) {
	key := Key(b.nextKey.Add(1) - 1)

	nk := &nativeKey{
		slot: routine.NewThreadLocal[any](),
		live: xsync.NewMapOf[int64, any](),
		dtor: dtor,
	}
	if _, collided := b.keys.LoadOrStore(key, nk); collided {
		// the counter wrapped into a live id
		return 0, NewError(RetCKeySpaceExhausted, "key counter wrapped into a live key id")
	}

	nativeKeysCreated.Inc()
	return key, nil
}

func (b *nativeBackend) Get(key Key) (any, bool) {
	nk, ok := b.keys.Load(key)
	if !ok {
		return nil, false
	}

	value := nk.slot.Get()
	return value, value != nil
}

func (b *nativeBackend) Set(key Key, value any) {
	nk, ok := b.keys.Load(key)
	if !ok {
		return
	}

	nk.slot.Set(value)
	nk.live.Store(goid(), value)
}

func (b *nativeBackend) DeleteKey(key Key) {
	nk, ok := b.keys.LoadAndDelete(key)
	if !ok {
		return
	}

	// the key is unreachable at this point, so each value is swept exactly once
	nk.live.Range(func(gid int64, value any) bool {
		if value != nil && nk.dtor != nil {
			nk.dtor(value)
			nativeValuesSwept.Inc()
		}
		nk.live.Delete(gid)
		return true
	})
	nk.slot.Remove()
}

func (b *nativeBackend) SupportsFeature(feature Feature) bool {
	supported := FeatureSweepOnDelete
	return supported&feature == feature
}

func (b *nativeBackend) Info() BackendInfo {
	entries := 0
	b.keys.Range(func(_ Key, nk *nativeKey) bool {
		entries += nk.live.Size()
		return true
	})

	return BackendInfo{
		Type:              ImplNative,
		LiveKeys:          b.keys.Size(),
		LiveEntries:       entries,
		SupportedFeatures: []Feature{FeatureSweepOnDelete},
	}
}
