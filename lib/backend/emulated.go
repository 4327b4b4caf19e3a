package backend

import (
	"sort"
	"sync"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	emulatedKeysCreated  = metrics.GetOrCreateCounter(`gls_backend_keys_created_total{backend="emulated"}`)
	emulatedKeysRecycled = metrics.GetOrCreateCounter(`gls_backend_keys_recycled_total{backend="emulated"}`)
	emulatedValuesSwept  = metrics.GetOrCreateCounter(`gls_backend_values_destroyed_total{backend="emulated"}`)
)

// --------------------------------------------------------------------------
// Row Type (one goroutine's slot for one key)
// --------------------------------------------------------------------------

// row is one entry of the key table. Rows are unique by (goid, key); this
// pair is the natural key for the ordered lookup.
type row struct {
	goid  int64
	key   Key
	value any
	dtor  Destructor
}

// less orders rows by (goid, key), the sort invariant of the table.
func (r row) less(other row) bool {
	if r.goid == other.goid {
		return r.key < other.key
	}
	return r.goid < other.goid
}

// --------------------------------------------------------------------------
// Key Table (process-wide state of the emulated backend)
// --------------------------------------------------------------------------

// keyTable reimplements the goroutine-local storage facility without any
// runtime support. Because there is no per-goroutine storage to lean on,
// every operation is keyed on the calling goroutine's id in addition to the
// logical key, and the table keeps its rows sorted by (goid, key) so that
// out-of-order inserts and lookups stay logarithmic.
//
// Thread-safety: every operation takes the table mutex; the table is a
// single critical section. Destructors are invoked outside the lock so
// they may call back into the allocator freely.
type keyTable struct {
	mu      sync.Mutex
	rows    []row              // sorted by (goid, key)
	recycle []Key              // deleted key ids available for reuse
	nextKey uint64             // monotonically increasing key counter
	dtors   map[Key]Destructor // registered destructor per live key
}

func newKeyTable() *keyTable {
	return &keyTable{
		dtors: map[Key]Destructor{},
	}
}

// search returns the position of the (goid, key) row and whether it exists.
// Must be called with the table mutex held.
func (tb *keyTable) search(gid int64, key Key) (idx int, found bool) {
	probe := row{goid: gid, key: key}
	idx = sort.Search(len(tb.rows), func(i int) bool {
		return !tb.rows[i].less(probe)
	})
	found = idx < len(tb.rows) && tb.rows[idx].goid == gid && tb.rows[idx].key == key
	return idx, found
}

// insertAt places a row at the position returned by search, keeping the sort
// invariant intact. Must be called with the table mutex held.
func (tb *keyTable) insertAt(idx int, r row) {
	tb.rows = append(tb.rows, row{})
	copy(tb.rows[idx+1:], tb.rows[idx:])
	tb.rows[idx] = r
}

// createKey allocates a key id. The next counter value is the candidate; if
// a row for (calling goroutine, candidate) already exists the counter has
// wrapped into a live id, and the id is drawn from the recycle pool instead.
// An empty pool at that point means the key space is exhausted.
func (tb *keyTable) createKey(dtor Destructor) (Key, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	gid := goid()
	candidate := Key(tb.nextKey)
	tb.nextKey++

	idx, found := tb.search(gid, candidate)
	if found {
		if n := len(tb.recycle); n > 0 {
			key := tb.recycle[n-1]
			tb.recycle = tb.recycle[:n-1]
			tb.dtors[key] = dtor

			emulatedKeysCreated.Inc()
			return key, nil
		}
		return 0, NewError(RetCKeySpaceExhausted, "key counter wrapped and recycle pool is empty")
	}

	tb.insertAt(idx, row{goid: gid, key: candidate, dtor: dtor})
	tb.dtors[candidate] = dtor

	emulatedKeysCreated.Inc()
	return candidate, nil
}

// get returns the calling goroutine's value for the key. A miss upserts a
// placeholder row so later stores for this goroutine hit an existing row.
// Lookups for keys that were never created (or already deleted) do not
// insert anything.
func (tb *keyTable) get(key Key) (any, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	dtor, live := tb.dtors[key]
	if !live {
		return nil, false
	}

	gid := goid()
	idx, found := tb.search(gid, key)
	if !found {
		tb.insertAt(idx, row{goid: gid, key: key, dtor: dtor})
		return nil, false
	}

	value := tb.rows[idx].value
	return value, value != nil
}

// set upserts the calling goroutine's value for the key. Stores for keys
// that were never created (or already deleted) are dropped, they would leak
// rows no deletion could ever reach.
func (tb *keyTable) set(key Key, value any) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if _, live := tb.dtors[key]; !live {
		return
	}

	gid := goid()
	idx, found := tb.search(gid, key)
	if found {
		tb.rows[idx].value = value
		return
	}

	tb.insertAt(idx, row{goid: gid, key: key, value: value, dtor: tb.dtors[key]})
}

// deleteKey removes every row of the key across all goroutines, destroys the
// still-live values exactly once, and returns the key id to the recycle
// pool. Deleting an unknown key is a no-op.
func (tb *keyTable) deleteKey(key Key) {
	tb.mu.Lock()

	if _, live := tb.dtors[key]; !live {
		tb.mu.Unlock()
		return
	}

	// collect victims under the lock, run destructors after releasing it
	type victim struct {
		value any
		dtor  Destructor
	}
	var victims []victim

	kept := tb.rows[:0]
	for _, r := range tb.rows {
		if r.key != key {
			kept = append(kept, r)
			continue
		}
		if r.value != nil && r.dtor != nil {
			victims = append(victims, victim{value: r.value, dtor: r.dtor})
		}
	}
	// help the go gc
	for i := len(kept); i < len(tb.rows); i++ {
		tb.rows[i] = row{}
	}
	tb.rows = kept

	delete(tb.dtors, key)
	tb.recycle = append(tb.recycle, key)

	tb.mu.Unlock()

	emulatedKeysRecycled.Inc()
	for _, v := range victims {
		v.dtor(v.value)
		emulatedValuesSwept.Inc()
	}
}

// stats returns the current number of live keys and table rows.
func (tb *keyTable) stats() (keys, rows int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.dtors), len(tb.rows)
}

// --------------------------------------------------------------------------
// Backend Implementation
// --------------------------------------------------------------------------

// sharedTable is the process-wide table behind every emulated backend
// handle, mirroring the single storage facility a platform would provide.
// It starts empty; entries are cleaned up by each container's DeleteKey
// call, never at process exit.
var sharedTable = newKeyTable()

// emulatedBackend implements IKeyBackend on top of a keyTable.
type emulatedBackend struct {
	table *keyTable
}

// NewEmulatedBackend creates a handle to the emulated goroutine-local
// storage backend. All handles share one process-wide key table, so key ids
// are unique across handles.
//
// Thread-safety: All methods are thread-safe and can be called concurrently.
func NewEmulatedBackend() IKeyBackend {
	return &emulatedBackend{table: sharedTable}
}

func (b *emulatedBackend) CreateKey(dtor Destructor) (Key, error) {
	return b.table.createKey(dtor)
}

func (b *emulatedBackend) Get(key Key) (any, bool) {
	return b.table.get(key)
}

func (b *emulatedBackend) Set(key Key, value any) {
	b.table.set(key, value)
}

func (b *emulatedBackend) DeleteKey(key Key) {
	b.table.deleteKey(key)
}

func (b *emulatedBackend) SupportsFeature(feature Feature) bool {
	supported := FeatureKeyRecycling | FeatureLazyRows | FeatureSweepOnDelete
	return supported&feature == feature
}

func (b *emulatedBackend) Info() BackendInfo {
	keys, rows := b.table.stats()
	return BackendInfo{
		Type:              ImplEmulated,
		LiveKeys:          keys,
		LiveEntries:       rows,
		SupportedFeatures: []Feature{FeatureKeyRecycling, FeatureLazyRows, FeatureSweepOnDelete},
	}
}
