package generic

import "sync"

// SyncMap is a typed wrapper around sync.Map. It is meant for tables that are
// written rarely and read from many goroutines at once, such as binding tables
// and connection registries.
type SyncMap[K comparable, V any] struct {
	m sync.Map
}

func (m *SyncMap[K, V]) Store(key K, value V) {
	m.m.Store(key, value)
}

func (m *SyncMap[K, V]) Load(key K) (value V, ok bool) {
	if v, ok := m.m.Load(key); ok {
		return v.(V), true
	}

	return value, false
}

// LoadOrStore returns the existing value for the key if present. Otherwise, it
// stores the given value. The check and the insert happen atomically.
func (m *SyncMap[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	v, loaded := m.m.LoadOrStore(key, value)
	return v.(V), loaded
}

func (m *SyncMap[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	if v, loaded := m.m.LoadAndDelete(key); loaded {
		return v.(V), true
	}

	return value, false
}

// CompareAndDelete deletes the entry for key only if it still holds old. The
// value type must be comparable.
func (m *SyncMap[K, V]) CompareAndDelete(key K, old V) bool {
	return m.m.CompareAndDelete(key, old)
}

func (m *SyncMap[K, V]) Delete(key K) {
	m.m.Delete(key)
}

// Range calls f for each entry. Iteration stops when f returns false.
func (m *SyncMap[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

// Len counts the entries. It walks the whole map, so keep it off hot paths.
func (m *SyncMap[K, V]) Len() int {
	n := 0

	m.m.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}
