package membership

import (
	"sort"
	"sync"

	"golang.org/x/exp/maps"
)

// Registry is the set of servers joined to a master, keyed by server type and
// id. There is at most one record per key, and records are never modified in
// place.
type Registry struct {
	mut   sync.RWMutex
	infos map[Key]InnerServerInfo
}

func NewRegistry() *Registry {
	return &Registry{
		infos: make(map[Key]InnerServerInfo),
	}
}

// Add inserts the record unless its key is already present.
func (r *Registry) Add(info InnerServerInfo) bool {
	r.mut.Lock()
	defer r.mut.Unlock()

	if _, ok := r.infos[info.Key()]; ok {
		return false
	}

	r.infos[info.Key()] = info

	return true
}

// Replace stores the record, overwriting any previous record with the same key.
func (r *Registry) Replace(info InnerServerInfo) (old InnerServerInfo, replaced bool) {
	r.mut.Lock()
	defer r.mut.Unlock()

	old, replaced = r.infos[info.Key()]
	r.infos[info.Key()] = info

	return old, replaced
}

// Remove deletes the record with the given key, returning it if it was present.
func (r *Registry) Remove(key Key) (InnerServerInfo, bool) {
	r.mut.Lock()
	defer r.mut.Unlock()

	info, ok := r.infos[key]
	if ok {
		delete(r.infos, key)
	}

	return info, ok
}

func (r *Registry) Get(key Key) (InnerServerInfo, bool) {
	r.mut.RLock()
	defer r.mut.RUnlock()

	info, ok := r.infos[key]

	return info, ok
}

func (r *Registry) Has(key Key) bool {
	_, ok := r.Get(key)
	return ok
}

func (r *Registry) Len() int {
	r.mut.RLock()
	defer r.mut.RUnlock()

	return len(r.infos)
}

// Snapshot returns all records except the excluded keys, ordered by type and id.
func (r *Registry) Snapshot(exclude ...Key) []InnerServerInfo {
	r.mut.RLock()
	infos := maps.Values(r.infos)
	r.mut.RUnlock()

	skip := make(map[Key]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}

	result := infos[:0]

	for _, info := range infos {
		if !skip[info.Key()] {
			result = append(result, info)
		}
	}

	sortInfos(result)

	return result
}

// OfType returns the records of the given server type, ordered by id.
func (r *Registry) OfType(t ServerType) []InnerServerInfo {
	r.mut.RLock()
	result := make([]InnerServerInfo, 0, len(r.infos))

	for key, info := range r.infos {
		if key.Type == t {
			result = append(result, info)
		}
	}
	r.mut.RUnlock()

	sortInfos(result)

	return result
}

func sortInfos(infos []InnerServerInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Type != infos[j].Type {
			return infos[i].Type < infos[j].Type
		}

		return infos[i].ID < infos[j].ID
	})
}
