package cluster

import (
	"sort"

	"github.com/maxpoletaev/gamemesh/internal/generic"
	"github.com/maxpoletaev/gamemesh/internal/multierror"
	"github.com/maxpoletaev/gamemesh/membership"
)

// PeerTable holds the direct links of a node, at most one per server key.
type PeerTable struct {
	peers generic.SyncMap[membership.Key, *Slave]
}

func NewPeerTable() *PeerTable {
	return &PeerTable{}
}

// LoadOrStore inserts the slave unless the key already has a link. The check
// and the insert are atomic, so concurrent join events dial at most once.
func (t *PeerTable) LoadOrStore(key membership.Key, s *Slave) (actual *Slave, loaded bool) {
	return t.peers.LoadOrStore(key, s)
}

// CompareAndDelete removes the entry only if it still holds s.
func (t *PeerTable) CompareAndDelete(key membership.Key, s *Slave) bool {
	return t.peers.CompareAndDelete(key, s)
}

func (t *PeerTable) LoadAndDelete(key membership.Key) (*Slave, bool) {
	return t.peers.LoadAndDelete(key)
}

func (t *PeerTable) Get(key membership.Key) (*Slave, bool) {
	return t.peers.Load(key)
}

// Keys returns the keys of all links, ordered by type and id.
func (t *PeerTable) Keys() []membership.Key {
	var keys []membership.Key

	t.peers.Range(func(key membership.Key, _ *Slave) bool {
		keys = append(keys, key)
		return true
	})

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}

		return keys[i].ID < keys[j].ID
	})

	return keys
}

func (t *PeerTable) Len() int {
	return t.peers.Len()
}

// CloseAll removes and stops every link.
func (t *PeerTable) CloseAll() error {
	errs := multierror.New[membership.Key]()

	for _, key := range t.Keys() {
		if s, ok := t.peers.LoadAndDelete(key); ok {
			errs.Add(key, s.Stop())
		}
	}

	return errs.Combined()
}
