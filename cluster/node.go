package cluster

import (
	"fmt"
	"sync"
	"sync/atomic"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gamemesh/internal/multierror"
	"github.com/maxpoletaev/gamemesh/membership"
)

type NodeConfig struct {
	// Upstream is the connection to the master. Its join and quit callbacks
	// still run after the node has updated its peer links.
	Upstream SlaveConfig
	// Interest selects the joined servers this node links to directly.
	// When nil, no peer links are made.
	Interest func(info membership.InnerServerInfo) bool
	Metrics  *Metrics
}

// InterestedIn returns an interest predicate matching the given server types.
func InterestedIn(types ...membership.ServerType) func(membership.InnerServerInfo) bool {
	set := make(map[membership.ServerType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}

	return func(info membership.InnerServerInfo) bool {
		return set[info.Type]
	}
}

// Node is a cluster member: an upstream link to the master plus direct links
// to the peers it is interested in, kept in sync with membership events.
type Node struct {
	conf     NodeConfig
	logger   kitlog.Logger
	upstream *Slave
	peers    *PeerTable
	stopped  atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

func NewNode(conf NodeConfig) (*Node, error) {
	n := &Node{
		conf:  conf,
		peers: NewPeerTable(),
	}

	up := conf.Upstream
	onJoin, onQuit := up.OnNewSlaveJoin, up.OnNewSlaveQuit

	up.OnNewSlaveJoin = func(info membership.InnerServerInfo) {
		n.onJoin(info)

		if onJoin != nil {
			onJoin(info)
		}
	}

	up.OnNewSlaveQuit = func(serverType membership.ServerType, serverID int32) {
		n.onQuit(membership.Key{Type: serverType, ID: serverID})

		if onQuit != nil {
			onQuit(serverType, serverID)
		}
	}

	upstream, err := NewSlave(up)
	if err != nil {
		return nil, fmt.Errorf("upstream: %w", err)
	}

	n.upstream = upstream
	n.logger = kitlog.With(upstream.conf.Logger, "component", "node")

	if n.conf.Interest == nil {
		n.conf.Interest = func(membership.InnerServerInfo) bool { return false }
	}

	return n, nil
}

func (n *Node) peerConfig(info membership.InnerServerInfo) SlaveConfig {
	key := info.Key()
	up := n.upstream.conf

	return SlaveConfig{
		Name:               "peer-" + key.String(),
		Self:               up.Self,
		MasterIP:           info.InnerIP,
		MasterInnerPort:    info.InnerPort,
		MasterInnerPass:    info.InnerPass,
		MasterServerPort:   info.OutPort,
		MasterServerPass:   info.OutPass,
		ServerLoad:         up.ServerLoad,
		Dialer:             up.Dialer,
		Protocol:           up.Protocol,
		Logger:             up.Logger,
		HandshakeTimeout:   up.HandshakeTimeout,
		LoadReportInterval: up.LoadReportInterval,
		OnConnectMasterSuccess: func(s *Slave) {
			if conn := s.Conn(); conn != nil {
				conn.SetTag(key)
			}

			level.Info(n.logger).Log("msg", "peer link established", "peer", key)
		},
	}
}

func (n *Node) onJoin(info membership.InnerServerInfo) {
	key := info.Key()

	if n.stopped.Load() || key == n.upstream.conf.Self.Key() || !n.conf.Interest(info) {
		return
	}

	if _, ok := n.peers.Get(key); ok {
		return
	}

	peer, err := NewSlave(n.peerConfig(info))
	if err != nil {
		level.Error(n.logger).Log("msg", "invalid peer", "peer", key, "err", err)
		return
	}

	peer.onRelease = func() {
		if n.peers.CompareAndDelete(key, peer) {
			level.Info(n.logger).Log("msg", "peer link lost", "peer", key)
			n.conf.Metrics.setPeers(n.peers.Len())
		}
	}

	if _, loaded := n.peers.LoadOrStore(key, peer); loaded {
		return
	}

	// Stop may have closed the table between the check above and the store.
	if n.stopped.Load() {
		n.peers.CompareAndDelete(key, peer)
		return
	}

	n.conf.Metrics.setPeers(n.peers.Len())
	peer.Start()
}

func (n *Node) onQuit(key membership.Key) {
	peer, ok := n.peers.LoadAndDelete(key)
	if !ok {
		return
	}

	n.conf.Metrics.setPeers(n.peers.Len())
	level.Info(n.logger).Log("msg", "closing peer link", "peer", key)

	if err := peer.Stop(); err != nil {
		level.Debug(n.logger).Log("msg", "peer link closed with error", "peer", key, "err", err)
	}
}

// Start connects to the master. Peer links follow membership events.
func (n *Node) Start() {
	n.upstream.Start()
}

// Stop closes the upstream link and every peer link. It may be called from
// the upstream membership callbacks.
func (n *Node) Stop() error {
	n.stopOnce.Do(func() {
		n.stopped.Store(true)

		errs := multierror.New[string]()

		errs.Add("upstream", n.upstream.Stop())

		if err := n.peers.CloseAll(); err != nil {
			errs.Add("peers", err)
		}

		n.conf.Metrics.setPeers(0)
		n.stopErr = errs.Combined()
	})

	return n.stopErr
}

func (n *Node) Upstream() *Slave {
	return n.upstream
}

// Peer returns the direct link to the given server, if there is one.
func (n *Node) Peer(key membership.Key) (*Slave, bool) {
	return n.peers.Get(key)
}

// Peers returns the keys of all direct links.
func (n *Node) Peers() []membership.Key {
	return n.peers.Keys()
}

func (n *Node) PeerTable() *PeerTable {
	return n.peers
}

type PeerStatus struct {
	Key   membership.Key
	Addr  string
	State membership.State
}

// NodeStatus is a point-in-time view of the node's links.
type NodeStatus struct {
	Self     membership.Key
	Upstream membership.State
	Master   *membership.InnerServerInfo
	Peers    []PeerStatus
}

func (n *Node) Status() NodeStatus {
	status := NodeStatus{
		Self:     n.upstream.conf.Self.Key(),
		Upstream: n.upstream.State(),
	}

	if master, ok := n.upstream.Master(); ok {
		status.Master = &master
	}

	for _, key := range n.peers.Keys() {
		if peer, ok := n.peers.Get(key); ok {
			status.Peers = append(status.Peers, PeerStatus{
				Key:   key,
				Addr:  peer.MasterAddr(),
				State: peer.State(),
			})
		}
	}

	return status
}
