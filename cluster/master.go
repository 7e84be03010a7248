package cluster

import (
	"crypto/subtle"
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gamemesh/internal/generic"
	"github.com/maxpoletaev/gamemesh/internal/hrw"
	"github.com/maxpoletaev/gamemesh/internal/multierror"
	"github.com/maxpoletaev/gamemesh/membership"
	"github.com/maxpoletaev/gamemesh/message"
	"github.com/maxpoletaev/gamemesh/transport"
)

// session is the master side of one accepted connection.
type session struct {
	master *Master
	conn   *transport.Conn
	logger kitlog.Logger
	joined atomic.Bool
	info   membership.InnerServerInfo // set once joined
}

func (s *session) admit(id message.ID) bool {
	if s.joined.Load() {
		return true
	}

	return id == membership.ConnectRequestID
}

// Master accepts slaves, keeps the authoritative membership registry and
// propagates joins and quits to every joined slave.
type Master struct {
	conf     MasterConfig
	logger   kitlog.Logger
	registry *membership.Registry

	// joinMut serializes join and quit processing, so that the snapshot sent
	// to a new slave and the broadcasts seen by others never disagree.
	joinMut sync.Mutex
	owners  map[membership.Key]*session

	sessions generic.SyncMap[*transport.Conn, *session]
	loads    generic.SyncMap[membership.Key, *atomic.Int32]

	serverMut sync.Mutex
	server    *transport.Server
	stopOnce  sync.Once
	stopped   chan struct{}
}

func NewMaster(conf MasterConfig) (*Master, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}

	return &Master{
		conf:     conf,
		logger:   kitlog.With(conf.Logger, "component", "master"),
		registry: membership.NewRegistry(),
		owners:   make(map[membership.Key]*session),
		stopped:  make(chan struct{}),
	}, nil
}

// Accept starts serving a connection. The peer has HandshakeTimeout to send a
// valid connect request, otherwise the connection is closed.
func (m *Master) Accept(conn *transport.Conn) {
	select {
	case <-m.stopped:
		_ = conn.Close()
		return
	default:
	}

	s := &session{
		master: m,
		conn:   conn,
		logger: kitlog.With(m.logger, "conn_id", conn.ID(), "addr", conn.RemoteAddr()),
	}

	conn.SetAttachment(s)
	m.sessions.Store(conn, s)

	timer := time.AfterFunc(m.conf.HandshakeTimeout, func() {
		if !s.joined.Load() {
			level.Warn(s.logger).Log("msg", "handshake timed out")
			m.conf.Protocol.Metrics.handshakeFailed("timeout")
			_ = conn.Close()
		}
	})

	conn.OnClose(func() {
		timer.Stop()
		m.sessions.Delete(conn)
		m.leave(s)
	})

	// Stop may have run between the check above and the store.
	select {
	case <-m.stopped:
		_ = conn.Close()
		return
	default:
	}

	go func() {
		if err := m.conf.Protocol.serve(conn, s.admit, s.logger); err != nil {
			level.Warn(s.logger).Log("msg", "connection closed with error", "err", err)
			return
		}

		level.Debug(s.logger).Log("msg", "connection closed")
	}()
}

// Serve accepts connections from the listener over gRPC until Stop is called.
func (m *Master) Serve(lis net.Listener) error {
	m.serverMut.Lock()

	select {
	case <-m.stopped:
		m.serverMut.Unlock()
		return ErrStopped
	default:
	}

	srv := transport.NewServer(m.Accept, m.logger)
	m.server = srv
	m.serverMut.Unlock()

	level.Info(m.logger).Log("msg", "accepting slaves", "addr", lis.Addr())

	return srv.Serve(lis)
}

func (m *Master) reply(s *session, code membership.ConnectCode) {
	resp := &membership.ConnectResponse{Code: code, Master: m.conf.Self.Info()}

	if err := s.conn.Send(resp); err != nil {
		level.Debug(s.logger).Log("msg", "failed to send connect response", "err", err)
	}
}

func (m *Master) reject(s *session, code membership.ConnectCode, reason string) {
	level.Warn(s.logger).Log("msg", "connect request rejected", "reason", reason)
	m.conf.Protocol.Metrics.handshakeFailed(reason)

	m.reply(s, code)
	_ = s.conn.Close()
}

func (m *Master) handleConnect(s *session, req *membership.ConnectRequest) {
	if s.joined.Load() {
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(m.conf.Secret)) != 1 {
		m.reject(s, membership.ConnectAuthFailed, "auth_failed")
		return
	}

	info := req.Info
	key := info.Key()

	m.joinMut.Lock()

	select {
	case <-m.stopped:
		m.joinMut.Unlock()
		m.reject(s, membership.ConnectRejected, "stopping")

		return
	default:
	}

	if s.conn.IsClosed() {
		m.joinMut.Unlock()
		return
	}

	if !m.registry.Add(info) {
		m.joinMut.Unlock()
		m.reject(s, membership.ConnectDuplicate, "duplicate")

		return
	}

	s.info = info
	s.joined.Store(true)
	s.conn.SetTag(key)
	m.owners[key] = s
	m.loads.Store(key, new(atomic.Int32))

	m.reply(s, membership.ConnectOK)

	if err := s.conn.Send(&membership.ServerJoined{Infos: m.registry.Snapshot(key)}); err != nil {
		level.Warn(s.logger).Log("msg", "failed to send member snapshot", "err", err)
	}

	m.broadcast(key, &membership.ServerJoined{Infos: []membership.InnerServerInfo{info}})
	m.conf.Protocol.Metrics.setMembers(m.registry.Len())

	m.joinMut.Unlock()

	level.Info(s.logger).Log("msg", "server joined", "server", key, "inner_addr", info.InnerAddr())

	m.conf.OnJoin(info)

	// The close hook may have run before the session was marked as joined.
	if s.conn.IsClosed() {
		m.leave(s)
	}
}

// broadcast sends msg to every joined slave except the one with the given key.
// Must be called with joinMut held.
func (m *Master) broadcast(except membership.Key, msg message.Message) {
	frame, err := message.Marshal(msg)
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to encode broadcast", "err", err)
		return
	}

	for key, s := range m.owners {
		if key == except {
			continue
		}

		if err := s.conn.SendFrame(frame); err != nil {
			level.Debug(s.logger).Log("msg", "broadcast failed", "err", err)
		}
	}
}

// leave removes the session's registry entry, if it still owns one.
func (m *Master) leave(s *session) {
	if !s.joined.CompareAndSwap(true, false) {
		return
	}

	key := s.info.Key()

	m.joinMut.Lock()

	if m.owners[key] != s {
		m.joinMut.Unlock()
		return
	}

	delete(m.owners, key)
	m.registry.Remove(key)
	m.loads.Delete(key)

	m.broadcast(key, &membership.ServerQuit{Type: key.Type, ID: key.ID})
	m.conf.Protocol.Metrics.setMembers(m.registry.Len())

	m.joinMut.Unlock()

	level.Info(s.logger).Log("msg", "server quit", "server", key)

	m.conf.OnQuit(s.info)
}

func (m *Master) handleLeave(s *session) {
	m.leave(s)
	_ = s.conn.Close()
}

func (m *Master) handleLoad(s *session, report *membership.LoadReport) {
	if !s.joined.Load() {
		return
	}

	if load, ok := m.loads.Load(s.info.Key()); ok {
		load.Store(report.Load)
	}
}

// Load returns the last load reported by a joined server.
func (m *Master) Load(key membership.Key) (int32, bool) {
	load, ok := m.loads.Load(key)
	if !ok {
		return 0, false
	}

	return load.Load(), true
}

// Pick selects the least loaded server of the given type. Servers with equal
// load are ranked by rendezvous hashing of routingKey, so the same key keeps
// landing on the same server while loads are even.
func (m *Master) Pick(serverType membership.ServerType, routingKey string) (membership.InnerServerInfo, bool) {
	candidates := m.registry.OfType(serverType)
	if len(candidates) == 0 {
		return membership.InnerServerInfo{}, false
	}

	type scored struct {
		info membership.InnerServerInfo
		load int32
	}

	ranked := make([]scored, 0, len(candidates))

	for _, info := range candidates {
		load, ok := m.Load(info.Key())
		if !ok {
			continue
		}

		ranked = append(ranked, scored{info: info, load: load})
	}

	if len(ranked) == 0 {
		return membership.InnerServerInfo{}, false
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].load < ranked[j].load
	})

	var (
		tied  []membership.InnerServerInfo
		names []string
	)

	for _, r := range ranked {
		if r.load != ranked[0].load {
			break
		}

		tied = append(tied, r.info)
		names = append(names, r.info.Key().String())
	}

	return tied[hrw.Best(routingKey, names)], true
}

// Members returns the joined servers ordered by type and id.
func (m *Master) Members() []membership.InnerServerInfo {
	return m.registry.Snapshot()
}

func (m *Master) Registry() *membership.Registry {
	return m.registry
}

// Stop closes the listener and every connection. Each joined slave is
// removed from the registry as its connection closes.
func (m *Master) Stop() error {
	errs := multierror.New[string]()

	m.stopOnce.Do(func() {
		m.serverMut.Lock()
		close(m.stopped)
		srv := m.server
		m.serverMut.Unlock()

		if srv != nil {
			srv.Stop()
		}

		m.sessions.Range(func(conn *transport.Conn, _ *session) bool {
			errs.Add(conn.ID().String(), conn.Close())
			return true
		})

		level.Info(m.logger).Log("msg", "master stopped")
	})

	return errs.Combined()
}
