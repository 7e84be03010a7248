package cluster

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/maxpoletaev/gamemesh/membership"
	"github.com/maxpoletaev/gamemesh/message"
	"github.com/maxpoletaev/gamemesh/transport"
)

// Slave keeps a server connected and joined to its master. It dials,
// authenticates, serves the connection and, if configured, reconnects with
// exponential backoff when the connection is lost.
type Slave struct {
	conf   SlaveConfig
	logger kitlog.Logger

	stateMut sync.Mutex
	state    membership.State

	conn   atomic.Pointer[transport.Conn]
	joined atomic.Pointer[transport.Conn]
	master atomic.Pointer[membership.InnerServerInfo]

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// notifying is non-zero while a user callback runs on the loop goroutine.
	notifying atomic.Int32

	// onRelease runs once the slave is done for good, either because of Stop
	// or because the connection was lost and reconnecting is disabled.
	onRelease func()
}

// NewSlave validates the config and creates a slave. Nothing is dialed until
// Start is called.
func NewSlave(conf SlaveConfig) (*Slave, error) {
	if err := conf.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Slave{
		conf:      conf,
		logger:    kitlog.With(conf.Logger, "slave", conf.Name),
		ctx:       ctx,
		cancel:    cancel,
		onRelease: func() {},
	}, nil
}

func (s *Slave) Name() string {
	return s.conf.Name
}

// MasterAddr is the inner address the slave dials.
func (s *Slave) MasterAddr() string {
	return net.JoinHostPort(s.conf.MasterIP, strconv.Itoa(s.conf.MasterInnerPort))
}

func (s *Slave) State() membership.State {
	s.stateMut.Lock()
	defer s.stateMut.Unlock()

	return s.state
}

func (s *Slave) setState(next membership.State) bool {
	s.stateMut.Lock()
	defer s.stateMut.Unlock()

	if next != membership.StateDisconnected && s.stopped() {
		return false
	}

	if s.state == next || !s.state.CanTransition(next) {
		return false
	}

	level.Debug(s.logger).Log("msg", "state changed", "from", s.state, "to", next)
	s.state = next

	return true
}

// Conn returns the current connection to the master, or nil.
func (s *Slave) Conn() *transport.Conn {
	return s.conn.Load()
}

// Master returns the info the master sent on the last successful handshake.
func (s *Slave) Master() (membership.InnerServerInfo, bool) {
	info := s.master.Load()
	if info == nil {
		return membership.InnerServerInfo{}, false
	}

	return *info, true
}

// Load is the current load of this server, as reported to the master.
func (s *Slave) Load() int32 {
	return s.conf.ServerLoad()
}

func (s *Slave) stopped() bool {
	return s.ctx.Err() != nil
}

// Start runs the connection loop in the background. Calling it more than
// once has no effect.
func (s *Slave) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Stop disconnects from the master and waits for the background goroutines
// to exit. A best-effort leave request is sent first when joined. It is safe
// to call Stop multiple times and from multiple goroutines. When called from
// one of the membership callbacks, Stop does not wait: the loop exits once
// the callback returns.
func (s *Slave) Stop() error {
	var err error

	s.stopOnce.Do(func() {
		s.cancel()

		if conn := s.conn.Swap(nil); conn != nil {
			if s.joined.Load() == conn {
				_ = conn.Send(&membership.LeaveRequest{})
			}

			err = conn.Close()
		}

		s.setState(membership.StateDisconnected)
		s.onRelease()

		level.Info(s.logger).Log("msg", "slave stopped")
	})

	if s.notifying.Load() == 0 {
		s.wg.Wait()
	}

	return err
}

// notify runs a user callback on the loop goroutine.
func (s *Slave) notify(f func()) {
	s.notifying.Add(1)
	defer s.notifying.Add(-1)

	f()
}

// release ends the slave from within its own loop, without waiting for it.
func (s *Slave) release() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.setState(membership.StateDisconnected)
		s.onRelease()
	})
}

func (s *Slave) run() {
	defer s.wg.Done()

	delay := s.conf.ReconnectDelay

	for {
		if !s.setState(membership.StateConnecting) {
			return
		}

		joined, err := s.connectAndServe()
		if s.stopped() {
			return
		}

		if err != nil {
			level.Warn(s.logger).Log("msg", "master connection failed", "addr", s.MasterAddr(), "err", err)
		} else {
			level.Info(s.logger).Log("msg", "master connection closed", "addr", s.MasterAddr())
		}

		if !s.conf.Reconnect {
			s.release()
			return
		}

		s.setState(membership.StateReconnecting)

		if joined {
			delay = s.conf.ReconnectDelay
		}

		level.Debug(s.logger).Log("msg", "reconnecting", "delay", delay)

		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return
		}

		delay *= 2
		if delay > s.conf.MaxReconnectDelay {
			delay = s.conf.MaxReconnectDelay
		}
	}
}

func (s *Slave) connectAndServe() (joined bool, err error) {
	addr := s.MasterAddr()

	dialCtx, cancel := context.WithTimeout(s.ctx, s.conf.HandshakeTimeout)
	conn, err := s.conf.Dialer.DialContext(dialCtx, addr)
	cancel()

	if err != nil {
		s.conf.Protocol.Metrics.handshakeFailed("dial")
		return false, fmt.Errorf("dial %s: %w", addr, err)
	}

	logger := kitlog.With(s.logger, "conn_id", conn.ID())

	conn.SetAttachment(s)
	s.conn.Store(conn)

	defer s.conn.CompareAndSwap(conn, nil)

	// Stop may have missed the connection stored above.
	if s.stopped() {
		_ = conn.Close()
		return false, nil
	}

	s.setState(membership.StateAuthenticating)

	timer := time.AfterFunc(s.conf.HandshakeTimeout, func() {
		if s.joined.Load() != conn {
			level.Warn(logger).Log("msg", "handshake timed out")
			s.conf.Protocol.Metrics.handshakeFailed("timeout")
			_ = conn.Close()
		}
	})
	defer timer.Stop()

	req := &membership.ConnectRequest{
		Secret: s.conf.MasterInnerPass,
		Info:   s.conf.Self.Info(),
	}

	if err := conn.Send(req); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("send connect request: %w", err)
	}

	admit := func(id message.ID) bool {
		if s.joined.Load() == conn {
			return true
		}

		return id == membership.ConnectResponseID
	}

	err = s.conf.Protocol.serve(conn, admit, logger)

	return s.joined.Load() == conn, err
}

func (s *Slave) handleConnectResponse(conn *transport.Conn, resp *membership.ConnectResponse) {
	if s.joined.Load() == conn {
		return
	}

	if resp.Code != membership.ConnectOK {
		level.Error(s.logger).Log("msg", "master refused connection", "addr", s.MasterAddr(), "code", resp.Code)
		s.conf.Protocol.Metrics.handshakeFailed("refused")
		_ = conn.Close()

		return
	}

	master := resp.Master
	s.master.Store(&master)
	conn.SetTag(master.Key())

	if !s.setState(membership.StateJoined) {
		_ = conn.Close()
		return
	}

	s.joined.Store(conn)

	level.Info(s.logger).Log("msg", "joined master", "master", master.Key(), "addr", s.MasterAddr())

	s.startLoadReporter(conn)
	s.notify(func() { s.conf.OnConnectMasterSuccess(s) })
}

func (s *Slave) handleServerJoined(msg *membership.ServerJoined) {
	self := s.conf.Self.Key()

	for _, info := range msg.Infos {
		if s.stopped() {
			return
		}

		if info.Key() == self {
			continue
		}

		s.notify(func() { s.conf.OnNewSlaveJoin(info) })
	}
}

func (s *Slave) handleServerQuit(msg *membership.ServerQuit) {
	if s.stopped() {
		return
	}

	s.notify(func() { s.conf.OnNewSlaveQuit(msg.Type, msg.ID) })
}

func (s *Slave) startLoadReporter(conn *transport.Conn) {
	if s.conf.LoadReportInterval <= 0 {
		return
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.conf.LoadReportInterval)
		defer ticker.Stop()

		for {
			if err := conn.Send(&membership.LoadReport{Load: s.conf.ServerLoad()}); err != nil {
				level.Debug(s.logger).Log("msg", "failed to report load", "err", err)
			}

			select {
			case <-ticker.C:
			case <-conn.Done():
				return
			case <-s.ctx.Done():
				return
			}
		}
	}()
}
