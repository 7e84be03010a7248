package cluster

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/gamemesh/membership"
	"github.com/maxpoletaev/gamemesh/message"
	"github.com/maxpoletaev/gamemesh/transport"
)

const (
	masterIP     = "10.0.0.1"
	masterSecret = "master-secret"
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

var (
	keyA = membership.Key{Type: membership.ServerTypeGame, ID: 1}
	keyB = membership.Key{Type: membership.ServerTypeFight, ID: 2}
)

// testNet routes dials to in-process masters over pipes.
type testNet struct {
	mut     sync.Mutex
	masters map[string]*Master
	dials   map[string]int
}

func newTestNet() *testNet {
	return &testNet{
		masters: make(map[string]*Master),
		dials:   make(map[string]int),
	}
}

func (n *testNet) listen(addr string, m *Master) {
	n.mut.Lock()
	n.masters[addr] = m
	n.mut.Unlock()
}

func (n *testNet) dialCount(addr string) int {
	n.mut.Lock()
	defer n.mut.Unlock()

	return n.dials[addr]
}

func (n *testNet) DialContext(_ context.Context, addr string) (*transport.Conn, error) {
	n.mut.Lock()
	m, ok := n.masters[addr]
	n.dials[addr]++
	n.mut.Unlock()

	if !ok {
		return nil, errors.New("connection refused")
	}

	local, remote := transport.Pipe()
	m.Accept(remote)

	return local, nil
}

func newTestProtocol(t *testing.T) *Protocol {
	p, err := NewProtocol(kitlog.NewNopLogger(), nil)
	require.NoError(t, err)

	return p
}

func testIdentity(serverType membership.ServerType, id int32, ip string) membership.ServerIdentity {
	return membership.ServerIdentity{
		ID:        id,
		Type:      serverType,
		OutIP:     ip,
		OutPort:   9000,
		OutPass:   "out-" + ip,
		InnerPort: 9100,
		InnerPass: "inner-" + ip,
	}
}

func innerAddr(ip string) string {
	return net.JoinHostPort(ip, strconv.Itoa(9100))
}

func testMasterConfig(proto *Protocol, self membership.ServerIdentity) MasterConfig {
	conf := DefaultMasterConfig()
	conf.Self = self
	conf.Secret = self.InnerPass
	conf.Protocol = proto
	conf.HandshakeTimeout = time.Second

	return conf
}

// startMaster runs a master for self and makes it reachable on its inner address.
func startMaster(t *testing.T, tn *testNet, conf MasterConfig) *Master {
	m, err := NewMaster(conf)
	require.NoError(t, err)

	tn.listen(conf.Self.Info().InnerAddr(), m)

	t.Cleanup(func() {
		_ = m.Stop()
	})

	return m
}

func masterIdentity() membership.ServerIdentity {
	self := testIdentity(membership.ServerTypePublic, 100, masterIP)
	self.InnerPass = masterSecret

	return self
}

func testSlaveConfig(proto *Protocol, dialer transport.Dialer, self membership.ServerIdentity) SlaveConfig {
	conf := DefaultSlaveConfig()
	conf.Self = self
	conf.MasterIP = masterIP
	conf.MasterInnerPort = 9100
	conf.MasterInnerPass = masterSecret
	conf.Dialer = dialer
	conf.Protocol = proto
	conf.HandshakeTimeout = time.Second
	conf.Reconnect = false
	conf.ReconnectDelay = 10 * time.Millisecond
	conf.MaxReconnectDelay = 50 * time.Millisecond
	conf.LoadReportInterval = 0

	return conf
}

func startSlave(t *testing.T, conf SlaveConfig) *Slave {
	s, err := NewSlave(conf)
	require.NoError(t, err)

	s.Start()

	t.Cleanup(func() {
		_ = s.Stop()
	})

	return s
}

func waitState(t *testing.T, s *Slave, state membership.State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return s.State() == state
	}, waitFor, tick, "slave %s never reached %s", s.Name(), state)
}

// events records membership callbacks.
type events struct {
	mut    sync.Mutex
	joined []membership.Key
	quit   []membership.Key
}

func (e *events) onJoin(info membership.InnerServerInfo) {
	e.mut.Lock()
	e.joined = append(e.joined, info.Key())
	e.mut.Unlock()
}

func (e *events) onQuit(serverType membership.ServerType, id int32) {
	e.mut.Lock()
	e.quit = append(e.quit, membership.Key{Type: serverType, ID: id})
	e.mut.Unlock()
}

func (e *events) joinedKeys() []membership.Key {
	e.mut.Lock()
	defer e.mut.Unlock()

	return append([]membership.Key(nil), e.joined...)
}

func (e *events) quitKeys() []membership.Key {
	e.mut.Lock()
	defer e.mut.Unlock()

	return append([]membership.Key(nil), e.quit...)
}

// rawClient connects to the master without a Slave, so the test controls
// every frame sent.
func rawClient(t *testing.T, proto *Protocol, m *Master) (*transport.Conn, <-chan message.Message) {
	local, remote := transport.Pipe()
	received := make(chan message.Message, 16)

	m.Accept(remote)

	go func() {
		defer close(received)

		_ = local.Serve(func(frame []byte) error {
			msg, err := proto.Messages.Unmarshal(frame)
			if err != nil {
				return err
			}

			received <- msg

			return nil
		})
	}()

	t.Cleanup(func() {
		_ = local.Close()
	})

	return local, received
}

func next(t *testing.T, ch <-chan message.Message) message.Message {
	t.Helper()

	select {
	case msg, ok := <-ch:
		require.True(t, ok, "connection closed")
		return msg
	case <-time.After(waitFor):
		t.Fatal("no message received")
		return nil
	}
}

func memberKeys(infos []membership.InnerServerInfo) []membership.Key {
	keys := make([]membership.Key, 0, len(infos))
	for _, info := range infos {
		keys = append(keys, info.Key())
	}

	return keys
}
