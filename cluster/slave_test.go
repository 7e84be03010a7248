package cluster

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxpoletaev/gamemesh/membership"
)

func TestNewSlave_InvalidConfig(t *testing.T) {
	proto := newTestProtocol(t)
	self := testIdentity(membership.ServerTypeGame, 1, "10.0.0.10")

	tests := map[string]func(c *SlaveConfig){
		"NoProtocol":         func(c *SlaveConfig) { c.Protocol = nil },
		"NoDialer":           func(c *SlaveConfig) { c.Dialer = nil },
		"NoMasterIP":         func(c *SlaveConfig) { c.MasterIP = "" },
		"BadMasterPort":      func(c *SlaveConfig) { c.MasterInnerPort = 70000 },
		"NoHandshakeTimeout": func(c *SlaveConfig) { c.HandshakeTimeout = 0 },
		"NegativeInterval":   func(c *SlaveConfig) { c.LoadReportInterval = -time.Second },
		"NoReconnectDelay": func(c *SlaveConfig) {
			c.Reconnect = true
			c.ReconnectDelay = 0
		},
		"MaxDelayBelowDelay": func(c *SlaveConfig) {
			c.Reconnect = true
			c.MaxReconnectDelay = time.Millisecond
		},
		"BadServerType": func(c *SlaveConfig) { c.Self.Type = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			conf := testSlaveConfig(proto, newTestNet(), self)
			mutate(&conf)

			_, err := NewSlave(conf)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSlave_DefaultCallbacks(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()
	m := startMaster(t, tn, testMasterConfig(proto, masterIdentity()))

	conf := testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeGame, 1, "10.0.0.10"))
	conf.Logger = nil
	conf.ServerLoad = nil
	conf.OnNewSlaveJoin = nil
	conf.OnNewSlaveQuit = nil
	conf.OnConnectMasterSuccess = nil

	s := startSlave(t, conf)
	waitState(t, s, membership.StateJoined)

	// Callbacks of other joins must not panic.
	startSlave(t, testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeFight, 2, "10.0.0.2")))
	require.Eventually(t, func() bool { return m.Registry().Len() == 2 }, waitFor, tick)
	require.Equal(t, int32(0), s.Load())
}

func TestSlave_Join(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()
	m := startMaster(t, tn, testMasterConfig(proto, masterIdentity()))

	success := make(chan *Slave, 1)

	conf := testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeGame, 1, "10.0.0.10"))
	conf.OnConnectMasterSuccess = func(s *Slave) { success <- s }

	s := startSlave(t, conf)

	select {
	case got := <-success:
		require.Same(t, s, got)
	case <-time.After(waitFor):
		t.Fatal("connect callback was not called")
	}

	require.Equal(t, membership.StateJoined, s.State())
	require.True(t, m.Registry().Has(keyA))

	master, ok := s.Master()
	require.True(t, ok)
	require.Equal(t, masterIdentity().Info(), master)

	tag, ok := s.Conn().Tag()
	require.True(t, ok)
	require.Equal(t, masterIdentity().Key(), tag)
}

func TestSlave_JoinAndQuitNotifications(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()
	startMaster(t, tn, testMasterConfig(proto, masterIdentity()))

	ev := &events{}

	conf := testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeGame, 1, "10.0.0.10"))
	conf.OnNewSlaveJoin = ev.onJoin
	conf.OnNewSlaveQuit = ev.onQuit

	a := startSlave(t, conf)
	waitState(t, a, membership.StateJoined)

	b := startSlave(t, testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeFight, 2, "10.0.0.2")))
	waitState(t, b, membership.StateJoined)

	require.Eventually(t, func() bool { return len(ev.joinedKeys()) == 1 }, waitFor, tick)
	require.Equal(t, []membership.Key{keyB}, ev.joinedKeys())

	require.NoError(t, b.Stop())
	require.Equal(t, membership.StateDisconnected, b.State())

	require.Eventually(t, func() bool { return len(ev.quitKeys()) == 1 }, waitFor, tick)
	require.Equal(t, []membership.Key{keyB}, ev.quitKeys())
}

func TestSlave_RefusedWithoutReconnect(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()
	m := startMaster(t, tn, testMasterConfig(proto, masterIdentity()))

	conf := testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeGame, 1, "10.0.0.10"))
	conf.MasterInnerPass = "wrong"

	s, err := NewSlave(conf)
	require.NoError(t, err)

	released := make(chan struct{})
	s.onRelease = func() { close(released) }

	s.Start()
	defer s.Stop()

	select {
	case <-released:
	case <-time.After(waitFor):
		t.Fatal("slave was not released")
	}

	require.Equal(t, membership.StateDisconnected, s.State())
	require.Equal(t, 0, m.Registry().Len())
	require.Equal(t, 1, tn.dialCount(innerAddr(masterIP)))
}

func TestSlave_Reconnect(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()
	m := startMaster(t, tn, testMasterConfig(proto, masterIdentity()))

	var joins int32

	conf := testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeGame, 1, "10.0.0.10"))
	conf.Reconnect = true
	conf.OnConnectMasterSuccess = func(*Slave) { atomic.AddInt32(&joins, 1) }

	s := startSlave(t, conf)
	waitState(t, s, membership.StateJoined)

	first := s.Conn()
	require.NoError(t, first.Close())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&joins) == 2 && s.State() == membership.StateJoined
	}, waitFor, tick)

	require.NotSame(t, first, s.Conn())
	require.GreaterOrEqual(t, tn.dialCount(innerAddr(masterIP)), 2)
	require.Eventually(t, func() bool { return m.Registry().Has(keyA) }, waitFor, tick)
}

func TestSlave_ReconnectUntilMasterAppears(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()

	conf := testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeGame, 1, "10.0.0.10"))
	conf.Reconnect = true

	s := startSlave(t, conf)

	require.Eventually(t, func() bool {
		return tn.dialCount(innerAddr(masterIP)) >= 2
	}, waitFor, tick)

	require.NotEqual(t, membership.StateJoined, s.State())

	startMaster(t, tn, testMasterConfig(proto, masterIdentity()))
	waitState(t, s, membership.StateJoined)
}

func TestSlave_ReportsLoad(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()
	m := startMaster(t, tn, testMasterConfig(proto, masterIdentity()))

	var load atomic.Int32

	load.Store(42)

	conf := testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeGame, 1, "10.0.0.10"))
	conf.LoadReportInterval = 10 * time.Millisecond
	conf.ServerLoad = load.Load

	s := startSlave(t, conf)

	require.Eventually(t, func() bool {
		v, ok := m.Load(keyA)
		return ok && v == 42
	}, waitFor, tick)

	load.Store(7)

	require.Eventually(t, func() bool {
		v, _ := m.Load(keyA)
		return v == 7
	}, waitFor, tick)

	require.Equal(t, int32(7), s.Load())
}

func TestSlave_StopConcurrent(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()
	m := startMaster(t, tn, testMasterConfig(proto, masterIdentity()))

	conf := testSlaveConfig(proto, tn, testIdentity(membership.ServerTypeGame, 1, "10.0.0.10"))
	conf.Reconnect = true

	s := startSlave(t, conf)
	waitState(t, s, membership.StateJoined)

	var releases int32

	s.onRelease = func() { atomic.AddInt32(&releases, 1) }

	wg := sync.WaitGroup{}

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			_ = s.Stop()
		}()
	}

	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&releases))
	require.Equal(t, membership.StateDisconnected, s.State())
	require.Nil(t, s.Conn())
	require.Eventually(t, func() bool { return !m.Registry().Has(keyA) }, waitFor, tick)
}

func TestSlave_StopBeforeStart(t *testing.T) {
	proto := newTestProtocol(t)

	s, err := NewSlave(testSlaveConfig(proto, newTestNet(), testIdentity(membership.ServerTypeGame, 1, "10.0.0.10")))
	require.NoError(t, err)

	require.NoError(t, s.Stop())
	s.Start()
	require.NoError(t, s.Stop())
	require.Equal(t, membership.StateDisconnected, s.State())
}

func TestSlave_StopFromCallback(t *testing.T) {
	proto := newTestProtocol(t)
	tn := newTestNet()
	m := startMaster(t, tn, testMasterConfig(proto, masterIdentity()))

	stopped := make(chan error, 1)

	conf := testSlaveConfig(proto, tn, idA)
	conf.OnConnectMasterSuccess = func(s *Slave) {
		stopped <- s.Stop()
	}

	s := startSlave(t, conf)

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("stop did not return")
	}

	require.Equal(t, membership.StateDisconnected, s.State())
	require.Nil(t, s.Conn())
	require.Eventually(t, func() bool { return !m.Registry().Has(keyA) }, waitFor, tick)

	// The loop is gone, so a second stop waits for nothing.
	require.NoError(t, s.Stop())
}
