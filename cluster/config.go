package cluster

import (
	"fmt"
	"time"

	kitlog "github.com/go-kit/log"

	"github.com/maxpoletaev/gamemesh/membership"
	"github.com/maxpoletaev/gamemesh/transport"
)

type MasterConfig struct {
	// Self describes the master. It is sent back to every slave that joins.
	Self membership.ServerIdentity
	// Secret must be presented by slaves in their connect request.
	Secret string
	// HandshakeTimeout bounds the time between accepting a connection and
	// receiving a valid connect request.
	HandshakeTimeout time.Duration
	Protocol         *Protocol
	Logger           kitlog.Logger
	OnJoin           func(info membership.InnerServerInfo)
	OnQuit           func(info membership.InnerServerInfo)
}

func DefaultMasterConfig() MasterConfig {
	return MasterConfig{
		Logger:           kitlog.NewNopLogger(),
		HandshakeTimeout: 5 * time.Second,
	}
}

func (c *MasterConfig) validate() error {
	switch {
	case c.Protocol == nil:
		return fmt.Errorf("%w: protocol is required", ErrInvalidConfig)
	case c.HandshakeTimeout <= 0:
		return fmt.Errorf("%w: handshake timeout must be positive", ErrInvalidConfig)
	}

	if err := c.Self.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Logger == nil {
		c.Logger = kitlog.NewNopLogger()
	}

	if c.OnJoin == nil {
		c.OnJoin = func(membership.InnerServerInfo) {}
	}

	if c.OnQuit == nil {
		c.OnQuit = func(membership.InnerServerInfo) {}
	}

	return nil
}

// SlaveConfig configures a connection from a server to its master. The same
// type is used for direct peer links, where the peer plays the master role.
type SlaveConfig struct {
	// Name appears in logs, e.g. "upstream" or "peer-fight/2".
	Name string
	Self membership.ServerIdentity

	MasterIP        string
	MasterInnerPort int
	MasterInnerPass string
	// MasterServerPort and MasterServerPass describe the public endpoint of
	// the master. They are optional and only reported back to integrators.
	MasterServerPort int
	MasterServerPass string

	// ServerLoad returns the current load of this server. Defaults to zero.
	ServerLoad func() int32

	OnNewSlaveJoin         func(info membership.InnerServerInfo)
	OnNewSlaveQuit         func(serverType membership.ServerType, serverID int32)
	OnConnectMasterSuccess func(s *Slave)

	Dialer   transport.Dialer
	Protocol *Protocol
	Logger   kitlog.Logger

	// HandshakeTimeout bounds dialing plus waiting for the connect response.
	HandshakeTimeout time.Duration
	// Reconnect makes the slave dial again after losing the connection,
	// waiting ReconnectDelay, doubled on each failure up to MaxReconnectDelay.
	Reconnect         bool
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	// LoadReportInterval is how often ServerLoad is sent to the master while
	// joined. Zero disables reporting.
	LoadReportInterval time.Duration
}

func DefaultSlaveConfig() SlaveConfig {
	return SlaveConfig{
		Name:               "upstream",
		Logger:             kitlog.NewNopLogger(),
		Dialer:             transport.NewGRPCDialer(),
		HandshakeTimeout:   5 * time.Second,
		Reconnect:          true,
		ReconnectDelay:     500 * time.Millisecond,
		MaxReconnectDelay:  30 * time.Second,
		LoadReportInterval: 5 * time.Second,
	}
}

func (c *SlaveConfig) validate() error {
	switch {
	case c.Protocol == nil:
		return fmt.Errorf("%w: protocol is required", ErrInvalidConfig)
	case c.Dialer == nil:
		return fmt.Errorf("%w: dialer is required", ErrInvalidConfig)
	case c.MasterIP == "":
		return fmt.Errorf("%w: master ip is required", ErrInvalidConfig)
	case c.MasterInnerPort <= 0 || c.MasterInnerPort > 65535:
		return fmt.Errorf("%w: master inner port out of range: %d", ErrInvalidConfig, c.MasterInnerPort)
	case c.HandshakeTimeout <= 0:
		return fmt.Errorf("%w: handshake timeout must be positive", ErrInvalidConfig)
	case c.LoadReportInterval < 0:
		return fmt.Errorf("%w: load report interval must not be negative", ErrInvalidConfig)
	case c.Reconnect && c.ReconnectDelay <= 0:
		return fmt.Errorf("%w: reconnect delay must be positive", ErrInvalidConfig)
	case c.Reconnect && c.MaxReconnectDelay < c.ReconnectDelay:
		return fmt.Errorf("%w: max reconnect delay is below reconnect delay", ErrInvalidConfig)
	}

	if err := c.Self.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Logger == nil {
		c.Logger = kitlog.NewNopLogger()
	}

	if c.ServerLoad == nil {
		c.ServerLoad = func() int32 { return 0 }
	}

	if c.OnNewSlaveJoin == nil {
		c.OnNewSlaveJoin = func(membership.InnerServerInfo) {}
	}

	if c.OnNewSlaveQuit == nil {
		c.OnNewSlaveQuit = func(membership.ServerType, int32) {}
	}

	if c.OnConnectMasterSuccess == nil {
		c.OnConnectMasterSuccess = func(*Slave) {}
	}

	return nil
}
