package main

import (
	"context"
	"fmt"
	"net"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/maxpoletaev/gamemesh/api"
	"github.com/maxpoletaev/gamemesh/api/handler"
	"github.com/maxpoletaev/gamemesh/cluster"
	"github.com/maxpoletaev/gamemesh/membership"
)

type shutdownFunc func(ctx context.Context) error

var noopShutdown = func(ctx context.Context) error { return nil }

func setupLogger() (kitlog.Logger, shutdownFunc) {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	if !opts.Verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	return logger, noopShutdown
}

func setupIdentity() (membership.ServerIdentity, error) {
	serverType, err := membership.ParseServerType(opts.Server.Type)
	if err != nil {
		return membership.ServerIdentity{}, err
	}

	self := membership.ServerIdentity{
		ID:        opts.Server.ID,
		Type:      serverType,
		OutIP:     opts.Server.OutIP,
		OutPort:   opts.Server.OutPort,
		OutPass:   opts.Server.OutPass,
		InnerPort: opts.Inner.Port,
		InnerPass: opts.Inner.Pass,
	}

	if err := self.Validate(); err != nil {
		return membership.ServerIdentity{}, err
	}

	return self, nil
}

func setupProtocol(logger kitlog.Logger) (*cluster.Protocol, *prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	proto, err := cluster.NewProtocol(logger, cluster.NewMetrics(reg))
	if err != nil {
		return nil, nil, err
	}

	return proto, reg, nil
}

func setupMaster(g *errgroup.Group, proto *cluster.Protocol, self membership.ServerIdentity, logger kitlog.Logger) (*cluster.Master, shutdownFunc, error) {
	conf := cluster.DefaultMasterConfig()
	conf.Self = self
	conf.Secret = opts.Inner.Pass
	conf.HandshakeTimeout = millis(opts.Cluster.HandshakeTimeout)
	conf.Protocol = proto
	conf.Logger = kitlog.With(logger, "component", "master")

	master, err := cluster.NewMaster(conf)
	if err != nil {
		return nil, nil, err
	}

	lis, err := net.Listen("tcp", opts.Inner.BindAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", opts.Inner.BindAddr, err)
	}

	g.Go(func() error {
		level.Info(logger).Log("msg", "inner server started", "addr", lis.Addr())
		return master.Serve(lis)
	})

	shutdown := func(ctx context.Context) error {
		level.Info(logger).Log("msg", "stopping inner server")
		return master.Stop()
	}

	return master, shutdown, nil
}

func setupNode(proto *cluster.Protocol, self membership.ServerIdentity, logger kitlog.Logger) (*cluster.Node, shutdownFunc, error) {
	interest, err := parseServerTypes(opts.Cluster.Interest)
	if err != nil {
		return nil, nil, err
	}

	up := cluster.DefaultSlaveConfig()
	up.Self = self
	up.MasterIP = opts.Master.IP
	up.MasterInnerPort = opts.Master.InnerPort
	up.MasterInnerPass = opts.Master.InnerPass
	up.MasterServerPort = opts.Master.ServerPort
	up.MasterServerPass = opts.Master.ServerPass
	up.HandshakeTimeout = millis(opts.Cluster.HandshakeTimeout)
	up.ReconnectDelay = millis(opts.Cluster.ReconnectDelay)
	up.MaxReconnectDelay = millis(opts.Cluster.MaxReconnectDelay)
	up.LoadReportInterval = millis(opts.Cluster.LoadReportInterval)
	up.Protocol = proto
	up.Logger = kitlog.With(logger, "component", "node")

	conf := cluster.NodeConfig{
		Upstream: up,
		Metrics:  proto.Metrics,
	}

	if len(interest) > 0 {
		conf.Interest = cluster.InterestedIn(interest...)
	}

	node, err := cluster.NewNode(conf)
	if err != nil {
		return nil, nil, err
	}

	node.Start()

	shutdown := func(ctx context.Context) error {
		level.Info(logger).Log("msg", "leaving cluster")

		if err := node.Stop(); err != nil {
			return fmt.Errorf("failed to leave cluster: %w", err)
		}

		return nil
	}

	return node, shutdown, nil
}

func setupRestServer(g *errgroup.Group, master *cluster.Master, node *cluster.Node, reg prometheus.Gatherer, logger kitlog.Logger) shutdownFunc {
	var (
		m handler.Master
		n handler.Node
	)

	// Typed nil pointers would make the router mount handlers for roles this
	// process does not play.
	if master != nil {
		m = master
	}

	if node != nil {
		n = node
	}

	ctx, cancel := context.WithCancel(context.Background())
	router := api.CreateRouter(m, n, reg)

	g.Go(func() error {
		return api.StartServer(ctx, router, logger, opts.RestAPI.BindAddr)
	})

	return func(context.Context) error {
		cancel()
		return nil
	}
}
