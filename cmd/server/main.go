package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/maxpoletaev/gamemesh/cluster"
)

func fatal(logger kitlog.Logger, msg string, err error) {
	level.Error(logger).Log("msg", msg, "err", err)
	os.Exit(1)
}

func main() {
	p := flags.NewParser(&opts, flags.Default)

	if _, err := p.Parse(); err != nil {
		if err.(*flags.Error).Type != flags.ErrHelp {
			fmt.Println("cli error:", err)
		}

		os.Exit(2)
	}

	logger, closeLogger := setupLogger()

	self, err := setupIdentity()
	if err != nil {
		fatal(logger, "invalid server identity", err)
	}

	logger = kitlog.With(logger, "server", self.Key())

	proto, reg, err := setupProtocol(logger)
	if err != nil {
		fatal(logger, "failed to setup protocol", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Components must be shut down in a particular order.
	shutdownOrder := []shutdownFunc{closeLogger}

	var (
		master *cluster.Master
		node   *cluster.Node
	)

	// The inner listener comes up first, so peers that learn about us from
	// the master can dial in right away.
	if opts.Inner.Port != 0 {
		var closeMaster shutdownFunc

		master, closeMaster, err = setupMaster(g, proto, self, logger)
		if err != nil {
			fatal(logger, "failed to setup inner server", err)
		}

		shutdownOrder = append([]shutdownFunc{closeMaster}, shutdownOrder...)
	}

	if opts.Master.IP != "" {
		var closeNode shutdownFunc

		node, closeNode, err = setupNode(proto, self, logger)
		if err != nil {
			fatal(logger, "failed to setup node", err)
		}

		shutdownOrder = append([]shutdownFunc{closeNode}, shutdownOrder...)
	}

	if opts.RestAPI.Enabled {
		closeRestServer := setupRestServer(g, master, node, reg, logger)
		shutdownOrder = append([]shutdownFunc{closeRestServer}, shutdownOrder...)
	}

	// Block until we receive a signal to shut down or one of the servers fails.
	<-ctx.Done()
	level.Info(logger).Log("msg", "shutting down")

	for _, f := range shutdownOrder {
		if err := f(context.Background()); err != nil {
			level.Error(logger).Log("msg", "failed to shutdown component", "err", err)
		}
	}

	if err := g.Wait(); err != nil {
		level.Error(logger).Log("msg", "server failed", "err", err)
		os.Exit(1)
	}
}
