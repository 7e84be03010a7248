package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maxpoletaev/gamemesh/api/handler"
)

// CreateRouter builds the status API. Either master or node may be nil when
// the process does not play that role; gatherer enables /metrics.
func CreateRouter(master handler.Master, node handler.Node, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()

	if master != nil {
		handler.NewMembersHandler(master).Register(r)
	}

	if node != nil {
		handler.NewNodeHandler(node).Register(r)
	}

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// StartServer serves h on bindAddr until ctx is canceled.
func StartServer(ctx context.Context, h http.Handler, logger kitlog.Logger, bindAddr string) error {
	server := &http.Server{
		Addr:    bindAddr,
		Handler: h,
	}

	go func() {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			level.Error(logger).Log("msg", "failed to shutdown server", "err", err)
		}
	}()

	level.Info(logger).Log("msg", "api server started", "addr", bindAddr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
