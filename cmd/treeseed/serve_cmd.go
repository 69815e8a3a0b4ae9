package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/demoseed/treeseed/modules/indexer/presentation/controllers"
	"github.com/demoseed/treeseed/pkg/configuration"
	"github.com/demoseed/treeseed/pkg/metrics"
	"github.com/demoseed/treeseed/pkg/middleware"
	"github.com/demoseed/treeseed/pkg/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the indexer over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()
			logger := conf.Logger()
			if addr == "" {
				addr = conf.SocketAddress
			}

			ctrls := []server.Controller{
				controllers.NewIndexAPIController(conf.MaxRequestNodes, conf.NestedSet.Strict),
			}
			if conf.Prometheus.Enabled {
				ctrls = append(ctrls, metrics.NewPrometheusController(conf.Prometheus.Path))
			}
			srv := server.NewHTTPServer(ctrls, []mux.MiddlewareFunc{middleware.WithLogger(logger)}, nil, nil).Server(addr)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.WithField("addr", addr).Info("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return withCode(1, err)
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from PORT / GO_APP_ENV)")
	return cmd
}
