package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/srcview/internal/config"
	"github.com/meigma/srcview/internal/metrics"
	"github.com/meigma/srcview/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve listings and members over HTTP",
	Long:  "Serve directory listings and member extraction over HTTP, with Prometheus metrics on a separate listener.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			cfg.ListenAddr = addr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "HTTP listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

func newHandler(c *config.Config) (http.Handler, error) {
	a, err := openArchive(c)
	if err != nil {
		return nil, err
	}
	opts, err := renderOptions(c)
	if err != nil {
		return nil, err
	}
	s := server.New(a,
		server.WithPubPrefix(c.PubPrefix),
		server.WithRenderOptions(opts),
		server.WithLogger(logger),
	)
	return s.Handler(), nil
}

// runServe runs the archive and metrics servers until ctx is done or one
// of them fails.
func runServe(ctx context.Context, c *config.Config) error {
	handler, err := newHandler(c)
	if err != nil {
		return err
	}

	servers := []*http.Server{{
		Addr:              c.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if c.MetricsAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              c.MetricsAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
