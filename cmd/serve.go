package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/blogsearch/internal/api"
	"github.com/matheuskafuri/blogsearch/internal/metrics"
)

var (
	flagAddr       string
	flagNoRefresh  bool
	shutdownPeriod = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local store as a JSON API",
	Long: `Serve articles and categories over HTTP for remote blogsearch clients.

The store is refreshed from the configured feeds every refresh_interval unless
--no-refresh is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(false, true)
		if err != nil {
			return err
		}
		defer e.Close()
		l := e.logger

		metrics.RegisterHTTPMetrics()
		metrics.RegisterSearchMetrics()

		addr := e.cfg.Server.Addr
		if flagAddr != "" {
			addr = flagAddr
		}
		srv := &http.Server{
			Addr:         addr,
			Handler:      api.NewServer(e.provider, l.Named("api")).Routes(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !flagNoRefresh {
			go refreshLoop(ctx, e)
		}

		errc := make(chan error, 1)
		go func() {
			l.Info("starting HTTP server", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		l.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error("error during shutdown", zap.Error(err))
			return err
		}
		l.Info("server stopped gracefully")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&flagNoRefresh, "no-refresh", false, "do not fetch feeds while serving")
}

func refreshLoop(ctx context.Context, e *env) {
	run := func() {
		if !e.db.NeedsRefresh(e.cfg.RefreshDuration()) {
			return
		}
		fetchCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
		if _, err := ingest(fetchCtx, e.cfg, e.db, 0, e.logger); err != nil {
			e.logger.Warn("background refresh", zap.Error(err))
		}
	}

	run()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
