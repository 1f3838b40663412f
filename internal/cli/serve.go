package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/n0madic/stridecoach/internal/config"
	"github.com/n0madic/stridecoach/internal/server"
	"github.com/n0madic/stridecoach/internal/store/sqlite"
	"github.com/n0madic/stridecoach/internal/upstream"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			db, err := sqlite.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			srv := server.New(cfg, db, upstream.NewClient(cfg))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			return serveUntilSignal(srv, sigCh, cfg)
		},
	}
}

// httpServer is the part of *server.Server serve drives.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs srv until it fails or a signal arrives. After a
// signal it returns only once Shutdown has drained in-flight requests, so the
// caller can close the store safely.
func serveUntilSignal(srv httpServer, sigCh <-chan os.Signal, cfg *config.ServerConfig) error {
	stopped := make(chan struct{})
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-sigCh:
		case <-stopped:
			return
		}
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server.shutdown.failed", "error", err)
		}
	}()

	slog.Info("stridecoach starting",
		"addr", cfg.Addr(),
		"model", cfg.DefaultModel,
		"db", cfg.DatabasePath,
	)
	err := srv.ListenAndServe()
	close(stopped)
	<-shutdownDone
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
