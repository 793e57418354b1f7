package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dusk-indust/bizdoc/internal/api"
	"github.com/dusk-indust/bizdoc/internal/artifact"
	"github.com/dusk-indust/bizdoc/internal/runstore"
	"github.com/dusk-indust/bizdoc/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serves the run API under /api/v1. Runs are kept in Valkey when valkey.addr
is configured and in memory otherwise; finished documents are uploaded to
MinIO when minio.endpoint is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				host, port, err := splitAddr(addr)
				if err != nil {
					return err
				}
				a.cfg.Server.Host, a.cfg.Server.Port = host, port
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address host:port (default from config)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	orch, ocfg, err := a.orchestrator(ctx)
	if err != nil {
		return err
	}

	store, ready, closeStore, err := a.runStore()
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []service.Option{service.WithLogger(a.logger)}
	if a.cfg.MinIO.Endpoint != "" {
		up, err := artifact.NewUploader(a.cfg.MinIO)
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		if err := up.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		opts = append(opts, service.WithUploader(up))
		a.logger.Info("document uploads enabled", zap.String("bucket", up.Bucket()))
	}

	svc := service.New(orch, store, ocfg.Budgets.Caller, opts...)
	router := api.NewRouter(a.logger, svc, &api.RouterDeps{Ready: ready})

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutting down server")

	// In-flight runs get their full deadline before the store is closed.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ocfg.Budgets.Caller+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("shutdown error", zap.Error(err))
	}
	if err := svc.Wait(shutdownCtx); err != nil {
		a.logger.Warn("runs still in flight at shutdown", zap.Error(err))
	}

	a.logger.Info("server stopped")
	return nil
}

// runStore returns the Valkey store when configured and the in-memory store
// otherwise, together with the readiness probe and a close function.
func (a *app) runStore() (runstore.Store, func(context.Context) error, func(), error) {
	if a.cfg.Valkey.Addr == "" {
		a.logger.Info("run store: memory")
		return runstore.NewMemStore(), nil, func() {}, nil
	}

	client, err := runstore.NewValkeyClient(a.cfg.Valkey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("valkey: %w", err)
	}
	a.logger.Info("run store: valkey", zap.String("addr", a.cfg.Valkey.Addr))

	ttl := time.Duration(a.cfg.Valkey.RunTTLSecs) * time.Second
	ready := func(ctx context.Context) error {
		return client.Do(ctx, client.B().Ping().Build()).Error()
	}
	return runstore.NewValkeyStore(client, ttl), ready, client.Close, nil
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --addr port %q", portStr)
	}
	return host, port, nil
}
