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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/gatehouse/api"
	"github.com/xraph/gatehouse/extension"
	"github.com/xraph/gatehouse/middleware"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr      string
		dev       bool
		rateLimit int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gatehouse HTTP server",
		Long: `Start a standalone HTTP server exposing the management, check and
account endpoints. The standalone server runs on the memory backend; the
SQL and document backends are used when gatehouse is mounted as a Forge
extension next to a grove database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), addr, dev, rateLimit)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "HTTP listen address")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (debug logging)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 10, "Account endpoint requests per minute per client IP")

	return cmd
}

func runServe(ctx context.Context, addr string, dev bool, rateLimit int) error {
	logger := newLogger(dev)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.Secret == "" {
		logger.Warn("gatehouse: no auth secret configured, account endpoints are disabled")
	}

	ext := extension.New(extension.WithConfig(cfg), extension.WithLogger(logger))
	if err := ext.Init(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ext.Start(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", middleware.RateLimitPaths(rateLimit, api.AccountPaths)(ext.Handler()))
	if cfg.EnableMetrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("gatehouse: listening",
		slog.String("addr", addr),
		slog.String("driver", cfg.Driver),
		slog.Bool("metrics", cfg.EnableMetrics),
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("gatehouse: shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ext.Stop(shutdownCtx)
}
