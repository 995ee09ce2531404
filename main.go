package main

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

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "flowaudit-review",
	Short: "Review and correction backend for FlowAudit document analysis",
	Long: `flowaudit-review serves the reviewer workflow on top of the FlowAudit API.

Reviewers open an analyzed invoice, accept the result or correct the
extracted fields, and the feedback is sent back to FlowAudit.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger.Init(&logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
		})
		slog.Info("configuration loaded successfully", "path", cfgFile)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "flowaudit-review %s\n", version)
	},
}

func init() {
	serveCmd.Flags().StringVar(&cfgFile, "config", "config.yaml", "config file")
	rootCmd.AddCommand(serveCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serve runs the server until ctx is done, then shuts it down gracefully
func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      a.Router(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	a.Start()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server exited gracefully")
	return nil
}
