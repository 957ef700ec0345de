package cmd

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

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/config"
	"github.com/MeKo-Tech/ticketscan/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start an HTTP server exposing scanning and export.

Endpoints:
  POST /scan                     - scan an uploaded PDF (form fields: pdf, mode)
  GET  /scans                    - list saved scans
  GET  /scans/{id}               - show a saved scan ("latest" for the newest)
  POST /scans/{id}/export/pdf    - download the exported pages
  POST /scans/{id}/export/docx   - fill a DOCX template (form fields: docx, address, search)
  GET  /health                   - health check
  GET  /metrics                  - Prometheus metrics

Examples:
  ticketscan serve
  ticketscan serve --port 8080
  ticketscan serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyServeFlags(cmd, cfg)
		applyScanFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		scanner, err := newScanner(cfg, nil, true)
		if err != nil {
			return fmt.Errorf("failed to initialize scanner: %w", err)
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}

		srv := server.NewServer(serverConfig(cfg), scanner, st).WithLogger(slog.Default())

		timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
		httpServer := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			// Leave room for the response after a scan that used the whole request timeout.
			WriteTimeout: timeout + 30*time.Second,
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		go func() {
			slog.Info("Starting ticketscan server", "addr", httpServer.Addr, "store", cfg.Store.Dir)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
			return err
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// applyServeFlags overrides server settings with the flags the user set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		cfg.Server.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		cfg.Server.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		cfg.Server.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		cfg.Server.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("search") {
		cfg.Export.SearchAddress, _ = flags.GetString("search")
	}

	rl := &cfg.Server.RateLimit
	if flags.Changed("rate-limit-enabled") {
		rl.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		rl.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		rl.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		rl.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		rl.MaxDataPerDayMB, _ = flags.GetInt("max-data-per-day")
	}
}

func serverConfig(cfg *config.Config) server.Config {
	rl := cfg.Server.RateLimit
	mode, err := classify.ParseMode(cfg.Scan.Mode)
	if err != nil {
		mode = classify.ModeACGold
	}
	return server.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		CORSOrigin:    cfg.Server.CORSOrigin,
		MaxUploadMB:   int64(cfg.Server.MaxUploadMB),
		TimeoutSec:    cfg.Server.TimeoutSec,
		DefaultMode:   mode,
		SearchAddress: cfg.Export.SearchAddress,
		RateLimit: server.RateLimitConfig{
			Enabled: rl.Enabled,
			Limits: server.Limits{
				RequestsPerMinute: rl.RequestsPerMinute,
				RequestsPerHour:   rl.RequestsPerHour,
				RequestsPerDay:    rl.MaxRequestsPerDay,
				BytesPerDay:       int64(rl.MaxDataPerDayMB) * 1024 * 1024,
			},
		},
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("host", "H", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().String("cors-origin", "*", "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", 50, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", 300, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	serveCmd.Flags().String("search", "", "default DOCX address text to replace")
	addScanFlags(serveCmd)
	serveCmd.Flags().Lookup("mode").Usage = "default scan mode when a request names none: ACGOLD or BMD"

	serveCmd.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", 30, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", 500, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", 0, "maximum requests per day per client (0 = unlimited)")
	serveCmd.Flags().Int("max-data-per-day", 0, "maximum upload volume per day per client in MB (0 = unlimited)")
}
