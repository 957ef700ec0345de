package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/export"
	"github.com/MeKo-Tech/ticketscan/internal/logging"
	"github.com/MeKo-Tech/ticketscan/internal/ocr"
	"github.com/MeKo-Tech/ticketscan/internal/pdf"
	"github.com/MeKo-Tech/ticketscan/internal/scan"
)

const infoLevel = "info"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	scanDefaults := scan.DefaultOptions()
	logDefaults := logging.DefaultConfig()
	return Config{
		LogLevel: infoLevel,
		Log: LogConfig{
			MaxSizeMB:  logDefaults.MaxSizeMB,
			MaxBackups: logDefaults.MaxBackups,
			MaxAgeDays: logDefaults.MaxAgeDays,
			Compress:   logDefaults.Compress,
		},
		Scan: ScanConfig{
			Mode:        classify.ModeACGold.String(),
			Workers:     runtime.NumCPU(),
			RenderScale: scanDefaults.RenderScale,
			Filter:      "lanczos",
			TopLines:    scanDefaults.TopLines,
			TopChars:    scanDefaults.TopChars,
			Languages:   scanDefaults.OCR.Languages,
			PageSegMode: scanDefaults.OCR.PageSegMode,
			CacheSize:   scanDefaults.CacheSize,
		},
		Export: ExportConfig{
			SearchAddress: export.DefaultSearchAddress,
			OutputDir:     ".",
		},
		Store: StoreConfig{
			Dir: defaultStoreDir(),
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      300,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 30,
				RequestsPerHour:   500,
			},
		},
	}
}

func defaultStoreDir() string {
	return filepath.Join(".", ".ticketscan", "scans")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", infoLevel, "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := classify.ParseMode(c.Scan.Mode); err != nil {
		return fmt.Errorf("invalid scan mode: %w", err)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("invalid scan workers: %d (must be positive)", c.Scan.Workers)
	}
	if c.Scan.RenderScale <= 0 || c.Scan.RenderScale > 8 {
		return fmt.Errorf("invalid render scale: %.2f (must be in (0, 8])", c.Scan.RenderScale)
	}
	if _, err := pdf.ParseFilter(c.Scan.Filter); err != nil {
		return fmt.Errorf("invalid scan filter: %w", err)
	}
	if c.Scan.TopLines <= 0 {
		return fmt.Errorf("invalid top lines: %d (must be positive)", c.Scan.TopLines)
	}
	if c.Scan.TopChars <= 0 {
		return fmt.Errorf("invalid top chars: %d (must be positive)", c.Scan.TopChars)
	}
	if c.Scan.CacheSize < 0 {
		return fmt.Errorf("invalid cache size: %d (must not be negative)", c.Scan.CacheSize)
	}
	if c.Scan.PageSegMode < 0 || c.Scan.PageSegMode > 13 {
		return fmt.Errorf("invalid page segmentation mode: %d (must be between 0 and 13)", c.Scan.PageSegMode)
	}

	if strings.TrimSpace(c.Export.SearchAddress) == "" {
		return errors.New("export.search_address must not be empty")
	}
	if c.Store.Dir == "" {
		return errors.New("store.dir must not be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	rl := c.Server.RateLimit
	if rl.RequestsPerMinute < 0 || rl.RequestsPerHour < 0 || rl.MaxRequestsPerDay < 0 || rl.MaxDataPerDayMB < 0 {
		return errors.New("invalid rate limit: limits must not be negative")
	}

	return nil
}

// ScanMode returns the configured default mode.
func (c *Config) ScanMode() classify.Mode {
	m, err := classify.ParseMode(c.Scan.Mode)
	if err != nil {
		return classify.ModeACGold
	}
	return m
}

// ToScanOptions converts the config to scanner options.
func (c *Config) ToScanOptions() scan.Options {
	opts := scan.DefaultOptions()
	opts.Workers = c.Scan.Workers
	opts.RenderScale = c.Scan.RenderScale
	opts.Color = c.Scan.Color
	opts.Filter = c.Scan.Filter
	opts.TopLines = c.Scan.TopLines
	opts.TopChars = c.Scan.TopChars
	opts.UseTextLayer = c.Scan.UseTextLayer
	opts.CacheSize = c.Scan.CacheSize
	opts.OCR = c.toOCROptions()
	opts.Credentials = pdf.Credentials{UserPassword: c.Scan.Password}
	return opts
}

func (c *Config) toOCROptions() ocr.Options {
	opts := ocr.DefaultOptions()
	if len(c.Scan.Languages) > 0 {
		opts.Languages = slices.Clone(c.Scan.Languages)
	}
	opts.PageSegMode = c.Scan.PageSegMode
	return opts
}

// ToLoggingConfig converts the config to logging settings.
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Verbose:    c.Verbose,
		FilePath:   c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

// Addr returns the server listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
