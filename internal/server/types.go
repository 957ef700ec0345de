package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/export"
	"github.com/MeKo-Tech/ticketscan/internal/scan"
	"github.com/MeKo-Tech/ticketscan/internal/store"
)

// Scanner runs a scan of a PDF on disk.
type Scanner interface {
	ScanFile(ctx context.Context, path string, mode classify.Mode) (*scan.Report, error)
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner       Scanner
	store         *store.Store
	corsOrigin    string
	maxUploadMB   int64
	timeoutSec    int
	defaultMode   classify.Mode
	searchAddress string
	rateLimiter   *RateLimiter
	logger        *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Host          string
	Port          int
	CORSOrigin    string
	MaxUploadMB   int64
	TimeoutSec    int
	DefaultMode   classify.Mode
	SearchAddress string
	RateLimit     RateLimitConfig
}

// RateLimitConfig enables per-client limits.
type RateLimitConfig struct {
	Enabled bool
	Limits  Limits
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	OCREngine  bool   `json:"ocr_engine"`
	StoredScan int    `json:"stored_scans"`
	Time       string `json:"time"`
}

// ScanView is the API form of a stored scan.
type ScanView struct {
	ID             string              `json:"id"`
	Source         string              `json:"source"`
	Digest         string              `json:"digest"`
	Result         classify.ScanResult `json:"result"`
	Summary        string              `json:"summary"`
	Failures       []string            `json:"failures,omitempty"`
	TextLayerPages int                 `json:"text_layer_pages,omitempty"`
	CachedPages    int                 `json:"cached_pages,omitempty"`
	DurationMs     int64               `json:"duration_ms,omitempty"`
}

// ScanResponse wraps a single scan.
type ScanResponse struct {
	Success bool      `json:"success"`
	Scan    *ScanView `json:"scan,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// ScanListResponse lists stored scan ids, oldest first.
type ScanListResponse struct {
	Success bool     `json:"success"`
	IDs     []string `json:"ids"`
	Count   int      `json:"count"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a server scanning with sc and persisting to st.
func NewServer(config Config, sc Scanner, st *store.Store) *Server {
	s := &Server{
		scanner:       sc,
		store:         st,
		corsOrigin:    config.CORSOrigin,
		maxUploadMB:   config.MaxUploadMB,
		timeoutSec:    config.TimeoutSec,
		defaultMode:   config.DefaultMode,
		searchAddress: config.SearchAddress,
		logger:        slog.Default(),
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if !s.defaultMode.Valid() {
		s.defaultMode = classify.ModeACGold
	}
	if s.searchAddress == "" {
		s.searchAddress = export.DefaultSearchAddress
	}
	if config.RateLimit.Enabled {
		s.rateLimiter = NewRateLimiter(config.RateLimit.Limits)
	}
	return s
}

// WithLogger replaces the server logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	if l != nil {
		s.logger = l
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/scan", s.corsMiddleware(s.rateLimitMiddleware(s.scanHandler)))
	mux.HandleFunc("/scans", s.corsMiddleware(s.listScansHandler))
	mux.HandleFunc("/scans/{id}", s.corsMiddleware(s.getScanHandler))
	mux.HandleFunc("/scans/{id}/export/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.exportPDFHandler)))
	mux.HandleFunc("/scans/{id}/export/docx", s.corsMiddleware(s.rateLimitMiddleware(s.exportDOCXHandler)))
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
