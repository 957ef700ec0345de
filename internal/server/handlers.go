package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/export"
	"github.com/MeKo-Tech/ticketscan/internal/ocr"
	"github.com/MeKo-Tech/ticketscan/internal/pdf"
	"github.com/MeKo-Tech/ticketscan/internal/scan"
	"github.com/MeKo-Tech/ticketscan/internal/store"
	"github.com/MeKo-Tech/ticketscan/internal/version"
)

const (
	contentTypeJSON = "application/json"
	contentTypePDF  = "application/pdf"
	contentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Version:   version.Version,
		OCREngine: ocr.Available(),
		Time:      time.Now().UTC().Format(time.RFC3339),
	}
	if s.store != nil {
		if ids, err := s.store.List(); err == nil {
			response.StoredScan = len(ids)
		}
	}
	s.writeJSON(w, http.StatusOK, response)
}

// scanHandler accepts a multipart upload ("pdf" file, optional "mode"), scans and stores it.
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.scanner == nil || s.store == nil {
		s.writeErrorResponse(w, "scanner not initialized", http.StatusServiceUnavailable)
		return
	}

	path, cleanup, ok := s.receiveUpload(w, r, "pdf", ".pdf")
	if !ok {
		return
	}
	defer cleanup()

	mode := s.defaultMode
	if v := formOrQuery(r, "mode"); v != "" {
		m, err := classify.ParseMode(v)
		if err != nil {
			s.writeError(w, err)
			return
		}
		mode = m
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	start := time.Now()
	report, err := s.scanner.ScanFile(ctx, path, mode)
	scanDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		scansTotal.WithLabelValues(mode.String(), "error").Inc()
		s.log().Error("scan failed", "mode", mode.String(), "error", err)
		s.writeError(w, err)
		return
	}
	recordScanMetrics(mode, report)

	rec, err := s.store.Save(report)
	if err != nil {
		scansTotal.WithLabelValues(mode.String(), "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("failed to store scan: %v", err), http.StatusInternalServerError)
		return
	}
	scansTotal.WithLabelValues(mode.String(), "success").Inc()

	view := recordView(rec)
	view.TextLayerPages = report.TextLayerPages
	view.CachedPages = report.CachedPages
	view.DurationMs = report.Duration.Milliseconds()
	s.writeJSON(w, http.StatusCreated, ScanResponse{Success: true, Scan: view})
}

func recordScanMetrics(mode classify.Mode, report *scan.Report) {
	ocrPages := report.Result.PageCount - report.TextLayerPages - report.CachedPages - len(report.Failures)
	if ocrPages > 0 {
		pagesProcessed.WithLabelValues("ocr").Add(float64(ocrPages))
	}
	pagesProcessed.WithLabelValues("text_layer").Add(float64(report.TextLayerPages))
	pagesProcessed.WithLabelValues("cache").Add(float64(report.CachedPages))
	pageFailures.Add(float64(len(report.Failures)))
	ticketsCounted.WithLabelValues(mode.String()).Add(float64(report.Result.Count))
}

// listScansHandler lists stored scans.
func (s *Server) listScansHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.writeErrorResponse(w, "store not initialized", http.StatusServiceUnavailable)
		return
	}
	ids, err := s.store.List()
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ScanListResponse{Success: true, IDs: ids, Count: len(ids)})
}

// getScanHandler returns one stored scan; the id "latest" selects the newest.
func (s *Server) getScanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rec, ok := s.resolve(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, ScanResponse{Success: true, Scan: recordView(rec)})
}

// exportPDFHandler returns the pages of the stored source chosen by the scan.
func (s *Server) exportPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rec, ok := s.resolve(w, r)
	if !ok {
		return
	}
	source, err := s.store.SourcePath(rec.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	dir, err := os.MkdirTemp("", "ticketscan-export-*")
	if err != nil {
		s.writeErrorResponse(w, "failed to create temporary directory", http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	name := export.PDFName(rec.Result)
	dest := filepath.Join(dir, name)
	if _, err := export.ExportPDF(source, rec.Result, dest); err != nil {
		exportsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeError(w, err)
		return
	}
	exportsTotal.WithLabelValues("pdf", "success").Inc()
	s.serveFile(w, dest, name, contentTypePDF)
}

// exportDOCXHandler rebuilds an uploaded template ("docx" file, "address", optional
// "search") with one extra ticket table per counted run.
func (s *Server) exportDOCXHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rec, ok := s.resolve(w, r)
	if !ok {
		return
	}

	path, cleanup, ok := s.receiveUpload(w, r, "docx", ".docx")
	if !ok {
		return
	}
	defer cleanup()

	data, err := os.ReadFile(path) //nolint:gosec // G304: temporary upload path
	if err != nil {
		s.writeErrorResponse(w, "failed to read upload", http.StatusInternalServerError)
		return
	}
	search := r.FormValue("search")
	if search == "" {
		search = s.searchAddress
	}
	out, stats, err := export.BuildDOCX(data, export.DOCXOptions{
		Address: r.FormValue("address"),
		Search:  search,
		Copies:  rec.Result.Count,
	})
	if err != nil {
		exportsTotal.WithLabelValues("docx", "error").Inc()
		s.writeError(w, err)
		return
	}
	exportsTotal.WithLabelValues("docx", "success").Inc()
	s.log().Info("docx built", "scan", rec.ID, "tables", stats.Tables, "replacements", stats.Replacements)

	w.Header().Set("Content-Type", contentTypeDOCX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.DOCXName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*store.Record, bool) {
	if s.store == nil {
		s.writeErrorResponse(w, "store not initialized", http.StatusServiceUnavailable)
		return nil, false
	}
	rec, err := s.store.Resolve(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return rec, true
}

// receiveUpload stores the multipart file field in a temporary file. On failure
// it has already written the error response.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request, field, ext string) (string, func(), bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(strings.ToLower(err.Error()), "body too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return "", nil, false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: no %s file provided", scan.ErrNoInput, field))
		return "", nil, false
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	dir, err := os.MkdirTemp("", "ticketscan-upload-*")
	if err != nil {
		s.writeErrorResponse(w, "failed to create temporary directory", http.StatusInternalServerError)
		return "", nil, false
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload" + ext
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path) //nolint:gosec // G304: path inside our temporary directory
	if err != nil {
		cleanup()
		s.writeErrorResponse(w, "failed to store upload", http.StatusInternalServerError)
		return "", nil, false
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		cleanup()
		s.writeErrorResponse(w, "failed to store upload", http.StatusInternalServerError)
		return "", nil, false
	}
	if err := out.Close(); err != nil {
		cleanup()
		s.writeErrorResponse(w, "failed to store upload", http.StatusInternalServerError)
		return "", nil, false
	}
	return path, cleanup, true
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeoutSec <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}

func (s *Server) serveFile(w http.ResponseWriter, path, name, contentType string) {
	f, err := os.Open(path) //nolint:gosec // G304: file we just wrote
	if err != nil {
		s.writeErrorResponse(w, "failed to open export", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		s.log().Error("failed to write export", "file", name, "error", err)
	}
}

func recordView(rec *store.Record) *ScanView {
	return &ScanView{
		ID:       rec.ID,
		Source:   rec.Source,
		Digest:   rec.Digest,
		Result:   rec.Result,
		Summary:  rec.Result.Summary(),
		Failures: rec.Failures,
	}
}

func formOrQuery(r *http.Request, key string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNoScan):
		return http.StatusNotFound
	case errors.Is(err, scan.ErrNoInput),
		errors.Is(err, classify.ErrInvalidMode),
		errors.Is(err, export.ErrNoAddress),
		errors.Is(err, store.ErrInvalidID),
		errors.Is(err, pdf.ErrPasswordRequired):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrTooFewTables),
		errors.Is(err, export.ErrNotDOCX),
		errors.Is(err, export.ErrNothingSelected),
		errors.Is(err, export.ErrPageMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorResponse(w, err.Error(), statusFor(err))
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log().Error("failed to encode response", "error", err)
	}
}

func (s *Server) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}
