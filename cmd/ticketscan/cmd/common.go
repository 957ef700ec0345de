package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ticketscan/internal/config"
	"github.com/MeKo-Tech/ticketscan/internal/scan"
	"github.com/MeKo-Tech/ticketscan/internal/store"
)

const (
	formatText = "text"
	formatJSON = "json"
)

func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.Open(cfg.Store.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan store: %w", err)
	}
	return st, nil
}

// applyScanFlags overrides scan settings with the flags the user set.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Scan.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("scale") {
		cfg.Scan.RenderScale, _ = flags.GetFloat64("scale")
	}
	if flags.Changed("color") {
		cfg.Scan.Color, _ = flags.GetBool("color")
	}
	if flags.Changed("filter") {
		cfg.Scan.Filter, _ = flags.GetString("filter")
	}
	if flags.Changed("text-layer") {
		cfg.Scan.UseTextLayer, _ = flags.GetBool("text-layer")
	}
	if flags.Changed("language") {
		cfg.Scan.Languages, _ = flags.GetStringSlice("language")
	}
	if flags.Changed("password") {
		cfg.Scan.Password, _ = flags.GetString("password")
	}
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("mode", "m", "ACGOLD", "scan mode: ACGOLD or BMD")
	addRecognitionFlags(cmd)
}

func addRecognitionFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("workers", "w", 0, "number of pages recognised in parallel (default: number of CPUs)")
	cmd.Flags().Float64("scale", 2.0, "page image upscale factor before OCR")
	cmd.Flags().Bool("color", false, "keep page images in colour instead of grayscale")
	cmd.Flags().String("filter", "lanczos", "upscale filter: lanczos, catmullrom, linear, box or nearest")
	cmd.Flags().Bool("text-layer", false, "use the PDF text layer where present instead of OCR")
	cmd.Flags().StringSlice("language", nil, "OCR languages (e.g. eng,deu)")
	cmd.Flags().String("password", "", "user password for encrypted PDFs")
}

// newScanner builds a scanner from cfg, reporting progress to w unless quiet.
func newScanner(cfg *config.Config, w io.Writer, quiet bool) (*scan.Scanner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var progress scan.ProgressCallback = scan.NoOpProgress{}
	if !quiet {
		progress = scan.MultiProgress{
			scan.NewConsoleProgress(w, "Recognising"),
			scan.NewLogProgress(slog.Default(), slog.LevelDebug),
		}
	}
	return scan.New(cfg.ToScanOptions(), scan.WithProgress(progress), scan.WithLogger(slog.Default()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func checkFormat(format string) error {
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unsupported format: %s (must be text or json)", format)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
