package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/export"
	"github.com/MeKo-Tech/ticketscan/internal/scan"
	"github.com/MeKo-Tech/ticketscan/internal/store"
)

// scanOutput is the JSON form of a finished scan.
type scanOutput struct {
	ID             string              `json:"id,omitempty"`
	Source         string              `json:"source"`
	Result         classify.ScanResult `json:"result"`
	Summary        string              `json:"summary"`
	Failures       []*scan.PageError   `json:"failures,omitempty"`
	TextLayerPages int                 `json:"text_layer_pages"`
	CachedPages    int                 `json:"cached_pages"`
	DurationMs     int64               `json:"duration_ms"`
	Exported       string              `json:"exported,omitempty"`
}

var scanCmd = &cobra.Command{
	Use:   "scan FILE",
	Short: "Recognise a PDF bundle and count its tickets",
	Long: `Recognise every page of a scanned PDF, classify it in the selected mode and
save the result so that later export commands can use it.

Examples:
  ticketscan scan bundle.pdf
  ticketscan scan bundle.pdf --mode bmd
  ticketscan scan bundle.pdf --export --out ./out
  ticketscan scan locked.pdf --password secret --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyScanFlags(cmd, cfg)

	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	noStore, _ := cmd.Flags().GetBool("no-store")
	doExport, _ := cmd.Flags().GetBool("export")
	outDir := cfg.Export.OutputDir
	if cmd.Flags().Changed("out") {
		outDir, _ = cmd.Flags().GetString("out")
	}

	mode, err := classify.ParseMode(cfg.Scan.Mode)
	if err != nil {
		return err
	}
	path := args[0]
	if !fileExists(path) {
		return fmt.Errorf("%w: %s", scan.ErrNoInput, path)
	}

	scanner, err := newScanner(cfg, cmd.ErrOrStderr(), quiet || format == formatJSON)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := scanner.ScanFile(ctx, path, mode)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if !noStore {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		if _, err := st.Save(report); err != nil {
			return fmt.Errorf("failed to save scan: %w", err)
		}
	}

	out := scanOutput{
		ID:             report.ID,
		Source:         filepath.Base(report.Source),
		Result:         report.Result,
		Summary:        report.Result.Summary(),
		Failures:       report.Failures,
		TextLayerPages: report.TextLayerPages,
		CachedPages:    report.CachedPages,
		DurationMs:     report.Duration.Milliseconds(),
	}
	if doExport {
		dest := filepath.Join(outDir, export.PDFName(report.Result))
		if _, err := export.ExportPDF(path, report.Result, dest); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		out.Exported = dest
	}

	if format == formatJSON {
		err = writeJSON(cmd.OutOrStdout(), out)
	} else {
		printScan(cmd.OutOrStdout(), out)
	}
	if err != nil {
		return err
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		if err := report.Err(); err != nil {
			return fmt.Errorf("%d page(s) could not be recognised: %w", len(report.Failures), err)
		}
	}
	return nil
}

func printScan(w io.Writer, out scanOutput) {
	_, _ = fmt.Fprintln(w, out.Summary)
	_, _ = fmt.Fprintf(w, "Mode: %s, pages: %d, export: %s\n",
		out.Result.Mode, out.Result.PageCount, out.Result.ExportScope())
	if out.ID != "" {
		_, _ = fmt.Fprintf(w, "Saved as %s\n", out.ID)
	}
	for _, f := range out.Failures {
		_, _ = fmt.Fprintf(w, "warning: %v\n", f)
	}
	if out.Exported != "" {
		_, _ = fmt.Fprintf(w, "Exported %s\n", out.Exported)
	}
}

// resolveScan loads the scan named by --scan, defaulting to the latest one.
func resolveScan(cmd *cobra.Command, st *store.Store) (*store.Record, error) {
	id, _ := cmd.Flags().GetString("scan")
	rec, err := st.Resolve(id)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd)
	scanCmd.Flags().StringP("format", "f", formatText, "output format: text or json")
	scanCmd.Flags().BoolP("quiet", "q", false, "do not print progress")
	scanCmd.Flags().Bool("no-store", false, "do not save the scan")
	scanCmd.Flags().Bool("strict", false, "exit with an error when any page could not be recognised")
	scanCmd.Flags().Bool("export", false, "export the selected pages right after scanning")
	scanCmd.Flags().StringP("out", "o", ".", "output directory for --export")
}

