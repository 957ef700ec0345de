package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ticketscan/internal/classify"
	"github.com/MeKo-Tech/ticketscan/internal/pdf"
	"github.com/MeKo-Tech/ticketscan/internal/scan"
)

var explainCmd = &cobra.Command{
	Use:   "explain [FILE]",
	Short: "Show how each page was matched by the ACGOLD rules",
	Long: `Print, for every page, where the trade line was found, which qualifiers and
blockers matched, whether the page is a checklist (stop) page and which run it
belongs to.

Without FILE the page texts of a saved scan are used (the latest one unless
--scan is given); with FILE the document is recognised first.

Examples:
  ticketscan explain
  ticketscan explain --pages 3-7
  ticketscan explain bundle.pdf --text-layer --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		applyScanFlags(cmd, cfg)

		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}
		var only []int
		if cmd.Flags().Changed("pages") {
			ranges, _ := cmd.Flags().GetString("pages")
			var err error
			if only, err = pdf.ParsePageRange(ranges); err != nil {
				return fmt.Errorf("invalid --pages: %w", err)
			}
		}

		var (
			pages  []classify.Page
			report *scan.Report
		)
		if len(args) == 1 {
			scanner, err := newScanner(cfg, cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			report, err = scanner.ScanFile(ctx, args[0], classify.ModeACGold)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			pages = report.Pages
		} else {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			rec, err := resolveScan(cmd, st)
			if err != nil {
				return err
			}
			stored, err := st.Pages(rec.ID)
			if err != nil {
				return err
			}
			pages = classify.NewPagesWithLimits(classify.Texts(stored), cfg.Scan.TopLines, cfg.Scan.TopChars)
		}

		reports := classify.New().Explain(pages)
		if only != nil {
			reports = slices.DeleteFunc(reports, func(r classify.PageReport) bool {
				return !slices.Contains(only, r.Page)
			})
		}

		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), reports)
		}
		w := cmd.OutOrStdout()
		for _, r := range reports {
			line := r.String()
			if report != nil && report.Failed(r.Page) {
				line += " (not recognised)"
			}
			_, _ = fmt.Fprintln(w, line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
	addRecognitionFlags(explainCmd)
	explainCmd.Flags().String("scan", "latest", "saved scan id to explain")
	explainCmd.Flags().String("pages", "", "only show these pages (e.g. 1-3,7)")
	explainCmd.Flags().StringP("format", "f", formatText, "output format: text or json")
}
