package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ticketscan/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the pages or a report document for a saved scan",
	Long: `Export uses a previously saved scan (the latest one unless --scan is given).

Examples:
  ticketscan export pdf --out ./out
  ticketscan export docx template.docx --address "1 New Road"
  ticketscan export docx template.docx --address "1 New Road" --scan 20260302T100000.000000000-abcdef012345`,
}

var exportPDFCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Write the pages chosen by a scan to a new PDF",
	Long: `Write acgold-extracted.pdf (ACGOLD: the ticket pages in order) or
bmd-full.pdf (BMD: the whole document) into the output directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		outDir := cfg.Export.OutputDir
		if cmd.Flags().Changed("out") {
			outDir, _ = cmd.Flags().GetString("out")
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		rec, err := resolveScan(cmd, st)
		if err != nil {
			return err
		}
		source, err := st.SourcePath(rec.ID)
		if err != nil {
			return err
		}

		dest := filepath.Join(outDir, export.PDFName(rec.Result))
		plan, err := export.ExportPDF(source, rec.Result, dest)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		slog.Info("pdf exported", "scan", rec.ID, "scope", string(plan.Scope), "dest", dest)

		pages := len(plan.Pages)
		if plan.Pages == nil {
			pages = rec.Result.PageCount
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages)\n", dest, pages)
		return nil
	},
}

var exportDOCXCmd = &cobra.Command{
	Use:   "docx TEMPLATE",
	Short: "Fill a DOCX template with one ticket table per counted ticket",
	Long: `Replace the search address in every text run of TEMPLATE with --address, insert
one copy of the second table per ticket counted by the scan, drop everything
except the tables and write modified.docx to the output directory.

The template must contain at least two top-level tables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		outDir := cfg.Export.OutputDir
		if cmd.Flags().Changed("out") {
			outDir, _ = cmd.Flags().GetString("out")
		}
		search := cfg.Export.SearchAddress
		if cmd.Flags().Changed("search") {
			search, _ = cmd.Flags().GetString("search")
		}
		address, _ := cmd.Flags().GetString("address")
		if strings.TrimSpace(address) == "" {
			return export.ErrNoAddress
		}

		copies := 0
		if cmd.Flags().Changed("copies") {
			copies, _ = cmd.Flags().GetInt("copies")
		} else {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			rec, err := resolveScan(cmd, st)
			if err != nil {
				return err
			}
			copies = rec.Result.Count
		}

		dest := filepath.Join(outDir, export.DOCXName)
		stats, err := export.BuildDOCXFile(args[0], dest, export.DOCXOptions{
			Address: address,
			Search:  search,
			Copies:  copies,
		})
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		slog.Info("docx exported", "dest", dest, "tables", stats.Tables, "replacements", stats.Replacements)

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d tables, %d address replacements)\n",
			dest, stats.Tables, stats.Replacements)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportPDFCmd, exportDOCXCmd)

	exportCmd.PersistentFlags().String("scan", "latest", "saved scan id to export")
	exportCmd.PersistentFlags().StringP("out", "o", ".", "output directory")

	exportDOCXCmd.Flags().StringP("address", "a", "", "replacement address (required)")
	exportDOCXCmd.Flags().String("search", export.DefaultSearchAddress, "address text to replace")
	exportDOCXCmd.Flags().Int("copies", 0, "number of table copies, instead of the scan's ticket count")
}
