package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/ticketscan/internal/store"
)

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "Manage saved scans",
}

var scansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scans, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		ids, err := st.List()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}

		records := make([]*store.Record, 0, len(ids))
		for _, id := range ids {
			rec, err := st.Load(id)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), records)
		}
		if len(records) == 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No saved scans.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tSOURCE\tMODE\tCOUNT\tPAGES")
		for _, rec := range records {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
				rec.ID, rec.Source, rec.Result.Mode, rec.Result.Count, rec.Result.PageCount)
		}
		return tw.Flush()
	},
}

var scansShowCmd = &cobra.Command{
	Use:   "show [ID]",
	Short: "Show a saved scan (default: the latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		id := "latest"
		if len(args) == 1 {
			id = args[0]
		}
		rec, err := st.Resolve(id)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		if err := checkFormat(format); err != nil {
			return err
		}
		if format == formatJSON {
			return writeJSON(cmd.OutOrStdout(), rec)
		}

		w := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(w, "ID:      %s\n", rec.ID)
		_, _ = fmt.Fprintf(w, "Created: %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		_, _ = fmt.Fprintf(w, "Source:  %s\n", rec.Source)
		_, _ = fmt.Fprintf(w, "Mode:    %s\n", rec.Result.Mode)
		_, _ = fmt.Fprintf(w, "Export:  %s\n", rec.Result.ExportScope())
		_, _ = fmt.Fprintln(w, rec.Result.Summary())
		for _, f := range rec.Failures {
			_, _ = fmt.Fprintf(w, "warning: %s\n", f)
		}
		return nil
	},
}

var scansPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest saved scans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keep, _ := cmd.Flags().GetInt("keep")
		if keep < 0 {
			return fmt.Errorf("invalid --keep: %d (must not be negative)", keep)
		}
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		n, err := st.Prune(keep)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d scan(s)\n", n)
		return nil
	},
}

var scansDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete saved scans",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig())
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := st.Delete(id); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scansCmd)
	scansCmd.AddCommand(scansListCmd, scansShowCmd, scansPruneCmd, scansDeleteCmd)

	scansListCmd.Flags().StringP("format", "f", formatText, "output format: text or json")
	scansShowCmd.Flags().StringP("format", "f", formatText, "output format: text or json")
	scansPruneCmd.Flags().Int("keep", 10, "number of newest scans to keep")
}
