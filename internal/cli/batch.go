package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rod-records/internal/app"
	"github.com/joseph-ayodele/rod-records/internal/entity"
	"github.com/joseph-ayodele/rod-records/internal/ingest"
)

func newBatchCmd(o *rootOptions) *cobra.Command {
	var (
		xlsxOut    string
		skipHidden bool
		force      bool
		noStore    bool
		exts       []string
	)
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Extract every scan under a directory",
		Long: `Batch walks a directory tree, queues every supported scan (pdf, jpg,
jpeg, png, tif, tiff, heic) on the worker pool and prints one line per
file followed by a summary.

Example:
  rodx batch ./scans --xlsx review.xlsx
  rodx batch ./scans --workers 4 --ext pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := o.load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, logger, app.Options{NoStore: noStore})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			results, stats, err := a.Ingestor.IngestDirectory(ctx, args[0], ingest.Options{
				SkipHidden: skipHidden,
				Exts:       exts,
				Force:      force,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FILE\tSTATUS\tIDENTIFIER\tREVIEW\tNOTE")
			recs := make([]*entity.Record, 0, len(results))
			for _, r := range results {
				ident, note := "", r.Err
				if r.Record != nil {
					ident = r.Record.Result.Fields.Identifier.Value
					recs = append(recs, r.Record)
				}
				if r.Deduplicated && note == "" {
					note = "reused"
				}
				status := r.Status
				if status == "" {
					status = "ERROR"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", r.Path, status, ident, r.NeedsVerification, note)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nscanned=%d matched=%d succeeded=%d reused=%d failed=%d needs_verification=%d\n",
				stats.Scanned, stats.Matched, stats.Succeeded, stats.Deduplicated, stats.Failed, stats.NeedsVerification)

			if xlsxOut != "" {
				buf, err := a.Exporter.ExportXLSX(ctx, recs)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxOut, buf, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", xlsxOut, err)
				}
				logger.Info("wrote review workbook", "path", xlsxOut, "rows", len(recs))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&xlsxOut, "xlsx", "", "write an XLSX review workbook to this path")
	f.BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories")
	f.BoolVar(&force, "force", false, "ignore stored results for identical content")
	f.BoolVar(&noStore, "no-store", false, "do not open the record store")
	f.StringSliceVar(&exts, "ext", nil, "restrict to these extensions")
	f.Int("workers", 0, "worker count (default from config)")
	_ = o.v.BindPFlag("queue.workers", f.Lookup("workers"))
	return cmd
}
