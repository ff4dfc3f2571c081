package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/rod-records/internal/app"
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

func newProcessCmd(o *rootOptions) *cobra.Command {
	var (
		format  string
		force   bool
		noStore bool
	)
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Extract the license fields from one scan",
		Long: `Process runs the engine cascade on a single PDF or image and prints the
extraction result.

Example:
  rodx process scans/1952-0614.pdf
  rodx process scans/license.jpg --format yaml --no-store`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
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

			rec, cached, err := a.Processor.Process(ctx, args[0], force)
			if err != nil {
				return err
			}
			logger.Debug("processed", "path", args[0], "record_id", rec.ID, "cached", cached, "status", rec.Status)

			if err := writeResult(cmd.OutOrStdout(), format, rec.Result); err != nil {
				return err
			}
			if rec.Result.Error != "" {
				return fmt.Errorf("extraction failed: %s", rec.Result.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format (json, yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "ignore stored results for identical content")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "do not open the record store")
	return cmd
}

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
	}
}

// writeResult renders res with the same keys in both formats.
func writeResult(w io.Writer, format string, res extract.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if strings.EqualFold(format, "yaml") {
		var generic map[string]any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("convert result: %w", err)
		}
		if data, err = yaml.Marshal(generic); err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
