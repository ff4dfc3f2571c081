package cli

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rod-records/internal/app"
	"github.com/joseph-ayodele/rod-records/internal/common"
)

func newEngineCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Inspect and prepare the OCR engines",
	}
	cmd.AddCommand(newEngineCheckCmd(o), newEngineSetupCmd(o))
	return cmd
}

func newEngineCheckCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report which engine binaries and runtimes are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := o.load(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "fast backend: %s\n", cfg.OCR.Backend)
			for _, bin := range []string{cfg.OCR.TesseractBin, cfg.OCR.PdftoppmBin, cfg.OCR.PdftotextBin, cfg.OCR.HeicConverter} {
				if bin == "" {
					continue
				}
				if p, err := exec.LookPath(bin); err == nil {
					fmt.Fprintf(out, "  %-12s %s\n", bin, p)
				} else {
					fmt.Fprintf(out, "  %-12s missing\n", bin)
				}
			}

			if !cfg.Handwriting.Enabled {
				fmt.Fprintln(out, "handwriting engine: disabled")
				return nil
			}
			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, logger, app.Options{NoStore: true})
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			if a.Handwriting.Available(ctx) {
				fmt.Fprintln(out, "handwriting engine: available")
			} else {
				fmt.Fprintln(out, "handwriting engine: unavailable (run `rodx engine setup`)")
			}
			return nil
		},
	}
}

func newEngineSetupCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Install the handwriting engine runtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := o.load(cmd)
			if err != nil {
				return err
			}
			if !cfg.Handwriting.Enabled {
				return common.NewAppError(common.CodeConfig, "handwriting engine is disabled",
					errors.New("set handwriting.enabled to true"))
			}
			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, logger, app.Options{NoStore: true})
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			ok, err := a.Handwriting.Setup(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return common.NewAppError(common.CodeEngineUnavailable, "handwriting engine still unavailable after setup", common.ErrEngineUnavailable)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "handwriting engine: available")
			return nil
		},
	}
}
