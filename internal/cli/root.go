// Package cli implements the rodx command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/rod-records/internal/common"
)

// Version is overridden at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "v0.3.0-dev"

type rootOptions struct {
	cfgFile       string
	verbose       bool
	noHandwriting bool
	v             *viper.Viper
}

// NewRootCmd builds the rodx command tree with a fresh viper instance.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{v: common.NewViper()}

	cmd := &cobra.Command{
		Use:   "rodx",
		Short: "rodx - field extraction from scanned marriage licenses",
		Long: `rodx reads scanned marriage licenses (PDF or image) and extracts the
license identifier, both party names and the event date, each with a
confidence score.

A fast OCR engine runs first. When a field comes back weak, a slower
handwriting engine is tried and the more confident reading of each field
is kept. Results below the verification threshold are flagged for review.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "config file (YAML)")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&o.noHandwriting, "no-handwriting", false, "never escalate to the handwriting engine")
	pf.String("log-format", "", "log format (text, json)")
	pf.String("db-driver", "", "record store driver (sqlite, postgres)")
	pf.String("db-url", "", "record store DSN")

	_ = o.v.BindPFlag("log.format", pf.Lookup("log-format"))
	_ = o.v.BindPFlag("database.driver", pf.Lookup("db-driver"))
	_ = o.v.BindPFlag("database.dsn", pf.Lookup("db-url"))

	cmd.AddCommand(
		newProcessCmd(o),
		newBatchCmd(o),
		newServeCmd(o),
		newEngineCmd(o),
		newConfigCmd(o),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// load resolves the effective configuration and installs the process logger.
func (o *rootOptions) load(cmd *cobra.Command) (*common.Config, *slog.Logger, error) {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	}
	if o.verbose {
		o.v.Set("log.level", "debug")
	}
	if o.noHandwriting {
		o.v.Set("handwriting.enabled", false)
	}
	cfg, err := common.LoadConfigFrom(o.v)
	if err != nil {
		return nil, nil, err
	}
	logger := common.NewLogger(cmd.ErrOrStderr(), cfg.Log)
	slog.SetDefault(logger)
	if used := o.v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return cfg, logger, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rodx %s\n", Version)
		},
	}
}
