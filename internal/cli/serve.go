package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/rod-records/internal/app"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC and HTTP services",
		Long: `Serve starts the extraction service on the configured gRPC and HTTP
addresses and runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := o.load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())
			return a.Serve(ctx)
		},
	}
	f := cmd.Flags()
	f.String("grpc-addr", "", "gRPC listen address")
	f.String("http-addr", "", "HTTP listen address")
	_ = o.v.BindPFlag("server.grpc_addr", f.Lookup("grpc-addr"))
	_ = o.v.BindPFlag("server.http_addr", f.Lookup("http-addr"))
	return cmd
}
