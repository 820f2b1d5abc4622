package cmd

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sirep/internal/bootstrap"
	"sirep/internal/bootstrap/logging"
	"sirep/internal/errs"
	"sirep/internal/web"
)

// serveCmd runs the operator HTTP API until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the operator HTTP API",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := web.Run(ctx, app.Config.HTTP.Addr, svcs.Server.Router()); err != nil {
			return errs.Wrap(err, "serve http api")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
