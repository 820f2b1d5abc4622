package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"sirep/internal/bootstrap"
	"sirep/internal/bootstrap/logging"
	"sirep/internal/errs"
	"sirep/internal/usecase/capture"
)

var capturaCmd = &cobra.Command{
	Use:   "captura",
	Short: "Capture pipeline commands",
}

// capturaExecutarCmd runs one capture batch to completion and prints
// the final counters.
var capturaExecutarCmd = &cobra.Command{
	Use:   "executar",
	Short: "Run one capture batch and wait for completion",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}
		if err := svcs.Capture.Start(ctx); err != nil {
			return errs.Wrap(err, "start capture batch")
		}
		logging.Info(ctx, "capture batch started")

		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return errs.Wrap(ctx.Err(), "wait capture batch")
			case <-ticker.C:
			}

			st := svcs.Capture.Status(ctx)
			if st.Estado == capture.EstadoConcluido || st.Estado == capture.EstadoOcioso {
				if _, err := fmt.Fprintf(
					cmd.OutOrStdout(),
					"capture finished: processados=%d novos=%d falhas=%d ocorrencias=%d\n",
					st.Processados, st.Novos, st.Falhas, st.Ocorrencias,
				); err != nil {
					return errs.Wrap(err, "write capture output")
				}
				if st.LastError != "" {
					logging.Warn(ctx, "capture finished with error", slog.String("last_error", st.LastError))
				}
				return nil
			}
		}
	}),
}

func init() {
	rootCmd.AddCommand(capturaCmd)
	capturaCmd.AddCommand(capturaExecutarCmd)
}
