package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sirep/internal/bootstrap"
	"sirep/internal/bootstrap/logging"
	"sirep/internal/errs"
)

// rescindidosCmd exports the CNPJ/CEI list of plans rescinded inside a
// date range as a plain-text file.
var rescindidosCmd = &cobra.Command{
	Use:   "rescindidos",
	Short: "Export CNPJ/CEI of rescinded plans as TXT",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		from, err := dateFlag(cmd, "from")
		if err != nil {
			return err
		}
		to, err := dateFlag(cmd, "to")
		if err != nil {
			return err
		}

		txt, err := svcs.Treatment.RescindedTXT(ctx, from, to)
		if err != nil {
			return errs.Wrap(err, "export rescinded plans")
		}

		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			if _, err := fmt.Fprint(cmd.OutOrStdout(), txt); err != nil {
				return errs.Wrap(err, "write rescindidos output")
			}
			return nil
		}

		if err := os.WriteFile(output, []byte(txt), 0o644); err != nil {
			return errs.Wrapf(err, "write rescindidos file %q", output)
		}
		logging.Info(ctx, "rescindidos exported", slog.String("file", output))
		return nil
	}),
}

func dateFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	value, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errs.Wrapf(err, "parse --%s", name)
	}
	return value, nil
}

func init() {
	rootCmd.AddCommand(rescindidosCmd)
	rescindidosCmd.Flags().String("from", "", "Range start (YYYY-MM-DD)")
	rescindidosCmd.Flags().String("to", "", "Range end (YYYY-MM-DD)")
	rescindidosCmd.Flags().String("output", "", "Output file path (defaults to stdout)")
	_ = rescindidosCmd.MarkFlagRequired("from")
	_ = rescindidosCmd.MarkFlagRequired("to")
}
