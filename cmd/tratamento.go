package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"sirep/internal/bootstrap"
	"sirep/internal/bootstrap/logging"
	"sirep/internal/errs"
)

var tratamentoCmd = &cobra.Command{
	Use:   "tratamento",
	Short: "Treatment pipeline commands",
}

// tratamentoSeedCmd creates demo plans already routed into treatment.
var tratamentoSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create demo plans with pending treatments",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		quantidade, _ := cmd.Flags().GetInt("quantidade")
		ids, err := svcs.Treatment.Seed(ctx, quantidade)
		if err != nil {
			return errs.Wrap(err, "seed treatments")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "treatments created: %d\n", len(ids)); err != nil {
			return errs.Wrap(err, "write seed output")
		}
		return nil
	}),
}

// tratamentoMigrarCmd routes captured plans into the treatment queue.
var tratamentoMigrarCmd = &cobra.Command{
	Use:   "migrar",
	Short: "Route captured plans into treatment",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svcs services) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		if err := app.InitSchema(ctx); err != nil {
			return errs.Wrap(err, "initialize schema")
		}

		ids, err := svcs.Treatment.Migrate(ctx)
		if err != nil {
			return errs.Wrap(err, "migrate plans into treatment")
		}

		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "treatments created: %d\n", len(ids)); err != nil {
			return errs.Wrap(err, "write migrar output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(tratamentoCmd)
	tratamentoCmd.AddCommand(tratamentoSeedCmd)
	tratamentoCmd.AddCommand(tratamentoMigrarCmd)

	tratamentoSeedCmd.Flags().Int("quantidade", 3, "How many demo plans to create")
}
