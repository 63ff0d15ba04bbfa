package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saltyorg/dbscope/internal/database"
)

func newInitDBCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Clear the existing data and create new tables.",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, app *application) (err error) {
			ctx, scope := database.WithScope(cmd.Context(), app.db)
			defer func() { scope.Release(err) }()

			if err := database.InitSchema(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Initialized the database.")
			return nil
		}),
	}
}
