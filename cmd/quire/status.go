package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
)

var statusWatch bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the engine, the autosave scheduler and the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			if err := writeJSON(cmd.OutOrStdout(), app.State()); err != nil {
				return err
			}
			if !statusWatch {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			wait, err := printEvents(ctx, cmd.OutOrStdout(), app)
			if err != nil {
				return err
			}
			<-ctx.Done()
			wait()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Stream engine events until interrupted")
}
