package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/pkg/core"
)

var (
	listTrash bool
	listAll   bool
	listMatch string
	listJSON  bool
	listYAML  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your notes (the dashboard, or the trash with --trash)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := quire.Filter{Trashed: core.FilterActive, Match: listMatch}
		switch {
		case listAll:
			filter.Trashed = core.FilterAll
		case listTrash:
			filter.Trashed = core.FilterTrashed
		}
		if err := filter.Validate(); err != nil {
			return err
		}

		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			notes := app.Engine().Notes(filter)
			out := cmd.OutOrStdout()

			switch {
			case listJSON:
				return writeJSON(out, viewsOf(notes))
			case listYAML:
				return writeYAML(out, viewsOf(notes))
			}

			if creds := app.Credentials(); creds != nil {
				if user, ok := creds.User(); ok {
					title := header(user)
					if filter.Trashed == core.FilterTrashed {
						title = "Trash"
					}
					fmt.Fprintln(out, title)
				}
			}
			if len(notes) == 0 {
				fmt.Fprintln(out, "No notes.")
				return nil
			}
			for _, n := range notes {
				writeLine(out, n)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listTrash, "trash", false, "List trashed notes")
	listCmd.Flags().BoolVar(&listAll, "all", false, "List active and trashed notes")
	listCmd.Flags().StringVar(&listMatch, "match", "", "Filter by title glob (case-insensitive)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listYAML, "yaml", false, "Output in YAML format")
	listCmd.MarkFlagsMutuallyExclusive("trash", "all")
	listCmd.MarkFlagsMutuallyExclusive("json", "yaml")
}
