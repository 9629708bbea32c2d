package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/pkg/adapters/memory"
	"github.com/aretw0/quire/pkg/core"
)

var (
	showJSON bool

	newTitle   string
	newContent string

	clearCover bool
	clearIcon  bool

	assumeYes bool
)

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a note",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			if err := app.Engine().FetchOne(ctx, id); err != nil {
				return err
			}
			n, ok := app.Engine().Focused()
			if !ok || n.ID != id {
				return core.ErrNotFound
			}
			if showJSON {
				return writeJSON(cmd.OutOrStdout(), viewOf(n))
			}
			writeNote(cmd.OutOrStdout(), n, "")
			return nil
		})
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			n, err := app.Engine().Create(ctx, quire.Patch{Title: &newTitle, Content: &newContent})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note created: %s\n", n.ID)
			return nil
		})
	},
}

var coverCmd = &cobra.Command{
	Use:   "cover ID [URL]",
	Short: "Set or remove the cover image of a note",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := optionalValue(args, clearCover, "URL")
		if err != nil {
			return err
		}
		return decorate(cmd, args[0], func(ctx context.Context, app *quire.App) error {
			return app.Scheduler().SetCoverImage(ctx, value)
		})
	},
}

var iconCmd = &cobra.Command{
	Use:   "icon ID [GLYPH]",
	Short: "Set or remove the icon of a note",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := optionalValue(args, clearIcon, "GLYPH")
		if err != nil {
			return err
		}
		return decorate(cmd, args[0], func(ctx context.Context, app *quire.App) error {
			return app.Scheduler().SetIcon(ctx, value)
		})
	},
}

var trashCmd = &cobra.Command{
	Use:   "trash ID",
	Short: "Move a note to the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			ok, err := confirm(cmd, fmt.Sprintf("Move %s to the trash?", describe(app, id)))
			if err != nil || !ok {
				return err
			}
			if err := app.Engine().Trash(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Note moved to trash")
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Take a note out of the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			if err := app.Engine().Restore(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Note restored")
			return nil
		})
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge ID",
	Short: "Delete a note permanently",
	Long:  `Purge deletes a note from the server. It cannot be undone.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			ok, err := confirm(cmd, fmt.Sprintf("Permanently delete %s?", describe(app, id)))
			if err != nil || !ok {
				return err
			}
			if err := app.Engine().Purge(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Note permanently deleted")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(showCmd, newCmd, coverCmd, iconCmd, trashCmd, restoreCmd, purgeCmd)

	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")

	newCmd.Flags().StringVar(&newTitle, "title", memory.DefaultTitle, "Title of the note")
	newCmd.Flags().StringVar(&newContent, "content", "", "Content of the note")

	coverCmd.Flags().BoolVar(&clearCover, "clear", false, "Remove the cover image")
	iconCmd.Flags().BoolVar(&clearIcon, "clear", false, "Remove the icon")

	trashCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	purgeCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

// decorate opens a note, applies an immediate change and reports the result.
func decorate(cmd *cobra.Command, id string, apply func(ctx context.Context, app *quire.App) error) error {
	return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
		if _, err := app.OpenNote(ctx, id); err != nil {
			return err
		}
		if err := apply(ctx, app); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Note updated")
		return nil
	})
}

// optionalValue returns the value argument, or nil when it is cleared.
func optionalValue(args []string, cleared bool, name string) (*string, error) {
	switch {
	case cleared && len(args) > 1:
		return nil, fmt.Errorf("pass either %s or --clear", name)
	case cleared:
		return nil, nil
	case len(args) < 2:
		return nil, fmt.Errorf("missing %s (or --clear)", name)
	}
	v := args[1]
	return &v, nil
}

func describe(app *quire.App, id string) string {
	if n, ok := app.Engine().Note(id); ok {
		return fmt.Sprintf("%q", n.Title)
	}
	return id
}

func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	if assumeYes {
		return true, nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Aborted")
	return false, nil
}
