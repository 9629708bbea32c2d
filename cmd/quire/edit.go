package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/pkg/adapters/markdown"
	"github.com/aretw0/quire/pkg/core"
)

var (
	editTitle   string
	editContent string
	editFile    string
)

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a note; changes are saved after a quiet period",
	Long: `Edit changes the title or content of a note.

With --file the note content follows a local file until interrupted:
every save of the file is debounced and sent to the server. Markdown
files (.md) are rendered to HTML first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		titleSet := cmd.Flags().Changed("title")
		contentSet := cmd.Flags().Changed("content")
		if !titleSet && !contentSet && editFile == "" {
			return errors.New("nothing to edit (use --title, --content or --file)")
		}

		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			if _, err := app.OpenNote(ctx, id); err != nil {
				return err
			}
			sched := app.Scheduler()
			if titleSet {
				sched.SetTitle(editTitle)
			}
			if contentSet {
				sched.SetContent(editContent)
			}
			if editFile != "" {
				if err := mirror(ctx, cmd, app, editFile); err != nil {
					return err
				}
			}

			if err := sched.Flush(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %s: %s\n", id, app.Engine().SaveStatus(id))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	editCmd.Flags().StringVar(&editContent, "content", "", "New content")
	editCmd.Flags().StringVar(&editFile, "file", "", "Follow a local file as the note content")
	editCmd.MarkFlagsMutuallyExclusive("content", "file")
}

// mirror feeds the content of path into the open draft on every change of
// the file, until ctx is done or the process is interrupted.
func mirror(ctx context.Context, cmd *cobra.Command, app *quire.App, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	var renderer *markdown.Renderer
	if markdown.IsMarkdown(path) {
		renderer = markdown.New()
	}
	load := func() (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		if renderer == nil {
			return string(data), nil
		}
		return renderer.Render(string(data))
	}

	last, err := load()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	app.Scheduler().SetContent(last)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	wait, err := printEvents(ctx, cmd.ErrOrStderr(), app, core.EventUpdated, core.EventSaveStatus)
	if err != nil {
		stop()
		return err
	}
	defer func() {
		stop()
		wait()
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so the directory is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Following %s (Ctrl+C to stop)\n", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			content, err := load()
			if err != nil {
				slog.Warn("read followed file failed", "path", path, "error", err)
				continue
			}
			if content == last {
				continue
			}
			last = content
			slog.Debug("file changed", "path", path)
			app.Scheduler().SetContent(content)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", "error", err)
		}
	}
}
