package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/pkg/core"
)

type (
	// ListInput contains parameters for listing notes.
	ListInput struct {
		Trash bool   `json:"trash,omitempty" jsonschema:"List trashed notes instead of active ones"`
		All   bool   `json:"all,omitempty" jsonschema:"List active and trashed notes"`
		Match string `json:"match,omitempty" jsonschema:"Case-insensitive glob over titles, e.g. 'meet*'"`
	}

	// ListOutput contains the listed notes, newest first.
	ListOutput struct {
		Notes []ToolNote `json:"notes"`
	}

	// IDInput identifies a note.
	IDInput struct {
		ID string `json:"id" jsonschema:"Note id"`
	}

	// CreateInput contains parameters for creating a note.
	CreateInput struct {
		Title   string `json:"title,omitempty" jsonschema:"Title of the note (default: Untitled)"`
		Content string `json:"content,omitempty" jsonschema:"HTML content of the note"`
	}

	// UpdateInput contains the fields to change. Omitted fields are kept.
	UpdateInput struct {
		ID         string  `json:"id" jsonschema:"Note id"`
		Title      *string `json:"title,omitempty" jsonschema:"New title"`
		Content    *string `json:"content,omitempty" jsonschema:"New HTML content"`
		CoverImage *string `json:"coverImage,omitempty" jsonschema:"New cover image URL"`
		Icon       *string `json:"icon,omitempty" jsonschema:"New icon glyph"`
		ClearCover bool    `json:"clearCover,omitempty" jsonschema:"Remove the cover image"`
		ClearIcon  bool    `json:"clearIcon,omitempty" jsonschema:"Remove the icon"`
	}

	// PurgeInput contains parameters for deleting a note permanently.
	PurgeInput struct {
		ID      string `json:"id" jsonschema:"Note id"`
		Confirm string `json:"confirm" jsonschema:"Must be set to 'yes' to confirm permanent deletion"`
	}

	// ResultOutput contains the result of a command on a note.
	ResultOutput struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		Message string `json:"message"`
	}

	// ToolNote is a note as returned to MCP clients.
	ToolNote struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		Content    string `json:"content,omitempty"`
		CoverImage string `json:"coverImage,omitempty"`
		Icon       string `json:"icon,omitempty"`
		IsDeleted  bool   `json:"isDeleted"`
		CreatedAt  string `json:"createdAt"`
		UpdatedAt  string `json:"updatedAt"`
	}
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve your notes as MCP tools over stdio",
	Long: `mcp runs a Model Context Protocol server on standard input and output.
It exposes the notes of the signed-in user to MCP-compatible assistants.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *quire.App) error {
			server := mcp.NewServer(&mcp.Implementation{
				Name:    "quire",
				Version: version,
			}, nil)
			registerTools(server, &toolset{app: app})

			slog.Debug("mcp server starting")
			if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
				return fmt.Errorf("error running server: %w", err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func registerTools(server *mcp.Server, t *toolset) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_notes",
		Description: "List the notes of the signed-in user, newest first. Active notes by default; set trash or all to include trashed notes. Content is omitted.",
	}, t.list)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_note",
		Description: "Fetch one note with its content from the server.",
	}, t.get)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_note",
		Description: "Create a note. Returns the stored note with its id.",
	}, t.create)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_note",
		Description: "Change the title, content, cover image or icon of a note. Only the given fields are sent.",
	}, t.update)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trash_note",
		Description: "Move a note to the trash. It can be restored with restore_note.",
	}, t.trash)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "restore_note",
		Description: "Take a note out of the trash.",
	}, t.restore)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "purge_note",
		Description: "Delete a note permanently. Requires confirm='yes'.",
	}, t.purge)
}

type toolset struct {
	app *quire.App
}

func (t *toolset) list(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	filter := quire.Filter{Trashed: core.FilterActive, Match: input.Match}
	switch {
	case input.All:
		filter.Trashed = core.FilterAll
	case input.Trash:
		filter.Trashed = core.FilterTrashed
	}
	if err := filter.Validate(); err != nil {
		return &mcp.CallToolResult{IsError: true}, ListOutput{}, err
	}
	if err := t.app.Engine().FetchAll(ctx); err != nil {
		return &mcp.CallToolResult{IsError: true}, ListOutput{}, err
	}

	notes := t.app.Engine().Notes(filter)
	out := ListOutput{Notes: make([]ToolNote, 0, len(notes))}
	for _, n := range notes {
		tn := toolNote(n)
		tn.Content = ""
		out.Notes = append(out.Notes, tn)
	}
	return nil, out, nil
}

func (t *toolset) get(ctx context.Context, req *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, ToolNote, error) {
	id := strings.TrimSpace(input.ID)
	if err := t.app.Engine().FetchOne(ctx, id); err != nil {
		return &mcp.CallToolResult{IsError: true}, ToolNote{}, err
	}
	n, ok := t.app.Engine().Focused()
	if !ok || n.ID != id {
		return &mcp.CallToolResult{IsError: true}, ToolNote{}, core.ErrNotFound
	}
	return nil, toolNote(n), nil
}

func (t *toolset) create(ctx context.Context, req *mcp.CallToolRequest, input CreateInput) (*mcp.CallToolResult, ToolNote, error) {
	title := input.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	n, err := t.app.Engine().Create(ctx, quire.Patch{Title: &title, Content: &input.Content})
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ToolNote{}, err
	}
	return nil, toolNote(n), nil
}

func (t *toolset) update(ctx context.Context, req *mcp.CallToolRequest, input UpdateInput) (*mcp.CallToolResult, ToolNote, error) {
	id := strings.TrimSpace(input.ID)
	p := quire.Patch{Title: input.Title, Content: input.Content}

	switch {
	case input.ClearCover && input.CoverImage != nil:
		return &mcp.CallToolResult{IsError: true}, ToolNote{}, errors.New("coverImage and clearCover are mutually exclusive")
	case input.ClearCover:
		p.CoverImage = core.Null()
	case input.CoverImage != nil:
		p.CoverImage = core.Some(*input.CoverImage)
	}
	switch {
	case input.ClearIcon && input.Icon != nil:
		return &mcp.CallToolResult{IsError: true}, ToolNote{}, errors.New("icon and clearIcon are mutually exclusive")
	case input.ClearIcon:
		p.Icon = core.Null()
	case input.Icon != nil:
		p.Icon = core.Some(*input.Icon)
	}
	if p.IsEmpty() {
		return &mcp.CallToolResult{IsError: true}, ToolNote{}, errors.New("no fields to update")
	}

	if err := t.app.Engine().Update(ctx, id, p); err != nil {
		return &mcp.CallToolResult{IsError: true}, ToolNote{}, err
	}
	n, ok := t.app.Engine().Note(id)
	if !ok {
		if n, ok = t.app.Engine().Focused(); !ok || n.ID != id {
			return nil, ToolNote{ID: id}, nil
		}
	}
	return nil, toolNote(n), nil
}

func (t *toolset) trash(ctx context.Context, req *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, ResultOutput, error) {
	id := strings.TrimSpace(input.ID)
	if err := t.app.Engine().Trash(ctx, id); err != nil {
		return &mcp.CallToolResult{IsError: true}, ResultOutput{}, err
	}
	return nil, ResultOutput{Success: true, ID: id, Message: "Note moved to trash"}, nil
}

func (t *toolset) restore(ctx context.Context, req *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, ResultOutput, error) {
	id := strings.TrimSpace(input.ID)
	if err := t.app.Engine().Restore(ctx, id); err != nil {
		return &mcp.CallToolResult{IsError: true}, ResultOutput{}, err
	}
	return nil, ResultOutput{Success: true, ID: id, Message: "Note restored"}, nil
}

func (t *toolset) purge(ctx context.Context, req *mcp.CallToolRequest, input PurgeInput) (*mcp.CallToolResult, ResultOutput, error) {
	if input.Confirm != "yes" {
		return &mcp.CallToolResult{IsError: true}, ResultOutput{}, errors.New("confirm must be 'yes' to delete a note permanently")
	}
	id := strings.TrimSpace(input.ID)
	if err := t.app.Engine().Purge(ctx, id); err != nil {
		return &mcp.CallToolResult{IsError: true}, ResultOutput{}, err
	}
	return nil, ResultOutput{Success: true, ID: id, Message: "Note permanently deleted"}, nil
}

func toolNote(n quire.Note) ToolNote {
	tn := ToolNote{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		IsDeleted: n.IsDeleted,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if n.CoverImage != nil {
		tn.CoverImage = *n.CoverImage
	}
	if n.Icon != nil {
		tn.Icon = *n.Icon
	}
	return tn
}
