package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/quire"
)

// noteView is the exported shape of a note.
type noteView struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Content    string    `json:"content" yaml:"content"`
	CoverImage *string   `json:"coverImage,omitempty" yaml:"cover_image,omitempty"`
	Icon       *string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	IsDeleted  bool      `json:"isDeleted" yaml:"is_deleted"`
	CreatedAt  time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" yaml:"updated_at"`
}

func viewOf(n quire.Note) noteView {
	return noteView{
		ID:         n.ID,
		Title:      n.Title,
		Content:    n.Content,
		CoverImage: n.CoverImage,
		Icon:       n.Icon,
		IsDeleted:  n.IsDeleted,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}

func viewsOf(notes []quire.Note) []noteView {
	views := make([]noteView, 0, len(notes))
	for _, n := range notes {
		views = append(views, viewOf(n))
	}
	return views
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return encoder.Close()
}

func writeLine(w io.Writer, n quire.Note) {
	icon := " "
	if n.Icon != nil {
		icon = *n.Icon
	}
	fmt.Fprintf(w, "%s %s %s\n", n.ID, icon, n.Title)
}

func writeNote(w io.Writer, n quire.Note, status string) {
	if n.Icon != nil {
		fmt.Fprintf(w, "%s ", *n.Icon)
	}
	fmt.Fprintln(w, n.Title)
	fmt.Fprintf(w, "id:      %s\n", n.ID)
	if n.CoverImage != nil {
		fmt.Fprintf(w, "cover:   %s\n", *n.CoverImage)
	}
	if n.IsDeleted {
		fmt.Fprintln(w, "trashed: yes")
	}
	fmt.Fprintf(w, "updated: %s\n", n.UpdatedAt.Local().Format(time.DateTime))
	if status != "" {
		fmt.Fprintf(w, "status:  %s\n", status)
	}
	if n.Content != "" {
		fmt.Fprintf(w, "\n%s\n", n.Content)
	}
}
