package core

import "time"

// Note is the central entity of the domain.
// It is a rich-text document owned by a single user and identified by an ID
// assigned by the remote store.
type Note struct {
	ID         string
	Title      string
	Content    string
	CoverImage *string
	Icon       *string
	IsDeleted  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	OwnerID    string
}

// Clone returns a deep copy of the note, so callers can keep it without
// aliasing the optional fields held by the engine.
func (n Note) Clone() Note {
	n.CoverImage = cloneString(n.CoverImage)
	n.Icon = cloneString(n.Icon)
	return n
}

// NullString is an optional string that can be explicitly cleared.
// Valid=false means "null".
type NullString struct {
	Value string
	Valid bool
}

// Null returns a NullString that clears the field.
func Null() *NullString { return &NullString{} }

// Some returns a NullString holding v.
func Some(v string) *NullString { return &NullString{Value: v, Valid: true} }

// Ptr returns the value as a pointer, nil when null.
func (n NullString) Ptr() *string {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Patch is a partial note. Nil fields are left unchanged.
type Patch struct {
	Title      *string
	Content    *string
	CoverImage *NullString
	Icon       *NullString
}

// Title returns a patch that only sets the title.
func Title(v string) Patch { return Patch{Title: &v} }

// Content returns a patch that only sets the content.
func Content(v string) Patch { return Patch{Content: &v} }

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.CoverImage == nil && p.Icon == nil
}

// Merge returns the union of p and other. Fields set in other win.
func (p Patch) Merge(other Patch) Patch {
	if other.Title != nil {
		p.Title = other.Title
	}
	if other.Content != nil {
		p.Content = other.Content
	}
	if other.CoverImage != nil {
		p.CoverImage = other.CoverImage
	}
	if other.Icon != nil {
		p.Icon = other.Icon
	}
	return p
}

// Apply returns n with the patch fields written over it.
// Timestamps and ownership are left to the store.
func (p Patch) Apply(n Note) Note {
	n = n.Clone()
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.CoverImage != nil {
		n.CoverImage = p.CoverImage.Ptr()
	}
	if p.Icon != nil {
		n.Icon = p.Icon.Ptr()
	}
	return n
}

// Fields lists the names of the fields the patch sets, in wire order.
func (p Patch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Content != nil {
		fields = append(fields, "content")
	}
	if p.CoverImage != nil {
		fields = append(fields, "coverImage")
	}
	if p.Icon != nil {
		fields = append(fields, "icon")
	}
	return fields
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
