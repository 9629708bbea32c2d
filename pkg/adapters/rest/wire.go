package rest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/quire/pkg/core"
)

// wireNote is the JSON shape of a note on the REST API.
type wireNote struct {
	ID         string    `json:"_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CoverImage *string   `json:"coverImage,omitempty"`
	Icon       *string   `json:"icon,omitempty"`
	IsDeleted  bool      `json:"isDeleted"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	UserID     string    `json:"userId,omitempty"`
}

func toWire(n core.Note) wireNote {
	n = n.Clone()
	return wireNote{
		ID:         n.ID,
		Title:      n.Title,
		Content:    n.Content,
		CoverImage: n.CoverImage,
		Icon:       n.Icon,
		IsDeleted:  n.IsDeleted,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
		UserID:     n.OwnerID,
	}
}

func (w wireNote) note() core.Note {
	return core.Note{
		ID:         w.ID,
		Title:      w.Title,
		Content:    w.Content,
		CoverImage: w.CoverImage,
		Icon:       w.Icon,
		IsDeleted:  w.IsDeleted,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
		OwnerID:    w.UserID,
	}
}

// errorBody is the JSON shape of a failure response.
type errorBody struct {
	Message string `json:"message"`
}

// encodePatch marshals only the set fields. Cleared optional fields are
// sent as null.
func encodePatch(p core.Patch) ([]byte, error) {
	body := make(map[string]any, 4)
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Content != nil {
		body["content"] = *p.Content
	}
	if p.CoverImage != nil {
		body["coverImage"] = p.CoverImage.Ptr()
	}
	if p.Icon != nil {
		body["icon"] = p.Icon.Ptr()
	}
	return json.Marshal(body)
}

// decodePatch parses a request body, telling absent fields from null ones.
// Unknown fields are ignored.
func decodePatch(data []byte) (core.Patch, error) {
	var p core.Patch
	if len(data) == 0 {
		return p, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return p, err
	}

	text := func(key string) (*string, error) {
		v, ok := raw[key]
		if !ok {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return &s, nil
	}
	optional := func(key string) (*core.NullString, error) {
		v, ok := raw[key]
		if !ok {
			return nil, nil
		}
		var s *string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if s == nil {
			return core.Null(), nil
		}
		return core.Some(*s), nil
	}

	var err error
	if p.Title, err = text("title"); err != nil {
		return p, err
	}
	if p.Content, err = text("content"); err != nil {
		return p, err
	}
	if p.CoverImage, err = optional("coverImage"); err != nil {
		return p, err
	}
	if p.Icon, err = optional("icon"); err != nil {
		return p, err
	}
	return p, nil
}
