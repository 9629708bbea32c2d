package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/adapters/memory"
	"github.com/aretw0/quire/pkg/core"
)

func newPair(t *testing.T) (*Client, *memory.Store) {
	t.Helper()
	store := memory.New()
	srv := httptest.NewServer(NewHandler(store))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)
	return c, store
}

func TestClient_RoundTrip(t *testing.T) {
	c, store := newPair(t)
	ctx := context.Background()

	created, err := c.Create(ctx, "alice", core.Patch{Title: ptr("Untitled"), Content: ptr("")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.OwnerID)
	assert.False(t, created.CreatedAt.IsZero())

	updated, err := c.Update(ctx, "alice", created.ID, core.Patch{Icon: core.Some("📝"), Content: ptr("<p>hi</p>")})
	require.NoError(t, err)
	assert.Equal(t, "Untitled", updated.Title)
	require.NotNil(t, updated.Icon)
	assert.Equal(t, "📝", *updated.Icon)

	updated, err = c.Update(ctx, "alice", created.ID, core.Patch{Icon: core.Null()})
	require.NoError(t, err)
	assert.Nil(t, updated.Icon)

	require.NoError(t, c.Trash(ctx, "alice", created.ID))
	got, err := c.Get(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)

	require.NoError(t, c.Restore(ctx, "alice", created.ID))
	list, err := c.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsDeleted)

	require.NoError(t, c.Purge(ctx, "alice", created.ID))
	assert.Zero(t, store.Len())
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Server message is used verbatim", func(t *testing.T) {
		c, _ := newPair(t)
		_, err := c.Get(ctx, "alice", "missing")
		require.Error(t, err)
		assert.Equal(t, "Note not found", err.Error())
		assert.Equal(t, http.StatusNotFound, core.StatusOf(err))
	})

	t.Run("Missing bearer", func(t *testing.T) {
		c, _ := newPair(t)
		_, err := c.List(ctx, "")
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, core.StatusOf(err))
		assert.Equal(t, "Not authorized, no token", err.Error())
	})

	t.Run("Generic message without body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		c, err := New(srv.URL)
		require.NoError(t, err)

		cases := map[string]func() error{
			"Failed to fetch notes":             func() error { _, err := c.List(ctx, "t"); return err },
			"Failed to fetch note":              func() error { _, err := c.Get(ctx, "t", "x"); return err },
			"Failed to create note":             func() error { _, err := c.Create(ctx, "t", core.Patch{}); return err },
			"Failed to update note":             func() error { _, err := c.Update(ctx, "t", "x", core.Title("a")); return err },
			"Failed to delete note":             func() error { return c.Trash(ctx, "t", "x") },
			"Failed to restore note":            func() error { return c.Restore(ctx, "t", "x") },
			"Failed to permanently delete note": func() error { return c.Purge(ctx, "t", "x") },
		}
		for want, call := range cases {
			err := call()
			require.Error(t, err)
			assert.Equal(t, want, err.Error())
			assert.Equal(t, http.StatusBadGateway, core.StatusOf(err))
		}
	})

	t.Run("Transport error keeps its message", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		c, err := New(url)
		require.NoError(t, err)
		_, err = c.List(ctx, "t")
		require.Error(t, err)
		assert.Zero(t, core.StatusOf(err))
		assert.NotEqual(t, "Failed to fetch notes", err.Error())
	})
}

func TestClient_Request(t *testing.T) {
	var got struct {
		method, path, auth string
		body               map[string]any
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.EscapedPath()
		got.auth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		got.body = nil
		_ = json.Unmarshal(data, &got.body)
		_, _ = w.Write([]byte(`{"_id":"a/b","title":"t"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/api/")
	require.NoError(t, err)

	_, err = c.Update(context.Background(), "tok", "a/b", core.Patch{CoverImage: core.Null(), Title: ptr("t")})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/api/notes/a%2Fb", got.path)
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, map[string]any{"title": "t", "coverImage": nil}, got.body, "only set fields are sent")

	require.NoError(t, c.Trash(context.Background(), "tok", "x"))
	assert.Equal(t, "/api/notes/x/trash", got.path)
}

func TestNew_InvalidEndpoint(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://bad")
	assert.Error(t, err)
}

func TestHandler_BadBody(t *testing.T) {
	srv := httptest.NewServer(NewHandler(memory.New()))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/notes", strings.NewReader(`{"title": 42}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Invalid request body", body.Message)
}

func TestDecodePatch(t *testing.T) {
	p, err := decodePatch([]byte(`{"title":"a","icon":null,"extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "icon"}, p.Fields())
	assert.False(t, p.Icon.Valid)

	p, err = decodePatch(nil)
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())

	_, err = decodePatch([]byte(`[`))
	assert.Error(t, err)
}

func ptr(s string) *string { return &s }
