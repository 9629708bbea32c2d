package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire"
	"github.com/aretw0/quire/pkg/adapters/memory"
	"github.com/aretw0/quire/pkg/core"
)

func newToolset(t *testing.T) (*toolset, *memory.Store) {
	t.Helper()
	store := memory.New()
	app, err := quire.New(quire.WithStore(store), quire.WithSession(core.StaticSession("alice")))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() { _ = app.Stop(context.Background()) })
	return &toolset{app: app}, store
}

func TestTools(t *testing.T) {
	ctx := context.Background()
	tools, store := newToolset(t)

	_, created, err := tools.create(ctx, nil, CreateInput{Content: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, "Untitled", created.Title)
	assert.NotEmpty(t, created.CreatedAt)

	title, icon := "Meeting notes", "📝"
	_, updated, err := tools.update(ctx, nil, UpdateInput{ID: created.ID, Title: &title, Icon: &icon})
	require.NoError(t, err)
	assert.Equal(t, "Meeting notes", updated.Title)
	assert.Equal(t, "📝", updated.Icon)
	assert.Equal(t, "<p>hi</p>", updated.Content)

	_, _, err = tools.update(ctx, nil, UpdateInput{ID: created.ID})
	assert.Error(t, err, "empty update is rejected")
	_, _, err = tools.update(ctx, nil, UpdateInput{ID: created.ID, Icon: &icon, ClearIcon: true})
	assert.Error(t, err)

	_, updated, err = tools.update(ctx, nil, UpdateInput{ID: created.ID, ClearIcon: true})
	require.NoError(t, err)
	assert.Empty(t, updated.Icon)

	_, list, err := tools.list(ctx, nil, ListInput{Match: "meet*"})
	require.NoError(t, err)
	require.Len(t, list.Notes, 1)
	assert.Empty(t, list.Notes[0].Content, "list omits content")

	_, got, err := tools.get(ctx, nil, IDInput{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", got.Content)

	res, _, err := tools.get(ctx, nil, IDInput{ID: "missing"})
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)

	_, out, err := tools.trash(ctx, nil, IDInput{ID: created.ID})
	require.NoError(t, err)
	assert.True(t, out.Success)
	_, list, err = tools.list(ctx, nil, ListInput{Trash: true})
	require.NoError(t, err)
	assert.Len(t, list.Notes, 1)

	_, _, err = tools.restore(ctx, nil, IDInput{ID: created.ID})
	require.NoError(t, err)

	_, _, err = tools.purge(ctx, nil, PurgeInput{ID: created.ID})
	assert.Error(t, err, "purge needs confirmation")
	assert.Equal(t, 1, store.Len())

	_, out, err = tools.purge(ctx, nil, PurgeInput{ID: created.ID, Confirm: "yes"})
	require.NoError(t, err)
	assert.Equal(t, "Note permanently deleted", out.Message)
	assert.Equal(t, 0, store.Len())
}
