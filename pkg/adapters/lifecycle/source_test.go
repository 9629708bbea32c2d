package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/quire/pkg/core"
)

func TestSource_Forwards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan core.Event, 3)
	src := NewSource(in, core.EventCreated, core.EventUpdated)
	require.NoError(t, src.Start(ctx))

	in <- core.Event{Type: core.EventSaveStatus, ID: "a"}
	in <- core.Event{Type: core.EventCreated, ID: "b"}
	close(in)

	select {
	case ev := <-src.Events():
		assert.Equal(t, "CREATED b", ev.String())
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}

	select {
	case _, ok := <-src.Events():
		assert.False(t, ok, "output closes with the input")
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for close")
	}
}
