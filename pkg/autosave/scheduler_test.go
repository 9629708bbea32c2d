package autosave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/aretw0/quire/pkg/adapters/memory"
	"github.com/aretw0/quire/pkg/autosave"
	"github.com/aretw0/quire/pkg/core"
)

type call struct {
	id    string
	patch core.Patch
}

// recorder is an Updater that records every write.
type recorder struct {
	mu        sync.Mutex
	calls     []call
	failures  []error
	gate      chan struct{}
	active    int
	maxActive int
}

func (r *recorder) Update(ctx context.Context, id string, p core.Patch) error {
	r.mu.Lock()
	r.active++
	if r.active > r.maxActive {
		r.maxActive = r.active
	}
	r.calls = append(r.calls, call{id: id, patch: p})
	var err error
	if len(r.failures) > 0 {
		err = r.failures[0]
		r.failures = r.failures[1:]
	}
	gate := r.gate
	r.mu.Unlock()

	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return err
}

func (r *recorder) SaveStatus(id string) core.SaveStatus {
	return core.StatusSaved
}

func (r *recorder) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func setup(t *testing.T, opts ...autosave.Option) (*autosave.Scheduler, *recorder, *autosave.FakeClock) {
	t.Helper()
	rec := &recorder{}
	clock := autosave.NewFakeClock(time.Unix(0, 0))
	s := autosave.New(rec, append([]autosave.Option{autosave.WithClock(clock)}, opts...)...)
	return s, rec, clock
}

func TestScheduler_HelloKeystrokes(t *testing.T) {
	s, rec, clock := setup(t)
	s.Open(core.Note{ID: "n1"})

	for _, v := range []string{"H", "He", "Hel", "Hell", "Hello"} {
		s.SetTitle(v)
		clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, rec.Calls(), "nothing is sent while typing")
	assert.Equal(t, core.StatusPending, s.Status())

	clock.Advance(899 * time.Millisecond)
	assert.Empty(t, rec.Calls(), "quiet period restarts on every keystroke")

	clock.Advance(time.Millisecond)
	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "n1", calls[0].id)
	assert.Equal(t, []string{"title"}, calls[0].patch.Fields())
	assert.Equal(t, "Hello", *calls[0].patch.Title)
	assert.Equal(t, core.StatusSaved, s.Status())
	assert.Zero(t, clock.Pending())
}

func TestScheduler_UnionOfFields(t *testing.T) {
	s, rec, clock := setup(t)
	s.Open(core.Note{ID: "n1", Title: "Untitled"})

	s.SetTitle("Plan")
	s.SetContent("<p>one</p>")
	s.SetTitle("Plans")
	clock.Advance(autosave.DefaultQuietPeriod)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"title", "content"}, calls[0].patch.Fields())
	assert.Equal(t, "Plans", *calls[0].patch.Title)
	assert.Equal(t, "<p>one</p>", *calls[0].patch.Content)

	d, ok := s.Draft()
	require.True(t, ok)
	assert.Equal(t, "Plans", d.Title)
}

func TestScheduler_QuietPeriodOption(t *testing.T) {
	s, rec, clock := setup(t, autosave.WithQuietPeriod(250*time.Millisecond))
	s.Open(core.Note{ID: "n1"})

	s.SetContent("x")
	clock.Advance(250 * time.Millisecond)
	assert.Len(t, rec.Calls(), 1)
}

func TestScheduler_CoverAndIconAreImmediate(t *testing.T) {
	s, rec, _ := setup(t)
	s.Open(core.Note{ID: "n1"})
	s.SetTitle("typing")

	cover := "https://example.com/c.png"
	require.NoError(t, s.SetCoverImage(context.Background(), &cover))
	require.NoError(t, s.SetIcon(context.Background(), nil))

	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"coverImage"}, calls[0].patch.Fields())
	assert.Equal(t, core.Some(cover), calls[0].patch.CoverImage)
	assert.Equal(t, core.Null(), calls[1].patch.Icon)
	assert.Equal(t, core.StatusPending, s.Status(), "pending title write is untouched")

	s2, _, _ := setup(t)
	assert.ErrorIs(t, s2.SetIcon(context.Background(), &cover), autosave.ErrNoNote)
}

func TestScheduler_SwitchFlushes(t *testing.T) {
	s, rec, clock := setup(t)
	s.Open(core.Note{ID: "n1"})
	s.SetContent("draft")

	s.Open(core.Note{ID: "n2", Title: "Other"})
	require.NoError(t, s.Close(context.Background()))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "n1", calls[0].id)
	assert.Equal(t, "draft", *calls[0].patch.Content)

	clock.Advance(time.Minute)
	assert.Len(t, rec.Calls(), 1, "the cancelled timer never fires")
}

func TestScheduler_SwitchDiscards(t *testing.T) {
	s, rec, clock := setup(t, autosave.WithDiscardOnSwitch(true))
	s.Open(core.Note{ID: "n1"})
	s.SetContent("lost")

	s.Open(core.Note{ID: "n2"})
	clock.Advance(time.Minute)
	require.NoError(t, s.Close(context.Background()))

	assert.Empty(t, rec.Calls())
}

func TestScheduler_CloseFlushes(t *testing.T) {
	s, rec, _ := setup(t)
	s.Open(core.Note{ID: "n1"})
	s.SetTitle("bye")

	require.NoError(t, s.Close(context.Background()))
	require.Len(t, rec.Calls(), 1)

	_, ok := s.Draft()
	assert.False(t, ok)
	assert.Equal(t, core.StatusIdle, s.Status())
}

func TestScheduler_FailedFieldsAreResent(t *testing.T) {
	s, rec, clock := setup(t)
	rec.failures = []error{errors.New("Failed to update note")}
	s.Open(core.Note{ID: "n1"})

	s.SetTitle("first")
	clock.Advance(time.Second)
	require.Len(t, rec.Calls(), 1)

	clock.Advance(time.Minute)
	assert.Len(t, rec.Calls(), 1, "no automatic retry")

	s.SetContent("second")
	clock.Advance(time.Second)
	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"title", "content"}, calls[1].patch.Fields())
	assert.Equal(t, "first", *calls[1].patch.Title)
}

func TestScheduler_IdleHandlesAreReleased(t *testing.T) {
	ctx := context.Background()

	t.Run("After the write lands", func(t *testing.T) {
		s, rec, clock := setup(t)
		s.Open(core.Note{ID: "n1"})
		s.SetTitle("saved")
		assert.Equal(t, 1, s.Handles())

		clock.Advance(time.Second)
		require.Len(t, rec.Calls(), 1)
		assert.Equal(t, 0, s.Handles())

		_, open := s.Draft()
		assert.True(t, open, "the note stays open")
		s.SetContent("more")
		assert.Equal(t, 1, s.Handles())
		require.NoError(t, s.Flush(ctx))
		assert.Equal(t, 0, s.Handles())
	})

	t.Run("Across many notes", func(t *testing.T) {
		s, rec, _ := setup(t)
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			s.Open(core.Note{ID: id})
			s.SetContent("text of " + id)
		}
		require.NoError(t, s.Close(ctx))
		assert.Len(t, rec.Calls(), 5)
		assert.Equal(t, 0, s.Handles())
	})

	t.Run("Discarded on switch", func(t *testing.T) {
		s, _, _ := setup(t, autosave.WithDiscardOnSwitch(true))
		s.Open(core.Note{ID: "n1"})
		s.SetContent("lost")
		s.Open(core.Note{ID: "n2"})
		assert.Equal(t, 0, s.Handles())
	})

	t.Run("Kept while fields are unsaved", func(t *testing.T) {
		s, rec, clock := setup(t)
		rec.failures = []error{errors.New("Failed to update note")}
		s.Open(core.Note{ID: "n1"})
		s.SetTitle("retry me")
		clock.Advance(time.Second)
		assert.Equal(t, 1, s.Handles())

		require.NoError(t, s.Flush(ctx))
		assert.Equal(t, 0, s.Handles())
		require.Len(t, rec.Calls(), 2)
		assert.Equal(t, "retry me", *rec.Calls()[1].patch.Title)
	})
}

func TestScheduler_RefreshKeepsDirtyFields(t *testing.T) {
	s, _, _ := setup(t)
	s.Open(core.Note{ID: "n1", Title: "Old", Content: "old body"})
	s.SetTitle("Typing")

	icon := "📝"
	s.Refresh(core.Note{ID: "n1", Title: "Server", Content: "server body", Icon: &icon})
	s.Refresh(core.Note{ID: "other", Title: "ignored"})

	d, _ := s.Draft()
	assert.Equal(t, "Typing", d.Title)
	assert.Equal(t, "server body", d.Content)
	require.NotNil(t, d.Icon)
	assert.Equal(t, icon, *d.Icon)
}

func TestScheduler_WritesAreSerialized(t *testing.T) {
	s, rec, clock := setup(t)
	gate := make(chan struct{})
	rec.gate = gate
	s.Open(core.Note{ID: "n1"})

	s.SetTitle("a")
	go clock.Advance(time.Second)
	require.Eventually(t, func() bool { return len(rec.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	// A server copy arriving mid-flight must not clobber what is being sent
	// nor what was typed since.
	s.SetContent("typed meanwhile")
	s.Refresh(core.Note{ID: "n1", Title: "stale", Content: "stale"})
	d, _ := s.Draft()
	assert.Equal(t, "a", d.Title)
	assert.Equal(t, "typed meanwhile", d.Content)

	flushed := make(chan error, 1)
	go func() { flushed <- s.Flush(context.Background()) }()
	assert.Never(t, func() bool { return len(rec.Calls()) == 2 }, 50*time.Millisecond, 5*time.Millisecond)

	close(gate)
	require.NoError(t, <-flushed)

	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"content"}, calls[1].patch.Fields())
	rec.mu.Lock()
	assert.Equal(t, 1, rec.maxActive)
	rec.mu.Unlock()
}

func TestScheduler_ReopenKeepsUnsavedValues(t *testing.T) {
	s, rec, clock := setup(t)
	rec.failures = []error{errors.New("offline"), errors.New("offline")}
	s.Open(core.Note{ID: "n1", Title: "Server"})
	s.SetTitle("Unsaved")
	clock.Advance(time.Second)

	s.Open(core.Note{ID: "n2"})
	require.NoError(t, s.Close(context.Background()))

	s.Open(core.Note{ID: "n1", Title: "Server"})
	d, _ := s.Draft()
	assert.Equal(t, "Unsaved", d.Title)
}

func TestScheduler_WithEngine(t *testing.T) {
	store := memory.New()
	engine := core.NewEngine(store, core.StaticSession("alice"))
	clock := autosave.NewFakeClock(time.Unix(0, 0))
	s := autosave.New(engine, autosave.WithClock(clock))
	ctx := context.Background()

	note, err := engine.Create(ctx, core.Patch{})
	require.NoError(t, err)
	s.Open(note)

	s.SetContent("<p>saved</p>")
	clock.Advance(time.Second)

	stored, err := store.Get(ctx, "alice", note.ID)
	require.NoError(t, err)
	assert.Equal(t, "<p>saved</p>", stored.Content)
	assert.Equal(t, core.StatusSaved, s.Status())

	store.FailNext(core.OpUpdate, core.NewRemoteError(core.OpUpdate, 500, ""))
	s.SetContent("<p>lost</p>")
	clock.Advance(time.Second)
	assert.Equal(t, core.StatusFailed("Failed to update note"), s.Status())
}

func TestScheduler_State(t *testing.T) {
	s, _, _ := setup(t)
	s.Open(core.Note{ID: "n1"})
	s.SetTitle("x")

	st, ok := s.State().(autosave.SchedulerState)
	require.True(t, ok)
	assert.Equal(t, "n1", st.Open)
	assert.Equal(t, []string{"n1"}, st.Scheduled)
	assert.Equal(t, "1s", st.QuietPeriod)
	assert.Equal(t, "autosave", s.ComponentType())
}

// TestScheduler_BurstsCoalesce checks that every burst of edits separated
// by less than the quiet period produces exactly one write carrying the last
// value of each edited field.
func TestScheduler_BurstsCoalesce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec := &recorder{}
		clock := autosave.NewFakeClock(time.Unix(0, 0))
		quiet := time.Second
		s := autosave.New(rec, autosave.WithClock(clock), autosave.WithQuietPeriod(quiet))
		s.Open(core.Note{ID: "n"})

		var want []map[string]string
		burst := map[string]string{}

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			field := rapid.SampledFrom([]string{"title", "content"}).Draw(t, "field")
			value := rapid.StringMatching(`[a-z]{1,5}`).Draw(t, "value")
			if field == "title" {
				s.SetTitle(value)
			} else {
				s.SetContent(value)
			}
			burst[field] = value

			gap := time.Duration(rapid.IntRange(0, 2000).Draw(t, "gapMs")) * time.Millisecond
			clock.Advance(gap)
			if gap >= quiet {
				want = append(want, burst)
				burst = map[string]string{}
			}
		}
		clock.Advance(quiet)
		if len(burst) > 0 {
			want = append(want, burst)
		}

		calls := rec.Calls()
		if len(calls) != len(want) {
			t.Fatalf("got %d writes, want %d", len(calls), len(want))
		}
		for i, c := range calls {
			got := map[string]string{}
			if c.patch.Title != nil {
				got["title"] = *c.patch.Title
			}
			if c.patch.Content != nil {
				got["content"] = *c.patch.Content
			}
			assert.Equal(t, want[i], got)
		}
	})
}
