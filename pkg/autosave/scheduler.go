// Package autosave coalesces editor keystrokes into infrequent note writes.
//
// A Scheduler keeps one draft (the note open in the editor) and, per note,
// one debounce handle. Every text edit replaces the pending timer; when the
// quiet period elapses the fields changed since the last confirmed save are
// sent together.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/quire/pkg/core"
)

// DefaultQuietPeriod is the idle time after the last edit before a write.
const DefaultQuietPeriod = time.Second

// ErrNoNote is returned by immediate edits when no note is open.
var ErrNoNote = errors.New("no note open")

// Updater is the write side the scheduler drives. *core.Engine implements it.
type Updater interface {
	Update(ctx context.Context, id string, p core.Patch) error
	SaveStatus(id string) core.SaveStatus
}

// Draft holds the values displayed by the editor.
type Draft struct {
	ID         string
	Title      string
	Content    string
	CoverImage *string
	Icon       *string
}

func draftOf(n core.Note) Draft {
	n = n.Clone()
	return Draft{
		ID:         n.ID,
		Title:      n.Title,
		Content:    n.Content,
		CoverImage: n.CoverImage,
		Icon:       n.Icon,
	}
}

func (d Draft) apply(p core.Patch) Draft {
	n := p.Apply(core.Note{
		ID:         d.ID,
		Title:      d.Title,
		Content:    d.Content,
		CoverImage: d.CoverImage,
		Icon:       d.Icon,
	})
	return draftOf(n)
}

// handle is the per-note debounce state.
// dirty holds fields changed since the last confirmed save; sending holds
// the fields of the write in flight. inflight counts writes started or
// waiting on write; a handle is dropped once it is idle.
type handle struct {
	id       string
	dirty    core.Patch
	sending  core.Patch
	timer    Timer
	seq      uint64
	inflight int

	write sync.Mutex
}

func (h *handle) idle() bool {
	return h.inflight == 0 && h.timer == nil && h.dirty.IsEmpty() && h.sending.IsEmpty()
}

func (h *handle) isDirty(field string) bool {
	for _, p := range []core.Patch{h.dirty, h.sending} {
		for _, f := range p.Fields() {
			if f == field {
				return true
			}
		}
	}
	return false
}

// Scheduler debounces edits of the open note into Updater calls.
type Scheduler struct {
	updater         Updater
	clock           Clock
	quiet           time.Duration
	discardOnSwitch bool
	logger          *slog.Logger
	base            context.Context

	mu      sync.Mutex
	draft   *Draft
	handles map[string]*handle

	wg sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithQuietPeriod sets the debounce interval. Non-positive values are ignored.
func WithQuietPeriod(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.quiet = d
		}
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDiscardOnSwitch abandons a pending write when another note is opened
// or the editor is closed, instead of flushing it.
func WithDiscardOnSwitch(discard bool) Option {
	return func(s *Scheduler) {
		s.discardOnSwitch = discard
	}
}

// WithContext sets the context of background writes. Navigation never
// cancels a write in flight; cancelling this context does.
func WithContext(ctx context.Context) Option {
	return func(s *Scheduler) {
		if ctx != nil {
			s.base = ctx
		}
	}
}

// New creates a Scheduler writing through u.
func New(u Updater, opts ...Option) *Scheduler {
	s := &Scheduler{
		updater: u,
		clock:   realClock{},
		quiet:   DefaultQuietPeriod,
		logger:  slog.New(slog.DiscardHandler),
		base:    context.Background(),
		handles: make(map[string]*handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open puts n in the editor. Opening another note first leaves the current
// one (see WithDiscardOnSwitch). Unsaved values of n from an earlier visit
// are kept over the given copy.
func (s *Scheduler) Open(n core.Note) {
	s.mu.Lock()
	var flush *handle
	if s.draft != nil && s.draft.ID != n.ID {
		flush = s.leaveLocked()
	}
	if s.draft == nil {
		d := draftOf(n)
		if h, ok := s.handles[n.ID]; ok {
			d = d.apply(h.sending).apply(h.dirty)
		}
		s.draft = &d
	} else {
		s.mergeLocked(n)
	}
	s.mu.Unlock()

	s.background(flush)
}

// Refresh merges a server copy of the open note into the draft. Fields with
// unsaved or in-flight edits keep their local value.
func (s *Scheduler) Refresh(n core.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil || s.draft.ID != n.ID {
		return
	}
	s.mergeLocked(n)
}

func (s *Scheduler) mergeLocked(n core.Note) {
	h := s.handles[n.ID]
	dirty := func(field string) bool { return h != nil && h.isDirty(field) }

	n = n.Clone()
	if !dirty("title") {
		s.draft.Title = n.Title
	}
	if !dirty("content") {
		s.draft.Content = n.Content
	}
	if !dirty("coverImage") {
		s.draft.CoverImage = n.CoverImage
	}
	if !dirty("icon") {
		s.draft.Icon = n.Icon
	}
}

// SetTitle edits the title of the open note and restarts the quiet period.
func (s *Scheduler) SetTitle(v string) {
	s.edit(core.Title(v))
}

// SetContent edits the content of the open note and restarts the quiet period.
func (s *Scheduler) SetContent(v string) {
	s.edit(core.Content(v))
}

func (s *Scheduler) edit(p core.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return
	}
	*s.draft = s.draft.apply(p)
	h := s.handleLocked(s.draft.ID)
	h.dirty = h.dirty.Merge(p)
	s.armLocked(h)
}

// SetCoverImage sets (nil clears) the cover of the open note and writes it
// immediately, without waiting for the quiet period.
func (s *Scheduler) SetCoverImage(ctx context.Context, v *string) error {
	return s.immediate(ctx, core.Patch{CoverImage: nullable(v)})
}

// SetIcon sets (nil clears) the icon of the open note and writes it
// immediately.
func (s *Scheduler) SetIcon(ctx context.Context, v *string) error {
	return s.immediate(ctx, core.Patch{Icon: nullable(v)})
}

func nullable(v *string) *core.NullString {
	if v == nil {
		return core.Null()
	}
	return core.Some(*v)
}

func (s *Scheduler) immediate(ctx context.Context, p core.Patch) error {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return ErrNoNote
	}
	*s.draft = s.draft.apply(p)
	h := s.handleLocked(s.draft.ID)
	h.inflight++
	s.mu.Unlock()

	return s.deliver(ctx, h, func() core.Patch { return p })
}

// Flush sends the pending write of the open note now and waits for it.
// Fields left dirty by a failed write are sent too.
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return nil
	}
	h, ok := s.handles[s.draft.ID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.stopLocked(h)
	h.inflight++
	s.mu.Unlock()

	return s.send(ctx, h)
}

// Close leaves the open note, flushing (or discarding) its pending write,
// and waits for background writes to finish.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	var h *handle
	if s.draft != nil {
		h = s.leaveLocked()
	}
	s.mu.Unlock()

	var err error
	if h != nil {
		err = s.send(ctx, h)
	}
	s.wg.Wait()
	return err
}

// Draft returns the values displayed for the open note.
func (s *Scheduler) Draft() (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return Draft{}, false
	}
	d := *s.draft
	d.CoverImage = cloneString(d.CoverImage)
	d.Icon = cloneString(d.Icon)
	return d, true
}

// Status reports the save status of the open note.
func (s *Scheduler) Status() core.SaveStatus {
	s.mu.Lock()
	if s.draft == nil {
		s.mu.Unlock()
		return core.StatusIdle
	}
	id := s.draft.ID
	s.mu.Unlock()
	return s.StatusOf(id)
}

// StatusOf reports Pending while a write of id is scheduled, otherwise the
// outcome recorded by the updater.
func (s *Scheduler) StatusOf(id string) core.SaveStatus {
	s.mu.Lock()
	h, ok := s.handles[id]
	armed := ok && h.timer != nil
	s.mu.Unlock()
	if armed {
		return core.StatusPending
	}
	return s.updater.SaveStatus(id)
}

func (s *Scheduler) handleLocked(id string) *handle {
	h, ok := s.handles[id]
	if !ok {
		h = &handle{id: id}
		s.handles[id] = h
	}
	return h
}

func (s *Scheduler) armLocked(h *handle) {
	s.stopLocked(h)
	seq := h.seq
	h.timer = s.clock.AfterFunc(s.quiet, func() { s.fire(h, seq) })
	s.logger.Debug("autosave scheduled", "id", h.id, "fields", h.dirty.Fields(), "in", s.quiet)
}

// stopLocked cancels the pending timer of h. A timer callback that already
// started sees the bumped sequence and does nothing.
func (s *Scheduler) stopLocked(h *handle) bool {
	h.seq++
	if h.timer == nil {
		return false
	}
	h.timer.Stop()
	h.timer = nil
	return true
}

// leaveLocked detaches the draft and returns the handle to flush, if any.
// The returned handle counts as in flight until its write is delivered.
func (s *Scheduler) leaveLocked() *handle {
	h := s.handles[s.draft.ID]
	s.draft = nil
	if h == nil {
		return nil
	}
	armed := s.stopLocked(h)
	if s.discardOnSwitch {
		if armed {
			s.logger.Debug("pending autosave discarded", "id", h.id, "fields", h.dirty.Fields())
		}
		h.dirty = core.Patch{}
		s.releaseLocked(h)
		return nil
	}
	if h.dirty.IsEmpty() {
		s.releaseLocked(h)
		return nil
	}
	h.inflight++
	return h
}

// releaseLocked forgets h once nothing is pending or being written.
func (s *Scheduler) releaseLocked(h *handle) {
	if h.idle() && s.handles[h.id] == h {
		delete(s.handles, h.id)
	}
}

func (s *Scheduler) fire(h *handle, seq uint64) {
	s.mu.Lock()
	if h.seq != seq {
		s.mu.Unlock()
		return
	}
	h.timer = nil
	h.inflight++
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	_ = s.send(s.base, h)
}

func (s *Scheduler) background(h *handle) {
	if h == nil {
		return
	}
	s.wg.Add(1)
	lifecycle.Go(s.base, func(ctx context.Context) error {
		defer s.wg.Done()
		_ = s.send(ctx, h)
		return nil
	})
}

// send writes every dirty field of h.
func (s *Scheduler) send(ctx context.Context, h *handle) error {
	return s.deliver(ctx, h, func() core.Patch {
		p := h.dirty
		h.dirty = core.Patch{}
		return p
	})
}

// deliver runs one write of h, reserved by the caller through inflight.
// Writes of a note never overlap; take picks the patch under the scheduler
// lock once the previous write is done. Failed fields go back to dirty,
// below any newer edit.
func (s *Scheduler) deliver(ctx context.Context, h *handle, take func() core.Patch) error {
	defer func() {
		s.mu.Lock()
		h.inflight--
		s.releaseLocked(h)
		s.mu.Unlock()
	}()
	h.write.Lock()
	defer h.write.Unlock()

	s.mu.Lock()
	p := take()
	h.sending = p
	s.mu.Unlock()
	if p.IsEmpty() {
		return nil
	}

	err := s.updater.Update(ctx, h.id, p)

	s.mu.Lock()
	h.sending = core.Patch{}
	if err != nil {
		h.dirty = p.Merge(h.dirty)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("autosave failed", "id", h.id, "fields", p.Fields(), "error", err)
		return err
	}
	s.logger.Debug("autosave done", "id", h.id, "fields", p.Fields())
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
