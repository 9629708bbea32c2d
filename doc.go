// Package quire is the Composition Root for the Quire note client.
//
// It connects the synchronization engine and the autosave scheduler (Domain
// Layer) with the remote note store and the session provider (Adapters)
// using the Hexagonal Architecture pattern.
//
// Philosophy:
//
// The engine is the single source of truth for the notes of a session. The
// presentation layer only issues intents and re-renders on events; edits
// typed in an editor are applied locally at once and written back in the
// background, coalesced by a quiet period.
//
// Features:
//
//   - **Optimistic editing**: drafts change synchronously, writes are debounced per note.
//   - **Reconciliation**: the full note returned by the store replaces the local copy.
//   - **Soft delete**: notes move to the trash and back; purge removes them for good.
//   - **Durable session**: the credential survives restarts and is shared across processes.
//   - **Extensible**: any backend implementing `core.Store` can be injected.
//
// Usage:
//
//	app, err := quire.New(
//		quire.WithEndpoint("https://notes.example.com/api"),
//		quire.WithLogger(logger),
//	)
//	if err := app.Start(ctx); err != nil { ... }
//	defer app.Stop(ctx)
//
//	draft, err := app.OpenNote(ctx, id)
//	app.Scheduler().SetTitle("Meeting notes")
package quire
