package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/quire"
	eventsource "github.com/aretw0/quire/pkg/adapters/lifecycle"
	"github.com/aretw0/quire/pkg/core"
)

// printEvents writes engine events to w until ctx is done. The returned
// function waits for the printer to drain.
func printEvents(ctx context.Context, w io.Writer, app *quire.App, types ...core.EventType) (wait func(), err error) {
	src := eventsource.NewSource(app.Engine().Watch(ctx), types...)
	if err := src.Start(ctx); err != nil {
		return nil, fmt.Errorf("start event source: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer wg.Done()
		for ev := range src.Events() {
			e, ok := ev.(core.Event)
			if !ok {
				continue
			}
			if e.Type == core.EventSaveStatus {
				fmt.Fprintf(w, "%s %s\n", e, app.Engine().SaveStatus(e.ID))
				continue
			}
			fmt.Fprintln(w, e)
		}
		return nil
	})
	return wg.Wait, nil
}
