// Package lifecycle exposes engine events as a lifecycle.Source, so they can
// be consumed next to the other event sources of an application.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/quire/pkg/core"
)

type engineSource struct {
	events <-chan core.Event
	types  map[core.EventType]bool
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that re-emits engine events. When
// types are given only those kinds are forwarded.
func NewSource(events <-chan core.Event, types ...core.EventType) lifecycle.Source {
	s := &engineSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	if len(types) > 0 {
		s.types = make(map[core.EventType]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}
	return s
}

func (s *engineSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *engineSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if s.types != nil && !s.types[e.Type] {
					continue
				}
				// core.Event satisfies lifecycle.Event through String.
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
