package service

import (
	"context"

	"github.com/iliyamo/studyroom-seat-reservation/internal/queue"
)

type queueEvent = queue.Event

// Notifier receives a change event after the write that caused it has
// committed.  Implementations must not block for long and own their error
// handling.
type Notifier interface {
	Notify(ctx context.Context, ev queue.Event)
}

// Fanout delivers each event to every notifier in order.  Nil entries are
// skipped.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev queue.Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev queue.Event)

func (f NotifierFunc) Notify(ctx context.Context, ev queue.Event) { f(ctx, ev) }
