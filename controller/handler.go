package controller

import (
	"context"

	"github.com/pollwatch/pollwatch/poll"
)

// Handler reacts to one synthesized change event. Implementations decide
// what the event means; the controller only guarantees delivery order and
// retry semantics.
//
// For Deleted events the object is the resource's last-known state, not a
// live one: fetching it again will fail, so anything the handler needs must
// come from the event payload.
type Handler interface {
	HandleEvent(ctx context.Context, ev poll.Event) error
}

// HandlerFunc is an adapter to allow ordinary functions to be used as
// Handlers. If f is a function with the appropriate signature,
// HandlerFunc(f) is a Handler that calls f.
type HandlerFunc func(ctx context.Context, ev poll.Event) error

// HandleEvent calls f(ctx, ev).
func (f HandlerFunc) HandleEvent(ctx context.Context, ev poll.Event) error {
	return f(ctx, ev)
}
