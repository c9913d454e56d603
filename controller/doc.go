// Package controller dispatches the events synthesized by a poll.Watcher to
// a user-supplied handler, decoupling handling from the poll loop.
//
// The Controller drains the watcher's stream as it arrives, records the
// latest event per resource UID in a queryable store, and enqueues the UID
// on a rate-limited workqueue. Worker goroutines pop UIDs, look up the
// latest event, and call the handler. Because the queue deduplicates, a
// resource that changes several times while its handler is backed up is
// handled once, with the newest state.
//
// # Basic Usage
//
//	lister, _ := client.New(gvr, config, nil)
//	c := controller.New(poll.New(lister, 30*time.Second),
//	    controller.HandlerFunc(func(ctx context.Context, ev poll.Event) error {
//	        log.Printf("%s %s", ev.Type, ev.Object.GetName())
//	        return nil
//	    }), nil)
//
//	c.Run(ctx)
//
// # Error Handling
//
// Handler errors control requeue behavior:
//
//	return controller.RequeueAfter(5 * time.Second) // retry after delay
//	return controller.PermanentError(err)           // don't retry
//
// Any other error is retried with rate-limited backoff up to a maximum
// retry count, after which the event is dropped.
package controller
