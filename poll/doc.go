// Package poll synthesizes a watch-style event stream from a resource
// collection that only supports listing its full current state.
//
// Some API surfaces (aggregated APIs, proxies, external-data CRDs) expose
// only "list everything" semantics with no reliable native change feed. A
// Watcher polls such a collection on a fixed interval, diffs each snapshot
// against the previously observed state, and emits a discrete Event for
// every resource that was added, modified, or deleted since the last
// successful poll.
//
// # Basic Usage
//
//	lister, _ := client.New(gvr, config, nil)
//	w := poll.New(lister, 30*time.Second)
//
//	for ev := range w.Run(ctx) {
//	    log.Printf("%s %s", ev.Type, ev.Object.GetName())
//	}
//
// Identity is the resource's UID; change detection is pure equality of
// metadata.resourceVersion. The first successful poll reports every resource
// as Added. Within one poll cycle, all Deleted events are emitted before any
// Added or Modified events, so a consumer always sees a removal before the
// re-addition of a replacement created in the same cycle.
//
// The stream is pull-driven: the Watcher blocks until the consumer receives
// each event, so a slow consumer stalls the poll loop rather than growing an
// unbounded buffer. A failed list is logged and skipped; it never ends the
// stream. Cancelling the context passed to Run is the only way to end it.
package poll
