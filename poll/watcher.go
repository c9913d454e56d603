package poll

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
)

// defaultInterval is used when New is given a non-positive interval.
const defaultInterval = 30 * time.Second

// Watcher converts periodic full-snapshot listing into a stream of Events.
//
// The tracked state (one entry per UID, holding the last-observed
// resourceVersion and payload) is owned exclusively by the poll loop; it
// always reflects exactly the last list that succeeded and is never left
// partially updated by a failed one.
type Watcher struct {
	lister   Lister
	interval time.Duration

	// entries is keyed by UID; order holds the same UIDs in insertion
	// order. Go map iteration is randomized, so the explicit slice is what
	// makes deletion emission order reproducible across runs.
	entries map[types.UID]*entry
	order   []types.UID
}

type entry struct {
	resourceVersion string
	obj             *unstructured.Unstructured
}

// New creates a Watcher that polls lister every interval. Non-positive
// intervals fall back to 30 seconds.
func New(lister Lister, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Watcher{
		lister:   lister,
		interval: interval,
		entries:  map[types.UID]*entry{},
	}
}

// Run starts the poll loop and returns the event stream. The stream has no
// natural end: it produces events until ctx is cancelled, at which point the
// channel is closed. Run must be called at most once per Watcher; a new
// stream requires a new Watcher.
//
// The returned channel is unbuffered. The loop does not advance past an
// event until the consumer receives it.
func (w *Watcher) Run(ctx context.Context) <-chan Event {
	ch := make(chan Event)
	go func() {
		defer close(ch)
		for {
			if !w.cycle(ctx, ch) {
				return
			}
			select {
			case <-time.After(w.interval):
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// cycle runs one fetch+diff+emit pass. It returns false only when ctx was
// cancelled while emitting; fetch failures are logged and absorbed.
func (w *Watcher) cycle(ctx context.Context, ch chan<- Event) bool {
	objs, err := w.lister.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		clog.WarnContext(ctx, "listing resources failed, skipping cycle", "error", err)
		return true
	}

	snapshot := make(map[types.UID]bool, len(objs))
	for _, obj := range objs {
		snapshot[obj.GetUID()] = true
	}

	// Deletions first. Consumers may rely on seeing a removal before the
	// re-addition of a replacement created within the same cycle.
	kept := make([]types.UID, 0, len(w.order))
	for _, uid := range w.order {
		if snapshot[uid] {
			kept = append(kept, uid)
			continue
		}
		e := w.entries[uid]
		delete(w.entries, uid)
		clog.InfoContext(ctx, "resource deleted", "resource", locator(e.obj), "uid", uid)
		if !w.emit(ctx, ch, Event{Type: Deleted, Object: e.obj}) {
			return false
		}
	}
	w.order = kept

	for _, obj := range objs {
		uid := obj.GetUID()
		rv := obj.GetResourceVersion()
		e, tracked := w.entries[uid]
		switch {
		case !tracked:
			w.entries[uid] = &entry{resourceVersion: rv, obj: obj}
			w.order = append(w.order, uid)
			clog.InfoContext(ctx, "resource added", "resource", locator(obj), "uid", uid)
			if !w.emit(ctx, ch, Event{Type: Added, Object: obj}) {
				return false
			}
		case e.resourceVersion != rv:
			e.resourceVersion = rv
			e.obj = obj
			clog.InfoContext(ctx, "resource modified", "resource", locator(obj), "uid", uid)
			if !w.emit(ctx, ch, Event{Type: Modified, Object: obj}) {
				return false
			}
		default:
			clog.DebugContext(ctx, "resource unchanged", "resource", locator(obj), "uid", uid)
		}
	}
	return true
}

func (w *Watcher) emit(ctx context.Context, ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// locator renders the namespace/name key used in log lines.
func locator(obj *unstructured.Unstructured) string {
	if ns := obj.GetNamespace(); ns != "" {
		return ns + "/" + obj.GetName()
	}
	return obj.GetName()
}
