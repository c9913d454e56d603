package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"

	"github.com/pollwatch/pollwatch/poll"
)

func event(typ poll.EventType, name, uid, rv string) poll.Event {
	u := &unstructured.Unstructured{}
	u.SetAPIVersion("example.com/v1")
	u.SetKind("Widget")
	u.SetNamespace("default")
	u.SetName(name)
	u.SetUID(types.UID(uid))
	u.SetResourceVersion(rv)
	return poll.Event{Type: typ, Object: u}
}

// fakeSource replays a fixed slice of events, then idles until cancelled.
type fakeSource struct {
	events []poll.Event
}

func (s *fakeSource) Run(ctx context.Context) <-chan poll.Event {
	ch := make(chan poll.Event)
	go func() {
		defer close(ch)
		for _, ev := range s.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch
}

// recordingHandler records handled events and can fail a configurable
// number of times per UID.
type recordingHandler struct {
	mu       sync.Mutex
	handled  []poll.Event
	failures map[types.UID]int
	failWith func() error
}

func (h *recordingHandler) HandleEvent(_ context.Context, ev poll.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	uid := ev.Object.GetUID()
	if h.failures[uid] > 0 {
		h.failures[uid]--
		if h.failWith != nil {
			return h.failWith()
		}
		return errors.New("handler failed")
	}
	h.handled = append(h.handled, ev)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

func (h *recordingHandler) last() poll.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handled[len(h.handled)-1]
}

// runController runs c until check succeeds or the test times out, then
// shuts it down.
func runController(t *testing.T, c *Controller, check func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !check() {
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestDispatchesEvents(t *testing.T) {
	h := &recordingHandler{}
	src := &fakeSource{events: []poll.Event{
		event(poll.Added, "a", "uid-a", "1"),
		event(poll.Added, "b", "uid-b", "1"),
		event(poll.Modified, "a", "uid-a", "2"),
	}}
	c := New(src, h, nil)

	runController(t, c, func() bool { return h.count() >= 3 })

	ev, ok := c.Store().Latest("uid-a")
	if !ok {
		t.Fatal("uid-a not in store")
	}
	if ev.Type != poll.Modified || ev.Object.GetResourceVersion() != "2" {
		t.Errorf("store holds stale event: %s rv=%s", ev.Type, ev.Object.GetResourceVersion())
	}
	if got := len(c.Store().List()); got != 2 {
		t.Errorf("expected 2 tracked resources, got %d", got)
	}
}

func TestRetriesFailedEvents(t *testing.T) {
	h := &recordingHandler{failures: map[types.UID]int{"uid-a": 2}}
	src := &fakeSource{events: []poll.Event{
		event(poll.Added, "a", "uid-a", "1"),
	}}
	c := New(src, h, nil)

	runController(t, c, func() bool { return h.count() >= 1 })

	if h.last().Object.GetUID() != "uid-a" {
		t.Errorf("expected uid-a handled after retries, got %s", h.last().Object.GetUID())
	}
}

func TestPermanentErrorNotRetried(t *testing.T) {
	h := &recordingHandler{
		failures: map[types.UID]int{"uid-a": 1000},
		failWith: func() error { return PermanentError(errors.New("broken")) },
	}
	src := &fakeSource{events: []poll.Event{
		event(poll.Added, "a", "uid-a", "1"),
		event(poll.Added, "b", "uid-b", "1"),
	}}
	c := New(src, h, nil)

	// uid-b succeeding proves the queue moved on past uid-a.
	runController(t, c, func() bool { return h.count() >= 1 })

	if h.last().Object.GetUID() != "uid-b" {
		t.Errorf("expected only uid-b handled, got %s", h.last().Object.GetUID())
	}
	h.mu.Lock()
	remaining := h.failures["uid-a"]
	h.mu.Unlock()
	if 1000-remaining != 1 {
		t.Errorf("expected exactly 1 attempt for uid-a, got %d", 1000-remaining)
	}
}

func TestRequeueAfterRedelivers(t *testing.T) {
	h := &recordingHandler{
		failures: map[types.UID]int{"uid-a": 1},
		failWith: func() error { return RequeueAfter(time.Millisecond) },
	}
	src := &fakeSource{events: []poll.Event{
		event(poll.Added, "a", "uid-a", "1"),
	}}
	c := New(src, h, nil)

	runController(t, c, func() bool { return h.count() >= 1 })

	if h.last().Object.GetUID() != "uid-a" {
		t.Errorf("expected uid-a redelivered, got %s", h.last().Object.GetUID())
	}
}

func TestDeletedEventsLeaveTheStore(t *testing.T) {
	h := &recordingHandler{}
	src := &fakeSource{events: []poll.Event{
		event(poll.Added, "a", "uid-a", "1"),
		event(poll.Deleted, "a", "uid-a", "1"),
	}}
	c := New(src, h, nil)

	runController(t, c, func() bool {
		_, ok := c.Store().Latest("uid-a")
		return h.count() >= 2 && !ok
	})

	if got := len(c.Store().List()); got != 0 {
		t.Errorf("expected empty store after deletion, got %d entries", got)
	}
}

// TestCoalescesWhileBackedUp checks that a resource changing while its
// handler is busy is redelivered with the newest state, not every
// intermediate one.
func TestCoalescesWhileBackedUp(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var handled []poll.Event

	h := HandlerFunc(func(_ context.Context, ev poll.Event) error {
		<-gate
		mu.Lock()
		handled = append(handled, ev)
		mu.Unlock()
		return nil
	})
	src := &fakeSource{events: []poll.Event{
		event(poll.Added, "a", "uid-a", "1"),
		event(poll.Modified, "a", "uid-a", "2"),
		event(poll.Modified, "a", "uid-a", "3"),
	}}
	c := New(src, h, nil)

	go func() {
		// Hold the first delivery until all three events are queued.
		for {
			if ev, ok := c.Store().Latest("uid-a"); ok && ev.Object.GetResourceVersion() == "3" {
				close(gate)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	runController(t, c, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) > 0 && handled[len(handled)-1].Object.GetResourceVersion() == "3"
	})

	mu.Lock()
	defer mu.Unlock()
	if len(handled) > 2 {
		t.Errorf("expected coalesced delivery (at most 2 handlings), got %d", len(handled))
	}
}
