package controller

import (
	"context"
	"sync"

	"github.com/chainguard-dev/clog"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/workqueue"

	"github.com/pollwatch/pollwatch/poll"
)

// Source produces a stream of change events. *poll.Watcher is the usual
// implementation.
type Source interface {
	Run(ctx context.Context) <-chan poll.Event
}

// Options configures a Controller.
type Options struct {
	// Concurrency is the number of concurrent handler workers.
	// Defaults to 1 if not set.
	Concurrency int

	// MaxRetries is how many times a failing event is redelivered before
	// being dropped. Defaults to 10 if not set.
	MaxRetries int

	// Queue is a custom workqueue for the controller.
	// If not provided, a default rate-limiting queue is used.
	Queue workqueue.TypedRateLimitingInterface[types.UID]
}

// Controller connects an event Source to a Handler through a deduplicating,
// rate-limited workqueue.
type Controller struct {
	source      Source
	handler     Handler
	queue       workqueue.TypedRateLimitingInterface[types.UID]
	store       *Store
	concurrency int
	maxRetries  int
}

// New creates a Controller with the given source, handler, and options.
func New(source Source, handler Handler, opts *Options) *Controller {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 10
	}
	if opts.Queue == nil {
		opts.Queue = workqueue.NewTypedRateLimitingQueue(workqueue.DefaultTypedControllerRateLimiter[types.UID]())
	}

	return &Controller{
		source:      source,
		handler:     handler,
		queue:       opts.Queue,
		store:       newStore(),
		concurrency: opts.Concurrency,
		maxRetries:  opts.MaxRetries,
	}
}

// Store exposes the controller's view of the latest event per resource.
func (c *Controller) Store() *Store {
	return c.store
}

// Run starts the source and the workers and blocks until the source's
// stream ends, which happens when ctx is cancelled. Events still queued at
// shutdown are handed to the handler before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	clog.InfoContext(ctx, "starting controller", "concurrency", c.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.runWorker(ctx)
		}()
	}

	for ev := range c.source.Run(ctx) {
		uid := ev.Object.GetUID()
		c.store.put(uid, ev)
		c.queue.Add(uid)
	}

	clog.InfoContext(ctx, "event stream ended, shutting down controller")
	c.queue.ShutDown()
	wg.Wait()
	return nil
}

// runWorker processes items from the queue until it is shut down.
func (c *Controller) runWorker(ctx context.Context) {
	for c.processNextItem(ctx) {
	}
}

// processNextItem handles one item from the queue.
func (c *Controller) processNextItem(ctx context.Context) bool {
	uid, quit := c.queue.Get()
	if quit {
		return false
	}
	defer c.queue.Done(uid)

	ev, ok := c.store.Latest(uid)
	if !ok {
		// Already handled and forgotten; a stale requeue.
		c.queue.Forget(uid)
		return true
	}

	if err := c.handler.HandleEvent(ctx, ev); err != nil {
		c.handleError(ctx, uid, err)
		return true
	}

	if ev.Type == poll.Deleted {
		c.store.forget(uid)
	}
	clog.DebugContext(ctx, "successfully handled event", "uid", uid, "type", ev.Type)
	c.queue.Forget(uid)
	return true
}

// handleError decides whether a failed event is redelivered.
func (c *Controller) handleError(ctx context.Context, uid types.UID, err error) {
	if IsPermanentError(err) {
		clog.ErrorContext(ctx, "permanent error, not retrying", "uid", uid, "error", err)
		c.queue.Forget(uid)
		return
	}

	if duration := GetRequeueDuration(err); duration > 0 {
		clog.DebugContext(ctx, "requeueing after duration", "uid", uid, "duration", duration)
		c.queue.AddAfter(uid, duration)
		return
	}

	if c.queue.NumRequeues(uid) < c.maxRetries {
		clog.ErrorContext(ctx, "error handling event, requeueing", "uid", uid, "error", err)
		c.queue.AddRateLimited(uid)
		return
	}
	clog.ErrorContext(ctx, "max retries exceeded, dropping event", "uid", uid, "error", err)
	c.queue.Forget(uid)
}
