package poll

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Lister fetches the full current state of the polled collection.
//
// Each returned object must carry metadata.uid and metadata.resourceVersion.
// The slice's order determines the order of Added and Modified events within
// a cycle. A Lister that fails should return an error rather than a partial
// result; the Watcher treats any error as "this cycle saw nothing" and
// leaves its tracked state untouched.
type Lister interface {
	List(ctx context.Context) ([]*unstructured.Unstructured, error)
}

// ListerFunc is an adapter to allow ordinary functions to be used as Listers.
type ListerFunc func(ctx context.Context) ([]*unstructured.Unstructured, error)

// List calls f(ctx).
func (f ListerFunc) List(ctx context.Context) ([]*unstructured.Unstructured, error) {
	return f(ctx)
}
