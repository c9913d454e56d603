// Package client implements the fetch side of a poll.Watcher: listing the
// full current state of a resource collection through the Kubernetes
// dynamic client, given an explicit GroupVersionResource.
package client

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"

	"github.com/pollwatch/pollwatch/poll"
)

// Options configures the scope of a Client's listing.
type Options struct {
	// Namespace limits listing to a single namespace. If empty, the client
	// lists across all namespaces (or cluster-wide for cluster-scoped
	// resources).
	Namespace string

	// LabelSelector filters the listed resources. If empty, everything the
	// GVR exposes is listed.
	LabelSelector string
}

// Client lists resources of one GroupVersionResource. It satisfies
// poll.Lister, so it plugs directly into a Watcher.
type Client struct {
	gvr  schema.GroupVersionResource
	dyn  dynamic.Interface
	opts Options
}

var _ poll.Lister = (*Client)(nil)

// New creates a Client for the given GVR from a REST config.
func New(gvr schema.GroupVersionResource, config *rest.Config, opts *Options) (*Client, error) {
	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating dynamic client: %w", err)
	}
	return NewForDynamic(gvr, dyn, opts), nil
}

// NewForDynamic creates a Client on top of an existing dynamic client. This
// is the constructor tests use with a fake dynamic client.
func NewForDynamic(gvr schema.GroupVersionResource, dyn dynamic.Interface, opts *Options) *Client {
	c := &Client{gvr: gvr, dyn: dyn}
	if opts != nil {
		c.opts = *opts
	}
	return c
}

// List returns the full current collection for the client's GVR and scope.
func (c *Client) List(ctx context.Context) ([]*unstructured.Unstructured, error) {
	ul, err := c.resource().List(ctx, metav1.ListOptions{LabelSelector: c.opts.LabelSelector})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.gvr, err)
	}
	out := make([]*unstructured.Unstructured, 0, len(ul.Items))
	for i := range ul.Items {
		out = append(out, &ul.Items[i])
	}
	return out, nil
}

// Get returns a single resource by name within the client's scope.
func (c *Client) Get(ctx context.Context, name string) (*unstructured.Unstructured, error) {
	u, err := c.resource().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s %q: %w", c.gvr, name, err)
	}
	return u, nil
}

func (c *Client) resource() dynamic.ResourceInterface {
	if c.opts.Namespace != "" {
		return c.dyn.Resource(c.gvr).Namespace(c.opts.Namespace)
	}
	return c.dyn.Resource(c.gvr)
}
