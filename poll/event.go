package poll

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// EventType describes what happened to a resource between two successful
// polls of the collection.
type EventType string

const (
	// Added means the resource's UID was not previously tracked.
	Added EventType = "ADDED"
	// Modified means the resource's resourceVersion differs from the one
	// last observed for its UID.
	Modified EventType = "MODIFIED"
	// Deleted means a previously tracked UID was absent from the snapshot.
	Deleted EventType = "DELETED"
)

// Event is a single synthesized change notification.
//
// For Added and Modified events, Object is the resource as it appeared in
// the snapshot that triggered the event. For Deleted events, it is the
// resource as last observed before it disappeared; a deleted resource is no
// longer present in any snapshot, so the last-known payload is all there is.
type Event struct {
	Type   EventType
	Object *unstructured.Unstructured
}
