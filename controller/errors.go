package controller

import (
	"errors"
	"fmt"
	"time"
)

// requeueAfter indicates the handler wants the event redelivered after a
// duration.
type requeueAfter struct {
	duration time.Duration
}

func (r *requeueAfter) Error() string {
	return fmt.Sprintf("requeue after %v", r.duration)
}

// RequeueAfter returns an error that tells the controller to redeliver the
// event after the specified duration.
func RequeueAfter(d time.Duration) error {
	return &requeueAfter{duration: d}
}

// GetRequeueDuration returns the requeue duration if the error asks for a
// delayed redelivery, otherwise 0.
func GetRequeueDuration(err error) time.Duration {
	var ra *requeueAfter
	if errors.As(err, &ra) {
		return ra.duration
	}
	return 0
}

// permanentError wraps an error to indicate it should not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string {
	return fmt.Sprintf("permanent error: %v", p.err)
}

func (p *permanentError) Unwrap() error {
	return p.err
}

// Is implements error matching for permanentError.
func (p *permanentError) Is(target error) bool {
	_, ok := target.(*permanentError)
	return ok
}

// PermanentError wraps an error to indicate that the event should not be
// redelivered.
func PermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanentError checks if an error is a permanent error.
func IsPermanentError(err error) bool {
	return errors.Is(err, &permanentError{})
}
