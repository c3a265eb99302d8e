package unread

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("unread: aggregator is closed")

// FetchError is a failure while reading markers, conversations or counts. Key
// is nil when the conversation list itself could not be read.
type FetchError struct {
	Key *Key
	Err error
}

func (e *FetchError) Error() string {
	if e.Key == nil {
		return fmt.Sprintf("unread: cannot list conversations: %v", e.Err)
	}

	return fmt.Sprintf("unread: cannot fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PersistError is a failure while saving a read marker. The optimistic state
// applied by MarkRead stays in place.
type PersistError struct {
	Key Key
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("unread: cannot persist read marker of %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

type SubscriptionError struct {
	Err error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("unread: subscription failed: %v", e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}
