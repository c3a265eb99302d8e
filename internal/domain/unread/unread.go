// Package unread keeps the unread message counts of one user across the
// channels they belong to and their direct conversations.
//
// Counts are built once from the relational store, then moved forward by live
// notifications. A full recount only happens on start, when the notification
// feed asks for it, or after the feed broke.
package unread

import (
	"time"
)

type Kind string

const (
	Channel Kind = "channel"
	Direct  Kind = "direct"
)

// Key identifies a conversation from the point of view of the reading user.
// A direct conversation is identified by the other participant's user id.
type Key struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func ChannelKey(channelID string) Key {
	return Key{Kind: Channel, ID: channelID}
}

func DirectKey(otherUserID string) Key {
	return Key{Kind: Direct, ID: otherUserID}
}

func (k Key) String() string {
	return string(k.Kind) + ":" + k.ID
}

func (k Key) less(other Key) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}

	return k.ID < other.ID
}

type Entry struct {
	Key

	// Count is the number of messages of other users created strictly after
	// LastReadAt. Every message is counted when LastReadAt is nil.
	Count      int
	LastReadAt *time.Time

	// Err is the last failure related to this conversation. Count keeps its
	// last known good value when a fetch fails.
	Err error
}

type State struct {
	Loading bool
	Entries []Entry
	Err     error
}

// later reports whether a is strictly after b. A nil instant is before any
// other instant.
func later(a, b *time.Time) bool {
	if a == nil {
		return false
	}

	if b == nil {
		return true
	}

	return a.After(*b)
}
