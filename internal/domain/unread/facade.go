package unread

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TotalUnread sums the counts of the conversations of the given kinds, or of
// every conversation when no kind is given.
func (a *Aggregator) TotalUnread(kinds ...Kind) int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	total := 0
	for _, c := range a.conversations {
		if len(kinds) == 0 || slices.Contains(kinds, c.entry.Kind) {
			total += c.entry.Count
		}
	}

	return total
}

func (a *Aggregator) UnreadFor(key Key) (Entry, bool) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	c, ok := a.conversations[key]
	if !ok {
		return Entry{}, false
	}

	return c.entry, true
}

func (a *Aggregator) Snapshot() State {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	keys := maps.Keys(a.conversations)
	slices.SortFunc(keys, Key.less)

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, a.conversations[key].entry)
	}

	return State{Loading: a.loading, Entries: entries, Err: a.err}
}

// Changed receives a value after the state changed. Several changes may be
// coalesced into one signal; consumers read Snapshot afterwards.
func (a *Aggregator) Changed() <-chan struct{} {
	return a.changed
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) bool {
		return a.Key.less(b.Key)
	})
}
