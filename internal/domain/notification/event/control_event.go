package event

import "github.com/questx-lab/chat/internal/model"

type ReadyEvent struct {
	Unread UnreadUpdatedEvent `json:"unread"`
}

func (*ReadyEvent) Op() string {
	return "ready"
}

// ResyncEvent tells the sessions that some events may have been lost.
type ResyncEvent struct{}

func (*ResyncEvent) Op() string {
	return "resync"
}

func NewUnreadUpdatedEvent(loading bool, entries []model.UnreadEntry, err error) *UnreadUpdatedEvent {
	ev := &UnreadUpdatedEvent{Loading: loading, Entries: entries}
	for _, e := range entries {
		ev.Total += e.Count
	}

	if err != nil {
		ev.Error = err.Error()
	}

	return ev
}
