package testutil

import (
	"context"
	"sync"

	"github.com/questx-lab/chat/internal/domain/notification/event"
)

// MockNotificationEngineCaller records emitted events unless EmitFunc is set.
type MockNotificationEngineCaller struct {
	EmitFunc func(ctx context.Context, ev *event.EventRequest) error

	mutex  sync.Mutex
	events []*event.EventRequest
}

func (m *MockNotificationEngineCaller) Emit(ctx context.Context, ev *event.EventRequest) error {
	if m.EmitFunc != nil {
		return m.EmitFunc(ctx, ev)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *MockNotificationEngineCaller) Events() []*event.EventRequest {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]*event.EventRequest(nil), m.events...)
}
