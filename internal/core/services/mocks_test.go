package services

import (
	"CommunicationHub/internal/core/ports"
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSnapshotStore struct {
	mock.Mock
}

var _ ports.SnapshotStore = (*MockSnapshotStore)(nil)

func (m *MockSnapshotStore) Save(ctx context.Context, snap *ports.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockSnapshotStore) Load(ctx context.Context) (*ports.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Snapshot), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

var _ ports.EventBus = (*MockEventBus)(nil)

func (m *MockEventBus) Publish(ctx context.Context, topic string, data any) error {
	args := m.Called(ctx, topic, data)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(topic string, handler ports.EventHandler) {
	m.Called(topic, handler)
}

func (m *MockEventBus) Drain(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// publishedAudit returns the audit events handed to the bus so far.
func (m *MockEventBus) publishedAudit() []ports.AuditEvent {
	var out []ports.AuditEvent
	for _, c := range m.Calls {
		if c.Method == "Publish" && c.Arguments.String(1) == ports.TopicGroupAudit {
			out = append(out, c.Arguments.Get(2).(ports.AuditEvent))
		}
	}
	return out
}
