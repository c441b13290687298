package ports

import (
	"time"

	"github.com/google/uuid"
)

// Topics published by the hub service.
const (
	TopicGroupAudit     = "group.audit"
	TopicUserRegistered = "user.registered"
)

// AuditEvent is published for every successful group action.
type AuditEvent struct {
	ID           uuid.UUID
	GroupID      int64
	GroupName    string
	Action       string
	ActorPhone   string
	SubjectPhone string
	PostID       int64
	At           time.Time
}

// UserRegisteredEvent is published when the directory accepts a new user.
type UserRegisteredEvent struct {
	ID    uuid.UUID
	Phone string
	Name  string
	At    time.Time
}
