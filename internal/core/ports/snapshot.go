package ports

import "context"

// UserRecord is one persisted user: first,last,phone.
type UserRecord struct {
	FirstName string
	LastName  string
	Phone     string
}

// GroupRecord is one persisted group:
// id,type,name,creatorPhone,capacity,status,parentId.
// Type is "Group", "UserToUser", "MessagesToSelf", "Community" or "Channel".
type GroupRecord struct {
	ID           int64
	Type         string
	Name         string
	CreatorPhone string
	Capacity     int
	Status       string
	ParentID     int64 // -1 unless the group is a channel
}

// MembershipRecord is groupId,phone,isAdmin.
type MembershipRecord struct {
	GroupID int64
	Phone   string
	IsAdmin bool
}

// ContactRecord is phoneA,phoneB: B is in A's contacts.
type ContactRecord struct {
	Owner   string
	Contact string
}

// PostRecord is postId,groupId,posterPhone,replyToId,isAnnouncement,text.
type PostRecord struct {
	ID             int64
	GroupID        int64
	PosterPhone    string
	ReplyToID      int64 // -1 if none
	IsAnnouncement bool
	Text           string
}

// AuditRecord is groupId,action,actorPhone,subjectPhone,postId.
// Records of one group keep their log order.
type AuditRecord struct {
	GroupID      int64
	Action       string
	ActorPhone   string
	SubjectPhone string // empty when the action has no member subject
	PostID       int64
}

// Snapshot is the whole persisted state of a hub.
type Snapshot struct {
	Users       []UserRecord
	Groups      []GroupRecord
	Memberships []MembershipRecord
	Contacts    []ContactRecord
	Posts       []PostRecord
	Audit       []AuditRecord
}

// IsEmpty reports whether nothing was stored.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || len(s.Users) == 0 && len(s.Groups) == 0
}

// SnapshotStore persists and restores hub state.
type SnapshotStore interface {
	// Save replaces whatever was stored with snap.
	Save(ctx context.Context, snap *Snapshot) error

	// Load returns the stored snapshot, or an empty one if nothing was saved yet.
	Load(ctx context.Context) (*Snapshot, error)
}
