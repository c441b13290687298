package domain

// AuditEntry is one (action, actor, subject) record. The log is append-only
// and ordered; duplicates are legal.
type AuditEntry struct {
	Action Action
	Actor  *User
	// Subject is the member the action applied to. Nil for posts and
	// deactivation.
	Subject *User
	// PostID is the post created by a Post or Reply action, zero otherwise.
	PostID int64
}

// SubjectKey is the subject's phone string, or "" when there is none.
func (e AuditEntry) SubjectKey() string {
	if e.Subject == nil {
		return ""
	}
	return e.Subject.Key()
}

// removesMembership reports whether the entry ends a membership.
func (e AuditEntry) removesMembership() bool {
	return e.Action == ActionLeave || e.Action == ActionRemove
}
