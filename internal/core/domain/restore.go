package domain

// Helpers for rebuilding persisted state. They skip the access checks of the
// regular operations because the state they rebuild was valid when it was
// saved; Check should be run on the result.

// RestorePost re-inserts a persisted post. A parentID of NoReply (or zero)
// means a top-level post. Announcements are only accepted in communities and
// regular posts only outside them.
func (g *Group) RestorePost(id int64, author *User, text string, parentID int64, announcement bool) (*Post, error) {
	if author == nil || id <= 0 {
		return nil, ErrInvalidInput
	}
	unlock := g.lock()
	defer unlock()

	if announcement != (g.kind == KindCommunity) {
		return nil, ErrInvalidInput
	}
	if _, dup := g.posts[id]; dup {
		return nil, ErrInvalidInput
	}
	var parent *Post
	if parentID != NoReply && parentID != 0 {
		p, ok := g.posts[parentID]
		if !ok {
			return nil, ErrPostNotFound
		}
		if p.announcement || announcement {
			return nil, ErrAnnouncementReply
		}
		parent = p
	}
	p := newPost(id, text, author, g, parent, announcement)
	g.insertPost(p)
	return p, nil
}

// RestoreAuditLog replaces the log built while replaying with the persisted
// one, and re-derives who left or was removed. It refuses a log that names a
// current member as having left.
func (g *Group) RestoreAuditLog(entries []AuditEntry) error {
	unlock := g.lock()
	defer unlock()

	former := make(map[string]*User)
	for _, e := range entries {
		if e.Actor == nil {
			return ErrInvalidInput
		}
		if e.removesMembership() && e.Subject != nil {
			if g.isMember(e.Subject) {
				return ErrInvalidInput
			}
			former[e.Subject.Key()] = e.Subject
		}
	}

	g.audit = append([]AuditEntry(nil), entries...)
	g.former = former
	for _, u := range former {
		u.markFormer(g)
	}
	return nil
}
