package domain

// Command is a closed set of group actions, each with its own typed payload.
// Run one with Group.Execute or User.DoGroupAction.
type Command interface {
	Action() Action
	apply(g *Group, actor *User) (AuditEntry, error)
}

// AddMember adds Member to the group. Actor must be an administrator.
type AddMember struct{ Member *User }

// RemoveMember removes Member from the group. Actor must be an administrator.
type RemoveMember struct{ Member *User }

// Leave removes the actor from the group.
type Leave struct{}

// Promote makes Member an administrator.
type Promote struct{ Member *User }

// Demote makes Member a regular member again.
type Demote struct{ Member *User }

// Deactivate freezes the group for good.
type Deactivate struct{}

// PostMessage appends a top-level post (an announcement in a community).
type PostMessage struct{ Text string }

// ReplyToPost appends a reply to an existing post of the same group.
type ReplyToPost struct {
	PostID int64
	Text   string
}

func (AddMember) Action() Action    { return ActionAdd }
func (RemoveMember) Action() Action { return ActionRemove }
func (Leave) Action() Action        { return ActionLeave }
func (Promote) Action() Action      { return ActionUpgrade }
func (Demote) Action() Action       { return ActionDowngrade }
func (Deactivate) Action() Action   { return ActionDeactivate }
func (PostMessage) Action() Action  { return ActionPost }
func (ReplyToPost) Action() Action  { return ActionReply }

func (c AddMember) apply(g *Group, actor *User) (AuditEntry, error) {
	return g.addMember(actor, c.Member)
}

func (c RemoveMember) apply(g *Group, actor *User) (AuditEntry, error) {
	return g.removeMember(actor, c.Member)
}

func (Leave) apply(g *Group, actor *User) (AuditEntry, error) {
	return g.leave(actor)
}

func (c Promote) apply(g *Group, actor *User) (AuditEntry, error) {
	return g.upgrade(actor, c.Member)
}

func (c Demote) apply(g *Group, actor *User) (AuditEntry, error) {
	return g.downgrade(actor, c.Member)
}

func (Deactivate) apply(g *Group, actor *User) (AuditEntry, error) {
	return g.deactivate(actor)
}

func (c PostMessage) apply(g *Group, actor *User) (AuditEntry, error) {
	return g.addPost(actor, c.Text)
}

func (c ReplyToPost) apply(g *Group, actor *User) (AuditEntry, error) {
	return g.addReply(actor, c.PostID, c.Text)
}
