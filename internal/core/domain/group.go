package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Group is a conversation with a membership, administrators and an audit log.
//
// The three variants share this struct. A Channel has a parent community
// and may only contain members of it; a Community holds channels and only
// carries announcements.
//
// Locking: a channel operation holds its community's read lock before its
// own lock. Community operations that reach into channels hold the
// community write lock first. User locks are always taken last.
type Group struct {
	mu sync.RWMutex

	id       int64
	name     string
	creator  *User
	typ      GroupType
	kind     Kind
	status   GroupStatus
	capacity int

	parent   *Group
	channels []*Group

	members map[string]*User
	admins  map[string]*User
	former  map[string]*User

	conversation []*Post
	posts        map[int64]*Post
	audit        []AuditEntry
}

// NewGroup creates a plain group. Capacity is clamped to the limits of the
// type. Members other than the creator are admitted by the creator; the ones
// that cannot be admitted are skipped.
func NewGroup(creator *User, typ GroupType, name string, capacity int, members []*User) *Group {
	return RestoreGroup(0, creator, typ, name, capacity, members)
}

// RestoreGroup is NewGroup with a persisted id. An id of zero takes the next
// id from the counter. With a persisted id a non-empty name is kept as is,
// so a private chat keeps its name after the peer has left.
func RestoreGroup(id int64, creator *User, typ GroupType, name string, capacity int, members []*User) *Group {
	if creator == nil || !typ.Valid() {
		return nil
	}
	return newGroup(id, KindPlain, nil, creator, typ, name, capacity, members)
}

// NewCommunity creates a community at maximum capacity.
func NewCommunity(creator *User, name string, members []*User) *Group {
	return RestoreCommunity(0, creator, name, members)
}

// RestoreCommunity is NewCommunity with a persisted id.
func RestoreCommunity(id int64, creator *User, name string, members []*User) *Group {
	if creator == nil {
		return nil
	}
	return newGroup(id, KindCommunity, nil, creator, TypeRegularGroup, name, MaxGroupCapacity, members)
}

func newGroup(id int64, kind Kind, parent *Group, creator *User, typ GroupType, name string, capacity int, members []*User) *Group {
	persisted := id > 0
	if !persisted {
		id = groupIDs.Next()
	} else {
		groupIDs.AdvanceTo(id)
	}

	g := &Group{
		id:       id,
		creator:  creator,
		typ:      typ,
		kind:     kind,
		status:   StatusActive,
		capacity: clampCapacity(typ, capacity),
		parent:   parent,
		members:  make(map[string]*User),
		admins:   make(map[string]*User),
		former:   make(map[string]*User),
		posts:    make(map[int64]*Post),
	}
	// The name takes part in group ordering, so it is fixed before the group
	// is handed to any user.
	g.name = name
	if !persisted || name == "" {
		g.name = displayName(typ, name, creator, members)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.members[creator.Key()] = creator
	creator.join(g)
	g.record(AuditEntry{Action: ActionAdd, Actor: creator, Subject: creator})
	g.admins[creator.Key()] = creator
	g.record(AuditEntry{Action: ActionUpgrade, Actor: creator, Subject: creator})

	for _, m := range members {
		if m == nil || m.Key() == creator.Key() {
			continue
		}
		_, _ = g.admit(creator, m)
	}
	return g
}

func clampCapacity(typ GroupType, capacity int) int {
	switch typ {
	case TypeMessagesToSelf:
		return SelfCapacity
	case TypeUserToUser:
		return MinGroupCapacity
	}
	return min(max(capacity, MinGroupCapacity), MaxGroupCapacity)
}

func displayName(typ GroupType, name string, creator *User, members []*User) string {
	switch typ {
	case TypeMessagesToSelf:
		return creator.DisplayName()
	case TypeUserToUser:
		first := creator
		for _, m := range members {
			if m != nil && m.Compare(first) < 0 {
				first = m
			}
		}
		return first.DisplayName()
	}
	return name
}

func compareGroups(a, b *Group) int {
	return cmp.Or(strings.Compare(a.name, b.name), cmp.Compare(a.id, b.id))
}

func (g *Group) ID() int64           { return g.id }
func (g *Group) Name() string        { return g.name }
func (g *Group) Creator() *User      { return g.creator }
func (g *Group) Type() GroupType     { return g.typ }
func (g *Group) Kind() Kind          { return g.kind }
func (g *Group) Capacity() int       { return g.capacity }
func (g *Group) Parent() *Group      { return g.parent }
func (g *Group) IsCommunity() bool   { return g.kind == KindCommunity }
func (g *Group) IsChannel() bool     { return g.kind == KindChannel }
func (g *Group) IsCreator(u *User) bool {
	return u != nil && u.Key() == g.creator.Key()
}

func (g *Group) Status() GroupStatus {
	unlock := g.rlock()
	defer unlock()
	return g.status
}

// Compare orders groups by name, then id.
func (g *Group) Compare(o *Group) int { return compareGroups(g, o) }

// lock takes the write lock, after the parent's read lock for channels.
func (g *Group) lock() func() {
	if g.parent != nil {
		g.parent.mu.RLock()
		g.mu.Lock()
		return func() {
			g.mu.Unlock()
			g.parent.mu.RUnlock()
		}
	}
	g.mu.Lock()
	return g.mu.Unlock
}

func (g *Group) rlock() func() {
	if g.parent != nil {
		g.parent.mu.RLock()
		g.mu.RLock()
		return func() {
			g.mu.RUnlock()
			g.parent.mu.RUnlock()
		}
	}
	g.mu.RLock()
	return g.mu.RUnlock
}

func (g *Group) record(e AuditEntry) AuditEntry {
	g.audit = append(g.audit, e)
	if e.removesMembership() && e.Subject != nil {
		g.former[e.Subject.Key()] = e.Subject
	}
	return e
}

// Execute runs cmd with actor and returns the audit entry it produced, or
// the reason it was denied. A denied command leaves the group unchanged.
func (g *Group) Execute(actor *User, cmd Command) (AuditEntry, error) {
	if cmd == nil {
		return AuditEntry{}, ErrInvalidInput
	}
	unlock := g.lock()
	defer unlock()
	return cmd.apply(g, actor)
}

func (g *Group) run(actor *User, cmd Command) bool {
	_, err := g.Execute(actor, cmd)
	return err == nil
}

func (g *Group) AddMember(actor, newMember *User) bool {
	return g.run(actor, AddMember{Member: newMember})
}

func (g *Group) RemoveMember(actor, member *User) bool {
	return g.run(actor, RemoveMember{Member: member})
}

func (g *Group) LeaveGroup(leaver *User) bool {
	return g.run(leaver, Leave{})
}

func (g *Group) UpgradeMemberToAdmin(actor, member *User) bool {
	return g.run(actor, Promote{Member: member})
}

func (g *Group) DowngradeAdminToRegularMember(actor, admin *User) bool {
	return g.run(actor, Demote{Member: admin})
}

func (g *Group) AddPost(actor *User, text string) bool {
	return g.run(actor, PostMessage{Text: text})
}

func (g *Group) AddReply(actor *User, postID int64, text string) bool {
	return g.run(actor, ReplyToPost{PostID: postID, Text: text})
}

func (g *Group) DeactivateGroup(actor *User) bool {
	return g.run(actor, Deactivate{})
}

func (g *Group) isMember(u *User) bool {
	_, ok := g.members[u.Key()]
	return ok
}

func (g *Group) isAdmin(u *User) bool {
	_, ok := g.admins[u.Key()]
	return ok
}

func (g *Group) fixedMembership() bool {
	return g.typ == TypeUserToUser || g.typ == TypeMessagesToSelf
}

func (g *Group) addMember(actor, target *User) (AuditEntry, error) {
	switch {
	case actor == nil || target == nil:
		return AuditEntry{}, ErrInvalidInput
	case g.status != StatusActive:
		return AuditEntry{}, ErrDeactivated
	case g.fixedMembership():
		return AuditEntry{}, ErrFixedMembership
	case !g.isAdmin(actor):
		return AuditEntry{}, ErrNotAdmin
	}
	return g.admit(actor, target)
}

// admit is the part of adding a member shared with construction.
func (g *Group) admit(actor, target *User) (AuditEntry, error) {
	if len(g.members) >= g.capacity {
		return AuditEntry{}, ErrAtCapacity
	}
	if g.isMember(target) {
		return AuditEntry{}, ErrAlreadyMember
	}
	if _, ok := g.former[target.Key()]; ok {
		return AuditEntry{}, ErrFormerMember
	}
	if g.kind == KindChannel && !g.parent.isMember(target) {
		return AuditEntry{}, ErrNotInCommunity
	}
	if !target.join(g) {
		return AuditEntry{}, ErrAlreadyMember
	}
	g.members[target.Key()] = target
	return g.record(AuditEntry{Action: ActionAdd, Actor: actor, Subject: target}), nil
}

func (g *Group) removeMember(actor, target *User) (AuditEntry, error) {
	switch {
	case actor == nil || target == nil:
		return AuditEntry{}, ErrInvalidInput
	case g.status != StatusActive:
		return AuditEntry{}, ErrDeactivated
	case !g.isAdmin(actor):
		return AuditEntry{}, ErrNotAdmin
	}
	return g.dropMember(actor, target, ActionRemove)
}

func (g *Group) leave(leaver *User) (AuditEntry, error) {
	switch {
	case leaver == nil:
		return AuditEntry{}, ErrInvalidInput
	case g.status != StatusActive:
		return AuditEntry{}, ErrDeactivated
	}
	return g.dropMember(leaver, leaver, ActionLeave)
}

// canDrop checks the rules shared by leave and remove.
func (g *Group) canDrop(target *User) error {
	if !g.isMember(target) {
		return ErrNotMember
	}
	if g.IsCreator(target) {
		return ErrCreator
	}
	if g.isAdmin(target) && len(g.admins) == 1 {
		return ErrSoleAdmin
	}
	return nil
}

func (g *Group) dropMember(actor, target *User, action Action) (AuditEntry, error) {
	if err := g.canDrop(target); err != nil {
		return AuditEntry{}, err
	}

	if g.kind == KindCommunity {
		// A user leaving a community leaves its channels as well. Check all of
		// them before touching any.
		var affected []*Group
		for _, ch := range g.channels {
			ch.mu.Lock()
			defer ch.mu.Unlock()
			if !ch.isMember(target) {
				continue
			}
			if ch.canDrop(target) != nil {
				return AuditEntry{}, ErrChannelBlocked
			}
			affected = append(affected, ch)
		}
		for _, ch := range affected {
			ch.commitDrop(actor, target, action)
		}
	}

	return g.commitDrop(actor, target, action), nil
}

func (g *Group) commitDrop(actor, target *User, action Action) AuditEntry {
	delete(g.members, target.Key())
	delete(g.admins, target.Key())
	target.drop(g)
	return g.record(AuditEntry{Action: action, Actor: actor, Subject: target})
}

func (g *Group) upgrade(actor, target *User) (AuditEntry, error) {
	switch {
	case actor == nil || target == nil:
		return AuditEntry{}, ErrInvalidInput
	case g.status != StatusActive:
		return AuditEntry{}, ErrDeactivated
	case !g.isAdmin(actor):
		return AuditEntry{}, ErrNotAdmin
	case !g.isMember(target):
		return AuditEntry{}, ErrNotMember
	case g.isAdmin(target):
		return AuditEntry{}, ErrAlreadyAdmin
	}
	g.admins[target.Key()] = target
	return g.record(AuditEntry{Action: ActionUpgrade, Actor: actor, Subject: target}), nil
}

func (g *Group) downgrade(actor, target *User) (AuditEntry, error) {
	switch {
	case actor == nil || target == nil:
		return AuditEntry{}, ErrInvalidInput
	case g.status != StatusActive:
		return AuditEntry{}, ErrDeactivated
	case !g.isAdmin(actor), !g.isAdmin(target):
		return AuditEntry{}, ErrNotAdmin
	case len(g.admins) == 1:
		return AuditEntry{}, ErrSoleAdmin
	}
	delete(g.admins, target.Key())
	return g.record(AuditEntry{Action: ActionDowngrade, Actor: actor, Subject: target}), nil
}

func (g *Group) addPost(actor *User, text string) (AuditEntry, error) {
	switch {
	case actor == nil:
		return AuditEntry{}, ErrInvalidInput
	case g.status != StatusActive:
		return AuditEntry{}, ErrDeactivated
	case !g.isMember(actor):
		return AuditEntry{}, ErrNotMember
	case g.kind == KindCommunity && !g.isAdmin(actor):
		return AuditEntry{}, ErrNotAdmin
	}
	p := newPost(0, text, actor, g, nil, g.kind == KindCommunity)
	g.insertPost(p)
	return g.record(AuditEntry{Action: ActionPost, Actor: actor, PostID: p.id}), nil
}

func (g *Group) addReply(actor *User, postID int64, text string) (AuditEntry, error) {
	switch {
	case g.kind == KindCommunity:
		return AuditEntry{}, ErrRepliesDisabled
	case actor == nil:
		return AuditEntry{}, ErrInvalidInput
	case g.status != StatusActive:
		return AuditEntry{}, ErrDeactivated
	case !g.isMember(actor):
		return AuditEntry{}, ErrNotMember
	}
	parent, ok := g.posts[postID]
	if !ok {
		return AuditEntry{}, ErrPostNotFound
	}
	if parent.announcement {
		return AuditEntry{}, ErrAnnouncementReply
	}
	p := newPost(0, text, actor, g, parent, false)
	g.insertPost(p)
	return g.record(AuditEntry{Action: ActionReply, Actor: actor, PostID: p.id}), nil
}

func (g *Group) deactivate(actor *User) (AuditEntry, error) {
	switch {
	case actor == nil:
		return AuditEntry{}, ErrInvalidInput
	case !g.isAdmin(actor):
		return AuditEntry{}, ErrNotAdmin
	case g.status == StatusDeactivated:
		return AuditEntry{}, ErrDeactivated
	}
	g.status = StatusDeactivated
	return g.record(AuditEntry{Action: ActionDeactivate, Actor: actor}), nil
}

// insertPost keeps the conversation ordered by id.
func (g *Group) insertPost(p *Post) {
	i, _ := slices.BinarySearchFunc(g.conversation, p.id, func(e *Post, id int64) int {
		return cmp.Compare(e.id, id)
	})
	g.conversation = slices.Insert(g.conversation, i, p)
	g.posts[p.id] = p
}

// IsCurrentMember answers only for an actor who is a current member.
func (g *Group) IsCurrentMember(actor, potential *User) bool {
	if actor == nil || potential == nil {
		return false
	}
	unlock := g.rlock()
	defer unlock()
	return g.isMember(actor) && g.isMember(potential)
}

// WasPreviousMember reports whether potential was added at some point but is
// no longer a member. Only current members may ask.
func (g *Group) WasPreviousMember(actor, potential *User) bool {
	if actor == nil || potential == nil {
		return false
	}
	unlock := g.rlock()
	defer unlock()
	if !g.isMember(actor) {
		return false
	}
	return g.historical(potential) && !g.isMember(potential)
}

// IsAdmin has no access check.
func (g *Group) IsAdmin(u *User) bool {
	if u == nil {
		return false
	}
	unlock := g.rlock()
	defer unlock()
	return g.isAdmin(u)
}

func (g *Group) hasMember(u *User) bool {
	unlock := g.rlock()
	defer unlock()
	return g.isMember(u)
}

func (g *Group) hasHistory(u *User) bool {
	unlock := g.rlock()
	defer unlock()
	return g.historical(u)
}

// historical reports whether the audit log shows u was ever added.
func (g *Group) historical(u *User) bool {
	for _, e := range g.audit {
		if e.Action == ActionAdd && e.SubjectKey() == u.Key() {
			return true
		}
	}
	return false
}

// Members returns the current members in phone order.
func (g *Group) Members() []*User {
	unlock := g.rlock()
	defer unlock()
	return sortedUsers(g.members)
}

// Admins returns the administrators in phone order.
func (g *Group) Admins() []*User {
	unlock := g.rlock()
	defer unlock()
	return sortedUsers(g.admins)
}

// FormerMembers returns users who left or were removed, in phone order.
func (g *Group) FormerMembers() []*User {
	unlock := g.rlock()
	defer unlock()
	return sortedUsers(g.former)
}

func (g *Group) MemberCount() int {
	unlock := g.rlock()
	defer unlock()
	return len(g.members)
}

// Conversation returns the posts ordered by id.
func (g *Group) Conversation() []*Post {
	unlock := g.rlock()
	defer unlock()
	return slices.Clone(g.conversation)
}

// PostByID looks up a post of this conversation.
func (g *Group) PostByID(id int64) (*Post, bool) {
	unlock := g.rlock()
	defer unlock()
	p, ok := g.posts[id]
	return p, ok
}

// AuditLog returns a copy of the log in order.
func (g *Group) AuditLog() []AuditEntry {
	unlock := g.rlock()
	defer unlock()
	return slices.Clone(g.audit)
}

func sortedUsers(set map[string]*User) []*User {
	out := lo.Values(set)
	slices.SortFunc(out, (*User).Compare)
	return out
}

func (g *Group) String() string {
	s := fmt.Sprintf("%s (Type: %s, Members: %d)", g.name, g.typ.Description(), g.MemberCount())
	switch g.kind {
	case KindChannel:
		return "[Channel in Community: " + g.parent.name + "]" + s
	case KindCommunity:
		return fmt.Sprintf("Community: %s\nChannels: %d", s, len(g.Channels()))
	}
	return s
}

// Verify checks every structural invariant of the group.
func (g *Group) Verify() bool {
	return g.Check() == nil
}

// Check is Verify with the first broken invariant described.
func (g *Group) Check() error {
	unlock := g.rlock()
	defer unlock()

	if !g.isMember(g.creator) {
		return fmt.Errorf("group %d: creator %s is not a member", g.id, g.creator.Key())
	}
	if len(g.members) > g.capacity {
		return fmt.Errorf("group %d: %d members exceed capacity %d", g.id, len(g.members), g.capacity)
	}
	for key, m := range g.members {
		if !m.IsMemberOf(g) {
			return fmt.Errorf("group %d: member %s has no reciprocal membership", g.id, key)
		}
		if _, ok := g.former[key]; ok {
			return fmt.Errorf("group %d: member %s rejoined after leaving", g.id, key)
		}
		if g.kind == KindChannel && !g.parent.isMember(m) {
			return fmt.Errorf("group %d: member %s is not in community %d", g.id, key, g.parent.id)
		}
	}
	for key := range g.admins {
		if _, ok := g.members[key]; !ok {
			return fmt.Errorf("group %d: admin %s is not a member", g.id, key)
		}
	}
	if g.status == StatusActive && len(g.admins) == 0 {
		return fmt.Errorf("group %d: active group without administrators", g.id)
	}

	left := make(map[string]bool)
	for _, e := range g.audit {
		if e.removesMembership() && e.Subject != nil {
			left[e.Subject.Key()] = true
		}
	}
	if len(left) != len(g.former) {
		return fmt.Errorf("group %d: former-member index disagrees with audit log", g.id)
	}
	for key, u := range g.former {
		if !left[key] || !u.WasMemberOf(g) {
			return fmt.Errorf("group %d: former member %s not recorded on both sides", g.id, key)
		}
	}

	for _, p := range g.conversation {
		if p.group != g {
			return fmt.Errorf("group %d: post %d belongs elsewhere", g.id, p.id)
		}
		if (g.kind == KindCommunity) != p.announcement {
			return fmt.Errorf("group %d: post %d has the wrong kind for a %s", g.id, p.id, g.kind)
		}
		if p.parent != nil && p.parent.announcement {
			return fmt.Errorf("group %d: post %d replies to an announcement", g.id, p.id)
		}
		if !g.isMember(p.author) && !g.historical(p.author) {
			return fmt.Errorf("group %d: post %d author %s was never a member", g.id, p.id, p.author.Key())
		}
	}
	return nil
}
