package domain

import (
	"cmp"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// User is a registered person, keyed by phone number.
//
// Group membership is only changed by Group operations; the unexported
// join/drop methods below are the single place both sides are linked.
type User struct {
	mu        sync.RWMutex
	firstName string
	lastName  string
	phone     PhoneNumber

	contacts map[string]*User
	memberOf map[int64]*Group
	formerOf map[int64]*Group
}

// NewUser builds a user. It fails if the phone number is not valid.
func NewUser(firstName, lastName, phone string) (*User, bool) {
	p, ok := ParsePhoneNumber(phone)
	if !ok {
		return nil, false
	}
	return &User{
		firstName: firstName,
		lastName:  lastName,
		phone:     p,
		contacts:  make(map[string]*User),
		memberOf:  make(map[int64]*Group),
		formerOf:  make(map[int64]*Group),
	}, true
}

func (u *User) Phone() PhoneNumber { return u.phone }

// Key is the canonical phone string used for set membership.
func (u *User) Key() string { return u.phone.String() }

func (u *User) FirstName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.firstName
}

func (u *User) LastName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastName
}

// FullName is "<last>,  <first>" (two spaces), the format name lookups match on.
func (u *User) FullName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastName + ",  " + u.firstName
}

// DisplayName is "<first> <last>".
func (u *User) DisplayName() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.firstName + " " + u.lastName
}

// SetFirstName replaces the first name; an empty name is refused.
func (u *User) SetFirstName(name string) bool {
	if name == "" {
		return false
	}
	u.mu.Lock()
	u.firstName = name
	u.mu.Unlock()
	return true
}

// SetLastName replaces the last name; an empty name is refused.
func (u *User) SetLastName(name string) bool {
	if name == "" {
		return false
	}
	u.mu.Lock()
	u.lastName = name
	u.mu.Unlock()
	return true
}

func (u *User) String() string {
	return u.DisplayName() + ", " + u.phone.String()
}

// Compare orders users by phone number.
func (u *User) Compare(o *User) int {
	return u.phone.Compare(o.phone)
}

// AddContact records c as a contact. Duplicates are rejected.
func (u *User) AddContact(c *User) bool {
	if c == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.contacts[c.Key()]; ok {
		return false
	}
	u.contacts[c.Key()] = c
	return true
}

func (u *User) IsContact(c *User) bool {
	if c == nil {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.contacts[c.Key()]
	return ok
}

// IsContactNamed matches against FullName.
func (u *User) IsContactNamed(fullName string) bool {
	if fullName == "" {
		return false
	}
	for _, c := range u.Contacts() {
		if c.FullName() == fullName {
			return true
		}
	}
	return false
}

func (u *User) IsContactPhone(p PhoneNumber) bool {
	if p.IsZero() {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.contacts[p.String()]
	return ok
}

// Contacts returns the contacts ordered by full name, then phone.
func (u *User) Contacts() []*User {
	u.mu.RLock()
	out := make([]*User, 0, len(u.contacts))
	for _, c := range u.contacts {
		out = append(out, c)
	}
	u.mu.RUnlock()
	slices.SortFunc(out, func(a, b *User) int {
		return cmp.Or(cmp.Compare(a.FullName(), b.FullName()), a.Compare(b))
	})
	return out
}

// IsMyNumber accepts the dashed form.
func (u *User) IsMyNumber(phone string) bool {
	p, ok := ParsePhoneNumber(phone)
	return ok && p == u.phone
}

func (u *User) HasPhone(p PhoneNumber) bool {
	return !p.IsZero() && p == u.phone
}

func (u *User) IsMemberOf(g *Group) bool {
	if g == nil {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.memberOf[g.id]
	return ok
}

// WasMemberOf reports whether u left or was removed from g.
func (u *User) WasMemberOf(g *Group) bool {
	if g == nil {
		return false
	}
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.formerOf[g.id]
	return ok
}

func (u *User) IsCreatorOf(g *Group) bool {
	return g != nil && g.creator == u
}

// Groups returns the groups u currently belongs to, in group order.
func (u *User) Groups() []*Group {
	u.mu.RLock()
	out := lo.Values(u.memberOf)
	u.mu.RUnlock()
	slices.SortFunc(out, compareGroups)
	return out
}

// FormerGroups returns the groups u left or was removed from.
func (u *User) FormerGroups() []*Group {
	u.mu.RLock()
	out := lo.Values(u.formerOf)
	u.mu.RUnlock()
	slices.SortFunc(out, compareGroups)
	return out
}

// DoGroupAction runs cmd on g with u as the actor.
func (u *User) DoGroupAction(g *Group, cmd Command) bool {
	if g == nil || cmd == nil {
		return false
	}
	_, err := g.Execute(u, cmd)
	return err == nil
}

// Verify checks that the current and former membership sets are disjoint
// and agree with the groups themselves.
func (u *User) Verify() bool {
	current := u.Groups()
	former := u.FormerGroups()
	for _, g := range current {
		if u.WasMemberOf(g) || !g.hasMember(u) {
			return false
		}
	}
	for _, g := range former {
		if g.hasMember(u) {
			return false
		}
	}
	return true
}

func (u *User) join(g *Group) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.memberOf[g.id]; ok {
		return false
	}
	u.memberOf[g.id] = g
	return true
}

// drop moves g from the current to the former set.
func (u *User) drop(g *Group) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.memberOf[g.id]; !ok {
		return false
	}
	delete(u.memberOf, g.id)
	u.formerOf[g.id] = g
	return true
}

// markFormer records g as a former group without touching the current set.
// Used when an audit log is restored.
func (u *User) markFormer(g *Group) {
	u.mu.Lock()
	u.formerOf[g.id] = g
	u.mu.Unlock()
}
