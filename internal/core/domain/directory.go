package domain

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Directory is the registry of users, ordered by phone number.
// Every find returns users in that order.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]*User)}
}

// Register adds a user. It fails on an invalid phone number or a phone
// number that is already registered; names may repeat.
func (d *Directory) Register(firstName, lastName, phone string) bool {
	_, ok := d.RegisterUser(firstName, lastName, phone)
	return ok
}

// RegisterUser is Register returning the new user.
func (d *Directory) RegisterUser(firstName, lastName, phone string) (*User, bool) {
	u, ok := NewUser(firstName, lastName, phone)
	if !ok {
		return nil, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.users[u.Key()]; exists {
		return nil, false
	}
	d.users[u.Key()] = u
	return u, true
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}

// Users returns every registered user.
func (d *Directory) Users() []*User {
	d.mu.RLock()
	out := lo.Values(d.users)
	d.mu.RUnlock()
	slices.SortFunc(out, (*User).Compare)
	return out
}

// FindByPhone returns the user with that number, or nil.
func (d *Directory) FindByPhone(p PhoneNumber) *User {
	if p.IsZero() {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[p.String()]
}

// Lookup is FindByPhone for the dashed form.
func (d *Directory) Lookup(phone string) *User {
	p, ok := ParsePhoneNumber(phone)
	if !ok {
		return nil
	}
	return d.FindByPhone(p)
}

// FindByName matches the full "<last>,  <first>" name exactly.
func (d *Directory) FindByName(fullName string) []*User {
	return d.filter(fullName, func(u *User) bool { return u.FullName() == fullName })
}

func (d *Directory) FindByNameSubstring(sub string) []*User {
	return d.filter(sub, func(u *User) bool { return strings.Contains(u.FullName(), sub) })
}

func (d *Directory) FindByPhonePrefix(prefix string) []*User {
	return d.filter(prefix, func(u *User) bool { return strings.HasPrefix(u.Key(), prefix) })
}

func (d *Directory) FindByPhonePostfix(postfix string) []*User {
	return d.filter(postfix, func(u *User) bool { return strings.HasSuffix(u.Key(), postfix) })
}

func (d *Directory) FindByPhoneSubstring(sub string) []*User {
	return d.filter(sub, func(u *User) bool { return strings.Contains(u.Key(), sub) })
}

func (d *Directory) filter(query string, match func(*User) bool) []*User {
	if query == "" {
		return []*User{}
	}
	return lo.Filter(d.Users(), func(u *User, _ int) bool { return match(u) })
}
