package domain

import "slices"

// CreateChannel adds a channel to a community. Only community administrators
// may do this; the actor becomes the channel's creator and the members must
// already belong to the community.
func (g *Group) CreateChannel(actor *User, name string, members []*User) (*Group, error) {
	if actor == nil || name == "" {
		return nil, ErrInvalidInput
	}
	if g.kind != KindCommunity {
		return nil, ErrNotCommunity
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.status != StatusActive {
		return nil, ErrDeactivated
	}
	if !g.isAdmin(actor) {
		return nil, ErrNotAdmin
	}
	return g.attachChannel(0, actor, name, members), nil
}

// AddChannel is CreateChannel reduced to success or failure.
func (g *Group) AddChannel(actor *User, name string, members []*User) bool {
	_, err := g.CreateChannel(actor, name, members)
	return err == nil
}

// RestoreChannel re-creates a persisted channel without the administrator
// check: the creator may have been demoted since.
func (g *Group) RestoreChannel(id int64, creator *User, name string, members []*User) (*Group, error) {
	if creator == nil {
		return nil, ErrInvalidInput
	}
	if g.kind != KindCommunity {
		return nil, ErrNotCommunity
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.isMember(creator) {
		return nil, ErrNotInCommunity
	}
	return g.attachChannel(id, creator, name, members), nil
}

// attachChannel must be called with the community write lock held.
func (g *Group) attachChannel(id int64, creator *User, name string, members []*User) *Group {
	ch := newGroup(id, KindChannel, g, creator, TypeRegularGroup, name, MaxGroupCapacity, members)
	i, _ := slices.BinarySearchFunc(g.channels, ch, compareGroups)
	g.channels = slices.Insert(g.channels, i, ch)
	return ch
}

// Channels returns the channels of a community in group order.
func (g *Group) Channels() []*Group {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.channels)
}
