package services

import (
	"CommunicationHub/internal/core/domain"
	"CommunicationHub/internal/core/ports"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	wanda = "876-200-0001"
	rick  = "876-200-0002"
	ann   = "876-200-0003"
	bob   = "876-200-0004"
	cleo  = "876-200-0005"
)

func newHub(t *testing.T) (*HubService, *MockSnapshotStore, *MockEventBus) {
	t.Helper()
	nopLogger := zerolog.Nop()
	store := new(MockSnapshotStore)
	bus := new(MockEventBus)
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return NewHubService(store, bus, &nopLogger), store, bus
}

func registerCast(t *testing.T, s *HubService) {
	t.Helper()
	ctx := t.Context()
	require.True(t, s.Register(ctx, "Wanda", "Walker", wanda))
	require.True(t, s.Register(ctx, "Rick", "Reid", rick))
	require.True(t, s.Register(ctx, "Ann", "Adams", ann))
	require.True(t, s.Register(ctx, "Bob", "Brown", bob))
	require.True(t, s.Register(ctx, "Cleo", "Clark", cleo))
}

func TestHubService_Register(t *testing.T) {
	s, _, bus := newHub(t)
	ctx := t.Context()

	assert.True(t, s.Register(ctx, "Ann", "Adams", "876-131-0010"))
	assert.False(t, s.Register(ctx, "Other", "Name", "876-131-0010"), "duplicate phone")
	assert.False(t, s.Register(ctx, "Bad", "Phone", "8761310010"), "malformed phone")
	assert.Equal(t, 1, s.Directory().Len())

	bus.AssertCalled(t, "Publish", mock.Anything, ports.TopicUserRegistered,
		mock.MatchedBy(func(e ports.UserRegisteredEvent) bool {
			return e.Phone == "876-131-0010" && e.Name == "Ann Adams"
		}))
	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestHubService_CreateGroup(t *testing.T) {
	s, _, bus := newHub(t)
	registerCast(t, s)

	g, err := s.CreateGroup(t.Context(), wanda, domain.TypeRegularGroup, "Book club", 3, []string{rick, ann, bob})
	require.NoError(t, err)

	assert.Equal(t, 3, g.MemberCount(), "bob does not fit")
	found, err := s.Group(g.ID())
	require.NoError(t, err)
	assert.Same(t, g, found)

	events := bus.publishedAudit()
	require.Len(t, events, len(g.AuditLog()))
	assert.Equal(t, "Add", events[0].Action)
	assert.Equal(t, wanda, events[0].ActorPhone)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	_, err = s.CreateGroup(t.Context(), "876-999-9999", domain.TypeRegularGroup, "x", 3, nil)
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = s.CreateGroup(t.Context(), wanda, domain.TypeRegularGroup, "x", 3, []string{"876-999-9999"})
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = s.CreateGroup(t.Context(), wanda, domain.GroupType("Bogus"), "x", 3, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHubService_Execute(t *testing.T) {
	s, _, bus := newHub(t)
	registerCast(t, s)
	ctx := t.Context()

	g, err := s.CreateGroup(ctx, wanda, domain.TypeRegularGroup, "Team", 3, nil)
	require.NoError(t, err)
	r, err := s.User(rick)
	require.NoError(t, err)

	entry, err := s.Execute(ctx, g.ID(), wanda, domain.AddMember{Member: r})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionAdd, entry.Action)
	assert.Equal(t, rick, entry.SubjectKey())

	published := len(bus.publishedAudit())

	_, err = s.Execute(ctx, g.ID(), wanda, domain.AddMember{Member: r})
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	_, err = s.Execute(ctx, g.ID(), rick, domain.Deactivate{})
	assert.ErrorIs(t, err, domain.ErrNotAdmin)
	assert.Len(t, bus.publishedAudit(), published, "denials are not published")

	_, err = s.Execute(ctx, g.ID(), wanda, domain.RemoveMember{Member: r})
	require.NoError(t, err)
	_, err = s.Execute(ctx, g.ID(), wanda, domain.AddMember{Member: r})
	assert.ErrorIs(t, err, domain.ErrFormerMember)

	entry, err = s.Execute(ctx, g.ID(), wanda, domain.PostMessage{Text: "hello"})
	require.NoError(t, err)
	events := bus.publishedAudit()
	last := events[len(events)-1]
	assert.Equal(t, "Post", last.Action)
	assert.Equal(t, entry.PostID, last.PostID)
	assert.Equal(t, g.Name(), last.GroupName)

	_, err = s.Execute(ctx, 1<<40, wanda, domain.Leave{})
	assert.ErrorIs(t, err, ErrUnknownGroup)
	_, err = s.Execute(ctx, g.ID(), "876-999-9999", domain.Leave{})
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = s.Execute(ctx, g.ID(), wanda, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestHubService_CommunityAndChannels(t *testing.T) {
	s, _, _ := newHub(t)
	registerCast(t, s)
	ctx := t.Context()

	c, err := s.CreateCommunity(ctx, wanda, "Neighbours", []string{rick, ann})
	require.NoError(t, err)

	_, err = s.CreateChannel(ctx, c.ID(), rick, "Parking", nil)
	assert.ErrorIs(t, err, domain.ErrNotAdmin)

	ch, err := s.CreateChannel(ctx, c.ID(), wanda, "Parking", []string{rick, ann, bob})
	require.NoError(t, err)
	assert.Equal(t, 3, ch.MemberCount(), "bob is not in the community")

	found, err := s.Group(ch.ID())
	require.NoError(t, err)
	assert.Same(t, ch, found)

	_, err = s.Execute(ctx, c.ID(), ann, domain.Leave{})
	require.NoError(t, err)
	a, _ := s.User(ann)
	assert.False(t, a.IsMemberOf(ch), "leaving the community leaves its channels")

	_, err = s.CreateChannel(ctx, ch.ID(), wanda, "Nested", nil)
	assert.ErrorIs(t, err, domain.ErrNotCommunity)
	assert.NoError(t, s.VerifyAll())
}

func TestHubService_AddContact(t *testing.T) {
	s, _, _ := newHub(t)
	registerCast(t, s)

	assert.True(t, s.AddContact(wanda, rick))
	assert.False(t, s.AddContact(wanda, rick), "already a contact")
	assert.False(t, s.AddContact(wanda, "876-999-9999"))

	w, _ := s.User(wanda)
	r, _ := s.User(rick)
	assert.True(t, w.IsContact(r))
	assert.False(t, r.IsContact(w))
}

func TestHubService_Groups_OrderedByID(t *testing.T) {
	s, _, _ := newHub(t)
	registerCast(t, s)
	ctx := t.Context()

	b, _ := s.CreateGroup(ctx, wanda, domain.TypeRegularGroup, "B", 2, nil)
	a, _ := s.CreateGroup(ctx, wanda, domain.TypeRegularGroup, "A", 2, nil)

	groups := s.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, b.ID(), groups[0].ID())
	assert.Equal(t, a.ID(), groups[1].ID())
}

func TestHubService_CommunityLeavePublishesChannelEntries(t *testing.T) {
	s, _, bus := newHub(t)
	registerCast(t, s)
	ctx := t.Context()

	c, err := s.CreateCommunity(ctx, wanda, "Neighbours", []string{rick, ann})
	require.NoError(t, err)
	parking, err := s.CreateChannel(ctx, c.ID(), wanda, "Parking", []string{ann})
	require.NoError(t, err)
	garden, err := s.CreateChannel(ctx, c.ID(), wanda, "Garden", []string{rick})
	require.NoError(t, err)

	before := len(bus.publishedAudit())
	_, err = s.Execute(ctx, c.ID(), ann, domain.Leave{})
	require.NoError(t, err)

	events := bus.publishedAudit()[before:]
	require.Len(t, events, 2, "community entry plus the one channel ann was in")
	assert.Equal(t, c.ID(), events[0].GroupID)
	assert.Equal(t, parking.ID(), events[1].GroupID)
	for _, e := range events {
		assert.Equal(t, "Leave", e.Action)
		assert.Equal(t, ann, e.SubjectPhone)
		assert.NotEqual(t, garden.ID(), e.GroupID)
	}
}
