package services

import (
	"CommunicationHub/internal/core/domain"
	"CommunicationHub/internal/core/ports"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// populate builds a hub touching every kind of record.
func populate(t *testing.T, s *HubService) {
	t.Helper()
	ctx := t.Context()
	registerCast(t, s)
	u := func(phone string) *domain.User {
		user, err := s.User(phone)
		require.NoError(t, err)
		return user
	}
	exec := func(id int64, actor string, cmd domain.Command) domain.AuditEntry {
		entry, err := s.Execute(ctx, id, actor, cmd)
		require.NoError(t, err)
		return entry
	}

	require.True(t, s.AddContact(wanda, rick))
	require.True(t, s.AddContact(rick, ann))

	club, err := s.CreateGroup(ctx, wanda, domain.TypeRegularGroup, "Book club", 4, []string{rick, bob})
	require.NoError(t, err)
	exec(club.ID(), wanda, domain.RemoveMember{Member: u(bob)})
	exec(club.ID(), wanda, domain.Promote{Member: u(rick)})
	exec(club.ID(), rick, domain.Demote{Member: u(wanda)})
	first := exec(club.ID(), wanda, domain.PostMessage{Text: "first, with a comma\nand a newline"})
	exec(club.ID(), rick, domain.ReplyToPost{PostID: first.PostID, Text: "reply"})

	closed, err := s.CreateGroup(ctx, rick, domain.TypeRegularGroup, "Closed", 2, []string{cleo})
	require.NoError(t, err)
	exec(closed.ID(), rick, domain.Deactivate{})

	_, err = s.CreateGroup(ctx, cleo, domain.TypeUserToUser, "", 0, []string{ann})
	require.NoError(t, err)
	_, err = s.CreateGroup(ctx, bob, domain.TypeMessagesToSelf, "", 0, nil)
	require.NoError(t, err)

	c, err := s.CreateCommunity(ctx, wanda, "Street", []string{rick, ann, cleo})
	require.NoError(t, err)
	ch, err := s.CreateChannel(ctx, c.ID(), wanda, "Parking", []string{rick, ann})
	require.NoError(t, err)
	exec(c.ID(), wanda, domain.PostMessage{Text: "road works on monday"})
	exec(c.ID(), ann, domain.Leave{})
	exec(ch.ID(), rick, domain.PostMessage{Text: "who owns the blue van?"})

	require.NoError(t, s.VerifyAll())
}

func saveAndCapture(t *testing.T, s *HubService, store *MockSnapshotStore) *ports.Snapshot {
	t.Helper()
	var saved *ports.Snapshot
	store.On("Save", mock.Anything, mock.AnythingOfType("*ports.Snapshot")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*ports.Snapshot) }).
		Return(nil).Once()
	require.NoError(t, s.Save(t.Context()))
	require.NotNil(t, saved)
	return saved
}

func TestHubService_SaveRestore_RoundTrip(t *testing.T) {
	src, srcStore, _ := newHub(t)
	populate(t, src)
	saved := saveAndCapture(t, src, srcStore)

	assert.Len(t, saved.Users, 5)
	assert.Len(t, saved.Groups, 6)
	assert.Len(t, saved.Contacts, 2)
	assert.Len(t, saved.Posts, 4)

	dst, dstStore, _ := newHub(t)
	dstStore.On("Load", mock.Anything).Return(saved, nil).Once()

	stats, err := dst.Restore(t.Context())
	require.NoError(t, err)
	assert.Equal(t, RestoreStats{Users: 5, Groups: 6, Posts: 4}, stats)
	require.NoError(t, dst.VerifyAll())

	assert.Equal(t, saved, dst.Snapshot(), "restored state saves identically")

	// Former members stay former across a restore.
	club := dst.Groups()[0]
	b, _ := dst.User(bob)
	r, _ := dst.User(rick)
	w, _ := dst.User(wanda)
	assert.True(t, b.WasMemberOf(club))
	_, err = dst.Execute(t.Context(), club.ID(), rick, domain.AddMember{Member: b})
	assert.ErrorIs(t, err, domain.ErrFormerMember)
	assert.True(t, club.IsAdmin(r))
	assert.False(t, club.IsAdmin(w))

	assert.Equal(t, domain.StatusDeactivated, dst.Groups()[1].Status())

	// New ids never collide with restored ones.
	fresh, err := dst.CreateGroup(t.Context(), wanda, domain.TypeRegularGroup, "New", 2, nil)
	require.NoError(t, err)
	assert.Greater(t, fresh.ID(), saved.Groups[len(saved.Groups)-1].ID)
	entry, err := dst.Execute(t.Context(), fresh.ID(), wanda, domain.PostMessage{Text: "x"})
	require.NoError(t, err)
	for _, p := range saved.Posts {
		assert.Greater(t, entry.PostID, p.ID)
	}
}

func TestHubService_Restore_AdvancesCounters(t *testing.T) {
	s, store, _ := newHub(t)
	far := domain.LastGroupID() + 1000
	farPost := domain.LastPostID() + 1000
	store.On("Load", mock.Anything).Return(&ports.Snapshot{
		Users:       []ports.UserRecord{{FirstName: "Wanda", LastName: "Walker", Phone: wanda}},
		Groups:      []ports.GroupRecord{{ID: far, Type: "Group", Name: "Far", CreatorPhone: wanda, Capacity: 2, Status: "Active", ParentID: -1}},
		Memberships: []ports.MembershipRecord{{GroupID: far, Phone: wanda, IsAdmin: true}},
		Posts:       []ports.PostRecord{{ID: farPost, GroupID: far, PosterPhone: wanda, ReplyToID: -1, Text: "hi"}},
	}, nil)

	_, err := s.Restore(t.Context())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, domain.LastGroupID(), far)
	assert.GreaterOrEqual(t, domain.LastPostID(), farPost)
}

func TestHubService_Restore_ForwardReferencedReplies(t *testing.T) {
	s, _, _ := newHub(t)
	id := domain.LastGroupID() + 10
	post := domain.LastPostID() + 10

	stats, err := s.Apply(&ports.Snapshot{
		Users: []ports.UserRecord{
			{FirstName: "Wanda", LastName: "Walker", Phone: wanda},
			{FirstName: "Rick", LastName: "Reid", Phone: rick},
		},
		Groups: []ports.GroupRecord{{ID: id, Type: "Group", Name: "G", CreatorPhone: wanda, Capacity: 3, Status: "Active", ParentID: -1}},
		Memberships: []ports.MembershipRecord{
			{GroupID: id, Phone: wanda, IsAdmin: true},
			{GroupID: id, Phone: rick},
		},
		Posts: []ports.PostRecord{
			{ID: post + 2, GroupID: id, PosterPhone: wanda, ReplyToID: post + 1, Text: "reply to reply"},
			{ID: post + 1, GroupID: id, PosterPhone: rick, ReplyToID: post, Text: "reply"},
			{ID: post, GroupID: id, PosterPhone: wanda, ReplyToID: -1, Text: "root"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Posts)

	g, err := s.Group(id)
	require.NoError(t, err)
	conv := g.Conversation()
	require.Len(t, conv, 3)
	assert.Equal(t, post, conv[0].ID())
	assert.Equal(t, post+1, conv[2].ReplyFor())
	assert.True(t, g.Verify())
}

func TestHubService_Restore_SkipsBadRecords(t *testing.T) {
	s, _, _ := newHub(t)
	id := domain.LastGroupID() + 10

	stats, err := s.Apply(&ports.Snapshot{
		Users: []ports.UserRecord{
			{FirstName: "Wanda", LastName: "Walker", Phone: wanda},
			{FirstName: "Dup", LastName: "Licate", Phone: wanda},
			{FirstName: "No", LastName: "Phone", Phone: "not-a-phone"},
		},
		Groups: []ports.GroupRecord{
			{ID: id, Type: "Group", Name: "Ok", CreatorPhone: wanda, Capacity: 2, Status: "Active", ParentID: -1},
			{ID: id + 1, Type: "Group", Name: "Ghost", CreatorPhone: cleo, Capacity: 2, Status: "Active", ParentID: -1},
			{ID: id + 2, Type: "Channel", Name: "Orphan", CreatorPhone: wanda, Capacity: 5, Status: "Active", ParentID: id + 99},
			{ID: id + 3, Type: "Weird", Name: "?", CreatorPhone: wanda, Capacity: 2, Status: "Active", ParentID: -1},
		},
		Posts: []ports.PostRecord{
			{ID: domain.LastPostID() + 50, GroupID: id, PosterPhone: wanda, ReplyToID: domain.LastPostID() + 40, Text: "dangling"},
		},
		Audit: []ports.AuditRecord{
			{GroupID: id, Action: "Explode", ActorPhone: wanda},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Users)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 0, stats.Posts)
	assert.Equal(t, 2+3+1+1, stats.Skipped)
	assert.NoError(t, s.VerifyAll())
}

func TestHubService_Apply_RequiresEmptyHub(t *testing.T) {
	s, _, _ := newHub(t)
	registerCast(t, s)

	_, err := s.Apply(&ports.Snapshot{Users: []ports.UserRecord{{Phone: "876-300-0001"}}})
	assert.ErrorIs(t, err, ErrNotEmpty)
}

func TestHubService_Restore_EmptyStore(t *testing.T) {
	s, store, _ := newHub(t)
	store.On("Load", mock.Anything).Return(&ports.Snapshot{}, nil)

	stats, err := s.Restore(t.Context())
	require.NoError(t, err)
	assert.Zero(t, stats)
	assert.Zero(t, s.Directory().Len())
}

func TestHubService_StoreErrors(t *testing.T) {
	s, store, _ := newHub(t)
	boom := errors.New("disk on fire")
	store.On("Load", mock.Anything).Return(nil, boom)
	store.On("Save", mock.Anything, mock.Anything).Return(boom)

	_, err := s.Restore(t.Context())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Save(t.Context()), boom)
}

func TestHubService_SaveRestore_PrivateChatAfterPeerLeft(t *testing.T) {
	src, srcStore, _ := newHub(t)
	registerCast(t, src)
	ctx := t.Context()

	chat, err := src.CreateGroup(ctx, cleo, domain.TypeUserToUser, "", 0, []string{ann})
	require.NoError(t, err)
	require.Equal(t, "Ann Adams", chat.Name())
	_, err = src.Execute(ctx, chat.ID(), ann, domain.Leave{})
	require.NoError(t, err)

	saved := saveAndCapture(t, src, srcStore)

	dst, dstStore, _ := newHub(t)
	dstStore.On("Load", mock.Anything).Return(saved, nil).Once()
	stats, err := dst.Restore(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Skipped)
	require.NoError(t, dst.VerifyAll())

	restored, err := dst.Group(chat.ID())
	require.NoError(t, err)
	assert.Equal(t, "Ann Adams", restored.Name())
	assert.Equal(t, 1, restored.MemberCount())
	assert.Equal(t, saved, dst.Snapshot())
}
