package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreGroup_AdvancesCounter(t *testing.T) {
	w, _, _, _, _ := cast(t)
	high := LastGroupID() + 1000

	g := RestoreGroup(high, w, TypeRegularGroup, "restored", 3, nil)
	require.NotNil(t, g)
	assert.Equal(t, high, g.ID())

	next := NewGroup(w, TypeRegularGroup, "fresh", 3, nil)
	assert.Greater(t, next.ID(), high)
}

func TestRestoreGroup_KeepsPersistedName(t *testing.T) {
	_, r, a, _, c := cast(t)

	fresh := NewGroup(c, TypeUserToUser, "ignored", 0, []*User{a})
	assert.Equal(t, "Ann Adams", fresh.Name())

	// The peer is gone, but the stored name still wins.
	restored := RestoreGroup(LastGroupID()+10, c, TypeUserToUser, "Ann Adams", 0, nil)
	require.NotNil(t, restored)
	assert.Equal(t, "Ann Adams", restored.Name())

	unnamed := RestoreGroup(LastGroupID()+10, c, TypeUserToUser, "", 0, []*User{r})
	require.NotNil(t, unnamed)
	assert.Equal(t, "Rick Reid", unnamed.Name())
}

func TestRestorePost_OutOfOrderAndCounter(t *testing.T) {
	w, r, _, _, _ := cast(t)
	g := NewGroup(w, TypeRegularGroup, "Chat", 5, []*User{r})
	base := LastPostID() + 500

	root, err := g.RestorePost(base+1, w, "root", NoReply, false)
	require.NoError(t, err)
	_, err = g.RestorePost(base, r, "older", NoReply, false)
	require.NoError(t, err)
	reply, err := g.RestorePost(base+7, r, "reply", root.ID(), false)
	require.NoError(t, err)

	conv := g.Conversation()
	require.Len(t, conv, 3)
	assert.Equal(t, []int64{base, base + 1, base + 7}, []int64{conv[0].ID(), conv[1].ID(), conv[2].ID()})
	assert.Equal(t, root.ID(), reply.ReplyFor())
	assert.GreaterOrEqual(t, LastPostID(), base+7)

	_, err = g.RestorePost(base+1, w, "dup", NoReply, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = g.RestorePost(base+8, w, "wrong kind", NoReply, true)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = g.RestorePost(base+9, w, "orphan", base+100, false)
	assert.ErrorIs(t, err, ErrPostNotFound)

	require.NoError(t, g.Check())
}

func TestRestoreAuditLog_KeepsFormerMembersOut(t *testing.T) {
	w, r, a, _, _ := cast(t)
	g := NewGroup(w, TypeRegularGroup, "Club", 5, []*User{r})

	log := []AuditEntry{
		{Action: ActionAdd, Actor: w, Subject: w},
		{Action: ActionUpgrade, Actor: w, Subject: w},
		{Action: ActionAdd, Actor: w, Subject: r},
		{Action: ActionAdd, Actor: w, Subject: a},
		{Action: ActionLeave, Actor: a, Subject: a},
	}
	require.NoError(t, g.RestoreAuditLog(log))

	assert.Equal(t, log, g.AuditLog())
	assert.True(t, a.WasMemberOf(g))
	assert.False(t, g.AddMember(w, a))
	assert.True(t, g.WasPreviousMember(w, a))
	require.NoError(t, g.Check())

	bad := append(log, AuditEntry{Action: ActionRemove, Actor: w, Subject: r})
	assert.ErrorIs(t, g.RestoreAuditLog(bad), ErrInvalidInput)
	assert.Len(t, g.AuditLog(), len(log))
}

func TestRestoreChannel_SkipsAdminCheck(t *testing.T) {
	w, r, _, _, _ := cast(t)
	c := NewCommunity(w, "Neighbours", []*User{r})

	ch, err := c.RestoreChannel(0, r, "Garden", []*User{w})
	require.NoError(t, err)
	assert.Same(t, r, ch.Creator())
	assert.Equal(t, []*User{w, r}, ch.Members())

	outsider := mustUser(t, "Out", "Sider", "876-999-0000")
	_, err = c.RestoreChannel(0, outsider, "Nope", nil)
	assert.ErrorIs(t, err, ErrNotInCommunity)
}
