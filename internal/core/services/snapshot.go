package services

import (
	"CommunicationHub/internal/core/domain"
	"CommunicationHub/internal/core/ports"
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Group record types. A plain regular group is stored as "Group".
const (
	recordTypeGroup     = "Group"
	recordTypeCommunity = "Community"
	recordTypeChannel   = "Channel"
)

// RestoreStats summarises a restore. Skipped counts records that could not
// be replayed; each one is logged.
type RestoreStats struct {
	Users   int
	Groups  int
	Posts   int
	Skipped int
}

func recordType(g *domain.Group) string {
	switch g.Kind() {
	case domain.KindCommunity:
		return recordTypeCommunity
	case domain.KindChannel:
		return recordTypeChannel
	}
	if g.Type() == domain.TypeRegularGroup {
		return recordTypeGroup
	}
	return string(g.Type())
}

// Snapshot captures the current state in record form.
func (s *HubService) Snapshot() *ports.Snapshot {
	snap := &ports.Snapshot{}

	users := s.directory.Users()
	snap.Users = lo.Map(users, func(u *domain.User, _ int) ports.UserRecord {
		return ports.UserRecord{FirstName: u.FirstName(), LastName: u.LastName(), Phone: u.Key()}
	})
	for _, u := range users {
		for _, c := range u.Contacts() {
			snap.Contacts = append(snap.Contacts, ports.ContactRecord{Owner: u.Key(), Contact: c.Key()})
		}
	}

	for _, g := range s.Groups() {
		parentID := domain.NoReply
		if p := g.Parent(); p != nil {
			parentID = p.ID()
		}
		snap.Groups = append(snap.Groups, ports.GroupRecord{
			ID:           g.ID(),
			Type:         recordType(g),
			Name:         g.Name(),
			CreatorPhone: g.Creator().Key(),
			Capacity:     g.Capacity(),
			Status:       string(g.Status()),
			ParentID:     parentID,
		})

		for _, m := range g.Members() {
			snap.Memberships = append(snap.Memberships, ports.MembershipRecord{
				GroupID: g.ID(),
				Phone:   m.Key(),
				IsAdmin: g.IsAdmin(m),
			})
		}

		for _, p := range g.Conversation() {
			snap.Posts = append(snap.Posts, ports.PostRecord{
				ID:             p.ID(),
				GroupID:        g.ID(),
				PosterPhone:    p.Author().Key(),
				ReplyToID:      p.ReplyFor(),
				IsAnnouncement: p.IsAnnouncement(),
				Text:           p.Text(),
			})
		}

		for _, e := range g.AuditLog() {
			snap.Audit = append(snap.Audit, ports.AuditRecord{
				GroupID:      g.ID(),
				Action:       string(e.Action),
				ActorPhone:   e.Actor.Key(),
				SubjectPhone: e.SubjectKey(),
				PostID:       e.PostID,
			})
		}
	}
	return snap
}

// Save writes the current state to the store.
func (s *HubService) Save(ctx context.Context) error {
	snap := s.Snapshot()
	if err := s.store.Save(ctx, snap); err != nil {
		s.log.Error().Err(err).Msg("Failed to save hub state")
		return fmt.Errorf("could not save hub state: %w", err)
	}
	s.log.Info().
		Int("users", len(snap.Users)).
		Int("groups", len(snap.Groups)).
		Int("posts", len(snap.Posts)).
		Msg("Hub state saved")
	return nil
}

// Restore loads the stored state into an empty hub.
func (s *HubService) Restore(ctx context.Context) (RestoreStats, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load hub state")
		return RestoreStats{}, fmt.Errorf("could not load hub state: %w", err)
	}
	return s.Apply(snap)
}

// Apply replays snap into an empty hub: users, groups by ascending id,
// memberships, contacts, posts, then the audit logs. Both id counters end up
// at least at the highest id seen.
func (s *HubService) Apply(snap *ports.Snapshot) (RestoreStats, error) {
	var stats RestoreStats
	if s.directory.Len() > 0 || len(s.Groups()) > 0 {
		return stats, ErrNotEmpty
	}
	if snap.IsEmpty() {
		s.log.Info().Msg("Nothing to restore")
		return stats, nil
	}

	r := &replay{s: s, snap: snap, stats: &stats, built: make(map[int64]*domain.Group)}
	r.users()
	r.groups()
	r.contacts()
	r.posts()
	r.audit()

	if n := lo.MaxBy(snap.Groups, func(a, b ports.GroupRecord) bool { return a.ID > b.ID }); n.ID > 0 {
		domain.AdvanceGroupIDs(n.ID)
	}
	if n := lo.MaxBy(snap.Posts, func(a, b ports.PostRecord) bool { return a.ID > b.ID }); n.ID > 0 {
		domain.AdvancePostIDs(n.ID)
	}

	s.log.Info().
		Int("users", stats.Users).
		Int("groups", stats.Groups).
		Int("posts", stats.Posts).
		Int("skipped", stats.Skipped).
		Msg("Hub state restored")
	return stats, nil
}

// replay holds the state of one Apply run.
type replay struct {
	s     *HubService
	snap  *ports.Snapshot
	stats *RestoreStats
	built map[int64]*domain.Group
}

func (r *replay) skip(what string, err error) {
	r.stats.Skipped++
	r.s.log.Warn().Err(err).Msg("Skipped " + what + " while restoring")
}

func (r *replay) user(phone string) *domain.User {
	return r.s.directory.Lookup(phone)
}

func (r *replay) users() {
	for _, rec := range r.snap.Users {
		if !r.s.directory.Register(rec.FirstName, rec.LastName, rec.Phone) {
			r.skip("user", fmt.Errorf("phone %q invalid or duplicated", rec.Phone))
			continue
		}
		r.stats.Users++
	}
}

func (r *replay) groups() {
	memberships := lo.GroupBy(r.snap.Memberships, func(m ports.MembershipRecord) int64 { return m.GroupID })
	records := slices.SortedFunc(slices.Values(r.snap.Groups), func(a, b ports.GroupRecord) int {
		return cmp.Compare(a.ID, b.ID)
	})

	for _, rec := range records {
		g, err := r.group(rec, memberships[rec.ID])
		if err != nil {
			r.skip(fmt.Sprintf("group %d", rec.ID), err)
			continue
		}
		r.built[rec.ID] = g
		r.s.track(g)
		r.stats.Groups++
		r.roles(g, rec, memberships[rec.ID])
	}
}

func (r *replay) group(rec ports.GroupRecord, ms []ports.MembershipRecord) (*domain.Group, error) {
	if _, dup := r.built[rec.ID]; dup || rec.ID <= 0 {
		return nil, fmt.Errorf("bad or duplicated id %d", rec.ID)
	}
	creator := r.user(rec.CreatorPhone)
	if creator == nil {
		return nil, fmt.Errorf("%w: creator %q", ErrUnknownUser, rec.CreatorPhone)
	}
	members := make([]*domain.User, 0, len(ms))
	for _, m := range ms {
		if u := r.user(m.Phone); u != nil {
			members = append(members, u)
		}
	}

	var g *domain.Group
	switch rec.Type {
	case recordTypeCommunity:
		g = domain.RestoreCommunity(rec.ID, creator, rec.Name, members)
	case recordTypeChannel:
		parent, ok := r.built[rec.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent community %d", ErrUnknownGroup, rec.ParentID)
		}
		return parent.RestoreChannel(rec.ID, creator, rec.Name, members)
	case recordTypeGroup:
		g = domain.RestoreGroup(rec.ID, creator, domain.TypeRegularGroup, rec.Name, rec.Capacity, members)
	default:
		g = domain.RestoreGroup(rec.ID, creator, domain.GroupType(rec.Type), rec.Name, rec.Capacity, members)
	}
	if g == nil {
		return nil, fmt.Errorf("%w: group type %q", domain.ErrInvalidInput, rec.Type)
	}
	return g, nil
}

// roles re-applies administrators and the status. Every group starts with
// only its creator as administrator.
func (r *replay) roles(g *domain.Group, rec ports.GroupRecord, ms []ports.MembershipRecord) {
	creator := g.Creator()
	creatorIsAdmin := false
	var firstAdmin *domain.User

	for _, m := range ms {
		u := r.user(m.Phone)
		if u == nil || !g.IsCurrentMember(creator, u) {
			r.skip(fmt.Sprintf("membership of %s in group %d", m.Phone, g.ID()), domain.ErrNotMember)
			continue
		}
		if !m.IsAdmin {
			continue
		}
		if g.IsCreator(u) {
			creatorIsAdmin = true
			continue
		}
		if firstAdmin == nil {
			firstAdmin = u
		}
		if !g.UpgradeMemberToAdmin(creator, u) {
			r.skip(fmt.Sprintf("admin role of %s in group %d", m.Phone, g.ID()), domain.ErrNotAdmin)
		}
	}

	if !creatorIsAdmin && firstAdmin != nil {
		if _, err := g.Execute(firstAdmin, domain.Demote{Member: creator}); err != nil {
			r.skip(fmt.Sprintf("creator demotion in group %d", g.ID()), err)
		}
	}

	if rec.Status == string(domain.StatusDeactivated) {
		admins := g.Admins()
		if len(admins) == 0 || !g.DeactivateGroup(admins[0]) {
			r.skip(fmt.Sprintf("deactivation of group %d", g.ID()), domain.ErrDeactivated)
		}
	}
}

func (r *replay) contacts() {
	for _, rec := range r.snap.Contacts {
		owner, contact := r.user(rec.Owner), r.user(rec.Contact)
		if owner == nil || contact == nil || !owner.AddContact(contact) {
			r.skip("contact", fmt.Errorf("%s -> %s", rec.Owner, rec.Contact))
		}
	}
}

// posts is two-pass: records are indexed by id first so a reply can be
// placed after its parent whatever the record order.
func (r *replay) posts() {
	byID := make(map[int64]ports.PostRecord, len(r.snap.Posts))
	for _, rec := range r.snap.Posts {
		if _, dup := byID[rec.ID]; dup {
			r.skip(fmt.Sprintf("post %d", rec.ID), domain.ErrInvalidInput)
			continue
		}
		byID[rec.ID] = rec
	}

	placed := make(map[int64]bool, len(byID))
	var place func(id int64, visiting map[int64]bool) error
	place = func(id int64, visiting map[int64]bool) error {
		if placed[id] {
			return nil
		}
		rec, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %d", domain.ErrPostNotFound, id)
		}
		if visiting[id] {
			return fmt.Errorf("reply cycle at post %d", id)
		}
		visiting[id] = true

		if rec.ReplyToID > 0 {
			if err := place(rec.ReplyToID, visiting); err != nil {
				return err
			}
		}
		g, ok := r.built[rec.GroupID]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownGroup, rec.GroupID)
		}
		author := r.user(rec.PosterPhone)
		if author == nil {
			return fmt.Errorf("%w: %q", ErrUnknownUser, rec.PosterPhone)
		}
		if _, err := g.RestorePost(rec.ID, author, rec.Text, rec.ReplyToID, rec.IsAnnouncement); err != nil {
			return err
		}
		placed[id] = true
		r.stats.Posts++
		return nil
	}

	ids := lo.Keys(byID)
	slices.Sort(ids)
	for _, id := range ids {
		if err := place(id, map[int64]bool{}); err != nil {
			r.skip(fmt.Sprintf("post %d", id), err)
		}
	}
}

func (r *replay) audit() {
	logs := lo.GroupBy(r.snap.Audit, func(a ports.AuditRecord) int64 { return a.GroupID })
	for id, recs := range logs {
		g, ok := r.built[id]
		if !ok {
			r.skip(fmt.Sprintf("audit log of group %d", id), ErrUnknownGroup)
			continue
		}
		entries, err := r.entries(recs)
		if err == nil {
			err = g.RestoreAuditLog(entries)
		}
		if err != nil {
			r.skip(fmt.Sprintf("audit log of group %d", id), err)
		}
	}
}

func (r *replay) entries(recs []ports.AuditRecord) ([]domain.AuditEntry, error) {
	entries := make([]domain.AuditEntry, 0, len(recs))
	for _, rec := range recs {
		action, ok := domain.ParseAction(rec.Action)
		if !ok {
			return nil, fmt.Errorf("%w: action %q", domain.ErrInvalidInput, rec.Action)
		}
		actor := r.user(rec.ActorPhone)
		if actor == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownUser, rec.ActorPhone)
		}
		var subject *domain.User
		if rec.SubjectPhone != "" {
			if subject = r.user(rec.SubjectPhone); subject == nil {
				return nil, fmt.Errorf("%w: %q", ErrUnknownUser, rec.SubjectPhone)
			}
		}
		entries = append(entries, domain.AuditEntry{Action: action, Actor: actor, Subject: subject, PostID: rec.PostID})
	}
	return entries, nil
}
