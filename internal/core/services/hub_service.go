package services

import (
	"CommunicationHub/internal/core/domain"
	"CommunicationHub/internal/core/ports"
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var (
	ErrUnknownUser  = errors.New("no user registered with that phone number")
	ErrUnknownGroup = errors.New("no group with that id")
	ErrNotEmpty     = errors.New("hub already holds users or groups")
)

// HubService owns the user directory and every group, runs group commands on
// behalf of users identified by phone number, and persists the whole state
// through a SnapshotStore.
type HubService struct {
	log       zerolog.Logger
	store     ports.SnapshotStore
	bus       ports.EventBus
	directory *domain.Directory

	mu     sync.RWMutex
	groups map[int64]*domain.Group
}

// NewHubService creates an empty hub.
func NewHubService(store ports.SnapshotStore, bus ports.EventBus, baseLogger *zerolog.Logger) *HubService {
	return &HubService{
		log:       baseLogger.With().Str("component", "hub_service").Logger(),
		store:     store,
		bus:       bus,
		directory: domain.NewDirectory(),
		groups:    make(map[int64]*domain.Group),
	}
}

// Directory exposes the user registry for lookups and searches.
func (s *HubService) Directory() *domain.Directory {
	return s.directory
}

// Register adds a user. It fails on a malformed or already registered phone.
func (s *HubService) Register(ctx context.Context, firstName, lastName, phone string) bool {
	u, ok := s.directory.RegisterUser(firstName, lastName, phone)
	if !ok {
		s.log.Info().Str("phone", phone).Msg("Registration refused")
		return false
	}

	s.log.Info().Str("phone", u.Key()).Msg("User registered")
	s.publish(ctx, ports.TopicUserRegistered, ports.UserRegisteredEvent{
		ID:    uuid.New(),
		Phone: u.Key(),
		Name:  u.DisplayName(),
		At:    time.Now().UTC(),
	})
	return true
}

// User resolves a phone number to a registered user.
func (s *HubService) User(phone string) (*domain.User, error) {
	u := s.directory.Lookup(phone)
	if u == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUser, phone)
	}
	return u, nil
}

func (s *HubService) users(phones []string) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(phones))
	for _, p := range phones {
		u, err := s.User(p)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Group returns a group (of any kind) by id.
func (s *HubService) Group(id int64) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownGroup, id)
	}
	return g, nil
}

// Groups returns every group ordered by id.
func (s *HubService) Groups() []*domain.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.Values(s.groups)
	slices.SortFunc(out, func(a, b *domain.Group) int {
		return cmp.Compare(a.ID(), b.ID())
	})
	return out
}

func (s *HubService) track(g *domain.Group) {
	s.mu.Lock()
	s.groups[g.ID()] = g
	s.mu.Unlock()
}

// CreateGroup creates a plain group owned by creatorPhone. Members that the
// group cannot take (capacity, fixed membership) are left out.
func (s *HubService) CreateGroup(ctx context.Context, creatorPhone string, typ domain.GroupType, name string, capacity int, memberPhones []string) (*domain.Group, error) {
	creator, err := s.User(creatorPhone)
	if err != nil {
		return nil, err
	}
	members, err := s.users(memberPhones)
	if err != nil {
		return nil, err
	}

	g := domain.NewGroup(creator, typ, name, capacity, members)
	if g == nil {
		return nil, domain.ErrInvalidInput
	}
	s.track(g)
	s.announceCreation(ctx, g)
	return g, nil
}

// CreateCommunity creates a community owned by creatorPhone.
func (s *HubService) CreateCommunity(ctx context.Context, creatorPhone, name string, memberPhones []string) (*domain.Group, error) {
	creator, err := s.User(creatorPhone)
	if err != nil {
		return nil, err
	}
	members, err := s.users(memberPhones)
	if err != nil {
		return nil, err
	}

	g := domain.NewCommunity(creator, name, members)
	s.track(g)
	s.announceCreation(ctx, g)
	return g, nil
}

// CreateChannel adds a channel to the community communityID. The actor must
// administer the community.
func (s *HubService) CreateChannel(ctx context.Context, communityID int64, actorPhone, name string, memberPhones []string) (*domain.Group, error) {
	community, err := s.Group(communityID)
	if err != nil {
		return nil, err
	}
	actor, err := s.User(actorPhone)
	if err != nil {
		return nil, err
	}
	members, err := s.users(memberPhones)
	if err != nil {
		return nil, err
	}

	ch, err := community.CreateChannel(actor, name, members)
	if err != nil {
		s.log.Info().
			Int64("group_id", communityID).
			Str("actor", actorPhone).
			Str("reason", domain.Reason(err)).
			Msg("Channel creation denied")
		return nil, err
	}
	s.track(ch)
	s.announceCreation(ctx, ch)
	return ch, nil
}

func (s *HubService) announceCreation(ctx context.Context, g *domain.Group) {
	s.log.Info().
		Int64("group_id", g.ID()).
		Str("kind", string(g.Kind())).
		Str("name", g.Name()).
		Int("members", g.MemberCount()).
		Msg("Group created")
	for _, e := range g.AuditLog() {
		s.publishAudit(ctx, g, e)
	}
}

// Execute runs cmd in group groupID on behalf of actorPhone. A denial is
// returned as the domain error and leaves the group unchanged.
func (s *HubService) Execute(ctx context.Context, groupID int64, actorPhone string, cmd domain.Command) (domain.AuditEntry, error) {
	g, err := s.Group(groupID)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	actor, err := s.User(actorPhone)
	if err != nil {
		return domain.AuditEntry{}, err
	}

	marks := cascadeMarks(g, cmd)
	entry, err := g.Execute(actor, cmd)
	if err != nil {
		s.log.Info().
			Int64("group_id", groupID).
			Str("actor", actorPhone).
			Str("action", actionOf(cmd)).
			Str("reason", domain.Reason(err)).
			Msg("Group action denied")
		return domain.AuditEntry{}, err
	}

	s.log.Debug().
		Int64("group_id", groupID).
		Str("actor", actorPhone).
		Str("action", string(entry.Action)).
		Str("subject", entry.SubjectKey()).
		Msg("Group action applied")
	s.publishAudit(ctx, g, entry)
	s.publishCascade(ctx, marks, entry)
	return entry, nil
}

// logMark is the length of a channel's audit log before a community command.
type logMark struct {
	channel *domain.Group
	length  int
}

// cascadeMarks notes the channel log lengths when cmd may cascade from a
// community into its channels.
func cascadeMarks(g *domain.Group, cmd domain.Command) []logMark {
	if cmd == nil || !g.IsCommunity() {
		return nil
	}
	if a := cmd.Action(); a != domain.ActionLeave && a != domain.ActionRemove {
		return nil
	}
	return lo.Map(g.Channels(), func(ch *domain.Group, _ int) logMark {
		return logMark{channel: ch, length: len(ch.AuditLog())}
	})
}

// publishCascade publishes the channel entries written for the same
// subject by a community leave or remove.
func (s *HubService) publishCascade(ctx context.Context, marks []logMark, entry domain.AuditEntry) {
	for _, m := range marks {
		log := m.channel.AuditLog()
		if m.length > len(log) {
			continue
		}
		for _, e := range log[m.length:] {
			if e.Action == entry.Action && e.SubjectKey() == entry.SubjectKey() {
				s.publishAudit(ctx, m.channel, e)
			}
		}
	}
}

func actionOf(cmd domain.Command) string {
	if cmd == nil {
		return ""
	}
	return string(cmd.Action())
}

// AddContact puts contactPhone into ownerPhone's contact list.
func (s *HubService) AddContact(ownerPhone, contactPhone string) bool {
	owner := s.directory.Lookup(ownerPhone)
	contact := s.directory.Lookup(contactPhone)
	if owner == nil || contact == nil {
		return false
	}
	return owner.AddContact(contact)
}

// VerifyAll checks every group and user and joins what is wrong.
func (s *HubService) VerifyAll() error {
	var errs []error
	for _, g := range s.Groups() {
		if err := g.Check(); err != nil {
			errs = append(errs, fmt.Errorf("group %d: %w", g.ID(), err))
		}
	}
	for _, u := range s.directory.Users() {
		if !u.Verify() {
			errs = append(errs, fmt.Errorf("user %s: membership sets are inconsistent", u.Key()))
		}
	}
	return errors.Join(errs...)
}

func (s *HubService) publishAudit(ctx context.Context, g *domain.Group, e domain.AuditEntry) {
	actor := ""
	if e.Actor != nil {
		actor = e.Actor.Key()
	}
	s.publish(ctx, ports.TopicGroupAudit, ports.AuditEvent{
		ID:           uuid.New(),
		GroupID:      g.ID(),
		GroupName:    g.Name(),
		Action:       string(e.Action),
		ActorPhone:   actor,
		SubjectPhone: e.SubjectKey(),
		PostID:       e.PostID,
		At:           time.Now().UTC(),
	})
}

func (s *HubService) publish(ctx context.Context, topic string, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, topic, data); err != nil {
		s.log.Error().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}
