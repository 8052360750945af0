// Package memory holds an in-memory implementation of the storage
// interfaces for tests and local development without Postgres.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage"
)

// Store implements storage.GroupStore, storage.AvailabilityStore and
// storage.IdentityStore over plain maps. A single mutex serializes all
// operations, which also gives the claim path the atomicity the production
// store gets from a transaction.
type Store struct {
	mu sync.Mutex

	// Now is the clock used for created/claimed timestamps; swap it in tests.
	Now func() time.Time

	actors         map[string]model.Actor
	users          map[string]model.User
	claims         map[string]model.Claim // keyed by actor id
	groups         map[string]model.Group
	members        map[string]model.GroupMember
	invites        map[string]model.GroupInvite // keyed by token
	availabilities map[string]model.Availability
}

func NewStore() *Store {
	return &Store{
		Now:            time.Now,
		actors:         map[string]model.Actor{},
		users:          map[string]model.User{},
		claims:         map[string]model.Claim{},
		groups:         map[string]model.Group{},
		members:        map[string]model.GroupMember{},
		invites:        map[string]model.GroupInvite{},
		availabilities: map[string]model.Availability{},
	}
}

var (
	_ storage.GroupStore        = (*Store)(nil)
	_ storage.AvailabilityStore = (*Store)(nil)
	_ storage.IdentityStore     = (*Store)(nil)
)

func (s *Store) CreateGroup(_ context.Context, name, actorID, userID, displayName string) (model.Group, model.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creator := actorID
	if creator == "" {
		creator = userID
	}
	group := model.Group{
		ID:             uuid.NewString(),
		Name:           name,
		CreatedByActor: creator,
		CreatedAt:      s.Now(),
	}
	owner := model.GroupMember{
		ID:          uuid.NewString(),
		GroupID:     group.ID,
		ActorID:     creator,
		UserID:      userID,
		DisplayName: displayName,
		Role:        model.RoleOwner,
		CreatedAt:   s.Now(),
	}
	s.groups[group.ID] = group
	s.members[owner.ID] = owner
	return group, owner, nil
}

func (s *Store) GetGroup(_ context.Context, groupID string) (model.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupID]
	if !ok {
		return model.Group{}, model.ErrNotFound
	}
	return group, nil
}

func (s *Store) DeleteGroup(_ context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return model.ErrNotFound
	}
	delete(s.groups, groupID)
	for id, m := range s.members {
		if m.GroupID == groupID {
			delete(s.members, id)
		}
	}
	for token, inv := range s.invites {
		if inv.GroupID == groupID {
			delete(s.invites, token)
		}
	}
	for id, rec := range s.availabilities {
		if rec.GroupID == groupID {
			delete(s.availabilities, id)
		}
	}
	return nil
}

func (s *Store) GetMembers(_ context.Context, groupID string) ([]model.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.GroupMember
	for _, m := range s.members {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Store) GroupsForIdentity(_ context.Context, actorID, userID string) ([]storage.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []storage.Membership
	for _, m := range s.members {
		matchesActor := actorID != "" && m.ActorID == actorID
		matchesUser := userID != "" && m.UserID == userID
		if !matchesActor && !matchesUser {
			continue
		}
		group, ok := s.groups[m.GroupID]
		if !ok {
			continue
		}
		out = append(out, storage.Membership{Group: group, Member: m})
	}
	return out, nil
}

func (s *Store) AddMember(_ context.Context, groupID, actorID, userID, displayName, role string) (model.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return model.GroupMember{}, model.ErrNotFound
	}
	if actorID == "" {
		actorID = userID
	}
	member := model.GroupMember{
		ID:          uuid.NewString(),
		GroupID:     groupID,
		ActorID:     actorID,
		UserID:      userID,
		DisplayName: displayName,
		Role:        role,
		CreatedAt:   s.Now(),
	}
	s.members[member.ID] = member
	return member, nil
}

func (s *Store) ReassignMemberships(_ context.Context, actorID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for id, m := range s.members {
		if m.ActorID == actorID && m.UserID != userID {
			m.UserID = userID
			s.members[id] = m
			updated++
		}
	}
	return updated, nil
}

func (s *Store) CreateInvite(_ context.Context, groupID, token string, expiresAt time.Time) (model.GroupInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite := model.GroupInvite{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: s.Now(),
	}
	s.invites[token] = invite
	return invite, nil
}

func (s *Store) InviteByToken(_ context.Context, token string) (model.GroupInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	invite, ok := s.invites[token]
	if !ok {
		return model.GroupInvite{}, model.ErrNotFound
	}
	return invite, nil
}

func (s *Store) IncrementInviteUsage(_ context.Context, inviteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, inv := range s.invites {
		if inv.ID == inviteID {
			inv.UsedCount++
			s.invites[token] = inv
			return nil
		}
	}
	return model.ErrNotFound
}

func (s *Store) Create(_ context.Context, rec model.Availability) (model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.CreatedAt = s.Now()
	s.availabilities[rec.ID] = rec
	return rec, nil
}

func (s *Store) ListForGroup(_ context.Context, groupID string) ([]model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Availability
	for _, rec := range s.availabilities {
		if rec.GroupID == groupID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) ListForParticipant(_ context.Context, groupID, actorID, userID string) ([]model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Availability
	for _, rec := range s.availabilities {
		if rec.GroupID != groupID {
			continue
		}
		matchesActor := actorID != "" && rec.ActorID == actorID
		matchesUser := userID != "" && rec.UserID == userID
		if matchesActor || matchesUser {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, id string) (model.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.availabilities[id]
	if !ok {
		return model.Availability{}, model.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Delete(_ context.Context, id, actorID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.availabilities[id]
	if !ok {
		return false, nil
	}
	matchesActor := actorID != "" && rec.ActorID == actorID
	matchesUser := userID != "" && rec.UserID == userID
	if !matchesActor && !matchesUser {
		return false, nil
	}
	delete(s.availabilities, id)
	return true, nil
}

func (s *Store) EnsureActor(_ context.Context, actorID string) (model.Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID == "" {
		actorID = uuid.NewString()
	}
	if actor, ok := s.actors[actorID]; ok {
		return actor, nil
	}
	actor := model.Actor{ID: actorID, CreatedAt: s.Now()}
	s.actors[actorID] = actor
	return actor, nil
}

func (s *Store) UpsertUser(_ context.Context, userID, displayName, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		user = model.User{ID: userID, CreatedAt: s.Now()}
	}
	if displayName != "" {
		user.DisplayName = displayName
	}
	if email != "" {
		user.Email = email
	}
	s.users[userID] = user
	return user, nil
}

func (s *Store) RecordClaim(_ context.Context, actorID, userID string) (model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if claim, ok := s.claims[actorID]; ok {
		return claim, nil
	}
	claim := model.Claim{ActorID: actorID, UserID: userID, ClaimedAt: s.Now()}
	s.claims[actorID] = claim
	return claim, nil
}
