// Package groups implements group creation, the invite link lifecycle and
// joining via invite.
package groups

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage"
)

type Service struct {
	store     storage.GroupStore
	inviteTTL time.Duration
	logger    *slog.Logger

	now func() time.Time
}

func NewService(store storage.GroupStore, inviteTTL time.Duration, logger *slog.Logger) *Service {
	if inviteTTL <= 0 {
		inviteTTL = 7 * 24 * time.Hour
	}
	return &Service{store: store, inviteTTL: inviteTTL, logger: logger, now: time.Now}
}

// Preview is what an invite link resolves to before joining: enough to render
// the join page, nothing member-only.
type Preview struct {
	Group       model.Group
	Invite      model.GroupInvite
	MemberCount int
}

// JoinResult reports a join. AlreadyMember is set when the caller's identity
// already matched a membership row; no new row is written in that case.
type JoinResult struct {
	Member        model.GroupMember
	Group         model.Group
	AlreadyMember bool
}

// CreateGroup creates the group, its owner membership and its invite link in
// one call.
func (s *Service) CreateGroup(ctx context.Context, ident identity.Identity, name string) (model.Group, model.GroupMember, model.GroupInvite, error) {
	if ident.Anonymous() {
		return model.Group{}, model.GroupMember{}, model.GroupInvite{}, model.ErrUnauthorized
	}
	if name == "" {
		return model.Group{}, model.GroupMember{}, model.GroupInvite{}, model.Validationf("name is required")
	}

	group, owner, err := s.store.CreateGroup(ctx, name, ident.ActorID, ident.UserID, ident.DisplayName)
	if err != nil {
		return model.Group{}, model.GroupMember{}, model.GroupInvite{}, err
	}
	invite, err := s.store.CreateInvite(ctx, group.ID, group.ID, s.now().Add(s.inviteTTL))
	if err != nil {
		return model.Group{}, model.GroupMember{}, model.GroupInvite{}, err
	}
	s.logger.Info("group created", "group_id", group.ID)
	return group, owner, invite, nil
}

// Groups lists the caller's groups with their membership rows.
func (s *Service) Groups(ctx context.Context, ident identity.Identity) ([]storage.Membership, error) {
	if ident.Anonymous() {
		return nil, model.ErrUnauthorized
	}
	return s.store.GroupsForIdentity(ctx, ident.ActorID, ident.UserID)
}

// InvitePreview resolves an invite token for the public join page. The token
// is the group id; groups created before invites existed get one synthesized
// here with a fresh expiry. An expired invite is a distinct error so callers
// can tell "gone" from "never existed".
func (s *Service) InvitePreview(ctx context.Context, token string) (Preview, error) {
	if _, err := uuid.Parse(token); err != nil {
		return Preview{}, model.ErrNotFound
	}
	group, err := s.store.GetGroup(ctx, token)
	if err != nil {
		return Preview{}, err
	}

	invite, err := s.store.InviteByToken(ctx, token)
	if err == model.ErrNotFound {
		invite, err = s.store.CreateInvite(ctx, group.ID, token, s.now().Add(s.inviteTTL))
	}
	if err != nil {
		return Preview{}, err
	}
	if !invite.ExpiresAt.After(s.now()) {
		return Preview{}, model.ErrExpired
	}

	members, err := s.store.GetMembers(ctx, group.ID)
	if err != nil {
		return Preview{}, err
	}
	return Preview{Group: group, Invite: invite, MemberCount: len(members)}, nil
}

// Join adds the caller to the group behind the invite token. Joining twice is
// a no-op: the existing membership is returned and the invite usage counter
// does not move.
func (s *Service) Join(ctx context.Context, ident identity.Identity, token, displayName string) (JoinResult, error) {
	if ident.Anonymous() {
		return JoinResult{}, model.ErrUnauthorized
	}
	preview, err := s.InvitePreview(ctx, token)
	if err != nil {
		return JoinResult{}, err
	}

	members, err := s.store.GetMembers(ctx, preview.Group.ID)
	if err != nil {
		return JoinResult{}, err
	}
	for _, m := range members {
		if ident.Matches(m) {
			return JoinResult{Member: m, Group: preview.Group, AlreadyMember: true}, nil
		}
	}

	if displayName == "" {
		displayName = ident.DisplayName
	}
	if displayName == "" {
		return JoinResult{}, model.Validationf("displayName is required")
	}

	member, err := s.store.AddMember(ctx, preview.Group.ID, ident.ActorID, ident.UserID, displayName, model.RoleMember)
	if err != nil {
		return JoinResult{}, err
	}
	if err := s.store.IncrementInviteUsage(ctx, preview.Invite.ID); err != nil {
		s.logger.Warn("invite usage update failed", "invite_id", preview.Invite.ID, "err", err)
	}
	return JoinResult{Member: member, Group: preview.Group}, nil
}

// DeleteGroup removes the group and everything under it. Owner only.
func (s *Service) DeleteGroup(ctx context.Context, ident identity.Identity, groupID string) error {
	if ident.Anonymous() {
		return model.ErrUnauthorized
	}
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	members, err := s.store.GetMembers(ctx, groupID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if ident.Matches(m) {
			if m.Role != model.RoleOwner {
				return model.ErrForbidden
			}
			return s.store.DeleteGroup(ctx, groupID)
		}
	}
	return model.ErrForbidden
}
