// Package storage defines the persistence capabilities the services depend
// on. Two implementations exist: postgres for production and memory for
// tests. Identity parameters are passed as an (actorID, userID) pair; either
// may be empty.
package storage

import (
	"context"
	"time"

	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
)

// Membership pairs a group with the caller's membership row in it.
type Membership struct {
	Group  model.Group
	Member model.GroupMember
}

type GroupStore interface {
	// CreateGroup creates a group and its owner membership in one step.
	CreateGroup(ctx context.Context, name, actorID, userID, displayName string) (model.Group, model.GroupMember, error)
	GetGroup(ctx context.Context, groupID string) (model.Group, error)
	// DeleteGroup cascades memberships, invites and availability records.
	DeleteGroup(ctx context.Context, groupID string) error
	GetMembers(ctx context.Context, groupID string) ([]model.GroupMember, error)
	GroupsForIdentity(ctx context.Context, actorID, userID string) ([]Membership, error)
	AddMember(ctx context.Context, groupID, actorID, userID, displayName, role string) (model.GroupMember, error)
	// ReassignMemberships fills in userID on every membership row created by
	// actorID and returns how many rows actually changed. Set-based and
	// idempotent: a repeat call touches zero rows.
	ReassignMemberships(ctx context.Context, actorID, userID string) (int, error)

	CreateInvite(ctx context.Context, groupID, token string, expiresAt time.Time) (model.GroupInvite, error)
	InviteByToken(ctx context.Context, token string) (model.GroupInvite, error)
	IncrementInviteUsage(ctx context.Context, inviteID string) error
}

type AvailabilityStore interface {
	Create(ctx context.Context, rec model.Availability) (model.Availability, error)
	ListForGroup(ctx context.Context, groupID string) ([]model.Availability, error)
	ListForParticipant(ctx context.Context, groupID, actorID, userID string) ([]model.Availability, error)
	Get(ctx context.Context, id string) (model.Availability, error)
	// Delete removes the record only if the identity owns it; reports whether
	// a row was removed.
	Delete(ctx context.Context, id, actorID, userID string) (bool, error)
}

type IdentityStore interface {
	EnsureActor(ctx context.Context, actorID string) (model.Actor, error)
	// UpsertUser creates or refreshes the user row, keeping existing display
	// name or email when the new value is empty.
	UpsertUser(ctx context.Context, userID, displayName, email string) (model.User, error)
	// RecordClaim durably binds an actor to a user. Idempotent: a repeat call
	// returns the original claim with its timestamp preserved.
	RecordClaim(ctx context.Context, actorID, userID string) (model.Claim, error)
}
