package model

import "time"

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Actor is a guest participant created before any authentication happens.
// Its id is opaque and never changes once issued.
type Actor struct {
	ID        string
	CreatedAt time.Time
}

// User mirrors an identity from the external auth provider. The provider owns
// the id; rows are upserted when a token is first seen.
type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}

// Claim binds a guest actor to an authenticated user. Append-only: the first
// claim wins and repeated claims keep the original timestamp.
type Claim struct {
	ActorID   string
	UserID    string
	ClaimedAt time.Time
}

type Group struct {
	ID             string
	Name           string
	CreatedByActor string
	CreatedAt      time.Time
}

// GroupMember is the membership row. UserID is empty for guests and is filled
// in exactly once when the actor is claimed; lookups must match on actor id
// OR claimed user id.
type GroupMember struct {
	ID          string
	GroupID     string
	ActorID     string
	UserID      string
	DisplayName string
	Role        string
	CreatedAt   time.Time
}

// GroupInvite is the group's join link. The token derives from the group id,
// so a group has at most one active invite at a time.
type GroupInvite struct {
	ID        string
	GroupID   string
	Token     string
	ExpiresAt time.Time
	UsedCount int
	CreatedAt time.Time
}

// Availability is one submitted date range, both bounds inclusive calendar
// days stored at midnight UTC.
type Availability struct {
	ID        string
	GroupID   string
	ActorID   string
	UserID    string
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}
