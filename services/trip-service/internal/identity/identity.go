package identity

import (
	"context"

	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
)

// Identity is the caller as resolved by the HTTP boundary: a guest actor id,
// an authenticated user id, or both once the actor has been claimed. Either
// field may be empty, never both for a gated operation.
type Identity struct {
	ActorID     string
	UserID      string
	Email       string
	DisplayName string
}

func (id Identity) Authenticated() bool { return id.UserID != "" }

func (id Identity) Anonymous() bool { return id.ActorID == "" && id.UserID == "" }

// Matches reports whether a membership row belongs to this caller. A row
// matches on actor id OR on claimed user id; both may resolve to the same
// row after a claim.
func (id Identity) Matches(m model.GroupMember) bool {
	if id.ActorID != "" && m.ActorID == id.ActorID {
		return true
	}
	if id.UserID != "" && m.UserID == id.UserID {
		return true
	}
	return false
}

// Owns reports whether this caller owns an availability record.
func (id Identity) Owns(rec model.Availability) bool {
	if id.ActorID != "" && rec.ActorID == id.ActorID {
		return true
	}
	if id.UserID != "" && rec.UserID == id.UserID {
		return true
	}
	return false
}

type ctxKey struct{}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
