package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage"
)

// Service handles guest actor provisioning and the actor claim flow.
type Service struct {
	identities storage.IdentityStore
	groups     storage.GroupStore
	logger     *slog.Logger
}

func NewService(identities storage.IdentityStore, groups storage.GroupStore, logger *slog.Logger) *Service {
	return &Service{identities: identities, groups: groups, logger: logger}
}

// ClaimResult reports the outcome of a claim. UpdatedMemberships is zero when
// the claim had already been applied.
type ClaimResult struct {
	ActorID            string
	UserID             string
	ClaimedAt          time.Time
	UpdatedMemberships int
}

// EnsureActor returns the actor row for the given id, minting a fresh id when
// none was supplied.
func (s *Service) EnsureActor(ctx context.Context, actorID string) (model.Actor, error) {
	return s.identities.EnsureActor(ctx, actorID)
}

// ClaimActor binds the caller's guest actor to their authenticated user and
// carries the binding onto every membership the actor created. The three
// steps run as a saga: the user upsert and the claim record are each
// idempotent, and the membership reassignment only touches rows that still
// point elsewhere, so a retry after a partial failure converges.
func (s *Service) ClaimActor(ctx context.Context, ident Identity, actorID string) (ClaimResult, error) {
	if !ident.Authenticated() {
		return ClaimResult{}, model.ErrUnauthorized
	}
	if actorID == "" {
		return ClaimResult{}, model.Validationf("actorId is required")
	}

	if _, err := s.identities.UpsertUser(ctx, ident.UserID, ident.DisplayName, ident.Email); err != nil {
		return ClaimResult{}, err
	}
	if _, err := s.identities.EnsureActor(ctx, actorID); err != nil {
		return ClaimResult{}, err
	}

	claim, err := s.identities.RecordClaim(ctx, actorID, ident.UserID)
	if err != nil {
		return ClaimResult{}, err
	}
	if claim.UserID != ident.UserID {
		// The actor was already claimed by a different user.
		return ClaimResult{}, model.ErrForbidden
	}

	updated, err := s.groups.ReassignMemberships(ctx, actorID, ident.UserID)
	if err != nil {
		return ClaimResult{}, err
	}
	if updated > 0 {
		s.logger.Info("actor claimed", "actor_id", actorID, "memberships", updated)
	}

	return ClaimResult{
		ActorID:            actorID,
		UserID:             claim.UserID,
		ClaimedAt:          claim.ClaimedAt,
		UpdatedMemberships: updated,
	}, nil
}
