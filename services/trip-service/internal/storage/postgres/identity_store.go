package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lmeineke/tripsync/libs/db"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
	"github.com/lmeineke/tripsync/services/trip-service/internal/outbox"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage"
)

type IdentityStore struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewIdentityStore(pool *db.Pool, events *outbox.Repository) *IdentityStore {
	return &IdentityStore{pool: pool, events: events}
}

var _ storage.IdentityStore = (*IdentityStore)(nil)

func (s *IdentityStore) EnsureActor(ctx context.Context, actorID string) (model.Actor, error) {
	if actorID == "" {
		actorID = uuid.NewString()
	}
	var actor model.Actor
	err := s.pool.QueryRow(ctx, `
		INSERT INTO actors (id)
		VALUES ($1)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING id, created_at
	`, actorID).Scan(&actor.ID, &actor.CreatedAt)
	if err != nil {
		return model.Actor{}, err
	}
	return actor, nil
}

func (s *IdentityStore) UpsertUser(ctx context.Context, userID, displayName, email string) (model.User, error) {
	var user model.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email)
		RETURNING id, display_name, email, created_at
	`, userID, displayName, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.CreatedAt)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

// RecordClaim binds the actor to the user. The first claim wins; repeats
// return the original row. The claim event is emitted only when a new row was
// inserted, inside the same transaction.
func (s *IdentityStore) RecordClaim(ctx context.Context, actorID, userID string) (model.Claim, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Claim{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	claim := model.Claim{ActorID: actorID, UserID: userID}
	err = tx.QueryRow(ctx, `
		INSERT INTO actor_claims (actor_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (actor_id) DO NOTHING
		RETURNING claimed_at
	`, actorID, userID).Scan(&claim.ClaimedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		err = tx.QueryRow(ctx, `
			SELECT actor_id, user_id, claimed_at
			FROM actor_claims
			WHERE actor_id = $1
		`, actorID).Scan(&claim.ActorID, &claim.UserID, &claim.ClaimedAt)
		if err != nil {
			return model.Claim{}, err
		}
	case err != nil:
		return model.Claim{}, err
	default:
		payload, merr := json.Marshal(map[string]string{
			"actorId": actorID,
			"userId":  userID,
		})
		if merr != nil {
			return model.Claim{}, merr
		}
		err = s.events.Insert(ctx, tx, outbox.Event{
			AggregateType: "actor",
			AggregateID:   actorID,
			EventType:     outbox.EventActorClaimed,
			Payload:       payload,
		})
		if err != nil {
			return model.Claim{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Claim{}, err
	}
	return claim, nil
}
