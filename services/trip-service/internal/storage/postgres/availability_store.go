package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/lmeineke/tripsync/libs/db"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
	"github.com/lmeineke/tripsync/services/trip-service/internal/outbox"
	"github.com/lmeineke/tripsync/services/trip-service/internal/schedule"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage"
)

type AvailabilityStore struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewAvailabilityStore(pool *db.Pool, events *outbox.Repository) *AvailabilityStore {
	return &AvailabilityStore{pool: pool, events: events}
}

var _ storage.AvailabilityStore = (*AvailabilityStore)(nil)

func (s *AvailabilityStore) Create(ctx context.Context, rec model.Availability) (model.Availability, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Availability{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO availabilities (group_id, actor_id, user_id, start_date, end_date)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)
		RETURNING id, created_at
	`, rec.GroupID, rec.ActorID, rec.UserID, rec.StartDate, rec.EndDate).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return model.Availability{}, err
	}

	payload, err := json.Marshal(map[string]string{
		"availabilityId": rec.ID,
		"groupId":        rec.GroupID,
		"from":           schedule.FormatDate(rec.StartDate),
		"to":             schedule.FormatDate(rec.EndDate),
	})
	if err != nil {
		return model.Availability{}, err
	}
	err = s.events.Insert(ctx, tx, outbox.Event{
		AggregateType: "availability",
		AggregateID:   rec.GroupID,
		EventType:     outbox.EventAvailability,
		Payload:       payload,
	})
	if err != nil {
		return model.Availability{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Availability{}, err
	}
	return rec, nil
}

func (s *AvailabilityStore) ListForGroup(ctx context.Context, groupID string) ([]model.Availability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, group_id, COALESCE(actor_id, ''), COALESCE(user_id, ''), start_date, end_date, created_at
		FROM availabilities
		WHERE group_id = $1
		ORDER BY start_date ASC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAvailabilities(rows)
}

func (s *AvailabilityStore) ListForParticipant(ctx context.Context, groupID, actorID, userID string) ([]model.Availability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, group_id, COALESCE(actor_id, ''), COALESCE(user_id, ''), start_date, end_date, created_at
		FROM availabilities
		WHERE group_id = $1
			AND ((NULLIF($2, '') IS NOT NULL AND actor_id = $2)
				OR (NULLIF($3, '') IS NOT NULL AND user_id = $3))
		ORDER BY start_date ASC
	`, groupID, actorID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAvailabilities(rows)
}

func (s *AvailabilityStore) Get(ctx context.Context, id string) (model.Availability, error) {
	var rec model.Availability
	err := s.pool.QueryRow(ctx, `
		SELECT id, group_id, COALESCE(actor_id, ''), COALESCE(user_id, ''), start_date, end_date, created_at
		FROM availabilities
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.GroupID, &rec.ActorID, &rec.UserID, &rec.StartDate, &rec.EndDate, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Availability{}, model.ErrNotFound
	}
	if err != nil {
		return model.Availability{}, err
	}
	return rec, nil
}

func (s *AvailabilityStore) Delete(ctx context.Context, id, actorID, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM availabilities
		WHERE id = $1
			AND ((NULLIF($2, '') IS NOT NULL AND actor_id = $2)
				OR (NULLIF($3, '') IS NOT NULL AND user_id = $3))
	`, id, actorID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanAvailabilities(rows pgx.Rows) ([]model.Availability, error) {
	var out []model.Availability
	for rows.Next() {
		var rec model.Availability
		if err := rows.Scan(&rec.ID, &rec.GroupID, &rec.ActorID, &rec.UserID, &rec.StartDate, &rec.EndDate, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
