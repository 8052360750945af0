// Package postgres implements the storage interfaces over pgx. Writes that
// emit domain events insert the outbox row in the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lmeineke/tripsync/libs/db"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
	"github.com/lmeineke/tripsync/services/trip-service/internal/outbox"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage"
)

type GroupStore struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewGroupStore(pool *db.Pool, events *outbox.Repository) *GroupStore {
	return &GroupStore{pool: pool, events: events}
}

var _ storage.GroupStore = (*GroupStore)(nil)

func (s *GroupStore) CreateGroup(ctx context.Context, name, actorID, userID, displayName string) (model.Group, model.GroupMember, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Group{}, model.GroupMember{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	creator := actorID
	if creator == "" {
		creator = userID
	}

	var group model.Group
	group.Name = name
	group.CreatedByActor = creator
	err = tx.QueryRow(ctx, `
		INSERT INTO groups (name, created_by_actor)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, name, creator).Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		return model.Group{}, model.GroupMember{}, err
	}

	owner := model.GroupMember{
		GroupID:     group.ID,
		ActorID:     creator,
		UserID:      userID,
		DisplayName: displayName,
		Role:        model.RoleOwner,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO group_members (group_id, actor_id, user_id, display_name, role)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING id, created_at
	`, group.ID, creator, userID, displayName, model.RoleOwner).Scan(&owner.ID, &owner.CreatedAt)
	if err != nil {
		return model.Group{}, model.GroupMember{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Group{}, model.GroupMember{}, err
	}
	return group, owner, nil
}

func (s *GroupStore) GetGroup(ctx context.Context, groupID string) (model.Group, error) {
	var group model.Group
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_by_actor, created_at
		FROM groups
		WHERE id = $1
	`, groupID).Scan(&group.ID, &group.Name, &group.CreatedByActor, &group.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Group{}, model.ErrNotFound
	}
	if err != nil {
		return model.Group{}, err
	}
	return group, nil
}

func (s *GroupStore) DeleteGroup(ctx context.Context, groupID string) error {
	// Memberships, invites and availability rows cascade via foreign keys.
	tag, err := s.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, groupID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (s *GroupStore) GetMembers(ctx context.Context, groupID string) ([]model.GroupMember, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, group_id, actor_id, COALESCE(user_id, ''), display_name, role, created_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY created_at ASC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (s *GroupStore) GroupsForIdentity(ctx context.Context, actorID, userID string) ([]storage.Membership, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT g.id, g.name, g.created_by_actor, g.created_at,
			m.id, m.group_id, m.actor_id, COALESCE(m.user_id, ''), m.display_name, m.role, m.created_at
		FROM group_members m
		JOIN groups g ON g.id = m.group_id
		WHERE (NULLIF($1, '') IS NOT NULL AND m.actor_id = $1)
			OR (NULLIF($2, '') IS NOT NULL AND m.user_id = $2)
		ORDER BY g.created_at DESC
	`, actorID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Membership
	for rows.Next() {
		var ms storage.Membership
		if err := rows.Scan(
			&ms.Group.ID, &ms.Group.Name, &ms.Group.CreatedByActor, &ms.Group.CreatedAt,
			&ms.Member.ID, &ms.Member.GroupID, &ms.Member.ActorID, &ms.Member.UserID,
			&ms.Member.DisplayName, &ms.Member.Role, &ms.Member.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *GroupStore) AddMember(ctx context.Context, groupID, actorID, userID, displayName, role string) (model.GroupMember, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.GroupMember{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if actorID == "" {
		actorID = userID
	}
	member := model.GroupMember{
		GroupID:     groupID,
		ActorID:     actorID,
		UserID:      userID,
		DisplayName: displayName,
		Role:        role,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO group_members (group_id, actor_id, user_id, display_name, role)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		RETURNING id, created_at
	`, groupID, actorID, userID, displayName, role).Scan(&member.ID, &member.CreatedAt)
	if err != nil {
		return model.GroupMember{}, err
	}

	payload, err := json.Marshal(map[string]string{
		"groupId":     groupID,
		"memberId":    member.ID,
		"actorId":     actorID,
		"displayName": displayName,
		"role":        role,
	})
	if err != nil {
		return model.GroupMember{}, err
	}
	err = s.events.Insert(ctx, tx, outbox.Event{
		AggregateType: "group",
		AggregateID:   groupID,
		EventType:     outbox.EventMemberJoined,
		Payload:       payload,
	})
	if err != nil {
		return model.GroupMember{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.GroupMember{}, err
	}
	return member, nil
}

func (s *GroupStore) ReassignMemberships(ctx context.Context, actorID, userID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE group_members
		SET user_id = $2
		WHERE actor_id = $1 AND user_id IS DISTINCT FROM $2
	`, actorID, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *GroupStore) CreateInvite(ctx context.Context, groupID, token string, expiresAt time.Time) (model.GroupInvite, error) {
	invite := model.GroupInvite{GroupID: groupID, Token: token, ExpiresAt: expiresAt}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO group_invites (group_id, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET expires_at = EXCLUDED.expires_at
		RETURNING id, used_count, created_at
	`, groupID, token, expiresAt).Scan(&invite.ID, &invite.UsedCount, &invite.CreatedAt)
	if err != nil {
		return model.GroupInvite{}, err
	}
	return invite, nil
}

func (s *GroupStore) InviteByToken(ctx context.Context, token string) (model.GroupInvite, error) {
	var invite model.GroupInvite
	err := s.pool.QueryRow(ctx, `
		SELECT id, group_id, token, expires_at, used_count, created_at
		FROM group_invites
		WHERE token = $1
	`, token).Scan(&invite.ID, &invite.GroupID, &invite.Token, &invite.ExpiresAt, &invite.UsedCount, &invite.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GroupInvite{}, model.ErrNotFound
	}
	if err != nil {
		return model.GroupInvite{}, err
	}
	return invite, nil
}

func (s *GroupStore) IncrementInviteUsage(ctx context.Context, inviteID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE group_invites
		SET used_count = used_count + 1
		WHERE id = $1
	`, inviteID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanMembers(rows pgx.Rows) ([]model.GroupMember, error) {
	var out []model.GroupMember
	for rows.Next() {
		var m model.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.ActorID, &m.UserID, &m.DisplayName, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
