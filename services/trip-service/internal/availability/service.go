// Package availability implements date range submission and the group-level
// availability aggregation views.
package availability

import (
	"context"
	"log/slog"
	"time"

	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
	"github.com/lmeineke/tripsync/services/trip-service/internal/schedule"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage"
)

type Service struct {
	store  storage.AvailabilityStore
	groups storage.GroupStore
	logger *slog.Logger
}

func NewService(store storage.AvailabilityStore, groups storage.GroupStore, logger *slog.Logger) *Service {
	return &Service{store: store, groups: groups, logger: logger}
}

// SummaryRow is one stretch of days with a constant number of available
// members. Count never exceeds TotalMembers even when a member submitted
// overlapping raw records.
type SummaryRow struct {
	Start time.Time
	End   time.Time
	Count int
}

// MemberView is one member with their merged availability ranges.
type MemberView struct {
	Member model.GroupMember
	Ranges []schedule.Range
}

// requireMember resolves the caller's membership in the group. Missing group
// beats forbidden: callers probing ids learn nothing about membership.
func (s *Service) requireMember(ctx context.Context, ident identity.Identity, groupID string) (model.GroupMember, error) {
	if ident.Anonymous() {
		return model.GroupMember{}, model.ErrUnauthorized
	}
	if _, err := s.groups.GetGroup(ctx, groupID); err != nil {
		return model.GroupMember{}, err
	}
	members, err := s.groups.GetMembers(ctx, groupID)
	if err != nil {
		return model.GroupMember{}, err
	}
	for _, m := range members {
		if ident.Matches(m) {
			return m, nil
		}
	}
	return model.GroupMember{}, model.ErrForbidden
}

// Add records a date range for the caller. The record is attributed to the
// caller's membership row, so entries submitted as a guest and entries
// submitted after claiming land on the same participant.
func (s *Service) Add(ctx context.Context, ident identity.Identity, groupID string, start, end time.Time) (model.Availability, error) {
	member, err := s.requireMember(ctx, ident, groupID)
	if err != nil {
		return model.Availability{}, err
	}
	if end.Before(start) {
		return model.Availability{}, model.Validationf("end date precedes start date")
	}
	return s.store.Create(ctx, model.Availability{
		GroupID:   groupID,
		ActorID:   member.ActorID,
		UserID:    member.UserID,
		StartDate: start,
		EndDate:   end,
	})
}

// ListSelf returns the caller's raw records, ids included, so entries can be
// deleted individually.
func (s *Service) ListSelf(ctx context.Context, ident identity.Identity, groupID string) ([]model.Availability, error) {
	member, err := s.requireMember(ctx, ident, groupID)
	if err != nil {
		return nil, err
	}
	return s.store.ListForParticipant(ctx, groupID, member.ActorID, member.UserID)
}

// Delete removes one of the caller's own records. A record that exists but
// belongs to someone else is forbidden, not missing.
func (s *Service) Delete(ctx context.Context, ident identity.Identity, id string) error {
	if ident.Anonymous() {
		return model.ErrUnauthorized
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ident.Owns(rec) {
		return model.ErrForbidden
	}
	deleted, err := s.store.Delete(ctx, id, ident.ActorID, ident.UserID)
	if err != nil {
		return err
	}
	if !deleted {
		return model.ErrNotFound
	}
	return nil
}

// Summary aggregates the whole group's availability into count-per-day-range
// rows. Each member's raw records are merged first, then swept together, so
// one member never counts twice for the same day.
func (s *Service) Summary(ctx context.Context, ident identity.Identity, groupID string) ([]SummaryRow, int, error) {
	if _, err := s.requireMember(ctx, ident, groupID); err != nil {
		return nil, 0, err
	}
	members, err := s.groups.GetMembers(ctx, groupID)
	if err != nil {
		return nil, 0, err
	}
	byMember, err := s.rangesByMember(ctx, groupID, members)
	if err != nil {
		return nil, 0, err
	}

	perParticipant := make([][]schedule.Range, 0, len(byMember))
	for _, ranges := range byMember {
		perParticipant = append(perParticipant, ranges)
	}
	intervals := schedule.Aggregate(perParticipant, len(members))

	rows := make([]SummaryRow, 0, len(intervals))
	for _, iv := range intervals {
		rows = append(rows, SummaryRow{Start: iv.Start, End: iv.End, Count: iv.Count})
	}
	return rows, len(members), nil
}

// MemberAvailabilities returns every member with their merged ranges, members
// without any submissions included.
func (s *Service) MemberAvailabilities(ctx context.Context, ident identity.Identity, groupID string) ([]MemberView, error) {
	if _, err := s.requireMember(ctx, ident, groupID); err != nil {
		return nil, err
	}
	members, err := s.groups.GetMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	byMember, err := s.rangesByMember(ctx, groupID, members)
	if err != nil {
		return nil, err
	}

	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, MemberView{Member: m, Ranges: byMember[m.ID]})
	}
	return views, nil
}

// rangesByMember groups the group's records by membership row and merges each
// member's set. Records match a member on actor id or claimed user id, which
// keeps pre-claim and post-claim submissions together.
func (s *Service) rangesByMember(ctx context.Context, groupID string, members []model.GroupMember) (map[string][]schedule.Range, error) {
	records, err := s.store.ListForGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	raw := make(map[string][]schedule.Range)
	for _, rec := range records {
		for _, m := range members {
			matchesActor := rec.ActorID != "" && rec.ActorID == m.ActorID
			matchesUser := rec.UserID != "" && rec.UserID == m.UserID
			if matchesActor || matchesUser {
				raw[m.ID] = append(raw[m.ID], schedule.Range{Start: rec.StartDate, End: rec.EndDate})
				break
			}
		}
	}

	merged := make(map[string][]schedule.Range, len(raw))
	for id, ranges := range raw {
		merged[id] = schedule.Merge(ranges)
	}
	return merged, nil
}
