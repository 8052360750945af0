package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage/memory"
)

func testService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(st, st, logger), st
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func setupGroup(t *testing.T, st *memory.Store, actorIDs ...string) model.Group {
	t.Helper()
	ctx := context.Background()
	group, _, err := st.CreateGroup(ctx, "Alps trip", actorIDs[0], "", "Owner")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, id := range actorIDs[1:] {
		if _, err := st.AddMember(ctx, group.ID, id, "", "Member "+id, model.RoleMember); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	return group
}

func TestAddRequiresMembership(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	group := setupGroup(t, st, "actor-1")

	_, err := svc.Add(ctx, identity.Identity{}, group.ID, day(2025, 8, 1), day(2025, 8, 2))
	if !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("anonymous add: expected unauthorized, got %v", err)
	}

	_, err = svc.Add(ctx, identity.Identity{ActorID: "stranger"}, group.ID, day(2025, 8, 1), day(2025, 8, 2))
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("non-member add: expected forbidden, got %v", err)
	}

	_, err = svc.Add(ctx, identity.Identity{ActorID: "actor-1"}, "11111111-2222-3333-4444-555555555555", day(2025, 8, 1), day(2025, 8, 2))
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("missing group: expected not found, got %v", err)
	}
}

func TestAddRejectsInvertedRange(t *testing.T) {
	svc, st := testService(t)
	group := setupGroup(t, st, "actor-1")

	_, err := svc.Add(context.Background(), identity.Identity{ActorID: "actor-1"}, group.ID, day(2025, 8, 10), day(2025, 8, 1))
	if !model.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	records, err := svc.ListSelf(context.Background(), identity.Identity{ActorID: "actor-1"}, group.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("invalid range was persisted: %d records", len(records))
	}
}

func TestAddAndListSelf(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	group := setupGroup(t, st, "actor-1", "actor-2")
	ident := identity.Identity{ActorID: "actor-1"}

	rec, err := svc.Add(ctx, ident, group.ID, day(2025, 8, 15), day(2025, 9, 9))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.ID == "" {
		t.Fatal("record has no id")
	}

	if _, err := svc.Add(ctx, identity.Identity{ActorID: "actor-2"}, group.ID, day(2025, 8, 20), day(2025, 8, 25)); err != nil {
		t.Fatalf("add for second member: %v", err)
	}

	records, err := svc.ListSelf(ctx, ident, group.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected only own records, got %d", len(records))
	}
	if !records[0].StartDate.Equal(day(2025, 8, 15)) {
		t.Fatalf("unexpected record %+v", records[0])
	}
}

func TestDeleteOwnRecordOnly(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	group := setupGroup(t, st, "actor-1", "actor-2")

	rec, err := svc.Add(ctx, identity.Identity{ActorID: "actor-1"}, group.ID, day(2025, 8, 1), day(2025, 8, 5))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := svc.Delete(ctx, identity.Identity{}, rec.ID); !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("anonymous delete: expected unauthorized, got %v", err)
	}
	if err := svc.Delete(ctx, identity.Identity{ActorID: "actor-2"}, rec.ID); !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("foreign delete: expected forbidden, got %v", err)
	}
	if err := svc.Delete(ctx, identity.Identity{ActorID: "actor-1"}, rec.ID); err != nil {
		t.Fatalf("own delete: %v", err)
	}
	if err := svc.Delete(ctx, identity.Identity{ActorID: "actor-1"}, rec.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("repeat delete: expected not found, got %v", err)
	}
}

func TestSummaryCountsAndClamps(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	group := setupGroup(t, st, "actor-1", "actor-2")

	// Overlapping submissions by the same member count once.
	add := func(actor string, d1, d2 int) {
		t.Helper()
		if _, err := svc.Add(ctx, identity.Identity{ActorID: actor}, group.ID, day(2025, 8, d1), day(2025, 8, d2)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	add("actor-1", 1, 4)
	add("actor-1", 3, 6)
	add("actor-2", 5, 8)

	rows, total, err := svc.Summary(ctx, identity.Identity{ActorID: "actor-1"}, group.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if total != 2 {
		t.Fatalf("total members = %d, want 2", total)
	}

	want := []SummaryRow{
		{Start: day(2025, 8, 1), End: day(2025, 8, 4), Count: 1},
		{Start: day(2025, 8, 5), End: day(2025, 8, 6), Count: 2},
		{Start: day(2025, 8, 7), End: day(2025, 8, 8), Count: 1},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d: %+v", len(want), len(rows), rows)
	}
	for i := range want {
		if !rows[i].Start.Equal(want[i].Start) || !rows[i].End.Equal(want[i].End) || rows[i].Count != want[i].Count {
			t.Fatalf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
		if rows[i].Count > total {
			t.Fatalf("row %d count %d exceeds group size %d", i, rows[i].Count, total)
		}
	}
}

func TestSummaryRequiresMembership(t *testing.T) {
	svc, st := testService(t)
	group := setupGroup(t, st, "actor-1")

	_, _, err := svc.Summary(context.Background(), identity.Identity{ActorID: "stranger"}, group.ID)
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestMemberAvailabilitiesIncludesQuietMembers(t *testing.T) {
	svc, st := testService(t)
	ctx := context.Background()
	group := setupGroup(t, st, "actor-1", "actor-2")

	if _, err := svc.Add(ctx, identity.Identity{ActorID: "actor-1"}, group.ID, day(2025, 8, 1), day(2025, 8, 2)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.Add(ctx, identity.Identity{ActorID: "actor-1"}, group.ID, day(2025, 8, 3), day(2025, 8, 5)); err != nil {
		t.Fatalf("add: %v", err)
	}

	views, err := svc.MemberAvailabilities(ctx, identity.Identity{ActorID: "actor-2"}, group.ID)
	if err != nil {
		t.Fatalf("member availabilities: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 members, got %d", len(views))
	}

	byActor := map[string]MemberView{}
	for _, v := range views {
		byActor[v.Member.ActorID] = v
	}
	// Adjacent submissions come back merged.
	if got := byActor["actor-1"].Ranges; len(got) != 1 || !got[0].End.Equal(day(2025, 8, 5)) {
		t.Fatalf("expected one merged range ending Aug 5, got %+v", got)
	}
	if got := byActor["actor-2"].Ranges; len(got) != 0 {
		t.Fatalf("expected no ranges for quiet member, got %+v", got)
	}
}

func TestSubmissionsFollowClaimedIdentity(t *testing.T) {
	// A member who submitted as a guest and then claimed keeps a single
	// participant column: pre-claim and post-claim records aggregate together.
	svc, st := testService(t)
	ctx := context.Background()
	group := setupGroup(t, st, "actor-1", "actor-2")

	if _, err := svc.Add(ctx, identity.Identity{ActorID: "actor-1"}, group.ID, day(2025, 8, 1), day(2025, 8, 3)); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	if _, err := st.ReassignMemberships(ctx, "actor-1", "user-1"); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	authed := identity.Identity{UserID: "user-1"}
	if _, err := svc.Add(ctx, authed, group.ID, day(2025, 8, 4), day(2025, 8, 6)); err != nil {
		t.Fatalf("post-claim add: %v", err)
	}

	rows, total, err := svc.Summary(ctx, authed, group.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if total != 2 {
		t.Fatalf("total members = %d, want 2", total)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one merged row, got %+v", rows)
	}
	if rows[0].Count != 1 {
		t.Fatalf("count = %d, want 1 (same participant)", rows[0].Count)
	}
	if !rows[0].Start.Equal(day(2025, 8, 1)) || !rows[0].End.Equal(day(2025, 8, 6)) {
		t.Fatalf("row spans %s..%s, want Aug 1..6", rows[0].Start, rows[0].End)
	}
}
