package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lmeineke/tripsync/libs/auth"
	"github.com/lmeineke/tripsync/services/trip-service/internal/availability"
	"github.com/lmeineke/tripsync/services/trip-service/internal/groups"
	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
	"github.com/lmeineke/tripsync/services/trip-service/internal/storage/memory"
)

const testSecret = "test-secret"

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	st := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	server := NewServer(
		identity.NewService(st, st, logger),
		groups.NewService(st, 7*24*time.Hour, logger),
		availability.NewService(st, st, logger),
		HS256Verifier{Secret: testSecret},
		logger,
		ServerConfig{PublicBaseURL: "http://app.test", VoiceEnabled: true},
	)
	mux := http.NewServeMux()
	server.Register(mux)
	return mux
}

type header struct {
	key, value string
}

func do(t *testing.T, mux *http.ServeMux, method, path string, body any, headers ...header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, h := range headers {
		req.Header.Set(h.key, h.value)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createActor(t *testing.T, mux *http.ServeMux) string {
	t.Helper()
	rec := do(t, mux, http.MethodPost, "/api/actors", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create actor: status %d", rec.Code)
	}
	var resp struct {
		ActorID string `json:"actorId"`
	}
	decode(t, rec, &resp)
	if resp.ActorID == "" {
		t.Fatal("no actor id in response")
	}
	return resp.ActorID
}

func createGroup(t *testing.T, mux *http.ServeMux, actorID, name string) string {
	t.Helper()
	rec := do(t, mux, http.MethodPost, "/api/groups",
		map[string]string{"name": name, "displayName": "Dana"},
		header{"X-Actor-Id", actorID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group: status %d body %s", rec.Code, rec.Body)
	}
	var resp struct {
		ID         string `json:"id"`
		InviteLink string `json:"inviteLink"`
	}
	decode(t, rec, &resp)
	if resp.InviteLink != "http://app.test/invite/"+resp.ID {
		t.Fatalf("invite link = %q", resp.InviteLink)
	}
	return resp.ID
}

func signToken(t *testing.T, sub, email, name string) string {
	t.Helper()
	token, err := auth.SignHS256(auth.Claims{
		Sub:          sub,
		Email:        email,
		UserMetadata: auth.UserMetadata{FullName: name},
		Exp:          time.Now().Add(time.Hour).Unix(),
		Iat:          time.Now().Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestHealth(t *testing.T) {
	mux := newTestMux(t)
	rec := do(t, mux, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestInvitePreviewIsPublic(t *testing.T) {
	mux := newTestMux(t)
	actorID := createActor(t, mux)
	groupID := createGroup(t, mux, actorID, "Alps trip")

	rec := do(t, mux, http.MethodGet, "/api/groups/"+groupID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: status %d body %s", rec.Code, rec.Body)
	}
	var resp struct {
		Name        string `json:"name"`
		MemberCount int    `json:"memberCount"`
	}
	decode(t, rec, &resp)
	if resp.Name != "Alps trip" || resp.MemberCount != 1 {
		t.Fatalf("preview = %+v", resp)
	}
}

func TestUnknownGroupIs404(t *testing.T) {
	mux := newTestMux(t)
	rec := do(t, mux, http.MethodGet, "/api/groups/0b938232-1f0a-4a83-b0e9-6e28e7a271f5", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestJoinFlow(t *testing.T) {
	mux := newTestMux(t)
	owner := createActor(t, mux)
	groupID := createGroup(t, mux, owner, "Alps trip")
	joiner := createActor(t, mux)

	rec := do(t, mux, http.MethodPost, "/api/groups/"+groupID+"/join",
		map[string]string{"displayName": "Eli"},
		header{"X-Actor-Id", joiner})
	if rec.Code != http.StatusOK {
		t.Fatalf("join: status %d body %s", rec.Code, rec.Body)
	}
	var resp struct {
		AlreadyMember bool   `json:"alreadyMember"`
		Role          string `json:"role"`
	}
	decode(t, rec, &resp)
	if resp.AlreadyMember || resp.Role != "member" {
		t.Fatalf("join response %+v", resp)
	}

	rec = do(t, mux, http.MethodPost, "/api/groups/"+groupID+"/join",
		map[string]string{"displayName": "Eli"},
		header{"X-Actor-Id", joiner})
	decode(t, rec, &resp)
	if !resp.AlreadyMember {
		t.Fatal("repeat join not flagged as already member")
	}
}

func TestAvailabilityFlow(t *testing.T) {
	mux := newTestMux(t)
	owner := createActor(t, mux)
	groupID := createGroup(t, mux, owner, "Alps trip")
	joiner := createActor(t, mux)
	do(t, mux, http.MethodPost, "/api/groups/"+groupID+"/join",
		map[string]string{"displayName": "Eli"}, header{"X-Actor-Id", joiner})

	rec := do(t, mux, http.MethodPost, "/api/groups/"+groupID+"/availabilities",
		map[string]string{"from": "2025-08-15", "to": "2025-09-09"},
		header{"X-Actor-Id", owner})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add availability: status %d body %s", rec.Code, rec.Body)
	}
	var created struct {
		ID   string `json:"id"`
		From string `json:"from"`
		To   string `json:"to"`
	}
	decode(t, rec, &created)
	if created.From != "2025-08-15" || created.To != "2025-09-09" {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, mux, http.MethodPost, "/api/groups/"+groupID+"/availabilities",
		map[string]string{"from": "2025-08-20", "to": "2025-08-25"},
		header{"X-Actor-Id", joiner})
	if rec.Code != http.StatusCreated {
		t.Fatalf("second add: status %d", rec.Code)
	}

	rec = do(t, mux, http.MethodGet, "/api/groups/"+groupID+"/availability-summary", nil,
		header{"X-Actor-Id", owner})
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d body %s", rec.Code, rec.Body)
	}
	var rows []struct {
		From           string `json:"from"`
		To             string `json:"to"`
		AvailableCount int    `json:"availableCount"`
		TotalMembers   int    `json:"totalMembers"`
	}
	decode(t, rec, &rows)
	want := []struct {
		from, to string
		count    int
	}{
		{"2025-08-15", "2025-08-19", 1},
		{"2025-08-20", "2025-08-25", 2},
		{"2025-08-26", "2025-09-09", 1},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %+v", len(want), rows)
	}
	for i, w := range want {
		if rows[i].From != w.from || rows[i].To != w.to || rows[i].AvailableCount != w.count || rows[i].TotalMembers != 2 {
			t.Fatalf("row %d = %+v, want %+v", i, rows[i], w)
		}
	}

	rec = do(t, mux, http.MethodGet, "/api/groups/"+groupID+"/member-availabilities", nil,
		header{"X-Actor-Id", joiner})
	if rec.Code != http.StatusOK {
		t.Fatalf("member availabilities: status %d", rec.Code)
	}
	var members []struct {
		DisplayName string `json:"displayName"`
		Ranges      []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"ranges"`
	}
	decode(t, rec, &members)
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	// Deleting someone else's record is forbidden; deleting your own works.
	rec = do(t, mux, http.MethodDelete, "/api/availabilities/"+created.ID, nil,
		header{"X-Actor-Id", joiner})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: status %d, want 403", rec.Code)
	}
	rec = do(t, mux, http.MethodDelete, "/api/availabilities/"+created.ID, nil,
		header{"X-Actor-Id", owner})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("own delete: status %d, want 204", rec.Code)
	}
	rec = do(t, mux, http.MethodDelete, "/api/availabilities/"+created.ID, nil,
		header{"X-Actor-Id", owner})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: status %d, want 404", rec.Code)
	}
}

func TestSummaryRequiresIdentity(t *testing.T) {
	mux := newTestMux(t)
	owner := createActor(t, mux)
	groupID := createGroup(t, mux, owner, "Alps trip")

	rec := do(t, mux, http.MethodGet, "/api/groups/"+groupID+"/availability-summary", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestClaimFlow(t *testing.T) {
	mux := newTestMux(t)
	actorID := createActor(t, mux)
	groupID := createGroup(t, mux, actorID, "Alps trip")
	token := signToken(t, "user-1", "dana@example.com", "Dana")

	rec := do(t, mux, http.MethodPost, "/api/auth/claim",
		map[string]string{"actorId": actorID},
		header{"Authorization", "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: status %d body %s", rec.Code, rec.Body)
	}
	var claim struct {
		UserID             string `json:"userId"`
		UpdatedMemberships int    `json:"updatedMemberships"`
	}
	decode(t, rec, &claim)
	if claim.UserID != "user-1" || claim.UpdatedMemberships != 1 {
		t.Fatalf("claim response %+v", claim)
	}

	// The group is now reachable with just the bearer token.
	rec = do(t, mux, http.MethodGet, "/api/groups", nil,
		header{"Authorization", "Bearer " + token})
	if rec.Code != http.StatusOK {
		t.Fatalf("list groups: status %d", rec.Code)
	}
	var list []struct {
		ID string `json:"id"`
	}
	decode(t, rec, &list)
	if len(list) != 1 || list[0].ID != groupID {
		t.Fatalf("groups after claim = %+v", list)
	}
}

func TestClaimWithoutTokenRejected(t *testing.T) {
	mux := newTestMux(t)
	actorID := createActor(t, mux)

	rec := do(t, mux, http.MethodPost, "/api/auth/claim",
		map[string]string{"actorId": actorID},
		header{"X-Actor-Id", actorID})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestInvalidTokenRejected(t *testing.T) {
	mux := newTestMux(t)
	rec := do(t, mux, http.MethodGet, "/api/groups", nil,
		header{"Authorization", "Bearer not.a.token"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestDeleteGroupOwnerOnly(t *testing.T) {
	mux := newTestMux(t)
	owner := createActor(t, mux)
	groupID := createGroup(t, mux, owner, "Alps trip")
	joiner := createActor(t, mux)
	do(t, mux, http.MethodPost, "/api/groups/"+groupID+"/join",
		map[string]string{"displayName": "Eli"}, header{"X-Actor-Id", joiner})

	rec := do(t, mux, http.MethodDelete, "/api/groups/"+groupID, nil,
		header{"X-Actor-Id", joiner})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member delete: status %d, want 403", rec.Code)
	}
	rec = do(t, mux, http.MethodDelete, "/api/groups/"+groupID, nil,
		header{"X-Actor-Id", owner})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("owner delete: status %d, want 204", rec.Code)
	}
	rec = do(t, mux, http.MethodGet, "/api/groups/"+groupID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("preview after delete: status %d, want 404", rec.Code)
	}
}

func TestTranscribeMock(t *testing.T) {
	mux := newTestMux(t)
	actorID := createActor(t, mux)

	rec := do(t, mux, http.MethodPost, "/api/voice/transcribe", nil,
		header{"X-Actor-Id", actorID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	decode(t, rec, &resp)
	if resp.From != "2025-08-15" || resp.To != "2025-09-09" {
		t.Fatalf("canned window = %+v", resp)
	}

	rec = do(t, mux, http.MethodPost, "/api/voice/transcribe", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous transcribe: status %d, want 401", rec.Code)
	}
}
