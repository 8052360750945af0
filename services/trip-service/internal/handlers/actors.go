package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
)

type createActorRequest struct {
	ActorID string `json:"actorId"`
}

type createActorResponse struct {
	ActorID   string    `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateActor provisions a guest actor id. Sending an existing id back is a
// no-op that returns the same actor, so clients can call this on every load.
func (s *Server) CreateActor(w http.ResponseWriter, r *http.Request) {
	var req createActorRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
	}

	actor, err := s.identities.EnsureActor(r.Context(), req.ActorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createActorResponse{ActorID: actor.ID, CreatedAt: actor.CreatedAt})
}

type claimRequest struct {
	ActorID string `json:"actorId"`
}

type claimResponse struct {
	ActorID            string    `json:"actorId"`
	UserID             string    `json:"userId"`
	ClaimedAt          time.Time `json:"claimedAt"`
	UpdatedMemberships int       `json:"updatedMemberships"`
}

// Claim binds the caller's guest actor to their authenticated user.
func (s *Server) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}

	ident := identity.FromContext(r.Context())
	result, err := s.identities.ClaimActor(r.Context(), ident, req.ActorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		ActorID:            result.ActorID,
		UserID:             result.UserID,
		ClaimedAt:          result.ClaimedAt,
		UpdatedMemberships: result.UpdatedMemberships,
	})
}
