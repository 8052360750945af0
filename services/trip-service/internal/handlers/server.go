// Package handlers is the HTTP boundary: request decoding, identity
// resolution and the mapping from domain errors to status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lmeineke/tripsync/services/trip-service/internal/availability"
	"github.com/lmeineke/tripsync/services/trip-service/internal/groups"
	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
)

type Server struct {
	identities    *identity.Service
	groups        *groups.Service
	availability  *availability.Service
	verifier      TokenVerifier
	logger        *slog.Logger
	publicBaseURL string
	voiceEnabled  bool
}

type ServerConfig struct {
	PublicBaseURL string
	VoiceEnabled  bool
}

func NewServer(
	identities *identity.Service,
	groupSvc *groups.Service,
	availabilitySvc *availability.Service,
	verifier TokenVerifier,
	logger *slog.Logger,
	cfg ServerConfig,
) *Server {
	return &Server{
		identities:    identities,
		groups:        groupSvc,
		availability:  availabilitySvc,
		verifier:      verifier,
		logger:        logger,
		publicBaseURL: cfg.PublicBaseURL,
		voiceEnabled:  cfg.VoiceEnabled,
	}
}

// Register mounts every route. The invite preview is the only group route
// open to anonymous callers.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.Health)
	mux.HandleFunc("POST /api/actors", s.withIdentity(s.CreateActor))
	mux.HandleFunc("POST /api/auth/claim", s.withIdentity(s.Claim))

	mux.HandleFunc("POST /api/groups", s.withIdentity(s.CreateGroup))
	mux.HandleFunc("GET /api/groups", s.withIdentity(s.ListGroups))
	mux.HandleFunc("GET /api/groups/{groupID}", s.withIdentity(s.InvitePreview))
	mux.HandleFunc("DELETE /api/groups/{groupID}", s.withIdentity(s.DeleteGroup))
	mux.HandleFunc("POST /api/groups/{groupID}/join", s.withIdentity(s.Join))

	mux.HandleFunc("POST /api/groups/{groupID}/availabilities", s.withIdentity(s.AddAvailability))
	mux.HandleFunc("GET /api/groups/{groupID}/availabilities", s.withIdentity(s.ListAvailabilities))
	mux.HandleFunc("GET /api/groups/{groupID}/availability-summary", s.withIdentity(s.AvailabilitySummary))
	mux.HandleFunc("GET /api/groups/{groupID}/member-availabilities", s.withIdentity(s.MemberAvailabilities))
	mux.HandleFunc("DELETE /api/availabilities/{id}", s.withIdentity(s.DeleteAvailability))

	if s.voiceEnabled {
		mux.HandleFunc("POST /api/voice/transcribe", s.withIdentity(s.Transcribe))
	}
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the domain error taxonomy onto status codes. Anything
// outside the taxonomy is a 500 and gets logged; taxonomy errors are the
// caller's problem and are not.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Msg})
	case errors.Is(err, model.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
	case errors.Is(err, model.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, model.ErrExpired):
		writeJSON(w, http.StatusGone, map[string]string{"error": "invite expired"})
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (s *Server) inviteLink(groupID string) string {
	return s.publicBaseURL + "/invite/" + groupID
}
