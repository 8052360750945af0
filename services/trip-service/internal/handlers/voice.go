package handlers

import (
	"net/http"

	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
	"github.com/lmeineke/tripsync/services/trip-service/internal/model"
)

type transcribeResponse struct {
	Transcript string `json:"transcript"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// Transcribe is a development stand-in for speech-to-date extraction. It
// accepts any audio upload and returns a fixed window; real transcription
// lives behind a provider integration that is not wired up here.
func (s *Server) Transcribe(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	if ident.Anonymous() {
		s.writeError(w, r, model.ErrUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, transcribeResponse{
		Transcript: "I'm free from August fifteenth until September ninth",
		From:       "2025-08-15",
		To:         "2025-09-09",
	})
}
