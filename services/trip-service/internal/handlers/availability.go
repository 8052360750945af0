package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
	"github.com/lmeineke/tripsync/services/trip-service/internal/schedule"
)

type dateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type availabilityResponse struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) AddAvailability(w http.ResponseWriter, r *http.Request) {
	var req dateRange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	start, err := schedule.ParseDate(req.From)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be a YYYY-MM-DD date"})
		return
	}
	end, err := schedule.ParseDate(req.To)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "to must be a YYYY-MM-DD date"})
		return
	}

	ident := identity.FromContext(r.Context())
	rec, err := s.availability.Add(r.Context(), ident, r.PathValue("groupID"), start, end)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, availabilityResponse{
		ID:        rec.ID,
		GroupID:   rec.GroupID,
		From:      schedule.FormatDate(rec.StartDate),
		To:        schedule.FormatDate(rec.EndDate),
		CreatedAt: rec.CreatedAt,
	})
}

// ListAvailabilities returns the caller's own raw records for the group.
func (s *Server) ListAvailabilities(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	records, err := s.availability.ListSelf(r.Context(), ident, r.PathValue("groupID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]availabilityResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, availabilityResponse{
			ID:        rec.ID,
			GroupID:   rec.GroupID,
			From:      schedule.FormatDate(rec.StartDate),
			To:        schedule.FormatDate(rec.EndDate),
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type summaryRow struct {
	From           string `json:"from"`
	To             string `json:"to"`
	AvailableCount int    `json:"availableCount"`
	TotalMembers   int    `json:"totalMembers"`
}

func (s *Server) AvailabilitySummary(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	rows, total, err := s.availability.Summary(r.Context(), ident, r.PathValue("groupID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]summaryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, summaryRow{
			From:           schedule.FormatDate(row.Start),
			To:             schedule.FormatDate(row.End),
			AvailableCount: row.Count,
			TotalMembers:   total,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type memberAvailabilityResponse struct {
	MemberID    string      `json:"memberId"`
	DisplayName string      `json:"displayName"`
	Role        string      `json:"role"`
	Ranges      []dateRange `json:"ranges"`
}

func (s *Server) MemberAvailabilities(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	views, err := s.availability.MemberAvailabilities(r.Context(), ident, r.PathValue("groupID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]memberAvailabilityResponse, 0, len(views))
	for _, view := range views {
		ranges := make([]dateRange, 0, len(view.Ranges))
		for _, rg := range view.Ranges {
			ranges = append(ranges, dateRange{From: schedule.FormatDate(rg.Start), To: schedule.FormatDate(rg.End)})
		}
		out = append(out, memberAvailabilityResponse{
			MemberID:    view.Member.ID,
			DisplayName: view.Member.DisplayName,
			Role:        view.Member.Role,
			Ranges:      ranges,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	if err := s.availability.Delete(r.Context(), ident, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
