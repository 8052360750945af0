package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lmeineke/tripsync/services/trip-service/internal/identity"
)

type memberResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type createGroupRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type groupResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	CreatedAt  time.Time      `json:"createdAt"`
	InviteLink string         `json:"inviteLink"`
	Member     memberResponse `json:"member"`
}

func (s *Server) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	ident := identity.FromContext(r.Context())
	if req.DisplayName != "" {
		ident.DisplayName = req.DisplayName
	}
	if ident.DisplayName == "" {
		ident.DisplayName = "Trip organizer"
	}

	group, owner, _, err := s.groups.CreateGroup(r.Context(), ident, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, groupResponse{
		ID:         group.ID,
		Name:       group.Name,
		CreatedAt:  group.CreatedAt,
		InviteLink: s.inviteLink(group.ID),
		Member:     memberResponse{ID: owner.ID, DisplayName: owner.DisplayName, Role: owner.Role},
	})
}

func (s *Server) ListGroups(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	memberships, err := s.groups.Groups(r.Context(), ident)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]groupResponse, 0, len(memberships))
	for _, ms := range memberships {
		out = append(out, groupResponse{
			ID:         ms.Group.ID,
			Name:       ms.Group.Name,
			CreatedAt:  ms.Group.CreatedAt,
			InviteLink: s.inviteLink(ms.Group.ID),
			Member:     memberResponse{ID: ms.Member.ID, DisplayName: ms.Member.DisplayName, Role: ms.Member.Role},
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type invitePreviewResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	MemberCount int       `json:"memberCount"`
	ExpiresAt   time.Time `json:"expiresAt"`
	InviteLink  string    `json:"inviteLink"`
}

// InvitePreview is the public landing view behind an invite link.
func (s *Server) InvitePreview(w http.ResponseWriter, r *http.Request) {
	preview, err := s.groups.InvitePreview(r.Context(), r.PathValue("groupID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invitePreviewResponse{
		ID:          preview.Group.ID,
		Name:        preview.Group.Name,
		MemberCount: preview.MemberCount,
		ExpiresAt:   preview.Invite.ExpiresAt,
		InviteLink:  s.inviteLink(preview.Group.ID),
	})
}

type joinRequest struct {
	DisplayName string `json:"displayName"`
}

type joinResponse struct {
	GroupID       string `json:"groupId"`
	GroupName     string `json:"groupName"`
	MemberID      string `json:"memberId"`
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
	AlreadyMember bool   `json:"alreadyMember"`
}

func (s *Server) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
	}

	ident := identity.FromContext(r.Context())
	result, err := s.groups.Join(r.Context(), ident, r.PathValue("groupID"), strings.TrimSpace(req.DisplayName))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{
		GroupID:       result.Group.ID,
		GroupName:     result.Group.Name,
		MemberID:      result.Member.ID,
		DisplayName:   result.Member.DisplayName,
		Role:          result.Member.Role,
		AlreadyMember: result.AlreadyMember,
	})
}

func (s *Server) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	ident := identity.FromContext(r.Context())
	if err := s.groups.DeleteGroup(r.Context(), ident, r.PathValue("groupID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
