package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"arventa.group/internal/auth"
	"arventa.group/internal/gate"
	"arventa.group/internal/profile"
	"arventa.group/internal/rbac"
)

type upsertProfileRequest struct {
	DisplayName  string `json:"display_name"`
	ContactPhone string `json:"contact_phone"`
	Role         string `json:"role"`
}

type createMemberRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleProfileResource(w http.ResponseWriter, r *http.Request) {
	identityID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/profiles/"), "/")
	if identityID == "" || strings.Contains(identityID, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.handleProfileGet(w, r, identityID)
	case http.MethodPut:
		a.handleProfilePut(w, r, identityID)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleProfileGet(w http.ResponseWriter, r *http.Request, identityID string) {
	// Members may read their own profile; anyone else's needs the manage
	// permission.
	req := gate.Request{RequiredPermission: rbac.PermProfilesView}
	if sess, ok := auth.SessionFromContext(r.Context()); ok && sess.IdentityID == identityID {
		req = gate.Request{}
	}
	if !a.ensureAdmitted(w, r, req) {
		return
	}
	p, err := a.profiles.Resolve(r.Context(), identityID)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "profile backend unavailable")
		return
	}
	if p == nil {
		writeError(w, r, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleProfilePut(w http.ResponseWriter, r *http.Request, identityID string) {
	if !a.ensureAdmitted(w, r, gate.Request{RequiredPermission: rbac.PermProfilesManage}) {
		return
	}
	var req upsertProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}

	existing, err := a.profiles.Resolve(r.Context(), identityID)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "profile backend unavailable")
		return
	}
	p := profile.Profile{
		IdentityID:   identityID,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Role:         role,
	}
	if existing != nil {
		p.CreatedAt = existing.CreatedAt
	}
	if err := a.profiles.Save(r.Context(), &p); err != nil {
		if errors.Is(err, profile.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, "invalid profile")
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "profile backend unavailable")
		return
	}
	a.audit(r, "profile.upsert", map[string]any{
		"identity_id": identityID,
		"role":        role,
	})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) handleMembers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.ensureAdmitted(w, r, gate.Request{RequiredPermission: rbac.PermMembersManage}) {
		return
	}
	var req createMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	member, err := a.auth.CreateMember(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, "invalid email or password")
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "member store unavailable")
		return
	}
	a.audit(r, "member.create", map[string]any{
		"member_id": member.ID,
		"email":     member.Email,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/profiles/%s", member.ID))
	writeJSON(w, http.StatusCreated, member)
}

func (a *API) handleMemberResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/members/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "role" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	if !a.ensureAdmitted(w, r, gate.Request{RequiredPermission: rbac.PermMembersManage}) {
		return
	}
	identityID := parts[0]

	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := rbac.ParseRole(req.Role)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}

	p, err := a.profiles.Resolve(r.Context(), identityID)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "profile backend unavailable")
		return
	}
	if p == nil {
		writeError(w, r, http.StatusNotFound, "profile not found")
		return
	}
	p.Role = role
	if err := a.profiles.Save(r.Context(), p); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "profile backend unavailable")
		return
	}
	a.audit(r, "member.role.change", map[string]any{
		"identity_id": identityID,
		"role":        role,
	})
	writeJSON(w, http.StatusOK, p)
}
