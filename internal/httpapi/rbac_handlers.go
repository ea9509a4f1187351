package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"arventa.group/internal/gate"
	"arventa.group/internal/rbac"
)

type updateRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (a *API) handlePermissions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensureAdmitted(w, r, gate.Request{RequiredPermission: rbac.PermRolesManage}) {
		return
	}
	perms, err := a.rbac.ListPermissions(r.Context())
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "permission store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (a *API) handleRoleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/roles/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "permissions" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	role, ok := rbac.ParseRole(parts[0])
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown role")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.handleRolePermissionsGet(w, r, role)
	case http.MethodPut:
		a.handleRolePermissionsPut(w, r, role)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) handleRolePermissionsGet(w http.ResponseWriter, r *http.Request, role rbac.Role) {
	if !a.ensureAdmitted(w, r, gate.Request{RequiredPermission: rbac.PermRolesManage}) {
		return
	}
	keys, err := a.rbac.RolePermissions(r.Context(), role)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "permission store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"role":        role,
		"elevated":    a.resolver.Elevated(role),
		"permissions": keys,
	})
}

func (a *API) handleRolePermissionsPut(w http.ResponseWriter, r *http.Request, role rbac.Role) {
	if !a.ensureAdmitted(w, r, gate.Request{RequiredPermission: rbac.PermRolesManage}) {
		return
	}
	var req updateRolePermissionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.resolver.SetRolePermissions(r.Context(), role, req.Permissions); err != nil {
		if errors.Is(err, rbac.ErrUnknownPermission) {
			writeError(w, r, http.StatusBadRequest, "unknown permission key")
			return
		}
		writeError(w, r, http.StatusServiceUnavailable, "permission store unavailable")
		return
	}
	a.audit(r, "rbac.role.permissions.update", map[string]any{
		"role":  role,
		"count": len(req.Permissions),
	})
	w.WriteHeader(http.StatusNoContent)
}
