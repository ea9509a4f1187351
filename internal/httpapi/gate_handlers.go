package httpapi

import (
	"net/http"

	"arventa.group/internal/auth"
	"arventa.group/internal/gate"
	"arventa.group/internal/rbac"
)

type evaluateRequest struct {
	RequiredRole       string `json:"required_role"`
	RequiredPermission string `json:"required_permission"`
	ReturnTo           string `json:"return_to"`
}

// handleGateEvaluate runs the gate for the caller's session and returns the
// outcome as data. It always answers 200: the verdict is the payload, not the
// transport status.
func (a *API) handleGateEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req evaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	gateReq := gate.Request{RequiredPermission: req.RequiredPermission, ReturnTo: req.ReturnTo}
	if req.RequiredRole != "" {
		role, ok := rbac.ParseRole(req.RequiredRole)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		gateReq.RequiredRole = role
	}

	sessionID := ""
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		sessionID = sess.ID
	}
	out := a.gate.Evaluate(r.Context(), sessionID, gateReq)
	writeJSON(w, http.StatusOK, out)
}

// ensureAdmitted runs the gate before a protected handler and converts a
// non-allow outcome to the matching HTTP response. Pending maps to 503 with
// Retry-After so clients wait and retry instead of treating it as a denial.
func (a *API) ensureAdmitted(w http.ResponseWriter, r *http.Request, req gate.Request) bool {
	sessionID := ""
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		sessionID = sess.ID
	}
	if req.ReturnTo == "" {
		req.ReturnTo = r.URL.Path
	}
	out := a.gate.Evaluate(r.Context(), sessionID, req)
	switch out.Decision {
	case gate.DecisionAllow:
		return true
	case gate.DecisionPending:
		w.Header().Set("Retry-After", "1")
		writeError(w, r, http.StatusServiceUnavailable, "authorization pending")
	case gate.DecisionRedirect:
		body := map[string]any{
			"error":       "authentication required",
			"redirect_to": out.RedirectTo,
		}
		if out.ReturnTo != "" {
			body["return_to"] = out.ReturnTo
		}
		writeJSON(w, http.StatusUnauthorized, body)
	case gate.DecisionTerminal:
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":  "access denied",
			"reason": out.Reason,
		})
	}
	return false
}
