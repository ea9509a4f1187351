package httpapi

import (
	"errors"
	"net/http"
	"time"

	"arventa.group/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, auth.ErrAccountDisabled):
			writeError(w, r, http.StatusForbidden, "account disabled")
		case errors.Is(err, auth.ErrUnavailable):
			writeError(w, r, http.StatusServiceUnavailable, "identity backend unavailable")
		default:
			writeError(w, r, http.StatusInternalServerError, "sign-in failed")
		}
		return
	}

	a.audit(r, "auth.signin", map[string]any{
		"identity_id": res.Session.IdentityID,
		"session_id":  res.Session.ID,
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		SessionID: res.Session.ID,
		ExpiresAt: res.ExpiresAt,
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not signed in")
		return
	}
	if err := a.auth.SignOut(r.Context(), sess.ID); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "sign-out failed")
		return
	}
	a.audit(r, "auth.signout", map[string]any{
		"identity_id": sess.IdentityID,
		"session_id":  sess.ID,
	})
	w.WriteHeader(http.StatusNoContent)
}
