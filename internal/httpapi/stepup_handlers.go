package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"arventa.group/internal/auth"
	"arventa.group/internal/otp"
)

type stepUpRequestResponse struct {
	Destination string `json:"destination"`
}

type stepUpVerifyRequest struct {
	Code string `json:"code"`
}

func (a *API) handleStepUpRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not signed in")
		return
	}

	masked, err := a.otp.Request(r.Context(), sess.IdentityID)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrMissingDestination):
			writeError(w, r, http.StatusConflict, "no delivery destination on profile")
		case errors.Is(err, otp.ErrDelivery):
			// The code was generated but never reached the user; say so
			// instead of presenting a code-entry prompt that cannot
			// succeed.
			writeError(w, r, http.StatusUnprocessableEntity, "code delivery failed")
		case errors.Is(err, otp.ErrUnavailable):
			writeError(w, r, http.StatusServiceUnavailable, "verification backend unavailable")
		default:
			writeError(w, r, http.StatusInternalServerError, "code request failed")
		}
		return
	}

	a.audit(r, "stepup.code.requested", map[string]any{
		"identity_id": sess.IdentityID,
	})
	writeJSON(w, http.StatusOK, stepUpRequestResponse{Destination: masked})
}

func (a *API) handleStepUpVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "not signed in")
		return
	}
	var req stepUpVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	err := a.otp.Verify(r.Context(), sess.ID, sess.IdentityID, strings.TrimSpace(req.Code))
	if err != nil {
		a.audit(r, "stepup.verify.failed", map[string]any{
			"identity_id": sess.IdentityID,
			"reason":      err.Error(),
		})
		switch {
		case errors.Is(err, otp.ErrInvalidCode):
			writeError(w, r, http.StatusUnauthorized, "invalid code")
		case errors.Is(err, otp.ErrExpired):
			writeError(w, r, http.StatusUnauthorized, "code expired")
		case errors.Is(err, otp.ErrNoActiveCode):
			writeError(w, r, http.StatusConflict, "no active code; request a new one")
		case errors.Is(err, otp.ErrTooManyAttempts):
			writeError(w, r, http.StatusTooManyRequests, "too many attempts; request a new code")
		case errors.Is(err, otp.ErrUnavailable):
			writeError(w, r, http.StatusServiceUnavailable, "verification backend unavailable")
		default:
			writeError(w, r, http.StatusInternalServerError, "verification failed")
		}
		return
	}

	a.audit(r, "stepup.verify.ok", map[string]any{
		"identity_id": sess.IdentityID,
		"session_id":  sess.ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{"step_up_verified": true})
}
