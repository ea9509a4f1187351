// Package gate decides whether a request may reach a protected operation. It
// evaluates authentication before authorization in a fixed order, over one
// consistent snapshot of session state, and refuses to emit a decision based
// on state that changed mid-flight.
package gate

import (
	"context"

	"arventa.group/internal/auth"
	"arventa.group/internal/obs"
	"arventa.group/internal/profile"
	"arventa.group/internal/rbac"
)

// Decision is the gate's verdict.
type Decision string

const (
	// DecisionPending means the answer is not yet knowable: state is still
	// settling or a backend could not answer. Callers wait and re-evaluate;
	// nothing is shown or denied on a pending verdict.
	DecisionPending Decision = "pending"
	// DecisionAllow admits the request.
	DecisionAllow Decision = "allow"
	// DecisionRedirect denies with a recovery path the caller can take.
	DecisionRedirect Decision = "deny_redirect"
	// DecisionTerminal denies with no recovery path from the caller's side.
	DecisionTerminal Decision = "deny_terminal"
)

// RedirectTarget names where a redirect denial sends the caller.
type RedirectTarget string

const (
	RedirectLogin        RedirectTarget = "login"
	RedirectOTPChallenge RedirectTarget = "otp_challenge"
)

// DenyReason explains a terminal denial.
type DenyReason string

const (
	ReasonProfileMissing    DenyReason = "profile_missing"
	ReasonWrongRole         DenyReason = "wrong_role"
	ReasonMissingPermission DenyReason = "missing_permission"
)

// Request states what a protected operation demands beyond authentication.
// Zero values demand nothing: a Request{} passes any authenticated,
// step-up-verified member with a profile. ReturnTo names the destination the
// caller was headed for; a login redirect carries it back so the caller can
// resume there after signing in.
type Request struct {
	RequiredRole       rbac.Role `json:"required_role,omitempty"`
	RequiredPermission string    `json:"required_permission,omitempty"`
	ReturnTo           string    `json:"return_to,omitempty"`
}

// Outcome is the gate's full answer.
type Outcome struct {
	Decision   Decision       `json:"decision"`
	RedirectTo RedirectTarget `json:"redirect_to,omitempty"`
	Reason     DenyReason     `json:"reason,omitempty"`
	ReturnTo   string         `json:"return_to,omitempty"`
}

func pending() Outcome { return Outcome{Decision: DecisionPending} }
func allow() Outcome   { return Outcome{Decision: DecisionAllow} }
func redirect(to RedirectTarget) Outcome {
	return Outcome{Decision: DecisionRedirect, RedirectTo: to}
}
func terminal(reason DenyReason) Outcome {
	return Outcome{Decision: DecisionTerminal, Reason: reason}
}

// SessionSource supplies session state and the identity-change epoch.
type SessionSource interface {
	Snapshot(ctx context.Context, sessionID string) auth.Snapshot
	Epoch() uint64
}

// ProfileSource resolves profiles; (nil, nil) means no profile exists.
type ProfileSource interface {
	Resolve(ctx context.Context, identityID string) (*profile.Profile, error)
}

// PermissionSource answers role questions.
type PermissionSource interface {
	Elevated(role rbac.Role) bool
	View(ctx context.Context, role rbac.Role) rbac.View
}

// Gate evaluates access decisions.
type Gate struct {
	sessions SessionSource
	profiles ProfileSource
	perms    PermissionSource
}

// New wires the gate to its sources.
func New(sessions SessionSource, profiles ProfileSource, perms PermissionSource) *Gate {
	return &Gate{sessions: sessions, profiles: profiles, perms: perms}
}

// Evaluate runs the checks in order. Authentication (session settled, signed
// in, step-up verified) always precedes authorization (profile, role,
// permission); a profile or permission set fetched after the identity changed
// underneath us is discarded and the verdict stays pending rather than built
// on stale state.
func (g *Gate) Evaluate(ctx context.Context, sessionID string, req Request) Outcome {
	out := g.evaluate(ctx, sessionID, req)
	obs.GateDecision(string(out.Decision))
	return out
}

func (g *Gate) evaluate(ctx context.Context, sessionID string, req Request) Outcome {
	epoch := g.sessions.Epoch()

	snap := g.sessions.Snapshot(ctx, sessionID)
	if !snap.Settled {
		return pending()
	}
	if snap.IdentityID == "" {
		out := redirect(RedirectLogin)
		out.ReturnTo = req.ReturnTo
		return out
	}
	if !snap.StepUpVerified {
		return redirect(RedirectOTPChallenge)
	}

	p, err := g.profiles.Resolve(ctx, snap.IdentityID)
	if err != nil {
		// Transient fetch failure: retryable, not a denial.
		return pending()
	}
	if g.sessions.Epoch() != epoch {
		// Identity changed while we were reading; this result describes
		// a session that no longer exists in that form.
		return pending()
	}
	if p == nil {
		return terminal(ReasonProfileMissing)
	}

	// Elevated roles skip both the role and the permission check, so an
	// elevated member is never blocked by a slow or empty permission set.
	if g.perms.Elevated(p.Role) {
		return allow()
	}

	if req.RequiredRole != "" && p.Role != req.RequiredRole {
		return terminal(ReasonWrongRole)
	}

	if req.RequiredPermission != "" {
		view := g.perms.View(ctx, p.Role)
		if g.sessions.Epoch() != epoch {
			// Same rule as the profile fetch: a permission set resolved
			// across an identity change must not produce a verdict.
			return pending()
		}
		if !view.Settled {
			return pending()
		}
		if !view.Allows(req.RequiredPermission) {
			return terminal(ReasonMissingPermission)
		}
	}

	return allow()
}
