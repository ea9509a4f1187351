package gate

import (
	"context"
	"errors"
	"testing"

	"arventa.group/internal/auth"
	"arventa.group/internal/profile"
	"arventa.group/internal/rbac"
)

type fakeSessions struct {
	snap  auth.Snapshot
	epoch uint64

	// bumpOnSnapshot simulates an identity change landing while later
	// checks are still in flight.
	bumpOnSnapshot bool
}

func (f *fakeSessions) Snapshot(context.Context, string) auth.Snapshot {
	if f.bumpOnSnapshot {
		f.epoch++
	}
	return f.snap
}

func (f *fakeSessions) Epoch() uint64 { return f.epoch }

type fakeProfiles struct {
	profile *profile.Profile
	err     error
	calls   int

	// onResolve runs before returning, letting tests mutate shared state
	// mid-evaluation.
	onResolve func()
}

func (f *fakeProfiles) Resolve(context.Context, string) (*profile.Profile, error) {
	f.calls++
	if f.onResolve != nil {
		f.onResolve()
	}
	return f.profile, f.err
}

type fakePerms struct {
	elevated map[rbac.Role]bool
	views    map[rbac.Role]rbac.View

	// onView runs before returning, letting tests mutate shared state
	// mid-evaluation.
	onView func()
}

func (f *fakePerms) Elevated(role rbac.Role) bool { return f.elevated[role] }

func (f *fakePerms) View(_ context.Context, role rbac.Role) rbac.View {
	if f.onView != nil {
		f.onView()
	}
	if view, ok := f.views[role]; ok {
		return view
	}
	return rbac.View{Role: role}
}

func settledSession(identityID string, stepUp bool) auth.Snapshot {
	return auth.Snapshot{
		Settled:        true,
		IdentityID:     identityID,
		SessionID:      "sess-1",
		StepUpVerified: stepUp,
	}
}

func managerProfile() *profile.Profile {
	return &profile.Profile{
		IdentityID:  "member-1",
		DisplayName: "Dana Serik",
		Role:        rbac.RoleManager,
	}
}

func managerView(keys ...string) rbac.View {
	resolver := rbac.NewResolver(seedStore(keys))
	return resolver.View(context.Background(), rbac.RoleManager)
}

func seedStore(keys []string) rbac.Store {
	store := rbac.NewMemoryStore()
	ctx := context.Background()
	_ = store.EnsurePermissions(ctx, rbac.BuiltinPermissions)
	_ = store.SetRolePermissions(ctx, rbac.RoleManager, keys)
	return store
}

func TestUnsettledSessionIsPending(t *testing.T) {
	g := New(
		&fakeSessions{snap: auth.Snapshot{Settled: false}},
		&fakeProfiles{},
		&fakePerms{},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{})
	if out.Decision != DecisionPending {
		t.Fatalf("decision = %q, want pending", out.Decision)
	}
}

func TestSignedOutRedirectsToLogin(t *testing.T) {
	g := New(
		&fakeSessions{snap: auth.Snapshot{Settled: true}},
		&fakeProfiles{},
		&fakePerms{},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{})
	if out.Decision != DecisionRedirect || out.RedirectTo != RedirectLogin {
		t.Fatalf("outcome = %+v, want redirect to login", out)
	}
}

func TestMissingStepUpRedirectsToOTP(t *testing.T) {
	profiles := &fakeProfiles{profile: managerProfile()}
	g := New(
		&fakeSessions{snap: settledSession("member-1", false)},
		profiles,
		&fakePerms{},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{})
	if out.Decision != DecisionRedirect || out.RedirectTo != RedirectOTPChallenge {
		t.Fatalf("outcome = %+v, want redirect to otp_challenge", out)
	}
	if profiles.calls != 0 {
		t.Fatal("authorization must not run before authentication completes")
	}
}

func TestProfileFetchFailureIsPendingNotDenied(t *testing.T) {
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{err: errors.New("backend down")},
		&fakePerms{},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{})
	if out.Decision != DecisionPending {
		t.Fatalf("decision = %q, want pending on fetch failure", out.Decision)
	}
	if out.Reason != "" {
		t.Fatalf("reason = %q, want empty", out.Reason)
	}
}

func TestMissingProfileIsTerminal(t *testing.T) {
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{profile: nil},
		&fakePerms{},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{})
	if out.Decision != DecisionTerminal || out.Reason != ReasonProfileMissing {
		t.Fatalf("outcome = %+v, want terminal profile_missing", out)
	}
}

func TestStaleProfileResultIsDiscarded(t *testing.T) {
	sessions := &fakeSessions{snap: settledSession("member-1", true)}
	profiles := &fakeProfiles{
		profile:   nil, // the fetched answer would be "no profile"
		onResolve: func() { sessions.epoch++ },
	}
	g := New(sessions, profiles, &fakePerms{})

	out := g.Evaluate(context.Background(), "sess-1", Request{})
	if out.Decision != DecisionPending {
		t.Fatalf("decision = %q, want pending when identity changed mid-fetch", out.Decision)
	}
}

func TestStalePermissionResultIsDiscarded(t *testing.T) {
	sessions := &fakeSessions{snap: settledSession("member-1", true)}
	perms := &fakePerms{
		// The fetched set would grant the permission, but the member
		// signed out while it was loading.
		views:  map[rbac.Role]rbac.View{rbac.RoleManager: managerView(rbac.PermReportsView)},
		onView: func() { sessions.epoch++ },
	}
	g := New(sessions, &fakeProfiles{profile: managerProfile()}, perms)

	out := g.Evaluate(context.Background(), "sess-1", Request{RequiredPermission: rbac.PermReportsView})
	if out.Decision != DecisionPending {
		t.Fatalf("decision = %q, want pending when identity changed mid-fetch", out.Decision)
	}
}

func TestLoginRedirectCarriesReturnDestination(t *testing.T) {
	g := New(
		&fakeSessions{snap: auth.Snapshot{Settled: true}},
		&fakeProfiles{},
		&fakePerms{},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{ReturnTo: "/v1/profiles/self"})
	if out.Decision != DecisionRedirect || out.RedirectTo != RedirectLogin {
		t.Fatalf("outcome = %+v, want redirect to login", out)
	}
	if out.ReturnTo != "/v1/profiles/self" {
		t.Fatalf("return_to = %q, want the requested destination", out.ReturnTo)
	}
}

func TestElevatedRoleBypassesRoleAndPermission(t *testing.T) {
	p := managerProfile()
	p.Role = rbac.RoleAdmin
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{profile: p},
		&fakePerms{elevated: map[rbac.Role]bool{rbac.RoleAdmin: true}},
	)

	out := g.Evaluate(context.Background(), "sess-1", Request{
		RequiredRole:       rbac.RoleStudent,
		RequiredPermission: rbac.PermFinanceManage,
	})
	if out.Decision != DecisionAllow {
		t.Fatalf("outcome = %+v, want allow for elevated role", out)
	}
}

func TestElevatedRoleDoesNotSkipStepUp(t *testing.T) {
	p := managerProfile()
	p.Role = rbac.RoleSuperAdmin
	g := New(
		&fakeSessions{snap: settledSession("member-1", false)},
		&fakeProfiles{profile: p},
		&fakePerms{elevated: map[rbac.Role]bool{rbac.RoleSuperAdmin: true}},
	)

	out := g.Evaluate(context.Background(), "sess-1", Request{})
	if out.Decision != DecisionRedirect || out.RedirectTo != RedirectOTPChallenge {
		t.Fatalf("outcome = %+v, want redirect to otp_challenge before any role handling", out)
	}
}

func TestElevatedRoleNotStuckOnUnsettledPermissions(t *testing.T) {
	p := managerProfile()
	p.Role = rbac.RoleSuperAdmin
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{profile: p},
		&fakePerms{
			elevated: map[rbac.Role]bool{rbac.RoleSuperAdmin: true},
			// Deliberately no view: the elevated check must come first.
		},
	)

	out := g.Evaluate(context.Background(), "sess-1", Request{RequiredPermission: rbac.PermReportsView})
	if out.Decision != DecisionAllow {
		t.Fatalf("outcome = %+v, want allow without consulting permission sets", out)
	}
}

func TestWrongRoleIsTerminal(t *testing.T) {
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{profile: managerProfile()},
		&fakePerms{},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{RequiredRole: rbac.RoleShareholder})
	if out.Decision != DecisionTerminal || out.Reason != ReasonWrongRole {
		t.Fatalf("outcome = %+v, want terminal wrong_role", out)
	}
}

func TestPermissionGranted(t *testing.T) {
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{profile: managerProfile()},
		&fakePerms{views: map[rbac.Role]rbac.View{
			rbac.RoleManager: managerView(rbac.PermReportsView),
		}},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{RequiredPermission: rbac.PermReportsView})
	if out.Decision != DecisionAllow {
		t.Fatalf("outcome = %+v, want allow", out)
	}
}

func TestPermissionMissingIsTerminal(t *testing.T) {
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{profile: managerProfile()},
		&fakePerms{views: map[rbac.Role]rbac.View{
			rbac.RoleManager: managerView(rbac.PermCoursesView),
		}},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{RequiredPermission: rbac.PermFinanceManage})
	if out.Decision != DecisionTerminal || out.Reason != ReasonMissingPermission {
		t.Fatalf("outcome = %+v, want terminal missing_permission", out)
	}
}

func TestUnsettledPermissionsArePending(t *testing.T) {
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{profile: managerProfile()},
		&fakePerms{views: map[rbac.Role]rbac.View{
			rbac.RoleManager: {Role: rbac.RoleManager, Settled: false},
		}},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{RequiredPermission: rbac.PermReportsView})
	if out.Decision != DecisionPending {
		t.Fatalf("decision = %q, want pending on unsettled permission set", out.Decision)
	}
}

func TestNoRequirementsAdmitsVerifiedMember(t *testing.T) {
	g := New(
		&fakeSessions{snap: settledSession("member-1", true)},
		&fakeProfiles{profile: managerProfile()},
		&fakePerms{},
	)
	out := g.Evaluate(context.Background(), "sess-1", Request{})
	if out.Decision != DecisionAllow {
		t.Fatalf("outcome = %+v, want allow", out)
	}
}

// The full evaluation order: each earlier failure wins over every later one.
func TestEvaluationOrder(t *testing.T) {
	cases := []struct {
		name     string
		sessions *fakeSessions
		profiles *fakeProfiles
		want     Outcome
	}{
		{
			name:     "unsettled beats signed-out",
			sessions: &fakeSessions{snap: auth.Snapshot{}},
			profiles: &fakeProfiles{},
			want:     Outcome{Decision: DecisionPending},
		},
		{
			name:     "signed-out beats missing step-up",
			sessions: &fakeSessions{snap: auth.Snapshot{Settled: true}},
			profiles: &fakeProfiles{},
			want:     Outcome{Decision: DecisionRedirect, RedirectTo: RedirectLogin},
		},
		{
			name:     "missing step-up beats missing profile",
			sessions: &fakeSessions{snap: settledSession("member-1", false)},
			profiles: &fakeProfiles{profile: nil},
			want:     Outcome{Decision: DecisionRedirect, RedirectTo: RedirectOTPChallenge},
		},
		{
			name:     "missing profile beats wrong role",
			sessions: &fakeSessions{snap: settledSession("member-1", true)},
			profiles: &fakeProfiles{profile: nil},
			want:     Outcome{Decision: DecisionTerminal, Reason: ReasonProfileMissing},
		},
		{
			name:     "wrong role beats missing permission",
			sessions: &fakeSessions{snap: settledSession("member-1", true)},
			profiles: &fakeProfiles{profile: managerProfile()},
			want:     Outcome{Decision: DecisionTerminal, Reason: ReasonWrongRole},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(tc.sessions, tc.profiles, &fakePerms{})
			out := g.Evaluate(context.Background(), "sess-1", Request{
				RequiredRole:       rbac.RoleShareholder,
				RequiredPermission: rbac.PermFinanceManage,
			})
			if out != tc.want {
				t.Fatalf("outcome = %+v, want %+v", out, tc.want)
			}
		})
	}
}
