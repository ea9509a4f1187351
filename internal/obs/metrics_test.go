package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/metrics":                      "/metrics",
		"/v1/profiles/01J8ZK":           "/v1/profiles/:identity_id",
		"/v1/roles/manager/permissions": "/v1/roles/:role/permissions",
		"/v1/members/01J8ZK/role":       "/v1/members/:id/role",
		"/v1/gate/evaluate":             "/v1/gate/evaluate",
		"/v1/stepup/verify?attempt=2":   "/v1/stepup/verify",
		"/v1/permissions":               "/v1/permissions",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
