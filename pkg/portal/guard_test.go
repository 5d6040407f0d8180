package portal

import "testing"

func TestResolve(t *testing.T) {
	admin := &User{ID: "a1", Role: RoleAdmin}
	tenant := &User{ID: "t1", Role: RoleTenant}

	tests := []struct {
		name         string
		state        State
		user         *User
		requiredRole string
		decision     Decision
		target       string
		rememberFrom bool
	}{
		{"anonymous redirects to login", StateAnonymous, nil, RoleAdmin, Redirect, LoginPath, true},
		{"authenticating shows loading", StateAuthenticating, nil, RoleAdmin, Loading, "", false},
		{"admin allowed on admin route", StateAuthenticated, admin, RoleAdmin, Allow, "", false},
		{"tenant allowed on tenant route", StateAuthenticated, tenant, RoleTenant, Allow, "", false},
		{"any role allowed when unspecified", StateAuthenticated, tenant, "", Allow, "", false},
		{"tenant on admin route goes home", StateAuthenticated, tenant, RoleAdmin, Redirect, TenantHomePath, false},
		{"admin on tenant route goes home", StateAuthenticated, admin, RoleTenant, Redirect, AdminHomePath, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.state, tt.user, tt.requiredRole)
			if got.Decision != tt.decision {
				t.Fatalf("decision = %v, want %v", got.Decision, tt.decision)
			}
			if got.Target != tt.target {
				t.Fatalf("target = %q, want %q", got.Target, tt.target)
			}
			if got.RememberFrom != tt.rememberFrom {
				t.Fatalf("rememberFrom = %v, want %v", got.RememberFrom, tt.rememberFrom)
			}
		})
	}
}

func TestPublicOnly(t *testing.T) {
	if got := PublicOnly(StateAnonymous, nil); got.Decision != Allow {
		t.Fatalf("anonymous must see public routes, got %v", got.Decision)
	}
	if got := PublicOnly(StateAuthenticating, nil); got.Decision != Loading {
		t.Fatalf("authenticating must show loading, got %v", got.Decision)
	}
	got := PublicOnly(StateAuthenticated, &User{ID: "a1", Role: RoleAdmin})
	if got.Decision != Redirect || got.Target != AdminHomePath {
		t.Fatalf("signed-in admin must bounce home, got %+v", got)
	}
}
