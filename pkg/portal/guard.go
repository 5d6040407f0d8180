package portal

type Decision int

const (
	Allow Decision = iota
	Loading
	Redirect
)

// Resolution is the guard outcome for a route. RememberFrom marks
// redirects that should return the user to the original route after a
// successful login.
type Resolution struct {
	Decision     Decision
	Target       string
	RememberFrom bool
}

const (
	LoginPath      = "/login"
	AdminHomePath  = "/admin"
	TenantHomePath = "/tenant"
)

// Resolve gates a route that needs requiredRole (empty means any
// authenticated user). A signed-in user with the wrong role is sent to
// their own home, never to /login and never to an error page.
func Resolve(state State, user *User, requiredRole string) Resolution {
	switch state {
	case StateAuthenticating:
		return Resolution{Decision: Loading}
	case StateAnonymous:
		return Resolution{Decision: Redirect, Target: LoginPath, RememberFrom: true}
	}

	if user == nil {
		return Resolution{Decision: Redirect, Target: LoginPath, RememberFrom: true}
	}
	if requiredRole != "" && user.Role != requiredRole {
		return Resolution{Decision: Redirect, Target: HomePath(user.Role)}
	}
	return Resolution{Decision: Allow}
}

// PublicOnly gates routes like /login that signed-in users should not
// see; they bounce to their home instead.
func PublicOnly(state State, user *User) Resolution {
	if state == StateAuthenticating {
		return Resolution{Decision: Loading}
	}
	if state == StateAuthenticated && user != nil {
		return Resolution{Decision: Redirect, Target: HomePath(user.Role)}
	}
	return Resolution{Decision: Allow}
}

func HomePath(role string) string {
	if role == RoleAdmin {
		return AdminHomePath
	}
	return TenantHomePath
}
