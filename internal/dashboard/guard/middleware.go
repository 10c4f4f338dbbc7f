package guard

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

// Session is the slice of session-store state guards consume.
type Session interface {
	Loading() bool
	Principal() *domain.Principal
}

// RoleResolver resolves the principal's role, returning ErrRoleUnresolved
// while it is still loading.
type RoleResolver interface {
	Resolve(ctx context.Context, email string) (domain.Role, error)
}

// Views renders the non-allowed outcomes.
type Views interface {
	Loading(w http.ResponseWriter, r *http.Request)
	Forbidden(w http.ResponseWriter, r *http.Request)
}

// Guard gates HTTP routes on session and role state.
type Guard struct {
	session  Session
	resolver RoleResolver
	views    Views
}

func New(session Session, resolver RoleResolver, views Views) *Guard {
	return &Guard{session: session, resolver: resolver, views: views}
}

// RequireAuth admits any authenticated principal.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return g.Require(domain.RoleNone, next)
}

// Require admits principals holding the required role. RoleNone requires
// only authentication.
func (g *Guard) Require(required domain.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in := Input{
			AuthLoading: g.session.Loading(),
			Principal:   g.session.Principal(),
			Required:    required,
		}

		// Role queries happen only for role-gated routes with a settled,
		// signed-in session; the resolver's own preconditions hold the line
		// on the token.
		if required != domain.RoleNone && !in.AuthLoading && in.Principal != nil {
			role, err := g.resolver.Resolve(r.Context(), in.Principal.Email)
			switch {
			case err == nil:
				in.Role = role
			case errors.Is(err, domain.ErrRoleUnresolved):
				in.RoleLoading = true
			case errors.Is(err, domain.ErrSessionInvalidated):
				// Forced sign-out already ran; fall through to the redirect.
				in.Principal = g.session.Principal()
			default:
				in.RoleLoading = true
			}
		}

		switch Evaluate(in) {
		case StateAuthLoading, StateRoleLoading:
			g.views.Loading(w, r)
		case StateUnauthenticated:
			redirectToLogin(w, r)
		case StateDenied:
			g.views.Forbidden(w, r)
		case StateAllowed:
			next.ServeHTTP(w, r)
		}
	})
}

// redirectToLogin sends the user to the login screen, carrying the
// originally requested path so they can return there after signing in.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login?from=" + url.QueryEscape(r.URL.Path)
	http.Redirect(w, r, target, http.StatusSeeOther)
}
