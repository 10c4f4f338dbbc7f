package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scholarhub/scholarhub/internal/dashboard/api"
	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/guard"
	"github.com/scholarhub/scholarhub/internal/dashboard/identity"
	"github.com/scholarhub/scholarhub/internal/dashboard/roles"
	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
	"github.com/scholarhub/scholarhub/internal/dashboard/session"
	"github.com/scholarhub/scholarhub/internal/dashboard/tokenstore"
)

// fixture wires the full request path against a fake backend: identity
// provider, session store, secure client, typed clients, guard, and router.
type fixture struct {
	router  *Router
	session *session.Store

	mu      sync.Mutex
	upserts []api.User
	roles   map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{roles: map[string]string{}}

	backend := http.NewServeMux()
	backend.HandleFunc("POST /getToken", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-" + in.Email})
	})
	backend.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var in api.User
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		f.mu.Lock()
		f.upserts = append(f.upserts, in)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	})
	backend.HandleFunc("GET /users/{email}/role", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		role := f.roles[r.PathValue("email")]
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"role": role})
	})
	backend.HandleFunc("PATCH /users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	backend.HandleFunc("GET /applications", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.Application{})
	})

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	logger := slog.Default()
	provider := identity.NewLocal()
	tokens := tokenstore.NewMemory()
	sc := secure.New(srv.URL, tokens, logger)
	apiClient := api.New(srv.URL, sc)

	f.session = session.New(provider, nil, apiClient, tokens, logger)
	t.Cleanup(f.session.Close)

	resolver := roles.NewResolver(f.session, apiClient,
		roles.NewMemory(), roles.DefaultTTL, domain.RoleStudent, logger)
	g := guard.New(f.session, resolver, JSONViews{})

	f.router = NewRouter(logger, g, DefaultRouteTable(),
		&AuthHandler{Session: f.session, Users: apiClient.Users(), Logger: logger},
		&DashboardHandler{Session: f.session, API: apiClient, Roles: resolver, Logger: logger},
	)
	f.router.ApplyRoutes()

	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func (f *fixture) register(t *testing.T, email string) {
	t.Helper()
	w := f.do(http.MethodPost, "/auth/register",
		`{"email":"`+email+`","password":"opensesame","name":"Ada"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRegisterCreatesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "ada@example.com")

	p := f.session.Principal()
	require.NotNil(t, p)
	require.Equal(t, "ada@example.com", p.Email)
	require.Equal(t, "Ada", p.DisplayName)
	require.Equal(t, "tok-ada@example.com", f.session.Token(t.Context()))

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.upserts, 1)
	require.Equal(t, "ada@example.com", f.upserts[0].Email)
}

func TestRegisterDuplicateEchoesEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "ada@example.com")

	w := f.do(http.MethodPost, "/auth/register",
		`{"email":"ada@example.com","password":"opensesame"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "ada@example.com", out["email"])
	require.NotEmpty(t, out["error"])
}

func TestLoginWrongPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "ada@example.com")
	require.Equal(t, http.StatusNoContent,
		f.do(http.MethodPost, "/auth/logout", "").Code)

	w := f.do(http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "ada@example.com", out["email"])
	require.Nil(t, f.session.Principal())
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "ada@example.com")

	w := f.do(http.MethodPost, "/auth/logout", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Nil(t, f.session.Principal())
	require.Empty(t, f.session.Token(t.Context()))
}

func TestMeReportsSessionState(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	w := f.do(http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Principal *principalResponse `json:"principal"`
		Loading   bool               `json:"loading"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Nil(t, out.Principal)
	require.False(t, out.Loading)

	f.register(t, "ada@example.com")

	w = f.do(http.MethodGet, "/auth/me", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotNil(t, out.Principal)
	require.Equal(t, "ada@example.com", out.Principal.Email)
}

func TestSocialBeginUnconfigured(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	w := f.do(http.MethodGet, "/auth/social/login", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSocialCallbackStateMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	r := httptest.NewRequest(http.MethodGet, "/auth/social/callback?state=evil&code=x", nil)
	r.AddCookie(&http.Cookie{Name: stateCookie, Value: "good"})
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGuardedRouteRedirectsAnonymous(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	w := f.do(http.MethodGet, "/dashboard/my-applications", "")
	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/login?from=%2Fdashboard%2Fmy-applications",
		w.Header().Get("Location"))
}

func TestGuardedRouteAllowsMatchingRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "ada@example.com")

	// No explicit assignment: the resolver falls back to student.
	w := f.do(http.MethodGet, "/dashboard/my-applications", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestGuardedRouteDeniesWrongRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.register(t, "ada@example.com")

	w := f.do(http.MethodGet, "/dashboard/users", "")
	require.Equal(t, http.StatusForbidden, w.Code)
}

// The guard's allow decision and the handler body read session state
// separately; a forced sign-out from a concurrent request can clear the
// principal in between. Handlers must answer 401 in that window, not panic.
func TestScreenHandlersTolerateClearedSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	d := f.router.Dashboard

	tests := []struct {
		name    string
		method  string
		body    string
		handler http.HandlerFunc
	}{
		{"home", http.MethodGet, "", d.HandleHome},
		{"profile get", http.MethodGet, "", d.HandleGetProfile},
		{"profile update", http.MethodPatch, `{"name":"Ada"}`, d.HandleUpdateProfile},
		{"my applications", http.MethodGet, "", d.HandleMyApplications},
		{"submit application", http.MethodPost, `{"scholarshipId":"s1"}`, d.HandleSubmitApplication},
		{"submit review", http.MethodPost, `{"rating":5,"comment":"ok"}`, d.HandleSubmitReview},
		{"my reviews", http.MethodGet, "", d.HandleMyReviews},
		{"checkout", http.MethodPost, `{"scholarshipId":"s1","amount":45}`, d.HandleCheckout},
		{"create scholarship", http.MethodPost, `{"scholarshipName":"x"}`, d.HandleCreateScholarship},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body *strings.Reader
			if tc.body == "" {
				body = strings.NewReader("{}")
			} else {
				body = strings.NewReader(tc.body)
			}

			r := httptest.NewRequest(tc.method, "/dashboard", body)
			w := httptest.NewRecorder()
			tc.handler(w, r)

			require.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestSetUserRoleRequiresEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mu.Lock()
	f.roles["root@example.com"] = "admin"
	f.mu.Unlock()
	f.register(t, "root@example.com")

	w := f.do(http.MethodPatch, "/dashboard/users/u1/role", `{"role":"moderator"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// Changing a role must drop the cached value for that email, so the new role
// gates the very next guarded request instead of surviving until the TTL.
func TestSetUserRoleInvalidatesCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mu.Lock()
	f.roles["ada@example.com"] = "admin"
	f.mu.Unlock()
	f.register(t, "ada@example.com")

	// Prime the cache: admin screens open.
	w := f.do(http.MethodGet, "/dashboard/users", "")
	require.NotEqual(t, http.StatusForbidden, w.Code)

	// Demote ada (self-demotion is the worst case the cache must honour).
	f.mu.Lock()
	f.roles["ada@example.com"] = "student"
	f.mu.Unlock()
	w = f.do(http.MethodPatch, "/dashboard/users/u1/role",
		`{"role":"student","email":"ada@example.com"}`)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/dashboard/users", "")
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGuardedRouteHonoursAssignedRole(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.mu.Lock()
	f.roles["ada@example.com"] = "admin"
	f.mu.Unlock()
	f.register(t, "ada@example.com")

	w := f.do(http.MethodGet, "/dashboard/users", "")
	// Admin passes the guard; the fake backend has no /users list route, so
	// the typed client surfaces the backend's 404.
	require.NotEqual(t, http.StatusForbidden, w.Code)
	require.NotEqual(t, http.StatusSeeOther, w.Code)
}
