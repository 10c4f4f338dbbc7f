package secure

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/tokenstore"
)

type fakeSession struct {
	mu        sync.Mutex
	principal *domain.Principal
	tokens    tokenstore.Store
	signOuts  atomic.Int32
}

func (f *fakeSession) Principal() *domain.Principal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.principal
}

func (f *fakeSession) SignOut(ctx context.Context) error {
	f.signOuts.Add(1)
	f.mu.Lock()
	f.principal = nil
	f.mu.Unlock()
	return f.tokens.Delete(ctx)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, tokenstore.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := tokenstore.NewMemory()
	return New(srv.URL, tokens, slog.Default()), tokens
}

func TestBearerAttachment(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var gotAuth string
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))

	// No token, no header.
	resp, err := client.Do(ctx, http.MethodGet, "/scholarships", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, gotAuth)

	// Token present, bearer header carries it.
	require.NoError(t, tokens.Put(ctx, "T1"))
	resp, err = client.Do(ctx, http.MethodGet, "/scholarships", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "Bearer T1", gotAuth)
}

func TestRejectedTokenForcesSingleSignOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	session := &fakeSession{
		principal: &domain.Principal{Email: "a@x.com"},
		tokens:    tokens,
	}
	var redirects atomic.Int32
	var redirectPath string
	client.Bind(session, func(path string) {
		redirects.Add(1)
		redirectPath = path
	})

	require.NoError(t, tokens.Put(ctx, "T1"))

	// A 403 on a tokened request with an active principal forces sign-out,
	// clears the token and redirects to /login.
	_, err := client.Do(ctx, http.MethodGet, "/applications/all", nil)
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
	require.Equal(t, int32(1), session.signOuts.Load())
	require.Equal(t, int32(1), redirects.Load())
	require.Equal(t, "/login", redirectPath)

	token, _ := tokens.Get(ctx)
	require.Empty(t, token)
}

func TestConcurrentRejectionsSignOutOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	release := make(chan struct{})
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusForbidden)
	}))

	session := &fakeSession{
		principal: &domain.Principal{Email: "a@x.com"},
		tokens:    tokens,
	}
	var redirects atomic.Int32
	client.Bind(session, func(string) { redirects.Add(1) })

	require.NoError(t, tokens.Put(ctx, "T1"))

	// Two in-flight requests both rejected; exactly one sign-out and one
	// redirect.
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Do(ctx, http.MethodGet, "/applications/all", nil)
			require.ErrorIs(t, err, domain.ErrSessionInvalidated)
		}()
	}
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), session.signOuts.Load())
	require.Equal(t, int32(1), redirects.Load())
}

func TestAnonymousRejectionPropagates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	session := &fakeSession{
		principal: &domain.Principal{Email: "a@x.com"},
		tokens:    tokens,
	}
	client.Bind(session, func(string) { t.Fatal("unexpected redirect") })

	// A 401 on a tokenless request never triggers sign-out.
	resp, err := client.Do(ctx, http.MethodGet, "/scholarships", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, session.signOuts.Load())
}

func TestUnboundClientNeverSignsOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	require.NoError(t, tokens.Put(ctx, "stale-token"))

	// No binding installed: the rejection propagates unchanged.
	resp, err := client.Do(ctx, http.MethodGet, "/users", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRebindResetsInvalidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	first := &fakeSession{principal: &domain.Principal{Email: "a@x.com"}, tokens: tokens}
	client.Bind(first, nil)
	require.NoError(t, tokens.Put(ctx, "T1"))

	_, err := client.Do(ctx, http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
	require.Equal(t, int32(1), first.signOuts.Load())

	// A fresh binding for a new session may force its own sign-out.
	second := &fakeSession{principal: &domain.Principal{Email: "b@x.com"}, tokens: tokens}
	client.Bind(second, nil)
	require.NoError(t, tokens.Put(ctx, "T2"))

	_, err = client.Do(ctx, http.MethodGet, "/x", nil)
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
	require.Equal(t, int32(1), second.signOuts.Load())
}

func TestJSONBackendErrorPropagates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"scholarship not found"}`, http.StatusNotFound)
	}))

	var out struct{}
	err := client.Get(ctx, "/scholarships/missing", &out)

	var backendErr *domain.BackendError
	require.ErrorAs(t, err, &backendErr)
	require.Equal(t, http.StatusNotFound, backendErr.Status)
	require.Equal(t, "/scholarships/missing", backendErr.Path)
}

func TestJSONDecodesResponse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"role":"moderator"}`)) //nolint:errcheck
	}))

	var out struct {
		Role string `json:"role"`
	}
	require.NoError(t, client.Get(ctx, "/users/a@x.com/role", &out))
	require.Equal(t, "moderator", out.Role)
}
