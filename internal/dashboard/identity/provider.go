// Package identity defines the boundary to the external identity provider.
// The provider owns the canonical user record; everything else in the
// dashboard works from the projection it reports through Subscribe.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

// User is the provider's view of an authenticated account.
type User struct {
	Email        string
	DisplayName  string
	AvatarURL    string
	CreatedAt    time.Time
	LastSignInAt time.Time
}

// Principal converts the provider user into the dashboard projection.
func (u User) Principal() domain.Principal {
	return domain.Principal{
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		AvatarURL:    u.AvatarURL,
		CreatedAt:    u.CreatedAt,
		LastSignInAt: u.LastSignInAt,
	}
}

// Handler receives principal-change notifications. A nil user means the
// provider reports no signed-in principal.
type Handler func(ctx context.Context, u *User)

// Provider is the suspending operation surface the session store depends on.
type Provider interface {
	// Register creates an account and signs it in.
	Register(ctx context.Context, email, secret string) (User, error)

	// SignIn authenticates with credentials.
	SignIn(ctx context.Context, email, secret string) (User, error)

	// SignOut clears the provider session. It must notify subscribers with a
	// nil user even when the remote call fails.
	SignOut(ctx context.Context) error

	// UpdateProfile mutates the provider profile of the current user.
	UpdateProfile(ctx context.Context, patch domain.Patch) (User, error)

	// Current returns the signed-in user, or nil.
	Current() *User

	// Subscribe registers a state-change handler and immediately delivers the
	// current state. The returned func cancels the subscription.
	Subscribe(h Handler) (cancel func())
}

// Federated drives a consent-based sign-in flow (OIDC authorization code).
// The web layer redirects to ConsentURL and finishes with Complete.
type Federated interface {
	ConsentURL(state, nonce string) string
	Complete(ctx context.Context, code, nonce string) (User, error)
}

// hub fans principal-change notifications out to subscribers. Provider
// implementations embed it and report state changes through setCurrent.
type hub struct {
	mu      sync.Mutex
	current *User
	nextID  int
	subs    map[int]Handler
}

func newHub() *hub {
	return &hub{subs: make(map[int]Handler)}
}

func (h *hub) Current() *User {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil
	}
	u := *h.current
	return &u
}

func (h *hub) Subscribe(fn Handler) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	current := h.current
	h.mu.Unlock()

	// Mirror provider semantics: a new subscriber observes the current state
	// right away, signed-in or not.
	fn(context.Background(), current)

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// replaceCurrent swaps the stored user in place without notifying
// subscribers. Used by profile updates, which the provider does not re-fire.
func (h *hub) replaceCurrent(u User) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil && h.current.Email == u.Email {
		cp := u
		h.current = &cp
	}
}

func (h *hub) setCurrent(ctx context.Context, u *User) {
	h.mu.Lock()
	h.current = u
	handlers := make([]Handler, 0, len(h.subs))
	for _, fn := range h.subs {
		handlers = append(handlers, fn)
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(ctx, u)
	}
}
