// Package session holds the single source of truth for "who is the current
// user" and "are we still figuring that out". It bridges the identity
// provider's principal-change stream with the backend-issued bearer token.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/identity"
	"github.com/scholarhub/scholarhub/internal/dashboard/tokenstore"
	"github.com/scholarhub/scholarhub/pkg/tokenx"
)

// TokenExchanger swaps an observed principal for a backend bearer token.
type TokenExchanger interface {
	ExchangeToken(ctx context.Context, email string) (string, error)
}

// Store mirrors the provider's current principal and keeps the persisted
// session token in sync with it. It is constructed once at application start
// and passed by reference to all consumers; there are no ambient singletons.
type Store struct {
	provider  identity.Provider
	federated identity.Federated
	exchanger TokenExchanger
	tokens    tokenstore.Store
	logger    *slog.Logger

	mu        sync.RWMutex
	principal *domain.Principal
	loading   bool

	unsubscribe func()
}

// New wires the store to the provider's subscription. The store starts in the
// loading state; the first provider notification settles it.
func New(
	provider identity.Provider,
	federated identity.Federated,
	exchanger TokenExchanger,
	tokens tokenstore.Store,
	logger *slog.Logger,
) *Store {
	s := &Store{
		provider:  provider,
		federated: federated,
		exchanger: exchanger,
		tokens:    tokens,
		logger:    logger,
		loading:   true,
	}
	s.unsubscribe = provider.Subscribe(s.handleProviderEvent)
	return s
}

// Close tears down the provider subscription.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// handleProviderEvent is the single pipeline driven by provider
// notifications. Invariants: the principal is set before the token exchange
// is issued, and loading clears only after the exchange settles, on both
// success and failure paths.
func (s *Store) handleProviderEvent(ctx context.Context, u *identity.User) {
	if u == nil {
		s.mu.Lock()
		s.principal = nil
		s.mu.Unlock()

		if err := s.tokens.Delete(ctx); err != nil {
			s.logger.Error("failed to clear session token", "error", err)
		}
		s.setLoading(false)
		return
	}

	p := u.Principal()
	s.mu.Lock()
	s.principal = &p
	s.loading = true
	s.mu.Unlock()

	token, err := s.exchanger.ExchangeToken(ctx, p.Email)
	if err != nil {
		// Non-fatal: the session degrades to unauthenticated for protected
		// calls. The principal stays set.
		exchangeErr := &domain.TokenExchangeError{Email: p.Email, Err: err}
		s.logger.Warn("token exchange failed", "email", p.Email, "error", exchangeErr)
		s.setLoading(false)
		return
	}

	if err := s.tokens.Put(ctx, token); err != nil {
		s.logger.Error("failed to persist session token", "email", p.Email, "error", err)
	} else if info, peekErr := tokenx.Peek(token); peekErr == nil {
		s.logger.Debug("session token issued",
			"email", p.Email, "expires_at", info.ExpiresAt)
	}

	s.setLoading(false)
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Principal returns the current principal projection, or nil.
func (s *Store) Principal() *domain.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return nil
	}
	p := *s.principal
	return &p
}

// Loading reports whether the store is still settling the current session.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Token returns the persisted session token, "" when absent.
func (s *Store) Token(ctx context.Context) string {
	token, err := s.tokens.Get(ctx)
	if err != nil {
		s.logger.Error("failed to read session token", "error", err)
		return ""
	}
	return token
}

// Register creates a new account via the identity provider. The provider
// notification then drives the token exchange.
func (s *Store) Register(ctx context.Context, email, secret string) error {
	_, err := s.provider.Register(ctx, email, secret)
	return err
}

// SignInWithCredentials authenticates with email and password.
func (s *Store) SignInWithCredentials(ctx context.Context, email, secret string) error {
	_, err := s.provider.SignIn(ctx, email, secret)
	return err
}

// FederatedConsentURL starts the provider-driven consent flow.
func (s *Store) FederatedConsentURL(state, nonce string) (string, error) {
	if s.federated == nil {
		return "", &domain.FederatedAuthError{Err: domain.ErrNoPrincipal}
	}
	return s.federated.ConsentURL(state, nonce), nil
}

// CompleteFederatedSignIn finishes the consent flow with the callback code.
func (s *Store) CompleteFederatedSignIn(ctx context.Context, code, nonce string) error {
	if s.federated == nil {
		return &domain.FederatedAuthError{Err: domain.ErrNoPrincipal}
	}
	_, err := s.federated.Complete(ctx, code, nonce)
	return err
}

// SignOut clears the provider session. Best-effort: the local token is
// cleared even when the provider call fails, and clearing an already-cleared
// session is a no-op.
func (s *Store) SignOut(ctx context.Context) error {
	err := s.provider.SignOut(ctx)
	if err != nil {
		s.logger.Warn("provider sign-out failed", "error", err)
	}

	// The provider notification normally clears the token; delete explicitly
	// so a failed or missing notification cannot orphan it.
	if delErr := s.tokens.Delete(ctx); delErr != nil {
		s.logger.Error("failed to clear session token on sign-out", "error", delErr)
		if err == nil {
			err = delErr
		}
	}

	s.mu.Lock()
	s.principal = nil
	s.loading = false
	s.mu.Unlock()

	return err
}

// UpdateProfile updates the provider profile. Callers are responsible for
// syncing the backend user record and for patching the local projection.
func (s *Store) UpdateProfile(ctx context.Context, patch domain.Patch) error {
	if s.Principal() == nil {
		return &domain.ProfileUpdateError{Err: domain.ErrNoPrincipal}
	}
	if _, err := s.provider.UpdateProfile(ctx, patch); err != nil {
		return err
	}
	return nil
}

// ApplyLocalPatch optimistically merges a partial update into the cached
// principal projection, avoiding a round-trip refetch.
func (s *Store) ApplyLocalPatch(patch domain.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		return
	}
	p := s.principal.Apply(patch)
	s.principal = &p
}
