package domain

import (
	"errors"
	"fmt"
)

// CredentialError reports a bad email/password during register or sign-in.
// It is recovered locally and shown inline on the form.
type CredentialError struct {
	Email  string
	Reason string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credential rejected for %s: %s", e.Email, e.Reason)
}

// FederatedAuthError reports a cancelled or failed provider consent flow.
type FederatedAuthError struct {
	Provider string
	Err      error
}

func (e *FederatedAuthError) Error() string {
	return fmt.Sprintf("federated sign-in via %s failed: %v", e.Provider, e.Err)
}

func (e *FederatedAuthError) Unwrap() error { return e.Err }

// TokenExchangeError reports a failed backend token issuance after a
// successful provider authentication. It degrades the session to
// unauthenticated-for-protected-calls and is logged, never shown to the user.
type TokenExchangeError struct {
	Email string
	Err   error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange for %s failed: %v", e.Email, e.Err)
}

func (e *TokenExchangeError) Unwrap() error { return e.Err }

// ProfileUpdateError reports a failed provider profile update.
type ProfileUpdateError struct {
	Email string
	Err   error
}

func (e *ProfileUpdateError) Error() string {
	return fmt.Sprintf("profile update for %s failed: %v", e.Email, e.Err)
}

func (e *ProfileUpdateError) Unwrap() error { return e.Err }

// BackendError carries a non-auth backend failure (4xx/5xx other than
// 401/403) to the requesting screen. It never causes sign-out.
type BackendError struct {
	Status int
	Path   string
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s returned %d: %s", e.Path, e.Status, e.Body)
}

var (
	// ErrSessionInvalidated marks a protected call whose previously-valid
	// token was rejected. The secure client forces sign-out and redirects.
	ErrSessionInvalidated = errors.New("session invalidated")

	// ErrRoleUnresolved marks a role that is not yet resolvable (no
	// principal/token) or failed transiently. Consumers treat it as loading.
	ErrRoleUnresolved = errors.New("role not resolved")

	// ErrNoPrincipal is returned by operations that require an active
	// sign-in when none exists.
	ErrNoPrincipal = errors.New("no active principal")
)
