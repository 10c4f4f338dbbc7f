package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

// MinSecretLen matches the weak-secret threshold enforced at registration.
const MinSecretLen = 6

type localUser struct {
	User
	passwordHash []byte
}

// Local is an in-process credential provider used for development and tests.
// It keeps the same observable contract as the hosted provider: register and
// sign-in switch the current user and notify subscribers.
type Local struct {
	*hub

	mu    sync.Mutex
	users map[string]*localUser

	now func() time.Time
}

var _ Provider = (*Local)(nil)

func NewLocal() *Local {
	return &Local{
		hub:   newHub(),
		users: make(map[string]*localUser),
		now:   time.Now,
	}
}

func (l *Local) Register(ctx context.Context, email, secret string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if !strings.Contains(email, "@") {
		return User{}, &domain.CredentialError{Email: email, Reason: "malformed email"}
	}
	if len(secret) < MinSecretLen {
		return User{}, &domain.CredentialError{Email: email, Reason: "secret too weak"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	l.mu.Lock()
	if _, exists := l.users[email]; exists {
		l.mu.Unlock()
		return User{}, &domain.CredentialError{Email: email, Reason: "email already registered"}
	}

	now := l.now()
	u := &localUser{
		User: User{
			Email:        email,
			CreatedAt:    now,
			LastSignInAt: now,
		},
		passwordHash: hash,
	}
	l.users[email] = u
	signedIn := u.User
	l.mu.Unlock()

	l.setCurrent(ctx, &signedIn)
	return signedIn, nil
}

func (l *Local) SignIn(ctx context.Context, email, secret string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	l.mu.Lock()
	u, ok := l.users[email]
	if !ok {
		l.mu.Unlock()
		return User{}, &domain.CredentialError{Email: email, Reason: "unknown email"}
	}
	hash := u.passwordHash
	l.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword(hash, []byte(secret)); err != nil {
		return User{}, &domain.CredentialError{Email: email, Reason: "wrong password"}
	}

	l.mu.Lock()
	u.LastSignInAt = l.now()
	signedIn := u.User
	l.mu.Unlock()

	l.setCurrent(ctx, &signedIn)
	return signedIn, nil
}

// signInExternal records a federated user (no local password) and switches
// the current principal to them.
func (l *Local) signInExternal(ctx context.Context, u User) {
	l.mu.Lock()
	existing, ok := l.users[u.Email]
	if ok {
		existing.DisplayName = u.DisplayName
		existing.AvatarURL = u.AvatarURL
		existing.LastSignInAt = u.LastSignInAt
		u = existing.User
	} else {
		l.users[u.Email] = &localUser{User: u}
	}
	l.mu.Unlock()

	l.setCurrent(ctx, &u)
}

func (l *Local) SignOut(ctx context.Context) error {
	l.setCurrent(ctx, nil)
	return nil
}

func (l *Local) UpdateProfile(ctx context.Context, patch domain.Patch) (User, error) {
	current := l.Current()
	if current == nil {
		return User{}, &domain.ProfileUpdateError{Err: domain.ErrNoPrincipal}
	}

	l.mu.Lock()
	u, ok := l.users[current.Email]
	if !ok {
		l.mu.Unlock()
		return User{}, &domain.ProfileUpdateError{Email: current.Email, Err: domain.ErrNoPrincipal}
	}
	if patch.DisplayName != nil {
		u.DisplayName = *patch.DisplayName
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	updated := u.User
	l.mu.Unlock()

	// Profile updates do not re-fire the subscription; callers patch their
	// local projection instead, matching the hosted provider.
	l.replaceCurrent(updated)

	return updated, nil
}
