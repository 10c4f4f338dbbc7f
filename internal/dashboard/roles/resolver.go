package roles

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

// DefaultTTL bounds how long a cached role may serve before an implicit
// refresh.
const DefaultTTL = 5 * time.Minute

// Fetcher queries the backend for the role associated with an identifier.
// An empty role means the backend has no explicit assignment.
type Fetcher interface {
	FetchRole(ctx context.Context, email string) (domain.Role, error)
}

// SessionInfo is the slice of session state gating role queries.
type SessionInfo interface {
	Principal() *domain.Principal
	Token(ctx context.Context) string
}

// Resolver caches role lookups by identifier. Queries are issued only once
// both a principal and a session token exist; before that the role is "not
// yet resolvable", never an error surfaced as denial.
type Resolver struct {
	session  SessionInfo
	fetcher  Fetcher
	cache    Cache
	ttl      time.Duration
	fallback domain.Role
	logger   *slog.Logger

	now func() time.Time
}

func NewResolver(
	session SessionInfo,
	fetcher Fetcher,
	cache Cache,
	ttl time.Duration,
	fallback domain.Role,
	logger *slog.Logger,
) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if fallback == domain.RoleNone {
		fallback = domain.RoleStudent
	}
	return &Resolver{
		session:  session,
		fetcher:  fetcher,
		cache:    cache,
		ttl:      ttl,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve returns the role for the given identifier. ErrRoleUnresolved means
// the caller should keep treating the role as loading.
func (r *Resolver) Resolve(ctx context.Context, email string) (domain.Role, error) {
	// Preconditions: no principal or no token means no backend query at all.
	if r.session.Principal() == nil || r.session.Token(ctx) == "" {
		return domain.RoleNone, domain.ErrRoleUnresolved
	}

	entry, cached, err := r.cache.Get(ctx, email)
	if err != nil {
		r.logger.Warn("role cache read failed", "email", email, "error", err)
		cached = false
	}
	if cached && !entry.Stale(r.now(), r.ttl) {
		return entry.Value, nil
	}

	role, err := r.fetchOnceWithRetry(ctx, email)
	if err != nil {
		// An invalidated session is not "still loading": surface it as-is so
		// callers re-check the (now cleared) session state.
		if errors.Is(err, domain.ErrSessionInvalidated) {
			return domain.RoleNone, err
		}
		if cached {
			// Serve the stale value rather than flapping to loading.
			return entry.Value, nil
		}
		r.logger.Warn("role resolution failed", "email", email, "error", err)
		return domain.RoleNone, errors.Join(domain.ErrRoleUnresolved, err)
	}

	if putErr := r.cache.Put(ctx, Entry{
		Identifier: email,
		Value:      role,
		FetchedAt:  r.now(),
	}); putErr != nil {
		r.logger.Warn("role cache write failed", "email", email, "error", putErr)
	}

	return role, nil
}

// Invalidate forces a fresh fetch on the next read. It must be called by any
// mutation that changes role assignments, including the active principal's
// own role.
func (r *Resolver) Invalidate(ctx context.Context, email string) error {
	return r.cache.Invalidate(ctx, email)
}

func (r *Resolver) fetchOnceWithRetry(ctx context.Context, email string) (domain.Role, error) {
	role, err := r.fetchRole(ctx, email)
	if err == nil {
		return role, nil
	}

	// Session invalidation is handled by the secure client; retrying would
	// just repeat the rejection.
	if errors.Is(err, domain.ErrSessionInvalidated) {
		return domain.RoleNone, err
	}

	return r.fetchRole(ctx, email)
}

func (r *Resolver) fetchRole(ctx context.Context, email string) (domain.Role, error) {
	role, err := r.fetcher.FetchRole(ctx, email)
	if err != nil {
		return domain.RoleNone, err
	}
	// No explicit assignment: fall back to the configured default.
	if role == domain.RoleNone {
		return r.fallback, nil
	}
	if !role.Valid() {
		r.logger.Warn("backend returned unknown role, using fallback",
			"email", email, "role", role)
		return r.fallback, nil
	}
	return role, nil
}
