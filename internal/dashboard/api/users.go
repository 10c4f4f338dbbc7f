package api

import (
	"context"
	"net/url"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
)

// User mirrors the backend's user record, the authority for roles.
type User struct {
	ID        string      `json:"_id,omitempty"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	PhotoURL  string      `json:"photoURL,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	CreatedAt string      `json:"createdAt,omitempty"`
}

type Users struct {
	secure *secure.Client
}

// List returns users, optionally narrowed by search text and role filter.
func (u *Users) List(ctx context.Context, search string, role domain.Role) ([]User, error) {
	v := url.Values{}
	if search != "" {
		v.Set("search", search)
	}
	if role != domain.RoleNone {
		v.Set("role", role.String())
	}

	var out []User
	err := u.secure.Get(ctx, withQuery("/users", v), &out)
	return out, err
}

// Upsert records a user after registration or federated first sign-in.
func (u *Users) Upsert(ctx context.Context, in User) error {
	return u.secure.Post(ctx, "/users", in, nil)
}

// SetRole changes a user's role. Callers must invalidate the role resolver
// for the affected identifier afterwards.
func (u *Users) SetRole(ctx context.Context, id string, role domain.Role) error {
	return u.secure.Patch(ctx, "/users/"+id+"/role",
		map[string]string{"role": role.String()}, nil)
}

// SyncProfile mirrors a provider profile update into the backend record.
func (u *Users) SyncProfile(ctx context.Context, email string, patch domain.Patch) error {
	body := map[string]string{}
	if patch.DisplayName != nil {
		body["name"] = *patch.DisplayName
	}
	if patch.AvatarURL != nil {
		body["photoURL"] = *patch.AvatarURL
	}
	return u.secure.Patch(ctx, "/users/update/"+url.PathEscape(email), body, nil)
}

// Delete removes a user record.
func (u *Users) Delete(ctx context.Context, id string) error {
	return u.secure.Delete(ctx, "/users/"+id, nil)
}
