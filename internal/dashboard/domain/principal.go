package domain

import "time"

// Principal is the read-mostly projection of the identity provider's current
// user. The provider owns the canonical record; the session store only mirrors
// the fields the dashboard needs.
type Principal struct {
	Email        string
	DisplayName  string
	AvatarURL    string
	CreatedAt    time.Time
	LastSignInAt time.Time
}

// Patch carries a partial profile update. Nil fields are left untouched.
type Patch struct {
	DisplayName *string
	AvatarURL   *string
}

// Apply merges the patch into a copy of p and returns it.
func (p Principal) Apply(patch Patch) Principal {
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.AvatarURL != nil {
		p.AvatarURL = *patch.AvatarURL
	}
	return p
}
