// Package tokenx inspects backend-issued bearer tokens without verifying
// them. The dashboard treats the token as opaque for authorization purposes;
// the peek exists only so the session pipeline can log expiry and subject
// information for diagnostics.
package tokenx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Info holds the registered claims extracted from a bearer token.
type Info struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// ErrNotJWT reports a token that does not parse as a JWT. Opaque tokens are
// valid session tokens; callers should treat this as "no info available".
var ErrNotJWT = errors.New("tokenx: token is not a JWT")

// Peek extracts registered claims without signature verification. The result
// must never be used to make an authorization decision.
func Peek(token string) (Info, error) {
	var claims jwt.RegisteredClaims

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return Info{}, ErrNotJWT
	}

	info := Info{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}

// Expired reports whether the token carries an exp claim in the past.
// Opaque or unbounded tokens are never reported expired.
func Expired(token string, now time.Time) bool {
	info, err := Peek(token)
	if err != nil || info.ExpiresAt.IsZero() {
		return false
	}
	return info.ExpiresAt.Before(now)
}
