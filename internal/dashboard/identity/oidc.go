package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
)

type OIDCConfig struct {
	ProviderName string // e.g. "google", used in error reporting
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OIDC drives the federated consent flow. Completed sign-ins land on the same
// provider hub as credential sign-ins, so the session store observes a single
// stream of principal changes regardless of how the user authenticated.
type OIDC struct {
	name     string
	base     *Local
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier

	now func() time.Time
}

var _ Federated = (*OIDC)(nil)

// NewOIDC discovers the issuer's endpoints and binds the flow to base.
func NewOIDC(ctx context.Context, cfg OIDCConfig, base *Local) (*OIDC, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}

	return &OIDC{
		name: cfg.ProviderName,
		base: base,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		now:      time.Now,
	}, nil
}

func (o *OIDC) ConsentURL(state, nonce string) string {
	return o.oauth.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Complete exchanges the authorization code, verifies the ID token and signs
// the federated user in on the shared hub.
func (o *OIDC) Complete(ctx context.Context, code, nonce string) (User, error) {
	token, err := o.oauth.Exchange(ctx, code)
	if err != nil {
		return User{}, &domain.FederatedAuthError{Provider: o.name, Err: err}
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return User{}, &domain.FederatedAuthError{
			Provider: o.name,
			Err:      errors.New("token response missing id_token"),
		}
	}

	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return User{}, &domain.FederatedAuthError{Provider: o.name, Err: err}
	}
	if idToken.Nonce != nonce {
		return User{}, &domain.FederatedAuthError{
			Provider: o.name,
			Err:      errors.New("nonce mismatch"),
		}
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return User{}, &domain.FederatedAuthError{Provider: o.name, Err: err}
	}
	if claims.Email == "" {
		return User{}, &domain.FederatedAuthError{
			Provider: o.name,
			Err:      errors.New("id token carries no email"),
		}
	}

	now := o.now()
	u := User{
		Email:        claims.Email,
		DisplayName:  claims.Name,
		AvatarURL:    claims.Picture,
		CreatedAt:    now,
		LastSignInAt: now,
	}

	o.base.signInExternal(ctx, u)
	return u, nil
}
