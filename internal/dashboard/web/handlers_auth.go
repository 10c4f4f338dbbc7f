package web

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/scholarhub/scholarhub/internal/dashboard/api"
	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/session"
	"github.com/scholarhub/scholarhub/pkg/httpx"
)

const (
	stateCookie = "oauth_state"
	nonceCookie = "oauth_nonce"
	flowTTL     = 10 * time.Minute
)

// AuthHandler serves registration, credential and federated sign-in, and
// sign-out.
type AuthHandler struct {
	Session *session.Store
	Users   *api.Users
	Logger  *slog.Logger
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

type principalResponse struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"photoURL,omitempty"`
}

func toPrincipalResponse(p *domain.Principal) principalResponse {
	return principalResponse{
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}

// writeCredentialError echoes the attempted email back so the form can keep
// it filled in.
func writeCredentialError(w http.ResponseWriter, code int, email, message string) {
	httpx.NoCache(w)
	httpx.WriteJSON(w, code, map[string]string{
		"error": message,
		"email": email,
	})
}

// HandleRegister creates an account, applies the optional profile fields, and
// mirrors the new user into the backend's user collection.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	if err := h.Session.Register(ctx, in.Email, in.Password); err != nil {
		var credErr *domain.CredentialError
		if errors.As(err, &credErr) {
			writeCredentialError(w, http.StatusBadRequest, in.Email, credErr.Reason)
			return
		}
		h.Logger.Error("registration failed", "email", in.Email, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	patch := domain.Patch{}
	if in.Name != "" {
		patch.DisplayName = &in.Name
	}
	if in.PhotoURL != "" {
		patch.AvatarURL = &in.PhotoURL
	}
	if patch.DisplayName != nil || patch.AvatarURL != nil {
		if err := h.Session.UpdateProfile(ctx, patch); err != nil {
			h.Logger.Warn("profile setup failed", "email", in.Email, "error", err)
		} else {
			h.Session.ApplyLocalPatch(patch)
		}
	}

	// Best-effort: a missing backend record falls back to the default role.
	if err := h.Users.Upsert(ctx, api.User{
		Name:     in.Name,
		Email:    in.Email,
		PhotoURL: in.PhotoURL,
	}); err != nil {
		h.Logger.Warn("user record upsert failed", "email", in.Email, "error", err)
	}

	// A concurrent sign-out can clear the session before we respond.
	p := h.Session.Principal()
	if p == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "session expired")
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, toPrincipalResponse(p))
}

// HandleLogin authenticates with email and password.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Session.SignInWithCredentials(r.Context(), in.Email, in.Password); err != nil {
		var credErr *domain.CredentialError
		if errors.As(err, &credErr) {
			writeCredentialError(w, http.StatusUnauthorized, in.Email, "invalid email or password")
			return
		}
		h.Logger.Error("sign-in failed", "email", in.Email, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}

	p := h.Session.Principal()
	if p == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "session expired")
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toPrincipalResponse(p))
}

// HandleSocialBegin redirects to the federated provider's consent screen.
// State and nonce are pinned in short-lived cookies for the callback.
func (h *AuthHandler) HandleSocialBegin(w http.ResponseWriter, r *http.Request) {
	state, err := randomToken()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}
	nonce, err := randomToken()
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to start sign-in")
		return
	}

	consentURL, err := h.Session.FederatedConsentURL(state, nonce)
	if err != nil {
		httpx.WriteError(w, http.StatusServiceUnavailable, "social sign-in is not configured")
		return
	}

	setFlowCookie(w, stateCookie, state)
	setFlowCookie(w, nonceCookie, nonce)
	http.Redirect(w, r, consentURL, http.StatusFound)
}

// HandleSocialCallback finishes the consent flow: the state must match the
// pinned cookie, and the nonce cookie is checked against the identity token.
func (h *AuthHandler) HandleSocialCallback(w http.ResponseWriter, r *http.Request) {
	stateC, err := r.Cookie(stateCookie)
	if err != nil || stateC.Value == "" || r.URL.Query().Get("state") != stateC.Value {
		httpx.WriteError(w, http.StatusBadRequest, "state mismatch")
		return
	}
	nonceC, err := r.Cookie(nonceCookie)
	if err != nil || nonceC.Value == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing nonce")
		return
	}
	clearFlowCookie(w, stateCookie)
	clearFlowCookie(w, nonceCookie)

	ctx := r.Context()
	code := r.URL.Query().Get("code")
	if err := h.Session.CompleteFederatedSignIn(ctx, code, nonceC.Value); err != nil {
		h.Logger.Warn("federated sign-in failed", "error", err)
		httpx.WriteError(w, http.StatusUnauthorized, "sign-in failed")
		return
	}

	if p := h.Session.Principal(); p != nil {
		if err := h.Users.Upsert(ctx, api.User{
			Name:     p.DisplayName,
			Email:    p.Email,
			PhotoURL: p.AvatarURL,
		}); err != nil {
			h.Logger.Warn("user record upsert failed", "email", p.Email, "error", err)
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the session. Safe to call when already signed out.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.SignOut(r.Context()); err != nil {
		h.Logger.Warn("sign-out reported error", "error", err)
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe reports the current session for the SPA shell: the principal (or
// null) and whether the session is still settling.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	httpx.NoCache(w)

	out := struct {
		Principal *principalResponse `json:"principal"`
		Loading   bool               `json:"loading"`
	}{Loading: h.Session.Loading()}

	if p := h.Session.Principal(); p != nil {
		resp := toPrincipalResponse(p)
		out.Principal = &resp
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func setFlowCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   int(flowTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearFlowCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
