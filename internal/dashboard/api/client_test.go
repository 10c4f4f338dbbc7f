package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
	"github.com/scholarhub/scholarhub/internal/dashboard/tokenstore"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, tokenstore.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := tokenstore.NewMemory()
	sc := secure.New(srv.URL, tokens, slog.Default())
	return New(srv.URL, sc), tokens
}

func TestExchangeToken(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /getToken", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Email string `json:"email"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "ada@example.com", in.Email)

		// Issuance must never carry a previous session's credential.
		require.Empty(t, r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]string{"token": "tok-1"})
	})

	client, _ := newTestClient(t, mux)

	token, err := client.ExchangeToken(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)
}

func TestExchangeTokenFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "empty token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"token": ""})
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "not json")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client, _ := newTestClient(t, tc.handler)

			_, err := client.ExchangeToken(context.Background(), "ada@example.com")
			require.Error(t, err)
		})
	}
}

func TestFetchRole(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{email}/role", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "ada@example.com", r.PathValue("email"))
		json.NewEncoder(w).Encode(map[string]string{"role": "moderator"})
	})

	client, tokens := newTestClient(t, mux)
	require.NoError(t, tokens.Put(context.Background(), "tok-1"))

	role, err := client.FetchRole(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleModerator, role)
}

func TestFetchRoleAbsent(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	})

	client, _ := newTestClient(t, handler)

	role, err := client.FetchRole(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleNone, role)
}

func TestScholarshipsList(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /scholarships", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "harvard", q.Get("search"))
		require.Equal(t, "applicationFees", q.Get("sortBy"))
		require.Equal(t, "asc", q.Get("order"))
		require.Equal(t, "2", q.Get("page"))
		require.Equal(t, "6", q.Get("limit"))

		json.NewEncoder(w).Encode(ScholarshipPage{
			Scholarships: []Scholarship{{ID: "s1", ScholarshipName: "Merit Award"}},
			Total:        13,
		})
	})

	client, _ := newTestClient(t, mux)

	page, err := client.Scholarships().List(context.Background(), ListParams{
		Search: "harvard",
		SortBy: "applicationFees",
		Order:  "asc",
		Page:   2,
		Limit:  6,
	})
	require.NoError(t, err)
	require.Equal(t, 13, page.Total)
	require.Len(t, page.Scholarships, 1)
	require.Equal(t, "Merit Award", page.Scholarships[0].ScholarshipName)
}

func TestApplicationsCheckApplied(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /applications/check", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "s1", r.URL.Query().Get("scholarshipId"))
		require.Equal(t, "ada@example.com", r.URL.Query().Get("userEmail"))
		json.NewEncoder(w).Encode(map[string]bool{"applied": true})
	})

	client, _ := newTestClient(t, mux)

	applied, err := client.Applications().CheckApplied(context.Background(), "s1", "ada@example.com")
	require.NoError(t, err)
	require.True(t, applied)
}

func TestApplicationsSetStatus(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /applications/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "a1", r.PathValue("id"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, ApplicationProcessing, in["status"])
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)

	err := client.Applications().SetStatus(context.Background(), "a1", ApplicationProcessing)
	require.NoError(t, err)
}

func TestUsersSyncProfile(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /users/update/{email}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ada@example.com", r.PathValue("email"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "Ada Lovelace", in["name"])
		_, hasPhoto := in["photoURL"]
		require.False(t, hasPhoto, "unset fields must not be sent")
		w.WriteHeader(http.StatusOK)
	})

	client, _ := newTestClient(t, mux)

	name := "Ada Lovelace"
	err := client.Users().SyncProfile(context.Background(), "ada@example.com",
		domain.Patch{DisplayName: &name})
	require.NoError(t, err)
}

func TestPaymentsCheckoutFlow(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /create-checkout-session", func(w http.ResponseWriter, r *http.Request) {
		var in CheckoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "s1", in.ScholarshipID)
		require.InDelta(t, 45.0, in.Amount, 0.001)

		json.NewEncoder(w).Encode(CheckoutSession{
			SessionID: "cs_123",
			URL:       "https://pay.example.com/cs_123",
		})
	})
	mux.HandleFunc("POST /payment-success", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "cs_123", in["sessionId"])
		w.WriteHeader(http.StatusOK)
	})

	client, _ := newTestClient(t, mux)
	ctx := context.Background()

	session, err := client.Payments().CreateCheckoutSession(ctx, CheckoutRequest{
		ScholarshipID: "s1",
		UserEmail:     "ada@example.com",
		Amount:        45.0,
	})
	require.NoError(t, err)
	require.Equal(t, "cs_123", session.SessionID)

	require.NoError(t, client.Payments().ConfirmPayment(ctx, session.SessionID))
}

func TestBackendErrorSurfaced(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"deadline passed"}`, http.StatusConflict)
	})

	client, _ := newTestClient(t, handler)

	_, err := client.Scholarships().Get(context.Background(), "s1")

	var be *domain.BackendError
	require.ErrorAs(t, err, &be)
	require.Equal(t, http.StatusConflict, be.Status)
}
