package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/scholarhub/scholarhub/internal/dashboard/api"
	"github.com/scholarhub/scholarhub/internal/dashboard/domain"
	"github.com/scholarhub/scholarhub/internal/dashboard/roles"
	"github.com/scholarhub/scholarhub/internal/dashboard/session"
	"github.com/scholarhub/scholarhub/pkg/httpx"
	"github.com/scholarhub/scholarhub/pkg/slogx"
)

// DashboardHandler serves the screen data endpoints. Each method is a thin
// adapter from the HTTP surface to the typed backend clients; authorization
// happens in the guard middleware wrapping these routes.
type DashboardHandler struct {
	Session *session.Store
	API     *api.Client
	Roles   *roles.Resolver
	Logger  *slog.Logger
}

// principal snapshots the signed-in principal once per request. The guard's
// allow decision and the handler body are separate reads of shared session
// state; a forced sign-out from a concurrent request can clear the session in
// between, so handlers answer 401 on nil instead of dereferencing.
func (h *DashboardHandler) principal(w http.ResponseWriter) (*domain.Principal, bool) {
	p := h.Session.Principal()
	if p == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "session expired")
		return nil, false
	}
	return p, true
}

// writeAPIError maps client errors onto this service's responses. Backend
// statuses pass through so screens can react to conflicts and not-founds.
func writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrSessionInvalidated) {
		httpx.WriteError(w, http.StatusUnauthorized, "session expired")
		return
	}

	var be *domain.BackendError
	if errors.As(err, &be) {
		httpx.WriteError(w, be.Status, "backend rejected the request")
		return
	}

	slogx.FromContext(r.Context()).Error("backend call failed", "error", err)
	httpx.WriteError(w, http.StatusBadGateway, "backend unavailable")
}

func parseListParams(r *http.Request) api.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return api.ListParams{
		Search: q.Get("search"),
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Page:   page,
		Limit:  limit,
	}
}

// HandleHome is the dashboard landing screen: the principal plus their
// resolved role, so the shell knows which navigation to draw. A still-loading
// role is reported as empty rather than failing the screen.
func (h *DashboardHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w)
	if !ok {
		return
	}

	out := struct {
		Principal principalResponse `json:"principal"`
		Role      domain.Role       `json:"role,omitempty"`
	}{Principal: toPrincipalResponse(p)}

	role, err := h.Roles.Resolve(r.Context(), p.Email)
	if err == nil {
		out.Role = role
	} else if !errors.Is(err, domain.ErrRoleUnresolved) {
		slogx.FromContext(r.Context()).Warn("role lookup failed", "error", err)
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleAnalytics aggregates platform counts for the admin overview.
func (h *DashboardHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scholarships, err := h.API.Scholarships().List(ctx, api.ListParams{Limit: 1})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	applications, err := h.API.Applications().ListAll(ctx, api.ListParams{})
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	users, err := h.API.Users().List(ctx, "", domain.RoleNone)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int{
		"scholarships": scholarships.Total,
		"applications": len(applications),
		"users":        len(users),
	})
}

// --- Scholarships ---

func (h *DashboardHandler) HandleListScholarships(w http.ResponseWriter, r *http.Request) {
	page, err := h.API.Scholarships().List(r.Context(), parseListParams(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *DashboardHandler) HandleGetScholarship(w http.ResponseWriter, r *http.Request) {
	s, err := h.API.Scholarships().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, s)
}

func (h *DashboardHandler) HandleCreateScholarship(w http.ResponseWriter, r *http.Request) {
	var in api.Scholarship
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, ok := h.principal(w)
	if !ok {
		return
	}
	in.PostedUserEmail = p.Email

	out, err := h.API.Scholarships().Create(r.Context(), in)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (h *DashboardHandler) HandleUpdateScholarship(w http.ResponseWriter, r *http.Request) {
	var in api.Scholarship
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.API.Scholarships().Update(r.Context(), r.PathValue("id"), in); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) HandleDeleteScholarship(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Scholarships().Delete(r.Context(), r.PathValue("id")); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Applications ---

func (h *DashboardHandler) HandleMyApplications(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w)
	if !ok {
		return
	}

	apps, err := h.API.Applications().ListMine(r.Context(), p.Email, parseListParams(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, apps)
}

func (h *DashboardHandler) HandleAllApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.API.Applications().ListAll(r.Context(), parseListParams(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, apps)
}

func (h *DashboardHandler) HandleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var in api.Application
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The application always belongs to the signed-in student, whatever the
	// body claims.
	p, ok := h.principal(w)
	if !ok {
		return
	}
	in.UserEmail = p.Email
	if in.UserName == "" {
		in.UserName = p.DisplayName
	}

	ctx := r.Context()
	applied, err := h.API.Applications().CheckApplied(ctx, in.ScholarshipID, p.Email)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	if applied {
		httpx.WriteError(w, http.StatusConflict, "already applied to this scholarship")
		return
	}

	out, err := h.API.Applications().Submit(ctx, in)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, out)
}

func (h *DashboardHandler) HandleCancelApplication(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Applications().Cancel(r.Context(), r.PathValue("id")); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) HandleSetApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch in.Status {
	case api.ApplicationPending, api.ApplicationProcessing,
		api.ApplicationCompleted, api.ApplicationRejected:
	default:
		httpx.WriteError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.API.Applications().SetStatus(r.Context(), r.PathValue("id"), in.Status); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) HandleSetApplicationFeedback(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.API.Applications().SetFeedback(r.Context(), r.PathValue("id"), in.Feedback); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Reviews ---

func (h *DashboardHandler) HandleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var in api.Review
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, ok := h.principal(w)
	if !ok {
		return
	}
	in.UserEmail = p.Email
	in.UserName = p.DisplayName
	in.UserImage = p.AvatarURL

	if err := h.API.Applications().SubmitReview(r.Context(), r.PathValue("id"), in); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *DashboardHandler) HandleMyReviews(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w)
	if !ok {
		return
	}

	out, err := h.API.Reviews().ListMine(r.Context(), p.Email)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) HandleAllReviews(w http.ResponseWriter, r *http.Request) {
	out, err := h.API.Reviews().ListAll(r.Context(), parseListParams(r))
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) HandleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var in api.Review
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.API.Reviews().Update(r.Context(), r.PathValue("id"), in); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) HandleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Reviews().Delete(r.Context(), r.PathValue("id")); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Users ---

func (h *DashboardHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	role := domain.Role(r.URL.Query().Get("role"))
	if role != domain.RoleNone && !role.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "unknown role filter")
		return
	}

	out, err := h.API.Users().List(r.Context(), r.URL.Query().Get("search"), role)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleSetUserRole changes a user's role and drops the cached role for the
// affected email so the new role takes effect on their next guarded request.
func (h *DashboardHandler) HandleSetUserRole(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string      `json:"email"`
		Role  domain.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !in.Role.Valid() {
		httpx.WriteError(w, http.StatusBadRequest, "unknown role")
		return
	}
	// The cache is keyed by email; without it the old role would survive
	// until the TTL, so a mutation request must carry it.
	if in.Email == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing email")
		return
	}

	ctx := r.Context()
	if err := h.API.Users().SetRole(ctx, r.PathValue("id"), in.Role); err != nil {
		writeAPIError(w, r, err)
		return
	}

	if err := h.Roles.Invalidate(ctx, in.Email); err != nil {
		slogx.FromContext(ctx).Warn("role cache invalidation failed",
			"email", in.Email, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DashboardHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.API.Users().Delete(r.Context(), r.PathValue("id")); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Profile ---

func (h *DashboardHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w)
	if !ok {
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toPrincipalResponse(p))
}

// HandleUpdateProfile applies the patch to the provider, mirrors it into the
// backend user record, and patches the local projection without a refetch.
func (h *DashboardHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     *string `json:"name,omitempty"`
		PhotoURL *string `json:"photoURL,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	patch := domain.Patch{DisplayName: in.Name, AvatarURL: in.PhotoURL}

	p, ok := h.principal(w)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.Session.UpdateProfile(ctx, patch); err != nil {
		writeAPIError(w, r, err)
		return
	}
	if err := h.API.Users().SyncProfile(ctx, p.Email, patch); err != nil {
		slogx.FromContext(ctx).Warn("profile sync failed", "email", p.Email, "error", err)
	}
	h.Session.ApplyLocalPatch(patch)

	updated := h.Session.Principal()
	if updated == nil {
		httpx.WriteError(w, http.StatusUnauthorized, "session expired")
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toPrincipalResponse(updated))
}

// --- Payments ---

func (h *DashboardHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var in api.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, ok := h.principal(w)
	if !ok {
		return
	}
	in.UserEmail = p.Email

	out, err := h.API.Payments().CreateCheckoutSession(r.Context(), in)
	if err != nil {
		writeAPIError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) HandlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.SessionID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing session id")
		return
	}

	if err := h.API.Payments().ConfirmPayment(r.Context(), in.SessionID); err != nil {
		writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
