// Package web exposes the dashboard over HTTP: auth endpoints, public
// scholarship browsing, and the role-guarded screen data routes.
package web

import (
	"log/slog"
	"net/http"

	"github.com/scholarhub/scholarhub/internal/dashboard/guard"
	"github.com/scholarhub/scholarhub/pkg/httpx"
	"github.com/scholarhub/scholarhub/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger *slog.Logger
	guard  *guard.Guard
	table  RouteTable

	Auth      *AuthHandler
	Dashboard *DashboardHandler
}

func NewRouter(
	logger *slog.Logger,
	g *guard.Guard,
	table RouteTable,
	auth *AuthHandler,
	dashboard *DashboardHandler,
) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		logger:    logger,
		guard:     g,
		table:     table,
		Auth:      auth,
		Dashboard: dashboard,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPublic()
	r.registerStudent()
	r.registerModeration()
	r.registerAdmin()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// Credential endpoints get the strict limit to slow brute force.
	authLimited := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, httpx.RateLimit(httpx.AuthLimit, httpx.IPKey))
	}

	r.Mux.Handle("POST /auth/register", authLimited(r.Auth.HandleRegister))
	r.Mux.Handle("POST /auth/login", authLimited(r.Auth.HandleLogin))
	r.Mux.Handle("GET /auth/social/login", authLimited(r.Auth.HandleSocialBegin))
	r.Mux.Handle("GET /auth/social/callback", authLimited(r.Auth.HandleSocialCallback))

	r.Mux.HandleFunc("POST /auth/logout", r.Auth.HandleLogout)
	r.Mux.HandleFunc("GET /auth/me", r.Auth.HandleMe)
}

func (r *Router) registerPublic() {
	publicLimited := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h, httpx.RateLimit(httpx.PublicLimit, httpx.IPKey))
	}

	// Scholarship browsing needs no session.
	r.Mux.Handle("GET /scholarships", publicLimited(r.Dashboard.HandleListScholarships))
	r.Mux.Handle("GET /scholarships/{id}", publicLimited(r.Dashboard.HandleGetScholarship))
}

func (r *Router) registerStudent() {
	d := r.Dashboard

	r.Mux.Handle("GET /dashboard",
		r.guard.Require(r.table.RoleFor("home"), http.HandlerFunc(d.HandleHome)))

	profile := r.table.RoleFor("profile")
	r.Mux.Handle("GET /dashboard/profile",
		r.guard.Require(profile, http.HandlerFunc(d.HandleGetProfile)))
	r.Mux.Handle("PATCH /dashboard/profile",
		r.guard.Require(profile, http.HandlerFunc(d.HandleUpdateProfile)))

	apps := r.table.RoleFor("my-applications")
	r.Mux.Handle("GET /dashboard/my-applications",
		r.guard.Require(apps, http.HandlerFunc(d.HandleMyApplications)))
	r.Mux.Handle("POST /dashboard/applications",
		r.guard.Require(apps, http.HandlerFunc(d.HandleSubmitApplication)))
	r.Mux.Handle("DELETE /dashboard/applications/{id}",
		r.guard.Require(apps, http.HandlerFunc(d.HandleCancelApplication)))
	r.Mux.Handle("POST /dashboard/applications/{id}/review",
		r.guard.Require(apps, http.HandlerFunc(d.HandleSubmitReview)))

	reviews := r.table.RoleFor("my-reviews")
	r.Mux.Handle("GET /dashboard/my-reviews",
		r.guard.Require(reviews, http.HandlerFunc(d.HandleMyReviews)))
	r.Mux.Handle("PUT /dashboard/reviews/{id}",
		r.guard.Require(reviews, http.HandlerFunc(d.HandleUpdateReview)))
	r.Mux.Handle("DELETE /dashboard/reviews/{id}",
		r.guard.Require(reviews, http.HandlerFunc(d.HandleDeleteReview)))

	payment := r.table.RoleFor("payment")
	r.Mux.Handle("POST /dashboard/payments/checkout",
		r.guard.Require(payment, http.HandlerFunc(d.HandleCheckout)))
	r.Mux.Handle("POST /dashboard/payments/success",
		r.guard.Require(payment, http.HandlerFunc(d.HandlePaymentSuccess)))
}

func (r *Router) registerModeration() {
	d := r.Dashboard

	applied := r.table.RoleFor("manage-applied")
	r.Mux.Handle("GET /dashboard/applications/all",
		r.guard.Require(applied, http.HandlerFunc(d.HandleAllApplications)))
	r.Mux.Handle("PATCH /dashboard/applications/{id}/status",
		r.guard.Require(applied, http.HandlerFunc(d.HandleSetApplicationStatus)))
	r.Mux.Handle("PATCH /dashboard/applications/{id}/feedback",
		r.guard.Require(applied, http.HandlerFunc(d.HandleSetApplicationFeedback)))

	allReviews := r.table.RoleFor("all-reviews")
	r.Mux.Handle("GET /dashboard/reviews/all",
		r.guard.Require(allReviews, http.HandlerFunc(d.HandleAllReviews)))
	r.Mux.Handle("DELETE /dashboard/moderation/reviews/{id}",
		r.guard.Require(allReviews, http.HandlerFunc(d.HandleDeleteReview)))
}

func (r *Router) registerAdmin() {
	d := r.Dashboard

	manage := r.table.RoleFor("manage-scholarships")
	r.Mux.Handle("POST /dashboard/scholarships",
		r.guard.Require(r.table.RoleFor("add-scholarship"), http.HandlerFunc(d.HandleCreateScholarship)))
	r.Mux.Handle("PATCH /dashboard/scholarships/{id}",
		r.guard.Require(manage, http.HandlerFunc(d.HandleUpdateScholarship)))
	r.Mux.Handle("DELETE /dashboard/scholarships/{id}",
		r.guard.Require(manage, http.HandlerFunc(d.HandleDeleteScholarship)))

	users := r.table.RoleFor("manage-users")
	r.Mux.Handle("GET /dashboard/users",
		r.guard.Require(users, http.HandlerFunc(d.HandleListUsers)))
	r.Mux.Handle("PATCH /dashboard/users/{id}/role",
		r.guard.Require(users, http.HandlerFunc(d.HandleSetUserRole)))
	r.Mux.Handle("DELETE /dashboard/users/{id}",
		r.guard.Require(users, http.HandlerFunc(d.HandleDeleteUser)))

	r.Mux.Handle("GET /dashboard/analytics",
		r.guard.Require(r.table.RoleFor("analytics"), http.HandlerFunc(d.HandleAnalytics)))
}
