package api

import (
	"context"
	"net/url"

	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
)

// Application statuses used by the moderation workflow.
const (
	ApplicationPending    = "pending"
	ApplicationProcessing = "processing"
	ApplicationCompleted  = "completed"
	ApplicationRejected   = "rejected"
)

// Application mirrors the backend's application document.
type Application struct {
	ID              string  `json:"_id,omitempty"`
	ScholarshipID   string  `json:"scholarshipId"`
	ScholarshipName string  `json:"scholarshipName,omitempty"`
	UniversityName  string  `json:"universityName,omitempty"`
	UserEmail       string  `json:"userEmail"`
	UserName        string  `json:"userName,omitempty"`
	Phone           string  `json:"phone,omitempty"`
	Address         string  `json:"address,omitempty"`
	Gender          string  `json:"gender,omitempty"`
	Degree          string  `json:"applyingDegree,omitempty"`
	SSCResult       string  `json:"sscResult,omitempty"`
	HSCResult       string  `json:"hscResult,omitempty"`
	StudyGap        string  `json:"studyGap,omitempty"`
	Status          string  `json:"status,omitempty"`
	Feedback        string  `json:"feedback,omitempty"`
	ApplicationFees float64 `json:"applicationFees,omitempty"`
	AppliedAt       string  `json:"appliedAt,omitempty"`
}

type Applications struct {
	secure *secure.Client
}

// ListMine returns the signed-in student's applications.
func (a *Applications) ListMine(ctx context.Context, email string, params ListParams) ([]Application, error) {
	v := params.values()
	v.Set("userEmail", email)

	var out []Application
	err := a.secure.Get(ctx, withQuery("/applications", v), &out)
	return out, err
}

// ListAll returns every application, for moderators and admins.
func (a *Applications) ListAll(ctx context.Context, params ListParams) ([]Application, error) {
	var out []Application
	err := a.secure.Get(ctx, withQuery("/applications/all", params.values()), &out)
	return out, err
}

// CheckApplied reports whether the user already applied to a scholarship.
func (a *Applications) CheckApplied(ctx context.Context, scholarshipID, email string) (bool, error) {
	v := url.Values{}
	v.Set("scholarshipId", scholarshipID)
	v.Set("userEmail", email)

	var out struct {
		Applied bool `json:"applied"`
	}
	err := a.secure.Get(ctx, withQuery("/applications/check", v), &out)
	return out.Applied, err
}

// Submit files a new application after checkout completes.
func (a *Applications) Submit(ctx context.Context, in Application) (Application, error) {
	var out Application
	err := a.secure.Post(ctx, "/applications", in, &out)
	return out, err
}

// SetStatus updates an application's moderation status.
func (a *Applications) SetStatus(ctx context.Context, id, status string) error {
	return a.secure.Patch(ctx, "/applications/"+id+"/status",
		map[string]string{"status": status}, nil)
}

// SetFeedback records moderator feedback.
func (a *Applications) SetFeedback(ctx context.Context, id, feedback string) error {
	return a.secure.Patch(ctx, "/applications/"+id+"/feedback",
		map[string]string{"feedback": feedback}, nil)
}

// Cancel removes an application.
func (a *Applications) Cancel(ctx context.Context, id string) error {
	return a.secure.Delete(ctx, "/applications/"+id, nil)
}

// SubmitReview posts a review tied to a completed application.
func (a *Applications) SubmitReview(ctx context.Context, id string, review Review) error {
	return a.secure.Post(ctx, "/applications/"+id+"/review", review, nil)
}
