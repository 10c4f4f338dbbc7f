package api

import (
	"context"
	"net/url"

	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
)

// Review mirrors the backend's review document.
type Review struct {
	ID              string  `json:"_id,omitempty"`
	ScholarshipID   string  `json:"scholarshipId"`
	ScholarshipName string  `json:"scholarshipName,omitempty"`
	UniversityName  string  `json:"universityName,omitempty"`
	UserEmail       string  `json:"userEmail"`
	UserName        string  `json:"userName,omitempty"`
	UserImage       string  `json:"userImage,omitempty"`
	Rating          float64 `json:"rating"`
	Comment         string  `json:"comment"`
	Date            string  `json:"reviewDate,omitempty"`
}

type Reviews struct {
	secure *secure.Client
}

// ListMine returns the signed-in student's reviews.
func (r *Reviews) ListMine(ctx context.Context, email string) ([]Review, error) {
	v := url.Values{}
	v.Set("userEmail", email)

	var out []Review
	err := r.secure.Get(ctx, withQuery("/reviews", v), &out)
	return out, err
}

// ListAll returns every review, for moderators.
func (r *Reviews) ListAll(ctx context.Context, params ListParams) ([]Review, error) {
	var out []Review
	err := r.secure.Get(ctx, withQuery("/reviews/all", params.values()), &out)
	return out, err
}

// Update replaces a review's rating and comment.
func (r *Reviews) Update(ctx context.Context, id string, in Review) error {
	return r.secure.Put(ctx, "/reviews/"+id, in, nil)
}

// Delete removes a review.
func (r *Reviews) Delete(ctx context.Context, id string) error {
	return r.secure.Delete(ctx, "/reviews/"+id, nil)
}
