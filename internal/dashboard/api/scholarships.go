package api

import (
	"context"

	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
)

// Scholarship mirrors the backend's scholarship document.
type Scholarship struct {
	ID                  string  `json:"_id,omitempty"`
	ScholarshipName     string  `json:"scholarshipName"`
	UniversityName      string  `json:"universityName"`
	ImageURL            string  `json:"universityImage,omitempty"`
	Country             string  `json:"universityCountry"`
	City                string  `json:"universityCity"`
	WorldRank           int     `json:"universityWorldRank,omitempty"`
	SubjectCategory     string  `json:"subjectCategory"`
	ScholarshipCategory string  `json:"scholarshipCategory"`
	Degree              string  `json:"degree"`
	TuitionFees         float64 `json:"tuitionFees,omitempty"`
	ApplicationFees     float64 `json:"applicationFees"`
	ServiceCharge       float64 `json:"serviceCharge"`
	Deadline            string  `json:"applicationDeadline"`
	PostDate            string  `json:"scholarshipPostDate,omitempty"`
	PostedUserEmail     string  `json:"postedUserEmail,omitempty"`
}

// ScholarshipPage is a paged listing response.
type ScholarshipPage struct {
	Scholarships []Scholarship `json:"scholarships"`
	Total        int           `json:"total"`
}

type Scholarships struct {
	secure *secure.Client
}

func (s *Scholarships) List(ctx context.Context, params ListParams) (ScholarshipPage, error) {
	var out ScholarshipPage
	err := s.secure.Get(ctx, withQuery("/scholarships", params.values()), &out)
	return out, err
}

func (s *Scholarships) Get(ctx context.Context, id string) (Scholarship, error) {
	var out Scholarship
	err := s.secure.Get(ctx, "/scholarships/"+id, &out)
	return out, err
}

func (s *Scholarships) Create(ctx context.Context, in Scholarship) (Scholarship, error) {
	var out Scholarship
	err := s.secure.Post(ctx, "/scholarships", in, &out)
	return out, err
}

func (s *Scholarships) Update(ctx context.Context, id string, in Scholarship) error {
	return s.secure.Patch(ctx, "/scholarships/"+id, in, nil)
}

func (s *Scholarships) Delete(ctx context.Context, id string) error {
	return s.secure.Delete(ctx, "/scholarships/"+id, nil)
}
