package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core"
)

type (
	// Grant authorizes a user to access a course.
	Grant struct {
		UserID    string    `json:"user_id"`
		CourseID  string    `json:"course_id"`
		GrantedBy string    `json:"granted_by"`
		GrantedAt time.Time `json:"granted_at"`
	}

	// Enrollment registers a user in a course and caches their progress.
	Enrollment struct {
		UserID             string    `json:"user_id"`
		CourseID           string    `json:"course_id"`
		EnrolledAt         time.Time `json:"enrolled_at"`
		CompletedAt        null.Time `json:"completed_at"`
		ProgressPercentage float64   `json:"progress_percentage"`
		LastAccessedAt     null.Time `json:"last_accessed_at"`
	}
)

// GrantRequest is the payload of grant and revoke calls.
type GrantRequest struct {
	UserID   string `json:"user_id" query:"user_id" validate:"required,notblank"`
	CourseID string `json:"course_id" query:"course_id" validate:"required,notblank"`
}

func (gr *GrantRequest) Validate(validate *validator.Validate) error {
	gr.UserID = core.CleanString(gr.UserID)
	gr.CourseID = core.CleanString(gr.CourseID)
	return validate.Struct(gr)
}

// EnrollRequest is the payload of self-enroll and self-unenroll calls. UserID is only honoured for root.
type EnrollRequest struct {
	CourseID string `json:"course_id" query:"course_id" validate:"required,notblank"`
	UserID   string `json:"user_id" query:"user_id"`
}

func (er *EnrollRequest) Validate(validate *validator.Validate) error {
	er.CourseID = core.CleanString(er.CourseID)
	er.UserID = core.CleanString(er.UserID)
	return validate.Struct(er)
}

type QueryFilter struct {
	UserID   string `query:"user_id"`
	CourseID string `query:"course_id"`
}

func (qf *QueryFilter) Clean() {
	qf.UserID = core.CleanString(qf.UserID)
	qf.CourseID = core.CleanString(qf.CourseID)
}

// grantNotice feeds the course_access_granted email template.
type grantNotice struct {
	UserName    string
	CourseTitle string
	CourseID    string
	Enrolled    bool
}
