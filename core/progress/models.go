package progress

import (
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core"
)

// AssessmentPrefix marks lesson ids that record an assessment completion instead of watch state.
const AssessmentPrefix = "assessment-"

type (
	LessonProgress struct {
		UserID         string    `json:"user_id"`
		CourseID       string    `json:"course_id"`
		LessonID       string    `json:"lesson_id"`
		WatchedSeconds int       `json:"watched_seconds"`
		TotalSeconds   int       `json:"total_seconds"`
		IsCompleted    bool      `json:"is_completed"`
		CompletedAt    null.Time `json:"completed_at"`
		LastWatchedAt  time.Time `json:"last_watched_at"`
	}

	AssessmentCompletion struct {
		UserID      string    `json:"user_id"`
		CourseID    string    `json:"course_id"`
		LessonID    string    `json:"lesson_id"`
		CompletedAt time.Time `json:"completed_at"`
	}

	// Summary is the per-course view of a user's progress.
	Summary struct {
		Progress         []LessonProgress       `json:"progress"`
		Assessments      []AssessmentCompletion `json:"assessments"`
		Percentage       float64                `json:"percentage"`
		CompletedLessons int                    `json:"completed_lessons"`
		TotalLessons     int                    `json:"total_lessons"`
	}
)

// Merge applies an incoming record to the stored row (zero value when none).
// Completion never regresses: is_completed stays true and completed_at is kept once set.
func (lp LessonProgress) Merge(in LessonProgress, now time.Time) LessonProgress {
	out := in
	out.IsCompleted = lp.IsCompleted || in.IsCompleted
	switch {
	case lp.CompletedAt.Valid:
		out.CompletedAt = lp.CompletedAt
	case out.IsCompleted:
		out.CompletedAt = null.TimeFrom(now)
	default:
		out.CompletedAt = null.Time{}
	}
	out.LastWatchedAt = now
	return out
}

// Percentage returns completed/total*100 rounded to 2 decimals, 0 for a course without lessons.
func Percentage(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	pct := float64(completed) / float64(total) * 100
	return math.Round(pct*100) / 100
}

// ParseLessonID strips the assessment prefix from id.
func ParseLessonID(id string) (lessonID string, isAssessment bool) {
	if strings.HasPrefix(id, AssessmentPrefix) {
		return strings.TrimPrefix(id, AssessmentPrefix), true
	}
	return id, false
}

// RecordProgress is the payload of a watch-state update.
type RecordProgress struct {
	CourseID       string `json:"course_id" validate:"required,notblank"`
	LessonID       string `json:"lesson_id" validate:"required,notblank"`
	WatchedSeconds int    `json:"watched_seconds" validate:"min=0"`
	TotalSeconds   int    `json:"total_seconds" validate:"min=0"`
	IsCompleted    bool   `json:"is_completed"`
}

func (rp *RecordProgress) Validate(validate *validator.Validate) error {
	rp.CourseID = core.CleanString(rp.CourseID)
	rp.LessonID = core.CleanString(rp.LessonID)
	return validate.Struct(rp)
}
