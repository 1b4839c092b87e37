package progress

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/user"
)

type (
	Repository interface {
		// UpsertLessonProgress stores lp keyed by (user, lesson), merging it with the stored row via LessonProgress.Merge.
		UpsertLessonProgress(ctx context.Context, lp LessonProgress) (LessonProgress, error)
		// TouchAssessmentCompletion inserts the completion or refreshes its timestamp.
		TouchAssessmentCompletion(ctx context.Context, ac AssessmentCompletion) (AssessmentCompletion, error)
		// RefreshEnrollmentProgress computes the Summary of (user, course) and, in the same transaction,
		// writes its percentage and `at` into the enrollment when one exists.
		RefreshEnrollmentProgress(ctx context.Context, userID, courseID string, at time.Time) (Summary, error)
	}

	Service struct {
		repo    Repository
		courses *course.Service
	}
)

func NewService(repo Repository, courses *course.Service) *Service {
	return &Service{repo: repo, courses: courses}
}

// Record stores the actor's watch state for a lesson of a course.
// Lesson ids prefixed with AssessmentPrefix record an assessment completion instead.
func (svc *Service) Record(ctx context.Context, actor user.User, rp RecordProgress) error {
	if _, err := svc.courses.Get(ctx, actor, rp.CourseID); err != nil {
		return errors.Wrap(err, "finding course")
	}
	lessonID, isAssessment := ParseLessonID(rp.LessonID)
	if _, err := svc.courses.Lesson(ctx, rp.CourseID, lessonID); err != nil {
		return errors.Wrap(err, "finding lesson")
	}

	now := time.Now().UTC()
	if isAssessment {
		_, err := svc.repo.TouchAssessmentCompletion(ctx, AssessmentCompletion{
			UserID:      actor.ID,
			CourseID:    rp.CourseID,
			LessonID:    lessonID,
			CompletedAt: now,
		})
		return errors.Wrap(err, "touching assessment completion")
	}

	_, err := svc.repo.UpsertLessonProgress(ctx, LessonProgress{
		UserID:         actor.ID,
		CourseID:       rp.CourseID,
		LessonID:       lessonID,
		WatchedSeconds: rp.WatchedSeconds,
		TotalSeconds:   rp.TotalSeconds,
		IsCompleted:    rp.IsCompleted,
		LastWatchedAt:  now,
	})
	return errors.Wrap(err, "upserting lesson progress")
}

// Get returns the progress of userID (the actor when empty) in a course and refreshes the cached
// enrollment percentage. Only root may read someone else's progress.
func (svc *Service) Get(ctx context.Context, actor user.User, userID, courseID string) (Summary, error) {
	if userID == "" {
		userID = actor.ID
	}
	if userID != actor.ID && !actor.IsRoot() {
		return Summary{}, core.ErrForbidden
	}
	if _, err := svc.courses.Get(ctx, actor, courseID); err != nil {
		return Summary{}, errors.Wrap(err, "finding course")
	}

	sum, err := svc.repo.RefreshEnrollmentProgress(ctx, userID, courseID, time.Now().UTC())
	if err != nil {
		return Summary{}, errors.Wrap(err, "refreshing enrollment progress")
	}
	if sum.Progress == nil {
		sum.Progress = []LessonProgress{}
	}
	if sum.Assessments == nil {
		sum.Assessments = []AssessmentCompletion{}
	}
	return sum, nil
}
