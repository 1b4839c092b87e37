package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/progress"
)

type progressRepository struct {
	db *DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) UpsertLessonProgress(_ context.Context, lp progress.LessonProgress) (progress.LessonProgress, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessons[lp.LessonID]; !ok {
		return progress.LessonProgress{}, course.ErrLessonNotFound
	}
	key := pair{lp.UserID, lp.LessonID}
	var stored progress.LessonProgress
	if row, ok := repo.db.progress[key]; ok {
		stored = *row
	}
	merged := stored.Merge(lp, lp.LastWatchedAt)
	repo.db.progress[key] = &merged
	return merged, nil
}

func (repo *progressRepository) TouchAssessmentCompletion(_ context.Context, ac progress.AssessmentCompletion) (progress.AssessmentCompletion, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.lessons[ac.LessonID]; !ok {
		return progress.AssessmentCompletion{}, course.ErrLessonNotFound
	}
	repo.db.assessments[pair{ac.UserID, ac.LessonID}] = &ac
	return ac, nil
}

func (repo *progressRepository) RefreshEnrollmentProgress(_ context.Context, userID, courseID string, at time.Time) (progress.Summary, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[courseID]; !ok {
		return progress.Summary{}, course.ErrNotFound
	}

	var sum progress.Summary
	for _, l := range repo.db.courseLessons(courseID) {
		sum.TotalLessons++
		if lp, ok := repo.db.progress[pair{userID, l.ID}]; ok {
			sum.Progress = append(sum.Progress, *lp)
			if lp.IsCompleted {
				sum.CompletedLessons++
			}
		}
		if ac, ok := repo.db.assessments[pair{userID, l.ID}]; ok {
			sum.Assessments = append(sum.Assessments, *ac)
		}
	}
	sum.Percentage = progress.Percentage(sum.CompletedLessons, sum.TotalLessons)

	if e, ok := repo.db.enrollments[pair{userID, courseID}]; ok {
		e.ProgressPercentage = sum.Percentage
		e.LastAccessedAt = null.TimeFrom(at)
		if sum.Percentage >= 100 && !e.CompletedAt.Valid {
			e.CompletedAt = null.TimeFrom(at)
		}
	}
	return sum, nil
}
