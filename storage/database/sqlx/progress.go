package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/progress"
)

const (
	lessonProgressColumns = `user_id, course_id, lesson_id, watched_seconds, total_seconds, is_completed, completed_at, last_watched_at`
	assessmentColumns     = `user_id, course_id, lesson_id, completed_at`
)

type (
	lessonProgressRow struct {
		UserID         string    `db:"user_id"`
		CourseID       string    `db:"course_id"`
		LessonID       string    `db:"lesson_id"`
		WatchedSeconds int       `db:"watched_seconds"`
		TotalSeconds   int       `db:"total_seconds"`
		IsCompleted    bool      `db:"is_completed"`
		CompletedAt    null.Time `db:"completed_at"`
		LastWatchedAt  time.Time `db:"last_watched_at"`
	}

	assessmentRow struct {
		UserID      string    `db:"user_id"`
		CourseID    string    `db:"course_id"`
		LessonID    string    `db:"lesson_id"`
		CompletedAt time.Time `db:"completed_at"`
	}
)

func (r lessonProgressRow) toLessonProgress() progress.LessonProgress {
	return progress.LessonProgress{
		UserID:         r.UserID,
		CourseID:       r.CourseID,
		LessonID:       r.LessonID,
		WatchedSeconds: r.WatchedSeconds,
		TotalSeconds:   r.TotalSeconds,
		IsCompleted:    r.IsCompleted,
		CompletedAt:    r.CompletedAt,
		LastWatchedAt:  r.LastWatchedAt.UTC(),
	}
}

func (r assessmentRow) toAssessment() progress.AssessmentCompletion {
	return progress.AssessmentCompletion{
		UserID:      r.UserID,
		CourseID:    r.CourseID,
		LessonID:    r.LessonID,
		CompletedAt: r.CompletedAt.UTC(),
	}
}

type progressRepository struct {
	db *sqlx.DB
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

// UpsertLessonProgress is a single statement: is_completed is OR-ed and completed_at kept once set.
func (repo *progressRepository) UpsertLessonProgress(ctx context.Context, lp progress.LessonProgress) (progress.LessonProgress, error) {
	if !isUUID(lp.LessonID) {
		return progress.LessonProgress{}, course.ErrLessonNotFound
	}
	var r lessonProgressRow
	q := `INSERT INTO lesson_progress (` + lessonProgressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $6 THEN $7::timestamptz END, $7)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			course_id = EXCLUDED.course_id,
			watched_seconds = EXCLUDED.watched_seconds,
			total_seconds = EXCLUDED.total_seconds,
			is_completed = lesson_progress.is_completed OR EXCLUDED.is_completed,
			completed_at = COALESCE(lesson_progress.completed_at, EXCLUDED.completed_at),
			last_watched_at = EXCLUDED.last_watched_at
		RETURNING ` + lessonProgressColumns
	err := repo.db.GetContext(ctx, &r, q,
		lp.UserID, lp.CourseID, lp.LessonID, lp.WatchedSeconds, lp.TotalSeconds, lp.IsCompleted, lp.LastWatchedAt.UTC())
	if err != nil {
		if pqErrCode(err) == foreignKeyViolation {
			return progress.LessonProgress{}, course.ErrLessonNotFound
		}
		return progress.LessonProgress{}, errors.Wrap(err, "upserting lesson progress")
	}
	return r.toLessonProgress(), nil
}

func (repo *progressRepository) TouchAssessmentCompletion(ctx context.Context, ac progress.AssessmentCompletion) (progress.AssessmentCompletion, error) {
	if !isUUID(ac.LessonID) {
		return progress.AssessmentCompletion{}, course.ErrLessonNotFound
	}
	var r assessmentRow
	q := `INSERT INTO assessment_completion (` + assessmentColumns + `) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET course_id = EXCLUDED.course_id, completed_at = EXCLUDED.completed_at
		RETURNING ` + assessmentColumns
	if err := repo.db.GetContext(ctx, &r, q, ac.UserID, ac.CourseID, ac.LessonID, ac.CompletedAt.UTC()); err != nil {
		if pqErrCode(err) == foreignKeyViolation {
			return progress.AssessmentCompletion{}, course.ErrLessonNotFound
		}
		return progress.AssessmentCompletion{}, errors.Wrap(err, "touching assessment completion")
	}
	return r.toAssessment(), nil
}

func (repo *progressRepository) RefreshEnrollmentProgress(ctx context.Context, userID, courseID string, at time.Time) (progress.Summary, error) {
	if !isUUID(courseID) {
		return progress.Summary{}, course.ErrNotFound
	}

	var sum progress.Summary
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var found bool
		if err := tx.GetContext(ctx, &found, `SELECT EXISTS (SELECT 1 FROM course WHERE id = $1)`, courseID); err != nil {
			return errors.Wrap(err, "finding course")
		}
		if !found {
			return course.ErrNotFound
		}
		if err := tx.GetContext(ctx, &sum.TotalLessons, `SELECT COUNT(*) FROM lesson WHERE course_id = $1`, courseID); err != nil {
			return errors.Wrap(err, "counting lessons")
		}
		if !isUUID(userID) {
			return nil
		}

		var rows []lessonProgressRow
		q := `SELECT lp.user_id, lp.course_id, lp.lesson_id, lp.watched_seconds, lp.total_seconds, lp.is_completed,
				lp.completed_at, lp.last_watched_at
			FROM lesson_progress lp JOIN lesson l ON l.id = lp.lesson_id
			WHERE lp.user_id = $1 AND l.course_id = $2
			ORDER BY l.position, l.created_at`
		if err := tx.SelectContext(ctx, &rows, q, userID, courseID); err != nil {
			return errors.Wrap(err, "querying lesson progress")
		}
		for _, r := range rows {
			sum.Progress = append(sum.Progress, r.toLessonProgress())
			if r.IsCompleted {
				sum.CompletedLessons++
			}
		}

		var aRows []assessmentRow
		q = `SELECT ac.user_id, ac.course_id, ac.lesson_id, ac.completed_at
			FROM assessment_completion ac JOIN lesson l ON l.id = ac.lesson_id
			WHERE ac.user_id = $1 AND l.course_id = $2
			ORDER BY l.position, l.created_at`
		if err := tx.SelectContext(ctx, &aRows, q, userID, courseID); err != nil {
			return errors.Wrap(err, "querying assessment completions")
		}
		for _, r := range aRows {
			sum.Assessments = append(sum.Assessments, r.toAssessment())
		}

		sum.Percentage = progress.Percentage(sum.CompletedLessons, sum.TotalLessons)
		_, err := tx.ExecContext(ctx, `UPDATE enrollment SET
				progress_percentage = $1,
				last_accessed_at = $2,
				completed_at = COALESCE(completed_at, CASE WHEN $3 THEN $2::timestamptz END)
			WHERE user_id = $4 AND course_id = $5`,
			sum.Percentage, at.UTC(), sum.Percentage >= 100, userID, courseID)
		return errors.Wrap(err, "refreshing enrollment progress")
	})
	return sum, err
}
