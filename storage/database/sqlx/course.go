package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/course"
)

const (
	courseColumns = `id, title, description, status, enrolled_count, created_by, created_at, updated_at`
	lessonColumns = `id, course_id, title, video_url, duration_seconds, position, created_at, updated_at`
)

type (
	courseRow struct {
		ID            string      `db:"id"`
		Title         string      `db:"title"`
		Description   string      `db:"description"`
		Status        string      `db:"status"`
		EnrolledCount int         `db:"enrolled_count"`
		CreatedBy     null.String `db:"created_by"`
		CreatedAt     time.Time   `db:"created_at"`
		UpdatedAt     time.Time   `db:"updated_at"`
	}

	lessonRow struct {
		ID              string    `db:"id"`
		CourseID        string    `db:"course_id"`
		Title           string    `db:"title"`
		VideoURL        string    `db:"video_url"`
		DurationSeconds int       `db:"duration_seconds"`
		Position        int       `db:"position"`
		CreatedAt       time.Time `db:"created_at"`
		UpdatedAt       time.Time `db:"updated_at"`
	}
)

func toCourseRow(c course.Course) courseRow {
	return courseRow{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Status:        c.Status,
		EnrolledCount: c.EnrolledCount,
		CreatedBy:     null.NewString(c.CreatedBy, c.CreatedBy != ""),
		CreatedAt:     c.CreatedAt.UTC(),
		UpdatedAt:     c.UpdatedAt.UTC(),
	}
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Status:        r.Status,
		EnrolledCount: r.EnrolledCount,
		CreatedBy:     r.CreatedBy.String,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (r lessonRow) toLesson() course.Lesson {
	return course.Lesson{
		ID:              r.ID,
		CourseID:        r.CourseID,
		Title:           r.Title,
		VideoURL:        r.VideoURL,
		DurationSeconds: r.DurationSeconds,
		Position:        r.Position,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func toLessonRow(l course.Lesson) lessonRow {
	return lessonRow{
		ID:              l.ID,
		CourseID:        l.CourseID,
		Title:           l.Title,
		VideoURL:        l.VideoURL,
		DurationSeconds: l.DurationSeconds,
		Position:        l.Position,
		CreatedAt:       l.CreatedAt.UTC(),
		UpdatedAt:       l.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.EnrolledCount = 0
	q := `INSERT INTO course (` + courseColumns + `)
		VALUES (:id, :title, :description, :status, :enrolled_count, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toCourseRow(c)); err != nil {
		if pqErrCode(err) == uniqueViolation {
			return course.Course{}, core.NewConflictError("course already exists")
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var wb whereBuilder
	if filter != nil {
		if filter.Search != "" {
			val := likeArg(filter.Search)
			wb.add("(title ILIKE ? OR description ILIKE ?)", val, val)
		}
		if len(filter.Statuses) > 0 {
			if err := wb.addIn("status", filter.Statuses); err != nil {
				return nil, err
			}
		}
	}

	var rows []courseRow
	q := repo.db.Rebind(`SELECT ` + courseColumns + ` FROM course` + wb.String() + orderClause(ordering, "created_at"))
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if !isUUID(id) {
		return course.Course{}, course.ErrNotFound
	}
	var r courseRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+courseColumns+` FROM course WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return r.toCourse(), nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	if !isUUID(c.ID) {
		return course.Course{}, course.ErrNotFound
	}
	var r courseRow
	q := `UPDATE course SET title = $1, description = $2, status = $3, updated_at = $4 WHERE id = $5 RETURNING ` + courseColumns
	if err := repo.db.GetContext(ctx, &r, q, c.Title, c.Description, c.Status, c.UpdatedAt.UTC(), c.ID); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return r.toCourse(), nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) CreateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	q := `INSERT INTO lesson (` + lessonColumns + `)
		VALUES (:id, :course_id, :title, :video_url, :duration_seconds, :position, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toLessonRow(l)); err != nil {
		if pqErrCode(err) == foreignKeyViolation {
			return course.Lesson{}, course.ErrNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return l, nil
}

func (repo *courseRepository) QueryLessons(ctx context.Context, courseID string) ([]course.Lesson, error) {
	lessons := make([]course.Lesson, 0)
	if !isUUID(courseID) {
		return lessons, nil
	}
	var rows []lessonRow
	q := `SELECT ` + lessonColumns + ` FROM lesson WHERE course_id = $1 ORDER BY position, created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	for _, r := range rows {
		lessons = append(lessons, r.toLesson())
	}
	return lessons, nil
}

func (repo *courseRepository) GetLesson(ctx context.Context, id string) (course.Lesson, error) {
	if !isUUID(id) {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	var r lessonRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+lessonColumns+` FROM lesson WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Lesson{}, course.ErrLessonNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "finding lesson")
	}
	return r.toLesson(), nil
}

func (repo *courseRepository) UpdateLesson(ctx context.Context, l course.Lesson) (course.Lesson, error) {
	q := `UPDATE lesson SET title = :title, video_url = :video_url, duration_seconds = :duration_seconds,
		position = :position, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toLessonRow(l))
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Lesson{}, course.ErrLessonNotFound
	}
	return l, nil
}

func (repo *courseRepository) DeleteLesson(ctx context.Context, id string) error {
	if !isUUID(id) {
		return course.ErrLessonNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.ErrLessonNotFound
	}
	return nil
}
