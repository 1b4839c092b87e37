package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/enrollment"
	"github.com/trezcool/cursos/core/user"
)

const (
	grantColumns      = `user_id, course_id, granted_by, granted_at`
	enrollmentColumns = `user_id, course_id, enrolled_at, completed_at, progress_percentage, last_accessed_at`
)

type (
	grantRow struct {
		UserID    string      `db:"user_id"`
		CourseID  string      `db:"course_id"`
		GrantedBy null.String `db:"granted_by"`
		GrantedAt time.Time   `db:"granted_at"`
	}

	enrollmentRow struct {
		UserID             string    `db:"user_id"`
		CourseID           string    `db:"course_id"`
		EnrolledAt         time.Time `db:"enrolled_at"`
		CompletedAt        null.Time `db:"completed_at"`
		ProgressPercentage float64   `db:"progress_percentage"`
		LastAccessedAt     null.Time `db:"last_accessed_at"`
	}
)

func (r grantRow) toGrant() enrollment.Grant {
	return enrollment.Grant{
		UserID:    r.UserID,
		CourseID:  r.CourseID,
		GrantedBy: r.GrantedBy.String,
		GrantedAt: r.GrantedAt.UTC(),
	}
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		UserID:             r.UserID,
		CourseID:           r.CourseID,
		EnrolledAt:         r.EnrolledAt.UTC(),
		CompletedAt:        r.CompletedAt,
		ProgressPercentage: r.ProgressPercentage,
		LastAccessedAt:     r.LastAccessedAt,
	}
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func pairFilter(filter *enrollment.QueryFilter) (whereBuilder, bool) {
	var wb whereBuilder
	if filter == nil {
		return wb, true
	}
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return wb, false
		}
		wb.add("user_id = ?", filter.UserID)
	}
	if filter.CourseID != "" {
		if !isUUID(filter.CourseID) {
			return wb, false
		}
		wb.add("course_id = ?", filter.CourseID)
	}
	return wb, true
}

func (repo *enrollmentRepository) GetGrant(ctx context.Context, userID, courseID string) (enrollment.Grant, error) {
	if !isUUID(userID, courseID) {
		return enrollment.Grant{}, enrollment.ErrGrantNotFound
	}
	var r grantRow
	q := `SELECT ` + grantColumns + ` FROM course_grant WHERE user_id = $1 AND course_id = $2`
	if err := repo.db.GetContext(ctx, &r, q, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Grant{}, enrollment.ErrGrantNotFound
		}
		return enrollment.Grant{}, errors.Wrap(err, "finding grant")
	}
	return r.toGrant(), nil
}

func (repo *enrollmentRepository) QueryGrants(ctx context.Context, filter *enrollment.QueryFilter) ([]enrollment.Grant, error) {
	grants := make([]enrollment.Grant, 0)
	wb, ok := pairFilter(filter)
	if !ok {
		return grants, nil
	}
	var rows []grantRow
	q := repo.db.Rebind(`SELECT ` + grantColumns + ` FROM course_grant` + wb.String() + ` ORDER BY granted_at`)
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying grants")
	}
	for _, r := range rows {
		grants = append(grants, r.toGrant())
	}
	return grants, nil
}

// lockCourse locks the course row for the rest of the transaction and returns its status.
func lockCourse(ctx context.Context, tx *sqlx.Tx, courseID string) (string, error) {
	var status string
	if err := tx.GetContext(ctx, &status, `SELECT status FROM course WHERE id = $1 FOR UPDATE`, courseID); err != nil {
		if err == sql.ErrNoRows {
			return "", course.ErrNotFound
		}
		return "", errors.Wrap(err, "locking course")
	}
	return status, nil
}

// enroll inserts the enrollment unless present and bumps enrolled_count accordingly.
func enroll(ctx context.Context, tx *sqlx.Tx, e enrollment.Enrollment) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO enrollment (user_id, course_id, enrolled_at) VALUES ($1, $2, $3) ON CONFLICT (user_id, course_id) DO NOTHING`,
		e.UserID, e.CourseID, e.EnrolledAt.UTC())
	if err != nil {
		return false, errors.Wrap(err, "inserting enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if _, err = tx.ExecContext(ctx, `UPDATE course SET enrolled_count = enrolled_count + 1 WHERE id = $1`, e.CourseID); err != nil {
		return false, errors.Wrap(err, "incrementing enrolled count")
	}
	return true, nil
}

// unenroll deletes the enrollment if present and releases enrolled_count, floored at 0.
func unenroll(ctx context.Context, tx *sqlx.Tx, userID, courseID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM enrollment WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "deleting enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE course SET enrolled_count = GREATEST(enrolled_count - 1, 0) WHERE id = $1`, courseID); err != nil {
		return false, errors.Wrap(err, "decrementing enrolled count")
	}
	return true, nil
}

func (repo *enrollmentRepository) CreateGrant(ctx context.Context, g enrollment.Grant) (bool, error) {
	if !isUUID(g.CourseID) {
		return false, course.ErrNotFound
	}
	if !isUUID(g.UserID) {
		return false, user.ErrNotFound
	}

	var created bool
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		status, err := lockCourse(ctx, tx, g.CourseID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO course_grant (`+grantColumns+`) VALUES ($1, $2, $3, $4)`,
			g.UserID, g.CourseID, null.NewString(g.GrantedBy, g.GrantedBy != ""), g.GrantedAt.UTC())
		switch pqErrCode(err) {
		case "":
			if err != nil {
				return errors.Wrap(err, "inserting grant")
			}
		case uniqueViolation:
			return enrollment.ErrGrantExists
		case foreignKeyViolation:
			return user.ErrNotFound
		default:
			return errors.Wrap(err, "inserting grant")
		}

		if status != course.StatusPublished {
			return nil
		}
		created, err = enroll(ctx, tx, enrollment.Enrollment{UserID: g.UserID, CourseID: g.CourseID, EnrolledAt: g.GrantedAt})
		return err
	})
	return created, err
}

func (repo *enrollmentRepository) DeleteGrant(ctx context.Context, userID, courseID string) (bool, error) {
	if !isUUID(userID, courseID) {
		return false, enrollment.ErrGrantNotFound
	}

	var removed bool
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := lockCourse(ctx, tx, courseID); err != nil {
			if err == course.ErrNotFound {
				return enrollment.ErrGrantNotFound
			}
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM course_grant WHERE user_id = $1 AND course_id = $2`, userID, courseID)
		if err != nil {
			return errors.Wrap(err, "deleting grant")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return enrollment.ErrGrantNotFound
		}
		removed, err = unenroll(ctx, tx, userID, courseID)
		return err
	})
	return removed, err
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	if !isUUID(userID, courseID) {
		return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
	}
	var r enrollmentRow
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE user_id = $1 AND course_id = $2`
	if err := repo.db.GetContext(ctx, &r, q, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return r.toEnrollment(), nil
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter *enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	enrollments := make([]enrollment.Enrollment, 0)
	wb, ok := pairFilter(filter)
	if !ok {
		return enrollments, nil
	}
	var rows []enrollmentRow
	q := repo.db.Rebind(`SELECT ` + enrollmentColumns + ` FROM enrollment` + wb.String() + ` ORDER BY enrolled_at`)
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	for _, r := range rows {
		enrollments = append(enrollments, r.toEnrollment())
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment) (bool, error) {
	if !isUUID(e.CourseID) {
		return false, course.ErrNotFound
	}
	if !isUUID(e.UserID) {
		return false, user.ErrNotFound
	}

	var created bool
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := lockCourse(ctx, tx, e.CourseID); err != nil {
			return err
		}
		var err error
		created, err = enroll(ctx, tx, e)
		if pqErrCode(err) == foreignKeyViolation {
			return user.ErrNotFound
		}
		return err
	})
	return created, err
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	if !isUUID(userID, courseID) {
		return false, nil
	}

	var removed bool
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := lockCourse(ctx, tx, courseID); err != nil {
			if err == course.ErrNotFound {
				return nil
			}
			return err
		}
		var err error
		removed, err = unenroll(ctx, tx, userID, courseID)
		return err
	})
	return removed, err
}

func (repo *enrollmentRepository) ReconcileEnrolledCounts(ctx context.Context) (int, error) {
	res, err := repo.db.ExecContext(ctx, `
		WITH counts AS (
			SELECT c.id, COUNT(e.user_id) AS n
			FROM course c LEFT JOIN enrollment e ON e.course_id = c.id
			GROUP BY c.id
		)
		UPDATE course SET enrolled_count = counts.n
		FROM counts
		WHERE course.id = counts.id AND course.enrolled_count <> counts.n`)
	if err != nil {
		return 0, errors.Wrap(err, "reconciling enrolled counts")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "counting reconciled courses")
}
