package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core/report"
)

type courseStatsRow struct {
	CourseID             string  `db:"course_id"`
	Title                string  `db:"title"`
	Status               string  `db:"status"`
	EnrolledCount        int     `db:"enrolled_count"`
	Enrollments          int     `db:"enrollments"`
	Grants               int     `db:"grants"`
	AverageProgress      float64 `db:"average_progress"`
	CompletedEnrollments int     `db:"completed_enrollments"`
}

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) *reportRepository {
	return &reportRepository{db: db}
}

func (repo *reportRepository) CourseStats(ctx context.Context) ([]report.CourseStats, error) {
	var rows []courseStatsRow
	q := `SELECT c.id AS course_id, c.title, c.status, c.enrolled_count,
			COUNT(e.user_id) AS enrollments,
			(SELECT COUNT(*) FROM course_grant g WHERE g.course_id = c.id) AS grants,
			COALESCE(ROUND(AVG(e.progress_percentage), 2), 0) AS average_progress,
			COUNT(e.user_id) FILTER (WHERE e.progress_percentage >= 100) AS completed_enrollments
		FROM course c LEFT JOIN enrollment e ON e.course_id = c.id
		GROUP BY c.id
		ORDER BY c.title`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying course stats")
	}
	stats := make([]report.CourseStats, 0, len(rows))
	for _, r := range rows {
		stats = append(stats, report.CourseStats(r))
	}
	return stats, nil
}
