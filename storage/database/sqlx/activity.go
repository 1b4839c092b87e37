package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/activity"
)

const activityColumns = `id, title, description, bncc_code, stage, subject, grade, published, created_by, created_at, updated_at`

type activityRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	BNCCCode    string      `db:"bncc_code"`
	Stage       string      `db:"stage"`
	Subject     string      `db:"subject"`
	Grade       string      `db:"grade"`
	Published   bool        `db:"published"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toActivityRow(a activity.Activity) activityRow {
	return activityRow{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		BNCCCode:    a.BNCCCode,
		Stage:       a.Stage,
		Subject:     a.Subject,
		Grade:       a.Grade,
		Published:   a.Published,
		CreatedBy:   null.NewString(a.CreatedBy, a.CreatedBy != ""),
		CreatedAt:   a.CreatedAt.UTC(),
		UpdatedAt:   a.UpdatedAt.UTC(),
	}
}

func (r activityRow) toActivity() activity.Activity {
	return activity.Activity{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		BNCCCode:    r.BNCCCode,
		Stage:       r.Stage,
		Subject:     r.Subject,
		Grade:       r.Grade,
		Published:   r.Published,
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type activityRepository struct {
	db *sqlx.DB
}

var _ activity.Repository = (*activityRepository)(nil) // interface compliance check

func NewActivityRepository(db *sqlx.DB) *activityRepository {
	return &activityRepository{db: db}
}

func (repo *activityRepository) CreateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	q := `INSERT INTO activity (` + activityColumns + `) VALUES (:id, :title, :description, :bncc_code, :stage,
		:subject, :grade, :published, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toActivityRow(a)); err != nil {
		if pqErrCode(err) == uniqueViolation {
			return activity.Activity{}, core.NewConflictError("activity already exists")
		}
		return activity.Activity{}, errors.Wrap(err, "inserting activity")
	}
	return a, nil
}

func (repo *activityRepository) QueryActivities(ctx context.Context, filter *activity.QueryFilter, ordering []core.DBOrdering) ([]activity.Activity, error) {
	var wb whereBuilder
	if filter != nil {
		if filter.VisibleTo != "" {
			if isUUID(filter.VisibleTo) {
				wb.add("(published OR created_by = ?)", filter.VisibleTo)
			} else {
				wb.add("published")
			}
		}
		if filter.Search != "" {
			val := likeArg(filter.Search)
			wb.add("(title ILIKE ? OR description ILIKE ?)", val, val)
		}
		if filter.BNCCPrefix != "" {
			wb.add("bncc_code LIKE ?", filter.BNCCPrefix+"%")
		}
		if filter.Stage != "" {
			wb.add("stage = ?", filter.Stage)
		}
		if filter.Subject != "" {
			wb.add("subject ILIKE ?", filter.Subject)
		}
		if filter.Published != nil {
			wb.add("published = ?", *filter.Published)
		}
	}

	var rows []activityRow
	q := repo.db.Rebind(`SELECT ` + activityColumns + ` FROM activity` + wb.String() + orderClause(ordering, "created_at"))
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying activities")
	}
	activities := make([]activity.Activity, 0, len(rows))
	for _, r := range rows {
		activities = append(activities, r.toActivity())
	}
	return activities, nil
}

func (repo *activityRepository) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	if !isUUID(id) {
		return activity.Activity{}, activity.ErrNotFound
	}
	var r activityRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+activityColumns+` FROM activity WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return activity.Activity{}, activity.ErrNotFound
		}
		return activity.Activity{}, errors.Wrap(err, "finding activity")
	}
	return r.toActivity(), nil
}

func (repo *activityRepository) UpdateActivity(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	q := `UPDATE activity SET title = :title, description = :description, bncc_code = :bncc_code, stage = :stage,
		subject = :subject, grade = :grade, published = :published, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toActivityRow(a))
	if err != nil {
		return activity.Activity{}, errors.Wrap(err, "updating activity")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return activity.Activity{}, activity.ErrNotFound
	}
	return a, nil
}

func (repo *activityRepository) DeleteActivity(ctx context.Context, id string) error {
	if !isUUID(id) {
		return activity.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM activity WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return activity.ErrNotFound
	}
	return nil
}
