package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/demand"
)

const demandColumns = `id, title, description, requester, status, priority, due_date, assigned_to, created_by, created_at, updated_at`

// demandOrderings maps orderable fields to SQL expressions.
var demandOrderings = map[string]string{
	"priority": "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END",
}

type demandRow struct {
	ID          string      `db:"id"`
	Title       string      `db:"title"`
	Description string      `db:"description"`
	Requester   string      `db:"requester"`
	Status      string      `db:"status"`
	Priority    string      `db:"priority"`
	DueDate     null.Time   `db:"due_date"`
	AssignedTo  null.String `db:"assigned_to"`
	CreatedBy   null.String `db:"created_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func toDemandRow(d demand.Demand) demandRow {
	return demandRow{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Requester:   d.Requester,
		Status:      d.Status,
		Priority:    d.Priority,
		DueDate:     d.DueDate,
		AssignedTo:  d.AssignedTo,
		CreatedBy:   null.NewString(d.CreatedBy, d.CreatedBy != ""),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (r demandRow) toDemand() demand.Demand {
	due := r.DueDate
	if due.Valid {
		due.Time = due.Time.UTC()
	}
	return demand.Demand{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Requester:   r.Requester,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate:     due,
		AssignedTo:  r.AssignedTo,
		CreatedBy:   r.CreatedBy.String,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type demandRepository struct {
	db *sqlx.DB
}

var _ demand.Repository = (*demandRepository)(nil) // interface compliance check

func NewDemandRepository(db *sqlx.DB) *demandRepository {
	return &demandRepository{db: db}
}

func (repo *demandRepository) CreateDemand(ctx context.Context, d demand.Demand) (demand.Demand, error) {
	q := `INSERT INTO demand (` + demandColumns + `) VALUES (:id, :title, :description, :requester, :status,
		:priority, :due_date, :assigned_to, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toDemandRow(d)); err != nil {
		if pqErrCode(err) == uniqueViolation {
			return demand.Demand{}, core.NewConflictError("demand already exists")
		}
		return demand.Demand{}, errors.Wrap(err, "inserting demand")
	}
	return d, nil
}

func (repo *demandRepository) QueryDemands(ctx context.Context, filter *demand.QueryFilter, ordering []core.DBOrdering) ([]demand.Demand, error) {
	var wb whereBuilder
	if filter != nil {
		if filter.Search != "" {
			val := likeArg(filter.Search)
			wb.add("(title ILIKE ? OR description ILIKE ? OR requester ILIKE ?)", val, val, val)
		}
		// week buckets are half-open: [Monday 00:00, next Monday 00:00)
		if filter.DueWeek != nil {
			wb.add("due_date >= ? AND due_date < ?", filter.DueWeek.Start, filter.DueWeek.End)
		}
		if len(filter.Statuses) > 0 {
			if err := wb.addIn("status", filter.Statuses); err != nil {
				return nil, err
			}
		}
		if len(filter.Priorities) > 0 {
			if err := wb.addIn("priority", filter.Priorities); err != nil {
				return nil, err
			}
		}
		if filter.AssignedTo != "" {
			if !isUUID(filter.AssignedTo) {
				return []demand.Demand{}, nil
			}
			wb.add("assigned_to = ?", filter.AssignedTo)
		}
	}

	order := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if expr, ok := demandOrderings[ord.Field]; ok {
			ord.Field = expr
		}
		if ord.Field == "due_date" {
			ord.Field = "due_date IS NULL, due_date"
		}
		order = append(order, ord)
	}

	var rows []demandRow
	q := repo.db.Rebind(`SELECT ` + demandColumns + ` FROM demand` + wb.String() + orderClause(order, "created_at"))
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying demands")
	}
	demands := make([]demand.Demand, 0, len(rows))
	for _, r := range rows {
		demands = append(demands, r.toDemand())
	}
	return demands, nil
}

func (repo *demandRepository) GetDemand(ctx context.Context, id string) (demand.Demand, error) {
	if !isUUID(id) {
		return demand.Demand{}, demand.ErrNotFound
	}
	var r demandRow
	if err := repo.db.GetContext(ctx, &r, `SELECT `+demandColumns+` FROM demand WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return demand.Demand{}, demand.ErrNotFound
		}
		return demand.Demand{}, errors.Wrap(err, "finding demand")
	}
	return r.toDemand(), nil
}

func (repo *demandRepository) UpdateDemand(ctx context.Context, d demand.Demand) (demand.Demand, error) {
	q := `UPDATE demand SET title = :title, description = :description, requester = :requester, status = :status,
		priority = :priority, due_date = :due_date, assigned_to = :assigned_to, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toDemandRow(d))
	if err != nil {
		return demand.Demand{}, errors.Wrap(err, "updating demand")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return demand.Demand{}, demand.ErrNotFound
	}
	return d, nil
}

func (repo *demandRepository) DeleteDemand(ctx context.Context, id string) error {
	if !isUUID(id) {
		return demand.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM demand WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting demand")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return demand.ErrNotFound
	}
	return nil
}
