package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core"
)

// postgres error codes
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

func pqErrCode(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		return string(pqErr.Code)
	}
	return ""
}

// isUUID guards lookups: a malformed id cannot match any row.
func isUUID(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

// withTx runs fn in a transaction, committed only if fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		if errors.Is(err, sql.ErrConnDone) {
			return core.NewShutdownError("database connection closed")
		}
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// whereBuilder accumulates AND-ed conditions written with `?` bind vars.
type whereBuilder struct {
	conds []string
	args  []interface{}
}

func (wb *whereBuilder) add(cond string, args ...interface{}) {
	wb.conds = append(wb.conds, cond)
	wb.args = append(wb.args, args...)
}

// addIn adds `column IN (values...)`.
func (wb *whereBuilder) addIn(column string, values interface{}) error {
	q, args, err := sqlx.In(column+" IN (?)", values)
	if err != nil {
		return errors.Wrap(err, "expanding IN clause")
	}
	wb.add(q, args...)
	return nil
}

func (wb *whereBuilder) String() string {
	if len(wb.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(wb.conds, " AND ")
}

// orderClause expects orderings already cleaned against the allowed columns.
func orderClause(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + fallback
	}
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		list = append(list, ord.String())
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

func likeArg(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return "%" + r.Replace(s) + "%"
}
