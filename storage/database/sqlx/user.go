package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/user"
)

const userColumns = `id, name, username, email, role, can_manage_courses, can_manage_activities, is_active,
	password_hash, created_at, updated_at, last_login`

type userRow struct {
	ID                  string      `db:"id"`
	Name                string      `db:"name"`
	Username            null.String `db:"username"`
	Email               null.String `db:"email"`
	Role                string      `db:"role"`
	CanManageCourses    bool        `db:"can_manage_courses"`
	CanManageActivities bool        `db:"can_manage_activities"`
	IsActive            bool        `db:"is_active"`
	PasswordHash        []byte      `db:"password_hash"`
	CreatedAt           time.Time   `db:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at"`
	LastLogin           null.Time   `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:                  usr.ID,
		Name:                usr.Name,
		Username:            null.NewString(usr.Username, usr.Username != ""),
		Email:               null.NewString(usr.Email, usr.Email != ""),
		Role:                usr.Role,
		CanManageCourses:    usr.CanManageCourses,
		CanManageActivities: usr.CanManageActivities,
		IsActive:            usr.IsActive,
		PasswordHash:        usr.PasswordHash,
		CreatedAt:           usr.CreatedAt.UTC(),
		UpdatedAt:           usr.UpdatedAt.UTC(),
		LastLogin:           null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:                  r.ID,
		Name:                r.Name,
		Username:            r.Username.String,
		Email:               r.Email.String,
		Role:                r.Role,
		CanManageCourses:    r.CanManageCourses,
		CanManageActivities: r.CanManageActivities,
		IsActive:            r.IsActive,
		PasswordHash:        r.PasswordHash,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
		LastLogin:           r.LastLogin.Time.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	var wb whereBuilder
	wb.add("((username = ? AND username <> '') OR (email = ? AND email <> ''))", username, email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			if isUUID(u.ID) {
				ids = append(ids, u.ID)
			}
		}
		if len(ids) > 0 {
			if err := wb.addIn("id NOT", ids); err != nil {
				return err
			}
		}
	}

	var rows []userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user"` + wb.String() + ` LIMIT 2`)
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, r := range rows {
		if username != "" && r.Username.String == username {
			return user.ErrUsernameExists
		}
		if email != "" && r.Email.String == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	q := `INSERT INTO "user" (` + userColumns + `) VALUES (:id, :name, :username, :email, :role, :can_manage_courses,
		:can_manage_activities, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr)); err != nil {
		if pqErrCode(err) == uniqueViolation {
			return user.User{}, core.NewConflictError("a user with this username or email already exists")
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var wb whereBuilder
	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := likeArg(filter.Search)
			wb.add("(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val)
		}
		if len(filter.Roles) > 0 {
			if err := wb.addIn("role", filter.Roles); err != nil {
				return nil, err
			}
		}
		if filter.IsActive != nil {
			wb.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			wb.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			wb.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user"` + wb.String() + orderClause(ordering, "created_at"))
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var wb whereBuilder
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		wb.add("id = ?", filter.ID)
	case filter.Username != "":
		wb.add("username = ?", filter.Username)
	case filter.Email != "":
		wb.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		wb.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var r userRow
	q := repo.db.Rebind(`SELECT ` + userColumns + ` FROM "user"` + wb.String() + ` LIMIT 1`)
	if err := repo.db.GetContext(ctx, &r, q, wb.args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return r.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET name = :name, username = :username, email = :email, role = :role,
		can_manage_courses = :can_manage_courses, can_manage_activities = :can_manage_activities,
		is_active = :is_active, password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, toUserRow(usr))
	if err != nil {
		if pqErrCode(err) == uniqueViolation {
			return user.User{}, core.NewConflictError("a user with this username or email already exists")
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

// DeleteUsersByID also releases the enrolled_count of the courses the users were enrolled in.
func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	var cnt int64
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q, args, err := sqlx.In(`UPDATE course c SET enrolled_count = GREATEST(c.enrolled_count - e.n, 0)
			FROM (SELECT course_id, COUNT(*) AS n FROM enrollment WHERE user_id IN (?) GROUP BY course_id) e
			WHERE c.id = e.course_id`, valid)
		if err != nil {
			return errors.Wrap(err, "expanding IN clause")
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return errors.Wrap(err, "releasing enrolled counts")
		}

		q, args, err = sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, valid)
		if err != nil {
			return errors.Wrap(err, "expanding IN clause")
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
		if err != nil {
			return errors.Wrap(err, "deleting users")
		}
		cnt, _ = res.RowsAffected()
		return nil
	})
	return int(cnt), err
}
