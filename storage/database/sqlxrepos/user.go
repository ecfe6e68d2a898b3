package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const userColumns = "id, name, email, is_active, password_hash, created_at, updated_at, last_login"

var userOrderFields = []string{"name", "email", "is_active", "created_at", "updated_at", "last_login"}

type (
	userRow struct {
		ID           string       `db:"id"`
		Name         string       `db:"name"`
		Email        string       `db:"email"`
		IsActive     bool         `db:"is_active"`
		PasswordHash string       `db:"password_hash"`
		CreatedAt    time.Time    `db:"created_at"`
		UpdatedAt    time.Time    `db:"updated_at"`
		LastLogin    sql.NullTime `db:"last_login"`
	}

	userRoleRow struct {
		UserID string `db:"user_id"`
		Role   string `db:"role"`
	}

	userRepository struct {
		db core.DB
	}
)

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		IsActive:     usr.IsActive,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    sql.NullTime{Time: usr.LastLogin.UTC(), Valid: !usr.LastLogin.IsZero()},
	}
}

func (row userRow) user() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		IsActive:     row.IsActive,
		Roles:        []string{},
		PasswordHash: []byte(row.PasswordHash),
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	return usr
}

// withRoles loads the roles of every row.
func (repo *userRepository) withRoles(ctx context.Context, rows []userRow) ([]user.User, error) {
	users := make([]user.User, 0, len(rows))
	if len(rows) == 0 {
		return users, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	var roleRows []userRoleRow
	if err := selectIn(ctx, repo.db, &roleRows, "SELECT user_id, role FROM user_roles WHERE user_id IN (?) ORDER BY role", ids); err != nil {
		return nil, errors.Wrap(err, "querying user roles")
	}
	roles := make(map[string][]string, len(rows))
	for _, r := range roleRows {
		roles[r.UserID] = append(roles[r.UserID], r.Role)
	}

	for _, row := range rows {
		usr := row.user()
		if r, ok := roles[usr.ID]; ok {
			usr.Roles = r
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo *userRepository) getOne(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	if err := get(ctx, repo.db, &row, user.ErrNotFound, "SELECT "+userColumns+" FROM users WHERE "+where, arg); err != nil {
		if err == user.ErrNotFound {
			return user.User{}, err
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	users, err := repo.withRoles(ctx, []userRow{row})
	if err != nil {
		return user.User{}, err
	}
	return users[0], nil
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := "SELECT COUNT(*) FROM users WHERE email = ?"
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += " AND id NOT IN (?)"
		args = append(args, ids)
	}

	var counts []int
	if err := selectIn(ctx, repo.db, &counts, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if len(counts) > 0 && counts[0] > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := toUserRow(usr)

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := exec(ctx, tx,
			"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			row.ID, row.Name, row.Email, row.IsActive, row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin)
		if err != nil {
			return errors.Wrap(err, "inserting user")
		}
		for _, role := range usr.Roles {
			if _, err := exec(ctx, tx,
				"INSERT INTO user_roles (user_id, role, created_at) VALUES (?, ?, ?)", row.ID, role, row.CreatedAt); err != nil {
				return errors.Wrap(err, "inserting user role")
			}
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getOne(ctx, "id = ?", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getOne(ctx, "email = ?", email)
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)
	// users with Name or Email matching the search keyword
	if filter.Search != "" {
		val := likePattern(filter.Search)
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(email) LIKE ?)")
		args = append(args, val, val)
	}
	// users with any of the provided roles
	if len(filter.Roles) > 0 {
		where = append(where, "id IN (SELECT user_id FROM user_roles WHERE role IN (?))")
		args = append(args, filter.Roles)
	}
	if filter.StaffOnly {
		where = append(where, "id IN (SELECT user_id FROM user_roles)")
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	query := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderBy(ordering, "created_at DESC", userOrderFields...)

	var rows []userRow
	if err := selectIn(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.withRoles(ctx, rows)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	err := execOne(ctx, repo.db, user.ErrNotFound,
		"UPDATE users SET name = ?, email = ?, is_active = ?, password_hash = ?, updated_at = ?, last_login = ? WHERE id = ?",
		row.Name, row.Email, row.IsActive, row.PasswordHash, row.UpdatedAt, row.LastLogin, row.ID)
	if err != nil {
		if err == user.ErrNotFound {
			return user.User{}, err
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo *userRepository) AddUserRole(ctx context.Context, id, role string) error {
	_, err := exec(ctx, repo.db,
		"INSERT INTO user_roles (user_id, role, created_at) VALUES (?, ?, ?) ON CONFLICT (user_id, role) DO NOTHING",
		id, role, time.Now().UTC())
	return errors.Wrap(err, "adding user role")
}

func (repo *userRepository) RemoveUserRole(ctx context.Context, id, role string) error {
	_, err := exec(ctx, repo.db, "DELETE FROM user_roles WHERE user_id = ? AND role = ?", id, role)
	return errors.Wrap(err, "removing user role")
}

func (repo *userRepository) CountUsersWithRole(ctx context.Context, role string) (int, error) {
	var count int
	err := get(ctx, repo.db, &count, nil, "SELECT COUNT(*) FROM user_roles WHERE role = ?", role)
	return count, errors.Wrap(err, "counting users with role")
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	_, err = exec(ctx, repo.db, query, args...)
	return errors.Wrap(err, "deleting users")
}
