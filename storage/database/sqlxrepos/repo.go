// Package sqlxrepos implements the domain repositories with portable SQL over sqlx.
// Queries use '?' placeholders and are rebound for the connected driver.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

// withTx runs fn in a transaction, rolled back when fn fails.
func withTx(ctx context.Context, db core.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// get runs a single row query, mapping "no rows" to notFound.
func get(ctx context.Context, ex core.DBExecutor, dest interface{}, notFound error, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, ex, dest, ex.Rebind(query), args...)
	if err == sql.ErrNoRows {
		return notFound
	}
	return err
}

func selectAll(ctx context.Context, ex core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, ex, dest, ex.Rebind(query), args...)
}

// selectIn expands slice arguments of query into IN lists.
func selectIn(ctx context.Context, ex core.DBExecutor, dest interface{}, query string, args ...interface{}) error {
	q, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return selectAll(ctx, ex, dest, q, inArgs...)
}

func exec(ctx context.Context, ex core.DBExecutor, query string, args ...interface{}) (int64, error) {
	res, err := ex.ExecContext(ctx, ex.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// execOne runs an update/delete expected to touch a row, notFound otherwise.
func execOne(ctx context.Context, ex core.DBExecutor, notFound error, query string, args ...interface{}) error {
	n, err := exec(ctx, ex, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// orderBy renders whitelisted orderings, falling back to def.
func orderBy(ordering []core.DBOrdering, def string, allowed ...string) string {
	ords := core.CleanOrderings(ordering, allowed...)
	if len(ords) == 0 {
		return " ORDER BY " + def
	}
	list := make([]string, 0, len(ords))
	for _, ord := range ords {
		list = append(list, ord.String())
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

// likePattern matches s anywhere, case-insensitively against a LOWER()ed column.
func likePattern(s string) string {
	return "%" + strings.NewReplacer("%", "", "_", "").Replace(strings.ToLower(s)) + "%"
}
