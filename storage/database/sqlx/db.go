// Package sqlxrepos stores the entities in postgres or sqlite through sqlx.
// Queries are written with "?" placeholders and rebound for the driver in use.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// where accumulates the AND-ed conditions of a query and their arguments.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

// in adds "col IN (values...)"; no-op for empty values.
func (w *where) in(col string, values []string) {
	if len(values) == 0 {
		return
	}
	q, args, err := sqlx.In(col+" IN (?)", values)
	if err != nil { // only fails on empty or non-slice args
		return
	}
	w.add(q, args...)
}

// search adds a case-insensitive substring match on any of cols.
func (w *where) search(term string, cols ...string) {
	if term == "" {
		return
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	parts := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, "LOWER("+col+") LIKE ? ESCAPE '\\'")
		args = append(args, pattern)
	}
	w.add("("+strings.Join(parts, " OR ")+")", args...)
}

func (w where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func deleteByIDs(ctx context.Context, db *sqlx.DB, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM "+table+" WHERE id IN (?)", ids)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, db.Rebind(q), args...)
	return errors.Wrapf(err, "deleting from %s", table)
}

// exists reports whether query selects at least one row.
func exists(ctx context.Context, db *sqlx.DB, query string, args ...interface{}) (bool, error) {
	var one int
	err := db.GetContext(ctx, &one, db.Rebind(query+" LIMIT 1"), args...)
	switch {
	case err == nil:
		return true, nil
	case err == sql.ErrNoRows:
		return false, nil
	}
	return false, err
}

// namedUpdate runs an UPDATE bound to row, returning notFound when no row matched.
func namedUpdate(ctx context.Context, db *sqlx.DB, query string, row interface{}, notFound error) error {
	res, err := db.NamedExecContext(ctx, query, row)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func notFoundOr(err, notFound error) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return err
}
