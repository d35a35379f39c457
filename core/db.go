package core

import (
	"context"
	"database/sql"
	"strings"
)

type (
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
		PingContext(ctx context.Context) error
		Close() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderByClause renders orderings as an ORDER BY clause, keeping only fields present in `columns`
// (api field -> column). Falls back to `fallback` when nothing usable is left.
func OrderByClause(orderings []DBOrdering, columns map[string]string, fallback ...DBOrdering) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := columns[ord.Field]; ok {
			parts = append(parts, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(parts) == 0 {
		for _, ord := range fallback {
			parts = append(parts, ord.String())
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
