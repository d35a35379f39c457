// Package inmemdb keeps every entity in process memory. It backs tests and the demo mode of the API.
package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/audit"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/core/staff"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/user"
)

type (
	DB struct {
		user    *table[user.User]
		site    *table[site.Site]
		student *table[student.Student]
		staff   *table[staff.Member]
		task    *table[task.Task]
		report  *table[report.Record]
		audit   *table[audit.Event]
	}

	// table holds rows by id, remembering insertion order for stable listings.
	table[T any] struct {
		sync.RWMutex
		rows  map[string]T
		order []string
	}

	// comparator orders two rows on one field: <0, 0 or >0.
	comparator[T any] func(a, b T) int
)

func Open() *DB {
	return &DB{
		user:    newTable[user.User](),
		site:    newTable[site.Site](),
		student: newTable[student.Student](),
		staff:   newTable[staff.Member](),
		task:    newTable[task.Task](),
		report:  newTable[report.Record](),
		audit:   newTable[audit.Event](),
	}
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

// Callers hold the table lock for every method below.

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) insert(id string, row T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

func (t *table[T]) delete(ids ...string) {
	for _, id := range ids {
		delete(t.rows, id)
	}
	kept := t.order[:0]
	for _, id := range t.order {
		if _, ok := t.rows[id]; ok {
			kept = append(kept, id)
		}
	}
	t.order = kept
}

// filter returns the rows matching keep, in insertion order.
func (t *table[T]) filter(keep func(T) bool) []T {
	rows := make([]T, 0, len(t.rows))
	for _, id := range t.order {
		if row := t.rows[id]; keep == nil || keep(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

func (t *table[T]) any(match func(T) bool) bool {
	for _, id := range t.order {
		if match(t.rows[id]) {
			return true
		}
	}
	return false
}

// sortRows orders rows by orderings, ignoring fields without a comparator.
func sortRows[T any](rows []T, orderings []core.DBOrdering, fields map[string]comparator[T]) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := fields[ord.Field]
			if !ok {
				continue
			}
			c := cmp(rows[i], rows[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
