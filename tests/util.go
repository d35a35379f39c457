// Package testutil holds the fixtures shared by the tests of several packages.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/user"
	"github.com/trezcool/berguardian/storage/database"
)

// OpenDB opens a migrated in-memory sqlite database, closed when the test ends.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{Engine: database.EngineSQLite}

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        name + "-" + email,
		FullName:  name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateStudent(t *testing.T, repo student.Repository, id, first, last, grade, site string) student.Student {
	t.Helper()
	now := time.Now().UTC()
	stu := student.Student{
		ID:         id,
		StudentID:  "S-" + id,
		FirstName:  first,
		LastName:   last,
		DOB:        "2010-05-01",
		GradeLevel: grade,
		Site:       site,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	stu, err := repo.CreateStudent(context.Background(), stu)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return stu
}
