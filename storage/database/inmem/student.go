package inmemdb

import (
	"context"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/student"
)

var studentOrderings = map[string]comparator[student.Student]{
	"student_id":  func(a, b student.Student) int { return compareStrings(a.StudentID, b.StudentID) },
	"first_name":  func(a, b student.Student) int { return compareStrings(a.FirstName, b.FirstName) },
	"last_name":   func(a, b student.Student) int { return compareStrings(a.LastName, b.LastName) },
	"grade_level": func(a, b student.Student) int { return compareStrings(a.GradeLevel, b.GradeLevel) },
	"site":        func(a, b student.Student) int { return compareStrings(a.Site, b.Site) },
	"active":      func(a, b student.Student) int { return compareBools(a.Active, b.Active) },
	"created_at":  func(a, b student.Student) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type studentRepository struct {
	db *table[student.Student]
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CheckStudentIDUniqueness(_ context.Context, studentID, excludedID string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.any(func(s student.Student) bool { return s.StudentID == studentID && s.ID != excludedID }) {
		return student.ErrStudentIDExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.insert(s.ID, s)
	return s, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.get(id); ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(
	_ context.Context,
	filter student.QueryFilter,
	orderings ...core.DBOrdering,
) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := repo.db.filter(filter.Match)
	sortRows(students, orderings, studentOrderings)
	return students, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.get(s.ID); !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.insert(s.ID, s)
	return s, nil
}

func (repo *studentRepository) DeleteStudentsByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.delete(ids...)
	return nil
}
