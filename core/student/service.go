package student

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/berguardian/core"
)

var (
	// errors
	ErrNotFound        = errors.New("student not found")
	ErrStudentIDExists = errors.New("a student with this student id already exists")
	ErrAlreadyArchived = errors.New("student is already archived")
	ErrNotArchived     = errors.New("student is not archived")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Repository interface {
		// CheckStudentIDUniqueness returns ErrStudentIDExists when another student than excludedID holds studentID.
		CheckStudentIDUniqueness(ctx context.Context, studentID, excludedID string) error
		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		QueryStudents(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, studentID, excludedID string) error {
	if err := svc.repo.CheckStudentIDUniqueness(ctx, studentID, excludedID); err != nil {
		if err == ErrStudentIDExists {
			return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	if err := svc.checkUniqueness(ctx, ns.StudentID, ""); err != nil {
		return Student{}, err
	}

	now := nowFunc()
	return svc.repo.CreateStudent(ctx, Student{
		ID:               uuid.NewString(),
		StudentID:        ns.StudentID,
		FirstName:        ns.FirstName,
		LastName:         ns.LastName,
		DOB:              ns.DOB,
		GradeLevel:       ns.GradeLevel,
		Site:             ns.Site,
		IEPStatus:        ns.IEPStatus,
		EmergencyContact: ns.EmergencyContact,
		EmergencyPhone:   ns.EmergencyPhone,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Student, error) {
	filter.Clean()
	return svc.repo.QueryStudents(ctx, filter, orderings...)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	if err := us.Validate(); err != nil {
		return Student{}, err
	}
	orig, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	s := us.apply(orig)
	if s.StudentID != orig.StudentID {
		if err := svc.checkUniqueness(ctx, s.StudentID, id); err != nil {
			return Student{}, err
		}
	}
	s.UpdatedAt = nowFunc()
	return svc.repo.UpdateStudent(ctx, s)
}

// Archive deactivates the student, keeping the reason.
func (svc *Service) Archive(ctx context.Context, id, reason string) (Student, error) {
	s, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if !s.Active {
		return Student{}, ErrAlreadyArchived
	}
	now := nowFunc()
	s.Active = false
	s.ArchivedDate = &now
	s.ArchivedReason = core.CleanString(reason)
	s.UpdatedAt = now
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) Reactivate(ctx context.Context, id string) (Student, error) {
	s, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if s.Active {
		return Student{}, ErrNotArchived
	}
	s.Active = true
	s.ArchivedDate = nil
	s.ArchivedReason = ""
	s.UpdatedAt = nowFunc()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteStudentsByID(ctx, ids...)
}
