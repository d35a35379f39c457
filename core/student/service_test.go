package student_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/storage/database/inmem"
)

func newService() *student.Service {
	return student.NewService(inmemdb.NewStudentRepository(inmemdb.Open()))
}

// errorFields lists the fields named by a struct or service validation error.
func errorFields(t *testing.T, err error) []string {
	t.Helper()
	var fields []string
	switch e := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			fields = append(fields, fe.Field())
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			fields = append(fields, fe.Field)
		}
	default:
		t.Fatalf("expected a validation error, got %v", err)
	}
	return fields
}

func TestStudent_DisplayName(t *testing.T) {
	tests := []struct {
		name string
		stu  student.Student
		want string
	}{
		{name: "with grade", stu: student.Student{FirstName: "Ada", LastName: "Lovelace", GradeLevel: "K"}, want: "Ada Lovelace - Grade K"},
		{name: "without grade", stu: student.Student{FirstName: "Ada", LastName: "Lovelace"}, want: "Ada Lovelace"},
		{name: "first name only", stu: student.Student{FirstName: "Ada"}, want: "Ada"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stu.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestService_Create(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	stu, err := svc.Create(ctx, student.NewStudent{StudentID: " S-1 ", FirstName: "Ada", LastName: "Lovelace", Site: "Lincoln", DOB: "2010-05-01"})
	require.NoError(t, err)
	assert.NotEmpty(t, stu.ID)
	assert.Equal(t, "S-1", stu.StudentID)
	assert.True(t, stu.Active)

	tests := []struct {
		name      string
		ns        student.NewStudent
		wantField string
	}{
		{name: "duplicate student id", ns: student.NewStudent{StudentID: "S-1", FirstName: "Bob", LastName: "B", Site: "Lincoln"}, wantField: "student_id"},
		{name: "missing first name", ns: student.NewStudent{StudentID: "S-2", LastName: "B", Site: "Lincoln"}, wantField: "first_name"},
		{name: "bad dob", ns: student.NewStudent{StudentID: "S-2", FirstName: "Bob", LastName: "B", Site: "Lincoln", DOB: "01/05/2010"}, wantField: "dob"},
		{name: "missing site", ns: student.NewStudent{StudentID: "S-2", FirstName: "Bob", LastName: "B"}, wantField: "site"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.ns)
			assert.Equal(t, []string{tt.wantField}, errorFields(t, err))
		})
	}
}

func TestService_archiveReactivate(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	stu, err := svc.Create(ctx, student.NewStudent{StudentID: "S-1", FirstName: "Ada", LastName: "Lovelace", Site: "Lincoln"})
	require.NoError(t, err)

	archived, err := svc.Archive(ctx, stu.ID, "  moved away ")
	require.NoError(t, err)
	assert.False(t, archived.Active)
	assert.NotNil(t, archived.ArchivedDate)
	assert.Equal(t, "moved away", archived.ArchivedReason)

	_, err = svc.Archive(ctx, stu.ID, "")
	assert.Equal(t, student.ErrAlreadyArchived, err)

	active := true
	got, err := svc.Query(ctx, student.QueryFilter{Active: &active})
	require.NoError(t, err)
	assert.Empty(t, got)

	back, err := svc.Reactivate(ctx, stu.ID)
	require.NoError(t, err)
	assert.True(t, back.Active)
	assert.Nil(t, back.ArchivedDate)
	assert.Empty(t, back.ArchivedReason)

	_, err = svc.Reactivate(ctx, stu.ID)
	assert.Equal(t, student.ErrNotArchived, err)

	_, err = svc.Archive(ctx, "missing", "")
	assert.Equal(t, student.ErrNotFound, err)
}

func TestService_Update(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	first, err := svc.Create(ctx, student.NewStudent{StudentID: "S-1", FirstName: "Ada", LastName: "Lovelace", Site: "Lincoln"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, student.NewStudent{StudentID: "S-2", FirstName: "Alan", LastName: "Turing", Site: "Lincoln"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, second.ID, student.UpdateStudent{StudentID: "S-1"})
	assert.Equal(t, []string{"student_id"}, errorFields(t, err))

	iep := true
	updated, err := svc.Update(ctx, first.ID, student.UpdateStudent{GradeLevel: "9", IEPStatus: &iep})
	require.NoError(t, err)
	assert.Equal(t, "S-1", updated.StudentID)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "9", updated.GradeLevel)
	assert.True(t, updated.IEPStatus)

	got, err := svc.Query(ctx, student.QueryFilter{Search: "tur"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, second.ID, got[0].ID)
}
