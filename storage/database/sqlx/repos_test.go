package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/audit"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/core/staff"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/user"
	"github.com/trezcool/berguardian/core/wizard"
	sqlxrepos "github.com/trezcool/berguardian/storage/database/sqlx"
	testutil "github.com/trezcool/berguardian/tests"
)

var (
	ctx  = context.Background()
	now  = time.Date(2024, 5, 3, 15, 4, 5, 0, time.UTC)
	opts = cmp.Options{cmpopts.EquateApproxTime(time.Microsecond), cmpopts.EquateEmpty()}
)

func TestUserRepository(t *testing.T) {
	repo := sqlxrepos.NewUserRepository(testutil.OpenDB(t))

	ada := testutil.CreateUser(t, repo, "Ada Lovelace", "ada@school.test", "Gr8-Tangerine-Kite", user.RoleAdminSite, true, now)
	alan := testutil.CreateUser(t, repo, "alan turing", "alan@school.test", "", user.RoleStaff, false, now.Add(time.Hour))

	got, err := repo.GetUserByEmail(ctx, "ada@school.test")
	require.NoError(t, err)
	if diff := cmp.Diff(ada, got, opts); diff != "" {
		t.Errorf("GetUserByEmail() mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, got.CheckPassword("Gr8-Tangerine-Kite"))

	_, err = repo.GetUserByID(ctx, "missing")
	assert.Equal(t, user.ErrNotFound, err)

	assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "ada@school.test", alan.ID))
	assert.NoError(t, repo.CheckEmailUniqueness(ctx, "ada@school.test", ada.ID))

	inactive := false
	tests := []struct {
		name      string
		filter    user.QueryFilter
		orderings []core.DBOrdering
		want      []string
	}{
		{name: "all by name", orderings: []core.DBOrdering{{Field: "full_name", Ascending: true}}, want: []string{ada.ID, alan.ID}},
		{name: "newest first", orderings: []core.DBOrdering{{Field: "created_at"}}, want: []string{alan.ID, ada.ID}},
		{name: "search", filter: user.QueryFilter{Search: "TUR"}, want: []string{alan.ID}},
		{name: "search escapes wildcards", filter: user.QueryFilter{Search: "%"}, want: []string{}},
		{name: "roles", filter: user.QueryFilter{Roles: user.AdminRoles}, want: []string{ada.ID}},
		{name: "inactive", filter: user.QueryFilter{IsActive: &inactive}, want: []string{alan.ID}},
		{name: "created from", filter: user.QueryFilter{CreatedFrom: now.Add(time.Minute)}, want: []string{alan.ID}},
		{name: "created to", filter: user.QueryFilter{CreatedTo: now.Add(time.Minute)}, want: []string{ada.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := repo.QueryUsers(ctx, tt.filter, tt.orderings...)
			require.NoError(t, err)
			ids := make([]string, 0, len(users))
			for _, u := range users {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	login := now.Add(2 * time.Hour)
	alan.LastLogin = &login
	alan.IsActive = true
	_, err = repo.UpdateUser(ctx, alan)
	require.NoError(t, err)
	got, err = repo.GetUserByID(ctx, alan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(login))
	assert.True(t, got.IsActive)

	_, err = repo.UpdateUser(ctx, user.User{ID: "missing"})
	assert.Equal(t, user.ErrNotFound, err)

	require.NoError(t, repo.DeleteUsersByID(ctx, ada.ID, alan.ID))
	users, err := repo.QueryUsers(ctx, user.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStudentRepository(t *testing.T) {
	repo := sqlxrepos.NewStudentRepository(testutil.OpenDB(t))

	ada := testutil.CreateStudent(t, repo, "1", "Ada", "Lovelace", "8", "Lincoln")
	testutil.CreateStudent(t, repo, "2", "Alan", "Turing", "9", "Oak")

	assert.Equal(t, student.ErrStudentIDExists, repo.CheckStudentIDUniqueness(ctx, "S-1", "2"))
	assert.NoError(t, repo.CheckStudentIDUniqueness(ctx, "S-1", "1"))

	archived := now
	ada.Active = false
	ada.ArchivedDate = &archived
	ada.ArchivedReason = "moved"
	_, err := repo.UpdateStudent(ctx, ada)
	require.NoError(t, err)

	got, err := repo.GetStudentByID(ctx, "1")
	require.NoError(t, err)
	if diff := cmp.Diff(ada, got, opts); diff != "" {
		t.Errorf("GetStudentByID() mismatch (-want +got):\n%s", diff)
	}

	active := true
	students, err := repo.QueryStudents(ctx, student.QueryFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "2", students[0].ID)

	students, err = repo.QueryStudents(ctx, student.QueryFilter{Search: "love", Site: "Lincoln"})
	require.NoError(t, err)
	require.Len(t, students, 1)

	_, err = repo.GetStudentByID(ctx, "missing")
	assert.Equal(t, student.ErrNotFound, err)
}

func TestSiteAndStaffRepositories(t *testing.T) {
	db := testutil.OpenDB(t)
	sites := sqlxrepos.NewSiteRepository(db)
	members := sqlxrepos.NewStaffRepository(db)

	lincoln := site.Site{ID: "s1", Name: "Lincoln Elementary", Code: "LIN", Active: true, CreatedAt: now, UpdatedAt: now}
	_, err := sites.CreateSite(ctx, lincoln)
	require.NoError(t, err)
	assert.Equal(t, site.ErrNameExists, sites.CheckNameUniqueness(ctx, "LINCOLN elementary", ""))
	assert.NoError(t, sites.CheckNameUniqueness(ctx, "Lincoln Elementary", "s1"))

	got, err := sites.QuerySites(ctx, site.QueryFilter{Search: "lin"})
	require.NoError(t, err)
	if diff := cmp.Diff([]site.Site{lincoln}, got, opts); diff != "" {
		t.Errorf("QuerySites() mismatch (-want +got):\n%s", diff)
	}

	frizzle := staff.Member{ID: "m1", FirstName: "Valerie", LastName: "Frizzle", Role: staff.RoleTeacher, Site: "Lincoln Elementary", Active: true, CreatedAt: now, UpdatedAt: now}
	_, err = members.CreateMember(ctx, frizzle)
	require.NoError(t, err)
	frizzle.Role = staff.RoleCounselor
	_, err = members.UpdateMember(ctx, frizzle)
	require.NoError(t, err)

	found, err := members.QueryMembers(ctx, staff.QueryFilter{Role: staff.RoleCounselor, Site: "Lincoln Elementary"})
	require.NoError(t, err)
	if diff := cmp.Diff([]staff.Member{frizzle}, found, opts); diff != "" {
		t.Errorf("QueryMembers() mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, members.DeleteMembersByID(ctx, "m1"))
	_, err = members.GetMemberByID(ctx, "m1")
	assert.Equal(t, staff.ErrNotFound, err)
}

func TestTaskRepository(t *testing.T) {
	repo := sqlxrepos.NewTaskRepository(testutil.OpenDB(t))

	newTask := func(id, priority string, due time.Time) task.Task {
		tk, err := repo.CreateTask(ctx, task.Task{
			ID: id, ReportID: "r1", Description: "task " + id, TaskType: task.TypeFollowUp,
			DueDate: due, Priority: priority, Status: task.StatusPending, CreatedAt: now,
		})
		require.NoError(t, err)
		return tk
	}
	low := newTask("low", task.PriorityLow, now.Add(time.Hour))
	urgent := newTask("urgent", task.PriorityUrgent, now.Add(2*time.Hour))
	high := newTask("high", task.PriorityHigh, now.Add(-time.Hour))

	tests := []struct {
		name      string
		filter    task.QueryFilter
		orderings []core.DBOrdering
		want      []string
	}{
		{name: "due date", want: []string{high.ID, low.ID, urgent.ID}},
		{name: "priority rank", orderings: []core.DBOrdering{{Field: "priority"}}, want: []string{urgent.ID, high.ID, low.ID}},
		{name: "due before", filter: task.QueryFilter{DueBefore: now}, want: []string{high.ID}},
		{name: "statuses", filter: task.QueryFilter{Statuses: []string{task.StatusCompleted}}, want: []string{}},
		{name: "report", filter: task.QueryFilter{ReportID: "r2"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.QueryTasks(ctx, tt.filter, tt.orderings...)
			require.NoError(t, err)
			ids := make([]string, 0, len(tasks))
			for _, tk := range tasks {
				ids = append(ids, tk.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	done := now
	high.Status = task.StatusCompleted
	high.CompletedAt = &done
	_, err := repo.UpdateTask(ctx, high)
	require.NoError(t, err)
	got, err := repo.GetTaskByID(ctx, high.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(high, got, opts); diff != "" {
		t.Errorf("GetTaskByID() mismatch (-want +got):\n%s", diff)
	}
}

func TestReportRepository(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := sqlxrepos.NewReportRepository(db)
	events := sqlxrepos.NewAuditRepository(db)

	age := 13
	ber := report.Record{Type: report.TypeBER, BER: &report.BER{
		Common: report.Common{
			ID: "r1", Status: report.StatusSubmitted, StudentID: "1", StudentName: "Ada Lovelace - Grade 8",
			AgeAtIncident: &age, IncidentDate: "2024-04-30T09:30", Location: "Gym", Site: "Lincoln",
			Injuries:    []string{"Staff"},
			Attachments: []wizard.Attachment{{Name: "a.pdf", URL: "http://files.test/a.pdf", Size: 3, Type: "application/pdf", UploadedAt: now}},
			CreatedBy:   "ada@school.test", CreatedAt: now, UpdatedAt: now,
		},
		IncidentNarrative: "Ran out of the gym.",
		HoldsUsed:         []string{"Seated (Low)"},
	}}
	incident := report.Record{Type: report.TypeIncident, Incident: &report.IncidentReport{
		Common: report.Common{
			ID: "r2", Status: report.StatusDraft, StudentID: "2", StudentName: "Alan Turing",
			IncidentDate: "2024-05-01", Location: "Library", Site: "Oak", CreatedAt: now, UpdatedAt: now,
		},
		IncidentDescription: "Argument.",
		Witnesses:           []report.Witness{{Name: "Mr. Kim", Role: "cook"}},
	}}
	for _, rec := range []report.Record{ber, incident} {
		_, err := repo.CreateReport(ctx, rec)
		require.NoError(t, err)
	}
	_, err := repo.CreateReport(ctx, report.Record{})
	assert.Equal(t, report.ErrEmptyRecord, err)

	got, err := repo.GetReportByID(ctx, "r1")
	require.NoError(t, err)
	if diff := cmp.Diff(ber, got, opts); diff != "" {
		t.Errorf("GetReportByID() mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name   string
		filter report.QueryFilter
		want   []string
	}{
		{name: "latest incident first", want: []string{"r2", "r1"}},
		{name: "type", filter: report.QueryFilter{Type: report.TypeBER}, want: []string{"r1"}},
		{name: "status", filter: report.QueryFilter{Statuses: []string{report.StatusSubmitted}}, want: []string{"r1"}},
		{name: "to includes the day", filter: report.QueryFilter{To: "2024-04-30"}, want: []string{"r1"}},
		{name: "from", filter: report.QueryFilter{From: "2024-05-01"}, want: []string{"r2"}},
		{name: "search", filter: report.QueryFilter{Search: "gym"}, want: []string{"r1"}},
		{name: "student", filter: report.QueryFilter{Student: "2"}, want: []string{"r2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := repo.QueryReports(ctx, tt.filter)
			require.NoError(t, err)
			ids := make([]string, 0, len(recs))
			for _, rec := range recs {
				ids = append(ids, rec.ID())
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	incident.Incident.Status = report.StatusUnderReview
	_, err = repo.UpdateReport(ctx, incident)
	require.NoError(t, err)
	got, err = repo.GetReportByID(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, report.StatusUnderReview, got.Common().Status)
	assert.Equal(t, []report.Witness{{Name: "Mr. Kim", Role: "cook"}}, got.Incident.Witnesses)

	for i, action := range []string{audit.ActionCreated, audit.ActionSubmitted} {
		_, err := events.CreateEvent(ctx, audit.Event{ID: action, ReportID: "r1", Action: action, At: now.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}
	trail, err := events.QueryEventsByReport(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, audit.ActionSubmitted, trail[1].Action)

	require.NoError(t, repo.DeleteReportsByID(ctx, "r1", "r2"))
	_, err = repo.GetReportByID(ctx, "r1")
	assert.Equal(t, report.ErrNotFound, err)
}
