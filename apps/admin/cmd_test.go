package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/jmoiron/sqlx"
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
	emailsvc "github.com/trezcool/berguardian/services/email"
	"github.com/trezcool/berguardian/services/filestore"
	logsvc "github.com/trezcool/berguardian/services/logger"
	sqlxrepos "github.com/trezcool/berguardian/storage/database/sqlx"
	"github.com/trezcool/berguardian/tests"
)

var (
	usrRepo user.Repository
	stuRepo student.Repository
)

func setup(t *testing.T) *commandLine {
	conf := core.NewTestConfig()
	conf.Uploads.Dir = t.TempDir()
	logger := logsvc.NewNopLogger()

	// set up DB & repos
	db := testutil.OpenDB(t)
	usrRepo = sqlxrepos.NewUserRepository(db)
	stuRepo = sqlxrepos.NewStudentRepository(db)

	// set up services
	stuSvc := student.NewService(stuRepo)
	taskSvc := task.NewService(sqlxrepos.NewTaskRepository(db))
	engine, err := report.NewEngine(conf, stuSvc)
	require.NoError(t, err)
	store, err := filestore.NewLocalStore(conf.Uploads)
	require.NoError(t, err)

	// start CLI
	return &commandLine{
		db:       db,
		usrSvc:   user.NewService(usrRepo),
		stuSvc:   stuSvc,
		siteSvc:  site.NewService(sqlxrepos.NewSiteRepository(db)),
		staffSvc: staff.NewService(sqlxrepos.NewStaffRepository(db)),
		taskSvc:  taskSvc,
		reportSvc: report.NewService(
			engine,
			sqlxrepos.NewReportRepository(db),
			stuSvc,
			taskSvc,
			audit.NewService(sqlxrepos.NewAuditRepository(db)),
			emailsvc.NewConsoleServiceMock(conf, logger),
			logger,
		),
		engine:   engine,
		uploader: store,
		out:      new(bytes.Buffer),
	}
}

func output(cli *commandLine) string {
	return cli.out.(*bytes.Buffer).String()
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v", tt.wantErr)
		}
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_root(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
		{name: "tasks: no subcommand", args: []string{"tasks"}, wantErr: errHelp},
		{name: "wizard: no subcommand", args: []string{"wizard"}, wantErr: errHelp},
		{name: "report: no subcommand", args: []string{"report"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	runMigrationsFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "sites", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe@school.test", "mdr", user.RoleStaff, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "--email", "lol@school.test"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--email", "lol@school.test"}, extra: extra{pwd: "Tr1cky-Pass"}, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "--email", usr.Email}, extra: extra{pwd: "lol"}, wantErrStr: "password"},
		{name: "reset", args: []string{"resetpassword", "--email", usr.Email}, extra: extra{pwd: "Tr1cky-Pass"}},
		{name: "reset with mixed case email", args: []string{"resetpassword", "--email", "AWE@school.test"}, extra: extra{pwd: "An0ther#Pass"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if refreshedUsr.CheckPassword(tt.extra.(extra).pwd) != nil {
					t.Error("failed to update new password")
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	inactive := testutil.CreateUser(t, usrRepo, "Old Name", "old@school.test", "mdr", user.RoleStaff, false)
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("Gr8-Scho0l!"), nil }

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "--email", "new@school.test"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"adduser", "--email", "lol", "--name", "Lol"}, wantErrStr: "email"},
		{name: "create admin", args: []string{"adduser", "--email", "new@school.test", "--name", "New Admin", "--admin"}},
		{name: "reactivate existing", args: []string{"adduser", "--email", inactive.Email, "--name", "New Name"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	created, err := cli.usrSvc.GetByEmail(context.Background(), "new@school.test")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, created.Role)
	assert.NoError(t, created.CheckPassword("Gr8-Scho0l!"))

	updated := getUser(t, inactive.ID)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "New Name", updated.FullName)
	assert.Equal(t, user.RoleStaff, updated.Role)
	assert.NoError(t, updated.CheckPassword("Gr8-Scho0l!"))
}

func Test_commandLine_tasksSweep(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	for _, due := range []time.Time{now.AddDate(0, 0, -1), now.AddDate(0, 0, 1)} {
		_, err := cli.taskSvc.Create(ctx, task.NewTask{
			Description: "Notify guardian",
			TaskType:    task.TypeGuardianNotification,
			DueDate:     due,
		})
		require.NoError(t, err)
	}

	require.NoError(t, cli.run([]string{"admin", "tasks", "sweep"}))
	assert.Contains(t, output(cli), "1 task(s) marked overdue.")

	stats, err := cli.taskSvc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 1, stats.Pending)
}

func Test_commandLine_wizardCheck(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("id: broken\nsteps: []\n"), 0o600))

	tests := []cliTest{
		{name: "embedded config"},
		{name: "broken config", args: []string{broken}, wantErrStr: "no steps"},
		{name: "missing file", args: []string{filepath.Join(dir, "nope.yaml")}, wantErrStr: "reading wizard config"},
		{name: "too many args", args: []string{broken, broken}, wantErrStr: "accepts at most 1 arg(s)"},
	}
	for _, tt := range tests {
		args := append([]string{"admin", "wizard", "check"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			cli := setup(t)
			err := cli.run(args)
			tt.check(t, err)
			if err == nil {
				assert.Contains(t, output(cli), "OK:")
			}
		})
	}
}

func Test_commandLine_reportNew(t *testing.T) {
	cli := setup(t)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@school.test", "mdr", user.RoleAdmin, true)
	stu := testutil.CreateStudent(t, stuRepo, "stu-1", "Ada", "Lovelace", "8", "Lincoln Elementary")

	// forms are left untouched: the answers are the seeded state
	runFormFunc = func(*huh.Form) error { return nil }
	defer func() { runFormFunc = func(form *huh.Form) error { return form.Run() } }()

	writeState := func(t *testing.T, state map[string]interface{}) string {
		data, err := json.Marshal(state)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, data, 0o600))
		return path
	}

	tests := []cliTest{
		{name: "no actor", args: []string{"report", "new"}, wantErr: errHelp},
		{name: "unknown actor", args: []string{"report", "new", "--as", "nobody@school.test"}, wantErrStr: "resolving --as"},
		{name: "unreadable state", args: []string{"report", "new", "--as", admin.Email, "--from", "nope.json"}, wantErrStr: "reading form state"},
		{name: "submit", args: []string{"report", "new", "--as", admin.Email, "--from", writeState(t, completeState(stu.ID))}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}

	recs, err := cli.reportSvc.Query(context.Background(), report.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	common := recs[0].Common()
	assert.Equal(t, report.StatusSubmitted, common.Status)
	assert.Equal(t, "Ada Lovelace - Grade 8", common.StudentName)
	assert.Equal(t, admin.Email, common.CreatedBy)
	assert.Contains(t, output(cli), "Ada Lovelace - Grade 8")
}

func completeState(studentID string) map[string]interface{} {
	return map[string]interface{}{
		"report_type":        "ber",
		"student_id":         studentID,
		"site_id":            "Lincoln Elementary",
		"student_dob":        "2010-05-01",
		"incident_date":      "2024-05-02",
		"incident_time":      "10:15",
		"location":           "Gym",
		"incident_narrative": "Student ran out of the gym and hit a peer.",
		"injuries":           []string{"Student"},
		"notification_recipients": []map[string]interface{}{
			{"name": "Grace Hopper", "relationship": "parent/guardian", "method": "phone_call", "notified_at": "2024-05-02"},
		},
	}
}

func getUser(t *testing.T, id string) user.User {
	usr, err := usrRepo.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return usr
}
