package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/berguardian/apps/api/echo"
	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/audit"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/core/staff"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/user"
	"github.com/trezcool/berguardian/core/wizard"
	appfs "github.com/trezcool/berguardian/fs"
	"github.com/trezcool/berguardian/services/email"
	"github.com/trezcool/berguardian/services/filestore"
	"github.com/trezcool/berguardian/services/logger"
	"github.com/trezcool/berguardian/storage/database/inmem"
	"github.com/trezcool/berguardian/tests"
)

const testPwd = "Passw0rd!"

type testApp struct {
	conf    *core.Config
	srv     *Server
	usrRepo user.Repository
	stuRepo student.Repository
	taskSvc *task.Service

	admin, staffer user.User
}

// setup serves the API over fresh in-memory repos. Without uploader, files are stored under a temp dir.
func setup(t *testing.T, uploaders ...wizard.Uploader) testApp {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()
	core.ParseEmailTemplates(appfs.FS, conf, logger)
	emailsvc.ClearSentMessages()

	var uploader wizard.Uploader
	if len(uploaders) > 0 {
		uploader = uploaders[0]
	} else {
		conf.Uploads.Dir = t.TempDir()
		store, err := filestore.NewLocalStore(conf.Uploads)
		require.NoError(t, err)
		uploader = store
	}

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	stuRepo := inmemdb.NewStudentRepository(db)

	// set up services
	stuSvc := student.NewService(stuRepo)
	engine, err := report.NewEngine(conf, stuSvc)
	require.NoError(t, err)
	taskSvc := task.NewService(inmemdb.NewTaskRepository(db))
	auditSvc := audit.NewService(inmemdb.NewAuditRepository(db))
	reportSvc := report.NewService(
		engine,
		inmemdb.NewReportRepository(db),
		stuSvc,
		taskSvc,
		auditSvc,
		emailsvc.NewConsoleServiceMock(conf, logger),
		logger,
	)

	// set up server
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DisableReqLogs: true,
		Engine:         engine,
		Uploader:       uploader,
		UserSvc:        user.NewService(usrRepo),
		ReportSvc:      reportSvc,
		StudentSvc:     stuSvc,
		StaffSvc:       staff.NewService(inmemdb.NewStaffRepository(db)),
		SiteSvc:        site.NewService(inmemdb.NewSiteRepository(db)),
		TaskSvc:        taskSvc,
		AuditSvc:       auditSvc,
	})

	return testApp{
		conf:    conf,
		srv:     srv,
		usrRepo: usrRepo,
		stuRepo: stuRepo,
		taskSvc: taskSvc,
		admin:   testutil.CreateUser(t, usrRepo, "Admin", "admin@school.test", testPwd, user.RoleAdmin, true),
		staffer: testutil.CreateUser(t, usrRepo, "Teacher", "teacher@school.test", testPwd, user.RoleStaff, true),
	}
}

func (app testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	app.srv.ServeHTTP(rec, req)
}

// do sends a JSON request and decodes the response body into dest, when given.
func (app testApp) do(t *testing.T, method, path, token string, body interface{}, dest ...interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		data = marchallObj(t, body)
	}
	req, rec := newAuthRequest(method, path, token, data)
	app.serve(req, rec)
	if len(dest) > 0 && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest[0]), rec.Body.String())
	}
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func createStudent(t *testing.T, app testApp) student.Student {
	return testutil.CreateStudent(t, app.stuRepo, "stu-1", "Ada", "Lovelace", "8", "Lincoln Elementary")
}

func getUser(t *testing.T, app testApp, id string) user.User {
	usr, err := app.usrRepo.GetUserByID(context.Background(), id)
	require.NoError(t, err)
	return usr
}
