package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/berguardian/apps/api/echo"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/wizard"
	"github.com/trezcool/berguardian/services/email"
)

type reportResponse struct {
	ID          string `json:"id"`
	Type        string `json:"report_type"`
	Status      string `json:"status"`
	StudentName string `json:"student_name"`
	CreatedBy   string `json:"created_by"`
}

func completeState(studentID string) map[string]interface{} {
	state := stepOneState(studentID)
	state["injuries"] = []string{"Student"}
	state["notification_recipients"] = []map[string]interface{}{
		{"name": "Grace Hopper", "relationship": "parent/guardian", "method": "phone_call", "notified_at": "2024-05-02"},
	}
	return state
}

func Test_reportApi_create(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, app.staffer)
	stu := createStudent(t, app)

	tests := []httpTest{
		{
			name: "draft needs the student",
			body: marchallObj(t, SaveReportRequest{
				State: map[string]interface{}{"report_type": "ber"},
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown student",
			body: marchallObj(t, SaveReportRequest{
				State:  completeState("nobody"),
				Status: report.StatusSubmitted,
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "invalid status",
			body: marchallObj(t, SaveReportRequest{
				State:  completeState(stu.ID),
				Status: report.StatusApproved,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "invalid report status"}),
		},
		{
			name: "submit incomplete",
			body: marchallObj(t, SaveReportRequest{
				State:  stepOneState(stu.ID),
				Status: report.StatusSubmitted,
			}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/reports", token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("submit", func(t *testing.T) {
		var rep reportResponse
		rec := app.do(t, http.MethodPost, "/v1/reports", token, SaveReportRequest{
			Token:  "tok-1",
			State:  completeState(stu.ID),
			Status: "Submitted",
		}, &rep)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotEmpty(t, rep.ID)
		assert.Equal(t, "ber", rep.Type)
		assert.Equal(t, report.StatusSubmitted, rep.Status)
		assert.Equal(t, "Ada Lovelace - Grade 8", rep.StudentName)
		assert.Equal(t, app.staffer.Email, rep.CreatedBy)

		tasks, err := app.taskSvc.Query(context.Background(), task.QueryFilter{ReportID: rep.ID})
		require.NoError(t, err)
		assert.NotEmpty(t, tasks)

		var queue []reportResponse
		rec = app.do(t, http.MethodGet, "/v1/reports/review-queue", token, nil, &queue)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, queue, 1)
		assert.Equal(t, rep.ID, queue[0].ID)
	})
}

func Test_reportApi_lifecycle(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, app.staffer)
	adminToken := getToken(t, app.conf, app.admin)
	stu := createStudent(t, app)

	var rep reportResponse
	rec := app.do(t, http.MethodPost, "/v1/reports", token, SaveReportRequest{State: completeState(stu.ID)}, &rep)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, report.StatusDraft, rep.Status)
	path := "/v1/reports/" + rep.ID

	// the draft reloads into the wizard
	var form StateResponse
	rec = app.do(t, http.MethodGet, path+"/form", token, nil, &form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Gym", form.State["location"])

	state := completeState(stu.ID)
	state["location"] = "Library"
	rec = app.do(t, http.MethodPut, path, token, SaveReportRequest{State: state, Status: report.StatusSubmitted}, &rep)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.StatusSubmitted, rep.Status)

	rec = app.do(t, http.MethodPatch, path+"/status", token, StatusRequest{Status: "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPatch, path+"/status", adminToken, StatusRequest{Status: report.StatusUnderReview}, &rep)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.StatusUnderReview, rep.Status)

	var list []reportResponse
	rec = app.do(t, http.MethodGet, "/v1/reports?status=under_review&search=library", token, nil, &list)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, list, 1)
	assert.Equal(t, rep.ID, list[0].ID)

	var events []struct {
		Action string `json:"action"`
		Actor  string `json:"actor"`
	}
	rec = app.do(t, http.MethodGet, path+"/audit", token, nil, &events)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, app.staffer.Email, events[0].Actor)

	// staff cannot delete
	rec = app.do(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodDelete, path, adminToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	tests := []httpTest{
		{name: "retrieve", method: http.MethodGet, path: path, wantCode: http.StatusNotFound},
		{name: "form", method: http.MethodGet, path: path + "/form", wantCode: http.StatusNotFound},
		{name: "audit", method: http.MethodGet, path: path + "/audit", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_reportApi_email(t *testing.T) {
	app := setup(t)
	token := getToken(t, app.conf, app.staffer)
	stu := createStudent(t, app)

	var rep reportResponse
	rec := app.do(t, http.MethodPost, "/v1/reports", token, SaveReportRequest{State: completeState(stu.ID)}, &rep)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	emailsvc.ClearSentMessages()

	rec = app.do(t, http.MethodPost, "/v1/reports/"+rep.ID+"/email", token, report.EmailRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp SuccessResponse
	rec = app.do(t, http.MethodPost, "/v1/reports/"+rep.ID+"/email", token, report.EmailRequest{
		Recipients:     []string{"principal@school.test"},
		CustomMessage:  "Please review.",
		IncludeDetails: true,
	}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "The report has been sent.", resp.Success)
	assert.Len(t, emailsvc.SentMessages, 1)
}

type failingUploader struct{}

func (failingUploader) Upload(context.Context, wizard.File) (string, error) {
	return "", errors.New("storage unavailable")
}

func newUploadRequest(t *testing.T, token string, state map[string]interface{}, names ...string) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if state != nil {
		data, err := json.Marshal(state)
		require.NoError(t, err)
		require.NoError(t, w.WriteField("state", string(data)))
	}
	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/reports/attachments", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func Test_reportApi_upload(t *testing.T) {
	t.Run("stored", func(t *testing.T) {
		app := setup(t)
		req, rec := newUploadRequest(t, getToken(t, app.conf, app.staffer),
			map[string]interface{}{"location": "Gym"}, "notes.pdf", "photo.png")
		app.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			State struct {
				Location    string `json:"location"`
				Attachments []struct {
					Name string `json:"name"`
					URL  string `json:"url"`
				} `json:"attachments"`
			} `json:"state"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Gym", resp.State.Location)
		require.Len(t, resp.State.Attachments, 2)
		assert.Equal(t, "notes.pdf", resp.State.Attachments[0].Name)
		assert.Contains(t, resp.State.Attachments[0].URL, app.conf.Uploads.BaseURL)
	})

	t.Run("rejected type", func(t *testing.T) {
		app := setup(t)
		req, rec := newUploadRequest(t, getToken(t, app.conf, app.staffer), nil, "notes.pdf", "virus.exe")
		app.serve(req, rec)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"files": "file type not accepted: virus.exe"}),
		}, rec)
	})

	t.Run("no files", func(t *testing.T) {
		app := setup(t)
		req, rec := newUploadRequest(t, getToken(t, app.conf, app.staffer), nil)
		app.serve(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		app := setup(t, failingUploader{})
		req, rec := newUploadRequest(t, getToken(t, app.conf, app.staffer), nil, "notes.pdf")
		app.serve(req, rec)
		assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
	})
}
