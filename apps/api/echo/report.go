package echoapi

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/audit"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/wizard"
)

const defaultAttachmentsKey = "attachments"

type reportApi struct {
	svc      *report.Service
	audit    *audit.Service
	engine   *wizard.Engine
	uploader wizard.Uploader
}

func registerReportAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *report.Service,
	auditSvc *audit.Service,
	engine *wizard.Engine,
	uploader wizard.Uploader,
) {
	api := reportApi{svc: svc, audit: auditSvc, engine: engine, uploader: uploader}

	rg := g.Group("/reports", jwt)
	rg.POST("", api.create)
	rg.GET("", api.query)
	rg.GET("/review-queue", api.reviewQueue)
	rg.POST("/attachments", api.upload)

	// detail endpoints
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy, adminMiddleware())
	rg.GET("/:id/form", api.form)
	rg.GET("/:id/audit", api.auditTrail)
	rg.PATCH("/:id/status", api.updateStatus)
	rg.POST("/:id/email", api.email)
}

func (api *reportApi) save(ctx echo.Context, id string) (report.Record, error) {
	var data SaveReportRequest
	if err := ctx.Bind(&data); err != nil {
		return report.Record{}, errors.Wrap(err, "binding to SaveReportRequest")
	}
	return api.svc.Save(ctx.Request().Context(), contextActor(ctx), report.SaveRequest{
		ID:     id,
		Token:  data.Token,
		State:  wizard.Normalize(api.engine.Config(), data.State),
		Status: core.CleanString(data.Status, true /* lower */),
	})
}

// Handlers

func (api *reportApi) create(ctx echo.Context) error {
	rec, err := api.save(ctx, "")
	if err != nil {
		if id := rec.ID(); id != "" {
			// stored, but not submitted: the client retries against the report
			ctx.Response().Header().Set(echo.HeaderLocation, strings.TrimSuffix(ctx.Request().URL.Path, "/")+"/"+id)
		}
		return errors.Wrap(err, "creating report")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *reportApi) update(ctx echo.Context) error {
	rec, err := api.save(ctx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "updating report")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *reportApi) query(ctx echo.Context) error {
	var filter report.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []report.Record{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	recs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if recs == nil {
		recs = []report.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *reportApi) reviewQueue(ctx echo.Context) error {
	recs, err := api.svc.ReviewQueue(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying review queue")
	}
	if recs == nil {
		recs = []report.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding report by ID")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *reportApi) form(ctx echo.Context) error {
	state, err := api.svc.Form(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading report form")
	}
	return ctx.JSON(http.StatusOK, StateResponse{State: state})
}

func (api *reportApi) auditTrail(ctx echo.Context) error {
	if _, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding report by ID")
	}
	events, err := api.audit.ListByReport(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing audit events")
	}
	if events == nil {
		events = []audit.Event{}
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *reportApi) updateStatus(ctx echo.Context) error {
	var data StatusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StatusRequest")
	}
	rec, err := api.svc.UpdateStatus(ctx.Request().Context(), contextActor(ctx), ctx.Param("id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "updating report status")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *reportApi) email(ctx echo.Context) error {
	var data report.EmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EmailRequest")
	}
	if err := api.svc.Email(ctx.Request().Context(), contextActor(ctx), ctx.Param("id"), data); err != nil {
		return errors.Wrap(err, "emailing report")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "The report has been sent."})
}

func (api *reportApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), contextActor(ctx), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting report")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// upload stores the posted files and returns the state with the attachments appended.
// When any upload fails nothing is attached and the client keeps its state.
func (api *reportApi) upload(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form").SetInternal(err)
	}

	raw := make(map[string]interface{})
	if s := formValue(form, "state"); s != "" {
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "state", Error: "must be a JSON object"})
		}
	}
	key := formValue(form, "key")
	if key == "" {
		key = defaultAttachmentsKey
	}
	fld, ok := api.engine.Config().Field(key)
	if !ok {
		return errors.Wrapf(wizard.ErrUnknownField, "uploading to %q", key)
	}

	headers := append(form.File["files"], form.File["files[]"]...)
	if len(headers) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "files", Error: "this field is required"})
	}
	files := make([]wizard.File, 0, len(headers))
	var rejected []string
	for _, fh := range headers {
		if !fld.Accepts(fh.Filename) {
			rejected = append(rejected, fh.Filename)
			continue
		}
		files = append(files, toUploadFile(fh))
	}
	if len(rejected) > 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "files",
			Error: "file type not accepted: " + strings.Join(rejected, ", "),
		})
	}

	state := wizard.Normalize(api.engine.Config(), raw)
	var uploadErr error
	state = api.engine.AttachFiles(ctx.Request().Context(), api.engine.Initialize(state), key, api.uploader, files, func(err error) {
		uploadErr = err
	})
	if uploadErr != nil {
		return errors.Wrap(uploadErr, "uploading attachments")
	}
	return ctx.JSON(http.StatusOK, StateResponse{State: state})
}

func formValue(form *multipart.Form, name string) string {
	if vals := form.Value[name]; len(vals) > 0 {
		return strings.TrimSpace(vals[0])
	}
	return ""
}

func toUploadFile(fh *multipart.FileHeader) wizard.File {
	return wizard.File{
		Name: fh.Filename,
		Size: fh.Size,
		Type: fh.Header.Get(echo.HeaderContentType),
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

type (
	SaveReportRequest struct {
		Token  string                 `json:"token"`
		State  map[string]interface{} `json:"state"`
		Status string                 `json:"status"`
	}

	StatusRequest struct {
		Status string `json:"status"`
	}
)
