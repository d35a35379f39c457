package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/audit"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/core/staff"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/user"
	"github.com/trezcool/berguardian/core/wizard"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		Engine     *wizard.Engine
		Uploader   wizard.Uploader
		UserSvc    *user.Service
		ReportSvc  *report.Service
		StudentSvc *student.Service
		StaffSvc   *staff.Service
		SiteSvc    *site.Service
		TaskSvc    *task.Service
		AuditSvc   *audit.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		auth     *authenticator
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if !deps.Conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit(bodyLimit(conf.Uploads.MaxSize)))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := s.auth.middleware()

	registerUserAPI(v1, jwt, s.auth, s.deps.UserSvc)
	registerWizardAPI(v1, jwt, s.deps.Engine)
	registerReportAPI(v1, jwt, s.deps.ReportSvc, s.deps.AuditSvc, s.deps.Engine, s.deps.Uploader)
	registerStudentAPI(v1, jwt, s.deps.StudentSvc)
	registerStaffAPI(v1, jwt, s.deps.StaffSvc)
	registerSiteAPI(v1, jwt, s.deps.SiteSvc)
	registerTaskAPI(v1, jwt, s.deps.TaskSvc)
}

// Start listens on the configured host; a listening failure is sent on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives SIGINT, SIGTERM and the shutdown requested on integrity errors.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}

// bodyLimit leaves room for the multipart envelope of a maximum size upload.
func bodyLimit(maxUpload int64) string {
	const mb = 1 << 20
	limit := maxUpload/mb*4 + 2
	if maxUpload <= 0 {
		limit = 64
	}
	return strconv.FormatInt(limit, 10) + "M"
}
