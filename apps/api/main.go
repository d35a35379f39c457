package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/berguardian/apps/api/echo"
	"github.com/trezcool/berguardian/core"
	"github.com/trezcool/berguardian/core/audit"
	"github.com/trezcool/berguardian/core/report"
	"github.com/trezcool/berguardian/core/site"
	"github.com/trezcool/berguardian/core/staff"
	"github.com/trezcool/berguardian/core/student"
	"github.com/trezcool/berguardian/core/task"
	"github.com/trezcool/berguardian/core/user"
	appfs "github.com/trezcool/berguardian/fs"
	emailsvc "github.com/trezcool/berguardian/services/email"
	"github.com/trezcool/berguardian/services/filestore"
	logsvc "github.com/trezcool/berguardian/services/logger"
	"github.com/trezcool/berguardian/storage/database"
	sqlxrepos "github.com/trezcool/berguardian/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger, err := logsvc.NewRollbarLogger("API", conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer logger.Sync()

	dbLogger, err := logsvc.NewRollbarLogger("DB", conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	stuSvc := student.NewService(sqlxrepos.NewStudentRepository(db))
	taskSvc := task.NewService(sqlxrepos.NewTaskRepository(db))
	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(db))

	engine, err := report.NewEngine(conf, stuSvc)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading wizard: %v", err), err)
	}
	store, err := filestore.NewLocalStore(conf.Uploads)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
	}

	reportSvc := report.NewService(
		engine,
		sqlxrepos.NewReportRepository(db),
		stuSvc,
		taskSvc,
		auditSvc,
		mailSvc,
		logger,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %v", conf))
	defer logger.Info("Application stopped")

	core.ParseEmailTemplates(appfs.FS, conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Engine:     engine,
			Uploader:   store,
			UserSvc:    usrSvc,
			ReportSvc:  reportSvc,
			StudentSvc: stuSvc,
			StaffSvc:   staff.NewService(sqlxrepos.NewStaffRepository(db)),
			SiteSvc:    site.NewService(sqlxrepos.NewSiteRepository(db)),
			TaskSvc:    taskSvc,
			AuditSvc:   auditSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
