package main

import (
	"fmt"
	"log"
	"os"

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
	conf := core.NewConfig()

	logger, err := logsvc.NewRollbarLogger("ADMIN", conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("reaching database: %v", err), err)
	}

	// set up services
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	stuSvc := student.NewService(sqlxrepos.NewStudentRepository(db))
	taskSvc := task.NewService(sqlxrepos.NewTaskRepository(db))

	engine, err := report.NewEngine(conf, stuSvc)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading wizard: %v", err), err)
	}
	store, err := filestore.NewLocalStore(conf.Uploads)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
	}
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   usrSvc,
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
			emailsvc.NewConsoleService(conf, logger),
			logger,
		),
		engine:   engine,
		uploader: store,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	logger.Sync()
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("\nerror: %s", err)))
		}
		os.Exit(1)
	}
}
