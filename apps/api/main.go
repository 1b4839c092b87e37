package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/cursos/apps/api/echo"
	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/activity"
	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/demand"
	"github.com/trezcool/cursos/core/enrollment"
	"github.com/trezcool/cursos/core/progress"
	"github.com/trezcool/cursos/core/report"
	"github.com/trezcool/cursos/core/user"
	emailsvc "github.com/trezcool/cursos/services/email"
	logsvc "github.com/trezcool/cursos/services/logger"
	"github.com/trezcool/cursos/storage/database"
	inmemdb "github.com/trezcool/cursos/storage/database/inmem"
	sqlxrepos "github.com/trezcool/cursos/storage/database/sqlx"
)

// inMemEngine keeps everything in process memory; handy for demos, lost on restart.
const inMemEngine = "inmem"

type repositories struct {
	users       user.Repository
	courses     course.Repository
	enrollments enrollment.Repository
	progress    progress.Repository
	activities  activity.Repository
	demands     demand.Repository
	reports     report.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up DB
	repos, closeDB, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer closeDB()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(repos.users)
	courseSvc := course.NewService(repos.courses)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },

		UserSvc:       usrSvc,
		CourseSvc:     courseSvc,
		EnrollmentSvc: enrollment.NewService(repos.enrollments, usrSvc, repos.courses, mailSvc),
		ProgressSvc:   progress.NewService(repos.progress, courseSvc),
		ActivitySvc:   activity.NewService(repos.activities),
		DemandSvc:     demand.NewService(repos.demands, usrSvc),
		ReportSvc:     report.NewService(repos.reports),
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("server error: %v", err), err)
		}

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB(conf *core.Config) (repositories, func(), error) {
	if conf.Database.Engine == inMemEngine {
		db := inmemdb.Open()
		return repositories{
			users:       inmemdb.NewUserRepository(db),
			courses:     inmemdb.NewCourseRepository(db),
			enrollments: inmemdb.NewEnrollmentRepository(db),
			progress:    inmemdb.NewProgressRepository(db),
			activities:  inmemdb.NewActivityRepository(db),
			demands:     inmemdb.NewDemandRepository(db),
			reports:     inmemdb.NewReportRepository(db),
		}, func() {}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return repositories{}, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return repositories{}, nil, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return repositories{}, nil, errors.Wrap(err, "migrating")
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Printf("closing database: %v", err)
		}
	}
	return repositories{
		users:       sqlxrepos.NewUserRepository(db),
		courses:     sqlxrepos.NewCourseRepository(db),
		enrollments: sqlxrepos.NewEnrollmentRepository(db),
		progress:    sqlxrepos.NewProgressRepository(db),
		activities:  sqlxrepos.NewActivityRepository(db),
		demands:     sqlxrepos.NewDemandRepository(db),
		reports:     sqlxrepos.NewReportRepository(db),
	}, closeDB, nil
}
