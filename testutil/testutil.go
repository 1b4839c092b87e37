// Package testutil builds fully wired services over the in-memory or PostgreSQL storage for tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

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

// TestDatabaseURLEnv names the variable holding the PostgreSQL URL of the integration tests.
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

type (
	Repos struct {
		Users       user.Repository
		Courses     course.Repository
		Enrollments enrollment.Repository
		Progress    progress.Repository
		Activities  activity.Repository
		Demands     demand.Repository
		Reports     report.Repository
	}

	Env struct {
		Conf       *core.Config
		Logger     *logsvc.RollbarLogger
		Validate   *validator.Validate
		Translator ut.Translator
		Mailer     *emailsvc.ConsoleServiceMock
		Repos      Repos

		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		ProgressSvc   *progress.Service
		ActivitySvc   *activity.Service
		DemandSvc     *demand.Service
		ReportSvc     *report.Service
	}
)

// Config returns a TEST configuration that does not depend on the environment.
func Config() *core.Config {
	conf := &core.Config{
		Debug:           false,
		TestMode:        true,
		Env:             "TEST",
		Build:           "test",
		AppName:         "Cursos",
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://localhost:5173",
		Server: core.ServerConfig{
			Host:                      "localhost",
			Address:                   ":0",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
	}
	conf.SetDefaultFromEmail("Cursos <noreply@test.local>")
	return conf
}

// NewValidator returns a validator with every custom tag of the app registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	return validate, translator
}

func InMemRepos(db *inmemdb.DB) Repos {
	return Repos{
		Users:       inmemdb.NewUserRepository(db),
		Courses:     inmemdb.NewCourseRepository(db),
		Enrollments: inmemdb.NewEnrollmentRepository(db),
		Progress:    inmemdb.NewProgressRepository(db),
		Activities:  inmemdb.NewActivityRepository(db),
		Demands:     inmemdb.NewDemandRepository(db),
		Reports:     inmemdb.NewReportRepository(db),
	}
}

func SQLRepos(db *sqlx.DB) Repos {
	return Repos{
		Users:       sqlxrepos.NewUserRepository(db),
		Courses:     sqlxrepos.NewCourseRepository(db),
		Enrollments: sqlxrepos.NewEnrollmentRepository(db),
		Progress:    sqlxrepos.NewProgressRepository(db),
		Activities:  sqlxrepos.NewActivityRepository(db),
		Demands:     sqlxrepos.NewDemandRepository(db),
		Reports:     sqlxrepos.NewReportRepository(db),
	}
}

// NewEnv wires every service over repos.
func NewEnv(repos Repos) *Env {
	conf := Config()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
	validate, translator := NewValidator()
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)

	usrSvc := user.NewService(repos.Users)
	courseSvc := course.NewService(repos.Courses)
	return &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Mailer:     mailer,
		Repos:      repos,

		UserSvc:       usrSvc,
		CourseSvc:     courseSvc,
		EnrollmentSvc: enrollment.NewService(repos.Enrollments, usrSvc, repos.Courses, mailer),
		ProgressSvc:   progress.NewService(repos.Progress, courseSvc),
		ActivitySvc:   activity.NewService(repos.Activities),
		DemandSvc:     demand.NewService(repos.Demands, usrSvc),
		ReportSvc:     report.NewService(repos.Reports),
	}
}

// NewInMemEnv wires every service over a fresh in-memory database.
func NewInMemEnv() (*Env, *inmemdb.DB) {
	db := inmemdb.Open()
	return NewEnv(InMemRepos(db)), db
}

// PrepareDB opens TEST_DATABASE_URL, migrates it and empties every table.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbURL := os.Getenv(TestDatabaseURLEnv)
	if dbURL == "" {
		t.Skipf("%s not set", TestDatabaseURLEnv)
	}
	db, err := database.OpenURL(dbURL)
	if err != nil {
		t.Fatalf("PrepareDB() failed to open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	q := `TRUNCATE TABLE assessment_completion, lesson_progress, enrollment, course_grant, lesson, course,
		activity, demand, "user" CASCADE`
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd == "" {
		pwd = "Secret-pwd-123"
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse stores a course with nLessons lessons, ordered by position.
func CreateCourse(t *testing.T, svc *course.Service, actor user.User, title, status string, nLessons int) (course.Course, []course.Lesson) {
	t.Helper()

	ctx := context.Background()
	crs, err := svc.Create(ctx, actor, course.NewCourse{Title: title, Status: status})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	lessons := make([]course.Lesson, 0, nLessons)
	for i := 1; i <= nLessons; i++ {
		l, err := svc.AddLesson(ctx, actor, crs.ID, course.NewLesson{
			Title:           fmt.Sprintf("%s - lesson %d", title, i),
			DurationSeconds: 600,
			Position:        i,
		})
		if err != nil {
			t.Fatalf("CreateCourse() failed to add lesson: %v", err)
		}
		lessons = append(lessons, l)
	}
	return crs, lessons
}
