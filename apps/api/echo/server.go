package echoapi

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/activity"
	"github.com/trezcool/cursos/core/course"
	"github.com/trezcool/cursos/core/demand"
	"github.com/trezcool/cursos/core/enrollment"
	"github.com/trezcool/cursos/core/progress"
	"github.com/trezcool/cursos/core/report"
	"github.com/trezcool/cursos/core/user"
)

type (
	Options struct {
		Conf           *core.Config
		Logger         core.Logger
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
		// SignalShutdown is called when a handler fails with a shutdown error.
		SignalShutdown func()

		UserSvc       *user.Service
		CourseSvc     *course.Service
		EnrollmentSvc *enrollment.Service
		ProgressSvc   *progress.Service
		ActivitySvc   *activity.Service
		DemandSvc     *demand.Service
		ReportSvc     *report.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}

	// router registers routes without echo groups: Group.Use would add catch-all routes that hide 405s.
	router struct {
		app    *echo.Echo
		prefix string
		authed []echo.MiddlewareFunc
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestID())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)

	v1 := &router{
		app:    s.app,
		prefix: "/v1",
		authed: []echo.MiddlewareFunc{
			middleware.JWTWithConfig(newJWTConfig(conf)),
			currentUserMiddleware(s.opts.UserSvc),
		},
	}

	registerUserAPI(v1, s.opts)
	registerCourseAPI(v1, s.opts)
	registerEnrollmentAPI(v1, s.opts)
	registerProgressAPI(v1, s.opts)
	registerActivityAPI(v1, s.opts)
	registerDemandAPI(v1, s.opts)
	registerReportAPI(v1, s.opts)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Conf.Server.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}

// public registers a route reachable without a token.
func (r *router) public(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	r.app.Add(method, r.prefix+path, h, m...)
}

// add registers a route that requires an active, authenticated user.
func (r *router) add(method, path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	mw := make([]echo.MiddlewareFunc, 0, len(r.authed)+len(m))
	mw = append(mw, r.authed...)
	mw = append(mw, m...)
	r.app.Add(method, r.prefix+path, h, mw...)
}
