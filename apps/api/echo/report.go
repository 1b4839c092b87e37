package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core/enrollment"
	"github.com/trezcool/cursos/core/report"
)

type reportApi struct {
	svc           *report.Service
	enrollmentSvc *enrollment.Service
}

func registerReportAPI(r *router, opts *Options) {
	api := reportApi{
		svc:           opts.ReportSvc,
		enrollmentSvc: opts.EnrollmentSvc,
	}

	r.add(http.MethodGet, "/reports/courses", api.courses)
	r.add(http.MethodPost, "/reports/reconcile", api.reconcile)
}

func (api *reportApi) courses(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	stats, err := api.svc.Courses(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "computing course report")
	}

	var drifted int
	for _, s := range stats {
		if s.Drifted() {
			drifted++
		}
	}
	return respond(ctx, http.StatusOK, echo.Map{"courses": stats, "drifted": drifted})
}

// reconcile recomputes every enrolled_count from the enrollment rows.
func (api *reportApi) reconcile(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	n, err := api.enrollmentSvc.Reconcile(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "reconciling enrolled counts")
	}
	return respond(ctx, http.StatusOK, echo.Map{"corrected": n})
}
