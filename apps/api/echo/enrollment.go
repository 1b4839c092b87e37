package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core/enrollment"
)

type enrollmentApi struct {
	svc      *enrollment.Service
	validate *validator.Validate
}

func registerEnrollmentAPI(r *router, opts *Options) {
	api := enrollmentApi{
		svc:      opts.EnrollmentSvc,
		validate: opts.Validate,
	}

	r.add(http.MethodGet, "/permissions", api.queryGrants)
	r.add(http.MethodPost, "/permissions", api.grant)
	r.add(http.MethodDelete, "/permissions", api.revoke)

	r.add(http.MethodGet, "/enrollments", api.queryEnrollments)
	r.add(http.MethodPost, "/enrollments", api.enroll)
	r.add(http.MethodDelete, "/enrollments", api.unenroll)
}

func (api *enrollmentApi) grant(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data enrollment.GrantRequest
	if err := bind(ctx, &data, "GrantRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	created, err := api.svc.Grant(ctx.Request().Context(), usr, data.UserID, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "granting course access")
	}
	return respond(ctx, http.StatusCreated, echo.Map{"enrollment_created": created})
}

func (api *enrollmentApi) revoke(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data enrollment.GrantRequest
	if err := bind(ctx, &data, "GrantRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	removed, err := api.svc.Revoke(ctx.Request().Context(), usr, data.UserID, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "revoking course access")
	}
	return respond(ctx, http.StatusOK, echo.Map{"enrollment_removed": removed})
}

func (api *enrollmentApi) queryGrants(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := new(enrollment.QueryFilter)
	if err := bind(ctx, filter, "enrollment.QueryFilter"); err != nil {
		return err
	}
	filter.Clean()

	grants, err := api.svc.QueryGrants(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "querying grants")
	}
	if grants == nil {
		grants = []enrollment.Grant{}
	}
	return respond(ctx, http.StatusOK, echo.Map{"permissions": grants})
}

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data enrollment.EnrollRequest
	if err := bind(ctx, &data, "EnrollRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	created, err := api.svc.SelfEnroll(ctx.Request().Context(), usr, data.UserID, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	if !created {
		return respond(ctx, http.StatusOK, echo.Map{"enrolled": true, "message": "already enrolled"})
	}
	return respond(ctx, http.StatusCreated, echo.Map{"enrolled": true, "message": "enrolled"})
}

func (api *enrollmentApi) unenroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data enrollment.EnrollRequest
	if err := bind(ctx, &data, "EnrollRequest"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	removed, err := api.svc.SelfUnenroll(ctx.Request().Context(), usr, data.UserID, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "unenrolling")
	}
	return respond(ctx, http.StatusOK, echo.Map{"enrollment_removed": removed})
}

func (api *enrollmentApi) queryEnrollments(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := new(enrollment.QueryFilter)
	if err := bind(ctx, filter, "enrollment.QueryFilter"); err != nil {
		return err
	}
	filter.Clean()

	enrollments, err := api.svc.QueryEnrollments(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Enrollment{}
	}
	return respond(ctx, http.StatusOK, echo.Map{"enrollments": enrollments})
}
