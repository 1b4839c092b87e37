package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/progress"
)

type progressApi struct {
	svc      *progress.Service
	validate *validator.Validate
}

func registerProgressAPI(r *router, opts *Options) {
	api := progressApi{
		svc:      opts.ProgressSvc,
		validate: opts.Validate,
	}

	r.add(http.MethodGet, "/progress", api.retrieve)
	r.add(http.MethodPost, "/progress", api.record)
}

func (api *progressApi) record(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data progress.RecordProgress
	if err := bind(ctx, &data, "RecordProgress"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.Record(ctx.Request().Context(), usr, data); err != nil {
		return errors.Wrap(err, "recording progress")
	}
	return respondOK(ctx)
}

func (api *progressApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	courseID := core.CleanString(ctx.QueryParam("course_id"))
	if courseID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "course_id", Error: "this field is required"})
	}

	sum, err := api.svc.Get(ctx.Request().Context(), usr, core.CleanString(ctx.QueryParam("user_id")), courseID)
	if err != nil {
		return errors.Wrap(err, "getting progress")
	}
	return respond(ctx, http.StatusOK, echo.Map{
		"progress":          sum.Progress,
		"assessments":       sum.Assessments,
		"percentage":        sum.Percentage,
		"completed_lessons": sum.CompletedLessons,
		"total_lessons":     sum.TotalLessons,
	})
}
