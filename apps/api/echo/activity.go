package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core/activity"
)

type activityApi struct {
	svc      *activity.Service
	validate *validator.Validate
}

func registerActivityAPI(r *router, opts *Options) {
	api := activityApi{
		svc:      opts.ActivitySvc,
		validate: opts.Validate,
	}

	r.add(http.MethodGet, "/activities", api.query)
	r.add(http.MethodPost, "/activities", api.create)
	r.add(http.MethodGet, "/activities/stages", api.queryStages)
	r.add(http.MethodGet, "/activities/:id", api.retrieve)
	r.add(http.MethodPut, "/activities/:id", api.update)
	r.add(http.MethodDelete, "/activities/:id", api.destroy)
}

func (api *activityApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := new(activity.QueryFilter)
	if err := bind(ctx, filter, "activity.QueryFilter"); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	activities, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying activities")
	}
	if activities == nil {
		activities = []activity.Activity{}
	}
	return respond(ctx, http.StatusOK, echo.Map{"activities": activities})
}

func (api *activityApi) queryStages(ctx echo.Context) error {
	return respond(ctx, http.StatusOK, echo.Map{"stages": activity.Stages})
}

func (api *activityApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data activity.NewActivity
	if err := bind(ctx, &data, "NewActivity"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating activity")
	}
	return respond(ctx, http.StatusCreated, echo.Map{"activity": a})
}

func (api *activityApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	a, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding activity")
	}
	return respond(ctx, http.StatusOK, echo.Map{"activity": a})
}

func (api *activityApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data activity.UpdateActivity
	if err := bind(ctx, &data, "UpdateActivity"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating activity")
	}
	return respond(ctx, http.StatusOK, echo.Map{"activity": a})
}

func (api *activityApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting activity")
	}
	return respondOK(ctx)
}
