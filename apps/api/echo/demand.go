package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core"
	"github.com/trezcool/cursos/core/demand"
)

type demandApi struct {
	svc      *demand.Service
	validate *validator.Validate
}

func registerDemandAPI(r *router, opts *Options) {
	api := demandApi{
		svc:      opts.DemandSvc,
		validate: opts.Validate,
	}

	r.add(http.MethodGet, "/demands", api.query)
	r.add(http.MethodPost, "/demands", api.create)
	r.add(http.MethodGet, "/demands/week", api.currentWeek)
	r.add(http.MethodGet, "/demands/:id", api.retrieve)
	r.add(http.MethodPut, "/demands/:id", api.update)
	r.add(http.MethodDelete, "/demands/:id", api.destroy)
}

func (api *demandApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := new(demand.QueryFilter)
	if err := bind(ctx, filter, "demand.QueryFilter"); err != nil {
		return err
	}
	if err := filter.Clean(); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	demands, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying demands")
	}
	if demands == nil {
		demands = []demand.Demand{}
	}
	return respond(ctx, http.StatusOK, echo.Map{"demands": demands})
}

// currentWeek returns the ISO week to pass as `?week=` for demands due this week.
func (api *demandApi) currentWeek(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !demand.CanManage(usr) {
		return core.ErrForbidden
	}
	w := demand.WeekOf(time.Now())
	return respond(ctx, http.StatusOK, echo.Map{"week": w.String(), "start": w.Start, "end": w.End})
}

func (api *demandApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data demand.NewDemand
	if err := bind(ctx, &data, "NewDemand"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating demand")
	}
	return respond(ctx, http.StatusCreated, echo.Map{"demand": a})
}

func (api *demandApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	a, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding demand")
	}
	return respond(ctx, http.StatusOK, echo.Map{"demand": a})
}

func (api *demandApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data demand.UpdateDemand
	if err := bind(ctx, &data, "UpdateDemand"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating demand")
	}
	return respond(ctx, http.StatusOK, echo.Map{"demand": a})
}

func (api *demandApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting demand")
	}
	return respondOK(ctx)
}
