package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core/course"
)

type courseApi struct {
	svc      *course.Service
	validate *validator.Validate
}

func registerCourseAPI(r *router, opts *Options) {
	api := courseApi{
		svc:      opts.CourseSvc,
		validate: opts.Validate,
	}

	r.add(http.MethodGet, "/courses", api.query)
	r.add(http.MethodPost, "/courses", api.create)
	r.add(http.MethodGet, "/courses/:id", api.retrieve)
	r.add(http.MethodPut, "/courses/:id", api.update)
	r.add(http.MethodDelete, "/courses/:id", api.destroy)

	r.add(http.MethodGet, "/courses/:id/lessons", api.queryLessons)
	r.add(http.MethodPost, "/courses/:id/lessons", api.createLesson)
	r.add(http.MethodGet, "/courses/:id/lessons/:lessonId", api.retrieveLesson)
	r.add(http.MethodPut, "/courses/:id/lessons/:lessonId", api.updateLesson)
	r.add(http.MethodDelete, "/courses/:id/lessons/:lessonId", api.destroyLesson)
}

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	filter := new(course.QueryFilter)
	if err := bind(ctx, filter, "course.QueryFilter"); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), usr, filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return respond(ctx, http.StatusOK, echo.Map{"courses": courses})
}

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewCourse
	if err := bind(ctx, &data, "NewCourse"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return respond(ctx, http.StatusCreated, echo.Map{"course": c})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	c, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return respond(ctx, http.StatusOK, echo.Map{"course": c})
}

func (api *courseApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.UpdateCourse
	if err := bind(ctx, &data, "UpdateCourse"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return respond(ctx, http.StatusOK, echo.Map{"course": c})
}

func (api *courseApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return respondOK(ctx)
}

func (api *courseApi) queryLessons(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	lessons, err := api.svc.Lessons(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []course.Lesson{}
	}
	return respond(ctx, http.StatusOK, echo.Map{"lessons": lessons})
}

func (api *courseApi) createLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.NewLesson
	if err := bind(ctx, &data, "NewLesson"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.AddLesson(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return respond(ctx, http.StatusCreated, echo.Map{"lesson": l})
}

func (api *courseApi) retrieveLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	reqCtx := ctx.Request().Context()
	if _, err := api.svc.Get(reqCtx, usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding course")
	}
	l, err := api.svc.Lesson(reqCtx, ctx.Param("id"), ctx.Param("lessonId"))
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	return respond(ctx, http.StatusOK, echo.Map{"lesson": l})
}

func (api *courseApi) updateLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data course.UpdateLesson
	if err := bind(ctx, &data, "UpdateLesson"); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	l, err := api.svc.UpdateLesson(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("lessonId"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return respond(ctx, http.StatusOK, echo.Map{"lesson": l})
}

func (api *courseApi) destroyLesson(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteLesson(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("lessonId")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return respondOK(ctx)
}
