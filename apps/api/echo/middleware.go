package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cursos/core/user"
)

// roleMiddleware only lets through users holding at least role in h (root always passes).
func roleMiddleware(role string, h user.Hierarchy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if user.Authorize(usr, role, h) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

var adminMiddleware = roleMiddleware(user.RoleAdmin, user.CoursesHierarchy)
