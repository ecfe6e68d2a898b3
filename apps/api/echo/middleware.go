package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var contextCourseKey = "course"

// staffMiddleware lets through active users holding minRole or above.
func staffMiddleware(svc user.Service, minRole string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			if user.MaxRolePriority(usr.Roles) >= user.RolePriority(minRole) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// publicCourseMiddleware loads the course named by the :slug param.
// Unpublished courses are only visible to staff.
func publicCourseMiddleware(courseSvc course.Service, userSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			viewer, err := getViewer(ctx, userSvc)
			if err != nil {
				return err
			}
			c, err := courseSvc.GetBySlug(ctx.Request().Context(), ctx.Param("slug"), viewer)
			if err != nil {
				return errors.Wrap(err, "finding course by slug")
			}
			ctx.Set(contextCourseKey, c)
			return next(ctx)
		}
	}
}

// adminCourseMiddleware loads the course named by the :id param, published or not.
func adminCourseMiddleware(courseSvc course.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := courseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding course by ID")
			}
			ctx.Set(contextCourseKey, c)
			return next(ctx)
		}
	}
}

// enrolledMiddleware gates course material: staff and enrolled users only.
// It must run after publicCourseMiddleware and the JWT middleware.
func enrolledMiddleware(courseSvc course.Service, userSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, userSvc)
			if err != nil {
				return err
			}
			ok, err := courseSvc.CanAccess(ctx.Request().Context(), getContextCourse(ctx), &usr)
			if err != nil {
				return errors.Wrap(err, "checking course access")
			}
			if !ok {
				return errNotEnrolled
			}
			return next(ctx)
		}
	}
}

func getContextCourse(ctx echo.Context) course.Course {
	c, _ := ctx.Get(contextCourseKey).(course.Course)
	return c
}
