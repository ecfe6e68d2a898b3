package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/analytics"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var contextObjectKey = "object"

type adminApi struct {
	userSvc      user.Service
	courseSvc    course.Service
	analyticsSvc analytics.Service
	validate     *validator.Validate
}

func registerAdminAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := adminApi{
		userSvc:      deps.UserSvc,
		courseSvc:    deps.CourseSvc,
		analyticsSvc: deps.AnalyticsSvc,
		validate:     deps.Validate,
	}

	ag := g.Group("/admin", jwt, staffMiddleware(api.userSvc, user.RoleEditor))
	registerAdminCourseAPI(ag, api)

	// admin+ endpoints
	adm := staffMiddleware(api.userSvc, user.RoleAdmin)
	ag.GET("/analytics", api.dashboard, adm)
	ag.GET("/roles", api.queryRoles, adm)

	ug := ag.Group("/users", adm)
	ug.GET("", api.queryUsers)

	dg := ug.Group("/:id", userObjectMiddleware(api.userSvc))
	dg.GET("", api.retrieveUser)
	dg.PUT("", api.updateUser)
	dg.DELETE("", api.destroyUser)
	dg.POST("/roles", api.grantRole)
	dg.DELETE("/roles/:role", api.revokeRole)
}

func userObjectMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding user by ID")
			}
			ctx.Set(contextObjectKey, usr)
			return next(ctx)
		}
	}
}

func getContextObject(ctx echo.Context) user.User {
	usr, _ := ctx.Get(contextObjectKey).(user.User)
	return usr
}

// Handlers

func (api *adminApi) dashboard(ctx echo.Context) error {
	r, err := analytics.ParseDateRange(ctx.QueryParam("range"))
	if err != nil {
		return err
	}
	dash, err := api.analyticsSvc.Dashboard(ctx.Request().Context(), r)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	dash.SignupTrend = nonNil(dash.SignupTrend)
	dash.EnrollmentsPerCourse = nonNil(dash.EnrollmentsPerCourse)
	dash.TopRecordings = nonNil(dash.TopRecordings)
	dash.TopResources = nonNil(dash.TopResources)
	return ctx.JSON(http.StatusOK, dash)
}

func (api *adminApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *adminApi) queryUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []UserWithEnrollments{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.userSvc.Query(ctx.Request().Context(), *filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}

	ids := make([]string, len(users))
	for i, usr := range users {
		ids[i] = usr.ID
	}
	enrollments, err := api.courseSvc.EnrollmentsByUser(ctx.Request().Context(), ids...)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}

	resp := make([]UserWithEnrollments, len(users))
	for i, usr := range users {
		resp[i] = UserWithEnrollments{User: usr, Enrollments: nonNil(enrollments[usr.ID])}
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *adminApi) retrieveUser(ctx echo.Context) error {
	usr := getContextObject(ctx)
	enrollments, err := api.courseSvc.EnrollmentsByUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, UserWithEnrollments{User: usr, Enrollments: nonNil(enrollments[usr.ID])})
}

// canManageUser: actors only manage users whose highest role is below theirs, super admins manage everyone.
func canManageUser(actor, usr user.User) bool {
	if actor.IsSuperAdmin() {
		return true
	}
	return user.MaxRolePriority(usr.Roles) < user.MaxRolePriority(actor.Roles)
}

func (api *adminApi) updateUser(ctx echo.Context) error {
	usr := getContextObject(ctx)
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if usr.ID != ctxUsr.ID && !canManageUser(ctxUsr, usr) {
		return errHttpForbidden
	}

	var data user.UpdateUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	// nobody deactivates themselves
	if usr.ID == ctxUsr.ID && data.IsActive != nil && !*data.IsActive {
		return errHttpForbidden
	}
	if err := data.Validate(ctx.Request().Context(), usr, api.validate, api.userSvc); err != nil {
		return err
	}

	usr, err = api.userSvc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) destroyUser(ctx echo.Context) error {
	usr := getContextObject(ctx)

	// Say No to Suicide! ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	if usr.ID == ctxUsr.ID || !canManageUser(ctxUsr, usr) {
		return errHttpForbidden
	}

	if err := api.userSvc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) grantRole(ctx echo.Context) error {
	var data user.RoleChange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RoleChange")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	usr, err := api.userSvc.GrantRole(ctx.Request().Context(), ctxUsr, getContextObject(ctx).ID, data.Role)
	if err != nil {
		return errors.Wrap(err, "granting role")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) revokeRole(ctx echo.Context) error {
	data := user.RoleChange{Role: ctx.Param("role")}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}

	usr, err := api.userSvc.RevokeRole(ctx.Request().Context(), ctxUsr, getContextObject(ctx).ID, data.Role)
	if err != nil {
		return errors.Wrap(err, "revoking role")
	}
	return ctx.JSON(http.StatusOK, usr)
}
