package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

type courseApi struct {
	svc     course.Service
	userSvc user.Service
}

func registerCourseAPI(g *echo.Group, optionalJWT echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:     deps.CourseSvc,
		userSvc: deps.UserSvc,
	}

	cg := g.Group("/courses", optionalJWT)
	cg.GET("", api.query)

	// detail endpoints
	dg := cg.Group("/:slug", publicCourseMiddleware(api.svc, api.userSvc))
	dg.GET("", api.retrieve)
	dg.GET("/content", api.content)
	dg.GET("/schedule", api.schedule)
	dg.GET("/schedule.ics", api.scheduleCalendar)
	dg.GET("/enrollment", api.enrollment)
	dg.POST("/enrollment", api.enroll)

	// gated material
	eg := dg.Group("", enrolledMiddleware(api.svc, api.userSvc))
	eg.GET("/recordings", api.recordings)
	eg.POST("/recordings/:id/view", api.viewRecording)
	eg.GET("/resources", api.resources)
	eg.GET("/resources/:id/download", api.download)
}

// canAccess reports whether the requester may see the gated material, false for anonymous requests.
func (api *courseApi) canAccess(ctx echo.Context, c course.Course) (bool, error) {
	viewer, err := getViewer(ctx, api.userSvc)
	if err != nil || viewer == nil {
		return false, err
	}
	return api.svc.CanAccess(ctx.Request().Context(), c, viewer)
}

// present hides the access code from non-staff.
func present(ctx echo.Context, c course.Course) course.Course {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok && usr.IsStaff() {
		return c
	}
	return c.Public()
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	viewer, err := getViewer(ctx, api.userSvc)
	if err != nil {
		return err
	}
	courses, err := api.svc.List(ctx.Request().Context(), viewer)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	for i := range courses {
		courses[i] = present(ctx, courses[i])
	}
	return ctx.JSON(http.StatusOK, nonNil(courses))
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, present(ctx, getContextCourse(ctx)))
}

func (api *courseApi) content(ctx echo.Context) error {
	blocks, err := api.svc.ContentBlocks(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying content blocks")
	}
	return ctx.JSON(http.StatusOK, nonNil(blocks))
}

func (api *courseApi) schedule(ctx echo.Context) error {
	c := getContextCourse(ctx)
	withZoom, err := api.canAccess(ctx, c)
	if err != nil {
		return errors.Wrap(err, "checking course access")
	}
	zones := new(DisplayZones)
	zones.Bind(ctx)

	entries, err := api.svc.Schedule(ctx.Request().Context(), c, zones.Zones, nowFunc().UTC(), withZoom)
	if err != nil {
		return errors.Wrap(err, "building schedule")
	}
	return ctx.JSON(http.StatusOK, nonNil(entries))
}

func (api *courseApi) scheduleCalendar(ctx echo.Context) error {
	c := getContextCourse(ctx)
	withZoom, err := api.canAccess(ctx, c)
	if err != nil {
		return errors.Wrap(err, "checking course access")
	}

	cal, err := api.svc.ScheduleCalendar(ctx.Request().Context(), c, nowFunc().UTC(), withZoom)
	if err != nil {
		return errors.Wrap(err, "building calendar")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+c.Slug+`.ics"`)
	return ctx.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(cal))
}

func (api *courseApi) enrollment(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	enr, err := api.svc.GetEnrollment(ctx.Request().Context(), getContextCourse(ctx), usr)
	if err != nil {
		if errors.Cause(err) == course.ErrEnrollmentNotFound {
			return ctx.JSON(http.StatusOK, EnrollmentResponse{Enrolled: false})
		}
		return errors.Wrap(err, "finding enrollment")
	}
	return ctx.JSON(http.StatusOK, EnrollmentResponse{Enrolled: true, Enrollment: &enr})
}

func (api *courseApi) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	var data course.EnrollInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollInput")
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), getContextCourse(ctx), usr, data.AccessCode)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusOK, EnrollmentResponse{Enrolled: true, Enrollment: &enr})
}

func (api *courseApi) recordings(ctx echo.Context) error {
	recordings, err := api.svc.Recordings(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying recordings")
	}
	return ctx.JSON(http.StatusOK, nonNil(recordings))
}

func (api *courseApi) viewRecording(ctx echo.Context) error {
	rec, err := api.svc.ViewRecording(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "viewing recording")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *courseApi) resources(ctx echo.Context) error {
	resources, err := api.svc.Resources(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	return ctx.JSON(http.StatusOK, nonNil(resources))
}

func (api *courseApi) download(ctx echo.Context) error {
	url, err := api.svc.DownloadURL(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "signing download URL")
	}
	return ctx.JSON(http.StatusOK, DownloadResponse{URL: url})
}

type (
	EnrollmentResponse struct {
		Enrolled   bool               `json:"enrolled"`
		Enrollment *course.Enrollment `json:"enrollment,omitempty"`
	}

	DownloadResponse struct {
		URL string `json:"url"`
	}
)
