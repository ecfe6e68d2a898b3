package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var errFileRequired = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "this field is required"})

func registerAdminCourseAPI(ag *echo.Group, api adminApi) {
	cg := ag.Group("/courses")
	cg.GET("", api.queryCourses)
	cg.POST("", api.createCourse)

	dg := cg.Group("/:id", adminCourseMiddleware(api.courseSvc))
	dg.GET("", api.retrieveCourse)
	dg.PUT("", api.updateCourse)
	dg.DELETE("", api.destroyCourse, staffMiddleware(api.userSvc, user.RoleAdmin))

	dg.GET("/meetings", api.queryMeetings)
	dg.POST("/meetings", api.createMeeting)
	dg.PUT("/meetings/:mid", api.updateMeeting)
	dg.DELETE("/meetings/:mid", api.destroyMeeting)

	dg.GET("/content", api.queryContentBlocks)
	dg.POST("/content", api.createContentBlock)
	dg.PUT("/content/:bid", api.updateContentBlock)
	dg.DELETE("/content/:bid", api.destroyContentBlock)

	dg.GET("/recordings", api.queryRecordings)
	dg.POST("/recordings", api.createRecording)
	dg.PUT("/recordings/:rid", api.updateRecording)
	dg.DELETE("/recordings/:rid", api.destroyRecording)

	dg.GET("/resources", api.queryResources)
	dg.POST("/resources", api.uploadResource)
	dg.PUT("/resources/:rid", api.updateResource)
	dg.DELETE("/resources/:rid", api.destroyResource)
}

// Courses

func (api *adminApi) queryCourses(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	courses, err := api.courseSvc.List(ctx.Request().Context(), &ctxUsr)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	return ctx.JSON(http.StatusOK, nonNil(courses))
}

func (api *adminApi) createCourse(ctx echo.Context) error {
	var data course.CourseInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.courseSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *adminApi) retrieveCourse(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, getContextCourse(ctx))
}

func (api *adminApi) updateCourse(ctx echo.Context) error {
	var data course.CourseInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.courseSvc.Update(ctx.Request().Context(), getContextCourse(ctx), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *adminApi) destroyCourse(ctx echo.Context) error {
	if err := api.courseSvc.Delete(ctx.Request().Context(), getContextCourse(ctx).ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Meetings

func (api *adminApi) queryMeetings(ctx echo.Context) error {
	meetings, err := api.courseSvc.Meetings(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying meetings")
	}
	return ctx.JSON(http.StatusOK, nonNil(meetings))
}

func (api *adminApi) createMeeting(ctx echo.Context) error {
	var data course.MeetingInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MeetingInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.courseSvc.AddMeeting(ctx.Request().Context(), getContextCourse(ctx), data)
	if err != nil {
		return errors.Wrap(err, "adding meeting")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *adminApi) updateMeeting(ctx echo.Context) error {
	var data course.MeetingInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MeetingInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	m, err := api.courseSvc.UpdateMeeting(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("mid"), data)
	if err != nil {
		return errors.Wrap(err, "updating meeting")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *adminApi) destroyMeeting(ctx echo.Context) error {
	if err := api.courseSvc.DeleteMeeting(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("mid")); err != nil {
		return errors.Wrap(err, "deleting meeting")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Content blocks

func (api *adminApi) queryContentBlocks(ctx echo.Context) error {
	blocks, err := api.courseSvc.ContentBlocks(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying content blocks")
	}
	return ctx.JSON(http.StatusOK, nonNil(blocks))
}

func (api *adminApi) createContentBlock(ctx echo.Context) error {
	var data course.ContentBlockInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContentBlockInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.courseSvc.AddContentBlock(ctx.Request().Context(), getContextCourse(ctx), data)
	if err != nil {
		return errors.Wrap(err, "adding content block")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *adminApi) updateContentBlock(ctx echo.Context) error {
	var data course.ContentBlockInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ContentBlockInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	b, err := api.courseSvc.UpdateContentBlock(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("bid"), data)
	if err != nil {
		return errors.Wrap(err, "updating content block")
	}
	return ctx.JSON(http.StatusOK, b)
}

func (api *adminApi) destroyContentBlock(ctx echo.Context) error {
	if err := api.courseSvc.DeleteContentBlock(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("bid")); err != nil {
		return errors.Wrap(err, "deleting content block")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Recordings

func (api *adminApi) queryRecordings(ctx echo.Context) error {
	recordings, err := api.courseSvc.Recordings(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying recordings")
	}
	return ctx.JSON(http.StatusOK, nonNil(recordings))
}

func (api *adminApi) createRecording(ctx echo.Context) error {
	var data course.RecordingInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordingInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.courseSvc.AddRecording(ctx.Request().Context(), getContextCourse(ctx), data)
	if err != nil {
		return errors.Wrap(err, "adding recording")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *adminApi) updateRecording(ctx echo.Context) error {
	var data course.RecordingInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordingInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.courseSvc.UpdateRecording(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("rid"), data)
	if err != nil {
		return errors.Wrap(err, "updating recording")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *adminApi) destroyRecording(ctx echo.Context) error {
	if err := api.courseSvc.DeleteRecording(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("rid")); err != nil {
		return errors.Wrap(err, "deleting recording")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Resources

func (api *adminApi) queryResources(ctx echo.Context) error {
	resources, err := api.courseSvc.Resources(ctx.Request().Context(), getContextCourse(ctx))
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	return ctx.JSON(http.StatusOK, nonNil(resources))
}

// uploadResource takes a multipart form: a "file" part plus the ResourceInput fields.
func (api *adminApi) uploadResource(ctx echo.Context) error {
	var data course.ResourceInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResourceInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return errFileRequired
	}
	if fh.Size > core.MaxUploadSize {
		return core.NewValidationError(core.ErrFileTooLarge, core.FieldError{Field: "file", Error: core.ErrFileTooLarge.Error()})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	res, err := api.courseSvc.UploadResource(ctx.Request().Context(), getContextCourse(ctx), data, fh.Filename, file)
	if err != nil {
		return errors.Wrap(err, "uploading resource")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *adminApi) updateResource(ctx echo.Context) error {
	var data course.ResourceInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResourceInput")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.courseSvc.UpdateResource(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("rid"), data)
	if err != nil {
		return errors.Wrap(err, "updating resource")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *adminApi) destroyResource(ctx echo.Context) error {
	if err := api.courseSvc.DeleteResource(ctx.Request().Context(), getContextCourse(ctx), ctx.Param("rid")); err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	return ctx.NoContent(http.StatusNoContent)
}
