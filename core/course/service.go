package course

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
)

var (
	ErrNotFound             = errors.New("course not found")
	ErrSlugExists           = errors.New("a course with this slug already exists")
	ErrMeetingNotFound      = errors.New("meeting not found")
	ErrContentBlockNotFound = errors.New("content block not found")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrRecordingNotFound    = errors.New("recording not found")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrInvalidAccessCode    = errors.New("invalid access code")
	ErrNotEnrolled          = errors.New("enrollment required")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckSlugUniqueness(ctx context.Context, slug string, excludedIDs ...string) error
		CreateCourse(ctx context.Context, c Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseBySlug(ctx context.Context, slug string) (Course, error)
		QueryCourses(ctx context.Context, publishedOnly bool) ([]Course, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		QueryMeetings(ctx context.Context, courseID string) ([]Meeting, error)
		GetMeeting(ctx context.Context, courseID, id string) (Meeting, error)
		CreateMeeting(ctx context.Context, m Meeting) (Meeting, error)
		UpdateMeeting(ctx context.Context, m Meeting) (Meeting, error)
		DeleteMeeting(ctx context.Context, courseID, id string) error

		QueryContentBlocks(ctx context.Context, courseID string) ([]ContentBlock, error)
		GetContentBlock(ctx context.Context, courseID, id string) (ContentBlock, error)
		CreateContentBlock(ctx context.Context, b ContentBlock) (ContentBlock, error)
		UpdateContentBlock(ctx context.Context, b ContentBlock) (ContentBlock, error)
		DeleteContentBlock(ctx context.Context, courseID, id string) error

		QueryResources(ctx context.Context, courseID string) ([]Resource, error)
		GetResource(ctx context.Context, courseID, id string) (Resource, error)
		CreateResource(ctx context.Context, r Resource) (Resource, error)
		UpdateResource(ctx context.Context, r Resource) (Resource, error)
		DeleteResource(ctx context.Context, courseID, id string) error

		QueryRecordings(ctx context.Context, courseID string) ([]Recording, error)
		GetRecording(ctx context.Context, courseID, id string) (Recording, error)
		CreateRecording(ctx context.Context, r Recording) (Recording, error)
		UpdateRecording(ctx context.Context, r Recording) (Recording, error)
		DeleteRecording(ctx context.Context, courseID, id string) error

		GetEnrollment(ctx context.Context, courseID, userID string) (Enrollment, error)
		// CreateEnrollment returns the existing enrollment when the user is already enrolled.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, bool, error)
		QueryEnrollments(ctx context.Context, userIDs ...string) ([]Enrollment, error)
	}

	// Tracker counts views and downloads. Tracking never fails the caller.
	Tracker interface {
		TrackRecordingView(courseID, recordingID string)
		TrackResourceDownload(courseID, resourceID string)
	}

	Service interface {
		Create(ctx context.Context, in CourseInput) (Course, error)
		Update(ctx context.Context, c Course, in CourseInput) (Course, error)
		Delete(ctx context.Context, id string) error
		GetByID(ctx context.Context, id string) (Course, error)
		// GetBySlug hides unpublished courses from non-staff viewers.
		GetBySlug(ctx context.Context, slug string, viewer *user.User) (Course, error)
		List(ctx context.Context, viewer *user.User) ([]Course, error)

		// CanAccess reports whether viewer may see the gated material: staff or enrolled.
		CanAccess(ctx context.Context, c Course, viewer *user.User) (bool, error)
		Enroll(ctx context.Context, c Course, usr user.User, accessCode string) (Enrollment, error)
		GetEnrollment(ctx context.Context, c Course, usr user.User) (Enrollment, error)
		EnrollmentsByUser(ctx context.Context, userIDs ...string) (map[string][]Enrollment, error)

		Meetings(ctx context.Context, c Course) ([]Meeting, error)
		AddMeeting(ctx context.Context, c Course, in MeetingInput) (Meeting, error)
		UpdateMeeting(ctx context.Context, c Course, id string, in MeetingInput) (Meeting, error)
		DeleteMeeting(ctx context.Context, c Course, id string) error
		Schedule(ctx context.Context, c Course, zones []schedule.DisplayZone, now time.Time, withZoom bool) ([]ScheduleEntry, error)
		ScheduleCalendar(ctx context.Context, c Course, now time.Time, withZoom bool) (string, error)

		ContentBlocks(ctx context.Context, c Course) ([]ContentBlock, error)
		AddContentBlock(ctx context.Context, c Course, in ContentBlockInput) (ContentBlock, error)
		UpdateContentBlock(ctx context.Context, c Course, id string, in ContentBlockInput) (ContentBlock, error)
		DeleteContentBlock(ctx context.Context, c Course, id string) error

		Recordings(ctx context.Context, c Course) ([]Recording, error)
		AddRecording(ctx context.Context, c Course, in RecordingInput) (Recording, error)
		UpdateRecording(ctx context.Context, c Course, id string, in RecordingInput) (Recording, error)
		DeleteRecording(ctx context.Context, c Course, id string) error
		ViewRecording(ctx context.Context, c Course, id string) (Recording, error)

		Resources(ctx context.Context, c Course) ([]Resource, error)
		UploadResource(ctx context.Context, c Course, in ResourceInput, filename string, r io.Reader) (Resource, error)
		UpdateResource(ctx context.Context, c Course, id string, in ResourceInput) (Resource, error)
		DeleteResource(ctx context.Context, c Course, id string) error
		// DownloadURL counts the download and returns a short-lived URL to the file.
		DownloadURL(ctx context.Context, c Course, id string) (string, error)
	}

	service struct {
		repo      Repository
		formatter *schedule.Formatter
		zones     []schedule.DisplayZone
		files     core.FileStore
		tracker   Tracker
		mailSvc   core.EmailService
		logger    core.Logger
		conf      *core.Config
		goFunc    func(func()) // runs side effects
	}
)

var _ Service = (*service)(nil)

// Deps groups the collaborators of the course Service.
type Deps struct {
	Repo         Repository
	Formatter    *schedule.Formatter
	DisplayZones []schedule.DisplayZone
	Files        core.FileStore
	Tracker      Tracker
	MailSvc      core.EmailService
	Logger       core.Logger
	Conf         *core.Config
}

func NewService(deps Deps) Service {
	formatter := deps.Formatter
	if formatter == nil {
		formatter = schedule.NewFormatter(nil)
	}
	zones := deps.DisplayZones
	if len(zones) == 0 {
		zones = schedule.DefaultDisplayZones()
	}
	return &service{
		repo:      deps.Repo,
		formatter: formatter,
		zones:     zones,
		files:     deps.Files,
		tracker:   deps.Tracker,
		mailSvc:   deps.MailSvc,
		logger:    deps.Logger,
		conf:      deps.Conf,
		goFunc:    func(f func()) { go f() },
	}
}

func now() time.Time {
	return nowFunc().UTC().Truncate(time.Microsecond)
}

func (svc *service) checkSlug(ctx context.Context, slug string, excludedIDs ...string) error {
	if err := svc.repo.CheckSlugUniqueness(ctx, slug, excludedIDs...); err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return core.NewValidationError(err, core.FieldError{Field: "slug", Error: err.Error()})
		}
		return errors.Wrap(err, "checking slug uniqueness")
	}
	return nil
}

func (svc *service) Create(ctx context.Context, in CourseInput) (Course, error) {
	if err := svc.checkSlug(ctx, in.Slug); err != nil {
		return Course{}, err
	}
	createdAt := now()
	c := Course{
		Slug:            in.Slug,
		Title:           in.Title,
		Description:     in.Description,
		HeroImageURL:    in.HeroImageURL,
		CourseStartDate: in.startDate(),
		IsPublished:     in.IsPublished,
		AccessCode:      in.AccessCode,
		DefaultDir:      in.DefaultDir,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	c, err := svc.repo.CreateCourse(ctx, c)
	return c, errors.Wrap(err, "creating course")
}

func (svc *service) Update(ctx context.Context, c Course, in CourseInput) (Course, error) {
	if err := svc.checkSlug(ctx, in.Slug, c.ID); err != nil {
		return Course{}, err
	}
	c.Slug = in.Slug
	c.Title = in.Title
	c.Description = in.Description
	c.HeroImageURL = in.HeroImageURL
	c.CourseStartDate = in.startDate()
	c.IsPublished = in.IsPublished
	c.AccessCode = in.AccessCode
	c.DefaultDir = in.DefaultDir
	c.UpdatedAt = now()
	c, err := svc.repo.UpdateCourse(ctx, c)
	return c, errors.Wrap(err, "updating course")
}

func (svc *service) Delete(ctx context.Context, id string) error {
	c, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	resources, err := svc.repo.QueryResources(ctx, c.ID)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if err := svc.repo.DeleteCourse(ctx, c.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	for _, res := range resources {
		svc.deleteFile(res.StoragePath)
	}
	return nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) GetBySlug(ctx context.Context, slug string, viewer *user.User) (Course, error) {
	c, err := svc.repo.GetCourseBySlug(ctx, core.CleanString(slug, true /* lower */))
	if err != nil {
		return Course{}, err
	}
	if !c.IsPublished && (viewer == nil || !viewer.IsStaff()) {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (svc *service) List(ctx context.Context, viewer *user.User) ([]Course, error) {
	publishedOnly := viewer == nil || !viewer.IsStaff()
	return svc.repo.QueryCourses(ctx, publishedOnly)
}

func (svc *service) CanAccess(ctx context.Context, c Course, viewer *user.User) (bool, error) {
	if viewer == nil {
		return false, nil
	}
	if viewer.IsStaff() {
		return true, nil
	}
	if _, err := svc.repo.GetEnrollment(ctx, c.ID, viewer.ID); err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "finding enrollment")
	}
	return true, nil
}

// accessCodeMatches compares trimmed codes, ignoring case. An empty course code accepts anything.
func accessCodeMatches(expected, given string) bool {
	expected = core.CleanString(expected)
	if expected == "" {
		return true
	}
	return strings.EqualFold(expected, core.CleanString(given))
}

func (svc *service) Enroll(ctx context.Context, c Course, usr user.User, accessCode string) (Enrollment, error) {
	if !c.IsPublished {
		return Enrollment{}, ErrNotFound
	}
	if !accessCodeMatches(c.AccessCode, accessCode) {
		return Enrollment{}, core.NewValidationError(
			ErrInvalidAccessCode, core.FieldError{Field: "access_code", Error: ErrInvalidAccessCode.Error()})
	}

	enr, created, err := svc.repo.CreateEnrollment(ctx, Enrollment{UserID: usr.ID, CourseID: c.ID, EnrolledAt: now()})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	if created {
		svc.goFunc(func() { svc.sendEnrollmentConfirmation(usr, c) })
	}
	return enr, nil
}

func (svc *service) sendEnrollmentConfirmation(usr user.User, c Course) {
	if svc.mailSvc == nil {
		return
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("You are enrolled in %s", c.Title),
		TemplateName: "enrollment_confirmation",
		TemplateData: map[string]interface{}{
			"Name":        usr.Name,
			"CourseTitle": c.Title,
			"CourseSlug":  c.Slug,
		},
	}
	if err := svc.attachCalendar(msg, c); err != nil {
		svc.logger.Warn(fmt.Sprintf("attaching %s schedule: %v", c.Slug, err), err)
	}
	svc.mailSvc.SendMessages(msg)
}

// attachCalendar attaches the course's weekly meetings, Zoom details included, as an .ics file.
func (svc *service) attachCalendar(msg *core.EmailMessage, c Course) error {
	ctx := context.Background()
	meetings, err := svc.repo.QueryMeetings(ctx, c.ID)
	if err != nil {
		return errors.Wrap(err, "querying meetings")
	}
	if len(meetings) == 0 {
		return nil
	}
	cal, err := svc.ScheduleCalendar(ctx, c, now(), true /* withZoom */)
	if err != nil {
		return err
	}
	return msg.Attach(strings.NewReader(cal), c.Slug+".ics", "text/calendar; charset=utf-8; method=PUBLISH")
}

func (svc *service) GetEnrollment(ctx context.Context, c Course, usr user.User) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, c.ID, usr.ID)
}

func (svc *service) EnrollmentsByUser(ctx context.Context, userIDs ...string) (map[string][]Enrollment, error) {
	byUser := make(map[string][]Enrollment, len(userIDs))
	if len(userIDs) == 0 {
		return byUser, nil
	}
	enrollments, err := svc.repo.QueryEnrollments(ctx, userIDs...)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	for _, e := range enrollments {
		byUser[e.UserID] = append(byUser[e.UserID], e)
	}
	return byUser, nil
}

// Meetings

func (svc *service) Meetings(ctx context.Context, c Course) ([]Meeting, error) {
	return svc.repo.QueryMeetings(ctx, c.ID)
}

func (svc *service) AddMeeting(ctx context.Context, c Course, in MeetingInput) (Meeting, error) {
	m := Meeting{CourseID: c.ID}
	if err := applyMeetingInput(&m, in); err != nil {
		return Meeting{}, err
	}
	m, err := svc.repo.CreateMeeting(ctx, m)
	return m, errors.Wrap(err, "creating meeting")
}

func (svc *service) UpdateMeeting(ctx context.Context, c Course, id string, in MeetingInput) (Meeting, error) {
	m, err := svc.repo.GetMeeting(ctx, c.ID, id)
	if err != nil {
		return Meeting{}, err
	}
	if err := applyMeetingInput(&m, in); err != nil {
		return Meeting{}, err
	}
	m, err = svc.repo.UpdateMeeting(ctx, m)
	return m, errors.Wrap(err, "updating meeting")
}

func applyMeetingInput(m *Meeting, in MeetingInput) error {
	wd, err := schedule.ParseWeekday(in.Weekday)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "weekday", Error: err.Error()})
	}
	wt, err := schedule.ParseWallTime(in.StartTimeLocal)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "start_time_local", Error: err.Error()})
	}
	m.Weekday = wd
	m.Label = core.CleanString(in.Label)
	m.StartTimeLocal = wt.String()
	m.DurationMinutes = in.DurationMinutes
	m.Timezone = in.Timezone
	m.ZoomJoinURL = core.CleanString(in.ZoomJoinURL)
	m.ZoomMeetingID = core.CleanString(in.ZoomMeetingID)
	m.ZoomPasscode = core.CleanString(in.ZoomPasscode)
	m.Note = in.Note
	m.SortOrder = in.SortOrder
	return nil
}

func (svc *service) DeleteMeeting(ctx context.Context, c Course, id string) error {
	return svc.repo.DeleteMeeting(ctx, c.ID, id)
}

func (svc *service) Schedule(ctx context.Context, c Course, zones []schedule.DisplayZone, now time.Time, withZoom bool) ([]ScheduleEntry, error) {
	meetings, err := svc.repo.QueryMeetings(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}
	if len(zones) == 0 {
		zones = svc.zones
	}

	entries := make([]ScheduleEntry, 0, len(meetings))
	for _, m := range meetings {
		rec := m.Recurring()
		row := svc.formatter.Row(rec, zones, now)

		entry := ScheduleEntry{Meeting: m, Times: make([]ZoneTime, 0, len(row))}
		if !withZoom {
			entry.Meeting = m.Public()
		}
		for _, zt := range row {
			if zt.Err != nil {
				svc.logger.Warn(fmt.Sprintf("meeting %s in %s: %v", m.ID, zt.Zone.Timezone, zt.Err), zt.Err)
			}
			entry.Times = append(entry.Times, ZoneTime{Label: zt.Zone.Label, Timezone: zt.Zone.Timezone, Time: zt.Display()})
		}
		if next, err := svc.formatter.NextOccurrence(rec, now); err == nil {
			entry.Next = &next
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (svc *service) ScheduleCalendar(ctx context.Context, c Course, now time.Time, withZoom bool) (string, error) {
	meetings, err := svc.repo.QueryMeetings(ctx, c.ID)
	if err != nil {
		return "", errors.Wrap(err, "querying meetings")
	}

	courseURL := fmt.Sprintf("%s/courses/%s", strings.TrimRight(svc.conf.FrontendBaseURL, "/"), c.Slug)
	events := make([]schedule.CalendarEvent, 0, len(meetings))
	for _, m := range meetings {
		summary := c.Title
		if m.Label != "" {
			summary = fmt.Sprintf("%s: %s", c.Title, m.Label)
		}
		desc := m.Note
		if withZoom && m.ZoomJoinURL != "" {
			desc = strings.TrimSpace(fmt.Sprintf("%s\n\nZoom: %s", desc, m.ZoomJoinURL))
		}
		events = append(events, schedule.CalendarEvent{
			UID:         m.ID + "@darasa",
			Summary:     summary,
			Description: desc,
			URL:         courseURL,
			Meeting:     m.Recurring(),
			Duration:    m.Duration(),
		})
	}
	return svc.formatter.Calendar(c.Title, events, now)
}

// Content blocks

func (svc *service) ContentBlocks(ctx context.Context, c Course) ([]ContentBlock, error) {
	return svc.repo.QueryContentBlocks(ctx, c.ID)
}

func (svc *service) AddContentBlock(ctx context.Context, c Course, in ContentBlockInput) (ContentBlock, error) {
	b := ContentBlock{CourseID: c.ID}
	applyContentBlockInput(&b, in)
	b, err := svc.repo.CreateContentBlock(ctx, b)
	return b, errors.Wrap(err, "creating content block")
}

func (svc *service) UpdateContentBlock(ctx context.Context, c Course, id string, in ContentBlockInput) (ContentBlock, error) {
	b, err := svc.repo.GetContentBlock(ctx, c.ID, id)
	if err != nil {
		return ContentBlock{}, err
	}
	applyContentBlockInput(&b, in)
	b, err = svc.repo.UpdateContentBlock(ctx, b)
	return b, errors.Wrap(err, "updating content block")
}

func applyContentBlockInput(b *ContentBlock, in ContentBlockInput) {
	b.Section = in.Section
	b.Title = in.Title
	b.Body = in.Body
	b.Dir = in.Dir
	b.SortOrder = in.SortOrder
}

func (svc *service) DeleteContentBlock(ctx context.Context, c Course, id string) error {
	return svc.repo.DeleteContentBlock(ctx, c.ID, id)
}

// Recordings

func (svc *service) Recordings(ctx context.Context, c Course) ([]Recording, error) {
	return svc.repo.QueryRecordings(ctx, c.ID)
}

func (svc *service) AddRecording(ctx context.Context, c Course, in RecordingInput) (Recording, error) {
	r := Recording{CourseID: c.ID}
	applyRecordingInput(&r, in)
	r, err := svc.repo.CreateRecording(ctx, r)
	return r, errors.Wrap(err, "creating recording")
}

func (svc *service) UpdateRecording(ctx context.Context, c Course, id string, in RecordingInput) (Recording, error) {
	r, err := svc.repo.GetRecording(ctx, c.ID, id)
	if err != nil {
		return Recording{}, err
	}
	applyRecordingInput(&r, in)
	r, err = svc.repo.UpdateRecording(ctx, r)
	return r, errors.Wrap(err, "updating recording")
}

func applyRecordingInput(r *Recording, in RecordingInput) {
	r.WeekNumber = in.WeekNumber
	r.SessionType = in.SessionType
	r.Title = in.Title
	r.EmbedType = in.EmbedType
	r.EmbedURL = in.EmbedURL
	r.SortOrder = in.SortOrder
}

func (svc *service) DeleteRecording(ctx context.Context, c Course, id string) error {
	return svc.repo.DeleteRecording(ctx, c.ID, id)
}

func (svc *service) ViewRecording(ctx context.Context, c Course, id string) (Recording, error) {
	r, err := svc.repo.GetRecording(ctx, c.ID, id)
	if err != nil {
		return Recording{}, err
	}
	if svc.tracker != nil {
		svc.tracker.TrackRecordingView(c.ID, r.ID)
	}
	return r, nil
}

// Resources

func (svc *service) Resources(ctx context.Context, c Course) ([]Resource, error) {
	return svc.repo.QueryResources(ctx, c.ID)
}

func resourceType(mimeType string) string {
	if strings.HasPrefix(mimeType, "image/") {
		return ResourcePhoto
	}
	return ResourcePDF
}

func (svc *service) UploadResource(ctx context.Context, c Course, in ResourceInput, filename string, r io.Reader) (Resource, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	storagePath := path.Join("courses", c.ID, uuid.New().String()+ext)

	stored, err := svc.files.Put(ctx, storagePath, r)
	if err != nil {
		switch errors.Cause(err) {
		case core.ErrFileTooLarge, core.ErrUnsupportedFileType:
			return Resource{}, core.NewValidationError(err, core.FieldError{Field: "file", Error: errors.Cause(err).Error()})
		}
		return Resource{}, errors.Wrap(err, "storing file")
	}

	title := in.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	res := Resource{
		CourseID:    c.ID,
		Type:        resourceType(stored.MimeType),
		Title:       title,
		Description: in.Description,
		StoragePath: stored.Path,
		MimeType:    stored.MimeType,
		FileSize:    stored.Size,
		SortOrder:   in.SortOrder,
		CreatedAt:   now(),
	}
	res, err = svc.repo.CreateResource(ctx, res)
	if err != nil {
		svc.deleteFile(stored.Path)
		return Resource{}, errors.Wrap(err, "creating resource")
	}
	return res, nil
}

func (svc *service) UpdateResource(ctx context.Context, c Course, id string, in ResourceInput) (Resource, error) {
	res, err := svc.repo.GetResource(ctx, c.ID, id)
	if err != nil {
		return Resource{}, err
	}
	if in.Title != "" {
		res.Title = in.Title
	}
	res.Description = in.Description
	res.SortOrder = in.SortOrder
	res, err = svc.repo.UpdateResource(ctx, res)
	return res, errors.Wrap(err, "updating resource")
}

func (svc *service) DeleteResource(ctx context.Context, c Course, id string) error {
	res, err := svc.repo.GetResource(ctx, c.ID, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteResource(ctx, c.ID, res.ID); err != nil {
		return errors.Wrap(err, "deleting resource")
	}
	svc.deleteFile(res.StoragePath)
	return nil
}

func (svc *service) deleteFile(storagePath string) {
	if svc.files == nil || storagePath == "" {
		return
	}
	svc.goFunc(func() {
		if err := svc.files.Delete(context.Background(), storagePath); err != nil {
			svc.logger.Warn(fmt.Sprintf("deleting file %s: %v", storagePath, err), err)
		}
	})
}

func (svc *service) DownloadURL(ctx context.Context, c Course, id string) (string, error) {
	res, err := svc.repo.GetResource(ctx, c.ID, id)
	if err != nil {
		return "", err
	}
	url, err := svc.files.SignedURL(ctx, res.StoragePath, svc.conf.Storage.SignedURLTTL)
	if err != nil {
		return "", errors.Wrap(err, "signing download URL")
	}
	if svc.tracker != nil {
		svc.tracker.TrackResourceDownload(c.ID, res.ID)
	}
	return url, nil
}
