package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/schedule"
)

const (
	courseColumns       = "id, slug, title, description, hero_image_url, course_start_date, is_published, access_code, default_dir, created_at, updated_at"
	meetingColumns      = "id, course_id, weekday, label, start_time_local, duration_minutes, timezone, zoom_join_url, zoom_meeting_id, zoom_passcode, note, sort_order"
	contentBlockColumns = "id, course_id, section, title, body, dir, sort_order"
	resourceColumns     = "id, course_id, type, title, description, storage_path, mime_type, file_size, sort_order, created_at"
	recordingColumns    = "id, course_id, week_number, session_type, title, embed_type, embed_url, sort_order"
	enrollmentColumns   = "id, user_id, course_id, enrolled_at"
)

type (
	courseRow struct {
		ID              string       `db:"id"`
		Slug            string       `db:"slug"`
		Title           string       `db:"title"`
		Description     string       `db:"description"`
		HeroImageURL    string       `db:"hero_image_url"`
		CourseStartDate sql.NullTime `db:"course_start_date"`
		IsPublished     bool         `db:"is_published"`
		AccessCode      string       `db:"access_code"`
		DefaultDir      string       `db:"default_dir"`
		CreatedAt       time.Time    `db:"created_at"`
		UpdatedAt       time.Time    `db:"updated_at"`
	}

	meetingRow struct {
		ID              string `db:"id"`
		CourseID        string `db:"course_id"`
		Weekday         string `db:"weekday"`
		Label           string `db:"label"`
		StartTimeLocal  string `db:"start_time_local"`
		DurationMinutes int    `db:"duration_minutes"`
		Timezone        string `db:"timezone"`
		ZoomJoinURL     string `db:"zoom_join_url"`
		ZoomMeetingID   string `db:"zoom_meeting_id"`
		ZoomPasscode    string `db:"zoom_passcode"`
		Note            string `db:"note"`
		SortOrder       int    `db:"sort_order"`
	}

	contentBlockRow struct {
		ID        string `db:"id"`
		CourseID  string `db:"course_id"`
		Section   string `db:"section"`
		Title     string `db:"title"`
		Body      string `db:"body"`
		Dir       string `db:"dir"`
		SortOrder int    `db:"sort_order"`
	}

	resourceRow struct {
		ID          string    `db:"id"`
		CourseID    string    `db:"course_id"`
		Type        string    `db:"type"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		StoragePath string    `db:"storage_path"`
		MimeType    string    `db:"mime_type"`
		FileSize    int64     `db:"file_size"`
		SortOrder   int       `db:"sort_order"`
		CreatedAt   time.Time `db:"created_at"`
	}

	recordingRow struct {
		ID          string `db:"id"`
		CourseID    string `db:"course_id"`
		WeekNumber  int    `db:"week_number"`
		SessionType string `db:"session_type"`
		Title       string `db:"title"`
		EmbedType   string `db:"embed_type"`
		EmbedURL    string `db:"embed_url"`
		SortOrder   int    `db:"sort_order"`
	}

	enrollmentRow struct {
		ID         string    `db:"id"`
		UserID     string    `db:"user_id"`
		CourseID   string    `db:"course_id"`
		EnrolledAt time.Time `db:"enrolled_at"`
	}

	courseRepository struct {
		db core.DB
	}
)

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DB) course.Repository {
	return &courseRepository{db: db}
}

func (row courseRow) course() course.Course {
	c := course.Course{
		ID:           row.ID,
		Slug:         row.Slug,
		Title:        row.Title,
		Description:  row.Description,
		HeroImageURL: row.HeroImageURL,
		IsPublished:  row.IsPublished,
		AccessCode:   row.AccessCode,
		DefaultDir:   row.DefaultDir,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.CourseStartDate.Valid {
		y, m, d := row.CourseStartDate.Time.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		c.CourseStartDate = &start
	}
	return c
}

func startDateArg(c course.Course) sql.NullString {
	if c.CourseStartDate == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: c.CourseStartDate.Format(course.DateLayout), Valid: true}
}

func (row meetingRow) meeting() (course.Meeting, error) {
	wd, err := schedule.ParseWeekday(row.Weekday)
	if err != nil {
		return course.Meeting{}, err
	}
	return course.Meeting{
		ID:              row.ID,
		CourseID:        row.CourseID,
		Weekday:         wd,
		Label:           row.Label,
		StartTimeLocal:  row.StartTimeLocal,
		DurationMinutes: row.DurationMinutes,
		Timezone:        row.Timezone,
		ZoomJoinURL:     row.ZoomJoinURL,
		ZoomMeetingID:   row.ZoomMeetingID,
		ZoomPasscode:    row.ZoomPasscode,
		Note:            row.Note,
		SortOrder:       row.SortOrder,
	}, nil
}

func (row contentBlockRow) contentBlock() course.ContentBlock {
	return course.ContentBlock(row)
}

func (row resourceRow) resource() course.Resource {
	res := course.Resource(row)
	res.CreatedAt = row.CreatedAt.UTC()
	return res
}

func (row recordingRow) recording() course.Recording {
	return course.Recording(row)
}

func (row enrollmentRow) enrollment() course.Enrollment {
	return course.Enrollment{ID: row.ID, UserID: row.UserID, CourseID: row.CourseID, EnrolledAt: row.EnrolledAt.UTC()}
}

// Courses

func (repo *courseRepository) CheckSlugUniqueness(ctx context.Context, slug string, excludedIDs ...string) error {
	query := "SELECT COUNT(*) FROM courses WHERE slug = ?"
	args := []interface{}{slug}
	if len(excludedIDs) > 0 {
		query += " AND id NOT IN (?)"
		args = append(args, excludedIDs)
	}

	var counts []int
	if err := selectIn(ctx, repo.db, &counts, query, args...); err != nil {
		return errors.Wrap(err, "checking slug uniqueness")
	}
	if len(counts) > 0 && counts[0] > 0 {
		return course.ErrSlugExists
	}
	return nil
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.New().String()
	_, err := exec(ctx, repo.db,
		"INSERT INTO courses ("+courseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.Slug, c.Title, c.Description, c.HeroImageURL, startDateArg(c), c.IsPublished, c.AccessCode,
		c.DefaultDir, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) getCourse(ctx context.Context, where string, arg interface{}) (course.Course, error) {
	var row courseRow
	if err := get(ctx, repo.db, &row, course.ErrNotFound, "SELECT "+courseColumns+" FROM courses WHERE "+where, arg); err != nil {
		if err == course.ErrNotFound {
			return course.Course{}, err
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return row.course(), nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return repo.getCourse(ctx, "id = ?", id)
}

func (repo *courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	return repo.getCourse(ctx, "slug = ?", slug)
}

func (repo *courseRepository) QueryCourses(ctx context.Context, publishedOnly bool) ([]course.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses"
	var args []interface{}
	if publishedOnly {
		query += " WHERE is_published = ?"
		args = append(args, true)
	}
	query += " ORDER BY created_at DESC"

	var rows []courseRow
	if err := selectAll(ctx, repo.db, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := execOne(ctx, repo.db, course.ErrNotFound,
		"UPDATE courses SET slug = ?, title = ?, description = ?, hero_image_url = ?, course_start_date = ?, "+
			"is_published = ?, access_code = ?, default_dir = ?, updated_at = ? WHERE id = ?",
		c.Slug, c.Title, c.Description, c.HeroImageURL, startDateArg(c), c.IsPublished, c.AccessCode,
		c.DefaultDir, c.UpdatedAt.UTC(), c.ID)
	if err != nil {
		if err == course.ErrNotFound {
			return course.Course{}, err
		}
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string) error {
	err := execOne(ctx, repo.db, course.ErrNotFound, "DELETE FROM courses WHERE id = ?", id)
	if err != nil && err != course.ErrNotFound {
		return errors.Wrap(err, "deleting course")
	}
	return err
}

// deleteChild removes a course item, notFound if it does not belong to the course.
func (repo *courseRepository) deleteChild(ctx context.Context, table, courseID, id string, notFound error) error {
	err := execOne(ctx, repo.db, notFound, "DELETE FROM "+table+" WHERE id = ? AND course_id = ?", id, courseID)
	if err != nil && err != notFound {
		return errors.Wrapf(err, "deleting from %s", table)
	}
	return err
}

// Meetings

func (repo *courseRepository) QueryMeetings(ctx context.Context, courseID string) ([]course.Meeting, error) {
	var rows []meetingRow
	if err := selectAll(ctx, repo.db, &rows,
		"SELECT "+meetingColumns+" FROM course_meetings WHERE course_id = ? ORDER BY sort_order, id", courseID); err != nil {
		return nil, errors.Wrap(err, "querying meetings")
	}
	meetings := make([]course.Meeting, 0, len(rows))
	for _, row := range rows {
		m, err := row.meeting()
		if err != nil {
			return nil, errors.Wrapf(err, "meeting %s", row.ID)
		}
		meetings = append(meetings, m)
	}
	return meetings, nil
}

func (repo *courseRepository) GetMeeting(ctx context.Context, courseID, id string) (course.Meeting, error) {
	var row meetingRow
	err := get(ctx, repo.db, &row, course.ErrMeetingNotFound,
		"SELECT "+meetingColumns+" FROM course_meetings WHERE id = ? AND course_id = ?", id, courseID)
	if err != nil {
		if err == course.ErrMeetingNotFound {
			return course.Meeting{}, err
		}
		return course.Meeting{}, errors.Wrap(err, "finding meeting")
	}
	return row.meeting()
}

func (repo *courseRepository) CreateMeeting(ctx context.Context, m course.Meeting) (course.Meeting, error) {
	m.ID = uuid.New().String()
	_, err := exec(ctx, repo.db,
		"INSERT INTO course_meetings ("+meetingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.CourseID, m.Weekday.String(), m.Label, m.StartTimeLocal, m.DurationMinutes, m.Timezone,
		m.ZoomJoinURL, m.ZoomMeetingID, m.ZoomPasscode, m.Note, m.SortOrder)
	if err != nil {
		return course.Meeting{}, errors.Wrap(err, "inserting meeting")
	}
	return m, nil
}

func (repo *courseRepository) UpdateMeeting(ctx context.Context, m course.Meeting) (course.Meeting, error) {
	err := execOne(ctx, repo.db, course.ErrMeetingNotFound,
		"UPDATE course_meetings SET weekday = ?, label = ?, start_time_local = ?, duration_minutes = ?, timezone = ?, "+
			"zoom_join_url = ?, zoom_meeting_id = ?, zoom_passcode = ?, note = ?, sort_order = ? WHERE id = ? AND course_id = ?",
		m.Weekday.String(), m.Label, m.StartTimeLocal, m.DurationMinutes, m.Timezone,
		m.ZoomJoinURL, m.ZoomMeetingID, m.ZoomPasscode, m.Note, m.SortOrder, m.ID, m.CourseID)
	if err != nil {
		if err == course.ErrMeetingNotFound {
			return course.Meeting{}, err
		}
		return course.Meeting{}, errors.Wrap(err, "updating meeting")
	}
	return m, nil
}

func (repo *courseRepository) DeleteMeeting(ctx context.Context, courseID, id string) error {
	return repo.deleteChild(ctx, "course_meetings", courseID, id, course.ErrMeetingNotFound)
}

// Content blocks

func (repo *courseRepository) QueryContentBlocks(ctx context.Context, courseID string) ([]course.ContentBlock, error) {
	var rows []contentBlockRow
	if err := selectAll(ctx, repo.db, &rows,
		"SELECT "+contentBlockColumns+" FROM course_content_blocks WHERE course_id = ? ORDER BY sort_order, id", courseID); err != nil {
		return nil, errors.Wrap(err, "querying content blocks")
	}
	blocks := make([]course.ContentBlock, 0, len(rows))
	for _, row := range rows {
		blocks = append(blocks, row.contentBlock())
	}
	return blocks, nil
}

func (repo *courseRepository) GetContentBlock(ctx context.Context, courseID, id string) (course.ContentBlock, error) {
	var row contentBlockRow
	err := get(ctx, repo.db, &row, course.ErrContentBlockNotFound,
		"SELECT "+contentBlockColumns+" FROM course_content_blocks WHERE id = ? AND course_id = ?", id, courseID)
	if err != nil {
		if err == course.ErrContentBlockNotFound {
			return course.ContentBlock{}, err
		}
		return course.ContentBlock{}, errors.Wrap(err, "finding content block")
	}
	return row.contentBlock(), nil
}

func (repo *courseRepository) CreateContentBlock(ctx context.Context, b course.ContentBlock) (course.ContentBlock, error) {
	b.ID = uuid.New().String()
	_, err := exec(ctx, repo.db,
		"INSERT INTO course_content_blocks ("+contentBlockColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		b.ID, b.CourseID, b.Section, b.Title, b.Body, b.Dir, b.SortOrder)
	if err != nil {
		return course.ContentBlock{}, errors.Wrap(err, "inserting content block")
	}
	return b, nil
}

func (repo *courseRepository) UpdateContentBlock(ctx context.Context, b course.ContentBlock) (course.ContentBlock, error) {
	err := execOne(ctx, repo.db, course.ErrContentBlockNotFound,
		"UPDATE course_content_blocks SET section = ?, title = ?, body = ?, dir = ?, sort_order = ? WHERE id = ? AND course_id = ?",
		b.Section, b.Title, b.Body, b.Dir, b.SortOrder, b.ID, b.CourseID)
	if err != nil {
		if err == course.ErrContentBlockNotFound {
			return course.ContentBlock{}, err
		}
		return course.ContentBlock{}, errors.Wrap(err, "updating content block")
	}
	return b, nil
}

func (repo *courseRepository) DeleteContentBlock(ctx context.Context, courseID, id string) error {
	return repo.deleteChild(ctx, "course_content_blocks", courseID, id, course.ErrContentBlockNotFound)
}

// Resources

func (repo *courseRepository) QueryResources(ctx context.Context, courseID string) ([]course.Resource, error) {
	var rows []resourceRow
	if err := selectAll(ctx, repo.db, &rows,
		"SELECT "+resourceColumns+" FROM course_resources WHERE course_id = ? ORDER BY sort_order, created_at", courseID); err != nil {
		return nil, errors.Wrap(err, "querying resources")
	}
	resources := make([]course.Resource, 0, len(rows))
	for _, row := range rows {
		resources = append(resources, row.resource())
	}
	return resources, nil
}

func (repo *courseRepository) GetResource(ctx context.Context, courseID, id string) (course.Resource, error) {
	var row resourceRow
	err := get(ctx, repo.db, &row, course.ErrResourceNotFound,
		"SELECT "+resourceColumns+" FROM course_resources WHERE id = ? AND course_id = ?", id, courseID)
	if err != nil {
		if err == course.ErrResourceNotFound {
			return course.Resource{}, err
		}
		return course.Resource{}, errors.Wrap(err, "finding resource")
	}
	return row.resource(), nil
}

func (repo *courseRepository) CreateResource(ctx context.Context, r course.Resource) (course.Resource, error) {
	r.ID = uuid.New().String()
	_, err := exec(ctx, repo.db,
		"INSERT INTO course_resources ("+resourceColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.CourseID, r.Type, r.Title, r.Description, r.StoragePath, r.MimeType, r.FileSize, r.SortOrder, r.CreatedAt.UTC())
	if err != nil {
		return course.Resource{}, errors.Wrap(err, "inserting resource")
	}
	return r, nil
}

func (repo *courseRepository) UpdateResource(ctx context.Context, r course.Resource) (course.Resource, error) {
	err := execOne(ctx, repo.db, course.ErrResourceNotFound,
		"UPDATE course_resources SET title = ?, description = ?, sort_order = ? WHERE id = ? AND course_id = ?",
		r.Title, r.Description, r.SortOrder, r.ID, r.CourseID)
	if err != nil {
		if err == course.ErrResourceNotFound {
			return course.Resource{}, err
		}
		return course.Resource{}, errors.Wrap(err, "updating resource")
	}
	return r, nil
}

func (repo *courseRepository) DeleteResource(ctx context.Context, courseID, id string) error {
	return repo.deleteChild(ctx, "course_resources", courseID, id, course.ErrResourceNotFound)
}

// Recordings

func (repo *courseRepository) QueryRecordings(ctx context.Context, courseID string) ([]course.Recording, error) {
	var rows []recordingRow
	if err := selectAll(ctx, repo.db, &rows,
		"SELECT "+recordingColumns+" FROM course_recordings WHERE course_id = ? ORDER BY week_number, sort_order, id", courseID); err != nil {
		return nil, errors.Wrap(err, "querying recordings")
	}
	recordings := make([]course.Recording, 0, len(rows))
	for _, row := range rows {
		recordings = append(recordings, row.recording())
	}
	return recordings, nil
}

func (repo *courseRepository) GetRecording(ctx context.Context, courseID, id string) (course.Recording, error) {
	var row recordingRow
	err := get(ctx, repo.db, &row, course.ErrRecordingNotFound,
		"SELECT "+recordingColumns+" FROM course_recordings WHERE id = ? AND course_id = ?", id, courseID)
	if err != nil {
		if err == course.ErrRecordingNotFound {
			return course.Recording{}, err
		}
		return course.Recording{}, errors.Wrap(err, "finding recording")
	}
	return row.recording(), nil
}

func (repo *courseRepository) CreateRecording(ctx context.Context, r course.Recording) (course.Recording, error) {
	r.ID = uuid.New().String()
	_, err := exec(ctx, repo.db,
		"INSERT INTO course_recordings ("+recordingColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.CourseID, r.WeekNumber, r.SessionType, r.Title, r.EmbedType, r.EmbedURL, r.SortOrder)
	if err != nil {
		return course.Recording{}, errors.Wrap(err, "inserting recording")
	}
	return r, nil
}

func (repo *courseRepository) UpdateRecording(ctx context.Context, r course.Recording) (course.Recording, error) {
	err := execOne(ctx, repo.db, course.ErrRecordingNotFound,
		"UPDATE course_recordings SET week_number = ?, session_type = ?, title = ?, embed_type = ?, embed_url = ?, sort_order = ? "+
			"WHERE id = ? AND course_id = ?",
		r.WeekNumber, r.SessionType, r.Title, r.EmbedType, r.EmbedURL, r.SortOrder, r.ID, r.CourseID)
	if err != nil {
		if err == course.ErrRecordingNotFound {
			return course.Recording{}, err
		}
		return course.Recording{}, errors.Wrap(err, "updating recording")
	}
	return r, nil
}

func (repo *courseRepository) DeleteRecording(ctx context.Context, courseID, id string) error {
	return repo.deleteChild(ctx, "course_recordings", courseID, id, course.ErrRecordingNotFound)
}

// Enrollments

func (repo *courseRepository) GetEnrollment(ctx context.Context, courseID, userID string) (course.Enrollment, error) {
	var row enrollmentRow
	err := get(ctx, repo.db, &row, course.ErrEnrollmentNotFound,
		"SELECT "+enrollmentColumns+" FROM course_enrollments WHERE course_id = ? AND user_id = ?", courseID, userID)
	if err != nil {
		if err == course.ErrEnrollmentNotFound {
			return course.Enrollment{}, err
		}
		return course.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return row.enrollment(), nil
}

func (repo *courseRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, bool, error) {
	n, err := exec(ctx, repo.db,
		"INSERT INTO course_enrollments ("+enrollmentColumns+") VALUES (?, ?, ?, ?) ON CONFLICT (user_id, course_id) DO NOTHING",
		uuid.New().String(), e.UserID, e.CourseID, e.EnrolledAt.UTC())
	if err != nil {
		return course.Enrollment{}, false, errors.Wrap(err, "inserting enrollment")
	}
	enr, err := repo.GetEnrollment(ctx, e.CourseID, e.UserID)
	return enr, n > 0, err
}

func (repo *courseRepository) QueryEnrollments(ctx context.Context, userIDs ...string) ([]course.Enrollment, error) {
	if len(userIDs) == 0 {
		return []course.Enrollment{}, nil
	}
	var rows []enrollmentRow
	if err := selectIn(ctx, repo.db, &rows,
		"SELECT "+enrollmentColumns+" FROM course_enrollments WHERE user_id IN (?) ORDER BY enrolled_at", userIDs); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.enrollment())
	}
	return enrollments, nil
}
