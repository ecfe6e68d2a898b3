package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/schedule"
)

// Text directions
const (
	DirLTR = "ltr"
	DirRTL = "rtl"
)

// Resource types
const (
	ResourcePhoto = "photo"
	ResourcePDF   = "pdf"
)

// Recording session types
const (
	SessionMain          = "main"
	SessionClarification = "clarification"
)

// Recording embed types
const (
	EmbedBunny   = "bunny"
	EmbedYouTube = "youtube"
	EmbedIframe  = "iframe"
)

const DateLayout = "2006-01-02"

type Course struct {
	ID                 string     `json:"id"`
	Slug               string     `json:"slug"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	HeroImageURL       string     `json:"hero_image_url"`
	CourseStartDate    *time.Time `json:"course_start_date"`
	IsPublished        bool       `json:"is_published"`
	AccessCode         string     `json:"access_code,omitempty"`
	RequiresAccessCode bool       `json:"requires_access_code"`
	DefaultDir         string     `json:"default_dir"`
	CreatedAt          time.Time  `json:"created_at"` // UTC
	UpdatedAt          time.Time  `json:"updated_at"` // UTC
}

// Public hides the access code.
func (c Course) Public() Course {
	c.RequiresAccessCode = c.AccessCode != ""
	c.AccessCode = ""
	return c
}

type Meeting struct {
	ID              string           `json:"id"`
	CourseID        string           `json:"course_id"`
	Weekday         schedule.Weekday `json:"weekday"`
	Label           string           `json:"label"`
	StartTimeLocal  string           `json:"start_time_local"` // "HH:MM"
	DurationMinutes int              `json:"duration_minutes"`
	Timezone        string           `json:"timezone"`
	ZoomJoinURL     string           `json:"zoom_join_url,omitempty"`
	ZoomMeetingID   string           `json:"zoom_meeting_id,omitempty"`
	ZoomPasscode    string           `json:"zoom_passcode,omitempty"`
	Note            string           `json:"note"`
	SortOrder       int              `json:"sort_order"`
}

func (m Meeting) Recurring() schedule.RecurringMeeting {
	return schedule.RecurringMeeting{Weekday: m.Weekday, StartTimeLocal: m.StartTimeLocal, Timezone: m.Timezone}
}

func (m Meeting) Duration() time.Duration {
	return time.Duration(m.DurationMinutes) * time.Minute
}

// Public hides the Zoom details.
func (m Meeting) Public() Meeting {
	m.ZoomJoinURL = ""
	m.ZoomMeetingID = ""
	m.ZoomPasscode = ""
	return m
}

type ContentBlock struct {
	ID        string `json:"id"`
	CourseID  string `json:"course_id"`
	Section   string `json:"section"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Dir       string `json:"dir"` // "" inherits Course.DefaultDir
	SortOrder int    `json:"sort_order"`
}

type Resource struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StoragePath string    `json:"-"`
	MimeType    string    `json:"mime_type"`
	FileSize    int64     `json:"file_size"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type Recording struct {
	ID          string `json:"id"`
	CourseID    string `json:"course_id"`
	WeekNumber  int    `json:"week_number"`
	SessionType string `json:"session_type"`
	Title       string `json:"title"`
	EmbedType   string `json:"embed_type"`
	EmbedURL    string `json:"embed_url"`
	SortOrder   int    `json:"sort_order"`
}

type Enrollment struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"` // UTC
}

// ScheduleEntry is a meeting with its start time in every display zone.
type ScheduleEntry struct {
	Meeting Meeting    `json:"meeting"`
	Times   []ZoneTime `json:"times"`
	Next    *time.Time `json:"next_occurrence"` // UTC, nil if the meeting is invalid
}

type ZoneTime struct {
	Label    string `json:"label"`
	Timezone string `json:"timezone"`
	Time     string `json:"time"` // schedule.Placeholder when the zone failed
}

// CourseInput is used to create or replace a Course.
type CourseInput struct {
	Slug            string `json:"slug" validate:"required,slug,max=100"`
	Title           string `json:"title" validate:"required,notblank,max=200"`
	Description     string `json:"description"`
	HeroImageURL    string `json:"hero_image_url" validate:"omitempty,url"`
	CourseStartDate string `json:"course_start_date" validate:"omitempty,datetime=2006-01-02"`
	IsPublished     bool   `json:"is_published"`
	AccessCode      string `json:"access_code" validate:"max=100"`
	DefaultDir      string `json:"default_dir" validate:"omitempty,oneof=ltr rtl"`
}

func (in *CourseInput) Validate(validate *validator.Validate) error {
	in.Slug = core.CleanString(in.Slug, true /* lower */)
	in.Title = core.CleanString(in.Title)
	in.AccessCode = core.CleanString(in.AccessCode)
	if in.DefaultDir == "" {
		in.DefaultDir = DirLTR
	}
	return validate.Struct(in)
}

func (in CourseInput) startDate() *time.Time {
	if in.CourseStartDate == "" {
		return nil
	}
	d, err := time.Parse(DateLayout, in.CourseStartDate)
	if err != nil {
		return nil
	}
	return &d
}

type MeetingInput struct {
	Weekday         string `json:"weekday" validate:"required,weekday"`
	Label           string `json:"label" validate:"max=100"`
	StartTimeLocal  string `json:"start_time_local" validate:"required,walltime"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=1,max=1440"`
	Timezone        string `json:"timezone" validate:"required,iana_tz"`
	ZoomJoinURL     string `json:"zoom_join_url" validate:"omitempty,url"`
	ZoomMeetingID   string `json:"zoom_meeting_id"`
	ZoomPasscode    string `json:"zoom_passcode"`
	Note            string `json:"note"`
	SortOrder       int    `json:"sort_order"`
}

func (in *MeetingInput) Validate(validate *validator.Validate) error {
	in.Weekday = core.CleanString(in.Weekday, true /* lower */)
	in.StartTimeLocal = core.CleanString(in.StartTimeLocal)
	in.Timezone = core.CleanString(in.Timezone)
	if in.DurationMinutes == 0 {
		in.DurationMinutes = 60
	}
	return validate.Struct(in)
}

type ContentBlockInput struct {
	Section   string `json:"section" validate:"max=100"`
	Title     string `json:"title" validate:"max=200"`
	Body      string `json:"body" validate:"required,notblank"`
	Dir       string `json:"dir" validate:"omitempty,oneof=ltr rtl"`
	SortOrder int    `json:"sort_order"`
}

func (in *ContentBlockInput) Validate(validate *validator.Validate) error {
	in.Section = core.CleanString(in.Section)
	in.Title = core.CleanString(in.Title)
	return validate.Struct(in)
}

type RecordingInput struct {
	WeekNumber  int    `json:"week_number" validate:"min=1"`
	SessionType string `json:"session_type" validate:"omitempty,oneof=main clarification"`
	Title       string `json:"title" validate:"max=200"`
	EmbedType   string `json:"embed_type" validate:"required,oneof=bunny youtube iframe"`
	EmbedURL    string `json:"embed_url" validate:"required,url"`
	SortOrder   int    `json:"sort_order"`
}

func (in *RecordingInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	if in.WeekNumber == 0 {
		in.WeekNumber = 1
	}
	if in.SessionType == "" {
		in.SessionType = SessionMain
	}
	return validate.Struct(in)
}

// ResourceInput holds a resource's metadata; the type is detected from the uploaded content.
type ResourceInput struct {
	Title       string `json:"title" form:"title" validate:"max=200"`
	Description string `json:"description" form:"description"`
	SortOrder   int    `json:"sort_order" form:"sort_order"`
}

func (in *ResourceInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Description = core.CleanString(in.Description)
	return validate.Struct(in)
}

type EnrollInput struct {
	AccessCode string `json:"access_code"`
}
