package echoapi_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/schedule"
	"github.com/trezcool/darasa/core/user"
	testutil "github.com/trezcool/darasa/tests"
)

var pngData = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func TestCourseAPI_Retrieve(t *testing.T) {
	ta := setup(t)
	editor := testutil.CreateUser(t, ta.usrRepo, "Editor", "editor@example.com", "", []string{user.RoleEditor}, true)
	student := testutil.CreateUser(t, ta.usrRepo, "Student", "student@example.com", "", nil, true)
	testutil.CreateCourse(t, ta.crsRepo, "arabic-101", true, "spring2026")
	testutil.CreateCourse(t, ta.crsRepo, "draft", false, "")

	runHTTPTests(t, ta, []httpTest{
		{name: "draft, anonymous", path: "/v1/courses/draft", wantCode: http.StatusNotFound},
		{name: "draft, student", path: "/v1/courses/draft", token: getToken(t, ta.conf, student), wantCode: http.StatusNotFound},
		{name: "draft, staff", path: "/v1/courses/draft", token: getToken(t, ta.conf, editor), wantCode: http.StatusOK},
		{name: "unknown", path: "/v1/courses/nope", wantCode: http.StatusNotFound},
	})

	t.Run("access code hidden from students", func(t *testing.T) {
		rec := ta.do(httpTest{path: "/v1/courses/arabic-101", token: getToken(t, ta.conf, student)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var c course.Course
		unmarshal(t, rec, &c)
		assert.Empty(t, c.AccessCode)
		assert.True(t, c.RequiresAccessCode)
	})

	t.Run("access code shown to staff", func(t *testing.T) {
		rec := ta.do(httpTest{path: "/v1/courses/arabic-101", token: getToken(t, ta.conf, editor)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var c course.Course
		unmarshal(t, rec, &c)
		assert.Equal(t, "spring2026", c.AccessCode)
	})

	t.Run("list", func(t *testing.T) {
		tests := []struct {
			name  string
			token string
			want  int
		}{
			{name: "anonymous", want: 1},
			{name: "staff", token: getToken(t, ta.conf, editor), want: 2},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := ta.do(httpTest{path: "/v1/courses", token: tt.token})
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				var courses []course.Course
				unmarshal(t, rec, &courses)
				assert.Len(t, courses, tt.want)
			})
		}
	})
}

func TestCourseAPI_Enrollment(t *testing.T) {
	ta := setup(t)
	student := testutil.CreateUser(t, ta.usrRepo, "Student", "student@example.com", "", nil, true)
	testutil.CreateCourse(t, ta.crsRepo, "arabic-101", true, "Spring2026")
	token := getToken(t, ta.conf, student)
	path := "/v1/courses/arabic-101/enrollment"

	runHTTPTests(t, ta, []httpTest{
		{name: "anonymous", method: http.MethodPost, path: path, wantCode: http.StatusUnauthorized},
		{
			name:     "not enrolled yet",
			path:     path,
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.EnrollmentResponse{Enrolled: false}),
		},
		{
			name:     "wrong code",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marchallObj(t, course.EnrollInput{AccessCode: "fall2025"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"access_code": course.ErrInvalidAccessCode.Error()}),
		},
		{
			name:     "gated before enrolling",
			path:     "/v1/courses/arabic-101/recordings",
			token:    token,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: course.ErrNotEnrolled.Error()}),
		},
		{
			name:     "gated for anonymous",
			path:     "/v1/courses/arabic-101/resources",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "code is trimmed and case insensitive",
			method:   http.MethodPost,
			path:     path,
			token:    token,
			body:     marchallObj(t, course.EnrollInput{AccessCode: "  spring2026 "}),
			wantCode: http.StatusOK,
		},
		{name: "enrolled", path: "/v1/courses/arabic-101/recordings", token: token, wantCode: http.StatusOK, wantData: []byte("[]")},
	})

	rec := ta.do(httpTest{path: path, token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.EnrollmentResponse
	unmarshal(t, rec, &resp)
	assert.True(t, resp.Enrolled)
	require.NotNil(t, resp.Enrollment)
	assert.Equal(t, student.ID, resp.Enrollment.UserID)
}

func TestCourseAPI_Schedule(t *testing.T) {
	ta := setup(t)
	student := testutil.CreateUser(t, ta.usrRepo, "Student", "student@example.com", "", nil, true)
	c := testutil.CreateCourse(t, ta.crsRepo, "arabic-101", true, "")
	_, err := ta.crsRepo.CreateMeeting(context.Background(), course.Meeting{
		CourseID:        c.ID,
		Weekday:         schedule.Sat,
		Label:           "Main session",
		StartTimeLocal:  "10:00",
		DurationMinutes: 90,
		Timezone:        "Asia/Jerusalem",
		ZoomJoinURL:     "https://zoom.us/j/123",
	})
	require.NoError(t, err)

	token := getToken(t, ta.conf, student)
	rec := ta.do(httpTest{method: http.MethodPost, path: "/v1/courses/arabic-101/enrollment", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// tokens are signed above: jwt expiry is checked against the wall clock
	restore := echoapi.SetNowFunc(func() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) })
	defer restore()

	t.Run("anonymous with display zones", func(t *testing.T) {
		rec := ta.do(httpTest{path: "/v1/courses/arabic-101/schedule?tz=Seoul=Asia/Seoul,Mars/Olympus&tz=America/New_York"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var entries []course.ScheduleEntry
		unmarshal(t, rec, &entries)
		require.Len(t, entries, 1)
		assert.Empty(t, entries[0].Meeting.ZoomJoinURL)
		require.Len(t, entries[0].Times, 3)
		assert.Equal(t, course.ZoneTime{Label: "Seoul", Timezone: "Asia/Seoul", Time: "5:00 PM"}, entries[0].Times[0])
		assert.Equal(t, schedule.Placeholder, entries[0].Times[1].Time)
		assert.Equal(t, course.ZoneTime{Label: "New York", Timezone: "America/New_York", Time: "3:00 AM"}, entries[0].Times[2])
		require.NotNil(t, entries[0].Next)
		assert.True(t, time.Date(2026, 1, 17, 8, 0, 0, 0, time.UTC).Equal(*entries[0].Next))
	})

	t.Run("enrolled sees zoom", func(t *testing.T) {
		rec := ta.do(httpTest{path: "/v1/courses/arabic-101/schedule", token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var entries []course.ScheduleEntry
		unmarshal(t, rec, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, "https://zoom.us/j/123", entries[0].Meeting.ZoomJoinURL)
		assert.NotEmpty(t, entries[0].Times)
	})

	t.Run("calendar", func(t *testing.T) {
		rec := ta.do(httpTest{path: "/v1/courses/arabic-101/schedule.ics"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "arabic-101.ics")

		body := rec.Body.String()
		assert.Contains(t, body, "BEGIN:VCALENDAR")
		assert.Contains(t, body, "FREQ=WEEKLY")
		assert.NotContains(t, body, "zoom.us")
	})
}

func TestCourseAPI_Material(t *testing.T) {
	ta := setup(t)
	ctx := context.Background()
	student := testutil.CreateUser(t, ta.usrRepo, "Student", "student@example.com", "", nil, true)
	c := testutil.CreateCourse(t, ta.crsRepo, "arabic-101", true, "")
	token := getToken(t, ta.conf, student)
	rec := ta.do(httpTest{method: http.MethodPost, path: "/v1/courses/arabic-101/enrollment", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := ta.store.Put(ctx, "courses/"+c.ID+"/alphabet.png", bytes.NewReader(pngData))
	require.NoError(t, err)
	res, err := ta.crsRepo.CreateResource(ctx, course.Resource{
		CourseID:    c.ID,
		Type:        course.ResourcePhoto,
		Title:       "Alphabet",
		StoragePath: stored.Path,
		MimeType:    stored.MimeType,
		FileSize:    stored.Size,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	})
	require.NoError(t, err)
	recording, err := ta.crsRepo.CreateRecording(ctx, course.Recording{
		CourseID:    c.ID,
		WeekNumber:  1,
		SessionType: course.SessionMain,
		EmbedType:   course.EmbedYouTube,
		EmbedURL:    "https://www.youtube.com/embed/abc",
	})
	require.NoError(t, err)

	runHTTPTests(t, ta, []httpTest{
		{name: "unknown recording", method: http.MethodPost, path: "/v1/courses/arabic-101/recordings/nope/view", token: token, wantCode: http.StatusNotFound},
		{name: "view recording", method: http.MethodPost, path: "/v1/courses/arabic-101/recordings/" + recording.ID + "/view", token: token, wantCode: http.StatusOK},
		{name: "unknown resource", path: "/v1/courses/arabic-101/resources/nope/download", token: token, wantCode: http.StatusNotFound},
	})

	rec = ta.do(httpTest{path: "/v1/courses/arabic-101/resources", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resources []course.Resource
	unmarshal(t, rec, &resources)
	require.Len(t, resources, 1)
	assert.Equal(t, res.ID, resources[0].ID)

	rec = ta.do(httpTest{path: "/v1/courses/arabic-101/resources/" + res.ID + "/download", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dl echoapi.DownloadResponse
	unmarshal(t, rec, &dl)
	require.True(t, strings.HasPrefix(dl.URL, "/v1/files/"), dl.URL)

	t.Run("signed file", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, dl.URL)
		ta.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.Equal(t, pngData, rec.Body.Bytes())
	})

	t.Run("tampered signature", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, dl.URL+"0")
		ta.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
