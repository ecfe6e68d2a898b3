package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/analytics"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/storage/database/sqlxrepos"
	testutil "github.com/trezcool/darasa/tests"
)

func TestAnalyticsRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewAnalyticsRepository(db)
	courses := sqlxrepos.NewCourseRepository(db)
	users := sqlxrepos.NewUserRepository(db)

	day := time.Date(2026, 5, 10, 14, 0, 0, 0, time.UTC)
	u1 := testutil.CreateUser(t, users, "One", "one@example.com", "", nil, true, day.AddDate(0, 0, -40))
	u2 := testutil.CreateUser(t, users, "Two", "two@example.com", "", nil, true, day)
	testutil.CreateUser(t, users, "Three", "three@example.com", "", nil, true, day.Add(time.Hour))

	c1 := testutil.CreateCourse(t, courses, "c1", true, "")
	c2 := testutil.CreateCourse(t, courses, "c2", true, "")
	for _, e := range []course.Enrollment{
		{UserID: u1.ID, CourseID: c1.ID, EnrolledAt: day},
		{UserID: u2.ID, CourseID: c1.ID, EnrolledAt: day},
		{UserID: u2.ID, CourseID: c2.ID, EnrolledAt: day},
	} {
		_, _, err := courses.CreateEnrollment(ctx, e)
		require.NoError(t, err)
	}

	rec, err := courses.CreateRecording(ctx, course.Recording{
		CourseID: c1.ID, WeekNumber: 1, SessionType: course.SessionMain, Title: "Week 1",
		EmbedType: course.EmbedYouTube, EmbedURL: "https://youtu.be/x",
	})
	require.NoError(t, err)
	untitled, err := courses.CreateRecording(ctx, course.Recording{
		CourseID: c1.ID, WeekNumber: 2, SessionType: course.SessionMain,
		EmbedType: course.EmbedYouTube, EmbedURL: "https://youtu.be/y",
	})
	require.NoError(t, err)
	res, err := courses.CreateResource(ctx, course.Resource{
		CourseID: c2.ID, Type: course.ResourcePDF, Title: "Notes", StoragePath: "courses/c2/n.pdf", CreatedAt: day,
	})
	require.NoError(t, err)

	// 3 views today, 1 view 60 days ago
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.IncrementRecordingView(ctx, c1.ID, rec.ID, day))
	}
	require.NoError(t, repo.IncrementRecordingView(ctx, c1.ID, untitled.ID, day.AddDate(0, 0, -60)))
	require.NoError(t, repo.IncrementResourceDownload(ctx, c2.ID, res.ID, day))
	require.NoError(t, repo.IncrementResourceDownload(ctx, c2.ID, res.ID, day.AddDate(0, 0, -1)))

	from := analytics.Range30d.Start(day)

	n, err := repo.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.CountEnrollments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	tests := []struct {
		name string
		fn   func(*time.Time) (int, error)
		from *time.Time
		want int
	}{
		{name: "views, all time", fn: func(f *time.Time) (int, error) { return repo.SumRecordingViews(ctx, f) }, want: 4},
		{name: "views, 30d", fn: func(f *time.Time) (int, error) { return repo.SumRecordingViews(ctx, f) }, from: from, want: 3},
		{name: "downloads, 30d", fn: func(f *time.Time) (int, error) { return repo.SumResourceDownloads(ctx, f) }, from: from, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("signups per day", func(t *testing.T) {
		trend, err := repo.SignupsPerDay(ctx, from)
		require.NoError(t, err)
		assert.Equal(t, []analytics.DayCount{{Date: "2026-05-10", Count: 2}}, trend)

		trend, err = repo.SignupsPerDay(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, trend, 2)
	})

	t.Run("enrollments per course", func(t *testing.T) {
		counts, err := repo.EnrollmentsPerCourse(ctx)
		require.NoError(t, err)
		require.Len(t, counts, 2)
		assert.Equal(t, analytics.NamedCount{ID: c1.ID, Name: c1.Title, Count: 2}, counts[0])
		assert.Equal(t, analytics.NamedCount{ID: c2.ID, Name: c2.Title, Count: 1}, counts[1])
	})

	t.Run("top items", func(t *testing.T) {
		top, err := repo.TopRecordings(ctx, nil, analytics.TopLimit)
		require.NoError(t, err)
		assert.Equal(t, []analytics.NamedCount{
			{ID: rec.ID, Name: "Week 1", Count: 3},
			{ID: untitled.ID, Name: "", Count: 1},
		}, top)

		top, err = repo.TopRecordings(ctx, nil, 1)
		require.NoError(t, err)
		assert.Len(t, top, 1)

		top, err = repo.TopResources(ctx, from, analytics.TopLimit)
		require.NoError(t, err)
		assert.Equal(t, []analytics.NamedCount{{ID: res.ID, Name: "Notes", Count: 2}}, top)
	})
}
