package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/analytics"
	"github.com/trezcool/darasa/core/course"
)

type analyticsRepository struct {
	db core.DB
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

func NewAnalyticsRepository(db core.DB) analytics.Repository {
	return &analyticsRepository{db: db}
}

func dayArg(t time.Time) string {
	return t.UTC().Format(course.DateLayout)
}

// since appends a lower bound on col when from is set.
func since(query, col string, from *time.Time, args []interface{}, dateOnly bool) (string, []interface{}) {
	if from == nil {
		return query, args
	}
	if dateOnly {
		return query + " AND " + col + " >= ?", append(args, dayArg(*from))
	}
	return query + " AND " + col + " >= ?", append(args, from.UTC())
}

func (repo *analyticsRepository) IncrementRecordingView(ctx context.Context, courseID, recordingID string, day time.Time) error {
	_, err := exec(ctx, repo.db,
		"INSERT INTO recording_views (recording_id, course_id, day, views) VALUES (?, ?, ?, 1) "+
			"ON CONFLICT (recording_id, day) DO UPDATE SET views = recording_views.views + 1",
		recordingID, courseID, dayArg(day))
	return errors.Wrap(err, "incrementing recording views")
}

func (repo *analyticsRepository) IncrementResourceDownload(ctx context.Context, courseID, resourceID string, day time.Time) error {
	_, err := exec(ctx, repo.db,
		"INSERT INTO resource_downloads (resource_id, course_id, day, downloads) VALUES (?, ?, ?, 1) "+
			"ON CONFLICT (resource_id, day) DO UPDATE SET downloads = resource_downloads.downloads + 1",
		resourceID, courseID, dayArg(day))
	return errors.Wrap(err, "incrementing resource downloads")
}

func (repo *analyticsRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	err := get(ctx, repo.db, &n, nil, query, args...)
	return n, err
}

func (repo *analyticsRepository) CountUsers(ctx context.Context) (int, error) {
	n, err := repo.count(ctx, "SELECT COUNT(*) FROM users")
	return n, errors.Wrap(err, "counting users")
}

func (repo *analyticsRepository) CountEnrollments(ctx context.Context) (int, error) {
	n, err := repo.count(ctx, "SELECT COUNT(*) FROM course_enrollments")
	return n, errors.Wrap(err, "counting enrollments")
}

func (repo *analyticsRepository) SumRecordingViews(ctx context.Context, from *time.Time) (int, error) {
	query, args := since("SELECT COALESCE(SUM(views), 0) FROM recording_views WHERE 1 = 1", "day", from, nil, true)
	n, err := repo.count(ctx, query, args...)
	return n, errors.Wrap(err, "summing recording views")
}

func (repo *analyticsRepository) SumResourceDownloads(ctx context.Context, from *time.Time) (int, error) {
	query, args := since("SELECT COALESCE(SUM(downloads), 0) FROM resource_downloads WHERE 1 = 1", "day", from, nil, true)
	n, err := repo.count(ctx, query, args...)
	return n, errors.Wrap(err, "summing resource downloads")
}

func (repo *analyticsRepository) SignupsPerDay(ctx context.Context, from *time.Time) ([]analytics.DayCount, error) {
	query, args := since("SELECT SUBSTR(CAST(created_at AS TEXT), 1, 10) AS date, COUNT(*) AS count FROM users WHERE 1 = 1",
		"created_at", from, nil, false)
	query += " GROUP BY SUBSTR(CAST(created_at AS TEXT), 1, 10) ORDER BY date"

	trend := []analytics.DayCount{}
	if err := selectAll(ctx, repo.db, &trend, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying signups per day")
	}
	return trend, nil
}

func (repo *analyticsRepository) EnrollmentsPerCourse(ctx context.Context) ([]analytics.NamedCount, error) {
	counts := []analytics.NamedCount{}
	err := selectAll(ctx, repo.db, &counts,
		"SELECT e.course_id AS id, COALESCE(MAX(c.title), '') AS name, COUNT(*) AS count "+
			"FROM course_enrollments e LEFT JOIN courses c ON c.id = e.course_id "+
			"GROUP BY e.course_id ORDER BY count DESC, e.course_id")
	return counts, errors.Wrap(err, "querying enrollments per course")
}

func (repo *analyticsRepository) TopRecordings(ctx context.Context, from *time.Time, limit int) ([]analytics.NamedCount, error) {
	query, args := since("SELECT v.recording_id AS id, COALESCE(MAX(r.title), '') AS name, SUM(v.views) AS count "+
		"FROM recording_views v LEFT JOIN course_recordings r ON r.id = v.recording_id WHERE 1 = 1", "v.day", from, nil, true)
	query += " GROUP BY v.recording_id ORDER BY count DESC, v.recording_id LIMIT ?"
	args = append(args, limit)

	counts := []analytics.NamedCount{}
	err := selectAll(ctx, repo.db, &counts, query, args...)
	return counts, errors.Wrap(err, "querying top recordings")
}

func (repo *analyticsRepository) TopResources(ctx context.Context, from *time.Time, limit int) ([]analytics.NamedCount, error) {
	query, args := since("SELECT d.resource_id AS id, COALESCE(MAX(r.title), '') AS name, SUM(d.downloads) AS count "+
		"FROM resource_downloads d LEFT JOIN course_resources r ON r.id = d.resource_id WHERE 1 = 1", "d.day", from, nil, true)
	query += " GROUP BY d.resource_id ORDER BY count DESC, d.resource_id LIMIT ?"
	args = append(args, limit)

	counts := []analytics.NamedCount{}
	err := selectAll(ctx, repo.db, &counts, query, args...)
	return counts, errors.Wrap(err, "querying top resources")
}
