// Package analytics keeps daily view and download counters and builds the admin dashboard.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const TopLimit = 20

var (
	ErrInvalidRange = errors.New("range must be one of 7d, 30d, 90d, all")

	nowFunc = time.Now // mockable
)

type DateRange string

const (
	Range7d  DateRange = "7d"
	Range30d DateRange = "30d"
	Range90d DateRange = "90d"
	RangeAll DateRange = "all"
)

func ParseDateRange(s string) (DateRange, error) {
	switch r := DateRange(core.CleanString(s, true /* lower */)); r {
	case Range7d, Range30d, Range90d, RangeAll:
		return r, nil
	case "":
		return Range30d, nil
	default:
		return "", core.NewValidationError(ErrInvalidRange, core.FieldError{Field: "range", Error: ErrInvalidRange.Error()})
	}
}

// Start returns the first day (UTC midnight) covered by the range, nil for RangeAll.
func (r DateRange) Start(now time.Time) *time.Time {
	var days int
	switch r {
	case Range7d:
		days = 7
	case Range30d:
		days = 30
	case Range90d:
		days = 90
	default:
		return nil
	}
	y, m, d := now.UTC().Date()
	start := time.Date(y, m, d-days, 0, 0, 0, 0, time.UTC)
	return &start
}

type (
	DayCount struct {
		Date  string `json:"date"` // YYYY-MM-DD
		Count int    `json:"count"`
	}

	// NamedCount is a per item total; Name falls back to the id prefix for deleted titles.
	NamedCount struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	Dashboard struct {
		Range                DateRange    `json:"range"`
		TotalUsers           int          `json:"total_users"`
		TotalEnrollments     int          `json:"total_enrollments"`
		TotalViews           int          `json:"total_views"`
		TotalDownloads       int          `json:"total_downloads"`
		SignupTrend          []DayCount   `json:"signup_trend"`
		EnrollmentsPerCourse []NamedCount `json:"enrollments_per_course"`
		TopRecordings        []NamedCount `json:"top_recordings"`
		TopResources         []NamedCount `json:"top_resources"`
	}
)

type (
	// Repository aggregates counters; a nil from means no lower bound.
	Repository interface {
		IncrementRecordingView(ctx context.Context, courseID, recordingID string, day time.Time) error
		IncrementResourceDownload(ctx context.Context, courseID, resourceID string, day time.Time) error

		CountUsers(ctx context.Context) (int, error)
		CountEnrollments(ctx context.Context) (int, error)
		SumRecordingViews(ctx context.Context, from *time.Time) (int, error)
		SumResourceDownloads(ctx context.Context, from *time.Time) (int, error)
		SignupsPerDay(ctx context.Context, from *time.Time) ([]DayCount, error)
		EnrollmentsPerCourse(ctx context.Context) ([]NamedCount, error)
		TopRecordings(ctx context.Context, from *time.Time, limit int) ([]NamedCount, error)
		TopResources(ctx context.Context, from *time.Time, limit int) ([]NamedCount, error)
	}

	Service interface {
		TrackRecordingView(courseID, recordingID string)
		TrackResourceDownload(courseID, resourceID string)
		Dashboard(ctx context.Context, r DateRange) (Dashboard, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
		goFunc func(func()) // runs tracking
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger,
		goFunc: func(f func()) { go f() },
	}
}

func today() time.Time {
	y, m, d := nowFunc().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (svc *service) TrackRecordingView(courseID, recordingID string) {
	day := today()
	svc.goFunc(func() {
		if err := svc.repo.IncrementRecordingView(context.Background(), courseID, recordingID, day); err != nil {
			svc.logger.Warn(fmt.Sprintf("tracking view of recording %s: %v", recordingID, err), err)
		}
	})
}

func (svc *service) TrackResourceDownload(courseID, resourceID string) {
	day := today()
	svc.goFunc(func() {
		if err := svc.repo.IncrementResourceDownload(context.Background(), courseID, resourceID, day); err != nil {
			svc.logger.Warn(fmt.Sprintf("tracking download of resource %s: %v", resourceID, err), err)
		}
	})
}

func (svc *service) Dashboard(ctx context.Context, r DateRange) (Dashboard, error) {
	from := r.Start(nowFunc())
	dash := Dashboard{Range: r}

	var err error
	if dash.TotalUsers, err = svc.repo.CountUsers(ctx); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting users")
	}
	if dash.TotalEnrollments, err = svc.repo.CountEnrollments(ctx); err != nil {
		return Dashboard{}, errors.Wrap(err, "counting enrollments")
	}
	if dash.TotalViews, err = svc.repo.SumRecordingViews(ctx, from); err != nil {
		return Dashboard{}, errors.Wrap(err, "summing views")
	}
	if dash.TotalDownloads, err = svc.repo.SumResourceDownloads(ctx, from); err != nil {
		return Dashboard{}, errors.Wrap(err, "summing downloads")
	}
	if dash.SignupTrend, err = svc.repo.SignupsPerDay(ctx, from); err != nil {
		return Dashboard{}, errors.Wrap(err, "querying signup trend")
	}
	if dash.EnrollmentsPerCourse, err = svc.repo.EnrollmentsPerCourse(ctx); err != nil {
		return Dashboard{}, errors.Wrap(err, "querying enrollments per course")
	}
	if dash.TopRecordings, err = svc.repo.TopRecordings(ctx, from, TopLimit); err != nil {
		return Dashboard{}, errors.Wrap(err, "querying top recordings")
	}
	if dash.TopResources, err = svc.repo.TopResources(ctx, from, TopLimit); err != nil {
		return Dashboard{}, errors.Wrap(err, "querying top resources")
	}

	fillNames(dash.EnrollmentsPerCourse)
	fillNames(dash.TopRecordings)
	fillNames(dash.TopResources)
	return dash, nil
}

// fillNames labels untitled items with their id prefix.
func fillNames(counts []NamedCount) {
	for i := range counts {
		if counts[i].Name != "" {
			continue
		}
		id := counts[i].ID
		if len(id) > 8 {
			id = id[:8]
		}
		counts[i].Name = id
	}
}
