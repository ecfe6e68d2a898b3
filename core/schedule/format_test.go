package schedule

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedResolver map[string]time.Duration

func (r fixedResolver) Offset(zone string, _ time.Time) (time.Duration, error) {
	off, ok := r[zone]
	if !ok {
		return 0, &UnknownTimezoneError{Zone: zone}
	}
	return off, nil
}

func mustLoad(t *testing.T, zone string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(zone)
	require.NoError(t, err)
	return loc
}

func TestReferenceDate(t *testing.T) {
	saturday := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		weekday Weekday
		now     time.Time
		want    time.Time
	}{
		{name: "same weekday is a week ahead", weekday: Sat, now: saturday, want: time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC)},
		{name: "next day", weekday: Sun, now: saturday, want: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)},
		{name: "six days ahead", weekday: Fri, now: saturday, want: time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)},
		{name: "month rollover", weekday: Mon, now: time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC), want: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReferenceDate(tt.weekday, tt.now)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}

	t.Run("calendar of now's location", func(t *testing.T) {
		seoul := mustLoad(t, "Asia/Seoul")
		// friday 23:00 UTC is already saturday in Seoul
		now := time.Date(2026, 1, 9, 23, 0, 0, 0, time.UTC).In(seoul)
		got, err := ReferenceDate(Sat, now)
		require.NoError(t, err)
		y, m, d := got.Date()
		assert.Equal(t, "2026-01-17", fmt.Sprintf("%04d-%02d-%02d", y, m, d))
	})

	t.Run("always lands on weekday within a week", func(t *testing.T) {
		start := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
		for i := 0; i < 14; i++ {
			now := start.AddDate(0, 0, i)
			for wd := Sun; wd <= Sat; wd++ {
				got, err := ReferenceDate(wd, now)
				require.NoError(t, err)
				assert.Equal(t, time.Weekday(wd), got.Weekday())
				days := got.Sub(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)).Hours() / 24
				assert.True(t, days >= 1 && days <= 7, "days ahead = %v", days)
			}
		}
	})

	t.Run("invalid weekday", func(t *testing.T) {
		_, err := ReferenceDate(Weekday(9), start())
		var inv *InvalidInputError
		assert.True(t, errors.As(err, &inv))
	})
}

func start() time.Time { return time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC) }

func TestFormatTimeInZone(t *testing.T) {
	tests := []struct {
		name    string
		time    string
		src     string
		dst     string
		weekday Weekday
		now     time.Time
		want    string
	}{
		{name: "jerusalem to new york, winter", time: "10:00", src: "Asia/Jerusalem", dst: "America/New_York", weekday: Sat, now: start(), want: "3:00 AM"},
		{name: "jerusalem to london, winter", time: "10:00", src: "Asia/Jerusalem", dst: "Europe/London", weekday: Sat, now: start(), want: "8:00 AM"},
		{name: "jerusalem to seoul, winter", time: "10:00", src: "Asia/Jerusalem", dst: "Asia/Seoul", weekday: Sat, now: start(), want: "5:00 PM"},
		{
			name: "jerusalem to seoul, summer", time: "10:00", src: "Asia/Jerusalem", dst: "Asia/Seoul", weekday: Sat,
			now: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC), want: "4:00 PM",
		},
		{name: "crosses midnight backwards", time: "01:00", src: "Asia/Jerusalem", dst: "America/New_York", weekday: Sat, now: start(), want: "6:00 PM"},
		{name: "noon", time: "12:00", src: "Europe/London", dst: "UTC", weekday: Wed, now: start(), want: "12:00 PM"},
		{name: "midnight", time: "00:00", src: "UTC", dst: "Europe/London", weekday: Wed, now: start(), want: "12:00 AM"},
		{name: "seconds ignored", time: "09:15:30", src: "UTC", dst: "Asia/Seoul", weekday: Wed, now: start(), want: "6:15 PM"},
		// US clocks move on 8 March, UK clocks on 29 March 2026
		{name: "before both transitions", time: "12:00", src: "America/New_York", dst: "Europe/London", weekday: Mon, now: time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC), want: "5:00 PM"},
		{name: "between transitions", time: "12:00", src: "America/New_York", dst: "Europe/London", weekday: Mon, now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), want: "4:00 PM"},
		{name: "after both transitions", time: "12:00", src: "America/New_York", dst: "Europe/London", weekday: Mon, now: time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC), want: "5:00 PM"},
		// now is still EST, the occurrence is EDT
		{name: "offset of the occurrence, not of now", time: "12:00", src: "America/New_York", dst: "Europe/London", weekday: Mon, now: time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC), want: "4:00 PM"},
		{name: "skipped wall time moves past the gap", time: "02:30", src: "America/New_York", dst: "UTC", weekday: Sun, now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), want: "7:30 AM"},
		{name: "repeated wall time takes the earlier instant", time: "01:30", src: "America/New_York", dst: "UTC", weekday: Sun, now: time.Date(2026, 10, 25, 12, 0, 0, 0, time.UTC), want: "5:30 AM"},
		// Israel moves on Friday 27 March and back on 25 October 2026
		{name: "skipped wall time east of UTC", time: "02:30", src: "Asia/Jerusalem", dst: "UTC", weekday: Fri, now: time.Date(2026, 3, 21, 12, 0, 0, 0, time.UTC), want: "12:30 AM"},
		{name: "repeated wall time east of UTC", time: "01:30", src: "Asia/Jerusalem", dst: "UTC", weekday: Sun, now: time.Date(2026, 10, 24, 12, 0, 0, 0, time.UTC), want: "10:30 PM"},
		{name: "skipped wall time at UTC+0", time: "01:30", src: "Europe/London", dst: "UTC", weekday: Sun, now: time.Date(2026, 3, 22, 12, 0, 0, 0, time.UTC), want: "1:30 AM"},
		{name: "repeated wall time at UTC+0", time: "01:30", src: "Europe/London", dst: "UTC", weekday: Sun, now: time.Date(2026, 10, 24, 12, 0, 0, 0, time.UTC), want: "12:30 AM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatTimeInZone(tt.time, tt.src, tt.dst, tt.weekday, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := FormatTimeInZone(tt.time, tt.src, tt.dst, tt.weekday, tt.now)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestFormatter_Resolve(t *testing.T) {
	f := NewFormatter(nil)
	naive := func(y int, m time.Month, d, h, min int) time.Time { return time.Date(y, m, d, h, min, 0, 0, time.UTC) }

	tests := []struct {
		name  string
		naive time.Time
		zone  string
		want  time.Time
	}{
		{name: "plain", naive: naive(2026, 6, 1, 9, 0), zone: "Asia/Jerusalem", want: naive(2026, 6, 1, 6, 0)},
		{name: "gap west", naive: naive(2026, 3, 8, 2, 30), zone: "America/New_York", want: naive(2026, 3, 8, 7, 30)},
		{name: "overlap west", naive: naive(2026, 11, 1, 1, 30), zone: "America/New_York", want: naive(2026, 11, 1, 5, 30)},
		{name: "gap east", naive: naive(2026, 3, 27, 2, 30), zone: "Asia/Jerusalem", want: naive(2026, 3, 27, 0, 30)},
		{name: "overlap east", naive: naive(2026, 10, 25, 1, 30), zone: "Asia/Jerusalem", want: naive(2026, 10, 24, 22, 30)},
		{name: "gap London", naive: naive(2026, 3, 29, 1, 30), zone: "Europe/London", want: naive(2026, 3, 29, 1, 30)},
		{name: "overlap London", naive: naive(2026, 10, 25, 1, 30), zone: "Europe/London", want: naive(2026, 10, 25, 0, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Resolve(tt.naive, tt.zone)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got.UTC(), tt.want)
		})
	}

	_, err := f.Resolve(naive(2026, 6, 1, 9, 0), "Mars/Olympus")
	var unknown *UnknownTimezoneError
	assert.ErrorAs(t, err, &unknown)
}

func TestFormatTimeInZone_Identity(t *testing.T) {
	zones := []string{"Asia/Jerusalem", "America/New_York", "Europe/London", "Asia/Seoul", "Australia/Lord_Howe"}
	times := map[string]string{"00:00": "12:00 AM", "02:30": "2:30 AM", "12:00": "12:00 PM", "14:05": "2:05 PM", "23:59": "11:59 PM"}

	for _, zone := range zones {
		for in, want := range times {
			for wd := Sun; wd <= Sat; wd++ {
				got, err := FormatTimeInZone(in, zone, zone, wd, time.Date(2026, 3, 27, 23, 0, 0, 0, time.UTC))
				require.NoError(t, err)
				assert.Equal(t, want, got, "%s %s %s", zone, in, wd)
			}
		}
	}
}

func TestFormatTimeInZone_Errors(t *testing.T) {
	tests := []struct {
		name     string
		time     string
		src, dst string
		weekday  Weekday
		wantTZ   bool
	}{
		{name: "out of range time", time: "25:99", src: "UTC", dst: "Asia/Seoul", weekday: Mon},
		{name: "garbage time", time: "ten", src: "UTC", dst: "Asia/Seoul", weekday: Mon},
		{name: "empty time", time: "", src: "UTC", dst: "UTC", weekday: Mon},
		{name: "invalid weekday", time: "10:00", src: "UTC", dst: "Asia/Seoul", weekday: Weekday(7)},
		{name: "invalid weekday, same zone", time: "10:00", src: "UTC", dst: "UTC", weekday: Weekday(-1)},
		{name: "unknown source", time: "10:00", src: "Mars/Olympus", dst: "UTC", weekday: Mon, wantTZ: true},
		{name: "unknown target", time: "10:00", src: "UTC", dst: "Mars/Olympus", weekday: Mon, wantTZ: true},
		{name: "unknown on identity", time: "10:00", src: "Mars/Olympus", dst: "Mars/Olympus", weekday: Mon, wantTZ: true},
		{name: "local is not a zone", time: "10:00", src: "Local", dst: "UTC", weekday: Mon, wantTZ: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatTimeInZone(tt.time, tt.src, tt.dst, tt.weekday, start())
			require.Error(t, err)
			assert.Empty(t, got)

			var tzErr *UnknownTimezoneError
			var inErr *InvalidInputError
			if tt.wantTZ {
				assert.True(t, errors.As(err, &tzErr), "want UnknownTimezoneError, got %T", err)
			} else {
				assert.True(t, errors.As(err, &inErr), "want InvalidInputError, got %T", err)
			}
		})
	}
}

func TestFormatter_CustomResolver(t *testing.T) {
	f := NewFormatter(fixedResolver{"Test/East": 2 * time.Hour, "Test/West": -3 * time.Hour})

	got, err := f.FormatTimeInZone("10:00", "Test/East", "Test/West", Tue, start())
	require.NoError(t, err)
	assert.Equal(t, "5:00 AM", got)

	got, err = f.FormatTimeInZone("05:00", "Test/West", "Test/East", Tue, start())
	require.NoError(t, err)
	assert.Equal(t, "10:00 AM", got)

	_, err = f.FormatTimeInZone("10:00", "Test/East", "Asia/Seoul", Tue, start())
	var tzErr *UnknownTimezoneError
	require.True(t, errors.As(err, &tzErr))
	assert.Equal(t, "Asia/Seoul", tzErr.Zone)
}

func TestFormatter_Row(t *testing.T) {
	f := NewFormatter(nil)
	zones := append(DefaultDisplayZones(), DisplayZone{Label: "Nowhere", Timezone: "Nowhere/Land"})
	m := RecurringMeeting{Weekday: Sat, StartTimeLocal: "10:00", Timezone: "Asia/Jerusalem"}

	row := f.Row(m, zones, start())
	require.Len(t, row, 5)

	got := make([]string, len(row))
	for i, zt := range row {
		got[i] = zt.Display()
	}
	assert.Equal(t, []string{"10:00 AM", "3:00 AM", "8:00 AM", "5:00 PM", Placeholder}, got)
	assert.Equal(t, "Israel", row[0].Zone.Label)
	assert.Error(t, row[4].Err)

	t.Run("bad meeting time fails every cell", func(t *testing.T) {
		row := f.Row(RecurringMeeting{Weekday: Sat, StartTimeLocal: "25:99", Timezone: "Asia/Jerusalem"}, DefaultDisplayZones(), start())
		for _, zt := range row {
			assert.Equal(t, Placeholder, zt.Display())
		}
	})
}

func TestFormatter_Upcoming(t *testing.T) {
	f := NewFormatter(nil)
	m := RecurringMeeting{Weekday: Mon, StartTimeLocal: "12:00", Timezone: "America/New_York"}

	got, err := f.Upcoming(m, time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC), 3)
	require.NoError(t, err)
	want := []time.Time{
		time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 9, 16, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 16, 16, 0, 0, 0, time.UTC),
	}
	require.Len(t, got, len(want))
	ny := mustLoad(t, "America/New_York")
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "occurrence %d: got %v, want %v", i, got[i], want[i])
		assert.Equal(t, "12:00 PM", got[i].In(ny).Format(Layout12))
	}

	none, err := f.Upcoming(m, start(), 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = f.Upcoming(RecurringMeeting{Weekday: Mon, StartTimeLocal: "noon", Timezone: "UTC"}, start(), 2)
	assert.Error(t, err)
}

func TestFormatter_NextOccurrence(t *testing.T) {
	f := NewFormatter(nil)
	got, err := f.NextOccurrence(RecurringMeeting{Weekday: Sat, StartTimeLocal: "10:00", Timezone: "Asia/Jerusalem"}, start())
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 1, 17, 8, 0, 0, 0, time.UTC)), "got %v", got)

	_, err = f.NextOccurrence(RecurringMeeting{Weekday: Sat, StartTimeLocal: "10:00", Timezone: "Nowhere/Land"}, start())
	var tzErr *UnknownTimezoneError
	assert.True(t, errors.As(err, &tzErr))
}
