package schedule

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    Weekday
		wantErr bool
	}{
		{in: "sat", want: Sat},
		{in: "SAT", want: Sat},
		{in: "Saturday", want: Sat},
		{in: " sun ", want: Sun},
		{in: "wednesday", want: Wed},
		{in: "", wantErr: true},
		{in: "sa", wantErr: true},
		{in: "funday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWeekday_Text(t *testing.T) {
	assert.Equal(t, "thu", Thu.String())
	assert.Equal(t, "Thursday", Thu.Label())
	assert.Equal(t, "", Weekday(8).String())

	var m RecurringMeeting
	require.NoError(t, json.Unmarshal([]byte(`{"weekday":"Friday","start_time":"18:30","timezone":"Europe/London"}`), &m))
	assert.Equal(t, Fri, m.Weekday)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"weekday":"fri","start_time":"18:30","timezone":"Europe/London"}`, string(out))

	_, err = json.Marshal(RecurringMeeting{Weekday: Weekday(12)})
	assert.Error(t, err)
}

func TestParseWallTime(t *testing.T) {
	tests := []struct {
		in      string
		want    WallTime
		wantErr bool
	}{
		{in: "00:00", want: WallTime{0, 0}},
		{in: "9:05", want: WallTime{9, 5}},
		{in: "23:59", want: WallTime{23, 59}},
		{in: "18:30:45", want: WallTime{18, 30}},
		{in: "24:00", wantErr: true},
		{in: "25:99", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:00:60", wantErr: true},
		{in: "1200", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWallTime(tt.in)
			if tt.wantErr {
				var inv *InvalidInputError
				assert.ErrorAs(t, err, &inv)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWallTime_Format12(t *testing.T) {
	tests := map[WallTime]string{
		{0, 0}:   "12:00 AM",
		{0, 30}:  "12:30 AM",
		{11, 59}: "11:59 AM",
		{12, 0}:  "12:00 PM",
		{13, 7}:  "1:07 PM",
		{23, 45}: "11:45 PM",
	}
	for wt, want := range tests {
		assert.Equal(t, want, wt.Format12())
		// agrees with the layout used for converted times
		assert.Equal(t, want, time.Date(2026, 1, 1, wt.Hour, wt.Minute, 0, 0, time.UTC).Format(Layout12))
	}
	assert.Equal(t, "09:05", WallTime{9, 5}.String())
}

func TestCheckTimezone(t *testing.T) {
	for _, zone := range []string{"UTC", "Asia/Jerusalem", "America/New_York", "Asia/Kolkata"} {
		assert.NoError(t, CheckTimezone(zone), zone)
	}
	for _, zone := range []string{"", "Local", "Asia/Atlantis", "EST5EDT/Nope"} {
		var tzErr *UnknownTimezoneError
		assert.ErrorAs(t, CheckTimezone(zone), &tzErr, zone)
	}
}

func TestLoadDisplayZones(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		zones, err := LoadDisplayZones("")
		require.NoError(t, err)
		assert.Equal(t, DefaultDisplayZones(), zones)

		// callers get their own copy
		zones[0].Label = "changed"
		assert.Equal(t, "Israel", DefaultDisplayZones()[0].Label)
	})

	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "zones.yaml")
		doc := "zones:\n  - label: Tokyo\n    timezone: Asia/Tokyo\n  - timezone: America/Los_Angeles\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

		zones, err := LoadDisplayZones(path)
		require.NoError(t, err)
		assert.Equal(t, []DisplayZone{
			{Label: "Tokyo", Timezone: "Asia/Tokyo"},
			{Label: "America/Los_Angeles", Timezone: "America/Los_Angeles"},
		}, zones)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadDisplayZones(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid documents", func(t *testing.T) {
		for _, doc := range []string{"zones: [", "zones: []", "zones:\n  - label: X\n    timezone: Nowhere/Land\n"} {
			_, err := ParseDisplayZones([]byte(doc))
			assert.Error(t, err, doc)
		}
	})
}

func Test_utcOffset(t *testing.T) {
	assert.Equal(t, "+0000", utcOffset(0))
	assert.Equal(t, "+0530", utcOffset(5*time.Hour+30*time.Minute))
	assert.Equal(t, "-0400", utcOffset(-4*time.Hour))
	assert.Equal(t, "-0930", utcOffset(-9*time.Hour-30*time.Minute))
}

func TestWeeklyRule(t *testing.T) {
	rule, err := WeeklyRule(Sat)
	require.NoError(t, err)
	assert.Contains(t, rule, "FREQ=WEEKLY")
	assert.Contains(t, rule, "BYDAY=SA")

	_, err = WeeklyRule(Weekday(7))
	assert.Error(t, err)
}

func TestFormatter_Calendar(t *testing.T) {
	f := NewFormatter(nil)
	events := []CalendarEvent{
		{
			UID:      "meeting-1@darasa",
			Summary:  "Weekly class",
			URL:      "https://example.com/courses/intro",
			Meeting:  RecurringMeeting{Weekday: Sat, StartTimeLocal: "10:00", Timezone: "Asia/Jerusalem"},
			Duration: 90 * time.Minute,
		},
	}

	out, err := f.Calendar("Intro course", events, start())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "UID:meeting-1@darasa")
	assert.Contains(t, out, "SUMMARY:Weekly class")
	assert.Contains(t, out, "TZID=Asia/Jerusalem")
	assert.Contains(t, out, "20260117T100000")
	assert.Contains(t, out, "20260117T113000")
	assert.Contains(t, out, "BYDAY=SA")

	t.Run("timezone definitions", func(t *testing.T) {
		assert.Equal(t, 1, strings.Count(out, "BEGIN:VTIMEZONE"))
		assert.Contains(t, out, "TZID:Asia/Jerusalem")
		assert.Less(t, strings.Index(out, "BEGIN:VTIMEZONE"), strings.Index(out, "BEGIN:VEVENT"))

		// Israel moves to +0300 on 27 March and back on 25 October 2026, at 02:00 local
		assert.Contains(t, out, "BEGIN:DAYLIGHT")
		assert.Contains(t, out, "DTSTART:20260327T020000")
		assert.Contains(t, out, "DTSTART:20261025T020000")
		assert.Contains(t, out, "TZOFFSETFROM:+0200")
		assert.Contains(t, out, "TZOFFSETTO:+0300")

		seoul := events[0]
		seoul.UID = "meeting-2@darasa"
		seoul.Meeting.Timezone = "Asia/Seoul"
		again := events[0]
		again.UID = "meeting-3@darasa"
		out, err := f.Calendar("Mixed", []CalendarEvent{events[0], seoul, again}, start())
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(out, "BEGIN:VTIMEZONE"))
		assert.Contains(t, out, "TZID:Asia/Seoul")
		assert.Contains(t, out, "DTSTART:19700101T000000")
		assert.Contains(t, out, "TZOFFSETTO:+0900")
	})

	t.Run("invalid meeting", func(t *testing.T) {
		bad := events[0]
		bad.Meeting.Timezone = "Mars/Olympus"
		_, err := f.Calendar("x", []CalendarEvent{bad}, start())
		assert.Error(t, err)

		bad = events[0]
		bad.Meeting.StartTimeLocal = "25:99"
		_, err = f.Calendar("x", []CalendarEvent{bad}, start())
		assert.Error(t, err)
	})
}
