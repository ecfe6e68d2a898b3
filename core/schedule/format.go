// Package schedule converts a weekly meeting, defined by a wall time and weekday
// in its own zone, to the wall time of its next occurrence in other zones.
package schedule

import (
	"time"

	"github.com/teambition/rrule-go"
)

// Layout12 is the 12-hour display layout shared by every rendered time.
const Layout12 = "3:04 PM"

// Formatter converts meeting times between zones through a ZoneResolver.
type Formatter struct {
	resolver ZoneResolver
}

// NewFormatter returns a Formatter backed by r, or by DefaultResolver when r is nil.
func NewFormatter(r ZoneResolver) *Formatter {
	if r == nil {
		r = DefaultResolver
	}
	return &Formatter{resolver: r}
}

var defaultFormatter = NewFormatter(nil)

// ReferenceDate returns midnight, in now's location, of the next day strictly after today
// falling on weekday. When today is already weekday the result is a week ahead.
func ReferenceDate(weekday Weekday, now time.Time) (time.Time, error) {
	if !weekday.Valid() {
		return time.Time{}, &InvalidInputError{Field: "weekday", Value: time.Weekday(weekday).String()}
	}
	days := (int(weekday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, now.Location()), nil
}

// FormatTimeInZone is Formatter.FormatTimeInZone on DefaultResolver.
func FormatTimeInZone(startTimeLocal, sourceTZ, targetTZ string, weekday Weekday, now time.Time) (string, error) {
	return defaultFormatter.FormatTimeInZone(startTimeLocal, sourceTZ, targetTZ, weekday, now)
}

// FormatTimeInZone returns the 12-hour wall time in targetTZ of the next weekday occurrence
// of startTimeLocal ("HH:MM") in sourceTZ. The source offset is the one in force on that
// occurrence, not today's.
func (f *Formatter) FormatTimeInZone(startTimeLocal, sourceTZ, targetTZ string, weekday Weekday, now time.Time) (string, error) {
	wt, err := ParseWallTime(startTimeLocal)
	if err != nil {
		return "", err
	}
	if sourceTZ == targetTZ {
		if _, err := f.resolver.Offset(sourceTZ, now); err != nil {
			return "", err
		}
		if !weekday.Valid() {
			return "", &InvalidInputError{Field: "weekday", Value: time.Weekday(weekday).String()}
		}
		return wt.Format12(), nil
	}

	instant, err := f.nextOccurrence(wt, sourceTZ, weekday, now)
	if err != nil {
		return "", err
	}
	return f.Format(instant, targetTZ)
}

// Format renders instant as a 12-hour wall time in zone.
func (f *Formatter) Format(instant time.Time, zone string) (string, error) {
	off, err := f.resolver.Offset(zone, instant)
	if err != nil {
		return "", err
	}
	return instant.UTC().Add(off).Format(Layout12), nil
}

// NextOccurrence returns the absolute instant of the meeting's next occurrence after today.
func (f *Formatter) NextOccurrence(m RecurringMeeting, now time.Time) (time.Time, error) {
	wt, err := ParseWallTime(m.StartTimeLocal)
	if err != nil {
		return time.Time{}, err
	}
	return f.nextOccurrence(wt, m.Timezone, m.Weekday, now)
}

func (f *Formatter) nextOccurrence(wt WallTime, zone string, weekday Weekday, now time.Time) (time.Time, error) {
	ref, err := ReferenceDate(weekday, now)
	if err != nil {
		return time.Time{}, err
	}
	return f.Resolve(naiveDateTime(ref, wt), zone)
}

// Resolve interprets naive, whose UTC fields hold a wall date-time, in zone.
// Wall times skipped by a forward transition resolve past the gap, using the
// offset in force before it; repeated wall times resolve to the earlier instant.
func (f *Formatter) Resolve(naive time.Time, zone string) (time.Time, error) {
	before, err := f.resolver.Offset(zone, naive.Add(-24*time.Hour))
	if err != nil {
		return time.Time{}, err
	}
	after, err := f.resolver.Offset(zone, naive.Add(24*time.Hour))
	if err != nil {
		return time.Time{}, err
	}

	var found []time.Time
	for _, off := range []time.Duration{before, after} {
		candidate := naive.Add(-off)
		got, err := f.resolver.Offset(zone, candidate)
		if err != nil {
			return time.Time{}, err
		}
		if got == off {
			found = append(found, candidate)
		}
	}

	switch len(found) {
	case 0: // gap
		return naive.Add(-before), nil
	case 1:
		return found[0], nil
	}
	if found[1].Before(found[0]) {
		return found[1], nil
	}
	return found[0], nil
}

// Upcoming returns the next count occurrences of the meeting, starting at the reference date.
func (f *Formatter) Upcoming(m RecurringMeeting, now time.Time, count int) ([]time.Time, error) {
	wt, err := ParseWallTime(m.StartTimeLocal)
	if err != nil {
		return nil, err
	}
	ref, err := ReferenceDate(m.Weekday, now)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Count:   count,
		Dtstart: naiveDateTime(ref, wt),
	})
	if err != nil {
		return nil, err
	}

	naives := rule.All()
	instants := make([]time.Time, 0, len(naives))
	for _, n := range naives {
		at, err := f.Resolve(n, m.Timezone)
		if err != nil {
			return nil, err
		}
		instants = append(instants, at)
	}
	return instants, nil
}

func naiveDateTime(date time.Time, wt WallTime) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, wt.Hour, wt.Minute, 0, 0, time.UTC)
}
