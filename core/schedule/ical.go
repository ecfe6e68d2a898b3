package schedule

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

const icsLocalLayout = "20060102T150405"

var rruleWeekdays = [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// CalendarEvent is a meeting exported as a weekly VEVENT.
type CalendarEvent struct {
	UID         string
	Summary     string
	Description string
	URL         string
	Meeting     RecurringMeeting
	Duration    time.Duration
}

// WeeklyRule returns the RRULE value for a meeting recurring on weekday.
func WeeklyRule(weekday Weekday) (string, error) {
	if !weekday.Valid() {
		return "", &InvalidInputError{Field: "weekday", Value: time.Weekday(weekday).String()}
	}
	opt := rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rruleWeekdays[weekday]},
	}
	return opt.String(), nil
}

// Calendar renders events as an iCalendar feed. Each event starts at its next occurrence,
// with DTSTART expressed in the meeting's own zone so clients follow its DST rules.
func (f *Formatter) Calendar(name string, events []CalendarEvent, now time.Time) (string, error) {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Darasa//Course Schedule//EN")
	cal.SetXWRCalName(name)

	seen := make(map[string]bool)
	for _, e := range events {
		zone := e.Meeting.Timezone
		if seen[zone] {
			continue
		}
		seen[zone] = true
		if err := f.addTimezone(cal, zone, now); err != nil {
			return "", err
		}
	}

	for _, e := range events {
		wt, err := ParseWallTime(e.Meeting.StartTimeLocal)
		if err != nil {
			return "", err
		}
		ref, err := ReferenceDate(e.Meeting.Weekday, now)
		if err != nil {
			return "", err
		}
		rule, err := WeeklyRule(e.Meeting.Weekday)
		if err != nil {
			return "", err
		}

		start := naiveDateTime(ref, wt)
		dur := e.Duration
		if dur <= 0 {
			dur = time.Hour
		}

		event := cal.AddEvent(e.UID)
		event.SetDtStampTime(now.UTC())
		event.SetSummary(e.Summary)
		if e.Description != "" {
			event.SetDescription(e.Description)
		}
		if e.URL != "" {
			event.SetURL(e.URL)
		}
		event.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsLocalLayout), ics.WithTZID(e.Meeting.Timezone))
		event.SetProperty(ics.ComponentPropertyDtEnd, start.Add(dur).Format(icsLocalLayout), ics.WithTZID(e.Meeting.Timezone))
		event.AddProperty(ics.ComponentPropertyRrule, rule)
	}
	return cal.Serialize(), nil
}

type zoneTransition struct {
	at       time.Time
	from, to time.Duration
}

// transitions lists the offset changes of zone during the UTC calendar year of at.
func (f *Formatter) transitions(zone string, at time.Time) ([]zoneTransition, error) {
	start := time.Date(at.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	prev, err := f.resolver.Offset(zone, start)
	if err != nil {
		return nil, err
	}
	var out []zoneTransition
	for day := start; day.Before(end); day = day.Add(24 * time.Hour) {
		next, err := f.resolver.Offset(zone, day.Add(24*time.Hour))
		if err != nil {
			return nil, err
		}
		if next == prev {
			continue
		}
		// the change happened within (day, day+24h]: narrow it to the minute
		lo, hi := day, day.Add(24*time.Hour)
		for hi.Sub(lo) > time.Minute {
			mid := lo.Add(hi.Sub(lo) / 2).Truncate(time.Minute)
			off, err := f.resolver.Offset(zone, mid)
			if err != nil {
				return nil, err
			}
			if off == prev {
				lo = mid
			} else {
				hi = mid
			}
		}
		out = append(out, zoneTransition{at: hi, from: prev, to: next})
		prev = next
	}
	return out, nil
}

// addTimezone adds the VTIMEZONE matching the TZID of zone's events, with the
// transitions of the year of now.
func (f *Formatter) addTimezone(cal *ics.Calendar, zone string, now time.Time) error {
	trs, err := f.transitions(zone, now)
	if err != nil {
		return err
	}
	tz := cal.AddTimezone(zone)

	if len(trs) == 0 {
		off, err := f.resolver.Offset(zone, now)
		if err != nil {
			return err
		}
		std := tz.AddStandard()
		setObservance(&std.ComponentBase, zoneTransition{at: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), from: off, to: off})
		return nil
	}

	for _, tr := range trs {
		if tr.to > tr.from {
			dl := &ics.Daylight{}
			setObservance(&dl.ComponentBase, tr)
			tz.Components = append(tz.Components, dl)
			continue
		}
		std := tz.AddStandard()
		setObservance(&std.ComponentBase, tr)
	}
	return nil
}

func setObservance(c *ics.ComponentBase, tr zoneTransition) {
	// DTSTART is the wall time before the change, in the offset being left
	c.SetProperty(ics.ComponentPropertyDtStart, tr.at.Add(tr.from).Format(icsLocalLayout))
	c.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), utcOffset(tr.from))
	c.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), utcOffset(tr.to))
}

// utcOffset formats d as an iCalendar UTC-OFFSET (+HHMM).
func utcOffset(d time.Duration) string {
	sign := '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	mins := int(d / time.Minute)
	return fmt.Sprintf("%c%02d%02d", sign, mins/60, mins%60)
}
