package schedule

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Weekday is the day a meeting recurs on, in the meeting's own calendar.
// Values match time.Weekday (Sun = 0).
type Weekday int

const (
	Sun Weekday = iota
	Mon
	Tue
	Wed
	Thu
	Fri
	Sat
)

var weekdayCodes = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// ParseWeekday accepts the three-letter code ("sat") or the english name ("Saturday"), in any case.
func ParseWeekday(s string) (Weekday, error) {
	fold := cases.Fold() // casers are stateful
	key := fold.String(strings.TrimSpace(s))
	for i, code := range weekdayCodes {
		if key == code || key == fold.String(time.Weekday(i).String()) {
			return Weekday(i), nil
		}
	}
	return 0, &InvalidInputError{Field: "weekday", Value: s}
}

func (d Weekday) Valid() bool { return d >= Sun && d <= Sat }

// String returns the three-letter code stored with meetings.
func (d Weekday) String() string {
	if !d.Valid() {
		return ""
	}
	return weekdayCodes[d]
}

// Label returns the english day name, eg. "Saturday".
func (d Weekday) Label() string {
	if !d.Valid() {
		return ""
	}
	return time.Weekday(d).String()
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, &InvalidInputError{Field: "weekday", Value: time.Weekday(d).String()}
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(text []byte) error {
	wd, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = wd
	return nil
}
