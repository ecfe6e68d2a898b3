package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// "HH:MM" with optional seconds, which are ignored.
var wallTimeRegex = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

// WallTime is a time of day with no zone attached.
type WallTime struct {
	Hour   int
	Minute int
}

func ParseWallTime(s string) (WallTime, error) {
	m := wallTimeRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return WallTime{}, &InvalidInputError{Field: "time", Value: s}
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec := 0
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if h > 23 || min > 59 || sec > 59 {
		return WallTime{}, &InvalidInputError{Field: "time", Value: s}
	}
	return WallTime{Hour: h, Minute: min}, nil
}

// String returns the 24-hour "HH:MM" form.
func (wt WallTime) String() string {
	return fmt.Sprintf("%02d:%02d", wt.Hour, wt.Minute)
}

// Format12 returns the 12-hour display form, eg. "9:05 PM".
func (wt WallTime) Format12() string {
	h := wt.Hour % 12
	if h == 0 {
		h = 12
	}
	period := "AM"
	if wt.Hour >= 12 {
		period = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, wt.Minute, period)
}

func (wt WallTime) MarshalText() ([]byte, error) { return []byte(wt.String()), nil }

func (wt *WallTime) UnmarshalText(text []byte) error {
	parsed, err := ParseWallTime(string(text))
	if err != nil {
		return err
	}
	*wt = parsed
	return nil
}
