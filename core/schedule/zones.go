package schedule

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Placeholder is shown for a zone whose conversion failed.
const Placeholder = "—"

// RecurringMeeting is a weekly recurring session, defined in its own zone.
type RecurringMeeting struct {
	Weekday        Weekday `json:"weekday"`
	StartTimeLocal string  `json:"start_time"` // "HH:MM", 24-hour
	Timezone       string  `json:"timezone"`
}

// DisplayZone is a zone rendered next to every meeting.
type DisplayZone struct {
	Label    string `yaml:"label" json:"label"`
	Timezone string `yaml:"timezone" json:"timezone"`
}

// ZoneTime is one cell of a meeting row.
type ZoneTime struct {
	Zone DisplayZone
	Time string
	Err  error
}

// Display returns the formatted time, or Placeholder if the conversion failed.
func (zt ZoneTime) Display() string {
	if zt.Err != nil {
		return Placeholder
	}
	return zt.Time
}

// DefaultDisplayZones returns a fresh copy of the built-in display zones.
func DefaultDisplayZones() []DisplayZone {
	return []DisplayZone{
		{Label: "Israel", Timezone: "Asia/Jerusalem"},
		{Label: "New York", Timezone: "America/New_York"},
		{Label: "London", Timezone: "Europe/London"},
		{Label: "Seoul", Timezone: "Asia/Seoul"},
	}
}

type displayZonesFile struct {
	Zones []DisplayZone `yaml:"zones"`
}

// LoadDisplayZones reads display zones from a YAML file with a top-level "zones" list.
// An empty path yields DefaultDisplayZones.
func LoadDisplayZones(path string) ([]DisplayZone, error) {
	if path == "" {
		return DefaultDisplayZones(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading display zones")
	}
	return ParseDisplayZones(data)
}

// ParseDisplayZones decodes and checks a display zones document.
func ParseDisplayZones(data []byte) ([]DisplayZone, error) {
	var file displayZonesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "decoding display zones")
	}
	if len(file.Zones) == 0 {
		return nil, errors.New("display zones: no zones defined")
	}
	for i, z := range file.Zones {
		if err := CheckTimezone(z.Timezone); err != nil {
			return nil, errors.Wrapf(err, "display zone %d", i)
		}
		if z.Label == "" {
			file.Zones[i].Label = z.Timezone
		}
	}
	return file.Zones, nil
}

// Row converts the meeting to every display zone. A failing zone yields a ZoneTime
// carrying the error; the others are unaffected.
func (f *Formatter) Row(m RecurringMeeting, zones []DisplayZone, now time.Time) []ZoneTime {
	row := make([]ZoneTime, len(zones))
	for i, z := range zones {
		t, err := f.FormatTimeInZone(m.StartTimeLocal, m.Timezone, z.Timezone, m.Weekday, now)
		row[i] = ZoneTime{Zone: z, Time: t, Err: err}
	}
	return row
}
