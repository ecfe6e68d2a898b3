package schedule

import (
	"sync"
	"time"
	_ "time/tzdata" // bundled tz database, so resolution does not depend on the host
)

// ZoneResolver maps an IANA zone identifier and an absolute instant to the UTC offset in force.
type ZoneResolver interface {
	Offset(zone string, at time.Time) (time.Duration, error)
}

// LocationResolver resolves zones through the Go tz database, caching loaded locations.
type LocationResolver struct {
	cache sync.Map // zone -> *time.Location
}

var _ ZoneResolver = (*LocationResolver)(nil)

// DefaultResolver is shared by the package-level helpers.
var DefaultResolver = NewLocationResolver()

func NewLocationResolver() *LocationResolver { return &LocationResolver{} }

// Location loads zone. The empty name and "Local" are rejected: meetings need a concrete IANA identifier.
func (r *LocationResolver) Location(zone string) (*time.Location, error) {
	if loc, ok := r.cache.Load(zone); ok {
		return loc.(*time.Location), nil
	}
	if zone == "" || zone == "Local" {
		return nil, &UnknownTimezoneError{Zone: zone}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, &UnknownTimezoneError{Zone: zone, Err: err}
	}
	r.cache.Store(zone, loc)
	return loc, nil
}

func (r *LocationResolver) Offset(zone string, at time.Time) (time.Duration, error) {
	loc, err := r.Location(zone)
	if err != nil {
		return 0, err
	}
	_, secs := at.In(loc).Zone()
	return time.Duration(secs) * time.Second, nil
}

// CheckTimezone returns an *UnknownTimezoneError when zone is not a loadable IANA identifier.
func CheckTimezone(zone string) error {
	_, err := DefaultResolver.Location(zone)
	return err
}
