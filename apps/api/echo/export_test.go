package echoapi

import "time"

// SetNowFunc swaps the server clock and returns a func restoring it.
func SetNowFunc(f func() time.Time) func() {
	orig := nowFunc
	nowFunc = f
	return func() { nowFunc = orig }
}
