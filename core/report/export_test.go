package report

import "time"

// SetNow pins the service clock; the returned func restores it.
func SetNow(now time.Time) func() {
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	return func() { nowFunc = orig }
}
