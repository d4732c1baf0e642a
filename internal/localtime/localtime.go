// Package localtime pins the platform's business timezone. Mission locks,
// check-ins and daily resets are all scoped to calendar days in this zone,
// not to rolling 24h windows.
package localtime

import "time"

// ZoneName is the platform's business timezone.
const ZoneName = "Asia/Ho_Chi_Minh"

// location is resolved once at init; Asia/Ho_Chi_Minh has a fixed +07:00
// offset, so the fallback zone is equivalent when tzdata is unavailable.
var location = func() *time.Location {
	loc, err := time.LoadLocation(ZoneName)
	if err != nil {
		return time.FixedZone("+07", 7*3600)
	}
	return loc
}()

// Location returns the platform timezone.
func Location() *time.Location {
	return location
}

// Now returns the current time in the platform timezone.
func Now() time.Time {
	return time.Now().In(location)
}

// DayKey formats a time as the platform-local calendar day, YYYY-MM-DD.
func DayKey(t time.Time) string {
	return t.In(location).Format("2006-01-02")
}

// Today returns the current platform-local calendar day.
func Today() string {
	return DayKey(time.Now())
}

// NextMidnight returns the first instant of the next platform-local day
// after t.
func NextMidnight(t time.Time) time.Time {
	local := t.In(location)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)
	return next.AddDate(0, 0, 1)
}
