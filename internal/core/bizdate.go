package core

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the wire and display form of a business date.
const DateLayout = "2006-01-02"

// BusinessZone is the fixed UTC-4 offset that defines the business day,
// regardless of where the viewer is.
var BusinessZone = time.FixedZone("UTC-4", -4*60*60)

// BusinessDate returns the calendar date of t in the business zone.
func BusinessDate(t time.Time) string {
	return t.In(BusinessZone).Format(DateLayout)
}

// ParseBusinessDate parses a YYYY-MM-DD string as midnight in the business zone.
func ParseBusinessDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, BusinessZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// PaymentTimestamp combines a business date with the current time of day in
// the business zone, so a payment moved to another day keeps its clock time.
func PaymentTimestamp(date string, now time.Time) (time.Time, error) {
	d, err := ParseBusinessDate(date)
	if err != nil {
		return time.Time{}, err
	}
	clock := now.In(BusinessZone)
	return time.Date(d.Year(), d.Month(), d.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), BusinessZone), nil
}

// TimeOfDay formats the payment's clock time in the business zone.
func TimeOfDay(t time.Time) string {
	return t.In(BusinessZone).Format("15:04")
}

// SortPayments orders payments the way the store delivers them: newest
// first, ties broken by ID.
func SortPayments(ps []Payment) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].Timestamp.Equal(ps[j].Timestamp) {
			return ps[i].Timestamp.After(ps[j].Timestamp)
		}
		return ps[i].ID < ps[j].ID
	})
}
