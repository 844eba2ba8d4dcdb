// Package daterange models nightly stays as half-open ranges of calendar dates.
//
// A calendar date is represented as a time.Time at midnight UTC. All values
// entering the reservation core pass through Day so that comparisons in Go and
// in the store agree.
package daterange

import (
	"time"

	"github.com/gdg-garage/reservation-api/internal/apperr"
)

const Layout = "2006-01-02"

// Day drops the clock part of t, keeping t's own year, month and day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of now as observed in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// Parse reads a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, apperr.InvalidInput("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Range is a stay [CheckIn, CheckOut). The check-out day itself is not occupied.
type Range struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// New normalises both ends to calendar dates and rejects zero-night or
// inverted ranges.
func New(checkIn, checkOut time.Time) (Range, error) {
	r := Range{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if !r.CheckIn.Before(r.CheckOut) {
		return Range{}, apperr.InvalidInput("check-out date must be after check-in date")
	}
	return r, nil
}

// ParseRange combines Parse and New.
func ParseRange(checkIn, checkOut string) (Range, error) {
	in, err := Parse(checkIn)
	if err != nil {
		return Range{}, err
	}
	out, err := Parse(checkOut)
	if err != nil {
		return Range{}, err
	}
	return New(in, out)
}

// Overlaps reports whether two stays share at least one night.
func (r Range) Overlaps(o Range) bool {
	return r.CheckIn.Before(o.CheckOut) && r.CheckOut.After(o.CheckIn)
}

// Contains reports whether the night starting on day d belongs to the stay.
func (r Range) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.CheckIn) && d.Before(r.CheckOut)
}

func (r Range) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// ValidateForCreation rejects stays that start before today.
func (r Range) ValidateForCreation(today time.Time) error {
	if r.CheckIn.Before(Day(today)) {
		return apperr.InvalidInput("check-in date cannot be in the past")
	}
	return nil
}

func (r Range) String() string {
	return r.CheckIn.Format(Layout) + ".." + r.CheckOut.Format(Layout)
}

// EachDay calls fn for every calendar date in [start, end], one day at a time.
// It stops at the first error fn returns.
func EachDay(start, end time.Time, fn func(day time.Time) error) error {
	for d := Day(start); !d.After(Day(end)); d = d.AddDate(0, 0, 1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}
