package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return d.midnight(time.UTC).Format(dateLayout)
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.midnight(time.UTC).Weekday()
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return DateOf(d.midnight(time.UTC).AddDate(0, 0, n))
}

// Bounds returns [start, end) of the day in loc.
func (d Date) Bounds(loc *time.Location) (time.Time, time.Time) {
	start := d.midnight(loc)
	return start, time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, loc)
}

func (d Date) midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// ClockTime is a wall-clock start time in HH:MM.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses a 24-hour HH:MM value.
func ParseClockTime(raw string) (ClockTime, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil || len(raw) != 5 {
		return ClockTime{}, fmt.Errorf("invalid start time %q: expected HH:MM", raw)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Before orders clock times within a day.
func (c ClockTime) Before(other ClockTime) bool {
	if c.Hour != other.Hour {
		return c.Hour < other.Hour
	}
	return c.Minute < other.Minute
}

// On returns the instant of c on day d in loc.
func (c ClockTime) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, loc)
}
