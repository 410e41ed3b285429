package booking

import (
	"fmt"
	"time"
)

// Date is a calendar day in the wizard's local time zone, with no time-of-day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day t falls on in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO "2006-01-02" date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("booking: invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String formats the date the way the appointments API expects it.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

// AddDays returns the day n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC))
}

// Slot is one bookable time of day.
type Slot struct {
	Label  string
	Hour   int
	Minute int
}

// sinceMidnight is the slot's offset into its day.
func (s Slot) sinceMidnight() time.Duration {
	return time.Duration(s.Hour)*time.Hour + time.Duration(s.Minute)*time.Minute
}

// TimeSlots is the fixed, ordered list of consultation slots.
var TimeSlots = []Slot{
	{Label: "09:00 AM", Hour: 9},
	{Label: "10:00 AM", Hour: 10},
	{Label: "11:00 AM", Hour: 11},
	{Label: "12:00 PM", Hour: 12},
	{Label: "02:00 PM", Hour: 14},
	{Label: "03:00 PM", Hour: 15},
	{Label: "04:00 PM", Hour: 16},
	{Label: "05:00 PM", Hour: 17},
}

// LookupSlot finds a slot by its label.
func LookupSlot(label string) (Slot, bool) {
	for _, s := range TimeSlots {
		if s.Label == label {
			return s, true
		}
	}
	return Slot{}, false
}

// SlotAvailable reports whether slot can be booked on day given the current instant.
// Future days allow every slot; today allows only slots strictly later than now.
func SlotAvailable(day Date, slot Slot, now time.Time) bool {
	today := DateOf(now)
	if day.After(today) {
		return true
	}
	if day != today {
		return false
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return slot.sinceMidnight() > now.Sub(midnight)
}
