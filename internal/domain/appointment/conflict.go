package appointment

import "time"

// DefaultDuration applies to bookings stored without an explicit duration.
const DefaultDuration = 30 * time.Minute

// Slot places a booking on the clinic calendar: a calendar day, a time of
// day and an optional length.
type Slot struct {
	Date     time.Time
	Time     time.Duration
	Duration *time.Duration
}

// Length returns the booking length, falling back to DefaultDuration.
func (s Slot) Length() time.Duration {
	if s.Duration == nil {
		return DefaultDuration
	}
	return *s.Duration
}

// Bounds returns the half-open interval [start, end) occupied by the slot,
// with both ends floored to the minute.
func (s Slot) Bounds() (start, end time.Time) {
	start = floorMinute(CalendarDay(s.Date).Add(s.Time))
	end = floorMinute(start.Add(s.Length()))
	return start, end
}

// Overlaps reports whether two slots share any instant. Intervals that only
// touch (one ends when the other starts) do not overlap, and an empty
// interval overlaps nothing.
func Overlaps(a, b Slot) bool {
	aStart, aEnd := a.Bounds()
	bStart, bEnd := b.Bounds()
	if !aEnd.After(aStart) || !bEnd.After(bStart) {
		return false
	}
	return bStart.Before(aEnd) && bEnd.After(aStart)
}

// FindConflict returns the first existing booking that overlaps candidate,
// or nil when the slot is free. Callers pass the bookings of the
// candidate's day.
func FindConflict(candidate Slot, existing []*Appointment) *Appointment {
	for _, a := range existing {
		if Overlaps(candidate, a.Slot()) {
			return a
		}
	}
	return nil
}

// CalendarDay strips the time of day and zone from t, keeping the calendar
// date as written.
func CalendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func floorMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
