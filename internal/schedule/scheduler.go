package schedule

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hours   int
	Minutes int
}

// ParseTimeOfDay accepts "HH:MM".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", value, err)
	}
	return TimeOfDay{Hours: parsed.Hour(), Minutes: parsed.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hours, t.Minutes)
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Hours*60+t.Minutes < other.Hours*60+other.Minutes
}

// On returns the given day's date at t, in the day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hours, t.Minutes, 0, 0, day.Location())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// BusinessDayScheduler computes trigger timestamps that always land on
// Monday through Friday at the cutoff time of day.
type BusinessDayScheduler struct {
	Cutoff TimeOfDay
}

func NewBusinessDayScheduler(cutoff TimeOfDay) BusinessDayScheduler {
	return BusinessDayScheduler{Cutoff: cutoff}
}

// InitialTrigger combines today's date with the cutoff and moves a weekend
// date forward to Monday.
func (s BusinessDayScheduler) InitialTrigger(today time.Time) time.Time {
	trigger := s.Cutoff.On(today)
	switch trigger.Weekday() {
	case time.Saturday:
		return trigger.AddDate(0, 0, 2)
	case time.Sunday:
		return trigger.AddDate(0, 0, 1)
	default:
		return trigger
	}
}

// NextTrigger returns the business day after previous. The weekday check is
// made on previous+1 day, not on previous itself.
func (s BusinessDayScheduler) NextTrigger(previous time.Time) time.Time {
	switch previous.AddDate(0, 0, 1).Weekday() {
	case time.Saturday:
		return previous.AddDate(0, 0, 3)
	case time.Sunday:
		return previous.AddDate(0, 0, 2)
	default:
		return previous.AddDate(0, 0, 1)
	}
}

// NextAfter advances from previous until the trigger is strictly after now.
func (s BusinessDayScheduler) NextAfter(previous, now time.Time) time.Time {
	next := s.NextTrigger(previous)
	for !next.After(now) {
		next = s.NextTrigger(next)
	}
	return next
}

// StopAt is the stop deadline for the session that fires at trigger.
func StopAt(trigger time.Time, stop TimeOfDay) time.Time {
	return stop.On(trigger)
}
