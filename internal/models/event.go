package models

import (
	"time"
)

// Event is a tournament owning courts, divisions and encounters.
type Event struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Timezone  string    `db:"timezone" json:"timezone"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Location resolves the event timezone, defaulting to UTC.
func (e *Event) Location() *time.Location {
	if e == nil || e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (e *Event) firstDay() time.Time {
	loc := e.Location()
	y, m, d := e.StartDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// DayCount returns the number of event days; single-day events return 1.
func (e *Event) DayCount() int {
	y1, m1, d1 := e.StartDate.Date()
	y2, m2, d2 := e.EndDate.Date()
	start := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	end := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// DayStart returns midnight of the 1-based event day in the event timezone.
func (e *Event) DayStart(day int) time.Time {
	return e.firstDay().AddDate(0, 0, day-1)
}

// At converts an event day and wall-clock time into an instant.
func (e *Event) At(day int, tod TimeOfDay) time.Time {
	base := e.DayStart(day)
	return time.Date(base.Year(), base.Month(), base.Day(), int(tod)/60, int(tod)%60, 0, 0, base.Location())
}

// DayOf maps an instant to its 1-based event day and time of day.
func (e *Event) DayOf(t time.Time) (int, TimeOfDay) {
	local := t.In(e.Location())
	y, m, d := local.Date()
	sy, sm, sd := e.StartDate.Date()
	diff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Sub(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC))
	return int(diff.Hours()/24) + 1, NewTimeOfDay(local.Hour(), local.Minute())
}

// HasDay reports whether day falls inside the event.
func (e *Event) HasDay(day int) bool {
	return day >= 1 && day <= e.DayCount()
}
